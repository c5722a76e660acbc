package qhare

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/titanous/json5"

	"qhare-bridge/internal/components/telemetry"
	"qhare-bridge/lib/textutil"
)

const report_attributes_parse = "attributes.parse"

const dynamicAttributePrefix = "lead[lead_attributs_dynamiques_attributes]"

var dynamicAttributeKeyRegex = regexp.MustCompile(`^lead\[lead_attributs_dynamiques_attributes\]\[([^\[\]]*)\]\[([^\[\]]*)\]$`)

// ParseValues turns the raw value of a dynamic attribute into its selected values.
//
// A raw value that is not an array is a single value. An array is a list of
// {value, selected} objects, usually written with single quotes, of which only the
// selected ones with a non-blank value are kept. The returned slice is never nil, when
// the array cannot be parsed it is empty and the error says why.
func ParseValues(raw string) ([]string, error) {
	values := []string{}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return values, nil
	}
	if !strings.HasPrefix(trimmed, "[") {
		return append(values, trimmed), nil
	}

	var items []any
	err := json5.Unmarshal([]byte(trimmed), &items)
	if err != nil {
		repaired := strings.ReplaceAll(trimmed, "'", `"`)
		repairErr := json.Unmarshal([]byte(repaired), &items)
		if repairErr != nil {
			return values, fmt.Errorf("parse values %q: %w", trimmed, err)
		}
	}

	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok || !isSelected(obj["selected"]) {
			continue
		}
		value := strings.TrimSpace(stringify(obj["value"]))
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values, nil
}

func isSelected(v any) bool {
	switch selected := v.(type) {
	case bool:
		return selected
	case string:
		return selected == "true" || selected == "1"
	case float64:
		return selected == 1
	}
	return false
}

// stringify renders a decoded json value as text, falsy values render as "".
func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		if !value {
			return ""
		}
		return "true"
	case float64:
		if value == 0 {
			return ""
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

type rawAttribute struct {
	index    int
	id       string
	label    string
	rawValue string
}

// ParseDynamicAttributes groups the `label` and `values` fields of every numbered
// dynamic attribute and keys the result by normalized label. When two attributes
// normalize to the same label the one with the higher index wins.
//
// Keys that carry the dynamic attribute prefix but are not shaped like
// `prefix[INDEX][field]` with a non-negative integer INDEX are rejected and reported.
func ParseDynamicAttributes(fields Fields, tel telemetry.API) map[string]DynamicAttribute {
	groups := map[string]*rawAttribute{}
	for key, value := range fields {
		if !strings.HasPrefix(key, dynamicAttributePrefix) {
			continue
		}
		match := dynamicAttributeKeyRegex.FindStringSubmatch(key)
		if match == nil {
			tel.ReportWarning(report_attributes_parse, fmt.Errorf("malformed dynamic attribute key"), key)
			continue
		}
		id, field := match[1], match[2]
		index, err := strconv.Atoi(id)
		if err != nil || index < 0 || strings.HasPrefix(id, "+") {
			tel.ReportWarning(report_attributes_parse, fmt.Errorf("invalid dynamic attribute index %q", id), key)
			continue
		}
		if field != "label" && field != "values" {
			continue
		}

		group, ok := groups[id]
		if !ok {
			group = &rawAttribute{index: index, id: id}
			groups[id] = group
		}
		if field == "label" {
			group.label = value
		} else {
			group.rawValue = value
		}
	}

	ordered := make([]*rawAttribute, 0, len(groups))
	for _, group := range groups {
		ordered = append(ordered, group)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].index != ordered[j].index {
			return ordered[i].index < ordered[j].index
		}
		return ordered[i].id < ordered[j].id
	})

	dynamic := make(map[string]DynamicAttribute, len(ordered))
	for _, group := range ordered {
		label := strings.TrimSpace(group.label)
		if label == "" {
			label = fmt.Sprintf("Attribut %s", group.id)
		}
		values, err := ParseValues(group.rawValue)
		if err != nil {
			tel.ReportWarning(report_attributes_parse, err, group.id)
		}
		dynamic[textutil.NormalizeLabel(label)] = DynamicAttribute{
			Id:       group.id,
			Label:    label,
			RawValue: group.rawValue,
			Values:   values,
		}
	}
	return dynamic
}
