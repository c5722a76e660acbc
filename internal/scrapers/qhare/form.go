package qhare

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const fieldSelector = "input, textarea, select"

func optionValue(option *goquery.Selection) string {
	value, ok := option.Attr("value")
	if ok {
		return value
	}
	return strings.TrimSpace(option.Text())
}

// fieldValue returns what a browser would submit for the element. A select without a
// selected option submits its first option.
func fieldValue(s *goquery.Selection) string {
	switch goquery.NodeName(s) {
	case "textarea":
		return s.Text()
	case "select":
		selected := s.Find("option[selected]")
		if selected.Length() == 0 {
			first := s.Find("option").First()
			if first.Length() == 0 {
				return ""
			}
			return optionValue(first)
		}
		if _, multiple := s.Attr("multiple"); !multiple {
			return optionValue(selected.First())
		}
		values := make([]string, 0, selected.Length())
		selected.Each(func(_ int, option *goquery.Selection) {
			values = append(values, optionValue(option))
		})
		return strings.Join(values, ",")
	}
	value, _ := s.Attr("value")
	return value
}

func isCheckable(s *goquery.Selection) bool {
	if goquery.NodeName(s) != "input" {
		return false
	}
	kind := strings.ToLower(s.AttrOr("type", ""))
	return kind == "checkbox" || kind == "radio"
}

func collect(sel *goquery.Selection, skipUnchecked bool) Fields {
	fields := Fields{}
	sel.Find(fieldSelector).Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		if skipUnchecked && isCheckable(s) {
			if _, checked := s.Attr("checked"); !checked {
				return
			}
		}
		fields[name] = fieldValue(s)
	})
	return fields
}

// CollectFields returns the name and current value of every form field under `sel`,
// later fields with the same name overwrite earlier ones.
func CollectFields(sel *goquery.Selection) Fields {
	return collect(sel, false)
}

// LoginForm returns the fields a browser would submit from the sign-in form of the page.
// When no form posts to the sign-in path, only the authenticity token is returned
// (if there is one).
func LoginForm(doc *goquery.Document, signInPath string) Fields {
	form := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.AttrOr("action", ""), signInPath)
	}).First()
	if form.Length() > 0 {
		return collect(form, true)
	}

	fields := Fields{}
	token, ok := doc.Find("input[name='authenticity_token']").First().Attr("value")
	if ok && token != "" {
		fields["authenticity_token"] = token
	}
	return fields
}
