package qhare

import (
	"fmt"
	"regexp"
	"strings"

	"qhare-bridge/lib/textutil"
)

var DefaultSummaryLabels = []string{
	"Type de projets",
	"Utilisation souhaitée de la production",
	"Type de pose",
	"Puissance de l'installation photovoltaïque en kW",
	"Puissance par panneau",
	"Nombre de panneau(x)",
	"Capacité de stockage",
	"Commentaires liés à la commande",
}

var DefaultRequiredFields = []string{
	"nom_client",
	"prenom_client",
	"voie",
	"ville",
	"code_postal",
	"description_installation",
}

const (
	DefaultDescription = "Synthèse automatique Qhare"
	// the generator picks the largest installation when no power is given
	DefaultPrimaryMetric = "max"

	commentsLabel       = "Commentaires liés à la commande"
	primaryMetricMarker = "puissance de l'installation"
	descriptionMaxRunes = 900
)

// BuildSummary picks the attributes named in `labels` that have at least one value, in
// the order of `labels`.
func BuildSummary(dynamic map[string]DynamicAttribute, labels []string) []SummaryEntry {
	summary := []SummaryEntry{}
	for _, label := range labels {
		attr, ok := dynamic[textutil.NormalizeLabel(label)]
		if !ok || len(attr.Values) == 0 {
			continue
		}
		entryLabel := attr.Label
		if entryLabel == "" {
			entryLabel = label
		}
		summary = append(summary, SummaryEntry{
			Label:  entryLabel,
			Values: attr.Values,
		})
	}
	return summary
}

// BuildDescription renders the summary as "label: v1, v2 | label: v3", falling back to
// `fallback` and then DefaultDescription when the summary is empty.
func BuildDescription(summary []SummaryEntry, fallback string) string {
	if len(summary) > 0 {
		parts := make([]string, len(summary))
		for i, entry := range summary {
			parts[i] = fmt.Sprintf("%s: %s", entry.Label, strings.Join(entry.Values, ", "))
		}
		return textutil.Truncate(strings.Join(parts, " | "), descriptionMaxRunes)
	}
	if fallback != "" {
		return fallback
	}
	return DefaultDescription
}

// PickPrimaryMetric returns the installed power, or DefaultPrimaryMetric if the summary
// does not mention it.
func PickPrimaryMetric(summary []SummaryEntry) string {
	for _, entry := range summary {
		if !strings.Contains(textutil.NormalizeLabel(entry.Label), primaryMetricMarker) {
			continue
		}
		if len(entry.Values) > 0 {
			return entry.Values[0]
		}
		break
	}
	return DefaultPrimaryMetric
}

var streetNumberRegex = regexp.MustCompile(`^(\d+[A-Za-z-]*)\s+(.*)$`)

type StreetAddress struct {
	Numero string
	Voie   string
}

// SplitAddress separates a leading street number ("12", "12B", "12bis") from the street
// name. Without a leading number the whole address is the street.
func SplitAddress(raw string) StreetAddress {
	value := strings.TrimSpace(raw)
	if value == "" {
		return StreetAddress{}
	}
	match := streetNumberRegex.FindStringSubmatch(value)
	if match != nil {
		return StreetAddress{Numero: match[1], Voie: match[2]}
	}
	return StreetAddress{Voie: value}
}

// ComputeMissing returns the keys of `required` that are empty in the payload, in the
// order of `required`.
func ComputeMissing(payload Payload, required []string) []string {
	missing := []string{}
	for _, key := range required {
		if payload.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// buildBundle assembles everything but the documents from the fields of a lead page.
func buildBundle(leadId, leadUrl string, fields Fields, dynamic map[string]DynamicAttribute, opts ScraperOptions) LeadBundle {
	address := SplitAddress(fields["lead[adresse]"])
	summary := BuildSummary(dynamic, opts.SummaryLabels)

	var comments string
	if attr, ok := dynamic[textutil.NormalizeLabel(commentsLabel)]; ok {
		comments = strings.Join(attr.Values, " ")
	}
	description := opts.DescriptionFallback
	if comments != "" {
		description = comments
	}

	payload := Payload{
		NomClient:               fields["lead[nom]"],
		PrenomClient:            fields["lead[prenom]"],
		NumeroAdresse:           address.Numero,
		Voie:                    address.Voie,
		Ville:                   fields["lead[ville]"],
		CodePostal:              fields["lead[codepostal]"],
		DescriptionInstallation: BuildDescription(summary, description),
		PuissanceKwc:            PickPrimaryMetric(summary),
	}

	return LeadBundle{
		LeadId:  leadId,
		LeadUrl: leadUrl,
		Contact: Contact{
			Civilite: fields["lead[civilite]"],
			Prenom:   fields["lead[prenom]"],
			Nom:      fields["lead[nom]"],
			Email:    fields["lead[email]"],
			Phone:    fields["lead[tel]"],
		},
		Address: Address{
			Raw:        fields["lead[adresse]"],
			Numero:     address.Numero,
			Voie:       address.Voie,
			CodePostal: fields["lead[codepostal]"],
			Ville:      fields["lead[ville]"],
		},
		Payload:   payload,
		Summary:   summary,
		Documents: []DocumentRef{},
		Missing:   ComputeMissing(payload, opts.RequiredFields),
	}
}
