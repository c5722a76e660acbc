package qhare

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestBuildSummaryOrder(t *testing.T) {
	dynamic := map[string]DynamicAttribute{
		"commentaires liés à la commande": {Label: "Commentaires liés à la commande", Values: []string{"RAS"}},
		"type de pose":                    {Label: "Type de pose", Values: []string{"Surimposition"}},
		"capacité de stockage":            {Label: "Capacité de stockage", Values: []string{}},
		"couleur du toit":                 {Label: "Couleur du toit", Values: []string{"Rouge"}},
		"type de projets":                 {Label: "Type  de projets", Values: []string{"PV", "Batterie"}},
	}

	// map iteration order is random, run a few times
	for range 10 {
		summary := BuildSummary(dynamic, DefaultSummaryLabels)
		require.Equal(t, []SummaryEntry{
			{Label: "Type  de projets", Values: []string{"PV", "Batterie"}},
			{Label: "Type de pose", Values: []string{"Surimposition"}},
			{Label: "Commentaires liés à la commande", Values: []string{"RAS"}},
		}, summary)
	}

	require.Equal(t, []SummaryEntry{}, BuildSummary(map[string]DynamicAttribute{}, DefaultSummaryLabels))
}

func TestBuildDescription(t *testing.T) {
	summary := []SummaryEntry{
		{Label: "Type de projets", Values: []string{"PV", "Batterie"}},
		{Label: "Type de pose", Values: []string{"Surimposition"}},
	}
	require.Equal(
		t,
		"Type de projets: PV, Batterie | Type de pose: Surimposition",
		BuildDescription(summary, "ignored"),
	)

	require.Equal(t, "Appeler le matin", BuildDescription(nil, "Appeler le matin"))
	require.Equal(t, DefaultDescription, BuildDescription([]SummaryEntry{}, ""))

	long := []SummaryEntry{{Label: "Commentaires", Values: []string{strings.Repeat("é", 2000)}}}
	description := BuildDescription(long, "")
	require.Equal(t, 900, utf8.RuneCountInString(description))
	require.True(t, utf8.ValidString(description))
	require.True(t, strings.HasPrefix(description, "Commentaires: éé"))
}

func TestPickPrimaryMetric(t *testing.T) {
	table := []struct {
		summary  []SummaryEntry
		expected string
	}{
		{
			summary: []SummaryEntry{
				{Label: "Type de pose", Values: []string{"Surimposition"}},
				{Label: "Puissance  de l'installation photovoltaïque en kW", Values: []string{"9", "6"}},
			},
			expected: "9",
		},
		{
			summary: []SummaryEntry{
				{Label: "PUISSANCE DE L'INSTALLATION", Values: []string{"3"}},
			},
			expected: "3",
		},
		{
			summary: []SummaryEntry{
				{Label: "Puissance par panneau", Values: []string{"400"}},
			},
			expected: "max",
		},
		{summary: nil, expected: "max"},
	}

	for _, row := range table {
		require.Equal(t, row.expected, PickPrimaryMetric(row.summary))
	}
}

func TestSplitAddress(t *testing.T) {
	table := []struct {
		raw      string
		expected StreetAddress
	}{
		{raw: "12B Rue de la Paix", expected: StreetAddress{Numero: "12B", Voie: "Rue de la Paix"}},
		{raw: "Rue Sans Numéro", expected: StreetAddress{Numero: "", Voie: "Rue Sans Numéro"}},
		{raw: "  4 allée des Pins ", expected: StreetAddress{Numero: "4", Voie: "allée des Pins"}},
		{raw: "12bis Boulevard Voltaire", expected: StreetAddress{Numero: "12bis", Voie: "Boulevard Voltaire"}},
		{raw: "12-14 Boulevard Voltaire", expected: StreetAddress{Numero: "", Voie: "12-14 Boulevard Voltaire"}},
		{raw: "1789", expected: StreetAddress{Numero: "", Voie: "1789"}},
		{raw: "   ", expected: StreetAddress{}},
		{raw: "", expected: StreetAddress{}},
	}

	for _, row := range table {
		require.Equal(t, row.expected, SplitAddress(row.raw), row.raw)
	}
}

func TestComputeMissing(t *testing.T) {
	complete := Payload{
		NomClient:               "Dupont",
		PrenomClient:            "Marie",
		Voie:                    "Rue de la Paix",
		Ville:                   "Paris",
		CodePostal:              "75002",
		DescriptionInstallation: "Type de pose: Surimposition",
	}
	require.Equal(t, []string{}, ComputeMissing(complete, DefaultRequiredFields))

	partial := complete
	partial.Ville = ""
	partial.NomClient = ""
	require.Equal(t, []string{"nom_client", "ville"}, ComputeMissing(partial, DefaultRequiredFields))

	require.Equal(t, DefaultRequiredFields, ComputeMissing(Payload{}, DefaultRequiredFields))

	// null fields count as missing
	require.Equal(
		t,
		[]string{"lien_odoo", "session_cookie"},
		ComputeMissing(complete, []string{"lien_odoo", "nom_client", "session_cookie"}),
	)
}
