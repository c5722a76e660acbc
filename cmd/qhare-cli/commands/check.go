package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"qhare-bridge/internal/scrapers/qhare"
	"qhare-bridge/lib/serviceutil"
)

const checkedDocuments = 5

var checkJson *bool

func init() {
	checkJson = checkCmd.Flags().Bool("json", false, "Print the report as json instead of tables.")
	rootCmd.AddCommand(checkCmd)
}

type checkReport struct {
	LeadId    string               `json:"leadId"`
	Contact   qhare.Contact        `json:"contact"`
	Address   qhare.Address        `json:"address"`
	Summary   []qhare.SummaryEntry `json:"summary"`
	Documents []qhare.DocumentRef  `json:"documents"`
	Missing   []string             `json:"missing"`
}

func newCheckReport(bundle qhare.LeadBundle) checkReport {
	documents := bundle.Documents
	if len(documents) > checkedDocuments {
		documents = documents[:checkedDocuments]
	}
	return checkReport{
		LeadId:    bundle.LeadId,
		Contact:   bundle.Contact,
		Address:   bundle.Address,
		Summary:   bundle.Summary,
		Documents: documents,
		Missing:   bundle.Missing,
	}
}

func renderCheckJson(w io.Writer, report checkReport) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func renderCheckTables(w io.Writer, report checkReport) {
	render := func(header table.Row, rows []table.Row) {
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(w)
		t.AppendHeader(header)
		t.AppendRows(rows)
		t.Render()
	}

	render(table.Row{"lead", "field", "value"}, []table.Row{
		{report.LeadId, "civilite", report.Contact.Civilite},
		{report.LeadId, "prenom", report.Contact.Prenom},
		{report.LeadId, "nom", report.Contact.Nom},
		{report.LeadId, "email", report.Contact.Email},
		{report.LeadId, "phone", report.Contact.Phone},
		{report.LeadId, "adresse", report.Address.Raw},
		{report.LeadId, "numero", report.Address.Numero},
		{report.LeadId, "voie", report.Address.Voie},
		{report.LeadId, "code_postal", report.Address.CodePostal},
		{report.LeadId, "ville", report.Address.Ville},
	})

	summary := make([]table.Row, len(report.Summary))
	for i, entry := range report.Summary {
		summary[i] = table.Row{entry.Label, strings.Join(entry.Values, ", ")}
	}
	render(table.Row{"summary", "values"}, summary)

	documents := make([]table.Row, len(report.Documents))
	for i, doc := range report.Documents {
		label := ""
		if doc.Label != nil {
			label = *doc.Label
		}
		documents[i] = table.Row{doc.Filename, label, doc.Url}
	}
	render(table.Row{"document", "label", "url"}, documents)

	if len(report.Missing) == 0 {
		fmt.Fprintln(w, "no missing fields")
		return
	}
	fmt.Fprintf(w, "missing fields: %s\n", strings.Join(report.Missing, ", "))
}

var checkCmd = &cobra.Command{
	Use:   "check <lead id or url> [--json]",
	Short: "Fetches a lead without its documents and prints what would be sent to the generator.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		scraper := createScraper(loadConfig())

		bundle, err := scraper.FetchBundle(cmd.Context(), args[0], qhare.BundleOptions{})
		if err != nil {
			serviceutil.Fatal("check-qhare error", err)
		}

		report := newCheckReport(bundle)
		if *checkJson {
			err = renderCheckJson(os.Stdout, report)
			if err != nil {
				serviceutil.Fatal("failed to encode report", err)
			}
			return
		}
		renderCheckTables(os.Stdout, report)
	},
}
