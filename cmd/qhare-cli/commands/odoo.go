package commands

import (
	"encoding/json"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"qhare-bridge/internal/components/telemetry"
	"qhare-bridge/internal/scrapers/odoo"
	"qhare-bridge/lib/serviceutil"
)

const defaultOdooOutDir = "./odoo_files"

var (
	odooCookie *string
	odooJson   *bool
)

func init() {
	odooCookie = odooCmd.Flags().String("cookie", "", "The session cookie, defaults to the configured one.")
	odooJson = odooCmd.Flags().Bool("json", false, "Print the result as json instead of a table.")
	rootCmd.AddCommand(odooCmd)
}

var odooCmd = &cobra.Command{
	Use:   "odoo <folder link> [out dir]",
	Short: "Downloads every document of a shared odoo folder.",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		outDir := defaultOdooOutDir
		if len(args) > 1 {
			outDir = args[1]
		}

		output, err := cfg.DumpOutput("odoo")
		if err != nil {
			serviceutil.Fatal("failed to create dump output", err)
		}
		client := odoo.NewClient(cfg.OdooOptions(output), telemetry.SlogAPI{})

		saved, err := client.DownloadFolder(cmd.Context(), args[0], outDir, *odooCookie)
		if err != nil {
			serviceutil.Fatal("failed to download folder", err)
		}

		if *odooJson {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			err = encoder.Encode(saved)
			if err != nil {
				serviceutil.Fatal("failed to encode result", err)
			}
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"file", "saved as", "bytes", "error"})
		for _, file := range saved {
			t.AppendRow(table.Row{file.Filename, file.Path, file.SizeBytes, file.Error})
		}
		t.Render()
	},
}
