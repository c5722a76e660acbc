package commands

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qhare-bridge/lib/serviceutil"
)

var previewOut *string

func init() {
	previewOut = previewCmd.Flags().StringP("out", "o", "", "Write the decoded document to this file instead of printing a summary.")
	rootCmd.AddCommand(previewCmd)
}

var previewCmd = &cobra.Command{
	Use:   "preview <document url> [--out <file>]",
	Short: "Downloads one lead document through the authenticated session.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		scraper := createScraper(loadConfig())

		preview, err := scraper.FetchDocumentPreview(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to fetch document", err)
		}
		data, err := base64.StdEncoding.DecodeString(preview.Base64)
		if err != nil {
			serviceutil.Fatal("failed to decode document", err)
		}

		if *previewOut == "" {
			fmt.Printf("%s, %d bytes\n", preview.Mime, len(data))
			return
		}
		err = os.WriteFile(*previewOut, data, 0644)
		if err != nil {
			serviceutil.Fatal("failed to write document", err)
		}
		fmt.Printf("wrote %s (%s, %d bytes)\n", *previewOut, preview.Mime, len(data))
	},
}
