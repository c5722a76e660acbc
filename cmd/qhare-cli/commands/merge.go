package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"qhare-bridge/internal/pdfmerge"
	"qhare-bridge/lib/serviceutil"
)

func init() {
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge <out.pdf> <in.pdf>...",
	Short: "Concatenates pdf files in the given order.",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		out := args[0]
		err := pdfmerge.Merge(out, args[1:])
		if err != nil {
			serviceutil.Fatal("failed to merge", err)
		}
		pages, err := pdfmerge.PageCount(out)
		if err != nil {
			serviceutil.Fatal("failed to read merged file", err)
		}
		fmt.Printf("wrote %s (%d files, %d pages)\n", out, len(args)-1, pages)
	},
}
