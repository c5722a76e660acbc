package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"qhare-bridge/internal/components/chrono"
	"qhare-bridge/internal/components/telemetry"
	"qhare-bridge/internal/config"
	"qhare-bridge/internal/scrapers/qhare"
	"qhare-bridge/lib/serviceutil"
)

var (
	configPath *string
	verbose    *bool
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The path to a config file.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logs.")
}

var rootCmd = &cobra.Command{
	Use:   "qhare-cli",
	Short: "qhare-cli checks qhare scraping and handles lead documents from the command line.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

func createScraper(cfg config.Config) *qhare.Scraper {
	tel := telemetry.SlogAPI{}
	output, err := cfg.DumpOutput("qhare")
	if err != nil {
		serviceutil.Fatal("failed to create dump output", err)
	}
	session, err := qhare.NewSession(cfg.SessionOptions(output), chrono.NewStandardTime(), tel)
	if err != nil {
		serviceutil.Fatal("failed to initialize qhare session", err)
	}
	return qhare.NewScraper(session, cfg.ScraperOptions(), tel)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
