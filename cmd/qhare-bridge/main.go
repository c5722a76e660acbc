package main

import (
	"context"
	"flag"
	"log/slog"
	_ "time/tzdata"

	"qhare-bridge/internal/components/chrono"
	"qhare-bridge/internal/components/telemetry"
	"qhare-bridge/internal/config"
	"qhare-bridge/internal/dpgen"
	"qhare-bridge/internal/scrapers/odoo"
	"qhare-bridge/internal/scrapers/qhare"
	"qhare-bridge/internal/scrapers/solar"
	"qhare-bridge/internal/service"
	"qhare-bridge/lib/restyutil"
	"qhare-bridge/lib/serviceutil"
)

func main() {
	configPath := flag.String("config", "config.json5", "Specify the path to a config file.")
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	cfg, err := config.Load(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if *verbose {
		cfg.Telemetry.Verbose = true
	}

	InitTelemetry(ctx, cfg.Telemetry)
	tel := telemetry.SlogAPI{}

	dump := func(name string) restyutil.Output {
		out, err := cfg.DumpOutput(name)
		if err != nil {
			serviceutil.Fatal("create dump output", err)
		}
		return out
	}

	session, err := qhare.NewSession(cfg.SessionOptions(dump("qhare")), chrono.NewStandardTime(), tel)
	if err != nil {
		serviceutil.Fatal("init qhare session", err)
	}
	scraper := qhare.NewScraper(session, cfg.ScraperOptions(), tel)

	if cfg.Qhare.KeepAlive != "" {
		location, err := cfg.Location()
		if err != nil {
			serviceutil.Fatal("load time zone", err)
		}
		cron := chrono.NewStandardCron(tel, location)
		defer cron.Stop()
		err = session.KeepAlive(cron, cfg.Qhare.KeepAlive)
		if err != nil {
			serviceutil.Fatal("schedule qhare keep-alive", err)
		}
		slog.Info("qhare keep-alive scheduled", "spec", cfg.Qhare.KeepAlive)
	}

	svc := service.NewService(
		service.NewCoreAPIs(service.WithCustomTelemetryAPI(tel)),
		scraper,
		odoo.NewClient(cfg.OdooOptions(dump("odoo")), tel),
		solar.NewClient(cfg.SolarOptions(dump("solar")), tel),
		dpgen.NewClient(cfg.GeneratorOptions(dump("dpgen")), tel),
	)

	err = serviceutil.StartHttpServer(ctx, cfg.Port, svc.Router())
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
	slog.Info("shut down")
}

// InitTelemetry configures slog and otel, the otel providers are flushed once ctx is done.
func InitTelemetry(ctx context.Context, cfg telemetry.Config) {
	telemetry.InitSlog(cfg.Verbose)
	if cfg.Verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	t, err := telemetry.Setup(ctx, "qhare-bridge", cfg)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		err := t.Shutdown(context.Background())
		if err != nil {
			slog.Error("failed to shutdown telemetry", "err", err.Error())
		}
	}()
	telemetry.InstrumentPerfStats(ctx, telemetry.SlogAPI{})
}
