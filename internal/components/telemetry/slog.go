package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// InitSlog sets the default slog handler, verbose enables debug reports.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

var meter = otel.Meter("qhare-bridge.telemetry")

// SlogAPI implements API with the default slog logger. Counts are also recorded on an
// otel gauge so that they reach whatever metric exporter is configured.
type SlogAPI struct{}

func attrs(id string, params []any) []any {
	out := make([]any, 0, len(params)*2+2)
	if id != "" {
		out = append(out, "id", id)
	}
	for i, p := range params {
		if err, ok := p.(error); ok {
			p = err.Error()
		}
		out = append(out, fmt.Sprintf("params.%d", i), p)
	}
	return out
}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken component", attrs(id, params)...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", attrs(id, params)...)
}

func (SlogAPI) ReportDebug(message string, params ...any) {
	slog.Debug(message, attrs("", params)...)
}

func (SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)

	gauge, err := gaugeFor(id)
	if err != nil {
		slog.Warn("no gauge for count", "id", id, "err", err.Error())
		return
	}
	gauge.Record(context.Background(), count)
}

var gauges sync.Map

// metricName turns a report id into a valid instrument name,
// `qhare: documents.failed` becomes `qhare.documents.failed`.
func metricName(id string) string {
	return strings.NewReplacer(": ", ".", " ", "_", ":", ".").Replace(id)
}

func gaugeFor(id string) (metric.Int64Gauge, error) {
	name := metricName(id)
	if gauge, ok := gauges.Load(name); ok {
		return gauge.(metric.Int64Gauge), nil
	}
	gauge, err := meter.Int64Gauge(name)
	if err != nil {
		return nil, err
	}
	gauges.Store(name, gauge)
	return gauge, nil
}
