package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"

	"qhare-bridge/lib/restyutil"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

// InstrumentResty reports every request made by the client and wraps each one in a span.
// Reported urls have their secret parameters masked. If `output` is non-nil every
// exchange is also dumped into it.
func InstrumentResty(client *resty.Client, tel API, tracerName string, output restyutil.Output) {
	i := &restyInstrument{
		tel:    tel,
		tracer: otel.Tracer(tracerName),
		output: output,
	}
	client.OnBeforeRequest(i.before)
	client.OnAfterResponse(i.after)
	client.OnError(i.failed)
}

type restyInstrument struct {
	tel    API
	tracer trace.Tracer
	output restyutil.Output
	nextId atomic.Uint64
}

type exchangeKey struct{}

type exchange struct {
	id uint64
	// only used for a duration, so it does not go through chrono
	start time.Time
}

func exchangeOf(ctx context.Context) (exchange, bool) {
	ex, ok := ctx.Value(exchangeKey{}).(exchange)
	return ex, ok
}

func (i *restyInstrument) before(_ *resty.Client, req *resty.Request) error {
	ex := exchange{id: i.nextId.Add(1), start: time.Now()}

	ctx, _ := i.tracer.Start(req.Context(), "http "+req.Method)
	req.SetContext(context.WithValue(ctx, exchangeKey{}, ex))

	i.tel.ReportDebug(report_resty_request, ex.id, req.Method, restyutil.RedactUrl(req.URL))
	return nil
}

func (i *restyInstrument) after(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}
	if res.StatusCode() >= 500 {
		span.SetStatus(codes.Error, res.Status())
	}

	ex, ok := exchangeOf(ctx)
	if !ok {
		return nil
	}
	i.tel.ReportDebug(report_resty_response, ex.id, time.Since(ex.start).String(), res.Status())
	if i.output != nil {
		i.output.Write(strconv.FormatUint(ex.id, 10), restyutil.FormatHttpMessage(res))
	}
	return nil
}

func (i *restyInstrument) failed(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = restyutil.RedactUrl(urlErr.URL)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	params := []any{err, req.Method, restyutil.RedactUrl(req.URL)}
	if ex, ok := exchangeOf(ctx); ok {
		params = append(params, fmt.Sprintf("after %s", time.Since(ex.start)))
	}
	i.tel.ReportBroken(report_resty_response, params...)
}
