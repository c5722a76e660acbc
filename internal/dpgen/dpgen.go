// Package dpgen is the client of the document generator, the downstream service that
// turns a lead payload into a filled in permit application.
package dpgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"

	"qhare-bridge/internal/components/assert"
	"qhare-bridge/internal/components/telemetry"
	"qhare-bridge/internal/scrapers/qhare"
	"qhare-bridge/lib/restyutil"
)

const (
	report_dpgen_generate = "generate"
	report_dpgen_breaker  = "breaker"
)

const (
	DefaultBaseUrl = "http://127.0.0.1:8000"
	DefaultTimeout = time.Minute * 2
)

var ErrMissingApiKey = errors.New("missing apiKey (X-API-Key)")

type InlineDocument struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type Request struct {
	Payload         qhare.Payload    `json:"payload"`
	InlineDocuments []InlineDocument `json:"inline_documents,omitempty"`
}

// InlineDocuments keeps the documents that were downloaded successfully.
func InlineDocuments(documents []qhare.DocumentContent) []InlineDocument {
	inline := []InlineDocument{}
	for _, doc := range documents {
		if doc.Base64 == "" {
			continue
		}
		inline = append(inline, InlineDocument{
			Filename: doc.Filename,
			Content:  doc.Base64,
		})
	}
	return inline
}

// Response is the generator's answer, whatever its status.
type Response struct {
	StatusCode int
	Body       map[string]any
}

type Options struct {
	BaseUrl string
	Timeout time.Duration
	// ConsecutiveFailures opens the breaker, 0 means 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open, 0 means 30s.
	OpenTimeout time.Duration
	Output      restyutil.Output
}

type Client struct {
	http    *resty.Client
	baseUrl string
	breaker *gobreaker.CircuitBreaker[Response]
	tel     telemetry.API
}

// serverError is a 5xx answer, it counts against the breaker but is still handed back.
type serverError struct {
	res Response
}

func (e serverError) Error() string {
	return fmt.Sprintf("dpgen: generator answered %d", e.res.StatusCode)
}

func NewClient(opts Options, tel telemetry.API) *Client {
	assert.NotNil(tel, "tel")
	tel = telemetry.NewScopedAPI("dpgen", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ConsecutiveFailures == 0 {
		opts.ConsecutiveFailures = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = time.Second * 30
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Content-Type", "application/json")
	telemetry.InstrumentResty(client, tel, "dpgen/http", opts.Output)

	breaker := gobreaker.NewCircuitBreaker[Response](gobreaker.Settings{
		Name:        "dpgen",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			tel.ReportWarning(report_dpgen_breaker, fmt.Errorf("state change %s -> %s", from, to))
		},
	})

	return &Client{
		http:    client,
		baseUrl: opts.BaseUrl,
		breaker: breaker,
		tel:     tel,
	}
}

// Generate posts the request to the generator. A non-2xx answer is not an error, its
// status and body are returned as they are.
func (c *Client) Generate(ctx context.Context, apiKey string, req Request) (Response, error) {
	if apiKey == "" {
		return Response{}, ErrMissingApiKey
	}

	res, err := c.breaker.Execute(func() (Response, error) {
		return c.generate(ctx, apiKey, req)
	})
	var server serverError
	if errors.As(err, &server) {
		return server.res, nil
	}
	if err != nil {
		c.tel.ReportBroken(report_dpgen_generate, err)
		return Response{}, err
	}
	return res, nil
}

func (c *Client) generate(ctx context.Context, apiKey string, req Request) (Response, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-API-Key", apiKey).
		SetBody(req).
		Post(c.baseUrl + "/generate")
	if err != nil {
		return Response{}, fmt.Errorf("dpgen: generate: %w", err)
	}

	body := map[string]any{}
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		return Response{}, fmt.Errorf("dpgen: generator answered %s with a body that is not a json object: %w", res.Status(), err)
	}

	out := Response{StatusCode: res.StatusCode(), Body: body}
	if res.StatusCode() >= 500 {
		return out, serverError{res: out}
	}
	return out, nil
}
