// Package solar proxies the parts of the Google Solar API used to size an installation.
package solar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"qhare-bridge/internal/components/assert"
	"qhare-bridge/internal/components/telemetry"
	"qhare-bridge/lib/restyutil"
)

const report_solar_call = "call"

const (
	DefaultBaseUrl         = "https://solar.googleapis.com/v1"
	DefaultUserAgent       = "dp-auto-pack/solar-proxy"
	DefaultRadiusMeters    = 80
	DefaultView            = "IMAGERY_AND_ANNUAL_FLUX_LAYERS"
	DefaultPixelSizeMeters = 0.25
	DefaultQuality         = "HIGH"
)

var ErrConfiguration = errors.New("solar: GOOGLE_SOLAR_API_KEY is not configured")

type Options struct {
	ApiKey  string
	BaseUrl string
	Timeout time.Duration
	Output  restyutil.Output
}

type Client struct {
	http    *resty.Client
	apiKey  string
	baseUrl string
	tel     telemetry.API
}

func NewClient(opts Options, tel telemetry.API) *Client {
	assert.NotNil(tel, "tel")
	tel = telemetry.NewScopedAPI("solar", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}

	client := resty.New()
	client.SetHeader("User-Agent", DefaultUserAgent)
	client.SetTimeout(opts.Timeout)
	telemetry.InstrumentResty(client, tel, "solar/http", opts.Output)

	return &Client{
		http:    client,
		apiKey:  opts.ApiKey,
		baseUrl: opts.BaseUrl,
		tel:     tel,
	}
}

type Location struct {
	Latitude  float64
	Longitude float64
}

type DataLayersRequest struct {
	Location Location
	// RadiusMeters, View and PixelSizeMeters take their default when zero.
	RadiusMeters    float64
	View            string
	PixelSizeMeters float64
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (c *Client) call(ctx context.Context, method string, params map[string]string) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrConfiguration
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("key", c.apiKey).
		Get(c.baseUrl + method)
	if err != nil {
		c.tel.ReportBroken(report_solar_call, err, method)
		return nil, fmt.Errorf("solar: %s: %w", method, err)
	}

	if res.IsError() {
		message := fmt.Sprintf("Solar API error %d", res.StatusCode())
		var body apiError
		if json.Unmarshal(res.Body(), &body) == nil && body.Error.Message != "" {
			message = body.Error.Message
		}
		err := errors.New(message)
		c.tel.ReportWarning(report_solar_call, err, method)
		return nil, err
	}
	if !json.Valid(res.Body()) {
		err := fmt.Errorf("solar: %s: response is not json", method)
		c.tel.ReportBroken(report_solar_call, err)
		return nil, err
	}
	return json.RawMessage(res.Body()), nil
}

// DataLayers returns the raw dataLayers:get response.
func (c *Client) DataLayers(ctx context.Context, req DataLayersRequest) (json.RawMessage, error) {
	if req.RadiusMeters == 0 {
		req.RadiusMeters = DefaultRadiusMeters
	}
	if req.View == "" {
		req.View = DefaultView
	}
	if req.PixelSizeMeters == 0 {
		req.PixelSizeMeters = DefaultPixelSizeMeters
	}
	return c.call(ctx, "/dataLayers:get", map[string]string{
		"location.latitude":  formatFloat(req.Location.Latitude),
		"location.longitude": formatFloat(req.Location.Longitude),
		"radiusMeters":       formatFloat(req.RadiusMeters),
		"view":               req.View,
		"pixelSizeMeters":    formatFloat(req.PixelSizeMeters),
	})
}

// BuildingInsights returns the raw buildingInsights:findClosest response, an empty
// quality means DefaultQuality.
func (c *Client) BuildingInsights(ctx context.Context, location Location, requiredQuality string) (json.RawMessage, error) {
	if requiredQuality == "" {
		requiredQuality = DefaultQuality
	}
	return c.call(ctx, "/buildingInsights:findClosest", map[string]string{
		"location.latitude":  formatFloat(location.Latitude),
		"location.longitude": formatFloat(location.Longitude),
		"requiredQuality":    requiredQuality,
	})
}

// GeoTiffUrl returns the download url of a geotiff layer, it embeds the api key.
func (c *Client) GeoTiffUrl(id string) (string, error) {
	if c.apiKey == "" {
		return "", ErrConfiguration
	}
	u, err := url.Parse(c.baseUrl + "/geoTiff:get")
	if err != nil {
		return "", err
	}
	query := u.Query()
	query.Set("id", id)
	query.Set("key", c.apiKey)
	u.RawQuery = query.Encode()
	return u.String(), nil
}
