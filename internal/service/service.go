package service

import (
	"context"
	"encoding/json"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"qhare-bridge/internal/components/assert"
	"qhare-bridge/internal/components/telemetry"
	"qhare-bridge/internal/dpgen"
	"qhare-bridge/internal/scrapers/odoo"
	"qhare-bridge/internal/scrapers/qhare"
	"qhare-bridge/internal/scrapers/solar"
)

// QhareAPI is the lead scraping the service exposes, it is implemented by *qhare.Scraper.
//
// note: fault injection point
type QhareAPI interface {
	FetchBundle(ctx context.Context, identifier string, opts qhare.BundleOptions) (qhare.LeadBundle, error)
	FetchDocumentPreview(ctx context.Context, url string) (qhare.Preview, error)
}

// OdooAPI is implemented by *odoo.Client.
//
// note: fault injection point
type OdooAPI interface {
	ListFolder(ctx context.Context, folderUrl, cookie string) ([]odoo.Document, error)
	DownloadFile(ctx context.Context, fileUrl, cookie string) (odoo.File, error)
}

// SolarAPI is implemented by *solar.Client.
//
// note: fault injection point
type SolarAPI interface {
	DataLayers(ctx context.Context, req solar.DataLayersRequest) (json.RawMessage, error)
	BuildingInsights(ctx context.Context, location solar.Location, requiredQuality string) (json.RawMessage, error)
	GeoTiffUrl(id string) (string, error)
}

// GeneratorAPI is implemented by *dpgen.Client.
//
// note: fault injection point
type GeneratorAPI interface {
	Generate(ctx context.Context, apiKey string, req dpgen.Request) (dpgen.Response, error)
}

const (
	report_qhare_lead             = "qhare.lead"
	report_qhare_generate         = "qhare.generate"
	report_qhare_document_preview = "qhare.document-preview"

	report_odoo_list_folder = "odoo.list-folder"
	report_odoo_get_file    = "odoo.get-file"

	report_solar_data              = "solar.data"
	report_solar_building_insights = "solar.building-insights"
	report_solar_geotiff           = "solar.geotiff"
)

type coreAPIs struct {
	tel telemetry.API
}

// NewCoreAPIs initializes a collection of common APIs all services need to run.
func NewCoreAPIs(options ...CoreAPIsOption) coreAPIs {
	cfg := coreAPIsConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	apis := coreAPIs{
		tel: telemetry.SlogAPI{},
	}
	if cfg.tel != nil {
		apis.tel = cfg.tel
	}

	apis.tel = telemetry.NewScopedAPI("service", apis.tel)

	return apis
}

type coreAPIsConfig struct {
	tel telemetry.API
}

type CoreAPIsOption func(cfg *coreAPIsConfig)

func WithCustomTelemetryAPI(tel telemetry.API) CoreAPIsOption {
	return func(cfg *coreAPIsConfig) {
		cfg.tel = tel
	}
}

// Service is the JSON api in front of the qhare scraper and the other upstreams.
type Service struct {
	coreAPIs

	qhare     QhareAPI
	odoo      OdooAPI
	solar     SolarAPI
	generator GeneratorAPI
}

// NewService creates a Service
func NewService(coreAPIs coreAPIs, qhare QhareAPI, odoo OdooAPI, solar SolarAPI, generator GeneratorAPI) Service {
	assert.NotNil(qhare, "qhare scraping API implementation")
	assert.NotNil(odoo, "odoo API implementation")
	assert.NotNil(solar, "solar API implementation")
	assert.NotNil(generator, "generator API implementation")

	return Service{
		coreAPIs:  coreAPIs,
		qhare:     qhare,
		odoo:      odoo,
		solar:     solar,
		generator: generator,
	}
}

// RegisterHTTP mounts every route of the service on r.
func (s Service) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", s.handleHealth)

	r.Post("/qhare/lead", s.handleLead)
	r.Post("/qhare/generate", s.handleGenerate)
	r.Post("/qhare/document_preview", s.handleDocumentPreview)

	r.Post("/list_odoo_folder", s.handleListOdooFolder)
	r.Post("/get_odoo_file", s.handleGetOdooFile)

	r.Post("/solar/data", s.handleSolarData)
	r.Post("/solar/building_insights", s.handleBuildingInsights)
	r.Post("/solar/geotiff", s.handleGeoTiff)
}

// Router returns a chi router with the standard middleware stack and every route mounted.
func (s Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	s.RegisterHTTP(r)
	return r
}
