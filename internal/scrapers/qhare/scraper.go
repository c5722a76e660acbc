package qhare

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"qhare-bridge/internal/components/assert"
	"qhare-bridge/internal/components/telemetry"
)

const (
	report_scraper_fetch_bundle = "scraper.fetch-bundle"
	report_scraper_preview      = "scraper.preview"
)

// DefaultLeadPath is the edit page of a lead, %s is the lead id.
const DefaultLeadPath = "/leads/%s/edit"

type ScraperOptions struct {
	// LeadPath is formatted with the lead id and resolved against the session's base url.
	LeadPath            string
	SummaryLabels       []string
	RequiredFields      []string
	DescriptionFallback string
}

// Scraper turns lead ids into LeadBundles using a shared Session.
type Scraper struct {
	session *Session
	opts    ScraperOptions
	tel     telemetry.API
}

func NewScraper(session *Session, opts ScraperOptions, tel telemetry.API) *Scraper {
	assert.NotNil(session, "session")
	assert.NotNil(tel, "tel")

	if opts.LeadPath == "" {
		opts.LeadPath = DefaultLeadPath
	}
	if opts.SummaryLabels == nil {
		opts.SummaryLabels = DefaultSummaryLabels
	}
	if opts.RequiredFields == nil {
		opts.RequiredFields = DefaultRequiredFields
	}

	return &Scraper{
		session: session,
		opts:    opts,
		tel:     telemetry.NewScopedAPI("qhare", tel),
	}
}

var leadIdRegex = regexp.MustCompile(`\d{4,}`)

// ParseLeadId extracts the lead id from either a bare id or a lead url, it is the first
// run of at least 4 digits.
func ParseLeadId(identifier string) (string, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return "", fmt.Errorf("leadId or leadUrl is required: %w", ErrMissingInput)
	}
	id := leadIdRegex.FindString(trimmed)
	if id == "" {
		return "", fmt.Errorf("%w in %q", ErrInvalidIdentifier, identifier)
	}
	return id, nil
}

func (s *Scraper) LeadUrl(leadId string) string {
	return s.session.resolve(fmt.Sprintf(s.opts.LeadPath, leadId))
}

// FetchBundle scrapes the lead page and normalizes it. Documents are downloaded only when
// asked to, and their failures are part of the bundle instead of being returned.
func (s *Scraper) FetchBundle(ctx context.Context, identifier string, opts BundleOptions) (LeadBundle, error) {
	leadId, err := ParseLeadId(identifier)
	if err != nil {
		return LeadBundle{}, err
	}
	err = s.session.EnsureAuthenticated(ctx, false)
	if err != nil {
		return LeadBundle{}, err
	}

	leadUrl := s.LeadUrl(leadId)
	page, err := s.session.FetchPage(ctx, leadUrl)
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode < 500 {
		// usually a lead that does not exist or is not visible to this account
		s.tel.ReportWarning(report_scraper_fetch_bundle, err, leadId)
		return LeadBundle{}, err
	}
	if err != nil {
		s.tel.ReportBroken(report_scraper_fetch_bundle, err, leadId)
		return LeadBundle{}, err
	}

	dynamic := ParseDynamicAttributes(page.Fields, s.tel)
	bundle := buildBundle(leadId, leadUrl, page.Fields, dynamic, s.opts)
	bundle.Documents = ExtractDocuments(page.Document.Selection, page.Url)

	if len(bundle.Missing) > 0 {
		s.tel.ReportDebug("lead has missing fields", leadId, bundle.Missing)
	}

	if opts.DownloadDocuments && len(bundle.Documents) > 0 {
		bundle.InlineDocuments = s.session.DownloadDocuments(ctx, bundle.Documents, opts.MaxDocuments)
	}
	return bundle, nil
}

// FetchDocumentPreview downloads a single document, errors are returned as is.
func (s *Scraper) FetchDocumentPreview(ctx context.Context, url string) (Preview, error) {
	if strings.TrimSpace(url) == "" {
		return Preview{}, fmt.Errorf("document url is required: %w", ErrMissingInput)
	}
	err := s.session.EnsureAuthenticated(ctx, false)
	if err != nil {
		return Preview{}, err
	}

	binary, err := s.session.FetchBinary(ctx, url)
	if err != nil {
		s.tel.ReportWarning(report_scraper_preview, err, url)
		return Preview{}, err
	}
	return Preview{
		Mime:   binary.Mime,
		Base64: base64.StdEncoding.EncodeToString(binary.Data),
	}, nil
}
