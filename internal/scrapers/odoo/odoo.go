// Package odoo lists and downloads the files of a shared Odoo documents folder. It does not
// log in, it reuses a session cookie copied from a browser.
package odoo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"qhare-bridge/internal/components/assert"
	"qhare-bridge/internal/components/telemetry"
	"qhare-bridge/lib/htmlutil"
	"qhare-bridge/lib/restyutil"
)

const (
	report_odoo_list_folder   = "list-folder"
	report_odoo_download_file = "download-file"
)

const (
	DefaultUserAgent = "mcp-odoo-bridge/1.0"
	DefaultTimeout   = time.Second * 30

	defaultMime = "application/octet-stream"
)

// ErrInvalidUrl is returned for anything that is not an http(s) url.
var ErrInvalidUrl = errors.New("invalid url")

type Options struct {
	// DefaultCookie is sent when a call does not provide its own cookie.
	DefaultCookie string
	UserAgent     string
	Timeout       time.Duration
	Output        restyutil.Output
}

type Client struct {
	http          *resty.Client
	defaultCookie string
	tel           telemetry.API
}

func NewClient(opts Options, tel telemetry.API) *Client {
	assert.NotNil(tel, "tel")
	tel = telemetry.NewScopedAPI("odoo", tel)

	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetTimeout(opts.Timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	telemetry.InstrumentResty(client, tel, "odoo/http", opts.Output)

	return &Client{
		http:          client,
		defaultCookie: opts.DefaultCookie,
		tel:           tel,
	}
}

// Document is one file link of a folder page.
type Document struct {
	Filename string `json:"filename"`
	Url      string `json:"url"`
}

type File struct {
	Filename string
	Mime     string
	Data     []byte
}

func sanitizeUrl(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "http") {
		return "", ErrInvalidUrl
	}
	return trimmed, nil
}

func (c *Client) get(ctx context.Context, target, cookie string) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if cookie == "" {
		cookie = c.defaultCookie
	}
	if cookie != "" {
		req.SetHeader("Cookie", cookie)
	}
	return req.Get(target)
}

func finalUrl(res *resty.Response) string {
	if res.RawResponse != nil && res.RawResponse.Request != nil && res.RawResponse.Request.URL != nil {
		return res.RawResponse.Request.URL.String()
	}
	return res.Request.URL
}

// ListFolder returns the file links of a folder page, `cookie` overrides the default
// session cookie when non-empty.
func (c *Client) ListFolder(ctx context.Context, folderUrl, cookie string) ([]Document, error) {
	target, err := sanitizeUrl(folderUrl)
	if err != nil {
		return nil, err
	}

	res, err := c.get(ctx, target, cookie)
	if err != nil {
		c.tel.ReportBroken(report_odoo_list_folder, err, target)
		return nil, fmt.Errorf("odoo: list folder: %w", err)
	}
	if res.IsError() {
		err := fmt.Errorf("odoo: list folder: %s", res.Status())
		c.tel.ReportWarning(report_odoo_list_folder, err, target)
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_odoo_list_folder, fmt.Errorf("parse: %w", err), target)
		return nil, err
	}
	base, err := url.Parse(finalUrl(res))
	if err != nil {
		return nil, err
	}
	return ExtractDocuments(doc.Selection, base), nil
}

// ExtractDocuments returns every anchor linking to document content, in page order.
// Root relative links are made absolute with the origin of `base`, other links are kept
// as they are written.
func ExtractDocuments(sel *goquery.Selection, base *url.URL) []Document {
	documents := []Document{}
	sel.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		if !strings.Contains(href, "/documents/content/") && !strings.Contains(href, "/web/content/") {
			return
		}

		link := href
		if strings.HasPrefix(href, "/") {
			link = fmt.Sprintf("%s://%s%s", base.Scheme, base.Host, href)
		}
		filename := htmlutil.CleanText(s.Text())
		if filename == "" {
			filename = href[strings.LastIndex(href, "/")+1:]
		}
		documents = append(documents, Document{
			Filename: filename,
			Url:      link,
		})
	})
	return documents
}

func filenameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// DownloadFile fetches one file, its name comes from the content-disposition header or
// else the last segment of the url.
func (c *Client) DownloadFile(ctx context.Context, fileUrl, cookie string) (File, error) {
	target, err := sanitizeUrl(fileUrl)
	if err != nil {
		return File{}, err
	}

	res, err := c.get(ctx, target, cookie)
	if err != nil {
		c.tel.ReportBroken(report_odoo_download_file, err, target)
		return File{}, fmt.Errorf("odoo: download file: %w", err)
	}
	if res.IsError() {
		err := fmt.Errorf("odoo: download file: %s", res.Status())
		c.tel.ReportWarning(report_odoo_download_file, err, target)
		return File{}, err
	}

	mimeType := res.Header().Get("Content-Type")
	if mimeType == "" {
		mimeType = defaultMime
	}
	filename := filenameFromDisposition(res.Header().Get("Content-Disposition"))
	if filename == "" {
		filename = target[strings.LastIndex(target, "/")+1:]
	}

	return File{
		Filename: filename,
		Mime:     mimeType,
		Data:     res.Body(),
	}, nil
}
