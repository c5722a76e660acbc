// session.go owns the authenticated http session against the portal, everything that
// needs to be logged in goes through a Session.

package qhare

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"qhare-bridge/internal/components/assert"
	"qhare-bridge/internal/components/chrono"
	"qhare-bridge/internal/components/telemetry"
	"qhare-bridge/lib/restyutil"
)

const (
	report_session_login        = "session.login"
	report_session_fetch_page   = "session.fetch-page"
	report_session_fetch_binary = "session.fetch-binary"
)

const (
	DefaultBaseUrl        = "https://qhare.fr"
	DefaultSignInPath     = "/users/sign_in"
	DefaultReauthInterval = time.Minute * 10
	DefaultTimeout        = time.Second * 30
	DefaultUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	acceptHtml = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// the portal is a devise app that accepts either name for the identifier
var identifierFields = []string{"user[login]", "user[email]"}

const secretField = "user[password]"

type Credentials struct {
	Identifier string
	Secret     string
}

type SessionOptions struct {
	BaseUrl     string
	Credentials Credentials
	UserAgent   string
	SignInPath  string
	// ReauthInterval is how long a successful login is trusted before logging in again.
	ReauthInterval time.Duration
	Timeout        time.Duration
	// RequestsPerSecond limits the requests sent to the portal, 0 disables the limit.
	RequestsPerSecond float64
	CloudflareBypass  bool
	// Output, if non-nil, receives a dump of every http message.
	Output restyutil.Output
}

// Session is the logged in state of one portal account. It is safe for concurrent use,
// concurrent logins are collapsed into a single round-trip.
type Session struct {
	BaseUrl *url.URL
	Http    *resty.Client

	credentials    Credentials
	signInPath     string
	reauthInterval time.Duration
	timeout        time.Duration

	time chrono.TimeAPI
	tel  telemetry.API

	mu                  sync.Mutex
	lastAuthenticatedAt time.Time
	logins              singleflight.Group
}

func NewSession(opts SessionOptions, time chrono.TimeAPI, tel telemetry.API) (*Session, error) {
	assert.NotNil(time, "time")
	assert.NotNil(tel, "tel")

	tel = telemetry.NewScopedAPI("qhare", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.SignInPath == "" {
		opts.SignInPath = DefaultSignInPath
	}
	if opts.ReauthInterval <= 0 {
		opts.ReauthInterval = DefaultReauthInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("qhare: parse base url: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("User-Agent", opts.UserAgent)
	httpClient.SetHeader("Accept", acceptHtml)
	// active storage links redirect to the blob service, which lives on another host
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	httpClient.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 2)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, "qhare/http", opts.Output)

	return &Session{
		BaseUrl:        baseUrl,
		Http:           httpClient,
		credentials:    opts.Credentials,
		signInPath:     opts.SignInPath,
		reauthInterval: opts.ReauthInterval,
		timeout:        opts.Timeout,
		time:           time,
		tel:            tel,
	}, nil
}

// LastAuthenticatedAt returns when the last successful login started, zero if never.
func (s *Session) LastAuthenticatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuthenticatedAt
}

func (s *Session) fresh(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAuthenticatedAt.IsZero() {
		return false
	}
	return now.Sub(s.lastAuthenticatedAt) < s.reauthInterval
}

// EnsureAuthenticated logs in unless the last successful login is younger than the
// re-auth interval, `force` always logs in.
//
// The shared login is not bound to the context of the caller that started it, a caller
// whose ctx ends stops waiting but the others still get the login's result.
func (s *Session) EnsureAuthenticated(ctx context.Context, force bool) error {
	if s.credentials.Identifier == "" || s.credentials.Secret == "" {
		return ErrConfiguration
	}
	if !force && s.fresh(s.time.Now()) {
		return nil
	}

	result := s.logins.DoChan("login", func() (any, error) {
		// another caller may have finished logging in while this one waited on the group
		if !force && s.fresh(s.time.Now()) {
			return nil, nil
		}
		loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return nil, s.login(loginCtx)
	})
	select {
	case res := <-result:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) resolve(path string) string {
	return s.BaseUrl.ResolveReference(&url.URL{Path: path}).String()
}

func (s *Session) origin() string {
	return fmt.Sprintf("%s://%s", s.BaseUrl.Scheme, s.BaseUrl.Host)
}

func (s *Session) login(ctx context.Context) error {
	loginError := func(err error) error {
		return fmt.Errorf("qhare: login: %w", err)
	}

	startedAt := s.time.Now()
	loginUrl := s.resolve(s.signInPath)

	res, err := s.Http.R().
		SetContext(ctx).
		SetHeader("Referer", loginUrl).
		Get(loginUrl)
	if err != nil {
		s.tel.ReportBroken(
			report_session_login,
			fmt.Errorf("login page request: %w", err),
		)
		return loginError(err)
	}
	if res.IsError() {
		err := newUpstreamError(res)
		s.tel.ReportBroken(report_session_login, err)
		return loginError(err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		s.tel.ReportBroken(
			report_session_login,
			fmt.Errorf("parse login page: %w", err),
		)
		return loginError(err)
	}

	form := LoginForm(doc, s.signInPath)
	if _, ok := form["authenticity_token"]; !ok {
		s.tel.ReportWarning(
			report_session_login,
			fmt.Errorf("could not find an authenticity token on the login page"),
		)
	}
	for _, name := range identifierFields {
		form[name] = s.credentials.Identifier
	}
	form[secretField] = s.credentials.Secret

	res, err = s.Http.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"Origin":       s.origin(),
			"Referer":      loginUrl,
		}).
		SetFormData(form).
		Post(loginUrl)
	if err != nil {
		s.tel.ReportBroken(
			report_session_login,
			fmt.Errorf("login request: %w", err),
		)
		return loginError(err)
	}

	landedOn := finalUrl(res)
	if strings.Contains(landedOn, s.signInPath) {
		s.tel.ReportWarning(
			report_session_login,
			fmt.Errorf("still on the sign-in page after login"),
			landedOn,
			res.StatusCode(),
		)
		return ErrAuthentication
	}
	if res.IsError() {
		err := newUpstreamError(res)
		s.tel.ReportBroken(report_session_login, err)
		return loginError(err)
	}

	s.mu.Lock()
	s.lastAuthenticatedAt = startedAt
	s.mu.Unlock()

	s.tel.ReportDebug("logged in", landedOn)
	return nil
}

// finalUrl is the url of the last request in the redirect chain.
func finalUrl(res *resty.Response) string {
	if res.RawResponse != nil && res.RawResponse.Request != nil && res.RawResponse.Request.URL != nil {
		return res.RawResponse.Request.URL.String()
	}
	return res.Request.URL
}

// Page is a fetched and parsed html page.
type Page struct {
	// Url is the url that was requested, links on the page are resolved against it.
	Url      *url.URL
	Document *goquery.Document
	Fields   Fields
}

// FetchPage performs an authenticated GET and collects the form fields of the page.
// It does not log in, callers are expected to call EnsureAuthenticated first.
func (s *Session) FetchPage(ctx context.Context, target string) (Page, error) {
	pageUrl, err := s.BaseUrl.Parse(target)
	if err != nil {
		return Page{}, fmt.Errorf("qhare: parse page url: %w", err)
	}
	endpoint := pageUrl.String()

	res, err := s.Http.R().
		SetContext(ctx).
		SetHeader("Referer", endpoint).
		Get(endpoint)
	if err != nil {
		s.tel.ReportBroken(
			report_session_fetch_page,
			fmt.Errorf("fetch: %w", err),
			endpoint,
		)
		return Page{}, fmt.Errorf("qhare: fetch %s: %w", endpoint, err)
	}
	if res.StatusCode() >= 500 {
		err := newUpstreamError(res)
		s.tel.ReportBroken(report_session_fetch_page, err, endpoint)
		return Page{}, err
	}
	if res.IsError() {
		err := newUpstreamError(res)
		s.tel.ReportWarning(report_session_fetch_page, err, endpoint)
		return Page{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		s.tel.ReportBroken(
			report_session_fetch_page,
			fmt.Errorf("parse: %w", err),
			endpoint,
		)
		return Page{}, fmt.Errorf("qhare: parse %s: %w", endpoint, err)
	}

	return Page{
		Url:      pageUrl,
		Document: doc,
		Fields:   CollectFields(doc.Selection),
	}, nil
}

// FetchFields is FetchPage without the parsed document.
func (s *Session) FetchFields(ctx context.Context, target string) (Fields, error) {
	page, err := s.FetchPage(ctx, target)
	if err != nil {
		return nil, err
	}
	return page.Fields, nil
}

// Binary is the body of a non-html response.
type Binary struct {
	Mime string
	Data []byte
}

const defaultMime = "application/octet-stream"

// FetchBinary performs an authenticated GET and returns the raw body.
func (s *Session) FetchBinary(ctx context.Context, target string) (Binary, error) {
	res, err := s.Http.R().
		SetContext(ctx).
		SetHeader("Accept", "*/*").
		Get(target)
	if err != nil {
		s.tel.ReportBroken(
			report_session_fetch_binary,
			fmt.Errorf("fetch: %w", err),
			target,
		)
		return Binary{}, fmt.Errorf("qhare: fetch %s: %w", target, err)
	}
	if res.IsError() {
		err := newUpstreamError(res)
		s.tel.ReportWarning(report_session_fetch_binary, err, target)
		return Binary{}, err
	}

	mime := res.Header().Get("Content-Type")
	if mime == "" {
		mime = defaultMime
	}
	return Binary{Mime: mime, Data: res.Body()}, nil
}
