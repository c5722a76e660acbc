package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
)

const redacted = "<redacted>"

// headers and parameters whose values never reach a dump
var (
	secretHeaders = []string{"Authorization", "Cookie", "Set-Cookie", "X-Api-Key"}
	secretParams  = []string{"key", "user[password]", "authenticity_token"}
)

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	lines := []string{}
	for _, k := range keys {
		for _, v := range headers[k] {
			if slices.Contains(secretHeaders, http.CanonicalHeaderKey(k)) {
				v = redacted
			}
			lines = append(lines, fmt.Sprintf("%s: %s", k, v))
		}
	}
	return strings.Join(lines, "\n")
}

func redactValues(values url.Values) url.Values {
	out := url.Values{}
	for k, vals := range values {
		if slices.Contains(secretParams, k) {
			out[k] = []string{redacted}
			continue
		}
		out[k] = vals
	}
	return out
}

// RedactUrl masks the secret query parameters of a url, such as api keys.
func RedactUrl(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	u.RawQuery = redactValues(u.Query()).Encode()
	return u.String()
}

func formatRequestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return "<no body>"
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("<unreadable body: %s>", err.Error())
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("<unreadable body: %s>", err.Error())
	}

	if strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		form, err := url.ParseQuery(string(data))
		if err == nil {
			return redactValues(form).Encode()
		}
	}
	return string(data)
}

func formatResponseBody(res *resty.Response) string {
	contentType := res.Header().Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "text/") || strings.Contains(contentType, "json") {
		return res.String()
	}
	return fmt.Sprintf("<%d bytes of %s>", len(res.Body()), contentType)
}

// FormatHttpMessage renders a request/response pair as plain text. Credentials (cookies,
// api keys, the login password) are masked and binary bodies are replaced by their length.
func FormatHttpMessage(res *resty.Response) string {
	var out strings.Builder

	section := func(title string, parts ...string) {
		fmt.Fprintf(&out, "---- %s ----\n", title)
		for _, part := range parts {
			out.WriteString("\n")
			out.WriteString(part)
			out.WriteString("\n")
		}
		out.WriteString("\n")
	}

	requestUrl := res.Request.URL
	requestHeaders := ""
	if res.Request.RawRequest != nil {
		requestUrl = res.Request.RawRequest.URL.String()
		requestHeaders = formatHeaders(res.Request.RawRequest.Header)
	}
	section(
		"REQUEST",
		fmt.Sprintf("%s %s", res.Request.Method, RedactUrl(requestUrl)),
		requestHeaders,
		formatRequestBody(res.Request.RawRequest),
	)

	landedOn := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		landedOn = res.RawResponse.Request.URL.String()
	}
	section(
		"RESPONSE",
		fmt.Sprintf("%d %s", res.StatusCode(), RedactUrl(landedOn)),
		formatHeaders(res.Header()),
		formatResponseBody(res),
	)

	return strings.TrimSuffix(out.String(), "\n")
}
