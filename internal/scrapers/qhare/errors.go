package qhare

import (
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrConfiguration is returned when the account identifier or secret is missing.
	ErrConfiguration = errors.New("qhare: account identifier or secret is not configured")
	// ErrMissingInput is returned when a required argument is empty.
	ErrMissingInput = errors.New("missing input")
	// ErrInvalidIdentifier is returned when no lead id can be extracted from an identifier.
	ErrInvalidIdentifier = errors.New("qhare: could not find a lead id")
	// ErrAuthentication is returned when the login form submission lands back on the sign-in page.
	ErrAuthentication = errors.New("qhare: login failed (check credentials)")
)

// UpstreamError is any non-success response from the portal.
type UpstreamError struct {
	Url        string
	StatusCode int
	Status     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("qhare: fetch %s failed: %s", e.Url, e.Status)
}

func newUpstreamError(res *resty.Response) *UpstreamError {
	status := res.Status()
	if status == "" {
		status = fmt.Sprintf("%d", res.StatusCode())
	}
	return &UpstreamError{
		Url:        res.Request.URL,
		StatusCode: res.StatusCode(),
		Status:     status,
	}
}
