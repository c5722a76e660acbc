package telemetry

import (
	"fmt"
)

// API is where components report what happened to them. Tests swap it for a recorder
// so that expected warnings and breakages can be asserted on.
//
// Report ids name the component, not the failing line: `session.login`, not
// `session.login-post-form`. They are lowercase, underscores join words of a component
// name and a dash separates a component from one of its methods. Extra detail (the http
// status, the url, the wrapped error) goes in params.
//
// note: fault injection point
type API interface {
	// ReportBroken is for failures someone has to look at: the portal changed, a request
	// could not be sent, a response could not be parsed.
	ReportBroken(id string, params ...any)
	// ReportWarning is for things worth a look that the caller already recovered from,
	// such as a malformed attribute or one document that failed to download.
	ReportWarning(id string, params ...any)
	// ReportDebug is for tracing, it is dropped unless verbose logging is on.
	ReportDebug(msg string, params ...any)
	// ReportCount records the value of a counter at this point in time. Successive
	// values are samples, not increments.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, `qhare` turns `session.login` into
// `qhare: session.login`.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
