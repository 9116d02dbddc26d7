// Package auth holds the authentication artifacts a takeout download
// requires and the provider abstraction that refreshes them.
package auth

import (
	"net/textproto"
	"time"
)

// Session is the complete set of credentials for the export job's
// download endpoint: browser headers, cookies, and the rapt token that
// rides in the URL query string. A Session is built as a unit and
// replaced as a unit on refresh — there is no partial update. The
// fetcher reads it; only a Provider creates it.
type Session struct {
	headers    map[string]string
	cookies    map[string]string
	token      string
	obtainedAt time.Time
}

// NewSession builds a session from captured request artifacts. Header
// keys are canonicalized so lookups are case-insensitive.
func NewSession(headers, cookies map[string]string, token string, obtainedAt time.Time) *Session {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	c := make(map[string]string, len(cookies))
	for k, v := range cookies {
		c[k] = v
	}
	return &Session{headers: h, cookies: c, token: token, obtainedAt: obtainedAt}
}

// Token returns the rapt credential embedded in download URLs.
func (s *Session) Token() string { return s.token }

// ObtainedAt returns when the session artifacts were captured.
func (s *Session) ObtainedAt() time.Time { return s.obtainedAt }

// Header looks up a captured header by name, case-insensitively.
func (s *Session) Header(name string) (string, bool) {
	v, ok := s.headers[textproto.CanonicalMIMEHeaderKey(name)]
	return v, ok
}

// Headers returns the captured headers with canonicalized keys.
func (s *Session) Headers() map[string]string {
	out := make(map[string]string, len(s.headers))
	for k, v := range s.headers {
		out[k] = v
	}
	return out
}

// Cookies returns the captured cookies.
func (s *Session) Cookies() map[string]string {
	out := make(map[string]string, len(s.cookies))
	for k, v := range s.cookies {
		out[k] = v
	}
	return out
}

// Age returns how long ago the session was obtained.
func (s *Session) Age() time.Duration { return time.Since(s.obtainedAt) }

// IsStale reports whether the session is older than maxAge. The tokens
// carry no expiry, so this is a hint only: the engine decides staleness
// from observed auth failures, not from a timer.
func (s *Session) IsStale(maxAge time.Duration) bool {
	return maxAge > 0 && s.Age() > maxAge
}
