package auth

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

var (
	headerRe = regexp.MustCompile(`-H '([^:]+): ([^']+)'`)
	cookieRe = regexp.MustCompile(`-b '([^']+)'`)
	raptRe   = regexp.MustCompile(`rapt=([^&\s']+)`)
)

// ParseCurl extracts headers, cookies, and the rapt token from a
// "Copy as cURL (bash)" capture of a working download request. The
// capture must be of a takeout download (it carries the rapt token in
// its URL); anything else is rejected rather than half-parsed.
func ParseCurl(curl string, obtainedAt time.Time) (*Session, error) {
	if !strings.Contains(curl, "takeout.google.com") {
		return nil, fmt.Errorf("not a takeout download request")
	}

	headers := map[string]string{}
	for _, m := range headerRe.FindAllStringSubmatch(curl, -1) {
		headers[m[1]] = m[2]
	}

	cookies := map[string]string{}
	if m := cookieRe.FindStringSubmatch(curl); m != nil {
		for _, pair := range strings.Split(m[1], "; ") {
			if name, value, ok := strings.Cut(pair, "="); ok {
				cookies[name] = value
			}
		}
	}

	m := raptRe.FindStringSubmatch(curl)
	if m == nil {
		return nil, fmt.Errorf("no rapt token in captured request")
	}

	return NewSession(headers, cookies, m[1], obtainedAt), nil
}

// CurlFileProvider refreshes sessions by re-reading a captured curl
// command from a file. The operator workflow: when the token expires,
// capture a fresh download request from the browser dev tools and
// overwrite the file; the next Refresh picks it up.
type CurlFileProvider struct {
	Path string
}

// Refresh parses the capture file into a new Session.
func (p *CurlFileProvider) Refresh(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("reading capture file %s: %w", p.Path, err)
	}
	sess, err := ParseCurl(string(data), time.Now())
	if err != nil {
		return nil, fmt.Errorf("parsing capture file %s: %w", p.Path, err)
	}
	return sess, nil
}
