// Package fetch performs one authenticated download per chunk index,
// with response classification, size verification, and atomic
// publication into the output directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/takeoutools/takeoutctl/internal/archive"
	"github.com/takeoutools/takeoutctl/internal/auth"
)

// defaultBaseURL is the export service host. The full query template is
// part of the external contract and must be reproduced exactly.
const defaultBaseURL = "https://takeout.google.com"

// Kind classifies the outcome of a single fetch attempt.
type Kind int

const (
	// Success: the chunk is fully written and size-verified at its
	// final path.
	Success Kind = iota
	// NotFound: the export job has not materialized this chunk (404).
	NotFound
	// AuthFailure: the response is a sign-in page or other non-2xx
	// consistent with an expired session.
	AuthFailure
	// SizeMismatch: bytes written differ from the declared length.
	SizeMismatch
	// TransportError: network-level failure during request or copy.
	TransportError
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case NotFound:
		return "not_found"
	case AuthFailure:
		return "auth_failure"
	case SizeMismatch:
		return "size_mismatch"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of one fetch attempt. Path and Size are set
// only on Success; Err carries detail for logging on failure kinds.
type Outcome struct {
	Kind Kind
	Path string
	Size int64
	Err  error
}

// Fetcher downloads individual takeout chunks. It reads the session,
// never mutates it; classification of auth failures and the decision
// to refresh belong to the engine.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
	jobID      string

	// baseURL is overridden in tests to point at an httptest server.
	baseURL string
	// now is a seam for deterministic filenames in tests.
	now func() time.Time
}

// NewFetcher creates a fetcher for the given export job.
func NewFetcher(jobID string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   15 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
			// No overall Timeout: chunks run to many gigabytes and body
			// reads take as long as they take. Dial and header timeouts
			// above bound the hang-prone phases.
		},
		logger:  logger,
		jobID:   jobID,
		baseURL: defaultBaseURL,
		now:     time.Now,
	}
}

// url builds the download URL for an index. Query parameter names and
// order are an external contract with the service; do not reorder.
func (f *Fetcher) url(index int, token string) string {
	return fmt.Sprintf("%s/settings/takeout/download?i=%d&j=%s&download=true&rapt=%s",
		f.baseURL, index, f.jobID, token)
}

// Fetch downloads the chunk at index into destDir. The returned
// Outcome is always one of the five kinds; Fetch itself never panics
// on server misbehavior and never leaves a temp file behind on a
// non-Success outcome.
func (f *Fetcher) Fetch(ctx context.Context, index int, sess *auth.Session, destDir string) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url(index, sess.Token()), nil)
	if err != nil {
		return Outcome{Kind: TransportError, Err: fmt.Errorf("building request: %w", err)}
	}
	for name, value := range sess.Headers() {
		req.Header.Set(name, value)
	}
	for name, value := range sess.Cookies() {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Outcome{Kind: TransportError, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	// Classify before touching the body. The job's only non-auth
	// failure mode is "chunk not ready yet" (404); an HTML body is the
	// sign-in page; any other non-2xx is treated as a credential
	// problem rather than retried blind.
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Outcome{Kind: NotFound, Err: fmt.Errorf("chunk %d not materialized (404)", index)}
	case strings.Contains(resp.Header.Get("Content-Type"), "html"):
		return Outcome{Kind: AuthFailure, Err: fmt.Errorf("got HTML instead of archive (status %d)", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return Outcome{Kind: AuthFailure, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return Outcome{Kind: TransportError, Err: fmt.Errorf("creating output directory: %w", err)}
	}

	now := f.now()
	tmpPath := filepath.Join(destDir, archive.TempName(index, now))
	finalPath := filepath.Join(destDir, archive.FinalName(index, now))

	written, err := f.streamTo(tmpPath, resp.Body)
	if err != nil {
		f.removeTemp(tmpPath)
		// A stream cut short of the declared length is an integrity
		// failure, not a transport one: the transfer "worked" but the
		// bytes are incomplete.
		if resp.ContentLength > 0 && errors.Is(err, io.ErrUnexpectedEOF) {
			return Outcome{Kind: SizeMismatch, Err: fmt.Errorf("chunk %d: wrote %d bytes, expected %d: %w", index, written, resp.ContentLength, err)}
		}
		return Outcome{Kind: TransportError, Err: fmt.Errorf("streaming chunk %d: %w", index, err)}
	}

	if resp.ContentLength > 0 && written != resp.ContentLength {
		f.removeTemp(tmpPath)
		return Outcome{Kind: SizeMismatch, Err: fmt.Errorf("chunk %d: wrote %d bytes, expected %d", index, written, resp.ContentLength)}
	}

	// Rename is the publication point: the final name only ever refers
	// to a complete, verified file.
	if err := os.Rename(tmpPath, finalPath); err != nil {
		f.removeTemp(tmpPath)
		return Outcome{Kind: TransportError, Err: fmt.Errorf("finalizing chunk %d: %w", index, err)}
	}

	f.logger.Debug("chunk downloaded", "index", index, "path", finalPath, "bytes", written)
	return Outcome{Kind: Success, Path: finalPath, Size: written}
}

// streamTo copies the response body to path, syncing before close so a
// crash after rename cannot expose an unflushed final file.
func (f *Fetcher) streamTo(path string, body io.Reader) (int64, error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(out, body)
	if err != nil {
		out.Close()
		return written, err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return written, err
	}
	return written, out.Close()
}

func (f *Fetcher) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("failed to remove temp file", "path", path, "error", err)
	}
}
