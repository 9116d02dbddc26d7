// Package engine drives the sequential retrieval of export chunks:
// resume-point discovery, one download per index, bounded session
// refresh on auth failure, progress persistence, and inter-request
// throttling.
//
// The engine holds no cross-process lock on the progress store or the
// output directory. Two engines pointed at the same output location
// will corrupt each other's resume logic; callers that can be invoked
// concurrently must serialize externally (e.g. a lock file).
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/takeoutools/takeoutctl/internal/archive"
	"github.com/takeoutools/takeoutctl/internal/auth"
	"github.com/takeoutools/takeoutctl/internal/fetch"
	"github.com/takeoutools/takeoutctl/internal/store"
)

// Terminal abort reasons. A run either finishes clean (nil error) or
// returns an error matching exactly one of these, wrapped with the
// failing index.
var (
	// ErrNotFound: the export job has not materialized the chunk. The
	// operator retries later; polling across readiness gaps is not the
	// engine's job.
	ErrNotFound = errors.New("chunk not available yet")
	// ErrAuthExhausted: session refresh attempts for one index hit the
	// configured bound without producing working credentials.
	ErrAuthExhausted = errors.New("session refresh attempts exhausted")
	// ErrSizeMismatch: a transfer completed with the wrong byte count.
	// Fatal for the run, safe to resume.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrTransport: network-level failure. Fatal for the run, safe to
	// resume.
	ErrTransport = errors.New("transport failure")
)

// Fetcher downloads a single chunk. Satisfied by *fetch.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, index int, sess *auth.Session, destDir string) fetch.Outcome
}

// StateStore persists retrieval progress. Satisfied by *store.Store.
type StateStore interface {
	LoadState(jobID string) (*store.State, error)
	SaveState(*store.State) error
}

// Options configures a single retrieval run.
type Options struct {
	JobID     string
	OutputDir string
	// Start is the requested first index; 0 means derive it entirely
	// from existing progress (continue mode).
	Start int
	// End is the last index to retrieve, inclusive.
	End int
	// Delay elapses between a successful chunk and the next attempt.
	Delay time.Duration
	// AuthRetries bounds consecutive session refreshes per index.
	AuthRetries int
}

// Report summarizes a finished or aborted run.
type Report struct {
	Downloaded    int
	Refreshes     int
	LastCompleted int
	Bytes         int64
}

// Engine orchestrates the retrieval loop. All collaborators are
// injected; the engine owns only the loop and the persisted state.
type Engine struct {
	fetcher  Fetcher
	provider auth.Provider
	store    StateStore
	logger   *slog.Logger

	// seams for tests
	scan  func(dir string) int
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an engine from its collaborators.
func New(fetcher Fetcher, provider auth.Provider, st StateStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		fetcher:  fetcher,
		provider: provider,
		store:    st,
		logger:   logger,
		scan:     archive.NextIndex,
		sleep:    sleepCtx,
	}
}

// Run retrieves chunks from the resume point through opts.End using
// sess for authentication, refreshing it through the provider when a
// download reports an auth failure. Exactly one download is in flight
// at any time; cancellation is checked between indices, and an
// in-flight transfer runs to completion or natural failure rather than
// being severed mid-rename.
func (e *Engine) Run(ctx context.Context, sess *auth.Session, opts Options) (*Report, error) {
	state, err := e.store.LoadState(opts.JobID)
	if err != nil {
		return nil, fmt.Errorf("loading progress: %w", err)
	}
	if state == nil {
		state = &store.State{
			JobID:     opts.JobID,
			OutputDir: opts.OutputDir,
		}
	}
	state.MaxIndex = max(state.MaxIndex, opts.End)
	state.DelaySeconds = int(opts.Delay / time.Second)

	// The starting index honors all three sources of truth: the
	// operator's request, the finalized files on disk, and the
	// persisted marker. Never revisit an index at or below a persisted
	// completion.
	start := max(opts.Start, e.scan(opts.OutputDir), state.LastCompletedIndex+1)

	report := &Report{LastCompleted: state.LastCompletedIndex}
	if start > opts.End {
		e.logger.Info("nothing to do", "start", start, "end", opts.End)
		return report, nil
	}

	e.logger.Info("starting retrieval",
		"job", opts.JobID, "start", start, "end", opts.End, "delay", opts.Delay)

	refreshes := 0 // consecutive, for the current index
	for i := start; i <= opts.End; {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("retrieval cancelled before chunk %d: %w", i, err)
		}

		e.logger.Info("downloading", "index", i)
		out := e.fetcher.Fetch(ctx, i, sess, opts.OutputDir)

		switch out.Kind {
		case fetch.Success:
			state.LastCompletedIndex = i
			if err := e.store.SaveState(state); err != nil {
				return report, fmt.Errorf("persisting progress after chunk %d: %w", i, err)
			}
			report.Downloaded++
			report.Bytes += out.Size
			report.LastCompleted = i
			refreshes = 0
			e.logger.Info("chunk complete", "index", i, "bytes", out.Size, "path", out.Path)

			if i == opts.End {
				e.logger.Info("retrieval complete", "chunks", report.Downloaded, "bytes", report.Bytes)
				return report, nil
			}
			// Throttle between requests. The delay must actually
			// elapse; only cancellation cuts it short.
			if err := e.sleep(ctx, opts.Delay); err != nil {
				return report, fmt.Errorf("retrieval cancelled while waiting after chunk %d: %w", i, err)
			}
			i++

		case fetch.AuthFailure:
			if refreshes >= opts.AuthRetries {
				e.logger.Error("session refresh bound reached", "index", i, "refreshes", refreshes)
				return report, fmt.Errorf("chunk %d: %w after %d refreshes", i, ErrAuthExhausted, refreshes)
			}
			refreshes++
			report.Refreshes++
			e.logger.Warn("session rejected, refreshing", "index", i, "attempt", refreshes, "cause", out.Err)

			fresh, err := e.provider.Refresh(ctx)
			if err != nil {
				return report, fmt.Errorf("chunk %d: %w: refresh failed: %v", i, ErrAuthExhausted, err)
			}
			sess = fresh
			// Same index, fresh credentials. The marker does not move.

		case fetch.NotFound:
			e.logger.Error("chunk not materialized", "index", i)
			return report, fmt.Errorf("chunk %d: %w", i, ErrNotFound)

		case fetch.SizeMismatch:
			e.logger.Error("size mismatch", "index", i, "cause", out.Err)
			return report, fmt.Errorf("chunk %d: %w: %v", i, ErrSizeMismatch, out.Err)

		default: // fetch.TransportError
			e.logger.Error("transport failure", "index", i, "cause", out.Err)
			return report, fmt.Errorf("chunk %d: %w: %v", i, ErrTransport, out.Err)
		}
	}

	return report, nil
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
