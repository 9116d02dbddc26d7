package auth

import "context"

// Provider produces a fresh Session when the current one stops
// working. Implementations may replay a captured request, read a
// cached token, or drive an interactive browser login; the engine only
// requires that a successful call returns a complete Session. Refresh
// may block for as long as the acquisition takes (it can be
// interactive) — callers pass a context if they need to bound it.
type Provider interface {
	Refresh(ctx context.Context) (*Session, error)
}
