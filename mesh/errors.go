package mesh

import "errors"

// ErrResolutionConflict indicates an attempt to record an expression
// resolution that contradicts an existing one: the same ExprId asserted
// to yield two different DataIds. This is a programmer or bootstrap bug
// (hash collision, or reasoner semantics diverging between sites) and is
// fatal to the owning site.
var ErrResolutionConflict = errors.New("conflicting expression resolution")

// ErrUnknownPeer indicates a send addressed to a SiteId outside the
// fleet's fixed membership.
var ErrUnknownPeer = errors.New("unknown peer site")

// ErrFabricClosed indicates a send on a transport that has shut down.
// The engine has no recovery path for transport failure; the owning
// site terminates.
var ErrFabricClosed = errors.New("message fabric closed")

// SiteError wraps an error with the site it occurred at.
type SiteError struct {
	// Site is the human name of the site, if known, else its id string.
	Site string

	// Op is the engine operation that failed ("add_data", "step", ...).
	Op string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	return "site " + e.Site + ": " + e.Op + ": " + e.Cause.Error()
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *SiteError) Unwrap() error {
	return e.Cause
}
