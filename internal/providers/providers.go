package providers

import "github.com/stableview/stableview/internal/providers/providererr"

// ErrNoData means the provider was reachable but has no record for the
// requested key. Callers treat it as a skip, never as a run failure.
// It is the same value as providererr.ErrNoData, hoisted into a leaf
// package so the client subpackages can return it without importing this
// package (which imports them for wiring).
var ErrNoData = providererr.ErrNoData
