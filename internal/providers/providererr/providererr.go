// Package providererr holds provider error sentinels in a leaf package so
// the provider client subpackages can share them with the parent providers
// package without an import cycle.
package providererr

import "errors"

// ErrNoData means the provider was reachable but has no record for the
// requested key. Callers treat it as a skip, never as a run failure.
var ErrNoData = errors.New("no_data")
