// Package session implements the interactive search lifecycle behind the
// search box: debounced dispatch, cancellation of superseded searches and
// suppression of stale results.
//
// A Session moves between Idle, PendingDebounce, InFlight, Completed,
// Cancelled and Failed. Each input increments a generation counter and only
// a result whose generation is still current is ever made visible, so a slow
// search for an older query can never overwrite the results of a newer one.
package session
