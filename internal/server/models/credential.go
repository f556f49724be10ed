package models

import "time"

// AccessCredential is a delegated, time-bounded token scoped to one tenant's
// container, granting read/write/list. Token holds the full query-string form
// ("?token=...") so it can be appended verbatim to object URLs.
//
// Rows are append-only; a crash-retried provisioning run may leave more than
// one row per tenant. Lookup returns the one with the latest start time.
type AccessCredential struct {
	ID        int64
	UserID    string
	Token     string
	StartTime time.Time
	EndTime   time.Time
}
