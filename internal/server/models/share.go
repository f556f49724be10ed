package models

import "time"

// Share operations accepted by the gateway.
const (
	ShareOpCreate = "create"
	ShareOpEdit   = "edit"
)

// ShareRecord is the ledger entry written when a user publishes a file into
// the shared container. SourceETag is the source object's entity tag at copy
// time. Rows are immutable; edits write new rows and new copies.
type ShareRecord struct {
	UUID         string
	ShareName    string
	PublicURL    string
	UserID       string
	CreationDate time.Time
	SourceETag   string
	Operation    string
}
