// Package models defines the row and DTO types shared by repositories and
// services.
package models

import "time"

// User is a tenant row in the metadata store. A row is created once, at first
// provisioning, and never deleted by the gateway.
type User struct {
	UserID       string
	CreationDate time.Time
	PasswordHash *string
	Locked       *bool
}
