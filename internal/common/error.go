// Package common defines the shared error kinds used across the gateway.
// Orchestration code returns these so the transport layer can map an error
// to an HTTP status with errors.Is / errors.As instead of string inspection.
package common

import (
	"errors"
	"fmt"
)

var (
	// Client-caused errors (missing or malformed required field).
	ErrorValidation = errors.New("validation error")

	// Lookup targets that do not exist: tenant namespace, source object,
	// credential or share row.
	ErrorNotFound = errors.New("not found")

	// A resource that was supposed to be created already exists. Provisioning
	// treats this as a lost race, i.e. success for the losing caller.
	ErrorConflict = errors.New("already exists")

	// Credential token rejected (bad signature, wrong container, expired).
	ErrorInvalidCredential = errors.New("invalid credential")
)

// UpstreamError reports a failed call to one of the backing stores. Store
// names the backend ("s3" or "postgres"), Op the operation that failed, and
// Status carries the backend's own HTTP status when it has one (0 otherwise).
type UpstreamError struct {
	Store  string
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Store, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamError for the given store and operation.
func Upstream(store, op string, status int, err error) error {
	return &UpstreamError{Store: store, Op: op, Status: status, Err: err}
}
