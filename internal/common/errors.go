// Package common defines the sentinel errors shared by the storage backends
// and the record store. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrConnection means the backing store is unreachable or misconfigured.
	// It is fatal at startup: the subsystem refuses to initialize.
	ErrConnection = errors.New("backend connection failed")

	// ErrPersistence means a single operation failed against an otherwise
	// healthy backend. The operation is all-or-nothing; nothing was committed.
	ErrPersistence = errors.New("persistence failed")

	// ErrCodec means a payload could not be serialized or deserialized.
	ErrCodec = errors.New("payload codec failed")

	// ErrNotFound is returned by lookups that matched no row/document.
	ErrNotFound = errors.New("not found")
)
