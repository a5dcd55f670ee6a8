package domain

import "errors"

// Common domain errors
var (
	// Plan errors
	ErrNoDestination = errors.New("transfer plan has no destination path")
	ErrInvalidDigest = errors.New("expected digest is not a hex SHA-256")

	// Pipeline errors
	ErrNoInputObject = errors.New("input binding has no object")

	// Transfer store errors
	ErrTransferNotFound = errors.New("transfer not found")
)
