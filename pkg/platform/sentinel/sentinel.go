// Package sentinel holds the infrastructure errors that stores and upstream
// clients return. Services match them with errors.Is and translate them into
// coded domain errors; input problems never use these.
package sentinel

import "errors"

var (
	// ErrNotFound: no client, task or session under that key.
	ErrNotFound = errors.New("not found")
	// ErrExpired: a wizard session outlived its TTL.
	ErrExpired = errors.New("expired")
	// ErrUnavailable: an upstream (validation, payments) could not answer.
	ErrUnavailable = errors.New("unavailable")
)
