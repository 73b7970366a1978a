// Package common defines shared sentinel errors used across the migrator.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Container access errors.
	ErrNotFound = errors.New("not found")

	// ErrUnknownSize means a payload size could not be determined even after
	// reading the entry in full, so the item cannot be uploaded.
	ErrUnknownSize = errors.New("unknown payload size")

	// ErrRateLimited is raised when the remote service answers with
	// "too many requests". It is never retried locally: the whole run stops
	// to protect the daily quota and can be resumed later.
	ErrRateLimited = errors.New("rate limited by remote service")
)
