package storage

import "haven/pkg/platform/sentinel"

var (
	// ErrNotFound keeps missing-key reporting consistent across the memory,
	// postgres, and encrypting implementations.
	ErrNotFound = sentinel.ErrNotFound
)
