// Package apperr holds the sentinel errors shared across the wiki packages.
package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrWriteFailed = errors.New("write failed")
	ErrInvalidSlug = errors.New("invalid slug")
	ErrPageExists  = errors.New("page exists")
)
