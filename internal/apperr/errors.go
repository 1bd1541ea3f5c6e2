// Package apperr holds the sentinel errors shared by services and transports.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrNotANote        = errors.New("not a markdown note")
)
