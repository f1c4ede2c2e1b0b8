package middleware

import "github.com/cockroachdb/errors"

// Errors returned by the built-in interceptors when they reject a call.
var (
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrInputTooLarge = errors.New("input exceeds size limit")
	ErrUnauthorized  = errors.New("authentication required")
)
