package model

import "errors"

// Pipeline error taxonomy. Handlers map these onto HTTP status codes;
// everything else surfaces as an internal error.
var (
	// ErrValidation indicates missing or malformed request fields.
	ErrValidation = errors.New("invalid request")

	// ErrPayloadTooLarge indicates a source exceeding the configured size ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrSourceUnavailable indicates a remote fetch failure or timeout.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrInvalidEncoding indicates a base64 payload that does not decode.
	ErrInvalidEncoding = errors.New("invalid base64 encoding")

	// ErrNoValidPages indicates a page selection that resolves to an empty set.
	ErrNoValidPages = errors.New("no valid pages selected")

	// ErrTransformation wraps an underlying library or subprocess failure.
	ErrTransformation = errors.New("transformation failed")

	// ErrDelivery indicates a streaming or upload failure after processing succeeded.
	ErrDelivery = errors.New("delivery failed")
)
