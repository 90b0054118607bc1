package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrUnsupportedKind     = errors.New("unsupported generation kind")
	ErrGenerationFailed    = errors.New("generation failed")
	ErrNoProviders         = errors.New("no providers configured")
	ErrJobFinished         = errors.New("job already finished")
	ErrEmptyBatch          = errors.New("batch has no items")
)
