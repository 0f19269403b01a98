package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrAlreadyExists    = errors.New("entity already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrMissingSession   = errors.New("missing checkout session id")
	ErrVerifyExhausted  = errors.New("verification retries exhausted")
	ErrVerifyTimeout    = errors.New("verification timed out")
	ErrVerifyCancelled  = errors.New("verification cancelled")
	ErrMalformedPayload = errors.New("malformed backend payload")
	ErrRateLimited      = errors.New("rate limited")
)
