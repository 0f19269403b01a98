package adapter

import (
	"context"
	"errors"
	"fmt"

	"commentiq-monitor/internal/domain/model"
)

// AnalyticsBackend is the hex port for the CommentIQ REST backend. All
// scoring, sentiment and summarization happen behind it; this side only
// reads pre-computed results and settles purchases.
type AnalyticsBackend interface {
	// FetchAnalysis returns the current state of an analysis. silent marks a
	// background refresh (poll tick) as opposed to a foreground fetch; it
	// only affects logging, never semantics.
	FetchAnalysis(ctx context.Context, id string, silent bool) (*model.Analysis, error)

	// RequestAnalysis asks the backend to (re-)analyze a video and returns
	// the freshly created analysis, normally in status pending or processing.
	RequestAnalysis(ctx context.Context, videoURL, platform string) (*model.Analysis, error)

	// VerifyCheckoutSession confirms a checkout session against the backend.
	// A not-yet-settled session is reported as an *APIError with
	// StatusCode 400 and a non-"paid" PaymentStatus.
	VerifyCheckoutSession(ctx context.Context, sessionID string) (*model.VerifyReceipt, error)

	// FetchBalance returns the authoritative token balance.
	FetchBalance(ctx context.Context) (model.TokenBalance, error)
}

// APIError is the normalized form of any non-2xx backend response. It is
// produced once, at the HTTP edge, so callers never re-parse response bodies.
type APIError struct {
	StatusCode    int    // HTTP status
	Code          string // machine-readable error code, if the backend sent one
	Message       string // human-readable message
	PaymentStatus string // body "status" field on verify errors ("pending", "paid", ...)
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("backend: %s (http %d)", e.Message, e.StatusCode)
}

// AsAPIError unwraps err into an *APIError if one is in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
