package model

import "time"

// CheckoutSession identifies a payment-provider checkout by its opaque
// session id. It is transient: nothing about it is persisted locally beyond
// the lifetime of one verification run.
type CheckoutSession struct {
	SessionID string
}

type VerificationOutcome string

const (
	OutcomeUnconfirmed      VerificationOutcome = "unconfirmed"       // webhook has not settled the session yet
	OutcomePaid             VerificationOutcome = "paid"              // settled and credited on this call
	OutcomeAlreadyProcessed VerificationOutcome = "already_processed" // settled by an earlier call
	OutcomeError            VerificationOutcome = "error"
)

// VerificationAttempt is an ephemeral record of one verify call, used for
// logging and retry decisions only.
type VerificationAttempt struct {
	Index   int // 0-based
	Outcome VerificationOutcome
	Elapsed time.Duration // since the first attempt of the run
}

// VerifyReceipt is the backend's answer for a settled checkout session.
type VerifyReceipt struct {
	TokensAdded      int64 `json:"tokens_added"`
	NewBalance       int64 `json:"new_balance"`
	AlreadyProcessed bool  `json:"already_processed"`
}
