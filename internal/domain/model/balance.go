package model

import "time"

// TokenBalance is the creator's spendable token counter. It is never derived
// by local arithmetic; every value comes from a backend re-fetch.
type TokenBalance struct {
	Tokens      int64     `json:"tokens"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

func (b TokenBalance) IsZero() bool { return b.RefreshedAt.IsZero() }
