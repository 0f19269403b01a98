package model

import (
	"encoding/json"
	"fmt"
)

// The analytics backend historically serialized some fields twice: a value may
// arrive as a JSON array/object, or as a JSON string whose contents are the
// JSON-encoded array/object. These types decode both shapes exactly once, at
// the fetch boundary; anything else is rejected there.

// unwrap returns the raw bytes to decode: if data is a JSON string, its
// contents; otherwise data itself.
func unwrap(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	if data[0] != '"' {
		return data, nil
	}
	var inner string
	if err := json.Unmarshal(data, &inner); err != nil {
		return nil, err
	}
	return []byte(inner), nil
}

// FlexStrings is a []string that also accepts a JSON-string-encoded array.
type FlexStrings []string

func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = nil
		return nil
	}
	raw, err := unwrap(data)
	if err != nil {
		return fmt.Errorf("decode string list: %w", err)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode string list: %w", err)
	}
	*f = out
	return nil
}

// SentimentScores is the positive/neutral/negative split for an analysis.
// Accepts an object or a JSON-string-encoded object.
type SentimentScores struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

func (s *SentimentScores) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = SentimentScores{}
		return nil
	}
	raw, err := unwrap(data)
	if err != nil {
		return fmt.Errorf("decode sentiment scores: %w", err)
	}
	type plain SentimentScores
	var out plain
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode sentiment scores: %w", err)
	}
	*s = SentimentScores(out)
	return nil
}

// Comments is a []Comment that also accepts a JSON-string-encoded array.
type Comments []Comment

func (c *Comments) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = nil
		return nil
	}
	raw, err := unwrap(data)
	if err != nil {
		return fmt.Errorf("decode comments: %w", err)
	}
	var out []Comment
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode comments: %w", err)
	}
	*c = out
	return nil
}
