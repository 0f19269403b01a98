//go:build !integration

package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"commentiq-monitor/internal/domain"
)

// --- Analysis Model Tests ---

func TestAnalysisStatusTerminal(t *testing.T) {
	cases := map[AnalysisStatus]bool{
		AnalysisStatusPending:    false,
		AnalysisStatusProcessing: false,
		AnalysisStatusCompleted:  true,
		AnalysisStatusFailed:     true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("Terminal(%s): expected %v, got %v", status, want, got)
		}
	}
}

func TestAnalysisValidate(t *testing.T) {
	t.Run("should accept a well-formed analysis", func(t *testing.T) {
		a := &Analysis{ID: "an_1", Status: AnalysisStatusProcessing}
		if err := a.Validate(); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
	})

	t.Run("should reject a missing id", func(t *testing.T) {
		a := &Analysis{Status: AnalysisStatusCompleted}
		if err := a.Validate(); !errors.Is(err, domain.ErrMalformedPayload) {
			t.Fatalf("expected ErrMalformedPayload, but got: %v", err)
		}
	})

	t.Run("should reject an unknown status", func(t *testing.T) {
		a := &Analysis{ID: "an_1", Status: "exploded"}
		if err := a.Validate(); !errors.Is(err, domain.ErrMalformedPayload) {
			t.Fatalf("expected ErrMalformedPayload, but got: %v", err)
		}
	})

	t.Run("should reject nil", func(t *testing.T) {
		var a *Analysis
		if err := a.Validate(); !errors.Is(err, domain.ErrMalformedPayload) {
			t.Fatalf("expected ErrMalformedPayload, but got: %v", err)
		}
	})
}

// --- Flexible Decoding Tests ---

func TestFlexStringsUnmarshal(t *testing.T) {
	t.Run("should decode a plain array", func(t *testing.T) {
		var f FlexStrings
		if err := json.Unmarshal([]byte(`["growth","retention"]`), &f); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(f) != 2 || f[0] != "growth" || f[1] != "retention" {
			t.Errorf("unexpected result: %v", f)
		}
	})

	t.Run("should decode a string-encoded array", func(t *testing.T) {
		var f FlexStrings
		if err := json.Unmarshal([]byte(`"[\"growth\",\"retention\"]"`), &f); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(f) != 2 || f[0] != "growth" || f[1] != "retention" {
			t.Errorf("unexpected result: %v", f)
		}
	})

	t.Run("should decode null as empty", func(t *testing.T) {
		f := FlexStrings{"stale"}
		if err := json.Unmarshal([]byte(`null`), &f); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if f != nil {
			t.Errorf("expected nil, got %v", f)
		}
	})

	t.Run("should reject a string that is not an encoded array", func(t *testing.T) {
		var f FlexStrings
		if err := json.Unmarshal([]byte(`"growth, retention"`), &f); err == nil {
			t.Fatal("expected an error for a non-array string, but got nil")
		}
	})

	t.Run("should reject a number", func(t *testing.T) {
		var f FlexStrings
		if err := json.Unmarshal([]byte(`42`), &f); err == nil {
			t.Fatal("expected an error, but got nil")
		}
	})
}

func TestSentimentScoresUnmarshal(t *testing.T) {
	t.Run("should decode a plain object", func(t *testing.T) {
		var s SentimentScores
		if err := json.Unmarshal([]byte(`{"positive":0.6,"neutral":0.3,"negative":0.1}`), &s); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if s.Positive != 0.6 || s.Neutral != 0.3 || s.Negative != 0.1 {
			t.Errorf("unexpected scores: %+v", s)
		}
	})

	t.Run("should decode a string-encoded object", func(t *testing.T) {
		var s SentimentScores
		if err := json.Unmarshal([]byte(`"{\"positive\":0.6,\"neutral\":0.3,\"negative\":0.1}"`), &s); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if s.Positive != 0.6 || s.Neutral != 0.3 || s.Negative != 0.1 {
			t.Errorf("unexpected scores: %+v", s)
		}
	})

	t.Run("should decode null as zero", func(t *testing.T) {
		s := SentimentScores{Positive: 1}
		if err := json.Unmarshal([]byte(`null`), &s); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if s != (SentimentScores{}) {
			t.Errorf("expected zero value, got %+v", s)
		}
	})
}

func TestCommentsUnmarshal(t *testing.T) {
	t.Run("should decode a string-encoded array of comments", func(t *testing.T) {
		var c Comments
		payload := `"[{\"author\":\"viewer1\",\"text\":\"great video\",\"likes\":12,\"posted_at\":\"2026-08-01T10:00:00Z\"}]"`
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(c) != 1 || c[0].Author != "viewer1" || c[0].Likes != 12 {
			t.Errorf("unexpected result: %+v", c)
		}
	})

	t.Run("should decode inside a full analysis payload", func(t *testing.T) {
		payload := `{
			"id": "an_1",
			"video_url": "https://youtube.com/watch?v=abc123",
			"platform": "youtube",
			"status": "completed",
			"keywords": "[\"growth\"]",
			"themes": ["pacing"],
			"sentiment_scores": "{\"positive\":0.8,\"neutral\":0.15,\"negative\":0.05}",
			"raw_comments": [{"author":"viewer1","text":"nice","likes":3,"posted_at":"2026-08-01T10:00:00Z"}],
			"comment_count": 1
		}`
		var a Analysis
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if err := a.Validate(); err != nil {
			t.Fatalf("expected valid analysis, but got: %v", err)
		}
		if len(a.Keywords) != 1 || a.Keywords[0] != "growth" {
			t.Errorf("unexpected keywords: %v", a.Keywords)
		}
		if len(a.Themes) != 1 || a.Themes[0] != "pacing" {
			t.Errorf("unexpected themes: %v", a.Themes)
		}
		if a.SentimentScores.Positive != 0.8 {
			t.Errorf("unexpected sentiment: %+v", a.SentimentScores)
		}
		if len(a.RawComments) != 1 || a.RawComments[0].Text != "nice" {
			t.Errorf("unexpected comments: %+v", a.RawComments)
		}
	})
}

// --- Monitor Model Tests ---

func TestNewMonitor(t *testing.T) {
	t.Run("should create a new monitor successfully", func(t *testing.T) {
		m, err := NewMonitor("", "https://youtube.com/watch?v=abc123", "youtube", 6*time.Hour)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if m.ID == "" {
			t.Error("expected monitor ID to be non-empty")
		}
		if !m.Active {
			t.Error("expected new monitor to be active")
		}
		if !m.Due(time.Now()) {
			t.Error("expected new monitor to be due immediately")
		}
	})

	t.Run("should trim the video url", func(t *testing.T) {
		m, err := NewMonitor("", "  https://youtube.com/watch?v=abc123  ", "youtube", time.Hour)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if m.VideoURL != "https://youtube.com/watch?v=abc123" {
			t.Errorf("expected trimmed url, got %q", m.VideoURL)
		}
	})

	t.Run("should fail with empty video url", func(t *testing.T) {
		if _, err := NewMonitor("", "   ", "youtube", time.Hour); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, but got: %v", err)
		}
	})

	t.Run("should fail with unsupported platform", func(t *testing.T) {
		if _, err := NewMonitor("", "https://example.com/v/1", "twitch", time.Hour); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, but got: %v", err)
		}
	})

	t.Run("should fail with non-positive cadence", func(t *testing.T) {
		if _, err := NewMonitor("", "https://youtube.com/watch?v=abc123", "youtube", 0); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, but got: %v", err)
		}
	})
}

func TestMonitorDue(t *testing.T) {
	now := time.Now()
	m := &Monitor{Active: true, NextRunAt: now}

	if !m.Due(now) {
		t.Error("expected monitor with NextRunAt == now to be due")
	}
	m.NextRunAt = now.Add(time.Minute)
	if m.Due(now) {
		t.Error("expected future monitor not to be due")
	}
	m.NextRunAt = now
	m.Active = false
	if m.Due(now) {
		t.Error("expected inactive monitor not to be due")
	}
}

// --- Token Balance Tests ---

func TestTokenBalanceIsZero(t *testing.T) {
	var b TokenBalance
	if !b.IsZero() {
		t.Error("expected unfetched balance to be zero")
	}
	b = TokenBalance{Tokens: 0, RefreshedAt: time.Now()}
	if b.IsZero() {
		t.Error("a fetched balance of 0 tokens is not the zero value")
	}
}
