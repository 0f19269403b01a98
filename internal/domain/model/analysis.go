package model

import (
	"time"

	"commentiq-monitor/internal/domain"
)

type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "pending"    // accepted, not yet picked up by the pipeline
	AnalysisStatusProcessing AnalysisStatus = "processing" // pipeline running; status is still mutating
	AnalysisStatusCompleted  AnalysisStatus = "completed"  // terminal
	AnalysisStatusFailed     AnalysisStatus = "failed"     // terminal
)

// Terminal reports whether the backend will no longer mutate this status.
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisStatusCompleted || s == AnalysisStatusFailed
}

// Analysis is the backend-owned record of one comment-analysis run for a video.
// The monitor only holds an eventually-consistent copy; the authoritative state
// always comes from the backend.
type Analysis struct {
	ID                string          `json:"id"`
	VideoURL          string          `json:"video_url"`
	Platform          string          `json:"platform"` // youtube | tiktok
	Status            AnalysisStatus  `json:"status"`
	EngagementScore   float64         `json:"engagement_score"`
	AuthenticityScore float64         `json:"authenticity_score"`
	Summary           string          `json:"summary"`
	Keywords          FlexStrings     `json:"keywords"`
	Themes            FlexStrings     `json:"themes"`
	SentimentScores   SentimentScores `json:"sentiment_scores"`
	RawComments       Comments        `json:"raw_comments"`
	CommentCount      int             `json:"comment_count"`
	Error             string          `json:"error,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (a *Analysis) Validate() error {
	if a == nil || a.ID == "" {
		return domain.ErrMalformedPayload
	}
	switch a.Status {
	case AnalysisStatusPending, AnalysisStatusProcessing, AnalysisStatusCompleted, AnalysisStatusFailed:
		return nil
	}
	return domain.ErrMalformedPayload
}

// Comment is a single normalized viewer comment carried inside an analysis.
type Comment struct {
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	Likes    int       `json:"likes"`
	PostedAt time.Time `json:"posted_at"`
}
