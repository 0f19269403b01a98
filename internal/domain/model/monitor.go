package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"commentiq-monitor/internal/domain"
)

// Monitor is a recurring-monitoring schedule for one video: every Cadence the
// service requests a fresh analysis and tracks it to completion.
type Monitor struct {
	ID             string
	VideoURL       string
	Platform       string // youtube | tiktok
	Cadence        time.Duration
	Active         bool
	LastRunAt      *time.Time
	NextRunAt      time.Time
	LastAnalysisID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewMonitor(id, videoURL, platform string, cadence time.Duration) (*Monitor, error) {
	if id == "" {
		id = uuid.NewString()
	}
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return nil, domain.ErrInvalidArgument
	}
	switch platform {
	case "youtube", "tiktok":
	default:
		return nil, domain.ErrInvalidArgument
	}
	if cadence <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Monitor{
		ID:        id,
		VideoURL:  videoURL,
		Platform:  platform,
		Cadence:   cadence,
		Active:    true,
		NextRunAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Due reports whether the monitor should run at the given instant.
func (m *Monitor) Due(now time.Time) bool {
	return m.Active && !m.NextRunAt.After(now)
}
