// Package model defines shared data structures.
package model

import "time"

// Config defines practice settings.
type Config struct {
	Duration int
	Category string
}

// Prompt is a piece of target text tagged with a category.
type Prompt struct {
	ID       int64
	Category string
	Text     string
}

// User is a locally registered identity.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// SessionRecord captures a completed, persisted practice attempt.
type SessionRecord struct {
	ID              int64
	UserID          string
	WPM             int
	Accuracy        float64
	TotalTyped      int
	TotalErrors     int
	DurationSeconds int
	Category        string
	CompletedAt     time.Time
}

// HistoryFilter defines filters for history queries.
type HistoryFilter struct {
	UserID      string
	Category    string
	Since       *time.Time
	Last        int
	CurveWindow int
}
