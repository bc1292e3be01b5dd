package session

import "github.com/verte-zerg/codetype/internal/engine"

// EventType tags outbound runner events.
type EventType string

const (
	EventPrompt  EventType = "prompt"
	EventState   EventType = "state"
	EventTick    EventType = "tick"
	EventResult  EventType = "result"
	EventLoading EventType = "loading"
)

// Event is emitted by a Runner after every state change.
type Event struct {
	Type        EventType      `json:"type"`
	Status      string         `json:"status,omitempty"`
	Category    string         `json:"category,omitempty"`
	Prompt      string         `json:"prompt,omitempty"`
	Typed       string         `json:"typed"`
	Duration    int            `json:"duration,omitempty"`
	Remaining   int            `json:"remaining"`
	TotalTyped  int            `json:"total_typed"`
	TotalErrors int            `json:"total_errors"`
	Result      *ResultPayload `json:"result,omitempty"`
}

// ResultPayload is the wire form of engine.Result.
type ResultPayload struct {
	WPM             int     `json:"wpm"`
	Accuracy        float64 `json:"accuracy"`
	TotalTyped      int     `json:"total_typed"`
	TotalErrors     int     `json:"total_errors"`
	DurationSeconds int     `json:"duration_seconds"`
	Category        string  `json:"category"`
}

func newResultPayload(res engine.Result) ResultPayload {
	return ResultPayload{
		WPM:             res.WPM,
		Accuracy:        res.Accuracy,
		TotalTyped:      res.TotalTyped,
		TotalErrors:     res.TotalErrors,
		DurationSeconds: res.DurationSeconds,
		Category:        res.Category,
	}
}
