// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"

	"github.com/verte-zerg/codetype/internal/model"
)

// Summary aggregates a set of session records.
type Summary struct {
	Sessions    int
	AvgWPM      float64
	BestWPM     int
	AvgAccuracy float64
	TotalTyped  int
	TotalErrors int
	TotalTime   int
}

// Summarize computes averages over records.
func Summarize(records []model.SessionRecord) Summary {
	if len(records) == 0 {
		return Summary{}
	}
	var s Summary
	var wpmSum, accSum float64
	for _, r := range records {
		wpmSum += float64(r.WPM)
		accSum += r.Accuracy
		if r.WPM > s.BestWPM {
			s.BestWPM = r.WPM
		}
		s.TotalTyped += r.TotalTyped
		s.TotalErrors += r.TotalErrors
		s.TotalTime += r.DurationSeconds
	}
	s.Sessions = len(records)
	s.AvgWPM = wpmSum / float64(len(records))
	s.AvgAccuracy = accSum / float64(len(records))
	return s
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// WPMSeries extracts words per minute in record order.
func WPMSeries(records []model.SessionRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = float64(r.WPM)
	}
	return out
}

// AccuracySeries extracts accuracy percentages in record order.
func AccuracySeries(records []model.SessionRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Accuracy
	}
	return out
}

// RenderSummary prints a summary block for records.
func RenderSummary(w io.Writer, records []model.SessionRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	s := Summarize(records)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", s.Sessions),
		fmt.Sprintf("Avg WPM: %.1f", s.AvgWPM),
		fmt.Sprintf("Best WPM: %d", s.BestWPM),
		fmt.Sprintf("Avg Accuracy: %.1f%%", s.AvgAccuracy),
		fmt.Sprintf("Practice time: %s", FormatSeconds(s.TotalTime)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrends plots the WPM and accuracy moving averages within width
// columns. A width of 0 fits the terminal.
func RenderTrends(w io.Writer, records []model.SessionRecord, window, width int) error {
	if len(records) == 0 {
		return nil
	}
	series := []Series{
		{Name: "WPM", Values: MovingAverage(WPMSeries(records), window)},
		{Name: "Accuracy", Values: MovingAverage(AccuracySeries(records), window)},
	}
	plotWidth := 0
	if width > 0 {
		plotWidth = PlotWidthFor(width)
	}
	title := fmt.Sprintf("Trends (window %d)", max(window, 1))
	return PlotSeriesWithColor(w, title, series, plotWidth, defaultPlotHeight, useColor(w))
}

// FormatSeconds renders a duration in seconds as 1h2m3s style text.
func FormatSeconds(total int) string {
	if total <= 0 {
		return "0s"
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
