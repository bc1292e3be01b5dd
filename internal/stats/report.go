package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/codetype/internal/model"
)

// HistorySource lists stored sessions.
type HistorySource interface {
	ListSessions(ctx context.Context, filter model.HistoryFilter) ([]model.SessionRecord, error)
}

// Report contains precomputed data for history rendering.
type Report struct {
	Records       []model.SessionRecord
	Summary       Summary
	WPMCurve      []float64
	AccuracyCurve []float64
	Window        int
}

// BuildReport loads and prepares history for rendering. Records are ordered
// oldest first.
func BuildReport(ctx context.Context, src HistorySource, filter model.HistoryFilter) (Report, error) {
	records, err := src.ListSessions(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	if filter.Last > 0 && len(records) > filter.Last {
		records = records[len(records)-filter.Last:]
	}
	return Report{
		Records:       records,
		Summary:       Summarize(records),
		WPMCurve:      MovingAverage(WPMSeries(records), filter.CurveWindow),
		AccuracyCurve: MovingAverage(AccuracySeries(records), filter.CurveWindow),
		Window:        filter.CurveWindow,
	}, nil
}

// Render writes the full plain-text report sized to width.
func (r Report) Render(w io.Writer, width int) error {
	if err := RenderSummary(w, r.Records); err != nil {
		return err
	}
	if err := RenderTrends(w, r.Records, r.Window, width); err != nil {
		return err
	}
	return RenderHistory(w, r.Records, width)
}
