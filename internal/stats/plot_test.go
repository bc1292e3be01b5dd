package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Progress", []Series{
		{Name: "WPM", Values: []float64{30, 35, 42, 40, 48}},
		{Name: "Accuracy", Values: []float64{90, 92, 91, 95, 97}},
	}, 12, 4)
	if err != nil {
		t.Fatalf("plot: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Progress", "Scaled per series", "WPM: min=30.0 max=48.0", "Legend:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}

	var rows []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, axisSeparator) {
			rows = append(rows, line)
		}
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 chart rows, got %d", len(rows))
	}
	for _, row := range rows {
		if got := runewidth.StringWidth(row); got != len(axisTop)+3+12 {
			t.Fatalf("unexpected row width %d: %q", got, row)
		}
	}
	// Both series start at their minimum, so the bottom-left cell is inked.
	bottom := []rune(strings.SplitN(rows[3], axisSeparator, 2)[1])
	if bottom[0] == 0x2800 {
		t.Fatalf("expected a dot in the bottom-left cell: %q", rows[3])
	}
}

func TestPlotSeriesSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "Empty", []Series{{Name: "WPM"}}, 20, 4); err != nil {
		t.Fatalf("plot: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
	if got := PlotWidthFor(8); got != minPlotWidth {
		t.Fatalf("expected min width for narrow terminal, got %d", got)
	}
	if got := PlotWidthFor(80); got != 73 {
		t.Fatalf("expected 73 columns for 80, got %d", got)
	}
}

func TestResample(t *testing.T) {
	down := resample([]float64{1, 3, 5, 7}, 2)
	if down[0] != 2 || down[1] != 6 {
		t.Fatalf("expected bucket averages, got %v", down)
	}
	up := resample([]float64{0, 10}, 3)
	if up[0] != 0 || up[1] != 5 || up[2] != 10 {
		t.Fatalf("expected interpolation, got %v", up)
	}
}
