package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Series is a named sequence of values plotted left to right.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight = 8
	minPlotWidth      = 10
	axisTop           = "100%"
	axisMid           = "50%"
	axisBottom        = "0%"
	axisSeparator     = " │ "
	scaleNote         = "Scaled per series; see min/max below."
	colorReset        = "\x1b[0m"
)

// dash decides which dot columns of a line are drawn.
type dash struct {
	name   string
	period int
	on     int
}

func (d dash) draws(x int) bool {
	if d.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%d.period < d.on
}

var dashes = []dash{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
}

var seriesColors = []string{
	"\x1b[33m",
	"\x1b[36m",
	"\x1b[35m",
}

// Braille cells are 2 dots wide and 4 dots tall.
var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

type canvas struct {
	cells [][]uint8
}

func newCanvas(cols, rows int) *canvas {
	cells := make([][]uint8, rows)
	for i := range cells {
		cells[i] = make([]uint8, cols)
	}
	return &canvas{cells: cells}
}

func (c *canvas) dot(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	row, col := y/4, x/2
	if row >= len(c.cells) || col >= len(c.cells[row]) {
		return
	}
	c.cells[row][col] |= dotBits[x%2][y%4]
}

// line draws from (x0, y0) to (x1, y1) with Bresenham's algorithm.
func (c *canvas) line(x0, y0, x1, y1 int, d dash) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if d.draws(x0) {
			c.dot(x0, y0)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// PlotSeries renders a braille line chart of series.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	return PlotSeriesWithColor(w, title, series, width, height, false)
}

// PlotSeriesWithColor renders a braille line chart, colouring each series
// when color is set. A width of 0 fits the chart to the terminal.
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width, height int, color bool) error {
	var plotted []Series
	for _, s := range series {
		if len(s.Values) > 0 {
			plotted = append(plotted, s)
		}
	}
	if len(plotted) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(TerminalWidth(os.Stdout))
	}
	width = max(width, minPlotWidth)

	canvases := make([]*canvas, len(plotted))
	bounds := make([][2]float64, len(plotted))
	for i, s := range plotted {
		values := resample(s.Values, width)
		lo, hi := valueRange(values)
		bounds[i] = [2]float64{lo, hi}

		c := newCanvas(width, height)
		d := dashes[i%len(dashes)]
		prevX, prevY := -1, -1
		for x, v := range values {
			px, py := x*2, rowFor(v, lo, hi, height*4)
			if prevX < 0 {
				if d.draws(px) {
					c.dot(px, py)
				}
			} else {
				c.line(prevX, prevY, px, py, d)
			}
			prevX, prevY = px, py
		}
		canvases[i] = c
	}

	var lines []string
	if title != "" {
		lines = append(lines, title)
	}
	lines = append(lines, scaleNote)
	for i, s := range plotted {
		lines = append(lines, fmt.Sprintf("%s: min=%.1f max=%.1f", s.Name, bounds[i][0], bounds[i][1]))
	}
	labels := axisLabels(height)
	for row := 0; row < height; row++ {
		var b strings.Builder
		fmt.Fprintf(&b, "%*s%s", len(axisTop), labels[row], axisSeparator)
		for col := 0; col < width; col++ {
			var mask uint8
			owner := -1
			for i, c := range canvases {
				if bits := c.cells[row][col]; bits != 0 {
					mask |= bits
					if owner < 0 {
						owner = i
					}
				}
			}
			glyph := string(rune(0x2800 + int(mask)))
			if color && owner >= 0 {
				glyph = seriesColors[owner%len(seriesColors)] + glyph + colorReset
			}
			b.WriteString(glyph)
		}
		lines = append(lines, b.String())
	}
	lines = append(lines, legend(plotted, color), "")

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// PlotWidthFor returns the chart width that fits totalWidth columns
// including the axis labels.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	axis := utf8.RuneCountInString(axisTop) + utf8.RuneCountInString(axisSeparator)
	return max(totalWidth-axis, minPlotWidth)
}

func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

func axisLabels(height int) []string {
	labels := make([]string, height)
	labels[0] = axisTop
	if height > 2 {
		labels[height/2] = axisMid
	}
	if height > 1 {
		labels[height-1] = axisBottom
	}
	return labels
}

func legend(series []Series, color bool) string {
	marker := string(rune(0x2800 + int(dotBits[0][0])))
	parts := make([]string, len(series))
	for i, s := range series {
		label := fmt.Sprintf("%s %s (%s)", marker, s.Name, dashes[i%len(dashes)].name)
		if color {
			label = seriesColors[i%len(seriesColors)] + label + colorReset
		}
		parts[i] = label
	}
	return "Legend: " + strings.Join(parts, "  ")
}

// resample stretches or squeezes values to exactly width points. Squeezing
// averages buckets; stretching interpolates linearly.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			start := i * n / width
			end := max((i+1)*n/width, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		step := float64(n-1) / float64(width-1)
		for i := range out {
			pos := float64(i) * step
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

// valueRange returns min and max, widened when the series is flat.
func valueRange(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return -1, 1
	}
	if hi-lo < 1e-9 {
		return lo - 1, hi + 1
	}
	return lo, hi
}

// rowFor maps v onto dots counted from the top.
func rowFor(v, lo, hi float64, dots int) int {
	if dots <= 1 {
		return 0
	}
	pos := (v - lo) / (hi - lo)
	row := int(math.Round((1 - pos) * float64(dots-1)))
	return min(max(row, 0), dots-1)
}
