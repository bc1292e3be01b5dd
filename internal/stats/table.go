package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/codetype/internal/model"
)

// HistoryDateLayout formats session dates in history tables.
const HistoryDateLayout = "2006-01-02 15:04"

// HistoryHeaders are the columns of the session history table.
var HistoryHeaders = []string{"Date", "Category", "WPM", "Accuracy", "Duration", "Typed", "Errors"}

// HistoryRows formats records newest first.
func HistoryRows(records []model.SessionRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		rows = append(rows, []string{
			r.CompletedAt.Local().Format(HistoryDateLayout),
			r.Category,
			fmt.Sprintf("%d", r.WPM),
			fmt.Sprintf("%.1f%%", r.Accuracy),
			fmt.Sprintf("%ds", r.DurationSeconds),
			fmt.Sprintf("%d", r.TotalTyped),
			fmt.Sprintf("%d", r.TotalErrors),
		})
	}
	return rows
}

// RenderHistory prints the session history table, newest first. Lines are
// cut to width when width is positive.
func RenderHistory(w io.Writer, records []model.SessionRecord, width int) error {
	if len(records) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "History"); err != nil {
		return err
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true}
	for _, line := range formatTable(HistoryHeaders, HistoryRows(records), rightAlign) {
		if width > 0 {
			line = runewidth.Truncate(line, width, "")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	cells := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if rightAlignCols[i] {
			cells[i] = runewidth.FillLeft(cell, widths[i])
		} else {
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
	}
	return strings.Join(cells, " ")
}
