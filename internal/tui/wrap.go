package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	tabWidth     = 4
	tabGlyph     = '→'
	newlineGlyph = '↵'
	wrongSpace   = '•'
)

type breakKind int

const (
	breakNone breakKind = iota
	breakSpace
	breakNewline
)

// cell is one prompt rune after styling.
type cell struct {
	text  string
	width int
	brk   breakKind
}

func breakOf(r rune) breakKind {
	switch r {
	case ' ', '\t':
		return breakSpace
	case '\n':
		return breakNewline
	default:
		return breakNone
	}
}

type span struct {
	start, end int
}

// wordSpans returns the [start, end) ranges of the runs between whitespace.
func wordSpans(prompt []rune) []span {
	var spans []span
	start := -1
	for i, r := range prompt {
		switch {
		case breakOf(r) != breakNone && start >= 0:
			spans = append(spans, span{start, i})
			start = -1
		case breakOf(r) == breakNone && start < 0:
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, span{start, len(prompt)})
	}
	return spans
}

// activeSpan is the word the cursor is in or heading to.
func activeSpan(spans []span, cursor int) (span, bool) {
	if len(spans) == 0 {
		return span{}, false
	}
	for _, s := range spans {
		if cursor < s.end {
			return s, true
		}
	}
	return spans[len(spans)-1], true
}

// styleCells colours the prompt against what has been typed so far.
func styleCells(prompt, typed []rune, cursor int) []cell {
	word, hasWord := activeSpan(wordSpans(prompt), cursor)
	cells := make([]cell, len(prompt))
	for i, want := range prompt {
		shown := want
		style := pendingStyle
		switch {
		case i < len(typed) && typed[i] == want:
			style = correctStyle
		case i < len(typed):
			style = incorrectStyle
			if want == ' ' {
				shown = wrongSpace
			}
		case hasWord && breakOf(want) == breakNone && i >= word.start && i < word.end:
			style = currentWordStyle
		}
		if i == cursor && i >= len(typed) {
			style = style.Underline(true)
		}
		cells[i] = newCell(want, shown, style)
	}
	return cells
}

func newCell(want, shown rune, style lipgloss.Style) cell {
	switch want {
	case '\t':
		if shown == '\t' {
			shown = tabGlyph
		}
		pad := strings.Repeat(" ", tabWidth-runewidth.RuneWidth(shown))
		return cell{text: style.Render(string(shown) + pad), width: tabWidth, brk: breakSpace}
	case '\n':
		if shown == '\n' {
			shown = newlineGlyph
		}
		return cell{text: style.Render(string(shown)), width: runewidth.RuneWidth(shown), brk: breakNewline}
	default:
		return cell{text: style.Render(string(shown)), width: runewidth.RuneWidth(shown), brk: breakOf(want)}
	}
}

// chunk is a word followed by the whitespace after it.
type chunk struct {
	word []cell
	gap  []cell
}

func chunks(cells []cell) []chunk {
	var out []chunk
	var cur chunk
	for _, c := range cells {
		if c.brk == breakNone && len(cur.gap) > 0 {
			out = append(out, cur)
			cur = chunk{}
		}
		if c.brk == breakNone {
			cur.word = append(cur.word, c)
		} else {
			cur.gap = append(cur.gap, c)
		}
	}
	if len(cur.word) > 0 || len(cur.gap) > 0 {
		out = append(out, cur)
	}
	return out
}

func widthOf(cells []cell) int {
	total := 0
	for _, c := range cells {
		total += c.width
	}
	return total
}

// layout joins the cells into lines. Prompt newlines always end a line;
// with a positive width, words move to the next line instead of overflowing
// and words longer than width are split.
func layout(cells []cell, width int) string {
	var b strings.Builder
	col := 0
	newline := func() {
		b.WriteByte('\n')
		col = 0
	}
	overflows := func(w int) bool {
		return width > 0 && col > 0 && col+w > width
	}

	for _, ch := range chunks(cells) {
		if overflows(widthOf(ch.word)) {
			newline()
		}
		for _, c := range ch.word {
			if overflows(c.width) {
				newline()
			}
			b.WriteString(c.text)
			col += c.width
		}
		for _, c := range ch.gap {
			if c.brk != breakNewline && overflows(c.width) {
				newline()
			}
			b.WriteString(c.text)
			col += c.width
			if c.brk == breakNewline {
				newline()
			}
		}
	}
	return b.String()
}
