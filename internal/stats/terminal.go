package stats

import (
	"os"

	"golang.org/x/term"
)

const fallbackWidth = 80

// TerminalWidth returns the width of the terminal behind file, or a fallback
// when file is not a terminal.
func TerminalWidth(file *os.File) int {
	if file == nil || !term.IsTerminal(int(file.Fd())) {
		return fallbackWidth
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}
