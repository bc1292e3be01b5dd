package engine

import "unicode/utf8"

// KeyKind classifies a logical key event.
type KeyKind int

// Key kinds understood by the engine.
const (
	KeyOther KeyKind = iota
	KeyBackspace
	KeyTab
	KeyEnter
	KeyChar
)

// Key is a single logical key event.
type Key struct {
	Kind KeyKind
	Rune rune
}

// Backspace returns a backspace key.
func Backspace() Key { return Key{Kind: KeyBackspace} }

// Tab returns a tab key.
func Tab() Key { return Key{Kind: KeyTab} }

// Enter returns an enter key.
func Enter() Key { return Key{Kind: KeyEnter} }

// Char returns a printable character key.
func Char(r rune) Key { return Key{Kind: KeyChar, Rune: r} }

// ParseKey classifies a browser-style key name such as "Backspace", "Tab",
// "Enter" or a single printable character. Anything else is KeyOther.
func ParseKey(name string) Key {
	switch name {
	case "Backspace":
		return Backspace()
	case "Tab":
		return Tab()
	case "Enter":
		return Enter()
	}
	if utf8.RuneCountInString(name) != 1 {
		return Key{Kind: KeyOther}
	}
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return Key{Kind: KeyOther}
	}
	return Char(r)
}
