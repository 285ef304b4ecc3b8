package util

import (
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const defaultTerminalWidth = 100

// GetDisplayWidth calculates the display width of a string, accounting for wide runes
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// PadRight pads text with spaces to width display columns
func PadRight(text string, width int) string {
	pad := width - GetDisplayWidth(text)
	if pad <= 0 {
		return text
	}
	return text + strings.Repeat(" ", pad)
}

// PadLeft right-aligns text in width display columns
func PadLeft(text string, width int) string {
	pad := width - GetDisplayWidth(text)
	if pad <= 0 {
		return text
	}
	return strings.Repeat(" ", pad) + text
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of f, or a default when f is not a terminal
func TerminalWidth(f *os.File) int {
	if !IsTerminal(f) {
		return defaultTerminalWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultTerminalWidth
	}
	return width
}
