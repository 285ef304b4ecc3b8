package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimespan(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{name: "zero", input: 0, expected: "0s"},
		{name: "seconds", input: 42.9, expected: "42s"},
		{name: "minutes", input: 185, expected: "3m 5s"},
		{name: "exactly one hour", input: 3600, expected: "1h 0m 0s"},
		{name: "hours", input: 7327, expected: "2h 2m 7s"},
		{name: "negative clamps", input: -5, expected: "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatTimespan(tt.input))
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatClock(0))
	assert.Equal(t, "01:01:01", FormatClock(3661))
	assert.Equal(t, "26:00:00", FormatClock(26*3600))
}

func TestShortenName(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxWidth   int
		exceptions []string
		expected   string
	}{
		{name: "short name unchanged", input: "code", maxWidth: 20, expected: "code"},
		{name: "long name truncated", input: "averyveryverylongprogramname", maxWidth: 10, expected: "averyveryv"},
		{name: "exception kept", input: "Other (small items)", maxWidth: 5, exceptions: []string{"Other (small items)"}, expected: "Other (small items)"},
		{name: "wide runes counted by width", input: "日本語テキスト", maxWidth: 6, expected: "日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShortenName(tt.input, tt.maxWidth, tt.exceptions...))
		})
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"chrome", "Chrome"},
		{"VISUAL studio", "Visual Studio"},
		{"code-insiders", "Code-Insiders"},
		{"steam_webhelper", "Steam_Webhelper"},
		{"abc1def", "Abc1Def"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, TitleCase(tt.input))
		})
	}
}

func TestPadding(t *testing.T) {
	assert.Equal(t, "ab   ", PadRight("ab", 5))
	assert.Equal(t, "   ab", PadLeft("ab", 5))
	assert.Equal(t, "abcdef", PadRight("abcdef", 3))
	assert.Equal(t, "日本 ", PadRight("日本", 5))
}
