package stringutils

import "strings"

// SplitLines splits s on "\n", dropping a single trailing empty line left by
// a final newline, and returns nil for an empty string.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
