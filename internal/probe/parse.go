package probe

import (
	"strconv"
	"strings"
)

// parseWindowTitles splits script output into non-empty window titles, one
// per line.
func parseWindowTitles(output string) []string {
	var titles []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			titles = append(titles, line)
		}
	}
	return titles
}

// titlesContain reports whether any title contains pattern,
// case-insensitively.
func titlesContain(titles []string, pattern string) bool {
	p := strings.ToLower(pattern)
	for _, t := range titles {
		if strings.Contains(strings.ToLower(t), p) {
			return true
		}
	}
	return false
}

// parseCount interprets script output as a non-negative integer.
func parseCount(output string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(output))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseBool interprets AppleScript boolean output.
func parseBool(output string) (bool, bool) {
	switch strings.TrimSpace(output) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
