package compiler

import (
	"regexp"
	"strconv"
	"strings"
)

// ErrorRecord is one structured diagnostic extracted from a pdflatex log.
type ErrorRecord struct {
	Message string
	// Line is the 1-based source line the error points at, nil when the
	// log carried no l.<n> marker.
	Line *int
	// Context holds the source lines around Line (±3), empty without a line.
	Context string
}

var lineMarkerRe = regexp.MustCompile(`^l\.(\d+)\s`)

// ParseErrors extracts the first error from a pdflatex log. Only the first
// error is returned: repair is line-at-a-time, and secondary errors usually
// vanish once the first is fixed. Returns an empty slice when the log has no
// recognizable "!" diagnostic marker.
func ParseErrors(log, source string) []ErrorRecord {
	lines := strings.Split(log, "\n")

	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(trimmed, "!") {
			continue
		}
		message := strings.TrimSpace(strings.TrimLeft(trimmed, "!"))

		rec := ErrorRecord{Message: message}
		for j := i + 1; j < len(lines) && j < i+10; j++ {
			if m := lineMarkerRe.FindStringSubmatch(lines[j]); m != nil {
				n, err := strconv.Atoi(m[1])
				if err == nil {
					rec.Line = &n
					rec.Context = contextWindow(source, n, 3)
				}
				break
			}
		}
		return []ErrorRecord{rec}
	}

	return nil
}

// contextWindow returns the source lines around the 1-based line number.
func contextWindow(source string, line, radius int) string {
	lines := strings.Split(source, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	start := line - 1 - radius
	if start < 0 {
		start = 0
	}
	end := line + radius
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}
