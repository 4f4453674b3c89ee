package patch

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// maxReadLines bounds a ranged read.
const maxReadLines = 250

// ReadNumbered reads a file and returns its content with 1-based line
// numbers prepended, the way it is fed to a prompt for context. Failures are
// reported through the returned message and success flag, never as an error
// value.
func ReadNumbered(path string) (string, bool) {
	return ReadNumberedRange(path, 0, 0)
}

// ReadNumberedRange reads an inclusive 1-indexed line range with line
// numbers prepended. A non-positive startLine or endLine reads the entire
// file. Ranged reads are capped at 250 lines.
func ReadNumberedRange(path string, startLine, endLine int) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("error: file %s does not exist", path), false
		}
		return ioMessage(path, err), false
	}
	if !utf8.Valid(data) {
		return fmt.Sprintf("cannot decode file (not text): %s", path), false
	}

	lines := splitKeepEnds(string(data))

	if startLine <= 0 || endLine <= 0 {
		var b strings.Builder
		for i, line := range lines {
			fmt.Fprintf(&b, "%d: %s", i+1, line)
		}
		return b.String(), true
	}

	if endLine < startLine {
		return "error: end line must be >= start line", false
	}
	if endLine-startLine+1 > maxReadLines {
		return fmt.Sprintf("error: cannot read more than %d lines at once", maxReadLines), false
	}
	if startLine > len(lines) {
		return fmt.Sprintf("error: start line (%d) exceeds file length (%d)", startLine, len(lines)), false
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}

	var b strings.Builder
	for i := startLine - 1; i < endLine; i++ {
		fmt.Fprintf(&b, "%d: %s", i+1, lines[i])
	}
	return b.String(), true
}
