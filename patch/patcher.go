// Package patch applies line-range edit operations to files.
//
// The load-bearing invariant is descending-order application: operations
// targeting one file are sorted by start line, highest first, so that an
// edit never shifts the line numbers of an edit still pending below it.
package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/coderttxi/invoicecopilot/model"
)

// fullOverwriteMinEndLine is part of the overwrite heuristic below.
const fullOverwriteMinEndLine = 5

// IsFullOverwrite reports whether an operation should be routed to Overwrite
// instead of the splice path. An LLM that means "replace everything" starts
// at line 1 but only guesses the end line, so any operation starting at
// line 1 and spanning at least five lines is treated as a whole-file
// replacement. A plan that legitimately wants to replace only the first five
// lines of a larger file is indistinguishable from this; the heuristic is
// kept behind this single predicate so it can be revisited in one place.
func IsFullOverwrite(op model.EditOperation) bool {
	return op.StartLine == 1 && op.EndLine >= fullOverwriteMinEndLine
}

// BatchResult summarizes one ApplyPlan call.
type BatchResult struct {
	Success    bool
	Successful int
	Failed     int
	Outcomes   []model.OperationOutcome
}

// Patcher applies edit operations to files. It is safe for concurrent use:
// a per-file advisory mutex, keyed by the resolved absolute path, serializes
// batches targeting the same file.
type Patcher struct {
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Patcher. A nil logger is replaced with a no-op logger.
func New(logger *zap.Logger) *Patcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Patcher{
		logger: logger,
		locks:  map[string]*sync.Mutex{},
	}
}

// fileLock returns the advisory mutex for a path.
func (p *Patcher) fileLock(path string) *sync.Mutex {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[abs]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[abs] = lock
	}
	return lock
}

// ApplyPlan applies a batch of edit operations to one file. Operations are
// sorted by start line descending before application, and each operation is
// routed either to Overwrite (per IsFullOverwrite) or to Replace. Every
// operation's outcome is recorded; the batch succeeds only if none failed.
func (p *Patcher) ApplyPlan(path string, ops []model.EditOperation) BatchResult {
	lock := p.fileLock(path)
	lock.Lock()
	defer lock.Unlock()

	sorted := make([]model.EditOperation, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartLine > sorted[j].StartLine
	})

	result := BatchResult{}
	for _, op := range sorted {
		var ok bool
		var msg string
		if IsFullOverwrite(op) {
			p.logger.Debug("applying full overwrite",
				zap.String("path", path), zap.Int("end_line", op.EndLine))
			ok, msg = p.overwriteLocked(path, op.Replacement)
		} else {
			p.logger.Debug("applying partial edit",
				zap.String("path", path),
				zap.Int("start_line", op.StartLine), zap.Int("end_line", op.EndLine))
			ok, msg = p.replaceLocked(path, op.StartLine, op.EndLine, op.Replacement)
		}
		result.Outcomes = append(result.Outcomes, model.OperationOutcome{Success: ok, Message: msg})
		if ok {
			result.Successful++
		} else {
			result.Failed++
			p.logger.Warn("edit operation failed", zap.String("path", path), zap.String("message", msg))
		}
	}
	result.Success = result.Failed == 0
	return result
}

// Replace substitutes the inclusive 1-indexed line range [startLine, endLine]
// of a file with content. Failures of any kind are reported through the
// returned message, never as a panic or error value.
func (p *Patcher) Replace(path string, startLine, endLine int, content string) (bool, string) {
	lock := p.fileLock(path)
	lock.Lock()
	defer lock.Unlock()
	return p.replaceLocked(path, startLine, endLine, content)
}

func (p *Patcher) replaceLocked(path string, startLine, endLine int, content string) (bool, string) {
	if startLine < 1 || endLine < 1 {
		return false, "line numbers must be positive"
	}
	if startLine > endLine {
		return false, fmt.Sprintf("start line (%d) cannot be greater than end line (%d)", startLine, endLine)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing target: create it with exactly the replacement content.
			if ok, msg := writeFile(path, content); !ok {
				return false, msg
			}
			return true, fmt.Sprintf("created new file with %d lines", countLines(content))
		}
		return false, ioMessage(path, err)
	}
	if !utf8.Valid(data) {
		return false, fmt.Sprintf("cannot decode file (not text): %s", path)
	}

	lines := splitKeepEnds(string(data))
	originalCount := len(lines)

	if startLine > originalCount {
		// Past the end of the file: append, separating with a newline unless
		// the content already starts with one.
		appended := content
		if !strings.HasPrefix(appended, "\n") {
			appended = "\n" + appended
		}
		lines = append(lines, appended)
	} else {
		startIdx := startLine - 1
		endIdx := endLine
		if endIdx > originalCount {
			endIdx = originalCount
		}

		newLines := splitKeepEnds(content)
		if len(newLines) > 0 && !strings.HasSuffix(newLines[len(newLines)-1], "\n") {
			newLines[len(newLines)-1] += "\n"
		}

		spliced := make([]string, 0, len(lines)-(endIdx-startIdx)+len(newLines))
		spliced = append(spliced, lines[:startIdx]...)
		spliced = append(spliced, newLines...)
		spliced = append(spliced, lines[endIdx:]...)
		lines = spliced
	}

	joined := strings.Join(lines, "")
	if err := os.WriteFile(path, []byte(joined), 0644); err != nil {
		return false, ioMessage(path, err)
	}
	return true, fmt.Sprintf("successfully replaced content, lines: %d -> %d", originalCount, countLines(joined))
}

// Overwrite replaces a file's entire content, creating the file and any
// missing parent directories.
func (p *Patcher) Overwrite(path, content string) (bool, string) {
	lock := p.fileLock(path)
	lock.Lock()
	defer lock.Unlock()
	return p.overwriteLocked(path, content)
}

func (p *Patcher) overwriteLocked(path, content string) (bool, string) {
	if ok, msg := writeFile(path, content); !ok {
		return false, msg
	}
	return true, fmt.Sprintf("successfully wrote %d lines to file", countLines(content))
}

// writeFile writes content to path, creating parent directories as needed.
func writeFile(path, content string) (bool, string) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, ioMessage(path, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, ioMessage(path, err)
	}
	return true, ""
}

// splitKeepEnds splits s into lines, each retaining its trailing newline,
// mirroring the buffer the splice operates on.
func splitKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func countLines(s string) int {
	return len(splitKeepEnds(s))
}

// ioMessage converts an I/O error into a caller-facing message.
func ioMessage(path string, err error) string {
	switch {
	case os.IsNotExist(err):
		return fmt.Sprintf("file not found: %s", path)
	case os.IsPermission(err):
		return fmt.Sprintf("permission denied: %s", path)
	default:
		return fmt.Sprintf("error: %v", err)
	}
}
