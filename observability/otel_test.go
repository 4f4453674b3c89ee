package observability

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateShortStringUnchanged(t *testing.T) {
	if got := truncate("short", maxRecordedText); got != "short" {
		t.Errorf("expected short string unchanged, got %q", got)
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	// The cut index lands mid-rune; truncate must back up to the boundary.
	s := strings.Repeat("a", maxRecordedText-1) + "日本"
	got := truncate(s, maxRecordedText)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated attribute is not valid UTF-8: %q", got)
	}
	if got != strings.Repeat("a", maxRecordedText-1)+"..." {
		t.Errorf("expected cut before the split rune, got %q", got)
	}
}
