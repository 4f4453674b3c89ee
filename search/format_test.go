package search

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFormatHitsEmpty(t *testing.T) {
	if got := FormatHits(nil); got != "No results found." {
		t.Errorf("expected sentinel for no hits, got %q", got)
	}
}

func TestFormatHitsListing(t *testing.T) {
	hits := []Hit{
		{ID: "a1", Score: 0.912, Metadata: map[string]string{
			"category":          "invoices",
			"original_filename": "acme.pdf",
			"content":           "Invoice from Acme Corp",
		}},
		{ID: "b2", Score: 0.455, Metadata: map[string]string{
			"chunk_text": "fallback text field",
		}},
	}
	got := FormatHits(hits)

	if !strings.HasPrefix(got, "Found 2 results:\n") {
		t.Errorf("expected header, got %q", got)
	}
	if !strings.Contains(got, "Score: 0.912") {
		t.Errorf("expected formatted score:\n%s", got)
	}
	if !strings.Contains(got, "Category: invoices") {
		t.Errorf("expected category:\n%s", got)
	}
	if !strings.Contains(got, "File: acme.pdf") {
		t.Errorf("expected filename:\n%s", got)
	}
	// Missing metadata renders N/A; content falls back to chunk_text.
	if !strings.Contains(got, "Category: N/A") {
		t.Errorf("expected N/A category for second hit:\n%s", got)
	}
	if !strings.Contains(got, "fallback text field") {
		t.Errorf("expected chunk_text fallback:\n%s", got)
	}
}

func TestFormatHitsTruncatesContent(t *testing.T) {
	long := strings.Repeat("x", 150)
	got := FormatHits([]Hit{{ID: "a", Score: 1, Metadata: map[string]string{"content": long}}})
	if !strings.Contains(got, strings.Repeat("x", 100)+"...") {
		t.Errorf("expected truncated preview:\n%s", got)
	}
	if strings.Contains(got, strings.Repeat("x", 101)) {
		t.Errorf("preview exceeds cap:\n%s", got)
	}
}

func TestFormatHitsTruncatesAtRuneBoundary(t *testing.T) {
	// The 100-byte cut would land mid-rune; the preview must back up.
	content := strings.Repeat("x", maxDisplayedContent-1) + "éé"
	got := FormatHits([]Hit{{ID: "a", Score: 1, Metadata: map[string]string{"content": content}}})
	if !utf8.ValidString(got) {
		t.Fatalf("formatted hits are not valid UTF-8: %q", got)
	}
	if !strings.Contains(got, strings.Repeat("x", maxDisplayedContent-1)+"...") {
		t.Errorf("expected preview cut before the split rune:\n%q", got)
	}
}
