package search

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxDisplayedContent caps the per-hit content preview.
const maxDisplayedContent = 100

// FormatHits renders hits as an aligned, human-readable listing:
// rank, id, score, category, filename, and a truncated content preview.
func FormatHits(hits []Hit) string {
	if len(hits) == 0 {
		return "No results found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results:\n", len(hits))

	for i, hit := range hits {
		category := metadataField(hit.Metadata, "category")
		filename := metadataField(hit.Metadata, "original_filename")
		content := hit.Metadata["content"]
		if content == "" {
			content = metadataField(hit.Metadata, "chunk_text")
		}
		if len(content) > maxDisplayedContent {
			// Back up to a rune boundary so the preview stays valid UTF-8.
			cut := maxDisplayedContent
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut] + "..."
		}

		fmt.Fprintf(&b, "\n%2d. ID: %-10s | Score: %.3f | Category: %-12s | File: %-20s | Text: %s",
			i+1, hit.ID, hit.Score, category, filename, content)
	}

	return b.String()
}

func metadataField(metadata map[string]string, key string) string {
	if v, ok := metadata[key]; ok && v != "" {
		return v
	}
	return "N/A"
}
