// Execution history rendering for LLM consumption.
//
// Information Hiding:
// - History block layout hidden behind FormatHistory

package agent

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/coderttxi/invoicecopilot/model"
)

// maxResponsePreview bounds the response excerpt shown per history entry.
// Only individual fields are truncated; the summary as a whole never is,
// because the full reasoning history is context for the next decision.
const maxResponsePreview = 200

// FormatHistory renders the accumulated action history into a textual
// summary consumable by the next LLM prompt. Returns a fixed sentinel for
// an empty history.
func FormatHistory(history []model.ActionRecord) string {
	if len(history) == 0 {
		return "No previous actions."
	}

	var b strings.Builder
	b.WriteString("\n")

	for i, action := range history {
		fmt.Fprintf(&b, "Action %d:\n", i+1)
		fmt.Fprintf(&b, "- Tool: %s\n", action.Tool)
		fmt.Fprintf(&b, "- Reason: %s\n", action.Reason)

		if len(action.Params) > 0 {
			b.WriteString("- Parameters:\n")
			for _, k := range sortedKeys(action.Params) {
				fmt.Fprintf(&b, "  - %s: %v\n", k, action.Params[k])
			}
		}

		if result := action.Result; result != nil {
			if result.Success {
				b.WriteString("- Result: Success\n")
				writeResultDetails(&b, action.Tool, result)
			} else {
				b.WriteString("- Result: Failed\n")
			}
		}

		if i < len(history)-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

// writeResultDetails appends the tool-specific rendering of a successful result.
func writeResultDetails(b *strings.Builder, tool model.Tool, result *model.ActionResult) {
	switch tool {
	case model.ToolGenerateReport:
		fmt.Fprintf(b, "- Operations: %d\n", result.Operations)
		if result.Reasoning != "" {
			fmt.Fprintf(b, "- Reasoning: %s\n", result.Reasoning)
		}
	case model.ToolAnswerQuestion, model.ToolDeflect:
		fmt.Fprintf(b, "- Request Type: %s\n", result.RequestType)
		if result.Response != "" {
			fmt.Fprintf(b, "- Response: %s\n", previewText(result.Response))
		}
	case model.ToolSearch:
		fmt.Fprintf(b, "- Hits: %d\n", result.HitCount)
		fmt.Fprintf(b, "- Query: %s\n", result.Query)
		fmt.Fprintf(b, "- Namespace: %s\n", result.Namespace)
	}
}

// previewText truncates long responses for readability. The cut backs up
// to a rune boundary so a multi-byte character is never split.
func previewText(s string) string {
	if len(s) <= maxResponsePreview {
		return s
	}
	cut := maxResponsePreview
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func sortedKeys(params model.Params) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
