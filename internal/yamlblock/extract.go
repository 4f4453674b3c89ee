// Package yamlblock provides YAML extraction utilities for parsing LLM responses.
//
// LLMs asked for a structured YAML answer wrap it in different fence
// conventions, or skip the fence entirely. This package locates the block,
// decodes it, and reports which extraction strategy matched so callers can
// log it for debugging.
package yamlblock

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy names the extraction rule that located a block.
type Strategy string

const (
	// StrategyYAMLFence matched a ```yaml fenced block.
	StrategyYAMLFence Strategy = "yaml_fence"
	// StrategyYMLFence matched a ```yml fenced block.
	StrategyYMLFence Strategy = "yml_fence"
	// StrategyAnyFence matched a generic ``` fenced block.
	StrategyAnyFence Strategy = "any_fence"
	// StrategyWholeText used the entire trimmed response as the block.
	StrategyWholeText Strategy = "whole_text"
)

// Block is an extracted YAML payload and the strategy that found it.
type Block struct {
	Raw      string
	Strategy Strategy
}

// ParseError reports that no decodable YAML block could be located.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// strategies are tried in order; the first block found wins. A well-tagged
// fence is most likely the intentional one when an LLM emits several.
var strategies = []struct {
	name   Strategy
	marker string
}{
	{StrategyYAMLFence, "```yaml"},
	{StrategyYMLFence, "```yml"},
	{StrategyAnyFence, "```"},
}

// Extract locates the YAML portion of an LLM response. It tries fence
// markers in priority order and falls back to the whole trimmed text.
// Returns a ParseError if no non-empty block can be found.
func Extract(response string) (Block, error) {
	for _, s := range strategies {
		idx := strings.Index(response, s.marker)
		if idx == -1 {
			continue
		}
		rest := response[idx+len(s.marker):]
		if end := strings.Index(rest, "```"); end != -1 {
			rest = rest[:end]
		}
		raw := strings.TrimSpace(rest)
		if raw == "" {
			return Block{}, &ParseError{Msg: fmt.Sprintf("empty %s block in response", s.marker)}
		}
		return Block{Raw: raw, Strategy: s.name}, nil
	}

	raw := strings.TrimSpace(response)
	if raw == "" {
		return Block{}, &ParseError{Msg: "no YAML block found in response"}
	}
	return Block{Raw: raw, Strategy: StrategyWholeText}, nil
}

// Decode extracts the YAML block from a response and unmarshals it into out.
// Decoding failure is a ParseError carrying the underlying yaml error.
func Decode(response string, out interface{}) (Block, error) {
	block, err := Extract(response)
	if err != nil {
		return Block{}, err
	}
	if err := yaml.Unmarshal([]byte(block.Raw), out); err != nil {
		return Block{}, &ParseError{Msg: "failed to decode YAML block", Err: err}
	}
	return block, nil
}
