// Package extract turns generated meeting minutes into action items.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPattern matches one numbered "Issue:" line followed by an
// "- Assigned to:" line. The assignee is a single word token; multi-word names
// are cut at the first space.
const DefaultPattern = `\d+\.\s+\*\*Issue:\*\*\s+(.*?)\s*\n\s*-\s+\*\*Assigned to:\*\*\s+([\p{L}\p{N}_]+)`

// ActionItem is one description/assignee pair destined to become an issue.
type ActionItem struct {
	Description string `json:"description"`
	Assignee    string `json:"assignee_name"`
}

// Strategy extracts action items from summary text. Implementations return an
// empty slice, not an error, when nothing matches.
type Strategy interface {
	Extract(summary string) []ActionItem
}

// PatternStrategy applies a single regular expression with two capture groups:
// description then assignee.
type PatternStrategy struct {
	re *regexp.Regexp
}

// NewPatternStrategy compiles expr. An empty expr selects DefaultPattern.
func NewPatternStrategy(expr string) (*PatternStrategy, error) {
	if strings.TrimSpace(expr) == "" {
		expr = DefaultPattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile extraction pattern: %w", err)
	}
	if re.NumSubexp() != 2 {
		return nil, fmt.Errorf("extraction pattern must have 2 capture groups, got %d", re.NumSubexp())
	}
	return &PatternStrategy{re: re}, nil
}

// Default returns the built-in strategy.
func Default() *PatternStrategy {
	return &PatternStrategy{re: regexp.MustCompile(DefaultPattern)}
}

// Extract returns matches in source order.
func (p *PatternStrategy) Extract(summary string) []ActionItem {
	matches := p.re.FindAllStringSubmatch(summary, -1)
	items := make([]ActionItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, ActionItem{
			Description: strings.TrimSpace(m[1]),
			Assignee:    strings.TrimSpace(m[2]),
		})
	}
	return items
}

var assignedLabel = regexp.MustCompile(`(?i)assigned to:`)

// Unmatched counts "Assigned to:" labels in summary that did not yield an
// item. A positive value usually means the model drifted from the expected
// layout.
func Unmatched(summary string, items []ActionItem) int {
	n := len(assignedLabel.FindAllStringIndex(summary, -1)) - len(items)
	if n < 0 {
		return 0
	}
	return n
}
