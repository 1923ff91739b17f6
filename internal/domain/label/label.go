// Package label infers an item category from recognised label text.
package label

import (
	"iter"
	"strings"

	"github.com/okian/tasting/internal/domain/model"
)

// DefaultKeywords returns the category keywords in match priority order.
// Longer names come before the names they contain (純米大吟醸 before 大吟醸).
func DefaultKeywords() []model.Category {
	return model.KnownCategories()
}

// Lines yields the trimmed, non-empty lines of text in their original order,
// skipping any line already yielded. Lines are produced lazily.
func Lines(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		seen := make(map[string]struct{})
		for raw := range strings.Lines(text) {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			if _, dup := seen[line]; dup {
				continue
			}
			seen[line] = struct{}{}
			if !yield(line) {
				return
			}
		}
	}
}

// InferCategory scans lines in order and, within each line, keywords in
// priority order. It returns the first keyword contained in a line and stops
// consuming lines at that point. It returns "" when nothing matches.
func InferCategory(lines iter.Seq[string], keywords []model.Category) model.Category {
	for line := range lines {
		for _, kw := range keywords {
			if kw != "" && strings.Contains(line, string(kw)) {
				return kw
			}
		}
	}
	return ""
}

// Collect returns every line of seq.
func Collect(seq iter.Seq[string]) []string {
	out := []string{}
	for s := range seq {
		out = append(out, s)
	}
	return out
}
