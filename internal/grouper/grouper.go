// =============================================================================
// Submission Merger - Submission Grouper
// =============================================================================
//
// Groups raw submission records by a category derived from their type label.
// Each category becomes one merged table ("<date> <category>").
//
// GROUPING LOGIC:
//   - Records with an empty source link are dropped before grouping.
//   - The category is the first rule whose substring occurs in the label;
//     labels matching no rule fall into the fallback category.
//   - Categories keep the order in which they were first seen, and records
//     keep their original order inside a category.
//
// The default rules check "0 FD" before "30 FD", so a label containing both
// always lands in "0 FD".
//
// =============================================================================

package grouper

import (
	"strings"

	"github.com/ginjaninja78/submission-merger/internal/config"
	"github.com/ginjaninja78/submission-merger/internal/types"
)

// Rules is an ordered category rule set plus its fallback.
type Rules struct {
	Rules    []config.CategoryRule
	Fallback string
}

// DefaultRules returns the built-in "0 FD" / "30 FD" / "Unknown" rules.
func DefaultRules() Rules {
	return Rules{
		Rules: []config.CategoryRule{
			{IfTypeContains: "0 FD", Category: "0 FD"},
			{IfTypeContains: "30 FD", Category: "30 FD"},
		},
		Fallback: "Unknown",
	}
}

// FromConfig builds Rules from the grouping section of the configuration.
func FromConfig(cfg config.GroupingConfig) Rules {
	return Rules{Rules: cfg.Rules, Fallback: cfg.Fallback}
}

// Categorize returns the category of a submission type label.
func (r Rules) Categorize(submissionType string) string {
	for _, rule := range r.Rules {
		if strings.Contains(submissionType, rule.IfTypeContains) {
			return rule.Category
		}
	}
	return r.Fallback
}

// Group is one category with its records in submission order.
type Group struct {
	Category string
	Records  []types.SubmissionRecord
}

// Groups is the ordered result of grouping.
type Groups []Group

// Categories returns the category names in first-seen order.
func (g Groups) Categories() []string {
	names := make([]string, len(g))
	for i, grp := range g {
		names[i] = grp.Category
	}
	return names
}

// Get returns the records of a category, or nil.
func (g Groups) Get(category string) []types.SubmissionRecord {
	for _, grp := range g {
		if grp.Category == category {
			return grp.Records
		}
	}
	return nil
}

// Len returns the total number of grouped records.
func (g Groups) Len() int {
	n := 0
	for _, grp := range g {
		n += len(grp.Records)
	}
	return n
}

// Group groups records by category.
//
// PARAMETERS:
//   - records: The raw submissions, in log order.
//   - rules: The category rules.
//
// RETURNS:
//   - The groups, in first-seen category order.
func (r Rules) Group(records []types.SubmissionRecord) Groups {
	groups := make(map[string][]types.SubmissionRecord)
	groupOrder := []string{} // Maintain order of first occurrence

	for _, rec := range records {
		if strings.TrimSpace(rec.SourceURL) == "" {
			continue
		}

		key := r.Categorize(rec.SubmissionType)
		if _, exists := groups[key]; !exists {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], rec)
	}

	result := make(Groups, len(groupOrder))
	for i, key := range groupOrder {
		result[i] = Group{Category: key, Records: groups[key]}
	}
	return result
}
