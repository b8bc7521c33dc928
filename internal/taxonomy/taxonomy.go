package taxonomy

import (
	"slices"
	"sort"
	"strings"

	"case-reasons-training/internal/domain"
)

// DefaultSearchLimit is how many records a blank quick reference search shows.
const DefaultSearchLimit = 5

// Taxonomy is the read-only table of scenario records. It is never mutated
// after New returns, so it can be shared across sessions without locking.
type Taxonomy struct {
	records []domain.Scenario
}

// New copies records into a Taxonomy.
func New(records []domain.Scenario) *Taxonomy {
	return &Taxonomy{records: slices.Clone(records)}
}

// Len returns the number of records.
func (t *Taxonomy) Len() int { return len(t.records) }

// Records returns a copy of every record in file order.
func (t *Taxonomy) Records() []domain.Scenario {
	return slices.Clone(t.records)
}

// Scenarios returns the records that carry a description, in file order.
func (t *Taxonomy) Scenarios() []domain.Scenario {
	out := make([]domain.Scenario, 0, len(t.records))
	for _, r := range t.records {
		if r.HasDescription() {
			out = append(out, r)
		}
	}
	return out
}

// Reason1Options returns the distinct Reason 1 values, sorted.
func (t *Taxonomy) Reason1Options() []string {
	return sortedDistinct(t.records, func(r domain.Scenario) (string, bool) {
		return r.Reason1, true
	})
}

// Reason2Options returns the distinct Reason 2 values under reason1, sorted.
func (t *Taxonomy) Reason2Options(reason1 string) []string {
	return sortedDistinct(t.records, func(r domain.Scenario) (string, bool) {
		return r.Reason2, r.Reason1 == reason1
	})
}

// Reason3Options returns the distinct non-empty Reason 3 values under
// reason1/reason2 in file order.
func (t *Taxonomy) Reason3Options(reason1, reason2 string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.records {
		if r.Reason1 != reason1 || r.Reason2 != reason2 || !r.HasReason3() {
			continue
		}
		if _, ok := seen[r.Reason3]; ok {
			continue
		}
		seen[r.Reason3] = struct{}{}
		out = append(out, r.Reason3)
	}
	return out
}

// Cascade recomputes the dependent dropdowns for a partial selection. A
// selection that is no longer valid for its parent is cleared, and so is
// everything below it.
func (t *Taxonomy) Cascade(sel domain.Choice) domain.Options {
	opts := domain.Options{Placeholder: domain.Placeholder, Reason1: t.Reason1Options()}
	if !slices.Contains(opts.Reason1, sel.Reason1) {
		return opts
	}
	opts.Selected.Reason1 = sel.Reason1

	opts.Reason2 = t.Reason2Options(sel.Reason1)
	if !slices.Contains(opts.Reason2, sel.Reason2) {
		return opts
	}
	opts.Selected.Reason2 = sel.Reason2

	opts.Reason3 = t.Reason3Options(sel.Reason1, sel.Reason2)
	if slices.Contains(opts.Reason3, sel.Reason3) {
		opts.Selected.Reason3 = sel.Reason3
	}
	return opts
}

// Search matches term case-insensitively against descriptions and returns
// every match. A blank term returns the first DefaultSearchLimit records.
// A positive limit caps both cases.
func (t *Taxonomy) Search(term string, limit int) []domain.Scenario {
	term = strings.TrimSpace(term)
	if term == "" {
		if limit <= 0 {
			limit = DefaultSearchLimit
		}
		return slices.Clone(t.records[:min(limit, len(t.records))])
	}

	needle := strings.ToLower(term)
	out := []domain.Scenario{}
	for _, r := range t.records {
		if strings.Contains(strings.ToLower(r.Description), needle) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func sortedDistinct(records []domain.Scenario, pick func(domain.Scenario) (string, bool)) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		v, ok := pick(r)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
