package domain

import "strings"

// Record is one scraped posting as handed over by a site adapter.
// Empty strings stand for missing values.
type Record struct {
	Title       string
	Company     string
	Type        string // employment type, raw
	Link        string
	Website     string
	Location    string
	Industry    string
	Experience  string
	Description string

	RawPostedDate string // pre-normalization text
	RawDeadline   string

	Tags Tags
}

// Tags is the classification of a title: one experience level and one or
// more role categories.
type Tags struct {
	Level string   `json:"level"`
	Roles []string `json:"roles"`
}

// IsZero reports whether no classification was attached.
func (t Tags) IsZero() bool {
	return strings.TrimSpace(t.Level) == "" && len(t.Roles) == 0
}

// Names returns the level and roles as normalized tag names, deduplicated,
// in first-seen order.
func (t Tags) Names() []string {
	out := make([]string, 0, len(t.Roles)+1)
	seen := make(map[string]bool, len(t.Roles)+1)
	add := func(s string) {
		n := TagName(s)
		if n == "" || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
	}
	add(t.Level)
	for _, r := range t.Roles {
		add(r)
	}
	return out
}

// TagName folds a tag to its identity form.
func TagName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
