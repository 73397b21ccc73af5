package reconcile

import (
	"strings"

	"jobsync-engine/internal/domain"
)

// Policy decides how a stored column reacts to an incoming value.
type Policy int

const (
	// Never keeps the stored value.
	Never Policy = iota
	// OverwriteIfPresent replaces the stored value only with a non-empty,
	// different one. A missing value never clears a known one.
	OverwriteIfPresent
	// OverwriteAlways takes the incoming value, empty or not.
	OverwriteAlways
)

func (p Policy) apply(stored, incoming string) (string, bool) {
	switch p {
	case OverwriteAlways:
		return incoming, incoming != stored
	case OverwriteIfPresent:
		if incoming != "" && incoming != stored {
			return incoming, true
		}
	}
	return stored, false
}

// CompanyPolicy lists the update policy of every mutable company column.
// Name is the identity and is never updated.
type CompanyPolicy struct {
	Website  Policy
	Location Policy
	Industry Policy
}

// JobPolicy lists the update policy of every mutable job column.
// PostedDate and IsEstimated are handled together by MergeJob.
type JobPolicy struct {
	URL            Policy
	EmploymentType Policy
	Experience     Policy
	Description    Policy
	SalaryRange    Policy
	Deadline       Policy
}

var (
	DefaultCompanyPolicy = CompanyPolicy{
		Website:  OverwriteIfPresent,
		Location: OverwriteIfPresent,
		Industry: OverwriteIfPresent,
	}
	DefaultJobPolicy = JobPolicy{
		URL:            OverwriteIfPresent,
		EmploymentType: OverwriteIfPresent,
		Experience:     OverwriteIfPresent,
		Description:    OverwriteIfPresent,
		SalaryRange:    Never, // not scraped yet
		Deadline:       OverwriteIfPresent,
	}
)

// MergeCompany folds incoming into existing and reports whether any stored
// column changed.
func MergeCompany(existing, incoming domain.Company) (domain.Company, bool) {
	return mergeCompanyWith(DefaultCompanyPolicy, existing, incoming)
}

func mergeCompanyWith(p CompanyPolicy, existing, incoming domain.Company) (domain.Company, bool) {
	out := existing
	var c1, c2, c3 bool
	out.Website, c1 = p.Website.apply(existing.Website, incoming.Website)
	out.Location, c2 = p.Location.apply(existing.Location, incoming.Location)
	out.Industry, c3 = p.Industry.apply(existing.Industry, incoming.Industry)
	return out, c1 || c2 || c3
}

// MergeJob folds incoming into existing and reports whether any stored
// column changed. A source-derived posted date replaces whatever is stored;
// an estimated one never replaces a stored date.
func MergeJob(existing, incoming domain.Job) (domain.Job, bool) {
	return mergeJobWith(DefaultJobPolicy, existing, incoming)
}

func mergeJobWith(p JobPolicy, existing, incoming domain.Job) (domain.Job, bool) {
	out := existing
	changed := false
	set := func(dst *string, pol Policy, stored, in string) {
		v, c := pol.apply(stored, in)
		*dst = v
		changed = changed || c
	}
	set(&out.URL, p.URL, existing.URL, incoming.URL)
	set(&out.EmploymentType, p.EmploymentType, existing.EmploymentType, incoming.EmploymentType)
	set(&out.Experience, p.Experience, existing.Experience, incoming.Experience)
	set(&out.Description, p.Description, existing.Description, incoming.Description)
	set(&out.SalaryRange, p.SalaryRange, existing.SalaryRange, incoming.SalaryRange)
	set(&out.Deadline, p.Deadline, existing.Deadline, incoming.Deadline)

	switch {
	case !incoming.IsEstimated && incoming.PostedDate != "":
		if existing.PostedDate != incoming.PostedDate || existing.IsEstimated {
			out.PostedDate = incoming.PostedDate
			out.IsEstimated = false
			changed = true
		}
	case existing.PostedDate == "":
		out.PostedDate = incoming.PostedDate
		out.IsEstimated = incoming.IsEstimated
		changed = true
	}
	return out, changed
}

// dedupeCompanies collapses records naming the same company into one
// candidate per trimmed name, in first-seen order. For each attribute the
// first non-empty value in the batch wins.
func dedupeCompanies(items []item) []domain.Company {
	idx := make(map[string]int)
	var out []domain.Company
	for _, it := range items {
		i, ok := idx[it.company]
		if !ok {
			idx[it.company] = len(out)
			out = append(out, domain.Company{Name: it.company})
			i = len(out) - 1
		}
		c := &out[i]
		fill(&c.Website, it.rec.Website)
		fill(&c.Location, it.rec.Location)
		fill(&c.Industry, it.rec.Industry)
	}
	return out
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}
