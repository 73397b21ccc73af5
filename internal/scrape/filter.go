package scrape

import (
	"strings"

	"jobsync-engine/internal/config"
	"jobsync-engine/internal/domain"
)

// Filter drops records before they reach the store.
type Filter struct {
	TitleBlock     []string
	LocationsBlock []string
}

func NewFilter(cfg config.Config) Filter {
	return Filter{
		TitleBlock:     lowerAll(cfg.Filters.TitleBlock),
		LocationsBlock: lowerAll(cfg.Filters.LocationsBlock),
	}
}

func lowerAll(xs []string) []string {
	var out []string
	for _, x := range xs {
		x = strings.ToLower(strings.TrimSpace(x))
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}

func (f Filter) ShouldKeep(r domain.Record) (keep bool, reason string) {
	title := strings.ToLower(r.Title)
	for _, b := range f.TitleBlock {
		if strings.Contains(title, b) {
			return false, "title"
		}
	}

	loc := strings.ToLower(r.Location)
	for _, b := range f.LocationsBlock {
		if strings.Contains(loc, b) {
			return false, "location"
		}
	}
	return true, ""
}

// Apply returns the kept records and the number dropped per reason.
func (f Filter) Apply(records []domain.Record) ([]domain.Record, map[string]int) {
	if len(f.TitleBlock) == 0 && len(f.LocationsBlock) == 0 {
		return records, nil
	}
	kept := make([]domain.Record, 0, len(records))
	dropped := map[string]int{}
	for _, r := range records {
		if ok, why := f.ShouldKeep(r); !ok {
			dropped[why]++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}
