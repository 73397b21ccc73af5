package config

import (
	"errors"
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Err folds the collected errors into one, or nil.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return errors.New("config validation failed:\n- " + strings.Join(v.Errors, "\n- "))
}

func trimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}

func trimCompanies(name string, in []Company, res *Validation) []Company {
	var out []Company
	for i, c := range in {
		c.Slug = strings.TrimSpace(c.Slug)
		c.Name = strings.TrimSpace(c.Name)
		if c.Slug == "" {
			res.addErr("%s[%d].slug is required", name, i)
			continue
		}
		if c.Name == "" {
			c.Name = c.Slug
		}
		out = append(out, c)
	}
	return out
}

// NormalizeAndValidate returns a normalized copy of cfg and every problem
// found in it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.Filters.TitleBlock = trimList(out.Filters.TitleBlock)
	out.Filters.LocationsBlock = trimList(out.Filters.LocationsBlock)
	out.Sources.SmartHirePro.For = trimList(out.Sources.SmartHirePro.For)
	out.Sources.Greenhouse.Companies = trimCompanies("sources.greenhouse.companies", out.Sources.Greenhouse.Companies, &res)
	out.Sources.Lever.Companies = trimCompanies("sources.lever.companies", out.Sources.Lever.Companies, &res)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	switch strings.ToLower(strings.TrimSpace(out.Store.Driver)) {
	case "", "sqlite", "sqlite3":
	case "postgres", "postgresql", "pg":
		if strings.TrimSpace(out.Store.DSN) == "" {
			res.addErr("store.dsn is required when store.driver=%s", out.Store.Driver)
		}
	default:
		res.addErr("store.driver must be sqlite or postgres, got %q", out.Store.Driver)
	}

	// polling sanity
	if out.Polling.IntervalSeconds <= 0 {
		res.addErr("polling.interval_seconds must be > 0")
	} else if out.Polling.IntervalSeconds < 60 {
		res.addWarn("polling.interval_seconds is very low (%d) and may get you rate limited.", out.Polling.IntervalSeconds)
	}
	if out.Polling.FetchTimeoutSeconds <= 0 {
		res.addErr("polling.fetch_timeout_seconds must be > 0")
	}
	if out.Polling.SyncTimeoutSeconds <= 0 {
		res.addErr("polling.sync_timeout_seconds must be > 0")
	}

	if out.Scrape.RequestsPerSecond < 0 {
		res.addErr("scrape.requests_per_second must be >= 0")
	}
	if out.Scrape.Concurrency <= 0 {
		res.addErr("scrape.concurrency must be > 0")
	}

	sh := out.Sources.SmartHirePro
	if sh.Enabled && len(sh.For) == 0 {
		res.addWarn("sources.smarthirepro is enabled but lists no companies in 'for'.")
	}
	if out.Sources.Greenhouse.Enabled && len(out.Sources.Greenhouse.Companies) == 0 {
		res.addWarn("sources.greenhouse is enabled but has no companies.")
	}
	if out.Sources.Lever.Enabled && len(out.Sources.Lever.Companies) == 0 {
		res.addWarn("sources.lever is enabled but has no companies.")
	}
	if !sh.Enabled && !out.Sources.Greenhouse.Enabled && !out.Sources.Lever.Enabled {
		res.addWarn("no sources enabled; runs will do nothing.")
	}

	return out, res
}
