package scrape

import (
	"jobsync-engine/internal/config"
	"jobsync-engine/internal/logger"
	"jobsync-engine/internal/scrape/greenhouse"
	"jobsync-engine/internal/scrape/lever"
	"jobsync-engine/internal/scrape/smarthirepro"
	"jobsync-engine/internal/scrape/types"
	"jobsync-engine/internal/scrape/util"
)

func MapGreenhouseCompanies(in []config.Company) []greenhouse.Company {
	out := make([]greenhouse.Company, 0, len(in))
	for _, c := range in {
		out = append(out, greenhouse.Company{
			Slug: c.Slug,
			Name: c.Name,
		})
	}
	return out
}

func MapLeverCompanies(in []config.Company) []lever.Company {
	out := make([]lever.Company, 0, len(in))
	for _, c := range in {
		out = append(out, lever.Company{
			Slug: c.Slug,
			Name: c.Name,
		})
	}
	return out
}

// Adapters builds the enabled site adapters. They share one HTTP client
// so the per-host rate limit holds across all of them.
func Adapters(cfg config.Config, log logger.Logger) []types.Adapter {
	limiter := util.NewHostLimiter(cfg.Scrape.RequestsPerSecond, cfg.Scrape.Burst)
	client := util.NewClient(limiter, cfg.Scrape.UserAgent)

	var out []types.Adapter
	if sh := cfg.Sources.SmartHirePro; sh.Enabled && len(sh.For) > 0 {
		out = append(out, smarthirepro.New(smarthirepro.Config{
			BaseURL:     sh.BaseURL,
			Companies:   sh.For,
			Detail:      sh.Detail,
			Concurrency: cfg.Scrape.Concurrency,
		}, client, log))
	}
	if gh := cfg.Sources.Greenhouse; gh.Enabled && len(gh.Companies) > 0 {
		out = append(out, greenhouse.New(greenhouse.Config{
			BaseURL:     gh.BaseURL,
			Companies:   MapGreenhouseCompanies(gh.Companies),
			Concurrency: cfg.Scrape.Concurrency,
		}, client, log))
	}
	if lv := cfg.Sources.Lever; lv.Enabled && len(lv.Companies) > 0 {
		out = append(out, lever.New(lever.Config{
			BaseURL:   lv.BaseURL,
			Companies: MapLeverCompanies(lv.Companies),
			Workers:   cfg.Scrape.Concurrency,
		}, client, log))
	}
	return out
}
