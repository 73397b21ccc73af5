// Package smarthirepro scrapes company pages on smarthirepro.com. The site
// hosts postings of many companies; only the configured ones are fetched.
package smarthirepro

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"jobsync-engine/internal/domain"
	"jobsync-engine/internal/logger"
	"jobsync-engine/internal/scrape/types"
	"jobsync-engine/internal/scrape/util"
)

const DefaultBaseURL = "https://smarthirepro.com"

type Config struct {
	BaseURL string
	// Companies are the slugs of smarthirepro.com/company/<slug>/.
	Companies []string
	// Detail fetches every posting's detail page for dates, type and
	// experience.
	Detail      bool
	Concurrency int
}

type Scraper struct {
	cfg    Config
	client *util.Client
	log    logger.Logger
}

func New(cfg Config, client *util.Client, log logger.Logger) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scraper{cfg: cfg, client: client, log: log.With("component", "smarthirepro")}
}

func (s *Scraper) Name() string { return "smarthirepro" }

func (s *Scraper) Fetch(ctx context.Context) (types.Batch, error) {
	batch := types.Batch{Source: s.Name()}
	var errs []error
	for _, slug := range s.cfg.Companies {
		recs, err := s.fetchCompany(ctx, slug)
		if err != nil {
			// one broken company page should not sink the rest
			s.log.Warn("company listing failed", "company", slug, "err", err)
			errs = append(errs, err)
			continue
		}
		batch.Records = append(batch.Records, recs...)
	}
	if len(errs) > 0 && len(errs) == len(s.cfg.Companies) {
		return batch, errors.Join(errs...)
	}
	s.log.Info("fetched", "records", len(batch.Records))
	return batch, nil
}

func (s *Scraper) fetchCompany(ctx context.Context, slug string) ([]domain.Record, error) {
	listURL := fmt.Sprintf("%s/company/%s/", s.cfg.BaseURL, strings.Trim(slug, "/"))
	doc, err := s.client.Document(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("smarthirepro listing %s: %w", slug, err)
	}
	recs := ParseListing(doc, s.cfg.BaseURL)
	for i := range recs {
		recs[i].Website = listURL
	}
	if !s.cfg.Detail {
		return recs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range recs {
		if recs[i].Link == "" {
			continue
		}
		r := &recs[i]
		g.Go(func() error {
			d, err := s.client.Document(gctx, r.Link)
			if err != nil {
				// keep the listing data
				s.log.Debug("detail page failed", "url", r.Link, "err", err)
				return nil
			}
			ParseDetail(d).Apply(r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return recs, ctx.Err()
}
