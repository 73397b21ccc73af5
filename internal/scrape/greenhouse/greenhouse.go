package greenhouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"jobsync-engine/internal/domain"
	"jobsync-engine/internal/logger"
	"jobsync-engine/internal/scrape/types"
	"jobsync-engine/internal/scrape/util"
)

const DefaultBaseURL = "https://boards.greenhouse.io"

type Config struct {
	BaseURL     string
	Companies   []Company // list of boards
	Concurrency int
}

type Company struct {
	Slug string // boards.greenhouse.io/<slug>
	Name string // display name
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
	return &Scraper{cfg: cfg, client: client, log: log.With("component", "greenhouse")}
}

func (s *Scraper) Name() string { return "greenhouse" }

func (s *Scraper) Fetch(ctx context.Context) (types.Batch, error) {
	batch := types.Batch{Source: s.Name()}
	var errs []error
	for _, co := range s.cfg.Companies {
		recs, err := s.fetchCompany(ctx, co)
		if err != nil {
			// don’t fail the whole run because one board is down
			s.log.Warn("board failed", "company", co.Name, "slug", co.Slug, "err", err)
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

func (s *Scraper) fetchCompany(ctx context.Context, co Company) ([]domain.Record, error) {
	boardURL := fmt.Sprintf("%s/%s", s.cfg.BaseURL, co.Slug)
	doc, err := s.client.Document(ctx, boardURL)
	if err != nil {
		return nil, fmt.Errorf("greenhouse board: %w", err)
	}

	recs := ParseBoard(doc, s.cfg.BaseURL, co.Name)
	for i := range recs {
		recs[i].Website = boardURL
	}

	// Hydrate details (title/location/description) from each job page.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range recs {
		r := &recs[i]
		g.Go(func() error {
			d, err := s.client.Document(gctx, r.Link)
			if err != nil {
				s.log.Debug("job page failed", "url", r.Link, "err", err)
				return nil
			}
			hydrate(d, r)
			return nil
		})
	}
	_ = g.Wait()

	out := recs[:0]
	for _, r := range recs {
		if r.Title != "" {
			out = append(out, r)
		}
	}
	return out, ctx.Err()
}

// ParseBoard collects the job links of a board page. Greenhouse boards
// link to /<slug>/jobs/<id>.
func ParseBoard(doc *goquery.Document, base, company string) []domain.Record {
	seen := map[string]bool{}
	var out []domain.Record
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := util.Resolve(base, href)
		if !strings.Contains(strings.ToLower(abs), "/jobs/") {
			return
		}
		id := extractJobID(abs)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true

		title := util.CleanText(a.Text())
		if util.LooksLikeJunkTitle(title) {
			// the job page carries the real title
			title = ""
		}
		out = append(out, domain.Record{
			Company: company,
			Title:   title,
			Link:    abs,
		})
	})
	return out
}

func hydrate(doc *goquery.Document, r *domain.Record) {
	if r.Title == "" {
		r.Title = util.CleanText(doc.Find("h1").First().Text())
	}
	if loc := util.FindLocation(doc); loc != "" {
		r.Location = loc
	}
	if t := util.CleanText(doc.Find("#content").First().Text()); t != "" {
		r.Description = t
	}
	if v, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
		r.RawPostedDate = strings.TrimSpace(v)
	}
}

func extractJobID(u string) string {
	// crude but effective: split on /jobs/ and take the leading digits
	parts := strings.Split(u, "/jobs/")
	if len(parts) < 2 {
		return ""
	}
	tail := parts[1]
	end := 0
	for end < len(tail) && tail[end] >= '0' && tail[end] <= '9' {
		end++
	}
	return tail[:end]
}
