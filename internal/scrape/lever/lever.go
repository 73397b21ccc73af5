package lever

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"jobsync-engine/internal/domain"
	"jobsync-engine/internal/logger"
	"jobsync-engine/internal/scrape/types"
	"jobsync-engine/internal/scrape/util"
)

const DefaultBaseURL = "https://api.lever.co"

type Config struct {
	BaseURL   string
	Companies []Company
	Workers   int
}

type Company struct {
	Slug string // api.lever.co/v0/postings/<slug>
	Name string
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
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scraper{cfg: cfg, client: client, log: log.With("component", "lever")}
}

func (s *Scraper) Name() string { return "lever" }

type leverPosting struct {
	ID         string `json:"id"`
	Text       string `json:"text"` // title
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"` // ms epoch
	Categories struct {
		Location   string `json:"location"`
		Team       string `json:"team"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	DescriptionPlain string `json:"descriptionPlain"`
}

func (s *Scraper) Fetch(ctx context.Context) (types.Batch, error) {
	companies := s.cfg.Companies
	jobsCh := make(chan []domain.Record, len(companies))
	workCh := make(chan Company)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []error
	)
	wg.Add(s.cfg.Workers)
	for i := 0; i < s.cfg.Workers; i++ {
		go func() {
			defer wg.Done()
			for co := range workCh {
				cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
				recs, err := s.fetchCompany(cctx, co)
				cancel()

				if err != nil {
					s.log.Warn("company failed", "company", co.Name, "slug", co.Slug, "err", err)
					mu.Lock()
					failed = append(failed, err)
					mu.Unlock()
					continue
				}
				if len(recs) > 0 {
					jobsCh <- recs
				}
			}
		}()
	}

	go func() {
		defer close(workCh)
		for _, co := range companies {
			select {
			case <-ctx.Done():
				return
			case workCh <- co:
			}
		}
	}()

	wg.Wait()
	close(jobsCh)

	batch := types.Batch{Source: s.Name()}
	for recs := range jobsCh {
		batch.Records = append(batch.Records, recs...)
	}
	if err := ctx.Err(); err != nil {
		return batch, err
	}
	if len(failed) > 0 && len(failed) == len(companies) {
		return batch, errors.Join(failed...)
	}

	s.log.Info("fetched", "records", len(batch.Records))
	return batch, nil
}

func (s *Scraper) fetchCompany(ctx context.Context, co Company) ([]domain.Record, error) {
	apiURL := fmt.Sprintf("%s/v0/postings/%s?mode=json", s.cfg.BaseURL, co.Slug)

	body, err := s.client.Get(ctx, apiURL)
	if err != nil {
		return nil, fmt.Errorf("lever get: %w", err)
	}
	defer body.Close()

	var postings []leverPosting
	if err := json.NewDecoder(body).Decode(&postings); err != nil {
		return nil, fmt.Errorf("lever decode: %w", err)
	}
	return toRecords(co, postings), nil
}

func toRecords(co Company, postings []leverPosting) []domain.Record {
	out := make([]domain.Record, 0, len(postings))
	for _, p := range postings {
		if p.ID == "" || p.HostedURL == "" || strings.TrimSpace(p.Text) == "" {
			continue
		}
		r := domain.Record{
			Company:     co.Name,
			Title:       util.CleanText(p.Text),
			Type:        util.CleanText(p.Categories.Commitment),
			Link:        util.CanonicalURL(p.HostedURL),
			Website:     boardOf(p.HostedURL),
			Location:    util.NormalizeLocation(p.Categories.Location),
			Description: util.CleanText(p.DescriptionPlain),
		}
		if p.CreatedAt > 0 {
			r.RawPostedDate = time.UnixMilli(p.CreatedAt).UTC().Format(time.RFC3339)
		}
		out = append(out, r)
	}
	return out
}

// boardOf trims a hosted posting URL (jobs.lever.co/<slug>/<id>) down to
// the company's board.
func boardOf(hosted string) string {
	u, err := url.Parse(hosted)
	if err != nil || u.Host == "" {
		return ""
	}
	slug, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	if slug == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/" + slug
}
