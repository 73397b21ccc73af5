// Package reconcile maps batches of scraped records onto the company, job
// and tag tables. Each batch is applied in a single transaction.
package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"jobsync-engine/internal/domain"
	"jobsync-engine/internal/logger"
	"jobsync-engine/internal/normalize"
	"jobsync-engine/internal/store"
)

// Stage names the step a batch was in when it failed.
type Stage string

const (
	StageBegin     Stage = "begin"
	StageTags      Stage = "tags"
	StageCompanies Stage = "companies"
	StageJobLookup Stage = "job_lookup"
	StageJobUpsert Stage = "job_upsert"
	StageLinks     Stage = "links"
	StageCommit    Stage = "commit"
)

// Stats describes one committed batch.
type Stats struct {
	Records          int `json:"records"`
	Skipped          int `json:"skipped"`
	TagsCreated      int `json:"tags_created"`
	CompaniesCreated int `json:"companies_created"`
	CompaniesUpdated int `json:"companies_updated"`
	JobsCreated      int `json:"jobs_created"`
	JobsUpdated      int `json:"jobs_updated"`
	JobsUnchanged    int `json:"jobs_unchanged"`
	LinksCreated     int `json:"links_created"`
}

func (s *Stats) Add(o Stats) {
	s.Records += o.Records
	s.Skipped += o.Skipped
	s.TagsCreated += o.TagsCreated
	s.CompaniesCreated += o.CompaniesCreated
	s.CompaniesUpdated += o.CompaniesUpdated
	s.JobsCreated += o.JobsCreated
	s.JobsUpdated += o.JobsUpdated
	s.JobsUnchanged += o.JobsUnchanged
	s.LinksCreated += o.LinksCreated
}

type Engine struct {
	db   *store.DB
	norm normalize.Normalizer
	log  logger.Logger

	// afterStage runs inside the transaction once a stage completed.
	afterStage func(Stage) error
}

type Option func(*Engine)

// WithClock pins the ingestion instant.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.norm.Now = now }
}

func WithNormalizer(n normalize.Normalizer) Option {
	return func(e *Engine) { e.norm = n }
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func New(db *store.DB, opts ...Option) *Engine {
	e := &Engine{db: db, log: logger.Nop()}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("component", "reconcile")
	return e
}

// item is one accepted record with its derived fields.
type item struct {
	rec     domain.Record
	title   string
	company string
	tags    []string
	job     domain.Job // incoming values; CompanyID unset
}

// Sync applies records from source in one transaction. Either every effect
// of the batch is committed or none is, in which case a *SyncError is
// returned.
func (e *Engine) Sync(ctx context.Context, source string, records []domain.Record) (Stats, error) {
	stats := Stats{Records: len(records)}
	today := e.norm.Today().Format("2006-01-02")

	items := make([]item, 0, len(records))
	for _, r := range records {
		it, ok := e.prepare(r, today)
		if !ok {
			stats.Skipped++
			continue
		}
		items = append(items, it)
	}
	if stats.Skipped > 0 {
		e.log.Warn("skipped records without title or company", "source", source, "skipped", stats.Skipped)
	}
	if len(items) == 0 {
		return stats, nil
	}

	start := time.Now()
	stage := StageBegin
	err := e.db.WithTx(ctx, func(tx *sql.Tx) error {
		s := &session{
			ctx:   ctx,
			tx:    tx,
			qb:    e.db.Builder(),
			stamp: e.db.Stamp(e.norm.Clock()),
			items: items,
			stats: &stats,
		}
		steps := []struct {
			stage Stage
			run   func() error
		}{
			{StageTags, s.resolveTags},
			{StageCompanies, s.resolveCompanies},
			{StageJobLookup, s.lookupJobs},
			{StageJobUpsert, s.upsertJobs},
			{StageLinks, s.linkTags},
		}
		for _, st := range steps {
			stage = st.stage
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := st.run(); err != nil {
				return err
			}
			if e.afterStage != nil {
				if err := e.afterStage(st.stage); err != nil {
					return err
				}
			}
		}
		stage = StageCommit
		return nil
	})
	if err != nil {
		serr := &SyncError{Source: source, Records: len(records), Stage: stage, Err: err}
		e.log.Error("batch rolled back", "source", source, "stage", string(stage), "err", err)
		return Stats{}, serr
	}

	e.log.Info("batch synced",
		"source", source,
		"records", stats.Records,
		"skipped", stats.Skipped,
		"jobs_created", stats.JobsCreated,
		"jobs_updated", stats.JobsUpdated,
		"links_created", stats.LinksCreated,
		"took", time.Since(start).String(),
	)
	return stats, nil
}

func (e *Engine) prepare(r domain.Record, today string) (item, bool) {
	title := strings.TrimSpace(r.Title)
	company := strings.TrimSpace(r.Company)
	if title == "" || company == "" {
		return item{}, false
	}

	tags := r.Tags
	if tags.IsZero() {
		tags = normalize.DetectTags(title)
	}

	job := domain.Job{
		Title:          title,
		URL:            strings.TrimSpace(r.Link),
		EmploymentType: strings.TrimSpace(r.Type),
		Experience:     strings.TrimSpace(r.Experience),
		Description:    strings.TrimSpace(r.Description),
	}
	if job.Description == "" {
		job.Description = summary(tags)
	}
	if d, ok := e.norm.FormattedDate(r.RawPostedDate); ok {
		job.PostedDate = d
	} else {
		job.PostedDate = today
		job.IsEstimated = true
	}
	job.Deadline = e.deadline(r.RawDeadline)

	return item{rec: r, title: title, company: company, tags: tags.Names(), job: job}, true
}

func (e *Engine) deadline(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if d, ok := e.norm.FormattedDate(raw); ok {
		return d
	}
	if d, ok := e.norm.ChronoDate(raw); ok {
		return d
	}
	return ""
}

func summary(t domain.Tags) string {
	level := strings.TrimSpace(t.Level)
	if level == "" {
		level = normalize.LevelUnknown
	}
	return fmt.Sprintf("Level: %s | Roles: %s", level, strings.Join(t.Roles, ", "))
}
