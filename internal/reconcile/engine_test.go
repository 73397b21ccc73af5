package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsync-engine/internal/domain"
	"jobsync-engine/internal/store"
	"jobsync-engine/internal/store/storetest"
)

var ingestedAt = time.Date(2025, 10, 16, 10, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*Engine, *store.DB) {
	t.Helper()
	db := storetest.Open(t)
	return New(db, WithClock(func() time.Time { return ingestedAt })), db
}

func count(t *testing.T, db *store.DB, table string) int {
	t.Helper()
	n, err := db.Count(context.Background(), table)
	require.NoError(t, err)
	return n
}

func loadJob(t *testing.T, db *store.DB, company, title string) domain.Job {
	t.Helper()
	var j domain.Job
	var url, deadline, desc sql.NullString
	err := db.Pool.QueryRow(`
		SELECT j.id, j.job_url, j.posted_date, j.deadline, j.is_estimated, j.description
		FROM jobs j JOIN companies c ON c.id = j.company_id
		WHERE c.name = ? AND j.title = ?`, company, title).
		Scan(&j.ID, &url, &j.PostedDate, &deadline, &j.IsEstimated, &desc)
	require.NoError(t, err)
	j.URL, j.Deadline, j.Description = url.String, deadline.String, desc.String
	return j
}

func tagNames(t *testing.T, db *store.DB, jobID int64) []string {
	t.Helper()
	rows, err := db.Pool.Query(`
		SELECT t.name FROM job_tags jt JOIN tags t ON t.id = jt.tag_id
		WHERE jt.job_id = ? ORDER BY t.name`, jobID)
	require.NoError(t, err)
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		out = append(out, n)
	}
	require.NoError(t, rows.Err())
	return out
}

func rec(company, title string) domain.Record {
	return domain.Record{Company: company, Title: title}
}

func TestSync(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create every entity on first sync", func(t *testing.T) {
		e, db := newEngine(t)
		r := rec("Acme", "Senior Backend Engineer")
		r.Link = "https://acme.example/jobs/1"
		r.Website = "https://acme.example"
		r.RawPostedDate = "2025-10-01"

		stats, err := e.Sync(ctx, "test", []domain.Record{r})
		require.NoError(t, err)
		assert.Equal(t, Stats{
			Records:          1,
			TagsCreated:      2,
			CompaniesCreated: 1,
			JobsCreated:      1,
			LinksCreated:     2,
		}, stats)

		j := loadJob(t, db, "Acme", "Senior Backend Engineer")
		assert.Equal(t, "2025-10-01", j.PostedDate)
		assert.False(t, j.IsEstimated)
		assert.Equal(t, "https://acme.example/jobs/1", j.URL)
		assert.Equal(t, []string{"backend", "senior"}, tagNames(t, db, j.ID))
	})

	t.Run("Should be idempotent for an identical batch", func(t *testing.T) {
		e, db := newEngine(t)
		batch := []domain.Record{
			rec("Acme", "Senior Backend Engineer"),
			rec("Globex", "Junior React Developer"),
		}
		_, err := e.Sync(ctx, "test", batch)
		require.NoError(t, err)
		before := map[string]int{}
		for _, tbl := range []string{"companies", "jobs", "tags", "job_tags"} {
			before[tbl] = count(t, db, tbl)
		}

		stats, err := e.Sync(ctx, "test", batch)
		require.NoError(t, err)
		assert.Zero(t, stats.TagsCreated)
		assert.Zero(t, stats.CompaniesCreated)
		assert.Zero(t, stats.CompaniesUpdated)
		assert.Zero(t, stats.JobsCreated)
		assert.Zero(t, stats.JobsUpdated)
		assert.Equal(t, 2, stats.JobsUnchanged)
		assert.Zero(t, stats.LinksCreated)
		for tbl, n := range before {
			assert.Equal(t, n, count(t, db, tbl), tbl)
		}
	})

	t.Run("Should never clear a known website", func(t *testing.T) {
		e, db := newEngine(t)
		r := rec("Acme", "QA Engineer")
		r.Website = "https://acme.example"
		_, err := e.Sync(ctx, "test", []domain.Record{r})
		require.NoError(t, err)

		stats, err := e.Sync(ctx, "test", []domain.Record{rec("Acme", "QA Engineer")})
		require.NoError(t, err)
		assert.Zero(t, stats.CompaniesUpdated)

		var website string
		require.NoError(t, db.Pool.QueryRow(`SELECT website FROM companies WHERE name = ?`, "Acme").Scan(&website))
		assert.Equal(t, "https://acme.example", website)
	})

	t.Run("Should update a company only when a value changes", func(t *testing.T) {
		e, db := newEngine(t)
		r := rec("Acme", "QA Engineer")
		r.Website = "https://acme.example"
		_, err := e.Sync(ctx, "test", []domain.Record{r})
		require.NoError(t, err)

		r.Website = "https://acme.io"
		r.Industry = "Software"
		stats, err := e.Sync(ctx, "test", []domain.Record{r})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.CompaniesUpdated)

		var website, industry string
		require.NoError(t, db.Pool.QueryRow(`SELECT website, industry FROM companies WHERE name = ?`, "Acme").
			Scan(&website, &industry))
		assert.Equal(t, "https://acme.io", website)
		assert.Equal(t, "Software", industry)
	})

	t.Run("Should create and update companies in one batch", func(t *testing.T) {
		e, db := newEngine(t)
		acme := rec("Acme", "QA Engineer")
		acme.Website = "https://acme.example"
		globex := rec("Globex", "QA Engineer")
		globex.Website = "https://globex.example"
		_, err := e.Sync(ctx, "test", []domain.Record{acme, globex})
		require.NoError(t, err)

		later := New(db, WithClock(func() time.Time { return ingestedAt.Add(time.Hour) }))
		acme.Website = "https://acme.io"
		stats, err := later.Sync(ctx, "test", []domain.Record{acme, globex, rec("Initech", "QA Engineer")})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.CompaniesCreated)
		assert.Equal(t, 1, stats.CompaniesUpdated)
		assert.Equal(t, 3, count(t, db, "companies"))

		rows, err := db.Pool.Query(`SELECT name, website, updated_at FROM companies`)
		require.NoError(t, err)
		defer rows.Close()
		websites, stamps := map[string]string{}, map[string]string{}
		for rows.Next() {
			var name, stamp string
			var website sql.NullString
			require.NoError(t, rows.Scan(&name, &website, &stamp))
			websites[name], stamps[name] = website.String, stamp
		}
		require.NoError(t, rows.Err())

		assert.Equal(t, "https://acme.io", websites["Acme"])
		assert.Equal(t, "https://globex.example", websites["Globex"])
		assert.Equal(t, "2025-10-16T11:00:00Z", stamps["Acme"])
		assert.Equal(t, "2025-10-16T10:00:00Z", stamps["Globex"])
		assert.Equal(t, "2025-10-16T11:00:00Z", stamps["Initech"])
	})

	t.Run("Should estimate a missing posted date as the ingestion date", func(t *testing.T) {
		e, db := newEngine(t)
		r := rec("Acme", "Data Analyst")
		r.RawPostedDate = "sometime soon"
		_, err := e.Sync(ctx, "test", []domain.Record{r})
		require.NoError(t, err)

		j := loadJob(t, db, "Acme", "Data Analyst")
		assert.Equal(t, "2025-10-16", j.PostedDate)
		assert.True(t, j.IsEstimated)
	})

	t.Run("Should not replace a real posted date with an estimate", func(t *testing.T) {
		e, db := newEngine(t)
		r := rec("Acme", "Data Analyst")
		r.RawPostedDate = "October 1, 2025"
		_, err := e.Sync(ctx, "test", []domain.Record{r})
		require.NoError(t, err)

		stats, err := e.Sync(ctx, "test", []domain.Record{rec("Acme", "Data Analyst")})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.JobsUnchanged)

		j := loadJob(t, db, "Acme", "Data Analyst")
		assert.Equal(t, "2025-10-01", j.PostedDate)
		assert.False(t, j.IsEstimated)
	})

	t.Run("Should replace an estimate once a real date arrives", func(t *testing.T) {
		e, db := newEngine(t)
		_, err := e.Sync(ctx, "test", []domain.Record{rec("Acme", "Data Analyst")})
		require.NoError(t, err)

		r := rec("Acme", "Data Analyst")
		r.RawPostedDate = "10/02/2025"
		stats, err := e.Sync(ctx, "test", []domain.Record{r})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.JobsUpdated)

		j := loadJob(t, db, "Acme", "Data Analyst")
		assert.Equal(t, "2025-10-02", j.PostedDate)
		assert.False(t, j.IsEstimated)
	})

	t.Run("Should union tags of duplicate records without duplicate links", func(t *testing.T) {
		e, db := newEngine(t)
		a := rec("Acme", "Platform Engineer")
		a.Tags = domain.Tags{Level: "senior", Roles: []string{"backend"}}
		b := rec("Acme", "Platform Engineer")
		b.Tags = domain.Tags{Level: "senior", Roles: []string{"devops"}}

		stats, err := e.Sync(ctx, "test", []domain.Record{a, b})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.JobsCreated)
		assert.Equal(t, 3, stats.LinksCreated)
		assert.Equal(t, 1, count(t, db, "jobs"))

		j := loadJob(t, db, "Acme", "Platform Engineer")
		assert.Equal(t, []string{"backend", "devops", "senior"}, tagNames(t, db, j.ID))
	})

	t.Run("Should keep the last duplicate of a new job", func(t *testing.T) {
		e, db := newEngine(t)
		a := rec("Acme", "Platform Engineer")
		a.Link = "https://acme.example/a"
		b := rec("Acme", "Platform Engineer")
		b.Link = "https://acme.example/b"

		_, err := e.Sync(ctx, "test", []domain.Record{a, b})
		require.NoError(t, err)
		assert.Equal(t, "https://acme.example/b", loadJob(t, db, "Acme", "Platform Engineer").URL)
	})

	t.Run("Should collapse tag casing and whitespace", func(t *testing.T) {
		e, db := newEngine(t)
		a := rec("Acme", "One")
		a.Tags = domain.Tags{Level: "Senior", Roles: []string{" Backend "}}
		b := rec("Globex", "Two")
		b.Tags = domain.Tags{Level: "senior", Roles: []string{"BACKEND"}}

		stats, err := e.Sync(ctx, "test", []domain.Record{a, b})
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TagsCreated)
		assert.Equal(t, 2, count(t, db, "tags"))
	})

	t.Run("Should skip records without title or company", func(t *testing.T) {
		e, db := newEngine(t)
		stats, err := e.Sync(ctx, "test", []domain.Record{
			rec("", "Backend Engineer"),
			rec("Acme", "   "),
			rec("Acme", "Backend Engineer"),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Records)
		assert.Equal(t, 2, stats.Skipped)
		assert.Equal(t, 1, count(t, db, "jobs"))
	})

	t.Run("Should do nothing for an empty batch", func(t *testing.T) {
		e, db := newEngine(t)
		stats, err := e.Sync(ctx, "test", nil)
		require.NoError(t, err)
		assert.Equal(t, Stats{}, stats)
		assert.Zero(t, count(t, db, "companies"))
	})

	t.Run("Should normalize deadlines and summarize missing descriptions", func(t *testing.T) {
		e, db := newEngine(t)
		a := rec("Acme", "Senior React Developer")
		a.RawDeadline = "5 days remaining"
		b := rec("Acme", "Intern")
		b.RawDeadline = "whenever"
		b.Description = "Learn things."

		_, err := e.Sync(ctx, "test", []domain.Record{a, b})
		require.NoError(t, err)

		ja := loadJob(t, db, "Acme", "Senior React Developer")
		assert.Equal(t, "2025-10-21", ja.Deadline)
		assert.Equal(t, "Level: senior | Roles: frontend", ja.Description)

		jb := loadJob(t, db, "Acme", "Intern")
		assert.Empty(t, jb.Deadline)
		assert.Equal(t, "Learn things.", jb.Description)
	})

	t.Run("Should handle batches larger than one chunk", func(t *testing.T) {
		e, db := newEngine(t)
		var batch []domain.Record
		for i := 0; i < chunkSize*2+5; i++ {
			batch = append(batch, rec("Acme", fmt.Sprintf("Engineer %d", i)))
		}
		stats, err := e.Sync(ctx, "test", batch)
		require.NoError(t, err)
		assert.Equal(t, len(batch), stats.JobsCreated)
		assert.Equal(t, len(batch), count(t, db, "jobs"))

		stats, err = e.Sync(ctx, "test", batch)
		require.NoError(t, err)
		assert.Equal(t, len(batch), stats.JobsUnchanged)
	})
}

func TestSyncAtomicity(t *testing.T) {
	ctx := context.Background()

	t.Run("Should roll back everything when a later stage fails", func(t *testing.T) {
		e, db := newEngine(t)
		boom := errors.New("boom")
		e.afterStage = func(s Stage) error {
			if s == StageCompanies {
				return boom
			}
			return nil
		}

		_, err := e.Sync(ctx, "acme-board", []domain.Record{
			rec("Acme", "Senior Backend Engineer"),
			rec("Globex", "QA Tester"),
		})
		require.Error(t, err)

		var serr *SyncError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "acme-board", serr.Source)
		assert.Equal(t, 2, serr.Records)
		assert.Equal(t, StageCompanies, serr.Stage)
		assert.ErrorIs(t, err, boom)

		for _, tbl := range []string{"companies", "jobs", "tags", "job_tags"} {
			assert.Zero(t, count(t, db, tbl), tbl)
		}
	})

	t.Run("Should report a cancelled context", func(t *testing.T) {
		e, db := newEngine(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := e.Sync(cctx, "test", []domain.Record{rec("Acme", "Engineer")})
		require.Error(t, err)
		var serr *SyncError
		require.ErrorAs(t, err, &serr)
		assert.Zero(t, count(t, db, "jobs"))
	})
}
