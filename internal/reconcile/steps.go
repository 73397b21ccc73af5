package reconcile

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"jobsync-engine/internal/domain"
)

// chunkSize bounds the number of rows or keys per statement so bound
// parameter counts stay under every driver's limit.
const chunkSize = 200

type jobKey struct {
	companyID int64
	title     string
}

// jobState tracks one job key across the batch.
type jobState struct {
	original domain.Job
	current  domain.Job
	exists   bool
}

// session holds the lookup tables of a single Sync call.
type session struct {
	ctx   context.Context
	tx    *sql.Tx
	qb    sq.StatementBuilderType
	stamp any
	items []item
	stats *Stats

	tagIDs     map[string]int64
	companyIDs map[string]int64
	jobs       map[jobKey]*jobState
	jobOrder   []jobKey
}

func (s *session) query(b sq.Sqlizer, scan func(*sql.Rows) error) error {
	q, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	rows, err := s.tx.QueryContext(s.ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *session) exec(b sq.Sqlizer) error {
	q, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	_, err = s.tx.ExecContext(s.ctx, q, args...)
	return err
}

func chunks[T any](xs []T, n int) [][]T {
	var out [][]T
	for len(xs) > n {
		out = append(out, xs[:n])
		xs = xs[n:]
	}
	if len(xs) > 0 {
		out = append(out, xs)
	}
	return out
}

// null maps the empty string to SQL NULL.
func null(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *session) resolveTags() error {
	var names []string
	seen := make(map[string]bool)
	for _, it := range s.items {
		for _, n := range it.tags {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}

	s.tagIDs = make(map[string]int64, len(names))
	if len(names) == 0 {
		return nil
	}
	for _, c := range chunks(names, chunkSize) {
		err := s.query(s.qb.Select("id", "name").From("tags").Where(sq.Eq{"name": c}),
			func(r *sql.Rows) error {
				var id int64
				var name string
				if err := r.Scan(&id, &name); err != nil {
					return err
				}
				s.tagIDs[name] = id
				return nil
			})
		if err != nil {
			return fmt.Errorf("select tags: %w", err)
		}
	}

	var missing []string
	for _, n := range names {
		if _, ok := s.tagIDs[n]; !ok {
			missing = append(missing, n)
		}
	}
	for _, c := range chunks(missing, chunkSize) {
		ins := s.qb.Insert("tags").Columns("name")
		for _, n := range c {
			ins = ins.Values(n)
		}
		err := s.query(ins.Suffix("RETURNING id, name"), func(r *sql.Rows) error {
			var id int64
			var name string
			if err := r.Scan(&id, &name); err != nil {
				return err
			}
			s.tagIDs[name] = id
			s.stats.TagsCreated++
			return nil
		})
		if err != nil {
			return fmt.Errorf("insert tags: %w", err)
		}
	}
	return nil
}

func (s *session) resolveCompanies() error {
	incoming := dedupeCompanies(s.items)
	names := make([]string, len(incoming))
	for i, c := range incoming {
		names[i] = c.Name
	}

	existing := make(map[string]domain.Company, len(incoming))
	for _, c := range chunks(names, chunkSize) {
		err := s.query(s.qb.Select("id", "name", "website", "location", "industry").
			From("companies").Where(sq.Eq{"name": c}),
			func(r *sql.Rows) error {
				var co domain.Company
				var website, location, industry sql.NullString
				if err := r.Scan(&co.ID, &co.Name, &website, &location, &industry); err != nil {
					return err
				}
				co.Website, co.Location, co.Industry = website.String, location.String, industry.String
				existing[co.Name] = co
				return nil
			})
		if err != nil {
			return fmt.Errorf("select companies: %w", err)
		}
	}

	s.companyIDs = make(map[string]int64, len(incoming))
	// New companies and changed existing ones go out in one upsert; rows
	// carry the merged values, so the conflict branch only copies them over.
	var writes []domain.Company
	for _, in := range incoming {
		cur, ok := existing[in.Name]
		if !ok {
			writes = append(writes, in)
			continue
		}
		s.companyIDs[in.Name] = cur.ID
		if merged, changed := MergeCompany(cur, in); changed {
			writes = append(writes, merged)
		}
	}

	for _, c := range chunks(writes, chunkSize) {
		ins := s.qb.Insert("companies").Columns("name", "website", "location", "industry", "created_at", "updated_at")
		for _, co := range c {
			ins = ins.Values(co.Name, null(co.Website), null(co.Location), null(co.Industry), s.stamp, s.stamp)
		}
		ins = ins.Suffix(`ON CONFLICT (name) DO UPDATE SET
			website = excluded.website,
			location = excluded.location,
			industry = excluded.industry,
			updated_at = excluded.updated_at
			RETURNING id, name`)
		err := s.query(ins, func(r *sql.Rows) error {
			var id int64
			var name string
			if err := r.Scan(&id, &name); err != nil {
				return err
			}
			s.companyIDs[name] = id
			if _, ok := existing[name]; ok {
				s.stats.CompaniesUpdated++
			} else {
				s.stats.CompaniesCreated++
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("upsert companies: %w", err)
		}
	}
	return nil
}

func (s *session) keyOf(it item) jobKey {
	return jobKey{companyID: s.companyIDs[it.company], title: it.title}
}

func (s *session) lookupJobs() error {
	s.jobs = make(map[jobKey]*jobState)
	var keys []jobKey
	for _, it := range s.items {
		k := s.keyOf(it)
		if k.companyID == 0 {
			return fmt.Errorf("company %q was not resolved", it.company)
		}
		if _, ok := s.jobs[k]; ok {
			continue
		}
		s.jobs[k] = &jobState{}
		keys = append(keys, k)
	}
	s.jobOrder = keys

	for _, c := range chunks(keys, chunkSize) {
		or := make(sq.Or, 0, len(c))
		for _, k := range c {
			or = append(or, sq.Eq{"company_id": k.companyID, "title": k.title})
		}
		err := s.query(s.qb.Select(
			"id", "company_id", "title", "job_url", "employment_type", "salary_range",
			"experience", "description",
			"CAST(posted_date AS TEXT)", "CAST(deadline AS TEXT)", "is_estimated",
		).From("jobs").Where(or), func(r *sql.Rows) error {
			var j domain.Job
			var url, etype, salary, exp, desc, deadline sql.NullString
			if err := r.Scan(&j.ID, &j.CompanyID, &j.Title, &url, &etype, &salary,
				&exp, &desc, &j.PostedDate, &deadline, &j.IsEstimated); err != nil {
				return err
			}
			j.URL, j.EmploymentType, j.SalaryRange = url.String, etype.String, salary.String
			j.Experience, j.Description, j.Deadline = exp.String, desc.String, deadline.String
			st, ok := s.jobs[jobKey{companyID: j.CompanyID, title: j.Title}]
			if !ok {
				return nil
			}
			st.original, st.current, st.exists = j, j, true
			return nil
		})
		if err != nil {
			return fmt.Errorf("select jobs: %w", err)
		}
	}
	return nil
}

func (s *session) upsertJobs() error {
	for _, it := range s.items {
		k := s.keyOf(it)
		st := s.jobs[k]
		in := it.job
		in.CompanyID = k.companyID
		if st.exists {
			st.current, _ = MergeJob(st.current, in)
			continue
		}
		// Later records for a new key replace earlier ones.
		st.current = in
	}

	var fresh []domain.Job
	for _, k := range s.jobOrder {
		st := s.jobs[k]
		if !st.exists {
			fresh = append(fresh, st.current)
			continue
		}
		if st.current == st.original {
			s.stats.JobsUnchanged++
			continue
		}
		j := st.current
		err := s.exec(s.qb.Update("jobs").
			Set("job_url", null(j.URL)).
			Set("employment_type", null(j.EmploymentType)).
			Set("salary_range", null(j.SalaryRange)).
			Set("experience", null(j.Experience)).
			Set("description", null(j.Description)).
			Set("posted_date", j.PostedDate).
			Set("deadline", null(j.Deadline)).
			Set("is_estimated", j.IsEstimated).
			Set("updated_at", s.stamp).
			Where(sq.Eq{"id": j.ID}))
		if err != nil {
			return fmt.Errorf("update job %d: %w", j.ID, err)
		}
		s.stats.JobsUpdated++
	}

	for _, c := range chunks(fresh, chunkSize) {
		ins := s.qb.Insert("jobs").Columns(
			"company_id", "title", "job_url", "salary_range", "employment_type", "experience",
			"description", "posted_date", "deadline", "is_estimated", "created_at", "updated_at",
		)
		for _, j := range c {
			ins = ins.Values(j.CompanyID, j.Title, null(j.URL), nil, null(j.EmploymentType),
				null(j.Experience), null(j.Description), j.PostedDate, null(j.Deadline),
				j.IsEstimated, s.stamp, s.stamp)
		}
		err := s.query(ins.Suffix("RETURNING id, company_id, title"), func(r *sql.Rows) error {
			var k jobKey
			var id int64
			if err := r.Scan(&id, &k.companyID, &k.title); err != nil {
				return err
			}
			if st, ok := s.jobs[k]; ok {
				st.current.ID = id
			}
			s.stats.JobsCreated++
			return nil
		})
		if err != nil {
			return fmt.Errorf("insert jobs: %w", err)
		}
	}
	return nil
}

func (s *session) linkTags() error {
	ids := make([]int64, 0, len(s.jobOrder))
	for _, k := range s.jobOrder {
		id := s.jobs[k].current.ID
		if id == 0 {
			return fmt.Errorf("job %q has no id after upsert", k.title)
		}
		ids = append(ids, id)
	}

	have := make(map[domain.JobTag]bool)
	for _, c := range chunks(ids, chunkSize) {
		err := s.query(s.qb.Select("job_id", "tag_id").From("job_tags").Where(sq.Eq{"job_id": c}),
			func(r *sql.Rows) error {
				var l domain.JobTag
				if err := r.Scan(&l.JobID, &l.TagID); err != nil {
					return err
				}
				have[l] = true
				return nil
			})
		if err != nil {
			return fmt.Errorf("select job tags: %w", err)
		}
	}

	var links []domain.JobTag
	for _, it := range s.items {
		jobID := s.jobs[s.keyOf(it)].current.ID
		for _, n := range it.tags {
			tagID, ok := s.tagIDs[n]
			if !ok {
				return fmt.Errorf("tag %q was not resolved", n)
			}
			l := domain.JobTag{JobID: jobID, TagID: tagID}
			if have[l] {
				continue
			}
			have[l] = true
			links = append(links, l)
		}
	}

	for _, c := range chunks(links, chunkSize) {
		ins := s.qb.Insert("job_tags").Columns("job_id", "tag_id")
		for _, l := range c {
			ins = ins.Values(l.JobID, l.TagID)
		}
		if err := s.exec(ins); err != nil {
			return fmt.Errorf("insert job tags: %w", err)
		}
	}
	s.stats.LinksCreated += len(links)
	return nil
}
