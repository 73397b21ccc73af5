// Package ingest runs adapters and feeds their batches to the
// reconciliation engine, one batch at a time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"jobsync-engine/internal/domain"
	"jobsync-engine/internal/events"
	"jobsync-engine/internal/logger"
	"jobsync-engine/internal/reconcile"
	"jobsync-engine/internal/scrape"
	"jobsync-engine/internal/scrape/types"
)

var ErrRunInProgress = errors.New("ingest: a run is already in progress")

// Syncer applies one batch atomically.
type Syncer interface {
	Sync(ctx context.Context, source string, records []domain.Record) (reconcile.Stats, error)
}

type Options struct {
	Adapters []types.Adapter
	Syncer   Syncer
	Filter   scrape.Filter
	Hub      *events.Hub
	Log      logger.Logger

	// LockPath names a file used to keep runs from separate processes
	// apart. Empty disables the cross-process lock.
	LockPath     string
	FetchTimeout time.Duration
	SyncTimeout  time.Duration
}

type Runner struct {
	opts   Options
	log    logger.Logger
	mu     sync.Mutex
	lock   *flock.Flock
	status atomic.Value // Status
}

func NewRunner(opts Options) *Runner {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Minute
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = 2 * time.Minute
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	r := &Runner{opts: opts, log: log.With("component", "ingest")}
	if opts.LockPath != "" {
		r.lock = flock.New(opts.LockPath)
	}
	r.status.Store(Status{})
	return r
}

func (r *Runner) Status() Status {
	return r.status.Load().(Status)
}

func (r *Runner) updateStatus(fn func(*Status)) {
	st := r.Status()
	fn(&st)
	r.status.Store(st)
}

// RunOnce fetches every adapter concurrently and then syncs the batches
// one after another. A failing source does not stop the others; the
// returned error joins every source failure.
func (r *Runner) RunOnce(ctx context.Context, reqID string) (Report, error) {
	if !r.mu.TryLock() {
		return Report{}, ErrRunInProgress
	}
	defer r.mu.Unlock()

	if r.lock != nil {
		ok, err := r.lock.TryLock()
		if err != nil {
			return Report{}, fmt.Errorf("ingest: run lock: %w", err)
		}
		if !ok {
			return Report{}, ErrRunInProgress
		}
		defer func() { _ = r.lock.Unlock() }()
	}

	rep := Report{RequestID: reqID, StartedAt: time.Now().UTC()}
	r.updateStatus(func(st *Status) {
		st.Running = true
		st.LastRunAt = rep.StartedAt.Format(time.RFC3339)
	})
	r.opts.Hub.Emit(reqID, events.TypeRunStarted, map[string]any{"sources": len(r.opts.Adapters)})
	r.log.Info("run started", "request_id", reqID, "sources", len(r.opts.Adapters))

	batches, fetchErrs := r.fetchAll(ctx)

	var errs []error
	for i, a := range r.opts.Adapters {
		sr, err := r.syncOne(ctx, a.Name(), batches[i], fetchErrs[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
			rep.Failed++
		}
		rep.Totals.Add(sr.Stats)
		rep.Sources = append(rep.Sources, sr)
		r.opts.Hub.Emit(reqID, events.TypeBatchSynced, sr)
	}
	rep.FinishedAt = time.Now().UTC()
	runErr := errors.Join(errs...)

	r.updateStatus(func(st *Status) {
		st.Running = false
		st.LastReport = &rep
		if runErr != nil {
			st.LastError = runErr.Error()
			return
		}
		st.LastError = ""
		st.LastOkAt = rep.FinishedAt.Format(time.RFC3339)
	})
	r.opts.Hub.Emit(reqID, events.TypeRunFinished, rep)
	r.log.Info("run finished",
		"request_id", reqID,
		"failed", rep.Failed,
		"jobs_created", rep.Totals.JobsCreated,
		"jobs_updated", rep.Totals.JobsUpdated,
		"took", rep.FinishedAt.Sub(rep.StartedAt).String(),
	)
	return rep, runErr
}

func (r *Runner) fetchAll(ctx context.Context) ([]types.Batch, []error) {
	n := len(r.opts.Adapters)
	batches := make([]types.Batch, n)
	errs := make([]error, n)

	var g errgroup.Group
	for i, a := range r.opts.Adapters {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
			defer cancel()

			r.log.Debug("fetching", "source", a.Name())
			b, err := a.Fetch(fctx)
			if err != nil {
				r.log.Error("fetch failed", "source", a.Name(), "err", err)
				// best-effort: siblings keep going
				errs[i] = err
				return nil
			}
			batches[i] = b
			return nil
		})
	}
	_ = g.Wait()
	return batches, errs
}

func (r *Runner) syncOne(ctx context.Context, name string, b types.Batch, fetchErr error) (SourceReport, error) {
	start := time.Now()
	sr := SourceReport{Source: name, Fetched: len(b.Records)}

	if fetchErr != nil {
		sr.Stage = "fetch"
		sr.Error = fetchErr.Error()
		sr.Took = time.Since(start).String()
		return sr, fetchErr
	}

	source := b.Source
	if source == "" {
		source = name
	}
	kept, dropped := r.opts.Filter.Apply(b.Records)
	sr.Filtered = len(b.Records) - len(kept)
	if sr.Filtered > 0 {
		r.log.Info("filtered records", "source", source, "dropped", dropped)
	}

	sctx, cancel := context.WithTimeout(ctx, r.opts.SyncTimeout)
	defer cancel()
	stats, err := r.opts.Syncer.Sync(sctx, source, kept)
	sr.Took = time.Since(start).String()
	if err != nil {
		sr.Stage = "sync"
		var serr *reconcile.SyncError
		if errors.As(err, &serr) {
			sr.Stage = string(serr.Stage)
		}
		sr.Error = err.Error()
		return sr, err
	}
	sr.Stats = stats
	return sr, nil
}
