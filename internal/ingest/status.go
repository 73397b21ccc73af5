package ingest

import (
	"time"

	"jobsync-engine/internal/reconcile"
)

// SourceReport is the outcome of one adapter within a run.
type SourceReport struct {
	Source   string          `json:"source"`
	Fetched  int             `json:"fetched"`
	Filtered int             `json:"filtered"`
	Stats    reconcile.Stats `json:"stats"`
	Stage    string          `json:"stage,omitempty"`
	Error    string          `json:"error,omitempty"`
	Took     string          `json:"took"`
}

func (s SourceReport) OK() bool { return s.Error == "" }

type Report struct {
	RequestID  string          `json:"request_id,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Sources    []SourceReport  `json:"sources"`
	Totals     reconcile.Stats `json:"totals"`
	Failed     int             `json:"failed"`
}

type Status struct {
	LastRunAt  string  `json:"last_run_at"`
	LastOkAt   string  `json:"last_ok_at"`
	LastError  string  `json:"last_error"`
	Running    bool    `json:"running"`
	LastReport *Report `json:"last_report,omitempty"`
}
