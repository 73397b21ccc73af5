package httpapi

import (
	"context"
	"sync/atomic"

	"jobsync-engine/internal/events"
	"jobsync-engine/internal/ingest"
	"jobsync-engine/internal/logger"
	"jobsync-engine/internal/store"
)

// Runner is the part of the ingest runner the API drives.
type Runner interface {
	RunOnce(ctx context.Context, reqID string) (ingest.Report, error)
	Status() ingest.Status
}

type Deps struct {
	DB  *store.DB
	Hub *events.Hub
	Log logger.Logger

	Runner Runner

	// CfgVal stores config.Config.
	CfgVal      *atomic.Value
	UserCfgPath string

	// BaseCtx bounds background runs started over HTTP.
	BaseCtx context.Context
}
