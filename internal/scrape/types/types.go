package types

import (
	"context"

	"jobsync-engine/internal/domain"
)

// Batch is everything one adapter produced in a single fetch.
type Batch struct {
	Source  string
	Records []domain.Record
}

// Adapter turns one listing site into normalized records.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) (Batch, error)
}
