package reconcile

import "fmt"

// SyncError reports a batch that was rolled back. Nothing from the batch
// was persisted.
type SyncError struct {
	Source  string
	Records int
	Stage   Stage
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s (%d records) failed at %s: %v", e.Source, e.Records, e.Stage, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
