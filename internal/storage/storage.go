package storage

import (
	"context"

	"corePools/internal/model"
)

// Sink receives the merged core pools of a run.
type Sink interface {
	PutCorePools(ctx context.Context, snapshot model.Snapshot) error
}
