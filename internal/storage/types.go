package storage

import (
	"context"
	"errors"

	"github.com/liftdiag/internal/database"
)

// ErrNoImport is returned when no snapshot has been imported yet
var ErrNoImport = errors.New("no import recorded")

// Snapshot is the persisted state of the last import
type Snapshot struct {
	// Batch is nil when the tables were never written by an import.
	Batch         *database.ImportBatch
	Installations []database.Installation
}

// Operations is the storage surface used by the report service and the importer
type Operations interface {
	ReplaceSnapshot(ctx context.Context, installations []database.Installation, batch database.ImportBatch) error
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	LatestImport(ctx context.Context) (*database.ImportBatch, error)
	ListImports(ctx context.Context, limit int) ([]database.ImportBatch, error)
	Ping(ctx context.Context) error
	Close() error
}

var _ Operations = (*Storage)(nil)
