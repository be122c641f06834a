package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liftdiag/internal/database"
)

const sourceSeparator = "\n"

func batchRow(b database.ImportBatch) []any {
	return []any{
		b.ID,
		b.ImportedAt.UTC(),
		strings.Join(b.Sources, sourceSeparator),
		int32(b.Installations),
		int32(b.Incidents),
		int32(b.SkippedRows),
		int32(b.DuplicateIncidents),
	}
}

const importColumns = "id, imported_at, sources, installations, incidents, skipped_rows, duplicate_incidents"

// LatestImport returns the most recent import batch, or ErrNoImport
func (s *Storage) LatestImport(ctx context.Context) (*database.ImportBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestImport(ctx)
}

func (s *Storage) latestImport(ctx context.Context) (*database.ImportBatch, error) {
	batches, err := s.listImports(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, ErrNoImport
	}
	return &batches[0], nil
}

// ListImports returns up to limit import batches, newest first
func (s *Storage) ListImports(ctx context.Context, limit int) ([]database.ImportBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listImports(ctx, limit)
}

func (s *Storage) listImports(ctx context.Context, limit int) ([]database.ImportBatch, error) {
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf("SELECT %s FROM import_batches ORDER BY imported_at DESC LIMIT %d", importColumns, limit)
	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	defer rows.Close()

	batches := []database.ImportBatch{}
	for rows.Next() {
		var b database.ImportBatch
		var sources string
		var importedAt time.Time
		var installations, incidents, skipped, duplicates int64
		if err := rows.Scan(&b.ID, &importedAt, &sources, &installations, &incidents, &skipped, &duplicates); err != nil {
			return nil, fmt.Errorf("failed to scan import batch: %w", err)
		}
		b.ImportedAt = importedAt.UTC()
		if sources != "" {
			b.Sources = strings.Split(sources, sourceSeparator)
		}
		b.Installations = int(installations)
		b.Incidents = int(incidents)
		b.SkippedRows = int(skipped)
		b.DuplicateIncidents = int(duplicates)
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate import batches: %w", err)
	}
	return batches, nil
}
