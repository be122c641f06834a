package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/logging"
)

// ReplaceSnapshot overwrites the stored installations and incidents and
// records the import batch. Order of installations and incidents is kept.
func (s *Storage) ReplaceSnapshot(ctx context.Context, installations []database.Installation, batch database.ImportBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	conn := s.db.Conn()

	for _, table := range []string{database.TableIncidents, database.TableInstallations} {
		if _, err := conn.ExecContext(ctx, s.db.ClearStatement(table)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	instRows := make([][]any, 0, len(installations))
	var incRows [][]any
	for i, inst := range installations {
		commissioned, hasCommissioned := database.StoredDate(inst.CommissionedOn)
		instRows = append(instRows, []any{
			int32(i), inst.ID, inst.Name, inst.DependencyGroup,
			commissioned, hasCommissioned, inst.CommissionedRaw,
		})
		for j, inc := range inst.Incidents {
			occurred, hasOccurred := database.StoredDate(inc.OccurredOn)
			incRows = append(incRows, []any{
				int32(i), int32(j), inst.ID, inc.ID, inc.Description,
				occurred, hasOccurred, inc.OccurredRaw, inc.Category,
			})
		}
	}

	if err := s.insertRows(ctx, database.TableInstallations, database.InstallationColumns, instRows); err != nil {
		return err
	}
	if err := s.insertRows(ctx, database.TableIncidents, database.IncidentColumns, incRows); err != nil {
		return err
	}
	if err := s.insertRows(ctx, database.TableImportBatches, database.ImportBatchColumns, [][]any{batchRow(batch)}); err != nil {
		return err
	}

	logging.Info("snapshot stored",
		logging.ImportID(batch.ID),
		logging.Count("installation", len(instRows)),
		logging.Count("incident", len(incRows)),
		logging.Duration("store", time.Since(start)))
	return nil
}

// LoadSnapshot reads the stored installations with their incidents and the
// latest import batch
func (s *Storage) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	installations, err := s.loadInstallations(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(installations))
	for i, inst := range installations {
		index[inst.ID] = i
	}

	rows, err := s.query(ctx, `
		SELECT installation_id, id, description, occurred_on, has_occurred_on, occurred_raw, category
		FROM incidents
		ORDER BY installation_position, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load incidents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			installationID string
			inc            database.Incident
			occurred       time.Time
			hasOccurred    bool
		)
		if err := rows.Scan(&installationID, &inc.ID, &inc.Description, &occurred, &hasOccurred, &inc.OccurredRaw, &inc.Category); err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		inc.OccurredOn = database.LoadedDate(occurred, hasOccurred)

		i, ok := index[installationID]
		if !ok {
			logging.Warn("incident without installation", logging.Installation(installationID))
			continue
		}
		installations[i].Incidents = append(installations[i].Incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate incidents: %w", err)
	}

	batch, err := s.latestImport(ctx)
	if err != nil && !errors.Is(err, ErrNoImport) {
		return nil, err
	}

	return &Snapshot{Batch: batch, Installations: installations}, nil
}

func (s *Storage) loadInstallations(ctx context.Context) ([]database.Installation, error) {
	rows, err := s.query(ctx, `
		SELECT id, name, dependency_group, commissioned_on, has_commissioned_on, commissioned_raw
		FROM installations
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load installations: %w", err)
	}
	defer rows.Close()

	installations := []database.Installation{}
	for rows.Next() {
		var (
			inst            database.Installation
			commissioned    time.Time
			hasCommissioned bool
		)
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.DependencyGroup, &commissioned, &hasCommissioned, &inst.CommissionedRaw); err != nil {
			return nil, fmt.Errorf("failed to scan installation: %w", err)
		}
		inst.CommissionedOn = database.LoadedDate(commissioned, hasCommissioned)
		inst.Incidents = []database.Incident{}
		installations = append(installations, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate installations: %w", err)
	}
	return installations, nil
}
