package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/liftdiag/internal/analytics"
	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/logging"
	"github.com/liftdiag/internal/storage"
)

var (
	// ErrNoSnapshot is returned before the first successful Reload or Replace
	ErrNoSnapshot = errors.New("no snapshot loaded")
	// ErrNotFound is returned for an installation id absent from the view
	ErrNotFound = errors.New("installation not found")
)

// Snapshot is an immutable view of one import. It is never modified after
// being published; a new import publishes a new Snapshot.
type Snapshot struct {
	ImportID      string
	ImportedAt    time.Time
	LoadedAt      time.Time
	Sources       []string
	Installations []database.Installation
}

// Version identifies the snapshot in cache keys
func (s *Snapshot) Version() string {
	if s.ImportID != "" {
		return s.ImportID
	}
	return "loaded-" + strconv.FormatInt(s.LoadedAt.UnixNano(), 36)
}

// Info summarizes the snapshot for health and dashboard payloads
func (s *Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		ImportID:      s.ImportID,
		ImportedAt:    s.ImportedAt,
		LoadedAt:      s.LoadedAt,
		Sources:       s.Sources,
		Installations: len(s.Installations),
		Incidents:     database.TotalIncidents(s.Installations),
	}
}

// Provider is the read and write surface consumed by the HTTP API
type Provider interface {
	Dashboard(ctx context.Context, f analytics.Filter) (*Dashboard, error)
	Groups(ctx context.Context, f analytics.Filter) ([]analytics.DependencyGroup, error)
	Installation(ctx context.Context, id string, f analytics.Filter) (*InstallationDetail, error)
	Timeline(ctx context.Context, f analytics.Filter) (*Timeline, error)
	Stats(ctx context.Context, f analytics.Filter) (*analytics.Summary, error)
	Imports(ctx context.Context, limit int) ([]database.ImportBatch, error)
	Replace(ctx context.Context, installations []database.Installation, batch database.ImportBatch) error
	Reload(ctx context.Context) error
	Info() (SnapshotInfo, bool)
}

// Service keeps the current snapshot in memory and derives views from it.
// Every request works on the snapshot that was current when it started.
type Service struct {
	store   storage.Operations
	current atomic.Pointer[Snapshot]
	now     func() time.Time

	// mu orders store writes and loads with their publish, so the
	// published snapshot always matches the last one stored.
	mu sync.Mutex
}

var _ Provider = (*Service)(nil)

// NewService creates a Service backed by store. Call Reload to load the
// persisted snapshot.
func NewService(store storage.Operations) *Service {
	return &Service{store: store, now: time.Now}
}

// Current returns the published snapshot or ErrNoSnapshot
func (s *Service) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Info returns the published snapshot summary
func (s *Service) Info() (SnapshotInfo, bool) {
	snap := s.current.Load()
	if snap == nil {
		return SnapshotInfo{}, false
	}
	return snap.Info(), true
}

// Reload replaces the in-memory snapshot with the persisted one
func (s *Service) Reload(ctx context.Context) error {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	snap := &Snapshot{
		LoadedAt:      s.now().UTC(),
		Installations: stored.Installations,
	}
	if stored.Batch != nil {
		snap.ImportID = stored.Batch.ID
		snap.ImportedAt = stored.Batch.ImportedAt
		snap.Sources = stored.Batch.Sources
	}
	s.current.Store(snap)

	logging.Info("snapshot loaded",
		logging.ImportID(snap.ImportID),
		logging.Count("installation", len(snap.Installations)),
		logging.Duration("load", time.Since(start)))
	return nil
}

// Replace persists installations as the new snapshot and publishes it
func (s *Service) Replace(ctx context.Context, installations []database.Installation, batch database.ImportBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ReplaceSnapshot(ctx, installations, batch); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	s.current.Store(&Snapshot{
		ImportID:      batch.ID,
		ImportedAt:    batch.ImportedAt,
		LoadedAt:      s.now().UTC(),
		Sources:       batch.Sources,
		Installations: installations,
	})
	return nil
}

// Imports lists the recorded import batches, newest first
func (s *Service) Imports(ctx context.Context, limit int) ([]database.ImportBatch, error) {
	return s.store.ListImports(ctx, limit)
}

func (s *Service) Dashboard(ctx context.Context, f analytics.Filter) (*Dashboard, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	return BuildDashboard(snap, f), nil
}

func (s *Service) Groups(ctx context.Context, f analytics.Filter) ([]analytics.DependencyGroup, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	return analytics.GroupByDependency(f.Apply(snap.Installations)), nil
}

func (s *Service) Timeline(ctx context.Context, f analytics.Filter) (*Timeline, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	timeline := BuildTimeline(f.Apply(snap.Installations))
	return &timeline, nil
}

func (s *Service) Stats(ctx context.Context, f analytics.Filter) (*analytics.Summary, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}
	summary := analytics.Summarize(f.Apply(snap.Installations))
	return &summary, nil
}

// Installation returns the detail of one installation. The filter's scope
// and date range apply; its term does not.
func (s *Service) Installation(ctx context.Context, id string, f analytics.Filter) (*InstallationDetail, error) {
	snap, err := s.Current()
	if err != nil {
		return nil, err
	}

	id = strings.TrimSpace(id)
	f.Term = ""
	for _, inst := range f.Apply(snap.Installations) {
		if strings.EqualFold(inst.ID, id) {
			return BuildInstallationDetail(inst), nil
		}
	}
	return nil, ErrNotFound
}
