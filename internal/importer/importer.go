package importer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liftdiag/internal/database"
	"github.com/liftdiag/internal/logging"
	"github.com/liftdiag/internal/parser"
)

// ErrNoSources is returned when an import is started without files
var ErrNoSources = errors.New("no source files to import")

// Sink receives the merged snapshot of a successful import
type Sink interface {
	Replace(ctx context.Context, installations []database.Installation, batch database.ImportBatch) error
}

// Options configures an Importer
type Options struct {
	// Workers bounds concurrent parsing; 0 means one per CPU
	Workers int
	// DryRun parses and merges without handing the snapshot to the sink
	DryRun  bool
	Verbose bool
}

// Job represents a file parsing job
type Job struct {
	Source Source
	JobID  int
}

// Result represents the result of parsing a job
type Result struct {
	JobID    int
	Source   string
	Parsed   *parser.ParseResult
	Error    error
	Duration time.Duration
}

// FileFailure records a source that could not be parsed
type FileFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// ImportError aborts an import when one or more sources failed. The stored
// snapshot is left untouched.
type ImportError struct {
	Failures []FileFailure
	errs     []error
}

func (e *ImportError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Source)
	}
	return fmt.Sprintf("%d source(s) failed to parse: %s", len(e.Failures), strings.Join(names, ", "))
}

// Unwrap exposes the individual parse errors to errors.Is and errors.As
func (e *ImportError) Unwrap() []error {
	return e.errs
}

// Summary describes a completed import
type Summary struct {
	Batch  database.ImportBatch `json:"batch"`
	DryRun bool                 `json:"dry_run"`

	Installations []database.Installation `json:"-"`
}

// Importer parses sources on a bounded worker pool and merges them, in
// input order, into one snapshot
type Importer struct {
	sink    Sink
	workers int
	dryRun  bool
	verbose bool
	now     func() time.Time
	newID   func() string
}

// New creates an Importer delivering snapshots to sink
func New(sink Sink, opts Options) *Importer {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Importer{
		sink:    sink,
		workers: workers,
		dryRun:  opts.DryRun,
		verbose: opts.Verbose,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Import parses every source and replaces the snapshot with the merged
// result. Any parse failure aborts the import before the sink is called.
func (im *Importer) Import(ctx context.Context, sources []Source) (*Summary, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	start := time.Now()
	results, err := im.parseAll(ctx, sources)
	if err != nil {
		return nil, err
	}

	importErr := &ImportError{}
	builder := parser.NewBuilder()
	for _, r := range results {
		if r.Error != nil {
			importErr.Failures = append(importErr.Failures, FileFailure{Source: r.Source, Error: r.Error.Error()})
			importErr.errs = append(importErr.errs, r.Error)
			continue
		}
		builder.Add(r.Parsed)
	}
	if len(importErr.Failures) > 0 {
		return nil, importErr
	}

	stats := builder.Stats()
	batch := database.ImportBatch{
		ID:                 im.newID(),
		ImportedAt:         im.now().UTC(),
		Sources:            make([]string, 0, len(sources)),
		Installations:      stats.Installations,
		Incidents:          stats.Incidents,
		SkippedRows:        stats.SkippedRows,
		DuplicateIncidents: stats.DuplicateIncidents,
	}
	for _, s := range sources {
		batch.Sources = append(batch.Sources, s.Name)
	}

	summary := &Summary{
		Batch:         batch,
		DryRun:        im.dryRun,
		Installations: builder.Installations(),
	}

	if !im.dryRun {
		if err := im.sink.Replace(ctx, summary.Installations, batch); err != nil {
			return nil, fmt.Errorf("failed to replace snapshot: %w", err)
		}
	}

	logging.Info("import complete",
		logging.ImportID(batch.ID),
		logging.Count("source", len(sources)),
		logging.Count("installation", stats.Installations),
		logging.Count("incident", stats.Incidents),
		logging.Count("skipped_row", stats.SkippedRows),
		logging.Count("duplicate", stats.DuplicateIncidents),
		logging.Duration("import", time.Since(start)),
		"dry_run", im.dryRun)

	return summary, nil
}

// parseAll returns one result per source, indexed like sources
func (im *Importer) parseAll(ctx context.Context, sources []Source) ([]Result, error) {
	jobs := make(chan Job, len(sources))
	results := make(chan Result, len(sources))

	workers := im.workers
	if workers > len(sources) {
		workers = len(sources)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go im.worker(ctx, i, jobs, results, &wg)
	}

	for i, s := range sources {
		jobs <- Job{Source: s, JobID: i}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]Result, len(sources))
	received := 0
	for r := range results {
		ordered[r.JobID] = r
		received++
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if received != len(sources) {
		return nil, fmt.Errorf("parsed %d of %d sources", received, len(sources))
	}
	return ordered, nil
}

// worker parses jobs until the channel closes or ctx is done
func (im *Importer) worker(ctx context.Context, workerID int, jobs <-chan Job, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()

	// A dedicated parser per worker keeps no state shared across goroutines.
	p := parser.New(im.verbose)

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			results <- im.parseJob(workerID, job, p)
		case <-ctx.Done():
			return
		}
	}
}

func (im *Importer) parseJob(workerID int, job Job, p *parser.Parser) Result {
	start := time.Now()
	result := Result{JobID: job.JobID, Source: job.Source.Name}

	rc, err := job.Source.Open()
	if err != nil {
		result.Error = parser.NewFileError(job.Source.Name, "open", "cannot open source", err)
		result.Duration = time.Since(start)
		logging.Error("source failed", logging.Worker(workerID), logging.Source(job.Source.Name), logging.Err(result.Error))
		return result
	}
	defer rc.Close()

	result.Parsed, result.Error = p.ParseReader(job.Source.Name, rc)
	result.Duration = time.Since(start)

	if result.Error != nil {
		logging.Error("source failed", logging.Worker(workerID), logging.Source(job.Source.Name), logging.Err(result.Error))
		return result
	}
	if im.verbose {
		logging.Debug("source parsed",
			logging.Worker(workerID),
			logging.Source(job.Source.Name),
			logging.Count("record", len(result.Parsed.Records)),
			logging.Duration("parse", result.Duration))
	}
	return result
}
