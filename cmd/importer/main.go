package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/liftdiag/internal/config"
	"github.com/liftdiag/internal/importer"
	"github.com/liftdiag/internal/logging"
	"github.com/liftdiag/internal/report"
	"github.com/liftdiag/internal/storage"
	"github.com/liftdiag/internal/version"
)

func main() {
	// Command line flags
	var (
		configPath  = flag.String("config", "config.yaml", "Path to configuration file")
		path        = flag.String("path", "", "Spreadsheet file or directory (defaults to import.paths)")
		recursive   = flag.Bool("recursive", false, "Scan directories recursively")
		workers     = flag.Int("workers", 0, "Number of concurrent parsers (0 = config or one per CPU)")
		dryRun      = flag.Bool("dry-run", false, "Parse and merge without replacing the stored snapshot")
		verbose     = flag.Bool("verbose", false, "Verbose output")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("LiftDiag Importer %s\n", version.GetFullVersionInfo())
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCfg := cfg.ImporterLogging.ToLogging()
	if *verbose {
		logCfg.Level = "debug"
	}
	if err := logging.Initialize(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	paths := cfg.Import.Paths
	if *path != "" {
		paths = []string{*path}
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "Error: -path is required when import.paths is empty\n")
		flag.Usage()
		os.Exit(1)
	}
	if *workers <= 0 {
		*workers = cfg.Import.Workers
	}

	fs := afero.NewOsFs()
	var sources []importer.Source
	for _, p := range paths {
		found, err := importer.DiscoverSources(fs, p, *recursive || cfg.Import.Recursive)
		if err != nil {
			logging.Fatalf("Failed to find spreadsheets in %s: %v", p, err)
		}
		sources = append(sources, found...)
	}
	if len(sources) == 0 {
		fmt.Printf("No spreadsheets found in: %v\n", paths)
		return
	}

	fmt.Println("LiftDiag Importer")
	fmt.Println("=================")
	fmt.Printf("Storage: %s\n", cfg.Storage.Driver)
	fmt.Printf("Files: %d\n", len(sources))
	if *verbose {
		for i, s := range sources {
			fmt.Printf("  %d: %s\n", i+1, filepath.Base(s.Name))
		}
	}
	fmt.Printf("Dry run: %t\n", *dryRun)
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink importer.Sink
	if !*dryRun {
		driver, dbConfig, err := cfg.Storage.DatabaseConfig()
		if err != nil {
			logging.Fatalf("Invalid storage configuration: %v", err)
		}
		store, err := storage.Open(driver, dbConfig)
		if err != nil {
			logging.Fatalf("Failed to initialize storage: %v", err)
		}
		defer store.Close()
		sink = report.NewService(store)
	}

	start := time.Now()
	imp := importer.New(sink, importer.Options{
		Workers: *workers,
		DryRun:  *dryRun,
		Verbose: *verbose,
	})
	summary, err := imp.Import(ctx, sources)
	if err != nil {
		var importErr *importer.ImportError
		if errors.As(err, &importErr) {
			fmt.Fprintln(os.Stderr, "Import aborted, stored snapshot left untouched:")
			for _, f := range importErr.Failures {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Source, f.Error)
			}
			os.Exit(1)
		}
		logging.Fatalf("Import failed: %v", err)
	}

	b := summary.Batch
	fmt.Println("Import completed!")
	fmt.Printf("Batch: %s\n", b.ID)
	fmt.Printf("Installations: %d\n", b.Installations)
	fmt.Printf("Incidents: %d\n", b.Incidents)
	fmt.Printf("Skipped rows: %d\n", b.SkippedRows)
	fmt.Printf("Duplicate incidents: %d\n", b.DuplicateIncidents)
	fmt.Printf("Processing time: %v\n", time.Since(start))
	if !summary.DryRun {
		fmt.Println("Running servers pick up the new snapshot on POST /api/reload")
	}
}
