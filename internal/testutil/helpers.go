package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/liftdiag/internal/database"
)

// TempFile writes content to name inside a fresh temp dir and returns its path
func TempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

// WriteFiles creates files (relative path → content) under dir
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create dir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
}

// AssertNoError is a helper to check error is nil
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// AssertError is a helper to check error is not nil
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error but got nil", msg)
	}
}

// AssertEqual is a generic equality assertion
func AssertEqual[T comparable](t *testing.T, expected, actual T, msg string) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// TimeEqual compares two times with tolerance
func TimeEqual(t *testing.T, expected, actual time.Time, tolerance time.Duration, msg string) {
	t.Helper()
	diff := expected.Sub(actual)
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		t.Errorf("%s: times differ by %v (tolerance: %v)\n  expected: %s\n  actual:   %s",
			msg, diff, tolerance, expected.Format(time.RFC3339), actual.Format(time.RFC3339))
	}
}

// InstallationEqual compares the identity fields and incident ids of two installations
func InstallationEqual(t *testing.T, expected, actual database.Installation, msg string) {
	t.Helper()
	if expected.ID != actual.ID ||
		expected.Name != actual.Name ||
		expected.DependencyGroup != actual.DependencyGroup ||
		!expected.CommissionedOn.Equal(actual.CommissionedOn) ||
		len(expected.Incidents) != len(actual.Incidents) {
		t.Errorf("%s: installations not equal\n  expected: %s %q (%s) %s, %d incidents\n  actual:   %s %q (%s) %s, %d incidents",
			msg,
			expected.ID, expected.Name, expected.DependencyGroup, expected.CommissionedRaw, len(expected.Incidents),
			actual.ID, actual.Name, actual.DependencyGroup, actual.CommissionedRaw, len(actual.Incidents))
		return
	}
	for i := range expected.Incidents {
		if expected.Incidents[i].ID != actual.Incidents[i].ID {
			t.Errorf("%s: incident %d: expected %s, got %s", msg, i, expected.Incidents[i].ID, actual.Incidents[i].ID)
		}
	}
}

// SkipIfShort skips test if running in short mode
func SkipIfShort(t *testing.T, reason string) {
	t.Helper()
	if testing.Short() {
		t.Skipf("Skipping in short mode: %s", reason)
	}
}
