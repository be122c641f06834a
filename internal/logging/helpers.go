package logging

import (
	"log/slog"
	"time"
)

// Common field helpers for consistent structured logging

// Installation creates installation id field
func Installation(id string) slog.Attr {
	return slog.String("installation_id", id)
}

// ImportID creates import batch id field
func ImportID(id string) slog.Attr {
	return slog.String("import_id", id)
}

// Source creates source file field
func Source(name string) slog.Attr {
	return slog.String("source", name)
}

// Duration logs duration in milliseconds
func Duration(name string, d time.Duration) slog.Attr {
	return slog.Int64(name+"_ms", d.Milliseconds())
}

// Err creates error field
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Count creates count field
func Count(name string, count int) slog.Attr {
	return slog.Int(name+"_count", count)
}

// Database creates database operation fields
func Database(operation, table string) []any {
	return []any{
		slog.String("db_operation", operation),
		slog.String("db_table", table),
	}
}

// HTTP creates HTTP request fields
func HTTP(method, path string, status int) []any {
	return []any{
		slog.String("http_method", method),
		slog.String("http_path", path),
		slog.Int("http_status", status),
	}
}

// Worker creates worker ID field
func Worker(id int) slog.Attr {
	return slog.Int("worker_id", id)
}

// CacheKey creates cache key field
func CacheKey(key string) slog.Attr {
	return slog.String("cache_key", key)
}
