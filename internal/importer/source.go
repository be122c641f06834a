package importer

import (
	"bytes"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/liftdiag/internal/parser"
)

// Source is one spreadsheet to import. Open is called once, from a worker.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileSource reads path from fs
func FileSource(fs afero.Fs, path string) Source {
	return Source{
		Name: path,
		Open: func() (io.ReadCloser, error) {
			return fs.Open(path)
		},
	}
}

// BytesSource serves an in-memory upload
func BytesSource(name string, data []byte) Source {
	return Source{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// DiscoverSources lists the supported spreadsheets at root (a file or a
// directory) as sources, in name order
func DiscoverSources(fs afero.Fs, root string, recursive bool) ([]Source, error) {
	paths, err := parser.FindFiles(fs, root, recursive)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, FileSource(fs, filepath.Clean(p)))
	}
	return sources, nil
}
