package parser

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FindFiles returns the spreadsheet files under root in lexical order. A
// root that is itself a file is returned as is when its extension is
// supported. Hidden files and office lock files ("~$...") are ignored.
func FindFiles(fs afero.Fs, root string, recursive bool) ([]string, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, NewFileError(root, "stat", "cannot access path", err)
	}

	if !info.IsDir() {
		if _, err := DetectFormat(root); err != nil {
			return nil, NewFileError(root, "detect", "unsupported extension "+filepath.Ext(root), err)
		}
		return []string{root}, nil
	}

	var files []string
	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if path != root && (!recursive || strings.HasPrefix(fi.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(fi.Name(), ".") || strings.HasPrefix(fi.Name(), "~$") {
			return nil
		}
		if _, err := DetectFormat(path); err == nil {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, NewFileError(root, "walk", "cannot list directory", err)
	}

	sort.Strings(files)
	return files, nil
}
