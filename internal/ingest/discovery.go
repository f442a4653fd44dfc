package ingest

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// isExportFile reports whether path has an importable extension.
func isExportFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json":
		return true
	}
	return false
}

// DiscoverFiles walks dir and returns every export file beneath
// it in lexical order. Hidden directories are not descended.
func DiscoverFiles(dir string) []string {
	var files []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && isExportFile(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files
}
