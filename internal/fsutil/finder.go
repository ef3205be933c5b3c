// Package fsutil provides the file system helpers the pipeline needs:
// discovery, placeholder creation, verbatim copies and tolerant deletes.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// FindFiles walks root and returns the paths of every regular file for which
// match returns true, in lexical order.
func FindFiles(root string, match func(path string, d fs.DirEntry) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && match(path, d) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// FindFilesByExtension recursively searches root for files ending with
// extension.
func FindFilesByExtension(root string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}
	return FindFiles(root, func(_ string, d fs.DirEntry) bool {
		return strings.HasSuffix(d.Name(), extension)
	})
}
