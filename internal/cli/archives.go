package cli

import (
	"bytes"
	"os"
	"path/filepath"
)

var zipMagic = []byte("PK\x03\x04")

// ListArchives expands the globs and splits the matches into zip archives
// and wrong paths (missing files, directories, non-zip files).
func ListArchives(globs []string) (paths []string, wrongPaths []string) {
	for _, pattern := range globs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			wrongPaths = append(wrongPaths, pattern)
			continue
		}
		for _, path := range matches {
			if isZipFile(path) {
				paths = append(paths, path)
			} else {
				wrongPaths = append(wrongPaths, path)
			}
		}
	}
	return paths, wrongPaths
}

func isZipFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	magic := make([]byte, len(zipMagic))
	if _, err := f.Read(magic); err != nil {
		return false
	}
	return bytes.Equal(magic, zipMagic)
}
