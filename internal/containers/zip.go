// Package containers is the access layer over the export's zip archives.
// It resolves models.ArchiveFile references to entry bytes and sizes and
// carries no business logic.
package containers

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dkhalperin/flickrmigrate/internal/common"
	"github.com/dkhalperin/flickrmigrate/internal/models"
)

type container struct {
	path    string
	zr      *zip.ReadCloser
	entries map[string]*zip.File
}

// Set holds the open archive containers for one run. Archive ids are the
// positions of the paths passed to Open. Entries may be read any number of
// times; every read opens a fresh stream.
type Set struct {
	containers []*container
}

// Open opens every archive path as a zip container. The returned Set owns
// the handles until Close.
func Open(paths []string) (*Set, error) {
	s := &Set{}
	for _, path := range paths {
		zr, err := zip.OpenReader(path)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open archive %s: %w", path, err)
		}
		c := &container{path: path, zr: zr, entries: make(map[string]*zip.File, len(zr.File))}
		for _, f := range zr.File {
			c.entries[f.Name] = f
		}
		s.containers = append(s.containers, c)
	}
	return s, nil
}

// Close releases all archive handles.
func (s *Set) Close() {
	for _, c := range s.containers {
		_ = c.zr.Close()
	}
	s.containers = nil
}

// Len returns the number of open containers.
func (s *Set) Len() int { return len(s.containers) }

// Path returns the filesystem path of the given container.
func (s *Set) Path(archiveID int) string {
	if archiveID < 0 || archiveID >= len(s.containers) {
		return ""
	}
	return s.containers[archiveID].path
}

// Walk visits every entry of every container in deterministic order:
// containers in open order, entries sorted by name within a container.
func (s *Set) Walk(fn func(file models.ArchiveFile) error) error {
	for id, c := range s.containers {
		names := make([]string, 0, len(c.entries))
		for name := range c.entries {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := fn(models.ArchiveFile{ArchiveID: id, Path: name}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Set) entry(file models.ArchiveFile) (*zip.File, error) {
	if file.ArchiveID < 0 || file.ArchiveID >= len(s.containers) {
		return nil, fmt.Errorf("archive %d: %w", file.ArchiveID, common.ErrNotFound)
	}
	f, ok := s.containers[file.ArchiveID].entries[file.Path]
	if !ok {
		return nil, fmt.Errorf("entry %s in archive %d: %w", file.Path, file.ArchiveID, common.ErrNotFound)
	}
	return f, nil
}

// Open returns a fresh reader over the entry's bytes.
func (s *Set) Open(file models.ArchiveFile) (io.ReadCloser, error) {
	f, err := s.entry(file)
	if err != nil {
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", file.Path, err)
	}
	return rc, nil
}

// Size returns the uncompressed entry size. Some producers record zero for
// real payloads, so a zero declared size falls back to reading the entry
// once and measuring it.
func (s *Set) Size(file models.ArchiveFile) (int64, error) {
	f, err := s.entry(file)
	if err != nil {
		return 0, err
	}
	if f.UncompressedSize64 > 0 {
		return int64(f.UncompressedSize64), nil
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("open entry %s: %w", file.Path, err)
	}
	defer rc.Close()
	n, err := io.Copy(io.Discard, rc)
	if err != nil {
		return 0, fmt.Errorf("measure entry %s: %w", file.Path, err)
	}
	return n, nil
}

// ReadAll returns the full entry contents.
func (s *Set) ReadAll(file models.ArchiveFile) ([]byte, error) {
	rc, err := s.Open(file)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", file.Path, err)
	}
	return data, nil
}

// DecodeJSON parses the entry as JSON into v.
func (s *Set) DecodeJSON(file models.ArchiveFile, v any) error {
	data, err := s.ReadAll(file)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", file.Path, err)
	}
	return nil
}
