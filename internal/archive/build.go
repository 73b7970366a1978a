// Package archive implements the reconciliation engine: it scans every
// container entry, classifies it, builds the raw item and metadata indices,
// and derives the consistency sets the check and migrate commands work from.
package archive

import (
	"context"
	"fmt"
	"sort"

	"github.com/dkhalperin/flickrmigrate/internal/classify"
	"github.com/dkhalperin/flickrmigrate/internal/containers"
	"github.com/dkhalperin/flickrmigrate/internal/logging"
	"github.com/dkhalperin/flickrmigrate/internal/models"
)

// Archive is the unified model of one export: the raw indices from the build
// phase plus every derived set. It is built once per run and read-only
// afterwards; the upload pipeline never mutates it.
type Archive struct {
	Containers *containers.Set
	AlbumsFile *models.ArchiveFile
	Items      map[int64]models.Item
	Metadata   map[int64]*models.ItemMetadata
	Extensions []string

	*Derived
}

type builder struct {
	set *containers.Set
	log logging.Logger

	nextUID    int64
	items      map[int64]models.Item
	metadata   map[int64]*models.ItemMetadata
	albumsFile *models.ArchiveFile
	exts       map[string]struct{}
}

// Build scans every entry of every container and reconciles the result.
// Classification problems (duplicate ids, unknown files) are logged and
// survive; failures to read or parse an entry are structural and abort.
func Build(ctx context.Context, set *containers.Set, log logging.Logger) (*Archive, error) {
	b := &builder{
		set:      set,
		log:      log,
		items:    make(map[int64]models.Item),
		metadata: make(map[int64]*models.ItemMetadata),
		exts:     make(map[string]struct{}),
	}

	err := set.Walk(func(file models.ArchiveFile) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return b.add(ctx, file)
	})
	if err != nil {
		return nil, err
	}

	var manifest *models.AlbumsManifest
	if b.albumsFile != nil {
		manifest = &models.AlbumsManifest{}
		if err := set.DecodeJSON(*b.albumsFile, manifest); err != nil {
			return nil, fmt.Errorf("albums manifest: %w", err)
		}
	}

	exts := make([]string, 0, len(b.exts))
	for ext := range b.exts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	return &Archive{
		Containers: set,
		AlbumsFile: b.albumsFile,
		Items:      b.items,
		Metadata:   b.metadata,
		Extensions: exts,
		Derived:    Reconcile(ctx, b.items, b.metadata, manifest, log),
	}, nil
}

func (b *builder) add(ctx context.Context, file models.ArchiveFile) error {
	res := classify.Path(file.Path)

	switch res.Kind {
	case classify.KindAlbums:
		if b.albumsFile != nil {
			b.log.Warn(ctx, "duplicate albums manifest, keeping the first",
				"kept", b.albumsFile.Path, "dropped_archive", file.ArchiveID)
			return nil
		}
		f := file
		b.albumsFile = &f

	case classify.KindMedia:
		uid := b.nextUID
		b.nextUID++
		for _, c := range res.Candidates {
			item := models.Item{ID: c.ID, UID: uid, Name: c.Name, Ext: c.Ext, File: file}
			if prev, ok := b.items[c.ID]; ok {
				// First write wins: a second file claiming an indexed id is
				// logged and dropped, not fatal.
				b.log.Warn(ctx, "duplicate item id, dropping the later file",
					"id", c.ID, "kept", prev.File.Path, "dropped", file.Path)
				continue
			}
			b.items[c.ID] = item
			b.exts[c.Ext] = struct{}{}
		}

	case classify.KindMetadata:
		if _, ok := b.metadata[res.MetaID]; ok {
			b.log.Warn(ctx, "duplicate item metadata, dropping the later file",
				"id", res.MetaID, "dropped", file.Path)
			return nil
		}
		data, err := b.set.ReadAll(file)
		if err != nil {
			return err
		}
		meta, err := models.ParseItemMetadata(res.MetaID, data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", file.Path, err)
		}
		b.metadata[res.MetaID] = meta

	case classify.KindIgnored:
		// Known auxiliary export file, intentionally skipped.

	default:
		b.log.Debug(ctx, "unknown file in archive", "archive", file.ArchiveID, "path", file.Path)
	}

	return nil
}
