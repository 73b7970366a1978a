package archive

import (
	"context"
	"sort"
	"strconv"

	"github.com/dkhalperin/flickrmigrate/internal/logging"
	"github.com/dkhalperin/flickrmigrate/internal/models"
)

// sentinelPhotoID is a known-invalid member id that album manifests carry
// for photos deleted before export. It is dropped without being reported.
const sentinelPhotoID = "0"

// Derived holds every collection computed from the raw item and metadata
// indices. All slices are sorted, so identical inputs always produce
// identical derived sets.
type Derived struct {
	// Matched pairs every id present in both indices.
	Matched map[int64]models.ItemWithMetadata

	// WithoutMetadata lists items whose id has no metadata record and whose
	// uid has no matched sibling candidate either.
	WithoutMetadata []models.Item

	// WithoutItems lists metadata ids with no discovered media file,
	// excluding unprocessed-video placeholders.
	WithoutItems []int64

	// UnprocessedVideos indexes metadata records whose original is the
	// never-exported video placeholder.
	UnprocessedVideos map[int64]*models.ItemMetadata

	// Albums is the accepted album list in ascending creation order.
	Albums []models.Album

	// MissedInAlbums and WrongInAlbums record referential inconsistencies
	// per album id: members absent from Matched, and malformed member ids.
	MissedInAlbums map[string][]string
	WrongInAlbums  map[string][]string

	// ItemToAlbums is the transpose of album membership over matched items.
	ItemToAlbums map[int64][]string

	// ItemsWithoutAlbums lists matched items that no album references.
	ItemsWithoutAlbums []models.Item
}

// Reconcile computes every derived collection from the two raw indices and
// the optional albums manifest. It is pure set algebra: no container I/O,
// which keeps it testable from literal maps.
func Reconcile(ctx context.Context, items map[int64]models.Item, metadata map[int64]*models.ItemMetadata, manifest *models.AlbumsManifest, log logging.Logger) *Derived {
	d := &Derived{
		Matched:           make(map[int64]models.ItemWithMetadata),
		UnprocessedVideos: make(map[int64]*models.ItemMetadata),
		MissedInAlbums:    make(map[string][]string),
		WrongInAlbums:     make(map[string][]string),
		ItemToAlbums:      make(map[int64][]string),
	}

	for id, meta := range metadata {
		if meta.IsUnprocessedVideo() {
			d.UnprocessedVideos[id] = meta
		}
	}

	for id, item := range items {
		if meta, ok := metadata[id]; ok {
			d.Matched[id] = models.ItemWithMetadata{Item: item, Meta: meta}
		}
	}

	// A matched candidate covers every other candidate derived from the
	// same file, so uid matches count as "has metadata".
	matchedUIDs := make(map[int64]struct{}, len(d.Matched))
	for _, m := range d.Matched {
		matchedUIDs[m.Item.UID] = struct{}{}
	}

	for _, id := range sortedItemIDs(items) {
		item := items[id]
		if _, ok := metadata[id]; ok {
			continue
		}
		if _, ok := matchedUIDs[item.UID]; ok {
			continue
		}
		d.WithoutMetadata = append(d.WithoutMetadata, item)
	}

	for _, id := range sortedMetadataIDs(metadata) {
		if _, ok := items[id]; ok {
			continue
		}
		if metadata[id].IsUnprocessedVideo() {
			continue
		}
		d.WithoutItems = append(d.WithoutItems, id)
	}

	if manifest != nil {
		d.reconcileAlbums(ctx, manifest, metadata, log)
	}

	for _, id := range sortedMatchedIDs(d.Matched) {
		if _, ok := d.ItemToAlbums[id]; !ok {
			d.ItemsWithoutAlbums = append(d.ItemsWithoutAlbums, d.Matched[id].Item)
		}
	}

	return d
}

func (d *Derived) reconcileAlbums(ctx context.Context, manifest *models.AlbumsManifest, metadata map[int64]*models.ItemMetadata, log logging.Logger) {
	seen := make(map[string]struct{}, len(manifest.Albums))

	for _, album := range manifest.Albums {
		if _, ok := seen[album.ID]; ok {
			log.Warn(ctx, "duplicate album definition, keeping the first", "album", album.ID, "title", album.Title)
			continue
		}
		seen[album.ID] = struct{}{}
		d.Albums = append(d.Albums, album)

		for _, photoID := range album.Photos {
			if photoID == sentinelPhotoID {
				continue
			}
			id, err := strconv.ParseInt(photoID, 10, 64)
			if err != nil {
				d.WrongInAlbums[album.ID] = append(d.WrongInAlbums[album.ID], photoID)
				continue
			}
			if meta, ok := metadata[id]; ok && meta.IsUnprocessedVideo() {
				// Expected to be absent from the matched set.
				continue
			}
			if _, ok := d.Matched[id]; !ok {
				d.MissedInAlbums[album.ID] = append(d.MissedInAlbums[album.ID], photoID)
				continue
			}
			d.ItemToAlbums[id] = append(d.ItemToAlbums[id], album.ID)
		}
	}

	sort.SliceStable(d.Albums, func(i, j int) bool {
		a, b := &d.Albums[i], &d.Albums[j]
		if a.CreatedUnix() != b.CreatedUnix() {
			return a.CreatedUnix() < b.CreatedUnix()
		}
		return a.ID < b.ID
	})
}

func sortedItemIDs(items map[int64]models.Item) []int64 {
	ids := make([]int64, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedMetadataIDs(metadata map[int64]*models.ItemMetadata) []int64 {
	ids := make([]int64, 0, len(metadata))
	for id := range metadata {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedMatchedIDs(matched map[int64]models.ItemWithMetadata) []int64 {
	ids := make([]int64, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
