// Package models defines the logical model reconstructed from a Flickr
// export: archive entries, media items, their metadata and albums, plus the
// persisted upload-state rows.
package models

// ArchiveFile points at a single entry inside one of the export containers.
// It never owns data; bytes are resolved lazily through the container layer.
type ArchiveFile struct {
	ArchiveID int
	Path      string
}

// Item is one media file discovered in a container.
//
// UID is a locally-unique sequence number. When the filename pattern is
// ambiguous (the name part is purely numeric) two candidate Items are
// produced with id and name swapped; both share the same UID, so any of
// them being matched to metadata covers the underlying file.
type Item struct {
	ID   int64
	UID  int64
	Name string
	Ext  string
	File ArchiveFile
}

// ItemWithMetadata pairs an Item with its metadata record. It exists only
// for ids present in both the item and the metadata indices.
type ItemWithMetadata struct {
	Item Item
	Meta *ItemMetadata
}
