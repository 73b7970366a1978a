package models

// Upload-state statuses. Rows only ever move forward: an album goes
// pending → created, an (item, album) pair goes pending → uploaded, and a
// completed row is skipped on reruns.
const (
	StatusPending  = "pending"
	StatusUploaded = "uploaded"
	StatusCreated  = "created"
)

// NoAlbum is the album-id value for items uploaded outside any album.
// The state store keys on (item_id, album_id), so "no album" is an empty
// string rather than NULL to keep the primary key simple.
const NoAlbum = ""

// ItemUpload is one persisted (item, album) upload row.
type ItemUpload struct {
	ItemID   int64
	AlbumID  string
	Status   string
	RemoteID string
}

// AlbumUpload is one persisted album-creation row.
type AlbumUpload struct {
	AlbumID  string
	Status   string
	RemoteID string
}
