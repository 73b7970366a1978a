// Package state is the durable upload state store: the sole source of truth
// for "has this item/album already been migrated".
package state

import (
	"context"

	"github.com/dkhalperin/flickrmigrate/internal/models"
)

// Repository describes the persisted upload-state operations. All mutating
// operations are idempotent; status values only ever move forward
// (pending → uploaded/created) and rows are never deleted.
type Repository interface {
	// GetAlbum returns the album row, or nil when no row exists yet.
	GetAlbum(ctx context.Context, albumID string) (*models.AlbumUpload, error)

	// UpsertAlbumPending creates a pending album row; a no-op when the row
	// already exists.
	UpsertAlbumPending(ctx context.Context, albumID string) error

	// MarkAlbumCreated records the remote album id for a pending row.
	MarkAlbumCreated(ctx context.Context, albumID, remoteID string) error

	// GetItem returns the (item, album) row, or nil when no row exists yet.
	// models.NoAlbum addresses the no-album row.
	GetItem(ctx context.Context, itemID int64, albumID string) (*models.ItemUpload, error)

	// UpsertItemPending creates a pending item row; a no-op when the row
	// already exists.
	UpsertItemPending(ctx context.Context, itemID int64, albumID string) error

	// MarkItemUploaded records the remote media id for a pending row.
	MarkItemUploaded(ctx context.Context, itemID int64, albumID, remoteID string) error

	// SaveToken replaces the single stored credential blob wholesale.
	SaveToken(ctx context.Context, token []byte) error

	// LoadToken returns the stored credential blob, or nil when absent.
	LoadToken(ctx context.Context) ([]byte, error)
}
