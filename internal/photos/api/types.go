// Package api provides the wire types of the remote photo library service.
package api

import "fmt"

// ErrorDetails is the internals of the Error type.
type ErrorDetails struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Error is returned by the service on failed JSON calls.
type Error struct {
	Details ErrorDetails `json:"error"`
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Details.Message, e.Details.Code, e.Details.Status)
}

// Album of photos.
type Album struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	ProductURL  string `json:"productUrl,omitempty"`
	IsWriteable bool   `json:"isWriteable,omitempty"`
}

// CreateAlbumRequest creates an Album.
type CreateAlbumRequest struct {
	Album *Album `json:"album"`
}

// MediaItem is a photo or video known to the service.
type MediaItem struct {
	ID         string `json:"id"`
	ProductURL string `json:"productUrl"`
	MimeType   string `json:"mimeType"`
	Filename   string `json:"filename"`
}

// SimpleMediaItem is part of NewMediaItem.
type SimpleMediaItem struct {
	UploadToken string `json:"uploadToken"`
}

// NewMediaItem is a single media item for creation from an upload token.
type NewMediaItem struct {
	Description     string          `json:"description"`
	SimpleMediaItem SimpleMediaItem `json:"simpleMediaItem"`
}

// BatchCreateRequest creates media items from upload tokens, optionally
// inside an album.
type BatchCreateRequest struct {
	AlbumID       string         `json:"albumId,omitempty"`
	NewMediaItems []NewMediaItem `json:"newMediaItems"`
}

// NewMediaItemResult is one entry of a BatchCreateResponse.
type NewMediaItemResult struct {
	UploadToken string `json:"uploadToken"`
	Status      struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"status"`
	MediaItem MediaItem `json:"mediaItem"`
}

// BatchCreateResponse is returned from BatchCreateRequest.
type BatchCreateResponse struct {
	NewMediaItemResults []NewMediaItemResult `json:"newMediaItemResults"`
}
