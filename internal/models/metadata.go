package models

import "encoding/json"

// UnprocessedVideoOriginal is the placeholder Flickr records as the original
// file name for videos it never finished processing. Such entries have no
// real binary in any container and must not be reported as missing media.
const UnprocessedVideoOriginal = "video_encoding.jpg"

// AlbumRef is an album membership claim inside a photo metadata document.
type AlbumRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// ItemMetadata is the parsed photo_<id>.json record. ID comes from the file
// name, not the document body. Doc retains the raw document because the
// upload pipeline derives the remote item description from it.
type ItemMetadata struct {
	ID          int64
	Name        string
	Description string
	Original    string
	PageURL     string
	Albums      []AlbumRef
	Doc         json.RawMessage
}

// IsUnprocessedVideo reports whether this record is a placeholder for a
// video Flickr never exported.
func (m *ItemMetadata) IsUnprocessedVideo() bool {
	return m.Original == UnprocessedVideoOriginal
}

// metadataDoc mirrors the JSON fields we care about in photo_<id>.json.
type metadataDoc struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Original    string     `json:"original"`
	PageURL     string     `json:"photopage"`
	Albums      []AlbumRef `json:"albums"`
}

// ParseItemMetadata decodes a photo_<id>.json document for the given id.
func ParseItemMetadata(id int64, data []byte) (*ItemMetadata, error) {
	var doc metadataDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &ItemMetadata{
		ID:          id,
		Name:        doc.Name,
		Description: doc.Description,
		Original:    doc.Original,
		PageURL:     doc.PageURL,
		Albums:      doc.Albums,
		Doc:         json.RawMessage(data),
	}, nil
}

// UploadDescription builds the description text attached to the uploaded
// media item: the description body when present, otherwise the photo name,
// with the original page URL appended so the provenance survives migration.
func (m *ItemMetadata) UploadDescription() string {
	text := m.Description
	if text == "" {
		text = m.Name
	}
	if m.PageURL != "" {
		if text != "" {
			text += "\n\n"
		}
		text += m.PageURL
	}
	return text
}
