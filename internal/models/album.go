package models

import "strconv"

// Album is one entry of the albums.json manifest. Created and LastUpdated
// are unix-seconds timestamps recorded as strings, exactly as Flickr writes
// them. Photos lists member photo ids as strings.
type Album struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Created     string   `json:"created"`
	LastUpdated string   `json:"last_updated"`
	Photos      []string `json:"photos"`
}

// CreatedUnix parses the creation timestamp. Unparseable values sort first.
func (a *Album) CreatedUnix() int64 {
	ts, err := strconv.ParseInt(a.Created, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

// AlbumsManifest is the top-level shape of albums.json.
type AlbumsManifest struct {
	Albums []Album `json:"albums"`
}
