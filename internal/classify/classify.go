// Package classify maps raw container entry paths to their semantic role in
// the export: a media original, a photo metadata record, the albums
// manifest, a known auxiliary file, or unknown.
package classify

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind is the semantic role of an entry path.
type Kind int

const (
	KindUnknown Kind = iota
	KindMedia
	KindMetadata
	KindAlbums
	KindIgnored
)

// AlbumsManifestName is the fixed entry name of the albums source file.
const AlbumsManifestName = "albums.json"

// Candidate is one possible (id, name) reading of a media entry path.
type Candidate struct {
	ID   int64
	Name string
	Ext  string
}

// Result of classifying a single entry path.
//
// For KindMedia, Candidates holds one entry, or two when the name portion is
// purely numeric and the true photo id cannot be told apart from the name
// (both readings share one underlying file). For KindMetadata, MetaID is the
// photo id from the file name.
type Result struct {
	Kind       Kind
	Candidates []Candidate
	MetaID     int64
}

// Media patterns, ordered; the first match wins. Flickr names originals
// either <name>_<id>_o.<ext>, <id>_<hexhash>_o.<ext>, or, for videos,
// <name>_<id>.<ext> without the _o marker.
var (
	reMediaNameID = regexp.MustCompile(`^(.+)_([0-9]+)_o\.([0-9a-z]+)$`)
	reMediaIDHash = regexp.MustCompile(`^([0-9]+)_([0-9a-f]+)_o\.([0-9a-z]+)$`)
	reMediaVideo  = regexp.MustCompile(`^(.+)_([0-9]+)\.(mov|mp4|avi|m4v|3gp|mts|wmv|mpg)$`)

	reMetadata = regexp.MustCompile(`^photo_([0-9]+)\.json$`)

	// Auxiliary export files the original service is known to produce.
	// They are intentionally not migrated.
	reIgnored = regexp.MustCompile(`^(account_profile|account_testimonials|apps_comments_part\d+|contacts_part\d+|` +
		`faves_part\d+|followers_part\d+|galleries|galleries_comments_part\d+|` +
		`group_discussions|groups|photos_comments_part\d+|received_flickrmail_part\d+|` +
		`sent_flickrmail_part\d+|sets_comments_part\d+)\.json$`)

	reNumeric = regexp.MustCompile(`^[0-9]+$`)
)

// Path classifies one entry path.
func Path(path string) Result {
	if path == AlbumsManifestName {
		return Result{Kind: KindAlbums}
	}

	if cands, ok := matchMedia(path); ok {
		return Result{Kind: KindMedia, Candidates: cands}
	}

	if m := reMetadata.FindStringSubmatch(path); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			return Result{Kind: KindMetadata, MetaID: id}
		}
	}

	if reIgnored.MatchString(path) {
		return Result{Kind: KindIgnored}
	}

	return Result{Kind: KindUnknown}
}

func matchMedia(path string) ([]Candidate, bool) {
	for _, re := range []*regexp.Regexp{reMediaNameID, reMediaIDHash, reMediaVideo} {
		m := re.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		name, idStr, ext := m[1], m[2], m[3]
		if re == reMediaIDHash {
			// This pattern captures the id first.
			name, idStr = idStr, name
		}
		if ext == "json" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		return candidates(id, name, strings.ToLower(ext)), true
	}
	return nil, false
}

// candidates returns one candidate, or two when the name is purely numeric
// and could itself be the photo id the metadata is keyed by.
func candidates(id int64, name string, ext string) []Candidate {
	cands := []Candidate{{ID: id, Name: name, Ext: ext}}
	if reNumeric.MatchString(name) {
		if alt, err := strconv.ParseInt(name, 10, 64); err == nil && alt != id {
			cands = append(cands, Candidate{ID: alt, Name: strconv.FormatInt(id, 10), Ext: ext})
		}
	}
	return cands
}
