package archive

import (
	"fmt"
	"sort"
	"strings"
)

// sampleLimit bounds how many example ids each problem set contributes to
// the report.
const sampleLimit = 5

// Report is the run-scoped summary of one reconciliation, returned to the
// caller instead of being printed from inside the engine.
type Report struct {
	Containers        int
	Items             int
	Metadata          int
	AlbumsFound       bool
	Albums            int
	Matched           int
	WithoutMetadata   int
	WithoutItems      int
	UnprocessedVideos int
	MissedInAlbums    int
	WrongInAlbums     int
	ItemsWithout      int
	Extensions        []string

	SampleWithoutMetadata []int64
	SampleWithoutItems    []int64
	SampleMissedInAlbums  []string
	SampleWrongInAlbums   []string
}

// Report summarizes the archive's derived sets.
func (a *Archive) Report() Report {
	r := Report{
		Containers:        a.Containers.Len(),
		Items:             len(a.Items),
		Metadata:          len(a.Metadata),
		AlbumsFound:       a.AlbumsFile != nil,
		Albums:            len(a.Albums),
		Matched:           len(a.Matched),
		WithoutMetadata:   len(a.WithoutMetadata),
		WithoutItems:      len(a.WithoutItems),
		UnprocessedVideos: len(a.UnprocessedVideos),
		ItemsWithout:      len(a.ItemsWithoutAlbums),
		Extensions:        a.Extensions,
	}

	for _, item := range a.WithoutMetadata {
		if len(r.SampleWithoutMetadata) < sampleLimit {
			r.SampleWithoutMetadata = append(r.SampleWithoutMetadata, item.ID)
		}
	}
	for _, id := range a.WithoutItems {
		if len(r.SampleWithoutItems) < sampleLimit {
			r.SampleWithoutItems = append(r.SampleWithoutItems, id)
		}
	}
	r.MissedInAlbums, r.SampleMissedInAlbums = countAlbumRefs(a.MissedInAlbums)
	r.WrongInAlbums, r.SampleWrongInAlbums = countAlbumRefs(a.WrongInAlbums)

	return r
}

func countAlbumRefs(refs map[string][]string) (int, []string) {
	total := 0
	var samples []string

	albumIDs := make([]string, 0, len(refs))
	for albumID := range refs {
		albumIDs = append(albumIDs, albumID)
	}
	sort.Strings(albumIDs)

	for _, albumID := range albumIDs {
		total += len(refs[albumID])
		for _, photoID := range refs[albumID] {
			if len(samples) < sampleLimit {
				samples = append(samples, fmt.Sprintf("%s in album %s", photoID, albumID))
			}
		}
	}
	return total, samples
}

// String renders the report for the check command.
func (r Report) String() string {
	var b strings.Builder

	albums := "not found"
	if r.AlbumsFound {
		albums = fmt.Sprintf("found (%d)", r.Albums)
	}
	fmt.Fprintf(&b, "Archives: %d, items: %d, item infos: %d, albums: %s\n",
		r.Containers, r.Items, r.Metadata, albums)
	if len(r.Extensions) > 0 {
		fmt.Fprintf(&b, "Item types in archive: %s\n", strings.Join(r.Extensions, ", "))
	}
	fmt.Fprintf(&b, "Matched items: %d\n", r.Matched)
	fmt.Fprintf(&b, "Unprocessed videos (no media expected): %d\n", r.UnprocessedVideos)

	writeSet(&b, "Items without metadata", r.WithoutMetadata, int64Samples(r.SampleWithoutMetadata))
	writeSet(&b, "Metadata without items", r.WithoutItems, int64Samples(r.SampleWithoutItems))
	writeSet(&b, "Album members missing from archive", r.MissedInAlbums, r.SampleMissedInAlbums)
	writeSet(&b, "Album members with malformed ids", r.WrongInAlbums, r.SampleWrongInAlbums)
	fmt.Fprintf(&b, "Matched items in no album: %d\n", r.ItemsWithout)

	return b.String()
}

func writeSet(b *strings.Builder, label string, count int, samples []string) {
	fmt.Fprintf(b, "%s: %d", label, count)
	if len(samples) > 0 {
		fmt.Fprintf(b, " (e.g. %s)", strings.Join(samples, ", "))
	}
	b.WriteString("\n")
}

func int64Samples(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, fmt.Sprintf("%d", id))
	}
	return out
}
