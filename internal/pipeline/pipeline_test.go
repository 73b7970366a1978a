package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkhalperin/flickrmigrate/internal/archive"
	"github.com/dkhalperin/flickrmigrate/internal/common"
	"github.com/dkhalperin/flickrmigrate/internal/logging"
	"github.com/dkhalperin/flickrmigrate/internal/models"
	"github.com/dkhalperin/flickrmigrate/internal/photos"
	"github.com/dkhalperin/flickrmigrate/internal/repositories/state"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeSource struct {
	files map[string][]byte
}

func (s *fakeSource) Open(file models.ArchiveFile) (io.ReadCloser, error) {
	data, ok := s.files[file.Path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", file.Path, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeSource) Size(file models.ArchiveFile) (int64, error) {
	return int64(len(s.files[file.Path])), nil
}

type chunkCall struct {
	File   string
	Offset int64
	Len    int
	Final  bool
}

type createCall struct {
	Token       string
	Description string
	AlbumID     string
}

type fakeRemote struct {
	chunkSize int64

	startErr  func(fileName string) error
	createErr func(title string) error

	calls  int
	starts []string
	chunks []chunkCall
	videos []string
	items  []createCall
	albums []string
}

func (r *fakeRemote) StartUpload(ctx context.Context, fileName string, size int64) (*photos.UploadSession, error) {
	r.calls++
	if r.startErr != nil {
		if err := r.startErr(fileName); err != nil {
			return nil, err
		}
	}
	r.starts = append(r.starts, fileName)
	chunkSize := r.chunkSize
	if chunkSize == 0 {
		chunkSize = 1 << 20
	}
	return &photos.UploadSession{URL: "mem://" + fileName, ChunkSize: chunkSize}, nil
}

func (r *fakeRemote) UploadChunk(ctx context.Context, session *photos.UploadSession, offset int64, data []byte, final bool) (string, error) {
	r.calls++
	file := session.URL[len("mem://"):]
	r.chunks = append(r.chunks, chunkCall{File: file, Offset: offset, Len: len(data), Final: final})
	if !final {
		return "", nil
	}
	return "token-" + file, nil
}

func (r *fakeRemote) CreateMediaItem(ctx context.Context, uploadToken, description, remoteAlbumID string) (string, error) {
	r.calls++
	r.items = append(r.items, createCall{Token: uploadToken, Description: description, AlbumID: remoteAlbumID})
	return fmt.Sprintf("media-%d", len(r.items)), nil
}

func (r *fakeRemote) CreateAlbum(ctx context.Context, title string) (string, error) {
	r.calls++
	if r.createErr != nil {
		if err := r.createErr(title); err != nil {
			return "", err
		}
	}
	r.albums = append(r.albums, title)
	return "remote-" + title, nil
}

func testStore(t *testing.T) *state.Store {
	t.Helper()
	db, err := state.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return state.NewStore(db, 8)
}

func matchedItem(id int64, path string) models.ItemWithMetadata {
	return models.ItemWithMetadata{
		Item: models.Item{ID: id, Name: path, File: models.ArchiveFile{Path: path}},
		Meta: &models.ItemMetadata{ID: id, Name: fmt.Sprintf("photo %d", id)},
	}
}

// testArchive assembles a reconciled archive from already-derived sets,
// bypassing the container scan.
func testArchive(albums []models.Album, matched map[int64]models.ItemWithMetadata, loose ...int64) *archive.Archive {
	d := &archive.Derived{Matched: matched, Albums: albums}
	for _, id := range loose {
		d.ItemsWithoutAlbums = append(d.ItemsWithoutAlbums, matched[id].Item)
	}
	return &archive.Archive{Derived: d}
}

func newTestPipeline(t *testing.T, remote *fakeRemote, source *fakeSource, attempts int) (*Pipeline, *state.Store) {
	t.Helper()
	store := testStore(t)
	p := New(Params{
		Source:      source,
		Remote:      remote,
		Store:       store,
		Log:         testLogger(),
		Attempts:    attempts,
		BackoffBase: time.Millisecond,
	})
	return p, store
}

func TestRun_OrderingAndWiring(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{files: map[string][]byte{
		"a_1_o.jpg": []byte("payload-1"),
		"b_2_o.jpg": []byte("payload-2"),
		"c_3_o.jpg": []byte("payload-3"),
	}}
	remote := &fakeRemote{}
	matched := map[int64]models.ItemWithMetadata{
		1: matchedItem(1, "a_1_o.jpg"),
		2: matchedItem(2, "b_2_o.jpg"),
		3: matchedItem(3, "c_3_o.jpg"),
	}
	arc := testArchive([]models.Album{
		{ID: "100", Title: "Pets", Photos: []string{"2", "1", "0", "oops", "999"}},
	}, matched, 3)

	p, store := newTestPipeline(t, remote, source, 1)
	sum, err := p.Run(ctx, arc)
	require.NoError(t, err)

	assert.Equal(t, &Summary{AlbumsCreated: 1, Uploaded: 3}, sum)

	// Album first, then members in recorded order, loose items last.
	assert.Equal(t, []string{"Pets"}, remote.albums)
	assert.Equal(t, []string{"b_2_o.jpg", "a_1_o.jpg", "c_3_o.jpg"}, remote.starts)

	require.Len(t, remote.items, 3)
	assert.Equal(t, "remote-Pets", remote.items[0].AlbumID)
	assert.Equal(t, "remote-Pets", remote.items[1].AlbumID)
	assert.Equal(t, "", remote.items[2].AlbumID, "loose items carry no album")
	assert.Equal(t, "photo 2", remote.items[0].Description)

	row, err := store.GetAlbum(ctx, "100")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.StatusCreated, row.Status)
	assert.Equal(t, "remote-Pets", row.RemoteID)

	item, err := store.GetItem(ctx, 2, "100")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, models.StatusUploaded, item.Status)

	item, err = store.GetItem(ctx, 3, models.NoAlbum)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, models.StatusUploaded, item.Status)
}

func TestRun_ChunkedTransfer(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{files: map[string][]byte{
		"a_1_o.jpg": []byte("0123456789"), // 10 bytes, chunk size 4
	}}
	remote := &fakeRemote{chunkSize: 4}
	matched := map[int64]models.ItemWithMetadata{1: matchedItem(1, "a_1_o.jpg")}
	arc := testArchive(nil, matched, 1)

	p, _ := newTestPipeline(t, remote, source, 1)
	_, err := p.Run(ctx, arc)
	require.NoError(t, err)

	assert.Equal(t, []chunkCall{
		{File: "a_1_o.jpg", Offset: 0, Len: 4, Final: false},
		{File: "a_1_o.jpg", Offset: 4, Len: 4, Final: false},
		{File: "a_1_o.jpg", Offset: 8, Len: 2, Final: true},
	}, remote.chunks)

	require.Len(t, remote.items, 1)
	assert.Equal(t, "token-a_1_o.jpg", remote.items[0].Token)
}

func TestRun_RerunMakesNoRemoteCalls(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{files: map[string][]byte{
		"a_1_o.jpg": []byte("payload"),
		"b_2_o.jpg": []byte("payload"),
	}}
	remote := &fakeRemote{}
	matched := map[int64]models.ItemWithMetadata{
		1: matchedItem(1, "a_1_o.jpg"),
		2: matchedItem(2, "b_2_o.jpg"),
	}
	arc := testArchive([]models.Album{{ID: "100", Photos: []string{"1"}}}, matched, 2)

	p, store := newTestPipeline(t, remote, source, 1)
	sum, err := p.Run(ctx, arc)
	require.NoError(t, err)
	assert.Equal(t, &Summary{AlbumsCreated: 1, Uploaded: 2}, sum)

	// Same archive, same store: everything is already recorded.
	p2 := New(Params{Source: source, Remote: remote, Store: store, Log: testLogger(), Attempts: 1, BackoffBase: time.Millisecond})
	before := remote.calls
	sum, err = p2.Run(ctx, arc)
	require.NoError(t, err)

	assert.Equal(t, &Summary{AlbumsExisting: 1, AlreadyUploaded: 2}, sum)
	assert.Equal(t, before, remote.calls, "a completed migration touches the network zero times")
}

func TestRun_RateLimitAbortsMidBatch(t *testing.T) {
	ctx := context.Background()
	files := make(map[string][]byte)
	matched := make(map[int64]models.ItemWithMetadata)
	var loose []int64
	for id := int64(1); id <= 5; id++ {
		name := fmt.Sprintf("item_%d_o.jpg", id)
		files[name] = []byte("payload")
		matched[id] = matchedItem(id, name)
		loose = append(loose, id)
	}
	source := &fakeSource{files: files}
	remote := &fakeRemote{startErr: func(fileName string) error {
		if fileName == "item_3_o.jpg" {
			return common.ErrRateLimited
		}
		return nil
	}}
	arc := testArchive(nil, matched, loose...)

	p, store := newTestPipeline(t, remote, source, 5)
	sum, err := p.Run(ctx, arc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrRateLimited))

	assert.Equal(t, 2, sum.Uploaded)
	require.NoError(t, store.Commit(ctx))

	for id, want := range map[int64]string{1: models.StatusUploaded, 2: models.StatusUploaded, 3: models.StatusPending} {
		row, err := store.GetItem(ctx, id, models.NoAlbum)
		require.NoError(t, err)
		require.NotNil(t, row, "item %d", id)
		assert.Equal(t, want, row.Status, "item %d", id)
	}
	// The run stopped before reaching the rest.
	row, err := store.GetItem(ctx, 4, models.NoAlbum)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestRun_TransientFailureRetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{files: map[string][]byte{"a_1_o.jpg": []byte("payload")}}

	failures := 2
	remote := &fakeRemote{startErr: func(string) error {
		if failures > 0 {
			failures--
			return errors.New("connection reset")
		}
		return nil
	}}
	arc := testArchive(nil, map[int64]models.ItemWithMetadata{1: matchedItem(1, "a_1_o.jpg")}, 1)

	p, _ := newTestPipeline(t, remote, source, 5)
	sum, err := p.Run(ctx, arc)
	require.NoError(t, err)

	assert.Equal(t, &Summary{Uploaded: 1}, sum)
	assert.Len(t, remote.starts, 1, "two failed attempts never opened a session")
}

func TestRun_ExhaustedRetriesSkipAndContinue(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{files: map[string][]byte{
		"a_1_o.jpg": []byte("payload"),
		"b_2_o.jpg": []byte("payload"),
	}}
	remote := &fakeRemote{startErr: func(fileName string) error {
		if fileName == "a_1_o.jpg" {
			return errors.New("connection reset")
		}
		return nil
	}}
	matched := map[int64]models.ItemWithMetadata{
		1: matchedItem(1, "a_1_o.jpg"),
		2: matchedItem(2, "b_2_o.jpg"),
	}
	arc := testArchive(nil, matched, 1, 2)

	p, store := newTestPipeline(t, remote, source, 2)
	sum, err := p.Run(ctx, arc)
	require.NoError(t, err, "a skipped item does not fail the run")

	assert.Equal(t, &Summary{Uploaded: 1, Skipped: 1}, sum)

	// The failed item stays pending for the next run.
	row, err := store.GetItem(ctx, 1, models.NoAlbum)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.StatusPending, row.Status)
}

func TestRun_UnknownSizeIsRetriedThenSkipped(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{files: map[string][]byte{"a_1_o.jpg": {}}}
	remote := &fakeRemote{}
	arc := testArchive(nil, map[int64]models.ItemWithMetadata{1: matchedItem(1, "a_1_o.jpg")}, 1)

	p, _ := newTestPipeline(t, remote, source, 2)
	sum, err := p.Run(ctx, arc)
	require.NoError(t, err)

	assert.Equal(t, &Summary{Skipped: 1}, sum)
	assert.Zero(t, remote.calls, "no session starts while the size is unknown")
}

func TestRun_AlbumFailureSkipsItsMembers(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{files: map[string][]byte{"a_1_o.jpg": []byte("payload")}}
	remote := &fakeRemote{createErr: func(string) error { return errors.New("boom") }}
	matched := map[int64]models.ItemWithMetadata{1: matchedItem(1, "a_1_o.jpg")}
	arc := testArchive([]models.Album{{ID: "100", Title: "Pets", Photos: []string{"1"}}}, matched)

	p, _ := newTestPipeline(t, remote, source, 2)
	sum, err := p.Run(ctx, arc)
	require.NoError(t, err)

	assert.Equal(t, &Summary{AlbumsSkipped: 1}, sum)
	assert.Empty(t, remote.starts)
}

func TestRun_UntitledAlbumFallsBackToID(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	arc := testArchive([]models.Album{{ID: "100"}}, map[int64]models.ItemWithMetadata{})

	p, _ := newTestPipeline(t, remote, &fakeSource{}, 1)
	_, err := p.Run(ctx, arc)
	require.NoError(t, err)
	assert.Equal(t, []string{"100"}, remote.albums)
}

func TestRun_CancelledContextStopsTheRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	remote := &fakeRemote{}
	arc := testArchive([]models.Album{{ID: "100"}}, map[int64]models.ItemWithMetadata{})

	p, _ := newTestPipeline(t, remote, &fakeSource{}, 1)
	_, err := p.Run(ctx, arc)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, remote.calls)
}
