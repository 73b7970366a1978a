// Package pipeline orchestrates the migration: for every pending
// (item, album) pair it creates the remote album, streams the payload in
// chunks and records the remote id, using the state store for idempotency.
// Completed rows are skipped on reruns, which makes the whole migration
// resumable after partial failure or cancellation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/dkhalperin/flickrmigrate/internal/archive"
	"github.com/dkhalperin/flickrmigrate/internal/common"
	"github.com/dkhalperin/flickrmigrate/internal/logging"
	"github.com/dkhalperin/flickrmigrate/internal/models"
	"github.com/dkhalperin/flickrmigrate/internal/photos"
	"github.com/dkhalperin/flickrmigrate/internal/repositories/state"
	"github.com/sethvargo/go-retry"
)

// RemoteLibrary is the remote photo service surface the pipeline drives.
// *photos.Client implements it.
type RemoteLibrary interface {
	StartUpload(ctx context.Context, fileName string, size int64) (*photos.UploadSession, error)
	UploadChunk(ctx context.Context, session *photos.UploadSession, offset int64, data []byte, final bool) (string, error)
	CreateMediaItem(ctx context.Context, uploadToken, description, remoteAlbumID string) (string, error)
	CreateAlbum(ctx context.Context, title string) (string, error)
}

// EntrySource resolves item payloads. *containers.Set implements it.
type EntrySource interface {
	Open(file models.ArchiveFile) (io.ReadCloser, error)
	Size(file models.ArchiveFile) (int64, error)
}

// Store is the upload state store plus explicit batch commit.
// *state.Store implements it.
type Store interface {
	state.Repository
	Commit(ctx context.Context) error
}

const (
	defaultAttempts    = 5
	defaultBackoffBase = time.Second
)

// Params configures a Pipeline.
type Params struct {
	Source EntrySource
	Remote RemoteLibrary
	Store  Store
	Log    logging.Logger

	// Attempts is the per-item/per-album retry ceiling; BackoffBase scales
	// the linear wait between attempts (wait = base * attempt).
	Attempts    int
	BackoffBase time.Duration
}

// Pipeline migrates one reconciled archive to the remote library.
type Pipeline struct {
	source      EntrySource
	remote      RemoteLibrary
	store       Store
	log         logging.Logger
	attempts    int
	backoffBase time.Duration
}

// Summary counts what one run did.
type Summary struct {
	AlbumsCreated   int
	AlbumsExisting  int
	AlbumsSkipped   int
	Uploaded        int
	AlreadyUploaded int
	Skipped         int
}

// New builds a Pipeline; zero Attempts/BackoffBase get defaults.
func New(p Params) *Pipeline {
	if p.Attempts < 1 {
		p.Attempts = defaultAttempts
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = defaultBackoffBase
	}
	return &Pipeline{
		source:      p.Source,
		remote:      p.Remote,
		store:       p.Store,
		log:         p.Log,
		attempts:    p.Attempts,
		backoffBase: p.BackoffBase,
	}
}

// Run processes albums in ascending creation order, items in each album's
// recorded membership order, and album-less items last in index order, so
// reruns produce the same remote ordering. It stops early only on
// cancellation or a rate-limit signal; both leave all committed state
// intact and the run safely resumable.
func (p *Pipeline) Run(ctx context.Context, arc *archive.Archive) (*Summary, error) {
	sum := &Summary{}

	for i := range arc.Albums {
		album := &arc.Albums[i]
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		remoteAlbumID, err := p.ensureAlbum(ctx, sum, album)
		if err != nil {
			if errors.Is(err, common.ErrRateLimited) || ctx.Err() != nil {
				return sum, err
			}
			p.log.Warn(ctx, "album skipped after retries", "album", album.ID, "error", err)
			sum.AlbumsSkipped++
			continue
		}

		for _, photoID := range album.Photos {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			id, err := strconv.ParseInt(photoID, 10, 64)
			if err != nil {
				continue // reported by reconciliation, nothing to upload
			}
			matched, ok := arc.Matched[id]
			if !ok {
				continue // missing or unprocessed, reported by reconciliation
			}
			if err := p.processItem(ctx, sum, matched, album.ID, remoteAlbumID); err != nil {
				return sum, err
			}
		}
	}

	for _, item := range arc.ItemsWithoutAlbums {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		matched := arc.Matched[item.ID]
		if err := p.processItem(ctx, sum, matched, models.NoAlbum, ""); err != nil {
			return sum, err
		}
	}

	if err := p.store.Commit(ctx); err != nil {
		return sum, err
	}
	return sum, nil
}

// ensureAlbum returns the remote album id, creating the album if no
// completed row exists yet.
func (p *Pipeline) ensureAlbum(ctx context.Context, sum *Summary, album *models.Album) (string, error) {
	row, err := p.store.GetAlbum(ctx, album.ID)
	if err != nil {
		return "", err
	}
	if row != nil && row.Status == models.StatusCreated {
		sum.AlbumsExisting++
		return row.RemoteID, nil
	}

	if err := p.store.UpsertAlbumPending(ctx, album.ID); err != nil {
		return "", err
	}

	title := album.Title
	if title == "" {
		title = album.ID
	}

	var remoteID string
	err = p.retry(ctx, func(ctx context.Context) error {
		id, err := p.remote.CreateAlbum(ctx, title)
		if err != nil {
			return markRetryable(ctx, err)
		}
		remoteID = id
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := p.store.MarkAlbumCreated(ctx, album.ID, remoteID); err != nil {
		return "", err
	}
	if err := p.store.Commit(ctx); err != nil {
		return "", err
	}
	p.log.Info(ctx, "album created", "album", album.ID, "title", title, "remote_id", remoteID)
	sum.AlbumsCreated++
	return remoteID, nil
}

// processItem runs the upload sequence for one (item, album) pair. Only
// cancellation, a rate-limit signal and state-store failures propagate; a
// transient failure exhausts its retries and leaves the row pending for the
// next run.
func (p *Pipeline) processItem(ctx context.Context, sum *Summary, m models.ItemWithMetadata, albumID, remoteAlbumID string) error {
	row, err := p.store.GetItem(ctx, m.Item.ID, albumID)
	if err != nil {
		return err
	}
	if row != nil && row.Status == models.StatusUploaded {
		sum.AlreadyUploaded++
		return nil
	}

	if err := p.store.UpsertItemPending(ctx, m.Item.ID, albumID); err != nil {
		return err
	}

	var remoteID string
	err = p.retry(ctx, func(ctx context.Context) error {
		id, err := p.uploadOnce(ctx, m, remoteAlbumID)
		if err != nil {
			return markRetryable(ctx, err)
		}
		remoteID = id
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrRateLimited) || ctx.Err() != nil {
			return err
		}
		p.log.Warn(ctx, "item skipped after retries", "item", m.Item.ID, "album", albumID, "error", err)
		sum.Skipped++
		return nil
	}

	if err := p.store.MarkItemUploaded(ctx, m.Item.ID, albumID, remoteID); err != nil {
		return err
	}
	if err := p.store.Commit(ctx); err != nil {
		return err
	}
	p.log.Info(ctx, "item uploaded", "item", m.Item.ID, "album", albumID, "remote_id", remoteID)
	sum.Uploaded++
	return nil
}

// uploadOnce performs a single upload attempt end to end: size resolution,
// session start, chunked transfer, token exchange.
func (p *Pipeline) uploadOnce(ctx context.Context, m models.ItemWithMetadata, remoteAlbumID string) (string, error) {
	size, err := p.source.Size(m.Item.File)
	if err != nil {
		return "", err
	}
	if size == 0 {
		return "", common.ErrUnknownSize
	}

	fileName := path.Base(m.Item.File.Path)
	session, err := p.remote.StartUpload(ctx, fileName, size)
	if err != nil {
		return "", err
	}

	chunkSize := session.ChunkSize
	if chunkSize <= 0 {
		return "", fmt.Errorf("service advertised chunk size %d", chunkSize)
	}

	rc, err := p.source.Open(m.Item.File)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	buf := make([]byte, chunkSize)
	var offset int64
	for offset < size {
		n := chunkSize
		if size-offset < n {
			n = size - offset
		}
		chunk := buf[:n]
		if _, err := io.ReadFull(rc, chunk); err != nil {
			return "", fmt.Errorf("read %s at %d: %w", m.Item.File.Path, offset, err)
		}

		final := offset+n == size
		token, err := p.remote.UploadChunk(ctx, session, offset, chunk, final)
		if err != nil {
			return "", err
		}
		offset += n

		if final {
			return p.remote.CreateMediaItem(ctx, token, m.Meta.UploadDescription(), remoteAlbumID)
		}
	}

	return "", fmt.Errorf("upload of %s produced no token", m.Item.File.Path)
}

func (p *Pipeline) retry(ctx context.Context, fn retry.RetryFunc) error {
	b := retry.WithMaxRetries(uint64(p.attempts-1), linearBackoff(p.backoffBase))
	return retry.Do(ctx, b, fn)
}

// markRetryable classifies one failed attempt: a rate-limit signal and
// cancellation propagate as-is and stop the whole run, anything else is
// retried.
func markRetryable(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrRateLimited) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return retry.RetryableError(err)
}

// linearBackoff waits base * attempt between tries.
func linearBackoff(base time.Duration) retry.Backoff {
	var attempt int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * base, false
	})
}
