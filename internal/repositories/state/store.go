package state

import (
	"context"
	"database/sql"

	"github.com/dkhalperin/flickrmigrate/internal/models"
)

// Store implements Repository over an open transaction that is committed
// every batchSize mutations, purely for throughput. Reads go through the
// same transaction, so a batch always observes its own writes. A crash
// mid-batch rolls the open transaction back: committed rows stay intact and
// uncommitted upserts are simply re-inserted on the next run.
//
// Callers that must not lose a write (recording an upload success) call
// Commit explicitly.
type Store struct {
	db        *sql.DB
	batchSize int

	tx      *sql.Tx
	repo    *SQLiteRepository
	pending int
}

// NewStore wraps db in a batching store committing every batchSize
// mutations. batchSize < 1 means commit on every mutation.
func NewStore(db *sql.DB, batchSize int) *Store {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Store{db: db, batchSize: batchSize}
}

func (s *Store) current(ctx context.Context) (*SQLiteRepository, error) {
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		s.tx = tx
		s.repo = NewSQLiteRepository(tx)
	}
	return s.repo, nil
}

// Commit flushes the open batch, if any.
func (s *Store) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx, s.repo, s.pending = nil, nil, 0
	return err
}

// Close commits any open batch and is safe to defer.
func (s *Store) Close(ctx context.Context) error {
	return s.Commit(ctx)
}

func (s *Store) afterMutation(ctx context.Context) error {
	s.pending++
	if s.pending >= s.batchSize {
		return s.Commit(ctx)
	}
	return nil
}

func (s *Store) GetAlbum(ctx context.Context, albumID string) (*models.AlbumUpload, error) {
	repo, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return repo.GetAlbum(ctx, albumID)
}

func (s *Store) UpsertAlbumPending(ctx context.Context, albumID string) error {
	repo, err := s.current(ctx)
	if err != nil {
		return err
	}
	if err := repo.UpsertAlbumPending(ctx, albumID); err != nil {
		return err
	}
	return s.afterMutation(ctx)
}

func (s *Store) MarkAlbumCreated(ctx context.Context, albumID, remoteID string) error {
	repo, err := s.current(ctx)
	if err != nil {
		return err
	}
	if err := repo.MarkAlbumCreated(ctx, albumID, remoteID); err != nil {
		return err
	}
	return s.afterMutation(ctx)
}

func (s *Store) GetItem(ctx context.Context, itemID int64, albumID string) (*models.ItemUpload, error) {
	repo, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return repo.GetItem(ctx, itemID, albumID)
}

func (s *Store) UpsertItemPending(ctx context.Context, itemID int64, albumID string) error {
	repo, err := s.current(ctx)
	if err != nil {
		return err
	}
	if err := repo.UpsertItemPending(ctx, itemID, albumID); err != nil {
		return err
	}
	return s.afterMutation(ctx)
}

func (s *Store) MarkItemUploaded(ctx context.Context, itemID int64, albumID, remoteID string) error {
	repo, err := s.current(ctx)
	if err != nil {
		return err
	}
	if err := repo.MarkItemUploaded(ctx, itemID, albumID, remoteID); err != nil {
		return err
	}
	return s.afterMutation(ctx)
}

func (s *Store) SaveToken(ctx context.Context, token []byte) error {
	repo, err := s.current(ctx)
	if err != nil {
		return err
	}
	if err := repo.SaveToken(ctx, token); err != nil {
		return err
	}
	// Credential updates are never batched.
	return s.Commit(ctx)
}

func (s *Store) LoadToken(ctx context.Context) ([]byte, error) {
	repo, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return repo.LoadToken(ctx)
}

var _ Repository = (*Store)(nil)
var _ Repository = (*SQLiteRepository)(nil)
