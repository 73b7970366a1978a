package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dkhalperin/flickrmigrate/internal/dbx"
	"github.com/dkhalperin/flickrmigrate/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx), so the same queries run standalone or inside a batched commit.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetAlbum(ctx context.Context, albumID string) (*models.AlbumUpload, error) {
	query := `select album_id, status, remote_id from album_uploads where album_id=?`
	row := r.db.QueryRowContext(ctx, query, albumID)

	a := &models.AlbumUpload{}
	if err := row.Scan(&a.AlbumID, &a.Status, &a.RemoteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query album row: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) UpsertAlbumPending(ctx context.Context, albumID string) error {
	query := `INSERT INTO album_uploads (album_id, status) VALUES (?, ?)
			ON CONFLICT(album_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, albumID, models.StatusPending); err != nil {
		return fmt.Errorf("failed to upsert album: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkAlbumCreated(ctx context.Context, albumID, remoteID string) error {
	query := `update album_uploads set status=?, remote_id=? where album_id=? and status=?`
	res, err := r.db.ExecContext(ctx, query, models.StatusCreated, remoteID, albumID, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark album created: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count for album %s: %d", albumID, ra)
	}
	return nil
}

func (r *SQLiteRepository) GetItem(ctx context.Context, itemID int64, albumID string) (*models.ItemUpload, error) {
	query := `select item_id, album_id, status, remote_id from item_uploads where item_id=? and album_id=?`
	row := r.db.QueryRowContext(ctx, query, itemID, albumID)

	i := &models.ItemUpload{}
	if err := row.Scan(&i.ItemID, &i.AlbumID, &i.Status, &i.RemoteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query item row: %w", err)
	}
	return i, nil
}

func (r *SQLiteRepository) UpsertItemPending(ctx context.Context, itemID int64, albumID string) error {
	query := `INSERT INTO item_uploads (item_id, album_id, status) VALUES (?, ?, ?)
			ON CONFLICT(item_id, album_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, itemID, albumID, models.StatusPending); err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkItemUploaded(ctx context.Context, itemID int64, albumID, remoteID string) error {
	query := `update item_uploads set status=?, remote_id=? where item_id=? and album_id=? and status=?`
	res, err := r.db.ExecContext(ctx, query, models.StatusUploaded, remoteID, itemID, albumID, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark item uploaded: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count for item %d: %d", itemID, ra)
	}
	return nil
}

func (r *SQLiteRepository) InsertRun(ctx context.Context, runID string, startedAt time.Time) error {
	query := `INSERT INTO runs (run_id, started_at) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, runID, startedAt.Unix()); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FinishRun(ctx context.Context, runID string, finishedAt time.Time, albumsCreated, itemsUploaded, itemsSkipped int) error {
	query := `update runs set finished_at=?, albums_created=?, items_uploaded=?, items_skipped=? where run_id=?`
	res, err := r.db.ExecContext(ctx, query, finishedAt.Unix(), albumsCreated, itemsUploaded, itemsSkipped, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count for run %s: %d", runID, ra)
	}
	return nil
}

func (r *SQLiteRepository) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	query := `select run_id, started_at, finished_at, albums_created, items_uploaded, items_skipped
			from runs where run_id=?`
	row := r.db.QueryRowContext(ctx, query, runID)

	run := &models.Run{}
	if err := row.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt,
		&run.AlbumsCreated, &run.ItemsUploaded, &run.ItemsSkipped); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query run row: %w", err)
	}
	return run, nil
}

func (r *SQLiteRepository) PruneRuns(ctx context.Context, keep int) error {
	query := `delete from runs where run_id not in
			(select run_id from runs order by started_at desc, run_id desc limit ?)`
	if _, err := r.db.ExecContext(ctx, query, keep); err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SaveToken(ctx context.Context, token []byte) error {
	query := `INSERT INTO oauth_token (id, token) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET token = excluded.token`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadToken(ctx context.Context) ([]byte, error) {
	query := `select token from oauth_token where id=1`
	row := r.db.QueryRowContext(ctx, query)

	var token []byte
	if err := row.Scan(&token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query token row: %w", err)
	}
	return token, nil
}
