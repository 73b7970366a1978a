package state

import (
	"context"
	"database/sql"
	"time"

	"github.com/dkhalperin/flickrmigrate/internal/dbx"
)

// runHistoryLimit bounds how many run records survive pruning.
const runHistoryLimit = 50

// StartRun records the start of a migration run and prunes old history.
// Both writes happen in one transaction via dbx.WithTx, so a failed insert
// never prunes and a failed prune never leaves a half-recorded run.
func StartRun(ctx context.Context, db *sql.DB, runID string, startedAt time.Time) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.InsertRun(ctx, runID, startedAt); err != nil {
			return err
		}
		return repo.PruneRuns(ctx, runHistoryLimit)
	})
}

// FinishRun records when the run ended and its totals.
func FinishRun(ctx context.Context, db *sql.DB, runID string, finishedAt time.Time, albumsCreated, itemsUploaded, itemsSkipped int) error {
	return NewSQLiteRepository(db).FinishRun(ctx, runID, finishedAt, albumsCreated, itemsUploaded, itemsSkipped)
}
