package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/dkhalperin/flickrmigrate/internal/common"
	"github.com/dkhalperin/flickrmigrate/internal/filex"
	"github.com/dkhalperin/flickrmigrate/internal/photos"
	"github.com/dkhalperin/flickrmigrate/internal/pipeline"
	"github.com/dkhalperin/flickrmigrate/internal/repositories/state"
)

// runMigrate reconciles the archives and runs the upload pipeline against
// the remote service, resuming from whatever the state store already
// records.
func (a *App) runMigrate(ctx context.Context) int {
	arc, err := a.buildArchive(ctx)
	if err != nil {
		a.log.Error(ctx, "migrate failed", "error", err)
		return ExitFailure
	}
	defer arc.Containers.Close()

	if _, err := filex.EnsureParentDir(a.config.DatabasePath); err != nil {
		a.log.Error(ctx, "state database location", "error", err)
		return ExitFailure
	}
	db, err := state.InitDatabase(ctx, a.config.DatabasePath)
	if err != nil {
		a.log.Error(ctx, "state database", "error", err)
		return ExitFailure
	}
	defer db.Close()

	if err := state.StartRun(ctx, db, a.runID, time.Now()); err != nil {
		a.log.Error(ctx, "run bookkeeping", "error", err)
		return ExitFailure
	}

	store := state.NewStore(db, a.config.CommitBatchSize)
	defer store.Close(ctx)

	tokens, err := a.tokenSource(ctx, store)
	if err != nil {
		a.log.Error(ctx, "credentials", "error", err)
		return ExitFailure
	}

	client := photos.New(a.config.APIBaseURL, nil, tokens)
	pl := pipeline.New(pipeline.Params{
		Source:      arc.Containers,
		Remote:      client,
		Store:       store,
		Log:         a.log,
		Attempts:    a.config.RetryAttempts,
		BackoffBase: a.config.RetryBackoffBase,
	})

	sum, runErr := pl.Run(ctx, arc)

	// Flush any open batch before touching the database directly; the run
	// record must not contend with the store's transaction.
	if err := store.Commit(ctx); err != nil {
		a.log.Warn(ctx, "state commit", "error", err)
	}
	if err := state.FinishRun(ctx, db, a.runID, time.Now(),
		sum.AlbumsCreated, sum.Uploaded, sum.Skipped); err != nil {
		a.log.Warn(ctx, "run bookkeeping", "error", err)
	}

	fmt.Fprintf(a.stdout, "Albums: %d created, %d already created, %d skipped\n",
		sum.AlbumsCreated, sum.AlbumsExisting, sum.AlbumsSkipped)
	fmt.Fprintf(a.stdout, "Items: %d uploaded, %d already uploaded, %d skipped\n",
		sum.Uploaded, sum.AlreadyUploaded, sum.Skipped)

	if runErr != nil {
		if errors.Is(runErr, common.ErrRateLimited) {
			a.log.Error(ctx, "remote service quota exhausted, re-run once it resets (usually after 24h); committed progress is kept")
			return ExitRateLimited
		}
		a.log.Error(ctx, "migrate stopped", "error", runErr)
		return ExitFailure
	}
	return ExitOK
}

// tokenSource builds the bearer capability for the remote client. A token
// passed via config replaces the stored credential blob wholesale;
// otherwise the previously stored blob is reused.
func (a *App) tokenSource(ctx context.Context, store *state.Store) (oauth2.TokenSource, error) {
	if a.config.AccessToken != "" {
		token := &oauth2.Token{AccessToken: a.config.AccessToken}
		blob, err := json.Marshal(token)
		if err != nil {
			return nil, err
		}
		if err := store.SaveToken(ctx, blob); err != nil {
			return nil, err
		}
		return oauth2.StaticTokenSource(token), nil
	}

	blob, err := store.LoadToken(ctx)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, fmt.Errorf("no access token: pass -token or store one first")
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(blob, token); err != nil {
		return nil, fmt.Errorf("stored credential blob: %w", err)
	}
	return oauth2.StaticTokenSource(token), nil
}
