package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// mirrorTimeout bounds each background push to the cloud copy.
const mirrorTimeout = 10 * time.Second

// SyncRepository writes to a local repository first and mirrors every change to a remote
// one in the background. Mirror failures are logged and never reach the caller; Sync
// reconciles both copies on demand and does report errors.
type SyncRepository struct {
	local  Repository
	remote Repository
	logger *slog.Logger

	wg     sync.WaitGroup
	pushMu sync.Mutex
	mu     sync.Mutex
	latest map[string]uint64
}

// NewSyncRepository wires local and remote repositories together.
func NewSyncRepository(local, remote Repository, logger *slog.Logger) *SyncRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncRepository{local: local, remote: remote, logger: logger, latest: make(map[string]uint64)}
}

// Load reads the local copy and falls back to the remote one for learners that were
// never seen locally.
func (r *SyncRepository) Load(ctx context.Context, userID string) (Record, error) {
	rec, err := r.local.Load(ctx, userID)
	if !errors.Is(err, ErrNotFound) {
		return rec, err
	}
	return r.pull(ctx, userID)
}

// pull copies the remote record into the local store, merged with anything written
// locally meanwhile. An unreachable remote is reported as ErrNotFound.
func (r *SyncRepository) pull(ctx context.Context, userID string) (Record, error) {
	remote, err := r.remote.Load(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Warn("remote progress load failed", slog.String("userId", userID), slog.Any("error", err))
		}
		return Record{}, ErrNotFound
	}
	return r.local.Update(ctx, userID, func(rec *Record) error {
		*rec = Merge(*rec, remote)
		return nil
	})
}

func (r *SyncRepository) Save(ctx context.Context, rec Record) error {
	if err := r.local.Save(ctx, rec); err != nil {
		return err
	}
	r.mirror(rec)
	return nil
}

// Update applies fn to the local copy. A learner missing locally, as after a restart, is
// first pulled from the remote copy so fn builds on their cloud history.
func (r *SyncRepository) Update(ctx context.Context, userID string, fn UpdateFunc) (Record, error) {
	if _, err := r.local.Load(ctx, userID); errors.Is(err, ErrNotFound) {
		if _, err := r.pull(ctx, userID); err != nil && !errors.Is(err, ErrNotFound) {
			return Record{}, err
		}
	}

	rec, err := r.local.Update(ctx, userID, fn)
	if err != nil {
		return Record{}, err
	}
	r.mirror(rec)
	return rec, nil
}

// Delete removes both copies. A remote failure is returned since resets are explicit.
// Mirror writes queued before the delete are dropped.
func (r *SyncRepository) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	r.latest[userID]++
	r.mu.Unlock()

	r.pushMu.Lock()
	defer r.pushMu.Unlock()

	localErr := r.local.Delete(ctx, userID)
	remoteErr := r.remote.Delete(ctx, userID)

	if errors.Is(localErr, ErrNotFound) && errors.Is(remoteErr, ErrNotFound) {
		return ErrNotFound
	}
	if localErr != nil && !errors.Is(localErr, ErrNotFound) {
		return localErr
	}
	if remoteErr != nil && !errors.Is(remoteErr, ErrNotFound) {
		return fmt.Errorf("delete remote progress: %w", remoteErr)
	}
	return nil
}

// Sync pulls both copies concurrently, merges them and writes the result to both sides.
func (r *SyncRepository) Sync(ctx context.Context, userID string) (Record, error) {
	if userID == "" {
		return Record{}, ErrMissingUserID
	}

	var local, remote Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := r.local.Load(gctx, userID)
		if errors.Is(err, ErrNotFound) {
			rec, err = NewRecord(userID), nil
		}
		local = rec
		return err
	})
	g.Go(func() error {
		rec, err := r.remote.Load(gctx, userID)
		if errors.Is(err, ErrNotFound) {
			rec, err = NewRecord(userID), nil
		}
		if err != nil {
			return fmt.Errorf("load remote progress: %w", err)
		}
		remote = rec
		return nil
	})
	if err := g.Wait(); err != nil {
		return Record{}, err
	}

	merged := Merge(local, remote)

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error { return r.local.Save(gctx, merged) })
	g.Go(func() error {
		if err := r.remote.Save(gctx, merged); err != nil {
			return fmt.Errorf("save remote progress: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Record{}, err
	}
	return merged, nil
}

// Flush waits for background mirror writes to finish.
func (r *SyncRepository) Flush() {
	r.wg.Wait()
}

// mirror merges rec into the remote copy in the background. Only the newest pending write
// per learner is sent, and merging keeps remote history the local copy has not seen.
func (r *SyncRepository) mirror(rec Record) {
	rec = rec.Clone()

	r.mu.Lock()
	r.latest[rec.UserID]++
	seq := r.latest[rec.UserID]
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.pushMu.Lock()
		defer r.pushMu.Unlock()

		r.mu.Lock()
		stale := r.latest[rec.UserID] != seq
		r.mu.Unlock()
		if stale {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		_, err := r.remote.Update(ctx, rec.UserID, func(remote *Record) error {
			*remote = Merge(*remote, rec)
			return nil
		})
		if err != nil {
			r.logger.Warn("progress mirror failed", slog.String("userId", rec.UserID), slog.Any("error", err))
		}
	}()
}
