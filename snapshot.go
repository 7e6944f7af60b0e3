package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/ssau-fiit/cloudocs-api/common/util"
	"github.com/ssau-fiit/cloudocs-api/crdt"
	"github.com/ssau-fiit/cloudocs-api/database"
	"github.com/ssau-fiit/cloudocs-api/workspace"
	"golang.org/x/sync/errgroup"
)

const (
	snapshotWorkers = 4
	// snapshotLease bounds how long one node may hold a workspace while it
	// folds the log.
	snapshotLease = time.Minute
)

// loadWorkspace restores the stored snapshot and replays the operation log
// on top of it. It returns the replica and the number of log entries read.
func loadWorkspace(ctx context.Context, store Store, id string, client uint64) (*workspace.Workspace, int, error) {
	data, err := store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	ws, err := workspace.Deserialize(data, client)
	if err != nil {
		return nil, 0, err
	}

	raw, err := store.Operations(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("read operations of %s: %w", id, err)
	}
	ops := make([]crdt.Operation, 0, len(raw))
	for i, r := range raw {
		op, err := workspace.DecodeOperation(r)
		if err != nil {
			log.Warn().Err(err).Str("workspace", id).Int("index", i).Msg("skipping malformed operation")
			continue
		}
		ops = append(ops, op)
	}
	if err := ws.ApplyAll(ops); err != nil {
		log.Warn().Err(err).Str("workspace", id).Msg("some operations could not be applied")
	}
	return ws, len(raw), nil
}

// snapshotter periodically folds operation logs into stored snapshots.
type snapshotter struct {
	store    Store
	client   uint64
	interval time.Duration
	gc       bool
	// live reports whether a replica of the workspace is open on this node.
	// Tombstones of live workspaces are kept.
	live func(id string) bool
}

func newSnapshotter(store Store, h *hub, cfg *Config) *snapshotter {
	return &snapshotter{
		store:    store,
		client:   h.client,
		interval: cfg.GetSnapshotInterval(),
		gc:       cfg.SnapshotGC,
		live:     h.live,
	}
}

func (s *snapshotter) Run(ctx context.Context) {
	// Offset the first pass so nodes started together do not run in lockstep.
	jitter := time.Duration(util.GetRandomNumber()) * time.Microsecond % s.interval
	select {
	case <-ctx.Done():
		return
	case <-time.After(jitter):
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Snapshot(ctx); err != nil {
				log.Error().Err(err).Msg("snapshot failed")
			}
		}
	}
}

// Snapshot updates every workspace with a non-empty log. Workspaces are
// processed in parallel and a failure in one does not stop the others.
func (s *snapshotter) Snapshot(ctx context.Context) error {
	ids, err := s.store.PendingWorkspaces(ctx)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(snapshotWorkers)
	for _, id := range ids {
		g.Go(func() error {
			if err := s.snapshotWorkspace(ctx, id); err != nil {
				return fmt.Errorf("workspace %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// snapshotWorkspace folds the log under the workspace snapshot lease, so two
// nodes never trim each other's unread operations.
func (s *snapshotter) snapshotWorkspace(ctx context.Context, id string) error {
	token, err := s.store.LockSnapshot(ctx, id, snapshotLease)
	if err != nil {
		return err
	}
	if token == "" {
		log.Debug().Str("workspace", id).Msg("snapshot held by another node")
		return nil
	}
	defer func() {
		if err := s.store.UnlockSnapshot(ctx, id, token); err != nil {
			log.Error().Err(err).Str("workspace", id).Msg("failed to release snapshot lease")
		}
	}()

	ws, n, err := loadWorkspace(ctx, s.store, id, s.client)
	if errors.Is(err, database.ErrNotFound) {
		log.Warn().Str("workspace", id).Msg("dropping operations of deleted workspace")
		return s.store.TrimOperations(ctx, id, -1)
	}
	if err != nil {
		return err
	}

	deferred := ws.PendingOperations()
	purged := 0
	if s.gc && (s.live == nil || !s.live(id)) {
		purged = ws.ClearDeleted()
	}

	if err := s.store.UpdateWorkspace(ctx, ws.Serialize()); err != nil {
		return err
	}
	if err := s.store.TrimOperations(ctx, id, n); err != nil {
		return err
	}
	for _, op := range deferred {
		raw, err := json.Marshal(op)
		if err != nil {
			return err
		}
		if err := s.store.StoreOperation(ctx, id, raw); err != nil {
			return err
		}
	}

	log.Info().
		Str("workspace", id).
		Int("operations", n).
		Int("purged", purged).
		Int("deferred", len(deferred)).
		Msg("snapshot updated")
	return nil
}
