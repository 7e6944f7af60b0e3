package main

import (
	"context"
	"time"

	"github.com/ssau-fiit/cloudocs-api/database"
	"github.com/ssau-fiit/cloudocs-api/workspace"
)

// Store persists workspace snapshots and the operation log accumulated
// since the last snapshot.
type Store interface {
	GetWorkspace(ctx context.Context, id string) (workspace.SerializedWorkspace, error)
	UpdateWorkspace(ctx context.Context, ws workspace.SerializedWorkspace) error
	DeleteWorkspace(ctx context.Context, id string) error
	ListWorkspaces(ctx context.Context) ([]database.WorkspaceInfo, error)

	StoreOperation(ctx context.Context, workspaceID string, op []byte) error
	Operations(ctx context.Context, workspaceID string) ([][]byte, error)
	TrimOperations(ctx context.Context, workspaceID string, n int) error
	PendingWorkspaces(ctx context.Context) ([]string, error)

	// LockSnapshot returns an empty token when another node holds the
	// snapshot lease of the workspace.
	LockSnapshot(ctx context.Context, workspaceID string, ttl time.Duration) (string, error)
	UnlockSnapshot(ctx context.Context, workspaceID, token string) error
}

// Broker fans operations out to every server node holding the workspace.
type Broker interface {
	Publish(ctx context.Context, workspaceID string, msg []byte) error
	Subscribe(ctx context.Context, workspaceID string) (<-chan []byte, func() error, error)
}

var (
	_ Store  = (*database.Store)(nil)
	_ Broker = (*database.Store)(nil)
)
