package database

import (
	"testing"

	"github.com/ssau-fiit/cloudocs-api/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "workspaces.42", workspaceKey("42"))
	assert.Equal(t, "workspaces.42.info", infoKey("42"))
	assert.Equal(t, "workspaces.*.info", infoKey("*"))
	assert.Equal(t, "operations.42", operationsKey("42"))
	assert.Equal(t, "workspaces.42.ops", channel("42"))
	assert.Equal(t, "workspaces.42.snapshot", snapshotLockKey("42"))
}

func TestDecodeInfo(t *testing.T) {
	info, err := decodeInfo(map[string]string{
		"id":        "42",
		"name":      "Notes",
		"owner":     "alice",
		"pages":     "3",
		"updatedAt": "1700000000",
	})
	require.NoError(t, err)
	assert.Equal(t, WorkspaceInfo{
		ID:        "42",
		Name:      "Notes",
		Owner:     "alice",
		Pages:     3,
		UpdatedAt: 1700000000,
	}, info)

	_, err = decodeInfo(map[string]string{"pages": "many"})
	assert.Error(t, err)
}

func TestOwnerOf(t *testing.T) {
	ws := workspace.SerializedWorkspace{AuthUser: map[string]string{
		"bob":   workspace.RoleEditor,
		"alice": workspace.RoleOwner,
	}}
	assert.Equal(t, "alice", ownerOf(ws))
	assert.Empty(t, ownerOf(workspace.SerializedWorkspace{}))
}
