package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
	"github.com/ssau-fiit/cloudocs-api/workspace"
)

var ErrNotFound = errors.New("not found")

// WorkspaceInfo is the listing entry kept next to every workspace snapshot.
type WorkspaceInfo struct {
	ID        string `json:"id" mapstructure:"id"`
	Name      string `json:"name" mapstructure:"name"`
	Owner     string `json:"owner" mapstructure:"owner"`
	Pages     int    `json:"pages" mapstructure:"pages"`
	UpdatedAt int64  `json:"updatedAt" mapstructure:"updatedAt"`
}

// Store keeps workspace snapshots, their operation logs and the pub/sub
// channels replicas use to exchange operations.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) GetWorkspace(ctx context.Context, id string) (workspace.SerializedWorkspace, error) {
	var ws workspace.SerializedWorkspace
	raw, err := s.rdb.Get(ctx, workspaceKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ws, fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ws, err
	}
	if err := json.Unmarshal(raw, &ws); err != nil {
		return ws, fmt.Errorf("decode workspace %s: %w", id, err)
	}
	return ws, nil
}

// UpdateWorkspace replaces the snapshot and refreshes the listing entry.
func (s *Store) UpdateWorkspace(ctx context.Context, ws workspace.SerializedWorkspace) error {
	data, err := json.Marshal(ws)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, workspaceKey(ws.ID), data, 0)
	pipe.HSet(ctx, infoKey(ws.ID),
		"id", ws.ID,
		"name", ws.Name,
		"owner", ownerOf(ws),
		"pages", len(ws.PageList),
		"updatedAt", time.Now().Unix(),
	)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) ListWorkspaces(ctx context.Context) ([]WorkspaceInfo, error) {
	keys, err := s.rdb.Keys(ctx, infoKey("*")).Result()
	if err != nil {
		return nil, err
	}

	infos := make([]WorkspaceInfo, 0, len(keys))
	for _, key := range keys {
		res, err := s.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		info, err := decodeInfo(res)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	exists, err := s.rdb.Exists(ctx, workspaceKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, workspaceKey(id), infoKey(id), operationsKey(id))
	pipe.SRem(ctx, pendingKey, id)
	_, err = pipe.Exec(ctx)
	return err
}

func decodeInfo(m map[string]string) (WorkspaceInfo, error) {
	var info WorkspaceInfo
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &info,
	})
	if err != nil {
		return info, err
	}
	err = dec.Decode(m)
	return info, err
}

func ownerOf(ws workspace.SerializedWorkspace) string {
	for user, role := range ws.AuthUser {
		if role == workspace.RoleOwner {
			return user
		}
	}
	return ""
}
