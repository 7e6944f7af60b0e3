package database

import (
	"context"
)

// StoreOperation appends a wire-encoded operation to the workspace log and
// marks the workspace for the next snapshot.
func (s *Store) StoreOperation(ctx context.Context, workspaceID string, op []byte) error {
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, operationsKey(workspaceID), op)
	pipe.SAdd(ctx, pendingKey, workspaceID)
	_, err := pipe.Exec(ctx)
	return err
}

// Operations returns the logged operations in arrival order.
func (s *Store) Operations(ctx context.Context, workspaceID string) ([][]byte, error) {
	res, err := s.rdb.LRange(ctx, operationsKey(workspaceID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	ops := make([][]byte, len(res))
	for i, op := range res {
		ops[i] = []byte(op)
	}
	return ops, nil
}

// TrimOperations drops the first n operations of the log. Operations
// appended after they were read are kept. A negative n drops the whole log.
func (s *Store) TrimOperations(ctx context.Context, workspaceID string, n int) error {
	key := operationsKey(workspaceID)
	if n < 0 {
		pipe := s.rdb.TxPipeline()
		pipe.Del(ctx, key)
		pipe.SRem(ctx, pendingKey, workspaceID)
		_, err := pipe.Exec(ctx)
		return err
	}
	if err := s.rdb.LTrim(ctx, key, int64(n), -1).Err(); err != nil {
		return err
	}
	if err := s.rdb.SRem(ctx, pendingKey, workspaceID).Err(); err != nil {
		return err
	}
	left, err := s.rdb.LLen(ctx, key).Result()
	if err != nil {
		return err
	}
	if left > 0 {
		return s.rdb.SAdd(ctx, pendingKey, workspaceID).Err()
	}
	return nil
}

// PendingWorkspaces lists workspaces whose log is not empty.
func (s *Store) PendingWorkspaces(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, pendingKey).Result()
}
