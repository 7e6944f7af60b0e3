package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the lock only while it still holds our token, so a
// lease that expired and was taken by another node is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockSnapshot takes the snapshot lease of a workspace for ttl. It returns
// the lease token, or an empty token when another node holds the lease.
func (s *Store) LockSnapshot(ctx context.Context, workspaceID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, snapshotLockKey(workspaceID), token, ttl).Result()
	if err != nil || !ok {
		return "", err
	}
	return token, nil
}

func (s *Store) UnlockSnapshot(ctx context.Context, workspaceID, token string) error {
	return unlockScript.Run(ctx, s.rdb, []string{snapshotLockKey(workspaceID)}, token).Err()
}
