package database

import (
	"context"

	"github.com/rs/zerolog/log"
)

func (s *Store) Publish(ctx context.Context, workspaceID string, msg []byte) error {
	return s.rdb.Publish(ctx, channel(workspaceID), msg).Err()
}

// Subscribe delivers every message published for the workspace until the
// returned close function is called. The channel is closed afterwards.
func (s *Store) Subscribe(ctx context.Context, workspaceID string) (<-chan []byte, func() error, error) {
	ps := s.rdb.Subscribe(ctx, channel(workspaceID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			out <- []byte(msg.Payload)
		}
		log.Debug().Str("workspace", workspaceID).Msg("subscription closed")
	}()
	return out, ps.Close, nil
}
