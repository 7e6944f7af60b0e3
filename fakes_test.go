package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ssau-fiit/cloudocs-api/crdt"
	"github.com/ssau-fiit/cloudocs-api/database"
	"github.com/ssau-fiit/cloudocs-api/workspace"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore keeps everything in memory and round-trips snapshots through
// JSON like the redis store does.
type fakeStore struct {
	mu         sync.Mutex
	workspaces map[string][]byte
	ops        map[string][][]byte
	pending    map[string]bool
	locks      map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		workspaces: make(map[string][]byte),
		ops:        make(map[string][][]byte),
		pending:    make(map[string]bool),
		locks:      make(map[string]string),
	}
}

func (s *fakeStore) GetWorkspace(_ context.Context, id string) (workspace.SerializedWorkspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ws workspace.SerializedWorkspace
	raw, ok := s.workspaces[id]
	if !ok {
		return ws, fmt.Errorf("workspace %s: %w", id, database.ErrNotFound)
	}
	err := json.Unmarshal(raw, &ws)
	return ws, err
}

func (s *fakeStore) UpdateWorkspace(_ context.Context, ws workspace.SerializedWorkspace) error {
	raw, err := json.Marshal(ws)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces[ws.ID] = raw
	return nil
}

func (s *fakeStore) DeleteWorkspace(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[id]; !ok {
		return fmt.Errorf("workspace %s: %w", id, database.ErrNotFound)
	}
	delete(s.workspaces, id)
	delete(s.ops, id)
	delete(s.pending, id)
	return nil
}

func (s *fakeStore) ListWorkspaces(_ context.Context) ([]database.WorkspaceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var infos []database.WorkspaceInfo
	for _, raw := range s.workspaces {
		var ws workspace.SerializedWorkspace
		if err := json.Unmarshal(raw, &ws); err != nil {
			return nil, err
		}
		info := database.WorkspaceInfo{ID: ws.ID, Name: ws.Name, Pages: len(ws.PageList)}
		for user, role := range ws.AuthUser {
			if role == workspace.RoleOwner {
				info.Owner = user
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *fakeStore) StoreOperation(_ context.Context, workspaceID string, op []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops[workspaceID] = append(s.ops[workspaceID], append([]byte(nil), op...))
	s.pending[workspaceID] = true
	return nil
}

func (s *fakeStore) Operations(_ context.Context, workspaceID string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.ops[workspaceID]...), nil
}

func (s *fakeStore) TrimOperations(_ context.Context, workspaceID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.ops[workspaceID]
	if n < 0 || n > len(ops) {
		n = len(ops)
	}
	s.ops[workspaceID] = ops[n:]
	if len(s.ops[workspaceID]) == 0 {
		delete(s.ops, workspaceID)
		delete(s.pending, workspaceID)
	}
	return nil
}

func (s *fakeStore) PendingWorkspaces(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeStore) LockSnapshot(_ context.Context, workspaceID string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.locks[workspaceID]; held {
		return "", nil
	}
	token := uuid.NewString()
	s.locks[workspaceID] = token
	return token, nil
}

func (s *fakeStore) UnlockSnapshot(_ context.Context, workspaceID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[workspaceID] == token {
		delete(s.locks, workspaceID)
	}
	return nil
}

type fakeBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subs: make(map[string]map[chan []byte]struct{})}
}

func (b *fakeBroker) Publish(_ context.Context, workspaceID string, msg []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[workspaceID] {
		ch <- msg
	}
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, workspaceID string) (<-chan []byte, func() error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 64)
	if b.subs[workspaceID] == nil {
		b.subs[workspaceID] = make(map[chan []byte]struct{})
	}
	b.subs[workspaceID][ch] = struct{}{}
	return ch, func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[workspaceID][ch]; ok {
			delete(b.subs[workspaceID], ch)
			close(ch)
		}
		return nil
	}, nil
}

func (b *fakeBroker) subscribers(workspaceID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[workspaceID])
}

func seedWorkspace(t *testing.T, store Store, name string) string {
	t.Helper()
	ws := workspace.New("", name, 1)
	require.NoError(t, store.UpdateWorkspace(context.Background(), ws.Serialize()))
	return ws.ID
}

func encode(t *testing.T, op crdt.Operation) []byte {
	t.Helper()
	raw, err := json.Marshal(op)
	require.NoError(t, err)
	return raw
}

func receive(t *testing.T, p *peer) []byte {
	t.Helper()
	select {
	case msg := <-p.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func assertSilent(t *testing.T, p *peer) {
	t.Helper()
	select {
	case msg := <-p.send:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
