package main

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/ssau-fiit/cloudocs-api/workspace"
)

const peerBuffer = 256

// hub keeps one live replica per workspace that has connected sockets on
// this node. Operations reach a replica only through the broker, so every
// node applies them in the order the broker delivers.
type hub struct {
	store  Store
	broker Broker
	origin string
	client uint64

	mu      sync.Mutex // protects rooms and opening
	rooms   map[string]*room
	opening map[string]*opening
}

// opening is a room load in progress.
type opening struct {
	done chan struct{}
	err  error
}

type room struct {
	id          string
	unsubscribe func() error

	mu    sync.Mutex // protects the fields below
	ws    *workspace.Workspace
	peers map[*peer]struct{}
}

// peer is one connected socket.
type peer struct {
	id   string
	send chan []byte
	gone chan struct{}
	once sync.Once
}

func newPeer() *peer {
	return &peer{
		id:   uuid.NewString(),
		send: make(chan []byte, peerBuffer),
		gone: make(chan struct{}),
	}
}

// kick tells the socket writer to close the connection.
func (p *peer) kick() {
	p.once.Do(func() { close(p.gone) })
}

func newHub(store Store, broker Broker, client uint64) *hub {
	return &hub{
		store:   store,
		broker:  broker,
		origin:  uuid.NewString(),
		client:  client,
		rooms:   make(map[string]*room),
		opening: make(map[string]*opening),
	}
}

// join adds p to the workspace room, loading the replica if this is the
// first socket for it on this node. The load runs outside h.mu; concurrent
// joins of the same workspace wait for it.
func (h *hub) join(ctx context.Context, workspaceID string, p *peer) (*room, error) {
	h.mu.Lock()
	if r, ok := h.rooms[workspaceID]; ok {
		r.add(p)
		h.mu.Unlock()
		return r, nil
	}
	o, busy := h.opening[workspaceID]
	if !busy {
		o = &opening{done: make(chan struct{})}
		h.opening[workspaceID] = o
	}
	h.mu.Unlock()

	if busy {
		select {
		case <-o.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if o.err != nil {
			return nil, o.err
		}
		return h.join(ctx, workspaceID, p)
	}

	r, err := h.open(ctx, workspaceID)
	h.mu.Lock()
	delete(h.opening, workspaceID)
	o.err = err
	if err == nil {
		h.rooms[workspaceID] = r
		r.add(p)
	}
	h.mu.Unlock()
	close(o.done)
	return r, err
}

func (r *room) add(p *peer) {
	r.mu.Lock()
	r.peers[p] = struct{}{}
	r.mu.Unlock()
}

func (h *hub) open(ctx context.Context, workspaceID string) (*room, error) {
	// Subscribe before reading the log so nothing falls between the two.
	msgs, unsubscribe, err := h.broker.Subscribe(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	ws, _, err := loadWorkspace(ctx, h.store, workspaceID, h.client)
	if err != nil {
		if err := unsubscribe(); err != nil {
			log.Error().Err(err).Str("workspace", workspaceID).Msg("failed to unsubscribe")
		}
		return nil, err
	}

	r := &room{
		id:          workspaceID,
		unsubscribe: unsubscribe,
		ws:          ws,
		peers:       make(map[*peer]struct{}),
	}
	go h.listen(r, msgs)
	log.Debug().Str("workspace", workspaceID).Msg("room opened")
	return r, nil
}

func (h *hub) leave(workspaceID string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[workspaceID]
	if !ok {
		return
	}
	r.mu.Lock()
	delete(r.peers, p)
	empty := len(r.peers) == 0
	r.mu.Unlock()

	if empty {
		delete(h.rooms, workspaceID)
		if err := r.unsubscribe(); err != nil {
			log.Error().Err(err).Str("workspace", workspaceID).Msg("failed to unsubscribe")
		}
		log.Debug().Str("workspace", workspaceID).Msg("room closed")
	}
}

// submit logs a wire-encoded operation and publishes it to every node.
func (h *hub) submit(ctx context.Context, workspaceID, sender string, raw []byte) error {
	if _, err := workspace.DecodeOperation(raw); err != nil {
		return err
	}
	if err := h.store.StoreOperation(ctx, workspaceID, raw); err != nil {
		return err
	}
	env, err := json.Marshal(Envelope{Origin: h.origin, Sender: sender, Payload: raw})
	if err != nil {
		return err
	}
	return h.broker.Publish(ctx, workspaceID, env)
}

// listen applies broker messages to the room replica and relays them to
// the room sockets. Operations are idempotent, so ones already folded in
// by the initial load are harmless.
func (h *hub) listen(r *room, msgs <-chan []byte) {
	for msg := range msgs {
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			log.Warn().Err(err).Str("workspace", r.id).Msg("dropping malformed envelope")
			continue
		}
		op, err := workspace.DecodeOperation(env.Payload)
		if err != nil {
			log.Warn().Err(err).Str("workspace", r.id).Msg("dropping malformed operation")
			continue
		}

		r.mu.Lock()
		if err := r.ws.Apply(op); err != nil {
			log.Debug().Err(err).Str("workspace", r.id).Str("op", string(op.OpType())).Msg("operation not applied")
		}
		r.broadcast(env.Payload, env.Sender)
		r.mu.Unlock()
	}
}

// broadcast must be called with r.mu held. Sockets that cannot keep up are
// dropped from the room.
func (r *room) broadcast(msg []byte, sender string) {
	for p := range r.peers {
		if p.id == sender {
			continue
		}
		select {
		case p.send <- msg:
		default:
			log.Warn().Str("workspace", r.id).Str("peer", p.id).Msg("peer too slow, disconnecting")
			delete(r.peers, p)
			p.kick()
		}
	}
}

func (r *room) serialize() workspace.SerializedWorkspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ws.Serialize()
}

func (h *hub) room(workspaceID string) (*room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[workspaceID]
	return r, ok
}

func (h *hub) live(workspaceID string) bool {
	_, ok := h.room(workspaceID)
	return ok
}

// close drops every room and its subscription.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, r := range h.rooms {
		r.mu.Lock()
		for p := range r.peers {
			p.kick()
		}
		r.mu.Unlock()
		if err := r.unsubscribe(); err != nil {
			log.Error().Err(err).Str("workspace", id).Msg("failed to unsubscribe")
		}
		delete(h.rooms, id)
	}
}
