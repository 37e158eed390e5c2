package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matsufriends-org/steam-upload-helper/internal/state"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster fans operation changes out to WebSocket clients. Deltas
// are throttled; outcome and mobile confirmation messages bypass the
// throttle. A periodic full snapshot heals clients that missed a delta.
type Broadcaster struct {
	mu             sync.RWMutex
	clients        map[*client]bool
	store          *state.Store
	throttle       time.Duration
	snapshotTicker *time.Ticker
	pendingUpdates []*state.Operation
	pendingRemoved []string
	flushTimer     *time.Timer
	flushMu        sync.Mutex
}

func NewBroadcaster(store *state.Store, throttle, snapshotInterval time.Duration) *Broadcaster {
	b := &Broadcaster{
		clients:  make(map[*client]bool),
		store:    store,
		throttle: throttle,
	}

	b.snapshotTicker = time.NewTicker(snapshotInterval)
	go b.snapshotLoop()

	return b
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	snapshot := WSMessage{
		Type: MsgSnapshot,
		Payload: SnapshotPayload{
			Operations: b.store.GetAll(),
			Flags:      b.store.Flags(),
		},
	}
	data, _ := json.Marshal(snapshot)

	select {
	case c.send <- data:
	default:
		// Client too slow, drop the snapshot
	}

	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// QueueUpdate records operations for the next throttled delta. Each
// operation is copied at queue time: callers keep mutating their pointer
// from monitor goroutines while the deferred flush marshals the pending
// slice.
func (b *Broadcaster) QueueUpdate(ops ...*state.Operation) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	for _, op := range ops {
		clone := *op
		b.pendingUpdates = append(b.pendingUpdates, &clone)
	}

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) QueueRemoval(ids ...string) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.pendingRemoved = append(b.pendingRemoved, ids...)

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

// NotifyOutcome announces a terminal status immediately.
func (b *Broadcaster) NotifyOutcome(op *state.Operation) {
	b.broadcast(WSMessage{
		Type: MsgOutcome,
		Payload: OutcomePayload{
			OperationID: op.ID,
			Kind:        op.Kind,
			Status:      op.Status,
			Detail:      op.Detail,
		},
	})
}

// NotifyMobileConfirmation announces a pending Steam Guard mobile
// approval immediately.
func (b *Broadcaster) NotifyMobileConfirmation(operationID, message string) {
	b.broadcast(WSMessage{
		Type: MsgMobileConfirmation,
		Payload: MobileConfirmationPayload{
			OperationID: operationID,
			Message:     message,
		},
	})
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	updates := b.pendingUpdates
	removed := b.pendingRemoved
	b.pendingUpdates = nil
	b.pendingRemoved = nil
	b.flushTimer = nil
	b.flushMu.Unlock()

	if len(updates) == 0 && len(removed) == 0 {
		return
	}

	b.broadcast(WSMessage{
		Type: MsgDelta,
		Payload: DeltaPayload{
			Updates: updates,
			Removed: removed,
			Flags:   b.store.Flags(),
		},
	})
}

func (b *Broadcaster) snapshotLoop() {
	for range b.snapshotTicker.C {
		b.broadcast(WSMessage{
			Type: MsgSnapshot,
			Payload: SnapshotPayload{
				Operations: b.store.GetAll(),
				Flags:      b.store.Flags(),
			},
		})
	}
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[ws] broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up, disconnect it
			log.Printf("[ws] client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
