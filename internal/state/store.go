package state

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store holds the operation history and summary flags shared between the
// monitors (writers) and the HTTP/WebSocket surface (readers). Reads return
// copies so callers can never mutate stored state.
type Store struct {
	mu          sync.RWMutex
	ops         map[string]*Operation
	seq         int
	loggedIn    bool
	consoleOpen bool
	username    string
}

func NewStore() *Store {
	return &Store{
		ops: make(map[string]*Operation),
	}
}

// NewOperation creates, stores, and returns a running operation of the
// given kind with a fresh ID.
func (s *Store) NewOperation(kind Kind, detail string) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	op := &Operation{
		ID:        fmt.Sprintf("%s-%d", kind, s.seq),
		Kind:      kind,
		Status:    Running,
		Detail:    detail,
		StartedAt: time.Now(),
	}
	clone := *op
	s.ops[op.ID] = &clone
	return op
}

func (s *Store) Get(id string) (*Operation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[id]
	if !ok {
		return nil, false
	}
	clone := *op
	return &clone, true
}

// GetAll returns every operation ordered by start time.
func (s *Store) GetAll() []*Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Operation, 0, len(s.ops))
	for _, op := range s.ops {
		clone := *op
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result
}

func (s *Store) Update(op *Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *op
	s.ops[op.ID] = &clone
}

// UpdateAndNotify commits op and runs notify under the same lock, so a
// concurrent HTTP read cannot observe the new state before the WebSocket
// clients have been queued the change.
func (s *Store) UpdateAndNotify(op *Operation, notify func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *op
	s.ops[op.ID] = &clone
	if notify != nil {
		notify()
	}
}

func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ops, id)
}

// ActiveCount returns the number of non-terminal operations.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, op := range s.ops {
		if !op.IsTerminal() {
			count++
		}
	}
	return count
}

// SetLoggedIn records the login flag. Written only by the login monitor's
// callbacks and by the console monitor when the console closes.
func (s *Store) SetLoggedIn(v bool) {
	s.mu.Lock()
	s.loggedIn = v
	s.mu.Unlock()
}

func (s *Store) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

// SetConsoleOpen records the console flag. Written only by the launcher
// and the console monitor.
func (s *Store) SetConsoleOpen(v bool) {
	s.mu.Lock()
	s.consoleOpen = v
	s.mu.Unlock()
}

func (s *Store) ConsoleOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consoleOpen
}

func (s *Store) SetUsername(name string) {
	s.mu.Lock()
	s.username = name
	s.mu.Unlock()
}

// Flags returns a consistent snapshot of the summary flags.
func (s *Store) Flags() Flags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Flags{
		LoggedIn:    s.loggedIn,
		ConsoleOpen: s.consoleOpen,
		Username:    s.username,
	}
}
