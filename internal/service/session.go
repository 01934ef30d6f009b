package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// State is a booking session's position in the checkout flow.
type State string

const (
	StateEmpty         State = "EMPTY"
	StateSeatsSelected State = "SEATS_SELECTED"
	StateItemsSelected State = "ITEMS_SELECTED"
	StateFinalized     State = "FINALIZED"
	StateAborted       State = "ABORTED"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateAborted
}

// Session is the in-progress, unpersisted selection of one customer.  It
// lives in a SessionStore under its ID and is passed by ID to every
// workflow call.
type Session struct {
	ID            string
	ScreeningID   uint64
	Purchaser     model.Purchaser
	State         State
	SeatIDs       []uint64
	Concessions   []model.ConcessionLine
	ReservationID uint64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	// Version counts successful saves.  A save only succeeds when it
	// carries the version currently stored.
	Version uint64
}

type sessionJSON struct {
	ID            string                 `json:"id"`
	ScreeningID   uint64                 `json:"screening_id"`
	Purchaser     json.RawMessage        `json:"purchaser"`
	State         State                  `json:"state"`
	SeatIDs       []uint64               `json:"seat_ids"`
	Concessions   []model.ConcessionLine `json:"concessions"`
	ReservationID uint64                 `json:"reservation_id,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	Version       uint64                 `json:"version"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	p, err := model.MarshalPurchaser(s.Purchaser)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sessionJSON{
		ID: s.ID, ScreeningID: s.ScreeningID, Purchaser: p, State: s.State,
		SeatIDs: s.SeatIDs, Concessions: s.Concessions, ReservationID: s.ReservationID,
		CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt, Version: s.Version,
	})
}

func (s *Session) UnmarshalJSON(b []byte) error {
	var sj sessionJSON
	if err := json.Unmarshal(b, &sj); err != nil {
		return err
	}
	p, err := model.UnmarshalPurchaser(sj.Purchaser)
	if err != nil {
		return err
	}
	*s = Session{
		ID: sj.ID, ScreeningID: sj.ScreeningID, Purchaser: p, State: sj.State,
		SeatIDs: sj.SeatIDs, Concessions: sj.Concessions, ReservationID: sj.ReservationID,
		CreatedAt: sj.CreatedAt, UpdatedAt: sj.UpdatedAt, Version: sj.Version,
	}
	return nil
}

func (s *Session) clone() *Session {
	c := *s
	c.SeatIDs = append([]uint64(nil), s.SeatIDs...)
	c.Concessions = append([]model.ConcessionLine(nil), s.Concessions...)
	return &c
}

var (
	// ErrSessionNotFound is returned by a SessionStore for unknown or
	// expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionStale is returned by Save when the stored session has
	// moved past the version the caller loaded.
	ErrSessionStale = errors.New("session was changed by another request")
	// ErrSessionLocked is returned by Lock while another holder has the
	// session.
	ErrSessionLocked = errors.New("session is locked")
)

// SessionStore keeps booking sessions between calls.
//
// Save is a compare-and-swap: it succeeds only if s.Version equals the
// stored version (zero for a session not stored yet) and increments
// s.Version on success.  Lock takes a short exclusive hold on a session id;
// the returned func releases it.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Lock(ctx context.Context, id string, ttl time.Duration) (func(), error)
}

type memoryEntry struct {
	session *Session
	expires time.Time
}

// MemorySessionStore keeps sessions in process memory.  Suitable for a
// single instance and for tests.
type MemorySessionStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	data  map[string]memoryEntry
	locks map[string]memoryLock
	seq   uint64
}

type memoryLock struct {
	token uint64
	until time.Time
}

// NewMemorySessionStore returns a store whose entries expire ttl after
// their last save.  A ttl of zero disables expiry.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:   ttl,
		now:   time.Now,
		data:  make(map[string]memoryEntry),
		locks: make(map[string]memoryLock),
	}
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.session.clone(), nil
}

// live returns the unexpired entry for id.  Callers hold m.mu.
func (m *MemorySessionStore) live(id string) (memoryEntry, bool) {
	e, ok := m.data[id]
	if ok && m.ttl > 0 && m.now().After(e.expires) {
		delete(m.data, id)
		return memoryEntry{}, false
	}
	return e, ok
}

func (m *MemorySessionStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stored uint64
	if e, ok := m.live(s.ID); ok {
		stored = e.session.Version
	}
	if s.Version != stored {
		return ErrSessionStale
	}
	s.Version++
	m.data[s.ID] = memoryEntry{session: s.clone(), expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *MemorySessionStore) Lock(_ context.Context, id string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if l, ok := m.locks[id]; ok && now.Before(l.until) {
		return nil, ErrSessionLocked
	}
	m.seq++
	token := m.seq
	m.locks[id] = memoryLock{token: token, until: now.Add(ttl)}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.locks[id].token == token {
			delete(m.locks, id)
		}
	}, nil
}
