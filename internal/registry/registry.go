// Package registry keeps the tables that live for the duration of a process.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/pokertable/internal/game"
)

var (
	ErrNotFound     = errors.New("table not found")
	ErrDuplicateKey = errors.New("table label already registered")
)

// Entry is a registered table.
type Entry struct {
	ID        string
	Label     string
	Table     *game.Table
	CreatedAt time.Time
}

// Summary is lightweight table metadata for listings.
type Summary struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Seats       int       `json:"seats"`
	Funded      int       `json:"funded"`
	SmallBlind  int       `json:"small_blind"`
	BigBlind    int       `json:"big_blind"`
	HandsPlayed int       `json:"hands_played"`
	InHand      bool      `json:"in_hand"`
	Broken      bool      `json:"broken"`
	CreatedAt   time.Time `json:"created_at"`
}

// Registry maps table ids to tables. The zero value is not usable; call New.
type Registry struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry
	labels  map[string]string
	now     func() time.Time
}

// New creates an empty registry.
func New(logger zerolog.Logger) *Registry {
	return &Registry{
		logger:  logger.With().Str("component", "registry").Logger(),
		entries: make(map[string]*Entry),
		labels:  make(map[string]string),
		now:     time.Now,
	}
}

// Create builds a table with a fresh id and registers it. Labels are optional
// but unique when given.
func (r *Registry) Create(label string, cfg game.Config, seats []game.Seat, opts ...game.Option) (*Entry, error) {
	label = strings.TrimSpace(label)
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	if label != "" {
		if _, ok := r.labels[label]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, label)
		}
	}

	opts = append(opts, game.WithID(id))
	tbl, err := game.NewTable(cfg, seats, opts...)
	if err != nil {
		return nil, err
	}

	e := &Entry{ID: id, Label: label, Table: tbl, CreatedAt: r.now()}
	r.entries[id] = e
	if label != "" {
		r.labels[label] = id
	}

	r.logger.Info().Str("table_id", id).Str("label", label).Int("seats", len(seats)).Msg("Table registered")
	return e, nil
}

// Get looks a table up by id or label.
func (r *Registry) Get(key string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[key]; ok {
		return e, nil
	}
	if id, ok := r.labels[key]; ok {
		return r.entries[id], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Remove unregisters a table and returns it.
func (r *Registry) Remove(key string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := key
	if mapped, ok := r.labels[key]; ok {
		id = mapped
	}
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(r.entries, id)
	if e.Label != "" {
		delete(r.labels, e.Label)
	}

	r.logger.Info().Str("table_id", id).Msg("Table removed")
	return e, nil
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Entries returns the registered tables, oldest first.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Entry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// List summarises every table, oldest first.
func (r *Registry) List() []Summary {
	entries := r.Entries()
	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Summary())
	}
	return out
}

// Summary reads the current table state.
func (e *Entry) Summary() Summary {
	small, big := e.Table.Blinds()
	return Summary{
		ID:          e.ID,
		Label:       e.Label,
		Seats:       e.Table.NumSeats(),
		Funded:      len(e.Table.FundedSeats()),
		SmallBlind:  small,
		BigBlind:    big,
		HandsPlayed: e.Table.HandCount(),
		InHand:      e.Table.InHand(),
		Broken:      e.Table.Err() != nil,
		CreatedAt:   e.CreatedAt,
	}
}
