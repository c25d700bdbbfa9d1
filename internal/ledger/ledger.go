// Package ledger records the application-side entities a run leaves behind.
package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ErrNotFound is returned when an entry id is unknown.
var ErrNotFound = errors.New("ledger entry not found")

// Kind of created entity.
type Kind string

const (
	KindProvider    Kind = "provider"
	KindPatient     Kind = "patient"
	KindAppointment Kind = "appointment"
)

// Entry is one created entity.
type Entry struct {
	ID        string     `json:"id" yaml:"id"`
	RunID     string     `json:"run_id" yaml:"run_id"`
	Kind      Kind       `json:"kind" yaml:"kind"`
	Name      string     `json:"name" yaml:"name"`
	Email     string     `json:"email,omitempty" yaml:"email,omitempty"`
	Confirmed bool       `json:"confirmed" yaml:"confirmed"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	RemovedAt *time.Time `json:"removed_at,omitempty" yaml:"removed_at,omitempty"`
}

// Removed reports whether teardown removed the entity.
func (e Entry) Removed() bool { return e.RemovedAt != nil }

// Ledger stores entries. An entry is recorded as soon as the portal accepts
// the submit and confirmed once the run sees it listed.
type Ledger interface {
	Record(ctx context.Context, e Entry) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
	MarkConfirmed(ctx context.Context, id string) error
	MarkRemoved(ctx context.Context, id string, at time.Time) error
	Close() error
}

func prepare(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return e
}

// expired reports whether e was recorded more than ttl before now. A ttl <= 0
// never expires.
func expired(e Entry, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && !e.CreatedAt.Add(ttl).After(now)
}

// partition splits entries into live ones and the ids of expired ones.
func partition(entries []Entry, ttl time.Duration, now time.Time) (live []Entry, stale []string) {
	live = entries[:0]
	for _, e := range entries {
		if expired(e, ttl, now) {
			stale = append(stale, e.ID)
			continue
		}
		live = append(live, e)
	}
	return live, stale
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

// Memory is an in-process Ledger. Entries expire the TTL it was created with
// after they were recorded, if any.
type Memory struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemory creates an empty in-process ledger whose entries never expire.
func NewMemory() *Memory {
	return NewMemoryWithTTL(0)
}

// NewMemoryWithTTL creates an in-process ledger that forgets entries ttl
// after they were recorded. Updates keep the original deadline. A ttl <= 0
// keeps them forever.
func NewMemoryWithTTL(ttl time.Duration) *Memory {
	if ttl <= 0 {
		return &Memory{cache: cache.New(cache.NoExpiration, 0)}
	}
	return &Memory{cache: cache.New(ttl, ttl/2)}
}

func (m *Memory) Record(_ context.Context, e Entry) (Entry, error) {
	e = prepare(e)
	m.cache.SetDefault(e.ID, e)
	return e, nil
}

func (m *Memory) List(_ context.Context) ([]Entry, error) {
	items := m.cache.Items()
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(Entry))
	}
	sortEntries(out)
	return out, nil
}

func (m *Memory) MarkConfirmed(_ context.Context, id string) error {
	return m.update(id, func(e *Entry) { e.Confirmed = true })
}

func (m *Memory) MarkRemoved(_ context.Context, id string, at time.Time) error {
	return m.update(id, func(e *Entry) { e.RemovedAt = &at })
}

func (m *Memory) update(id string, fn func(e *Entry)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, deadline, ok := m.cache.GetWithExpiration(id)
	if !ok {
		return ErrNotFound
	}
	e := v.(Entry)
	fn(&e)

	d := cache.NoExpiration
	if !deadline.IsZero() {
		if d = time.Until(deadline); d <= 0 {
			return ErrNotFound
		}
	}
	return m.cache.Replace(id, e, d)
}

func (m *Memory) Close() error { return nil }
