package contract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/a3tai/mcp-rental-contract/internal/delivery"
)

var (
	// ErrNotFound is returned for unknown record ids.
	ErrNotFound = errors.New("contract not found")
	// ErrExists is returned when creating a record whose id is taken.
	ErrExists = errors.New("contract already exists")
	// ErrConflict is returned when a replacement is based on a stale version.
	ErrConflict = errors.New("contract was modified concurrently")
	// ErrStoreFull is returned when the store holds its maximum.
	ErrStoreFull = errors.New("contract store is full")
)

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	OfficeID string
	Status   Status
	// Query matches tenant, landlord or property address, ignoring case,
	// accents and punctuation.
	Query string
	Limit int
}

func (f Filter) match(r *Record) bool {
	if f.OfficeID != "" && r.OfficeID != f.OfficeID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Query != "" {
		q := delivery.Slug(f.Query)
		for _, s := range []string{r.Tenant.Name, r.Landlord.Name, r.Property.Address} {
			if strings.Contains(delivery.Slug(s), q) {
				return true
			}
		}
		return false
	}
	return true
}

// Store persists contract records. Updates are full replacements.
type Store interface {
	Create(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, f Filter) ([]*Record, error)
	Replace(ctx context.Context, r *Record) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps records in process memory. It hands out copies, so
// callers never share a record with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	max     int
}

// NewMemoryStore returns a store holding at most max records; max <= 0
// means unbounded.
func NewMemoryStore(max int) *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record), max: max}
}

func (m *MemoryStore) Create(ctx context.Context, r *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[r.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, r.ID)
	}
	if m.max > 0 && len(m.records) >= m.max {
		return ErrStoreFull
	}
	c := r.Clone()
	c.Version = 1
	m.records[r.ID] = c
	r.Version = 1
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.Clone(), nil
}

// List returns matching records, oldest first.
func (m *MemoryStore) List(ctx context.Context, f Filter) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		if f.match(r) {
			out = append(out, r.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Replace swaps the stored record for r. r.Version must match the stored
// version; on success both are incremented.
func (m *MemoryStore) Replace(ctx context.Context, r *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.records[r.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, r.ID)
	}
	if cur.Version != r.Version {
		return fmt.Errorf("%w: %s at version %d, update based on %d", ErrConflict, r.ID, cur.Version, r.Version)
	}
	c := r.Clone()
	c.Version++
	m.records[r.ID] = c
	r.Version = c.Version
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.records, id)
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
