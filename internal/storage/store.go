package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists parameter history, the write journal and token requests.
type Store interface {
	AppendReadings(ctx context.Context, readings []Reading) error
	History(ctx context.Context, parameter string, since time.Time, limit int) ([]Reading, error)
	RecordWrite(ctx context.Context, rec WriteRecord) error
	RecentWrites(ctx context.Context, limit int) ([]WriteRecord, error)
	LogAuthEvent(ctx context.Context, ev AuthEvent) error
	RecentAuthEvents(ctx context.Context, limit int) ([]AuthEvent, error)
	Close()
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresClient)(nil)
)

const defaultMemoryRetention = 1000

// MemoryStore keeps the most recent readings per parameter in memory. It is
// used when no database is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	retention int
	readings  map[string][]Reading
	writes    []WriteRecord
	events    []AuthEvent
}

func NewMemoryStore(retention int) *MemoryStore {
	if retention <= 0 {
		retention = defaultMemoryRetention
	}
	return &MemoryStore{
		retention: retention,
		readings:  make(map[string][]Reading),
	}
}

func (m *MemoryStore) AppendReadings(_ context.Context, readings []Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range readings {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		list := append(m.readings[r.Parameter], r)
		if len(list) > m.retention {
			list = list[len(list)-m.retention:]
		}
		m.readings[r.Parameter] = list
	}
	return nil
}

// History returns readings of parameter at or after since, newest first.
func (m *MemoryStore) History(_ context.Context, parameter string, since time.Time, limit int) ([]Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Reading, 0)
	for _, r := range m.readings[parameter] {
		if !r.ReadAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReadAt.After(out[j].ReadAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) RecordWrite(_ context.Context, rec WriteRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.writes = append(m.writes, rec)
	if len(m.writes) > m.retention {
		m.writes = m.writes[len(m.writes)-m.retention:]
	}
	return nil
}

// RecentWrites returns the latest writes, newest first.
func (m *MemoryStore) RecentWrites(_ context.Context, limit int) ([]WriteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.writes)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]WriteRecord, 0, n)
	for i := len(m.writes) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.writes[i])
	}
	return out, nil
}

func (m *MemoryStore) LogAuthEvent(_ context.Context, ev AuthEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	m.events = append(m.events, ev)
	if len(m.events) > m.retention {
		m.events = m.events[len(m.events)-m.retention:]
	}
	return nil
}

// RecentAuthEvents returns the latest token requests, newest first.
func (m *MemoryStore) RecentAuthEvents(_ context.Context, limit int) ([]AuthEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]AuthEvent, 0, n)
	for i := len(m.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() {}
