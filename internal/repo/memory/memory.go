package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitewatch/internal/domain"
	"sitewatch/internal/repo"
)

var _ repo.TargetStore = (*Store)(nil)
var _ repo.HistoryStore = (*Store)(nil)

// Store keeps everything in process memory. Used by tests and as the
// fallback when no database is configured.
type Store struct {
	mu      sync.RWMutex
	targets map[domain.TargetID]*domain.Target
	history []*domain.HistoryRecord
	nextID  int64
}

func New() *Store {
	return &Store{
		targets: make(map[domain.TargetID]*domain.Target),
		history: make([]*domain.HistoryRecord, 0, 128),
	}
}

func (m *Store) Add(ctx context.Context, t *domain.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = domain.TargetID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = domain.StatusUnknown
	}
	cp := *t
	m.targets[t.ID] = &cp
	return nil
}

func (m *Store) List(ctx context.Context) ([]*domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Target, 0, len(m.targets))
	for _, t := range m.targets {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Store) Get(ctx context.Context, id domain.TargetID) (*domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.targets[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Store) GetByAddress(ctx context.Context, addr string) (*domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.targets {
		if t.Address == addr {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Store) Put(ctx context.Context, t *domain.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.targets[t.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Name = t.Name
	cur.Category = t.Category
	cur.AnomalyThreshold = t.AnomalyThreshold
	cur.Notifications = t.Notifications
	return nil
}

func (m *Store) Update(ctx context.Context, id domain.TargetID, u domain.TargetUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[id]
	if !ok {
		return repo.ErrNotFound
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.LatencyMS != nil {
		t.LatencyMS = u.LatencyMS
	}
	if u.LastCheck != nil {
		t.LastCheck = *u.LastCheck
	}
	if u.AvgLatencyMS != nil {
		t.AvgLatencyMS = u.AvgLatencyMS
	}
	if u.StddevLatencyMS != nil {
		t.StddevLatencyMS = u.StddevLatencyMS
	}
	if u.LastError != nil {
		t.LastError = *u.LastError
	}
	if u.LastStatusCode != nil {
		t.LastStatusCode = u.LastStatusCode
	}
	if u.TLSSet {
		t.TLS = u.TLS
	}
	if u.DomainSet {
		t.Domain = u.Domain
	}
	if u.DNSSet {
		t.DNS = u.DNS
	}
	if u.IPSet {
		t.IP = u.IP
	}
	return nil
}

func (m *Store) Delete(ctx context.Context, id domain.TargetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.targets[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.targets, id)
	kept := m.history[:0]
	for _, r := range m.history {
		if r.TargetID != id {
			kept = append(kept, r)
		}
	}
	m.history = kept
	return nil
}

func (m *Store) Append(ctx context.Context, r *domain.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *r
	cp.ID = m.nextID
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now().UTC()
	}
	m.history = append(m.history, &cp)
	return nil
}

func (m *Store) Since(ctx context.Context, id domain.TargetID, since time.Time) ([]domain.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.HistoryRecord, 0)
	for _, r := range m.history {
		if r.TargetID == id && !r.Timestamp.Before(since) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *Store) DeleteByTarget(ctx context.Context, id domain.TargetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.history[:0]
	for _, r := range m.history {
		if r.TargetID != id {
			kept = append(kept, r)
		}
	}
	m.history = kept
	return nil
}
