package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warehouse-visualizer/backend/internal/logging"
	"github.com/warehouse-visualizer/backend/internal/models"
	"github.com/warehouse-visualizer/backend/internal/view"
	"go.uber.org/zap"
)

// DefaultMaxSessions limits concurrent views to bound memory use.
const DefaultMaxSessions = 50

// SessionMaxAge is how long an idle view is kept before cleanup.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow protects recently used views from cleanup.
const SessionKeepAliveWindow = 5 * time.Minute

var ErrNotFound = errors.New("view not found")

// Entry is one live view and the parameters it was bootstrapped with.
type Entry struct {
	View         *view.View
	Params       view.Params
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Outcomes reported to Observer.ViewCreated.
const (
	OutcomeCreated    = "created"
	OutcomeRouteError = "route_error"
	OutcomeLoadError  = "load_error"
)

// Reasons reported to Observer.ViewRemoved.
const (
	ReasonDeleted = "deleted"
	ReasonIdle    = "idle"
	ReasonEvicted = "evicted"
)

// Observer is told about view lifecycle events.
type Observer interface {
	ViewCreated(outcome string)
	ViewRemoved(reason string)
}

// Config holds what every new view is built with.
type Config struct {
	MaxSessions     int
	Style           *models.Style
	Recorder        view.RouteRecorder
	ClearStalePaths bool
	Observer        Observer
	Logger          *zap.Logger
}

// Manager handles active warehouse views.
type Manager struct {
	sessions map[string]*Entry
	mu       sync.RWMutex
	api      view.API
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a manager whose views talk to api.
func NewManager(api view.API, cfg Config) *Manager {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions: make(map[string]*Entry),
		api:      api,
		cfg:      cfg,
		logger:   logging.OrNop(cfg.Logger).Named("session"),
		now:      time.Now,
	}
}

// Create bootstraps a new view from p. The view is kept whenever its
// warehouse loaded, so a failed path request still returns an entry along
// with the *view.FlowError describing the failure. A load failure keeps
// nothing and returns a nil entry.
func (m *Manager) Create(ctx context.Context, p view.Params) (*Entry, error) {
	id := uuid.New().String()
	m.mu.RLock()
	style := m.cfg.Style
	m.mu.RUnlock()
	v := view.New(p.WarehouseID, m.api, view.Options{
		ID:              id,
		Style:           style,
		Logger:          m.cfg.Logger,
		Recorder:        m.cfg.Recorder,
		ClearStalePaths: m.cfg.ClearStalePaths,
	})

	flowErr := v.Bootstrap(ctx, p)
	if !v.Loaded() {
		m.observeCreated(OutcomeLoadError)
		return nil, flowErr
	}
	if flowErr != nil {
		m.observeCreated(OutcomeRouteError)
	} else {
		m.observeCreated(OutcomeCreated)
	}

	now := m.now()
	entry := &Entry{View: v, Params: p, CreatedAt: now, LastAccessed: now}

	m.mu.Lock()
	m.evictIfNeededLocked()
	m.sessions[id] = entry
	m.mu.Unlock()

	m.logger.Info("view created",
		zap.String("view", id),
		zap.String("warehouse", p.WarehouseID),
		zap.Bool("pick", p.PickFlow()),
	)
	return entry, flowErr
}

// Get returns the entry for id and marks it as used.
func (m *Manager) Get(id string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	entry.LastAccessed = m.now()
	return entry, nil
}

// Touch updates the LastAccessed timestamp of a view.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return false
	}
	entry.LastAccessed = m.now()
	return true
}

// Delete drops a view.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	m.observeRemoved(ReasonDeleted)
	return nil
}

// SetStyle changes the style of every live view and of views created later.
func (m *Manager) SetStyle(style *models.Style) {
	m.mu.Lock()
	m.cfg.Style = style
	views := make([]*view.View, 0, len(m.sessions))
	for _, entry := range m.sessions {
		views = append(views, entry.View)
	}
	m.mu.Unlock()

	for _, v := range views {
		v.SetStyle(style)
	}
	m.logger.Info("style updated", zap.Int("views", len(views)))
}

// Len returns the number of live views.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns a copy of every entry, most recently used first. The copies
// are taken under the lock, so callers may read them freely.
func (m *Manager) List() []Entry {
	m.mu.RLock()
	out := make([]Entry, 0, len(m.sessions))
	for _, entry := range m.sessions {
		out = append(out, *entry)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAccessed.After(out[j].LastAccessed)
	})
	return out
}

// CleanupOldSessions removes views idle for longer than maxAge, except
// those used within SessionKeepAliveWindow. It returns how many were removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	removed := 0
	for id, entry := range m.sessions {
		if entry.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if entry.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
			m.observeRemoved(ReasonIdle)
			m.logger.Info("cleaned up idle view",
				zap.String("view", id),
				zap.Duration("idle", now.Sub(entry.LastAccessed).Round(time.Second)),
			)
		}
	}
	return removed
}

// StartCleanup runs CleanupOldSessions every interval until ctx is done.
func (m *Manager) StartCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupOldSessions(maxAge)
			}
		}
	}()
}

// evictIfNeededLocked drops the least recently used views until there is
// room for one more.
func (m *Manager) evictIfNeededLocked() {
	for len(m.sessions) >= m.cfg.MaxSessions {
		var oldestID string
		var oldest time.Time
		for id, entry := range m.sessions {
			if oldestID == "" || entry.LastAccessed.Before(oldest) {
				oldestID, oldest = id, entry.LastAccessed
			}
		}
		delete(m.sessions, oldestID)
		m.observeRemoved(ReasonEvicted)
		m.logger.Info("evicted view to stay under limit",
			zap.String("view", oldestID),
			zap.Int("max", m.cfg.MaxSessions),
		)
	}
}

func (m *Manager) observeCreated(outcome string) {
	if m.cfg.Observer != nil {
		m.cfg.Observer.ViewCreated(outcome)
	}
}

func (m *Manager) observeRemoved(reason string) {
	if m.cfg.Observer != nil {
		m.cfg.Observer.ViewRemoved(reason)
	}
}
