package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/tutor/internal/logging"
	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/evaluator"
	"github.com/aretw0/tutor/pkg/ports"
	"github.com/aretw0/tutor/pkg/sequencer"
)

// DefaultLockTTL bounds how long a distributed session lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// PageResolver returns the compiled page a session walks.
type PageResolver func(ctx context.Context, pageID string) (*domain.Page, error)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
//
// Every operation on a session runs under that session's lock, so attempts on
// one namespace never interleave. Live sequencers are cached in memory and
// rebuilt from the store by replay when the cache is cold or stale.
type Manager struct {
	store ports.StateStore
	eval  *evaluator.Evaluator
	pages PageResolver

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	liveMu sync.Mutex
	live   map[string]*sequencer.Sequencer

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the lease of the distributed lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithHooks sets the lifecycle hooks passed to every sequencer.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager over the given persistence store.
func NewManager(store ports.StateStore, eval *evaluator.Evaluator, pages PageResolver, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		eval:    eval,
		pages:   pages,
		locks:   make(map[string]*lockEntry),
		live:    make(map[string]*sequencer.Sequencer),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Start creates a session on the first step of pageID and persists it.
func (m *Manager) Start(ctx context.Context, pageID string) (*domain.SessionView, error) {
	page, err := m.pages(ctx, pageID)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	var view *domain.SessionView
	err = m.WithLock(ctx, id, func(ctx context.Context) error {
		seq := sequencer.New(page, m.eval, id, m.sequencerOptions()...)
		if err := m.save(ctx, seq); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		view = viewOf(seq)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("session started", "session_id", id, "page_id", pageID)
	return view, nil
}

// Submit runs one attempt in the session and persists the resulting state.
func (m *Manager) Submit(ctx context.Context, sessionID, source string) (*domain.Feedback, error) {
	var fb *domain.Feedback
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		seq, err := m.sequencer(ctx, sessionID)
		if err != nil {
			return err
		}

		before := seq.State()
		fb, err = seq.Submit(ctx, source)
		if err != nil {
			return err
		}
		fb.Diff = domain.Diff(before, seq.State())
		return m.save(ctx, seq)
	})
	if err != nil {
		return nil, err
	}
	return fb, nil
}

// Reset clears the session namespace; the cursor is unchanged.
func (m *Manager) Reset(ctx context.Context, sessionID string) (*domain.SessionView, error) {
	return m.mutate(ctx, sessionID, (*sequencer.Sequencer).Reset)
}

// Restart moves the session back to the first step with an empty namespace.
func (m *Manager) Restart(ctx context.Context, sessionID string) (*domain.SessionView, error) {
	return m.mutate(ctx, sessionID, (*sequencer.Sequencer).Restart)
}

func (m *Manager) mutate(ctx context.Context, sessionID string, fn func(*sequencer.Sequencer)) (*domain.SessionView, error) {
	var view *domain.SessionView
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		seq, err := m.sequencer(ctx, sessionID)
		if err != nil {
			return err
		}
		fn(seq)
		if err := m.save(ctx, seq); err != nil {
			return err
		}
		view = viewOf(seq)
		return nil
	})
	return view, err
}

// View returns the session as a client sees it between attempts.
func (m *Manager) View(ctx context.Context, sessionID string) (*domain.SessionView, error) {
	var view *domain.SessionView
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		seq, err := m.sequencer(ctx, sessionID)
		if err != nil {
			return err
		}
		view = viewOf(seq)
		return nil
	})
	return view, err
}

// Delete removes the session from the store and the cache.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.Evict(sessionID)
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// Evict drops the cached sequencer of a session. The next operation rebuilds
// it from the store.
func (m *Manager) Evict(sessionID string) {
	m.liveMu.Lock()
	defer m.liveMu.Unlock()
	delete(m.live, sessionID)
}

// EvictPage drops every cached sequencer walking pageID, e.g. after the page
// changed on disk. An empty pageID evicts them all.
func (m *Manager) EvictPage(pageID string) {
	m.liveMu.Lock()
	defer m.liveMu.Unlock()
	for id, seq := range m.live {
		if pageID == "" || seq.Page().ID == pageID {
			delete(m.live, id)
		}
	}
}

// sequencer returns the live sequencer of a session. The cached one is used
// only while it agrees with the stored state and walks the current page
// definition; another replica may have moved the session since. Must be
// called under the session lock.
func (m *Manager) sequencer(ctx context.Context, sessionID string) (*sequencer.Sequencer, error) {
	state, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			m.Evict(sessionID)
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	page, err := m.pages(ctx, state.PageID)
	if err != nil {
		return nil, err
	}

	// A sequencer built from a page that has since been reloaded is stale
	// even when the state agrees; a save racing EvictPage can put it back.
	m.liveMu.Lock()
	seq, ok := m.live[sessionID]
	m.liveMu.Unlock()
	if ok && seq.Page() == page && sameState(seq.State(), state) {
		return seq, nil
	}

	seq, err = sequencer.Restore(ctx, page, m.eval, state, m.sequencerOptions()...)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("session restored", "session_id", sessionID, "replayed", len(state.Replay))

	m.liveMu.Lock()
	m.live[sessionID] = seq
	m.liveMu.Unlock()
	return seq, nil
}

func (m *Manager) save(ctx context.Context, seq *sequencer.Sequencer) error {
	state := seq.State()
	if err := m.store.Save(ctx, state.SessionID, state); err != nil {
		return fmt.Errorf("failed to save session %s: %w", state.SessionID, err)
	}
	m.liveMu.Lock()
	m.live[state.SessionID] = seq
	m.liveMu.Unlock()
	return nil
}

func (m *Manager) sequencerOptions() []sequencer.Option {
	return []sequencer.Option{
		sequencer.WithHooks(m.hooks),
		sequencer.WithLogger(m.logger),
	}
}

func sameState(a, b *domain.SessionState) bool {
	return a.PageID == b.PageID &&
		a.Cursor == b.Cursor &&
		a.Status == b.Status &&
		len(a.Replay) == len(b.Replay) &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

func viewOf(seq *sequencer.Sequencer) *domain.SessionView {
	view := &domain.SessionView{
		State:  seq.State(),
		Prompt: seq.Prompt(),
	}
	if step, ok := seq.Current(); ok {
		view.StepID = step.ID
	}
	return view
}
