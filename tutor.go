package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/loam"

	"github.com/aretw0/tutor/internal/compiler"
	"github.com/aretw0/tutor/internal/dto"
	"github.com/aretw0/tutor/internal/logging"
	"github.com/aretw0/tutor/pkg/adapters/memory"
	loamAdapter "github.com/aretw0/tutor/pkg/adapters/loam"
	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/evaluator"
	"github.com/aretw0/tutor/pkg/ports"
	"github.com/aretw0/tutor/pkg/registry"
	"github.com/aretw0/tutor/pkg/sandbox"
	"github.com/aretw0/tutor/pkg/session"
)

// Version is the engine release, reported by the CLI and the HTTP API.
var Version = "0.1.0-dev"

// Engine is the high-level entry point for the tutor library.
// It compiles pages from a loader, runs learner attempts in isolated
// sessions and persists their progress.
type Engine struct {
	loader   ports.PageLoader
	store    ports.StateStore
	locker   ports.DistributedLocker
	registry *registry.Registry
	timeout  time.Duration
	maxSteps uint64
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	Name     string

	parser  *compiler.Parser
	pagesMu sync.RWMutex
	pages   map[string]*domain.Page

	eval     *evaluator.Evaluator
	sessions *session.Manager
}

var _ ports.Engine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a custom PageLoader, bypassing the default Loam initialization.
func WithLoader(l ports.PageLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithStore sets where session snapshots are persisted (default: in memory).
func WithStore(s ports.StateStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker enables distributed locking of sessions across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithRegistry provides the named predicates and heuristics pages may refer to.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithTimeout sets the time budget of one attempt.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithMaxSteps bounds the interpreter steps of one attempt.
func WithMaxSteps(n uint64) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes a new Engine.
// By default, it reads pages from a Loam repository at the given path.
// If WithLoader option is provided, repoPath can be empty and Loam is skipped.
func New(repoPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		timeout: sandbox.DefaultTimeout,
		parser:  compiler.NewParser(),
		pages:   make(map[string]*domain.Page),
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if repoPath == "" {
			return nil, fmt.Errorf("repoPath is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(repoPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)

		// Strict mode keeps numbers consistent across JSON and Markdown
		// documents; the engine never writes lessons, so the repo is read-only.
		repo, err := loam.Init(absPath,
			loam.WithStrict(true),
			loam.WithReadOnly(true),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize loam: %w", err)
		}
		eng.loader = loamAdapter.New(loam.NewTypedRepository[dto.PageMetadata](repo))
	} else if repoPath != "" {
		eng.Name = filepath.Base(repoPath)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("course", eng.Name)
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.registry == nil {
		eng.registry = registry.NewRegistry()
	}

	sbOpts := []sandbox.Option{sandbox.WithTimeout(eng.timeout), sandbox.WithLogger(eng.logger)}
	if eng.maxSteps > 0 {
		sbOpts = append(sbOpts, sandbox.WithMaxSteps(eng.maxSteps))
	}
	eng.eval = evaluator.New(
		evaluator.WithSandbox(sandbox.New(sbOpts...)),
		evaluator.WithRegistry(eng.registry),
		evaluator.WithLogger(eng.logger),
	)

	mgrOpts := []session.Option{session.WithHooks(eng.hooks), session.WithLogger(eng.logger)}
	if eng.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, eng.eval, eng.GetPage, mgrOpts...)

	return eng, nil
}

// NewFromPages builds an engine over pages authored in Go (see pkg/dsl).
func NewFromPages(pages []dto.PageMetadata, opts ...Option) (*Engine, error) {
	loader, err := memory.NewFromPages(pages...)
	if err != nil {
		return nil, err
	}
	return New("", append([]Option{WithLoader(loader)}, opts...)...)
}

// GetPage returns a compiled page, compiling it on first use.
func (e *Engine) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	e.pagesMu.RLock()
	page, ok := e.pages[id]
	e.pagesMu.RUnlock()
	if ok {
		return page, nil
	}

	raw, err := e.loader.GetPage(id)
	if err != nil {
		return nil, err
	}
	page, err = e.parser.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := e.checkRegistered(page); err != nil {
		return nil, err
	}

	e.pagesMu.Lock()
	e.pages[id] = page
	e.pagesMu.Unlock()
	return page, nil
}

// checkRegistered fails pages that name predicates or heuristics nobody registered.
func (e *Engine) checkRegistered(page *domain.Page) error {
	var errs []error
	for _, step := range page.Steps {
		if p := step.Predicate; p != nil && p.Name != "" {
			if _, err := e.registry.Predicate(p.Name); err != nil {
				errs = append(errs, fmt.Errorf("step %q: %w", step.ID, err))
			}
		}
		for _, h := range step.Heuristics {
			if h.Kind != domain.HeuristicRegistered {
				continue
			}
			if _, err := e.registry.Heuristic(h.Name); err != nil {
				errs = append(errs, fmt.Errorf("step %q: %w", step.ID, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: page %q: %w", domain.ErrAuthoring, page.ID, errors.Join(errs...))
	}
	return nil
}

// ListPages returns a summary of every available page.
func (e *Engine) ListPages(ctx context.Context) ([]domain.PageSummary, error) {
	ids, err := e.loader.ListPages()
	if err != nil {
		return nil, err
	}
	out := make([]domain.PageSummary, 0, len(ids))
	for _, id := range ids {
		page, err := e.GetPage(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Summary())
	}
	return out, nil
}

// Validate compiles every page and reports all authoring errors together.
func (e *Engine) Validate(ctx context.Context) error {
	ids, err := e.loader.ListPages()
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if _, err := e.GetPage(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Invalidate drops a compiled page so the next use reloads it. Live sessions
// on that page are rebuilt against the new definition.
func (e *Engine) Invalidate(pageID string) {
	e.pagesMu.Lock()
	if pageID == "" {
		e.pages = make(map[string]*domain.Page)
	} else {
		delete(e.pages, pageID)
	}
	e.pagesMu.Unlock()
	e.sessions.EvictPage(pageID)
}

// StartSession creates a session on the first step of a page with an empty namespace.
func (e *Engine) StartSession(ctx context.Context, pageID string) (*domain.SessionView, error) {
	return e.sessions.Start(ctx, pageID)
}

// Session returns the current view of a session.
func (e *Engine) Session(ctx context.Context, sessionID string) (*domain.SessionView, error) {
	return e.sessions.View(ctx, sessionID)
}

// Submit runs one attempt of learner source against the session's current step.
func (e *Engine) Submit(ctx context.Context, sessionID, source string) (*domain.Feedback, error) {
	return e.sessions.Submit(ctx, sessionID, source)
}

// ResetSession clears the session namespace without moving the cursor.
func (e *Engine) ResetSession(ctx context.Context, sessionID string) (*domain.SessionView, error) {
	return e.sessions.Reset(ctx, sessionID)
}

// RestartSession moves back to the first step with an empty namespace.
func (e *Engine) RestartSession(ctx context.Context, sessionID string) (*domain.SessionView, error) {
	return e.sessions.Restart(ctx, sessionID)
}

// CloseSession discards a session.
func (e *Engine) CloseSession(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// ListSessions returns the IDs of the stored sessions.
func (e *Engine) ListSessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// Watch reloads pages when the loader reports changes, until ctx is done.
// The returned channel carries the changed page IDs after the cache was dropped.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return nil, fmt.Errorf("current loader does not support watching")
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		for id := range changes {
			// A file name need not match the page ID it defines.
			e.Invalidate("")
			e.logger.Info("page changed", "page_id", id)
			select {
			case out <- id:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Loader returns the underlying PageLoader used by the engine.
func (e *Engine) Loader() ports.PageLoader {
	return e.loader
}

// Registry returns the registry of named checks.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}
