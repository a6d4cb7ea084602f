package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/tutor"
	"github.com/aretw0/tutor/internal/logging"
	"github.com/aretw0/tutor/pkg/adapters/file"
	"github.com/aretw0/tutor/pkg/adapters/memory"
	"github.com/aretw0/tutor/pkg/adapters/redis"
	"github.com/aretw0/tutor/pkg/observability"
	"github.com/aretw0/tutor/pkg/persistence/middleware"
	"github.com/aretw0/tutor/pkg/ports"
)

// Stack is an engine wired with the store, locker and metrics chosen by Options.
type Stack struct {
	Engine  *tutor.Engine
	Store   ports.StateStore
	Metrics *observability.Metrics
	Logger  *slog.Logger

	closers []func() error
}

// Close releases the store connections.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewLogger builds the application logger from the log flags.
func NewLogger(opts Options) (*slog.Logger, error) {
	level, err := logging.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, level, opts.LogJSON), nil
}

// NewStack initializes an engine with standard CLI conventions.
func NewStack(opts Options) (*Stack, error) {
	logger, err := NewLogger(opts)
	if err != nil {
		return nil, err
	}
	stack := &Stack{Logger: logger}

	store, locker, closeStore, err := OpenStore(opts)
	if err != nil {
		return nil, err
	}
	stack.Store = store
	if closeStore != nil {
		stack.closers = append(stack.closers, closeStore)
	}

	stack.Metrics = observability.NewMetrics(observability.WithLogger(logger))

	engineOpts := []tutor.Option{
		tutor.WithLogger(logger),
		tutor.WithStore(store),
		tutor.WithLifecycleHooks(stack.Metrics.Hooks()),
	}
	if locker != nil {
		engineOpts = append(engineOpts, tutor.WithLocker(locker))
	}
	if opts.Timeout > 0 {
		engineOpts = append(engineOpts, tutor.WithTimeout(opts.Timeout))
	}
	if opts.MaxSteps > 0 {
		engineOpts = append(engineOpts, tutor.WithMaxSteps(opts.MaxSteps))
	}

	engine, err := tutor.New(opts.Dir, engineOpts...)
	if err != nil {
		_ = stack.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	stack.Engine = engine
	return stack, nil
}

// OpenStore opens the session store selected by opts, sealed when a session
// key is configured. The locker is only set for stores shared between processes.
func OpenStore(opts Options) (ports.StateStore, ports.DistributedLocker, func() error, error) {
	store, locker, closer, err := openBackend(opts)
	if err != nil || opts.SessionKey == "" {
		return store, locker, closer, err
	}
	key, err := middleware.ParseKey(opts.SessionKey)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, nil, nil, fmt.Errorf("%s: %w", EnvSessionKey, err)
	}
	store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	return store, locker, closer, nil
}

func openBackend(opts Options) (ports.StateStore, ports.DistributedLocker, func() error, error) {
	switch kind := opts.storeKind(); kind {
	case StoreMemory:
		return memory.NewStore(), nil, nil, nil
	case StoreFile:
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		return file.New(filepath.Join(dir, ".tutor", "sessions")), nil, nil, nil
	case StoreRedis:
		if opts.RedisURL == "" {
			return nil, nil, nil, fmt.Errorf("store %q needs --redis", kind)
		}
		redisOpts, err := backend.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := backend.NewClient(redisOpts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("redis unreachable: %w", err)
		}
		storeOpts := []redis.Option{redis.WithCBOR()}
		if opts.SessionTTL > 0 {
			storeOpts = append(storeOpts, redis.WithTTL(opts.SessionTTL))
		}
		store := redis.NewFromClient(client, storeOpts...)
		return store, redis.NewLocker(client, redis.DefaultPrefix), store.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q (memory, file, redis)", kind)
	}
}
