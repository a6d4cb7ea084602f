package cli

import "time"

// Store backends accepted by Options.Store.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// EnvSessionKey names the environment variable holding Options.SessionKey.
const EnvSessionKey = "TUTOR_SESSION_KEY"

// Options carries the flags shared by every command.
type Options struct {
	// Dir is the lesson repository.
	Dir string

	LogLevel string
	LogJSON  bool

	// Store selects the session backend. Empty means redis when RedisURL is
	// set and file otherwise.
	Store string
	// RedisURL is a redis:// URL; it also enables the distributed lock.
	RedisURL   string
	SessionTTL time.Duration

	// SessionKey is a base64 AES-256 key; when set sessions are stored
	// encrypted. It is read from EnvSessionKey.
	SessionKey string

	Timeout  time.Duration
	MaxSteps uint64
}

func (o Options) storeKind() string {
	switch {
	case o.Store != "":
		return o.Store
	case o.RedisURL != "":
		return StoreRedis
	}
	return StoreFile
}
