package ports

import "context"

// PageLoader defines how the engine retrieves page definitions.
// This allows the storage layer (Loam, FS, Memory) to be decoupled.
type PageLoader interface {
	// GetPage retrieves the raw definition of a page by ID.
	// It returns the raw bytes (YAML or JSON, which the compiler will parse)
	// or an error wrapping domain.ErrPageNotFound.
	GetPage(id string) ([]byte, error)

	// ListPages returns the IDs of all available pages, sorted.
	ListPages() ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload while authoring lessons.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying pages change.
	// It carries the ID of the changed page, or "" when that cannot be told.
	Watch(ctx context.Context) (<-chan string, error)
}
