package memory

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aretw0/tutor/internal/dto"
	"github.com/aretw0/tutor/pkg/domain"
)

// Loader implements ports.PageLoader using an in-memory map.
type Loader struct {
	pages map[string][]byte
}

// NewLoader creates a new Loader with the provided raw data (YAML or JSON strings).
func NewLoader(data map[string]string) *Loader {
	pages := make(map[string][]byte)
	for k, v := range data {
		pages[k] = []byte(v)
	}
	return &Loader{
		pages: pages,
	}
}

// NewFromPages creates a new Loader from authored pages.
// This handles serialization automatically, improving DX for tests.
func NewFromPages(pages ...dto.PageMetadata) (*Loader, error) {
	data := make(map[string][]byte)
	for _, p := range pages {
		if p.ID == "" {
			return nil, fmt.Errorf("page missing ID")
		}
		if _, dup := data[p.ID]; dup {
			return nil, fmt.Errorf("duplicate page %s", p.ID)
		}
		bytes, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal page %s: %w", p.ID, err)
		}
		data[p.ID] = bytes
	}
	return &Loader{pages: data}, nil
}

// GetPage retrieves the raw definition of a page by ID.
func (l *Loader) GetPage(id string) ([]byte, error) {
	content, ok := l.pages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPageNotFound, id)
	}
	return content, nil
}

// ListPages returns all available page IDs.
func (l *Loader) ListPages() ([]string, error) {
	keys := make([]string, 0, len(l.pages))
	for k := range l.pages {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
