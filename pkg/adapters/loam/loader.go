package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/tutor/internal/dto"
	"github.com/aretw0/tutor/pkg/domain"
)

// Loader adapts a Loam repository of lesson documents to ports.PageLoader.
// A Markdown lesson keeps its page in the frontmatter; the body becomes the
// final text unless the frontmatter sets one.
type Loader struct {
	Repo *loam.TypedRepository[dto.PageMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[dto.PageMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// GetPage retrieves a page and re-encodes it as JSON for the compiler.
func (l *Loader) GetPage(id string) ([]byte, error) {
	ctx := context.Background()

	docID, err := l.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := l.Repo.Get(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("loam get failed for %s: %w", id, err)
	}

	page := doc.Data
	page.ID = id
	if page.FinalText == "" {
		page.FinalText = strings.TrimSpace(doc.Content)
	}

	bytes, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page data: %w", err)
	}
	return bytes, nil
}

// resolve maps a page ID onto the document that defines it. Looking the
// document up through the listing lets a missing page be reported as
// domain.ErrPageNotFound instead of a storage error.
func (l *Loader) resolve(ctx context.Context, id string) (string, error) {
	index, err := l.index(ctx)
	if err != nil {
		return "", err
	}
	docID, ok := index[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrPageNotFound, id)
	}
	return docID, nil
}

// index maps normalized page IDs to document IDs.
func (l *Loader) index(ctx context.Context) (map[string]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	for _, doc := range docs {
		// Use the ID from metadata if available, otherwise filename ID
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
	}
	return seen, nil
}

// ListPages lists all pages in the repository, sorted.
func (l *Loader) ListPages() ([]string, error) {
	index, err := l.index(context.Background())
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
