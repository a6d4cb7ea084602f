package tests

import (
	"errors"
	"testing"

	"github.com/aretw0/tutor/pkg/domain"
	"github.com/aretw0/tutor/pkg/ports"
)

// PageLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.PageLoader.
func PageLoaderContractTest(t *testing.T, loader ports.PageLoader, setupData map[string][]byte) {
	t.Helper()

	// 1. Test GetPage (Success)
	t.Run("GetPage_Success", func(t *testing.T) {
		for id, expectedContent := range setupData {
			content, err := loader.GetPage(id)
			if err != nil {
				t.Fatalf("unexpected error getting page %s: %v", id, err)
			}
			if string(content) != string(expectedContent) {
				t.Errorf("content mismatch for %s. got %q, want %q", id, content, expectedContent)
			}
		}
	})

	// 2. Test GetPage (NotFound)
	t.Run("GetPage_NotFound", func(t *testing.T) {
		_, err := loader.GetPage("non-existent-page")
		if !errors.Is(err, domain.ErrPageNotFound) {
			t.Errorf("expected ErrPageNotFound for non-existent page, got %v", err)
		}
	})

	// 3. Test ListPages
	t.Run("ListPages", func(t *testing.T) {
		pages, err := loader.ListPages()
		if err != nil {
			t.Fatalf("unexpected error listing pages: %v", err)
		}

		if len(pages) != len(setupData) {
			t.Errorf("expected %d pages, got %d", len(setupData), len(pages))
		}

		lookup := make(map[string]bool)
		for _, id := range pages {
			lookup[id] = true
		}
		for id := range setupData {
			if !lookup[id] {
				t.Errorf("page %s missing from list", id)
			}
		}
	})
}
