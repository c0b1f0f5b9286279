// Package testutil provides shared test helpers for setting up page stores.
package testutil

import (
	"testing"

	"github.com/starford/wiki/internal/storage"
)

// TestStore creates a temporary data directory seeded with pages
// (slug → body) and returns its path and a storage.FS over it.
func TestStore(t *testing.T, pages map[string]string) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	for slug, body := range pages {
		if err := store.Write(slug, []byte(body)); err != nil {
			t.Fatalf("seed %s: %v", slug, err)
		}
	}
	return dir, store
}
