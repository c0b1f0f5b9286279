// Package index builds the tag index by scanning every page in the store.
// Nothing is cached: each call rereads the store, so results always
// reflect the current page bodies.
package index

import (
	"context"

	"github.com/starford/wiki/internal/models"
)

// TagIndex defines the tag query operations.
// Consumers should depend on this interface rather than the concrete
// *Builder type to facilitate testing with fakes.
type TagIndex interface {
	Occurrences(ctx context.Context) ([]models.TagOccurrence, error)
	AllTags(ctx context.Context) ([]string, error)
	PagesWithTag(ctx context.Context, tag string) ([]string, error)
}

// Verify *Builder satisfies TagIndex at compile time.
var _ TagIndex = (*Builder)(nil)
