package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/starford/wiki/internal/apperr"
	"github.com/starford/wiki/internal/models"
	"github.com/starford/wiki/internal/storage"
	"github.com/starford/wiki/internal/tags"
)

// DefaultConcurrency reads one page at a time.
const DefaultConcurrency = 1

// Builder aggregates tag occurrences across all pages of a store.
type Builder struct {
	store       storage.Provider
	concurrency int
	logger      *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithConcurrency sets how many pages may be read at once.
// Values below one fall back to DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n < 1 {
			n = DefaultConcurrency
		}
		b.concurrency = n
	}
}

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a tag index builder over store.
func NewBuilder(store storage.Provider, opts ...Option) *Builder {
	b := &Builder{
		store:       store,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Occurrences scans every page and returns all tag occurrences, ordered by
// page (as listed by the store) and then by position in the page text.
func (b *Builder) Occurrences(ctx context.Context) ([]models.TagOccurrence, error) {
	slugs, err := b.store.List()
	if err != nil {
		return nil, fmt.Errorf("index: list pages: %w", err)
	}

	perPage, err := b.scan(ctx, slugs)
	if err != nil {
		return nil, err
	}

	out := make([]models.TagOccurrence, 0, len(slugs))
	for i, names := range perPage {
		for _, name := range names {
			out = append(out, models.TagOccurrence{Tag: name, Slug: slugs[i]})
		}
	}
	return out, nil
}

// scan reads and extracts tags from each page. Reads run with at most
// b.concurrency in flight; results land at the page's own index so the
// output order never depends on scheduling.
func (b *Builder) scan(ctx context.Context, slugs []string) ([][]string, error) {
	results := make([][]string, len(slugs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, s := range slugs {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			data, err := b.store.Read(s)
			if err != nil {
				// Removed between List and Read: no longer a current page.
				if errors.Is(err, apperr.ErrNotFound) {
					b.logger.Debug("index: page vanished during scan", slog.String("slug", s))
					return nil
				}
				return fmt.Errorf("index: read %s: %w", s, err)
			}
			results[i] = tags.Extract(string(data))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("index: scan: %w", err)
	}
	return results, nil
}

// AllTags returns the distinct tag names found across all pages.
// The result is a set; callers must not rely on its order.
func (b *Builder) AllTags(ctx context.Context) ([]string, error) {
	occ, err := b.Occurrences(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(occ))
	for i, o := range occ {
		names[i] = o.Tag
	}
	return tags.Unique(names), nil
}

// PagesWithTag returns the slug of every page holding a tag that contains
// query as a substring. A page appears once per matching occurrence.
func (b *Builder) PagesWithTag(ctx context.Context, query string) ([]string, error) {
	occ, err := b.Occurrences(ctx)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, o := range occ {
		if tags.Matches(o.Tag, query) {
			out = append(out, o.Slug)
		}
	}
	return out, nil
}
