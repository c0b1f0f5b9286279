// Package pageservice coordinates the page store and the tag index.
package pageservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-slug"

	"github.com/starford/wiki/internal/apperr"
	"github.com/starford/wiki/internal/index"
	"github.com/starford/wiki/internal/storage"
)

// TagResult is the answer to a tag query.
type TagResult struct {
	Tag   string   `json:"tag"`
	Pages []string `json:"pages"`
}

// Service coordinates storage and tag index operations.
type Service struct {
	store  storage.Provider
	tags   index.TagIndex
	logger *slog.Logger
}

// NewService creates a new page service.
func NewService(store storage.Provider, tags index.TagIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, tags: tags, logger: logger}
}

// GetPage returns the text of a page. Missing pages and invalid slugs
// surface as apperr.ErrNotFound / apperr.ErrInvalidSlug.
func (s *Service) GetPage(_ context.Context, slug string) (string, error) {
	data, err := s.store.Read(slug)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SavePage creates or overwrites a page.
func (s *Service) SavePage(_ context.Context, slug, body string) error {
	if err := s.store.Write(slug, []byte(body)); err != nil {
		return err
	}
	s.logger.Debug("page saved", slog.String("slug", slug), slog.Int("bytes", len(body)))
	return nil
}

// SlugFromTitle turns a free-form title into a page slug: lowercase
// letters, digits and single hyphens.
func SlugFromTitle(title string) (string, error) {
	s, err := slug.Normalize(title)
	if err != nil {
		return "", fmt.Errorf("pageservice: slug for %q: %w: %w", title, apperr.ErrInvalidSlug, err)
	}
	return s, nil
}

// CreatePage writes a new page whose slug is derived from title and returns
// that slug. It fails with apperr.ErrPageExists rather than overwrite.
func (s *Service) CreatePage(ctx context.Context, title, body string) (string, error) {
	name, err := SlugFromTitle(title)
	if err != nil {
		return "", err
	}
	_, err = s.store.Read(name)
	switch {
	case err == nil:
		return name, fmt.Errorf("pageservice: create %s: %w", name, apperr.ErrPageExists)
	case !errors.Is(err, apperr.ErrNotFound):
		return "", err
	}
	if err := s.SavePage(ctx, name, body); err != nil {
		return "", err
	}
	return name, nil
}

// ListPages returns every page slug.
func (s *Service) ListPages(_ context.Context) ([]string, error) {
	slugs, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("pageservice: list pages: %w", err)
	}
	return nonNilSlice(slugs), nil
}

// ListTags returns the distinct tag names across all pages.
func (s *Service) ListTags(ctx context.Context) ([]string, error) {
	names, err := s.tags.AllTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("pageservice: list tags: %w", err)
	}
	return nonNilSlice(names), nil
}

// PagesWithTag returns the slugs of pages whose tags contain tag.
func (s *Service) PagesWithTag(ctx context.Context, tag string) (*TagResult, error) {
	pages, err := s.tags.PagesWithTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("pageservice: pages with tag %q: %w", tag, err)
	}
	return &TagResult{Tag: tag, Pages: nonNilSlice(pages)}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
