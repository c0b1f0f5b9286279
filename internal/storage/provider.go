// Package storage defines the page store abstraction.
package storage

// Provider is the interface for page file operations. Pages are addressed
// by slug; the mapping to files is owned by the implementation.
type Provider interface {
	// List returns the slug of every page in the store, sorted.
	List() ([]string, error)
	// Read returns the raw text of the page with the given slug.
	Read(slug string) ([]byte, error)
	// Write creates or overwrites the page with the given slug.
	Write(slug string, content []byte) error
}
