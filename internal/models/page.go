// Package models defines the domain types for the wiki.
package models

// TagOccurrence is one tag found in one page's text.
type TagOccurrence struct {
	Tag  string `json:"tag"`
	Slug string `json:"slug"`
}
