package api

import validation "github.com/go-ozzo/ozzo-validation/v4"

// SavePageRequest is the request body for POST /api/page/{slug}.
// Body is a pointer so a missing field can be told apart from "".
type SavePageRequest struct {
	Body *string `json:"body" example:"Some text with a #tag"`
}

// Validate validates the request.
func (r SavePageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Body, validation.NotNil),
	)
}

// OKResponse is the bare success envelope.
type OKResponse struct {
	Status string `json:"status" example:"ok"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Message string `json:"message" example:"Page does not exist."`
}

// PageResponse carries a page body.
type PageResponse struct {
	Status string `json:"status" example:"ok"`
	Body   string `json:"body"`
}

// PagesResponse lists page slugs.
type PagesResponse struct {
	Status string   `json:"status" example:"ok"`
	Pages  []string `json:"pages"`
}

// TagsResponse lists distinct tag names.
type TagsResponse struct {
	Status string   `json:"status" example:"ok"`
	Tags   []string `json:"tags"`
}

// TagPagesResponse lists the pages matching a tag query.
type TagPagesResponse struct {
	Status string   `json:"status" example:"ok"`
	Tag    string   `json:"tag" example:"go"`
	Pages  []string `json:"pages"`
}
