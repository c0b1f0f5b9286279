package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wiki/internal/apperr"
	"github.com/starford/wiki/internal/pageservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *pageservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *pageservice.Service) *Handler {
	return &Handler{svc: svc}
}

// urlParam returns a decoded path parameter. chi matches against the raw
// path when the request has one, so only that form needs unescaping; an
// encoded separator such as %2F then fails slug validation.
func urlParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// expected reports whether err is part of the normal page taxonomy and
// not worth an error log line.
func expected(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidSlug)
}

// GetPage handles GET /api/page/{slug}.
//
//	@Summary		Read a page
//	@Tags			pages
//	@Produce		json
//	@Param			slug	path		string	true	"Page slug"
//	@Success		200		{object}	PageResponse
//	@Router			/page/{slug} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	slug := urlParam(r, "slug")
	body, err := h.svc.GetPage(r.Context(), slug)
	if err != nil {
		if !expected(err) {
			slog.Error("get page failed", slog.String("slug", slug), slog.String("error", err.Error()))
		}
		writeJSON(w, http.StatusOK, errorBody(msgPageMissing))
		return
	}
	writeJSON(w, http.StatusOK, PageResponse{Status: statusOK, Body: body})
}

// SavePage handles POST /api/page/{slug}.
//
//	@Summary		Create or overwrite a page
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			slug	path		string			true	"Page slug"
//	@Param			body	body		SavePageRequest	true	"Page text"
//	@Success		200		{object}	OKResponse
//	@Router			/page/{slug} [post]
func (h *Handler) SavePage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	slug := urlParam(r, "slug")

	var req SavePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("save page: bad body", slog.String("slug", slug), slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, errorBody(msgWriteFailed))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Debug("save page: invalid body", slog.String("slug", slug), slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, errorBody(msgWriteFailed))
		return
	}

	if err := h.svc.SavePage(r.Context(), slug, *req.Body); err != nil {
		if !errors.Is(err, apperr.ErrInvalidSlug) {
			slog.Error("save page failed", slog.String("slug", slug), slog.String("error", err.Error()))
		}
		writeJSON(w, http.StatusOK, errorBody(msgWriteFailed))
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{Status: statusOK})
}

// ListPages handles GET /api/pages/all.
//
//	@Summary		List all page slugs
//	@Tags			pages
//	@Produce		json
//	@Success		200	{object}	PagesResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/pages/all [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.svc.ListPages(r.Context())
	if err != nil {
		slog.Error("list pages failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(msgListFailed))
		return
	}
	writeJSON(w, http.StatusOK, PagesResponse{Status: statusOK, Pages: pages})
}

// ListTags handles GET /api/tags/all.
//
//	@Summary		List distinct tag names across all pages
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/tags/all [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.ListTags(r.Context())
	if err != nil {
		slog.Error("list tags failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(msgTagsFailed))
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Status: statusOK, Tags: names})
}

// PagesWithTag handles GET /api/tags/{tag}.
//
//	@Summary		List pages holding a tag (substring match)
//	@Tags			tags
//	@Produce		json
//	@Param			tag	path		string	true	"Tag query"
//	@Success		200	{object}	TagPagesResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/tags/{tag} [get]
func (h *Handler) PagesWithTag(w http.ResponseWriter, r *http.Request) {
	tag := urlParam(r, "tag")
	if tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(msgInvalidInput))
		return
	}
	res, err := h.svc.PagesWithTag(r.Context(), tag)
	if err != nil {
		slog.Error("pages with tag failed", slog.String("tag", tag), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(msgTagsFailed))
		return
	}
	writeJSON(w, http.StatusOK, TagPagesResponse{Status: statusOK, Tag: res.Tag, Pages: res.Pages})
}
