package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const entryDocument = "index.html"

// FrontendHandler serves the built single-page frontend. Any path that is
// not an existing file falls back to the entry document so client-side
// routes (including not-yet-created pages) resolve.
type FrontendHandler struct {
	root string
}

// NewFrontendHandler creates a handler rooted at the frontend build dir.
func NewFrontendHandler(root string) *FrontendHandler {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &FrontendHandler{root: abs}
}

// resolve maps a URL path to a file under root, refusing anything that
// escapes it.
func (h *FrontendHandler) resolve(urlPath string) (string, bool) {
	cleaned := path.Clean("/" + urlPath)
	abs := filepath.Join(h.root, filepath.FromSlash(cleaned))
	if abs != h.root && !strings.HasPrefix(abs, h.root+string(os.PathSeparator)) {
		return "", false
	}
	return abs, true
}

// ServeHTTP handles GET and HEAD for any path no other route claims.
func (h *FrontendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	if abs, ok := h.resolve(r.URL.Path); ok && serveFile(w, r, abs) {
		return
	}
	if serveFile(w, r, filepath.Join(h.root, entryDocument)) {
		return
	}
	http.NotFound(w, r)
}

// serveFile writes the regular file at abs and reports whether it did.
func serveFile(w http.ResponseWriter, r *http.Request, abs string) bool {
	f, err := os.Open(abs)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}
