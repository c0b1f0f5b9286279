package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testHandler(t *testing.T) (*Config, http.Handler) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Data.Dir = filepath.Join(t.TempDir(), "data")
	cfg.Frontend.Dir = t.TempDir()
	_ = os.WriteFile(filepath.Join(cfg.Frontend.Dir, "index.html"), []byte("<html>wiki</html>"), 0o644)

	store, err := openStore(cfg)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	svc := newService(cfg, store, nil)
	return cfg, NewHandler(cfg, svc, nil)
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestOpenStore_CreatesDataDir(t *testing.T) {
	cfg, _ := testHandler(t)
	if info, err := os.Stat(cfg.Data.Dir); err != nil || !info.IsDir() {
		t.Fatalf("data dir not created: %v", err)
	}
}

func TestHandler_Health(t *testing.T) {
	_, h := testHandler(t)
	for _, p := range []string{"/health/live", "/health/ready"} {
		w := serve(h, http.MethodGet, p, "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
			t.Errorf("%s = %d %s", p, w.Code, w.Body.String())
		}
	}
}

func TestHandler_APIRoundTrip(t *testing.T) {
	_, h := testHandler(t)

	w := serve(h, http.MethodPost, "/api/page/home", `{"body":"start #wiki #go"}`)
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("save = %s", w.Body.String())
	}

	w = serve(h, http.MethodGet, "/api/tags/all", "")
	var resp struct {
		Status string   `json:"status"`
		Tags   []string `json:"tags"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || len(resp.Tags) != 2 {
		t.Errorf("tags resp = %+v", resp)
	}

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q", got)
	}
}

func TestHandler_FrontendFallback(t *testing.T) {
	_, h := testHandler(t)
	w := serve(h, http.MethodGet, "/a-page-that-does-not-exist-yet", "")
	if w.Code != http.StatusOK || w.Body.String() != "<html>wiki</html>" {
		t.Errorf("fallback = %d %q", w.Code, w.Body.String())
	}
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	if _, err := newApplication(nil); err == nil {
		t.Error("expected error without config")
	}
}

func TestHandler_UnknownAPIPathServesFrontend(t *testing.T) {
	_, h := testHandler(t)
	w := serve(h, http.MethodGet, "/api/not-a-route", "")
	if w.Code != http.StatusOK || w.Body.String() != "<html>wiki</html>" {
		t.Errorf("unknown api path = %d %q", w.Code, w.Body.String())
	}

	// Known routes keep their JSON answers.
	w = serve(h, http.MethodGet, "/api/pages/all", "")
	if !strings.Contains(w.Body.String(), `"pages":[]`) {
		t.Errorf("pages = %s", w.Body.String())
	}
}
