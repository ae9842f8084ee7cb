package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/polargraph/pkg/cache"
	"github.com/matzehuels/polargraph/pkg/config"
	"github.com/matzehuels/polargraph/pkg/observability"
	"github.com/matzehuels/polargraph/pkg/pipeline"
)

func newTestServer(t *testing.T, c cache.Cache, cfg *config.Config) http.Handler {
	t.Helper()
	logger := log.New(io.Discard)
	return New(pipeline.NewRunner(c, nil, logger), cfg, logger).Handler()
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 20))
	for y := range 20 {
		for x := range 32 {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 8)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, query string, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "photo.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/convert"+query, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Version.Version == "" {
		t.Errorf("health = %+v", resp)
	}
	if _, err := uuid.Parse(rec.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID", rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, nil, nil)
	given := uuid.NewString()

	tests := []struct {
		name   string
		header string
		echo   bool
	}{
		{"valid uuid echoed", given, true},
		{"garbage replaced", "not-a-uuid", false},
		{"missing generated", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if tt.echo && got != tt.header {
				t.Errorf("request id = %q, want %q", got, tt.header)
			}
			if !tt.echo && (got == tt.header || got == "") {
				t.Errorf("request id = %q, want a fresh UUID", got)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	cfg, err := config.Parse([]byte("[presets.portrait]\nline_spacing = 3\n"))
	if err != nil {
		t.Fatal(err)
	}
	h := newTestServer(t, nil, cfg)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/presets", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got []presetResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d presets, want 5", len(got))
	}
	byName := map[string]presetResponse{}
	for _, p := range got {
		byName[p.Name] = p
	}
	if fine := byName["fine"]; fine.Options.LineSpacing != 2.5 || fine.Options.AmplitudeScale != 6 || !fine.Builtin {
		t.Errorf("fine = %+v", fine)
	}
	if p := byName["portrait"]; p.Options.LineSpacing != 3 || p.Builtin {
		t.Errorf("portrait = %+v", p)
	}
}

func TestConvertSVG(t *testing.T) {
	h := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "?line_spacing=2&segmented=true", "image", testPNG(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := rec.Header().Get(HeaderTotalRows); got != "10" {
		t.Errorf("%s = %q, want 10", HeaderTotalRows, got)
	}
	if rec.Header().Get(HeaderAdjustedRows) == "" {
		t.Errorf("%s missing", HeaderAdjustedRows)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `<svg xmlns="http://www.w3.org/2000/svg" width="32" height="20"`) {
		t.Errorf("unexpected SVG header: %.200s", body)
	}
}

func TestConvertJSONWithPreset(t *testing.T) {
	h := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "?preset=bold&format=json", "image", testPNG(t)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var doc struct {
		Width  int `json:"width"`
		Params struct {
			LineSpacing    float64 `json:"line_spacing"`
			AmplitudeScale float64 `json:"amplitude_scale"`
		} `json:"params"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.Width != 32 || doc.Params.LineSpacing != 8 || doc.Params.AmplitudeScale != 20 {
		t.Errorf("json = %+v", doc)
	}
}

func TestConvertErrors(t *testing.T) {
	h := newTestServer(t, nil, nil)
	img := testPNG(t)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantCode   string
	}{
		{"zero spacing", uploadRequest(t, "?line_spacing=0", "image", img), http.StatusBadRequest, "INVALID_PARAMETER"},
		{"too many scan rows", uploadRequest(t, "?line_spacing=1e-300", "image", img), http.StatusBadRequest, "INVALID_PARAMETER"},
		{"negative amplitude", uploadRequest(t, "?amplitude_scale=-2", "image", img), http.StatusBadRequest, "INVALID_PARAMETER"},
		{"unparseable", uploadRequest(t, "?organic=maybe", "image", img), http.StatusBadRequest, "INVALID_PARAMETER"},
		{"bad format", uploadRequest(t, "?format=gif", "image", img), http.StatusBadRequest, "INVALID_FORMAT"},
		{"unknown preset", uploadRequest(t, "?preset=nope", "image", img), http.StatusBadRequest, "INVALID_PRESET"},
		{"missing field", uploadRequest(t, "", "file", img), http.StatusBadRequest, "INVALID_INPUT"},
		{"not an image", uploadRequest(t, "", "image", []byte("plain text")), http.StatusUnprocessableEntity, "DECODE_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp := decodeError(t, rec)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if resp.RequestID == "" {
				t.Error("error body should carry the request id")
			}
		})
	}
}

func TestConvertCacheHeader(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := newTestServer(t, fc, nil)
	img := testPNG(t)

	for i, want := range []string{"miss", "hit"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, uploadRequest(t, "?organic=true", "image", img))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
		if got := rec.Header().Get(HeaderCache); got != want {
			t.Errorf("request %d: %s = %q, want %q", i, HeaderCache, got, want)
		}
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	h := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2/convert", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /v2/convert status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/convert", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /v1/convert status = %d, want 405", rec.Code)
	}
}

type recordingHooks struct {
	observability.NoopServerHooks
	mu        sync.Mutex
	responses []int
}

func (h *recordingHooks) OnResponse(_ context.Context, _, _ string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses = append(h.responses, status)
}

func TestServerHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetServerHooks(hooks)
	t.Cleanup(observability.Reset)

	h := newTestServer(t, nil, nil)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.responses) != 2 || hooks.responses[0] != 200 || hooks.responses[1] != 404 {
		t.Errorf("responses = %v, want [200 404]", hooks.responses)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := New(pipeline.NewRunner(nil, nil, log.New(io.Discard)), nil, log.New(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
