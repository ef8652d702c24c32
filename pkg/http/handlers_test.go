package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	httphandler "shortlink/pkg/http"
	"shortlink/pkg/logging"
	"shortlink/pkg/service"
	"shortlink/pkg/storage"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type failingStore struct {
	*storage.MemoryStore
	existsErr error
	lookupErr error
}

func (f *failingStore) Exists(ctx context.Context, id string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.MemoryStore.Exists(ctx, id)
}

func (f *failingStore) Lookup(ctx context.Context, id string) (*storage.Link, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.MemoryStore.Lookup(ctx, id)
}

type testServer struct {
	router  *chi.Mux
	service *service.LinkService
}

func newTestServer(t *testing.T, store storage.LinkStore, baseURL string, setup func(chi.Router, *httphandler.Handler)) *testServer {
	t.Helper()
	logger := logging.Discard()
	svc := service.NewLinkService(store, logger, service.Options{})
	t.Cleanup(svc.Drain)
	h := httphandler.NewHandler(svc, logger, baseURL)
	return &testServer{
		router:  httphandler.NewRouter(logger, h, setup),
		service: svc,
	}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) create(t *testing.T, longURL string) service.CreateLinkResponse {
	t.Helper()
	rec := s.do(http.MethodPost, "/", `{"url":"`+longURL+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp service.CreateLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCreateThenRedirect(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStore(), "", httphandler.SetupRoutes)

	resp := srv.create(t, "https://example.com/some/long/path?q=1")
	assert.True(t, service.IsCode(resp.ID), resp.ID)
	assert.Len(t, resp.ID, 6)
	assert.Equal(t, "http://example.com/"+resp.ID, resp.ShortURL)

	for want := int64(1); want <= 2; want++ {
		rec := srv.do(http.MethodGet, "/"+resp.ID, "")
		assert.Equal(t, http.StatusMovedPermanently, rec.Code)
		assert.Equal(t, "https://example.com/some/long/path?q=1", rec.Header().Get("Location"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

		srv.service.Drain()
		link, err := srv.service.GetLink(context.Background(), resp.ID)
		require.NoError(t, err)
		assert.Equal(t, want, link.Clicks)
	}
}

func TestCreateLink_ResponseHeaders(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStore(), "", httphandler.SetupRoutes)

	rec := srv.do(http.MethodPost, "/", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assertCORS(t, rec)
}

func TestCreateLink_Origin(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		proto   string
		want    string
	}{
		{name: "request host", want: "http://example.com/"},
		{name: "forwarded proto", proto: "https", want: "https://example.com/"},
		{name: "forwarded proto list", proto: "https, http", want: "https://example.com/"},
		{name: "configured base url", baseURL: "https://sho.rt/", proto: "http", want: "https://sho.rt/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, storage.NewMemoryStore(), tt.baseURL, httphandler.SetupRoutes)
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"url":"https://example.org"}`))
			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			rec := httptest.NewRecorder()
			srv.router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var resp service.CreateLinkResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want+resp.ID, resp.ShortURL)
		})
	}
}

func TestCreateLink_BadRequest(t *testing.T) {
	const (
		invalidJSON = "Invalid JSON"
		missingURL  = "Missing url field"
		invalidURL  = "Invalid URL format. Must be http:// or https://"
	)
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty body", body: "", want: invalidJSON},
		{name: "truncated", body: `{"url":`, want: invalidJSON},
		{name: "array", body: `["https://example.com"]`, want: invalidJSON},
		{name: "trailing data", body: `{"url":"https://example.com"} {}`, want: invalidJSON},
		{name: "no url", body: `{}`, want: missingURL},
		{name: "empty url", body: `{"url":""}`, want: missingURL},
		{name: "null url", body: `{"url":null}`, want: missingURL},
		{name: "number url", body: `{"url":42}`, want: invalidURL},
		{name: "ftp", body: `{"url":"ftp://example.com"}`, want: invalidURL},
		{name: "javascript", body: `{"url":"javascript:alert(1)"}`, want: invalidURL},
		{name: "relative", body: `{"url":"example.com/path"}`, want: invalidURL},
		{name: "no host", body: `{"url":"https://"}`, want: invalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, storage.NewMemoryStore(), "", httphandler.SetupRoutes)
			rec := srv.do(http.MethodPost, "/", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeError(t, rec))
			assertCORS(t, rec)
		})
	}
}

func TestCreateLink_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStore(), "", httphandler.SetupRoutes)
	body := `{"url":"https://example.com/` + strings.Repeat("a", 2<<20) + `"}`

	rec := srv.do(http.MethodPost, "/", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON", decodeError(t, rec))
}

func TestCreateLink_StoreFailure(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), existsErr: errBoom}
	srv := newTestServer(t, store, "", httphandler.SetupRoutes)

	rec := srv.do(http.MethodPost, "/", `{"url":"https://example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Database error occurred", decodeError(t, rec))
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestRedirect_NotFound(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStore(), "", httphandler.SetupRoutes)

	for _, path := range []string{"/zzzzzz", "/a/b/c"} {
		rec := srv.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Short URL not found", rec.Body.String())
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRedirect_LookupFailure(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), lookupErr: errBoom}
	srv := newTestServer(t, store, "", httphandler.SetupRoutes)

	rec := srv.do(http.MethodGet, "/abc123", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Database error occurred", decodeError(t, rec))
}

func TestRedirect_Head(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStore(), "", httphandler.SetupRoutes)
	resp := srv.create(t, "https://example.com")

	rec := srv.do(http.MethodHead, "/"+resp.ID, "")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Location"))
}

func TestRedirect_Concurrent(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStore(), "", httphandler.SetupRoutes)
	resp := srv.create(t, "https://example.com")

	const n = 25
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = srv.do(http.MethodGet, "/"+resp.ID, "").Code
		}(i)
	}
	wg.Wait()
	srv.service.Drain()

	for _, code := range codes {
		assert.Equal(t, http.StatusMovedPermanently, code)
	}
	link, err := srv.service.GetLink(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, link.Clicks, int64(1))
	assert.LessOrEqual(t, link.Clicks, int64(n))
}

func TestPreflight(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStore(), "", httphandler.SetupRoutes)

	for _, path := range []string{"/", "/abc123", "/any/path"} {
		rec := srv.do(http.MethodOptions, path, "")
		assert.Equal(t, http.StatusNoContent, rec.Code, path)
		assert.Empty(t, rec.Body.String())
		assertCORS(t, rec)
	}
}

func TestInfo(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodPut, "/"},
		{http.MethodDelete, "/abc123"},
		{http.MethodPost, "/abc123"},
		{http.MethodPatch, "/x/y"},
	}

	srv := newTestServer(t, storage.NewMemoryStore(), "", httphandler.SetupRoutes)
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := srv.do(tt.method, tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assertCORS(t, rec)

			var body struct {
				Message   string            `json:"message"`
				Usage     string            `json:"usage"`
				Endpoints map[string]string `json:"endpoints"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "URL Shortener API", body.Message)
			assert.Equal(t, "Send POST request with JSON { url: 'https://example.com' }", body.Usage)
			assert.Equal(t, map[string]string{
				"POST /":     "Create short URL",
				"GET /:code": "Redirect to original URL",
			}, body.Endpoints)
		})
	}
}

func TestRedirectRoutes_NoCreate(t *testing.T) {
	store := storage.NewMemoryStore()
	api := newTestServer(t, store, "", httphandler.SetupRoutes)
	redirect := newTestServer(t, store, "", httphandler.SetupRedirectRoutes)
	resp := api.create(t, "https://example.com")

	rec := redirect.do(http.MethodPost, "/", `{"url":"https://example.org"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "URL Shortener API")

	rec = redirect.do(http.MethodGet, "/"+resp.ID, "")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Location"))
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, storage.NewMemoryStore(), "", httphandler.SetupRoutes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
