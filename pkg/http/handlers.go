package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"shortlink/pkg/logging"
	"shortlink/pkg/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// Client-facing error messages.
const (
	msgInvalidJSON = "Invalid JSON"
	msgMissingURL  = "Missing url field"
	msgInvalidURL  = "Invalid URL format. Must be http:// or https://"
	msgStoreError  = "Database error occurred"
	msgNotFound    = "Short URL not found"
)

type Handler struct {
	linkService *service.LinkService
	logger      *logging.Logger
	baseURL     string
}

// NewHandler builds the HTTP handlers. An empty baseURL makes short URLs
// use the origin of the incoming request.
func NewHandler(linkService *service.LinkService, logger *logging.Logger, baseURL string) *Handler {
	return &Handler{
		linkService: linkService,
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type infoResponse struct {
	Message   string            `json:"message"`
	Usage     string            `json:"usage"`
	Endpoints map[string]string `json:"endpoints"`
}

var apiInfo = infoResponse{
	Message: "URL Shortener API",
	Usage:   "Send POST request with JSON { url: 'https://example.com' }",
	Endpoints: map[string]string{
		"POST /":     "Create short URL",
		"GET /:code": "Redirect to original URL",
	},
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiInfo)
}

func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLinkRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		// trailing data after the object
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	link, err := h.linkService.CreateLink(r.Context(), &req)
	switch {
	case errors.Is(err, service.ErrMissingURL):
		writeError(w, http.StatusBadRequest, msgMissingURL)
		return
	case errors.Is(err, service.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, msgInvalidURL)
		return
	case err != nil:
		h.logger.Error(r.Context(), "create link failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgStoreError)
		return
	}

	writeJSON(w, http.StatusOK, service.CreateLinkResponse{
		ShortURL: h.origin(r) + "/" + link.ID,
		ID:       link.ID,
	})
}

func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "*")
	if code == "" {
		h.Info(w, r)
		return
	}

	target, err := h.linkService.Resolve(r.Context(), code)
	if errors.Is(err, service.ErrNotFound) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, msgNotFound)
		return
	}
	if err != nil {
		h.logger.Error(r.Context(), "resolve failed", "id", code, "error", err)
		writeError(w, http.StatusInternalServerError, msgStoreError)
		return
	}

	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusMovedPermanently)
}

// origin is the scheme://host short URLs are built on.
func (h *Handler) origin(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return scheme + "://" + r.Host
}

// SetupRoutes mounts the full API: create, redirect and info.
func SetupRoutes(r chi.Router, handler *Handler) {
	SetupRedirectRoutes(r, handler)
	r.Post("/", handler.CreateLink)
}

// SetupRedirectRoutes mounts the read side only. Everything that is not a
// preflight or a redirect falls through to the API description.
func SetupRedirectRoutes(r chi.Router, handler *Handler) {
	r.Options("/*", handler.Preflight)
	r.Get("/", handler.Info)
	r.Get("/*", handler.Redirect)
	r.Head("/*", handler.Redirect)
	r.NotFound(handler.Info)
	r.MethodNotAllowed(handler.Info)
}

// NewRouter returns a chi router with recovery and request logging in
// front of the given route set.
func NewRouter(logger *logging.Logger, handler *Handler, setup func(chi.Router, *Handler)) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware)
	setup(r, handler)
	return r
}
