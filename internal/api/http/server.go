package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"audiostream/metadataservice/internal/agent"
	"audiostream/metadataservice/internal/domain"
)

// MetadataService is the agent surface the HTTP layer exposes.
type MetadataService interface {
	Search(ctx context.Context, query domain.BookQuery, prefs domain.Preferences, manual bool) (domain.SearchResponse, error)
	Resolve(ctx context.Context, id string, prefs domain.Preferences, lang domain.Language) (domain.MetadataRecord, error)
}

type Server struct {
	agent        MetadataService
	logger       *slog.Logger
	defaultPrefs domain.Preferences
}

const maxTitleLength = 500

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultPreferences sets the preference bag applied when a request
// does not override an option.
func WithDefaultPreferences(prefs domain.Preferences) ServerOption {
	return func(s *Server) {
		s.defaultPrefs = prefs
	}
}

func NewServer(service MetadataService, options ...ServerOption) *Server {
	server := &Server{
		agent:  service,
		logger: slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/metadata/image", s.handleImageProxy)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/resolve", s.handleResolve)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "audiobook-metadata",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.agent == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "metadata service is not configured")
		return
	}

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "title is required")
		return
	}
	if len(title) > maxTitleLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "title too long (max 500 characters)")
		return
	}

	query := domain.BookQuery{
		Title:    title,
		Author:   strings.TrimSpace(r.URL.Query().Get("author")),
		Language: domain.NormalizeLanguage(strings.TrimSpace(r.URL.Query().Get("lang"))),
	}
	manual := parseOptionalBool(r.URL.Query().Get("manual"))
	prefs := s.requestPreferences(r)

	response, err := s.agent.Search(r.Context(), query, prefs, manual)
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("title", truncate(title, 80)),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, agent.ErrEmptyTitle) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
		return
	}

	s.logger.Info("search completed",
		slog.String("title", truncate(title, 80)),
		slog.String("language", string(query.Language)),
		slog.Int("totalItems", response.TotalItems),
		slog.Bool("truncated", response.Truncated),
		slog.Int64("elapsedMs", response.ElapsedMS),
	)
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/resolve" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.agent == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "metadata service is not configured")
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "id is required")
		return
	}
	lang := domain.NormalizeLanguage(strings.TrimSpace(r.URL.Query().Get("lang")))
	prefs := s.requestPreferences(r)

	record, err := s.agent.Resolve(r.Context(), id, prefs, lang)
	if err != nil {
		s.logger.Warn("resolve request failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, agent.ErrInvalidItemID):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, agent.ErrUnknownItem):
			writeError(w, http.StatusNotFound, "not_found", err.Error())
		default:
			writeError(w, http.StatusBadGateway, "upstream_error", "catalog fetch failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// requestPreferences starts from the configured defaults and applies the
// per-request overrides the host is allowed to send.
func (s *Server) requestPreferences(r *http.Request) domain.Preferences {
	prefs := s.defaultPrefs
	q := r.URL.Query()

	if site := strings.TrimSpace(q.Get("site")); site != "" {
		prefs.SiteMode = domain.SiteModeManual
		prefs.SiteOverride = site
	}
	if raw := strings.TrimSpace(q.Get("preferCopyrightYear")); raw != "" {
		prefs.PreferCopyrightYear = parseOptionalBool(raw)
	}
	if raw := strings.TrimSpace(q.Get("coverPolicy")); raw != "" {
		prefs.CoverPolicy = domain.NormalizeCoverPolicy(raw)
	}
	if raw := strings.TrimSpace(q.Get("debug")); raw != "" {
		prefs.DebugLogging = parseOptionalBool(raw)
	}
	return prefs
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
