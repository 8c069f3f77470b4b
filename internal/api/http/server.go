package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"sakeai/searchservice/internal/domain"
	"sakeai/searchservice/internal/search"
)

type SearchService interface {
	Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error)
	Providers() []domain.ProviderInfo
	ProviderDiagnostics() []domain.ProviderDiagnostics
	UpstreamAlive() bool
}

type RankingService interface {
	Ranking(ctx context.Context) (domain.RankingResponse, error)
}

// EnvStatus is what the deep health endpoint reports about runtime
// configuration. Credentials themselves are never echoed.
type EnvStatus struct {
	EnvOK          bool
	FiltersEnabled bool
}

// allowedOutboundHosts is the /out redirect allow-list: affiliate click
// domains and the marketplaces themselves. Everything else is rejected so
// the endpoint cannot be used as an open redirect.
var allowedOutboundHosts = map[string]struct{}{
	"af.moshimo.com":             {},
	"hb.afl.rakuten.co.jp":       {},
	"search.rakuten.co.jp":       {},
	"shopping.yahoo.co.jp":       {},
	"ck.jp.ap.valuecommerce.com": {},
	"www.amazon.co.jp":           {},
	"amzn.to":                    {},
}

const maxKeywordLength = 200

type Server struct {
	search  SearchService
	ranking RankingService
	env     EnvStatus
	logger  *slog.Logger
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithRanking(ranking RankingService) ServerOption {
	return func(s *Server) {
		s.ranking = ranking
	}
}

func WithEnvStatus(env EnvStatus) ServerOption {
	return func(s *Server) {
		s.env = env
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search: searchService,
		logger: slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search/providers", s.handleProviders)
	mux.HandleFunc("/search/providers/health", s.handleProvidersHealth)
	mux.HandleFunc("/search/health", s.handleSearchHealth)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/ranking", s.handleRanking)
	mux.HandleFunc("/out", s.handleOut)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "sake-search",
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

// handleSearchHealth is the deep check: credentials present, at least one
// marketplace recently healthy, rule filter enabled.
func (s *Server) handleSearchHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	upstreamAlive := false
	if s.search != nil {
		upstreamAlive = s.search.UpstreamAlive()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"envOk":          s.env.EnvOK,
		"upstreamAlive":  upstreamAlive,
		"filtersEnabled": s.env.FiltersEnabled,
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
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "q is required")
		return
	}
	if len(keyword) > maxKeywordLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "q too long (max 200 characters)")
		return
	}

	minPrice, err := parseOptionalPrice(r, "min")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid min")
		return
	}
	maxPrice, err := parseOptionalPrice(r, "max")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid max")
		return
	}

	request := domain.SearchRequest{
		Keyword:  keyword,
		Mode:     domain.NormalizeMode(strings.TrimSpace(r.URL.Query().Get("mode"))),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		NoFilter: parseOptionalBool(r.URL.Query().Get("nofilter")),
	}

	response, err := s.search.Search(r.Context(), request)
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("keyword", truncate(keyword, 80)),
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, search.ErrInvalidKeyword):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, search.ErrInvalidPriceRange):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, search.ErrNoProviders):
			writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
		}
		return
	}

	failedProviders := make([]string, 0, len(response.Providers))
	for _, providerStatus := range response.Providers {
		if !providerStatus.OK {
			failedProviders = append(failedProviders, providerStatus.Name)
		}
	}
	s.logger.Info("search completed",
		slog.String("keyword", truncate(keyword, 80)),
		slog.String("mode", string(response.Mode)),
		slog.Int("total", response.Total),
		slog.Int("afterFilter", response.AfterFilter),
		slog.Bool("fallback", response.Fallback),
		slog.Int64("elapsedMs", response.ElapsedMS),
	)
	if len(failedProviders) > 0 {
		s.logger.Warn("marketplaces partially failed",
			slog.String("keyword", truncate(keyword, 80)),
			slog.Any("failedProviders", failedProviders),
		)
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.ranking == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "ranking is not configured")
		return
	}

	response, err := s.ranking.Ranking(r.Context())
	if err != nil {
		s.logger.Warn("ranking request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "ranking failed")
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// handleOut validates an outbound affiliate URL against the host allow-list
// and redirects. dry=1 echoes the final URL instead of redirecting, which
// the frontend uses for link preview.
func (s *Server) handleOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "url is required")
		return
	}

	target, err := url.Parse(raw)
	if err != nil || target.Host == "" || (target.Scheme != "http" && target.Scheme != "https") {
		writeError(w, http.StatusBadRequest, "invalid_request", "url is not absolute")
		return
	}
	if _, ok := allowedOutboundHosts[target.Host]; !ok {
		writeError(w, http.StatusBadRequest, "host_not_allowed", "host is not allowed: "+target.Host)
		return
	}

	if parseOptionalBool(r.URL.Query().Get("dry")) {
		writeJSON(w, http.StatusOK, map[string]string{"finalUrl": target.String()})
		return
	}
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/providers" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": s.search.Providers(),
	})
}

func (s *Server) handleProvidersHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": s.search.ProviderDiagnostics(),
	})
}

func parseOptionalPrice(r *http.Request, key string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return nil, errors.New("invalid value")
	}
	return &parsed, nil
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
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
