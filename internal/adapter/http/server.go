package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hydro-index-service/internal/domain"
	"github.com/couchcryptid/hydro-index-service/internal/observability"
	"github.com/couchcryptid/hydro-index-service/internal/store"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, and metrics endpoints plus the
// read-only index API. Every index query is computed on demand from the
// store; query parameters override the service defaults per request.
type Server struct {
	httpServer *http.Server
	store      *store.Store
	defaults   domain.TableOptions
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(addr string, st *store.Store, defaults domain.TableOptions, ready ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:    st,
		defaults: defaults,
		metrics:  metrics,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/groups", s.handleGroups)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/series", s.handleSeries)
	mux.HandleFunc("GET /api/spells", s.handleSpells)
	mux.HandleFunc("GET /api/indices", s.handleIndices)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleGroups(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, "groups", http.StatusOK, map[string]any{"groups": s.store.Info()})
}

type summaryResponse struct {
	Group string            `json:"group"`
	Rule  domain.WetDryRule `json:"rule"`
	domain.Summary
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	const endpoint = "summary"

	series, group, ok := s.groupSeries(w, endpoint, r.URL.Query())
	if !ok {
		return
	}
	rule, err := s.ruleFrom(r.URL.Query())
	if err != nil {
		s.respondError(w, endpoint, err)
		return
	}

	summary, err := domain.Summarize(series, rule)
	if err != nil {
		s.respondError(w, endpoint, err)
		return
	}
	s.respond(w, endpoint, http.StatusOK, summaryResponse{Group: group, Rule: rule, Summary: summary})
}

type seriesResponse struct {
	Group        string        `json:"group"`
	Days         int           `json:"days"`
	Fingerprint  string        `json:"fingerprint"`
	Observations domain.Series `json:"observations"`
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	const endpoint = "series"

	series, group, ok := s.groupSeries(w, endpoint, r.URL.Query())
	if !ok {
		return
	}
	years, err := yearsFrom(r.URL.Query())
	if err != nil {
		s.respondError(w, endpoint, err)
		return
	}
	if years != nil {
		if err := years.Validate(); err != nil {
			s.respondError(w, endpoint, err)
			return
		}
		series = series.YearRange(years.From, years.To)
	}

	s.respond(w, endpoint, http.StatusOK, seriesResponse{
		Group:        group,
		Days:         len(series),
		Fingerprint:  series.Fingerprint(),
		Observations: series,
	})
}

type spellsResponse struct {
	Group  string            `json:"group"`
	Rule   domain.WetDryRule `json:"rule"`
	Spells []domain.Spell    `json:"spells"`
}

func (s *Server) handleSpells(w http.ResponseWriter, r *http.Request) {
	const endpoint = "spells"

	series, group, ok := s.groupSeries(w, endpoint, r.URL.Query())
	if !ok {
		return
	}
	rule, err := s.ruleFrom(r.URL.Query())
	if err != nil {
		s.respondError(w, endpoint, err)
		return
	}

	spells, err := domain.DrySpells(series, rule)
	if err != nil {
		s.respondError(w, endpoint, err)
		return
	}
	s.respond(w, endpoint, http.StatusOK, spellsResponse{Group: group, Rule: rule, Spells: spells})
}

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	const endpoint = "indices"

	series, group, ok := s.groupSeries(w, endpoint, r.URL.Query())
	if !ok {
		return
	}
	opts, err := s.optionsFrom(r.URL.Query())
	if err != nil {
		s.respondError(w, endpoint, err)
		return
	}
	opts.Group = group

	table, err := domain.ComputeTable(series, opts)
	if err != nil {
		s.respondError(w, endpoint, err)
		return
	}
	s.respond(w, endpoint, http.StatusOK, table)
}

// groupSeries resolves the mandatory group parameter to a series snapshot.
// Writes the error response itself and returns ok=false when it cannot.
func (s *Server) groupSeries(w http.ResponseWriter, endpoint string, q url.Values) (domain.Series, string, bool) {
	group := q.Get("group")
	if group == "" {
		s.respondError(w, endpoint, fmt.Errorf("%w: missing group parameter", domain.ErrConfig))
		return nil, "", false
	}
	series, ok := s.store.Snapshot(group)
	if !ok {
		s.respond(w, endpoint, http.StatusNotFound, map[string]string{"error": "unknown group " + strconv.Quote(group)})
		return nil, "", false
	}
	return series, group, true
}

// ruleFrom builds the wet/dry rule for a request: service defaults unless
// threshold or wet override them. The dry comparison is always derived, so
// an inconsistent pair cannot be requested.
func (s *Server) ruleFrom(q url.Values) (domain.WetDryRule, error) {
	threshold := s.defaults.Rule.Threshold
	wetOp := s.defaults.Rule.WetOp

	if v := q.Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.WetDryRule{}, fmt.Errorf("%w: threshold %q is not a number", domain.ErrConfig, v)
		}
		threshold = t
	}
	if v := q.Get("wet"); v != "" {
		wetOp = domain.Op(v)
	}
	return domain.NewWetDryRule(threshold, wetOp)
}

// optionsFrom assembles full table options from the request: block kind,
// rule, baseline, and year selection, each falling back to the service
// defaults.
func (s *Server) optionsFrom(q url.Values) (domain.TableOptions, error) {
	opts := s.defaults

	rule, err := s.ruleFrom(q)
	if err != nil {
		return domain.TableOptions{}, err
	}
	opts.Rule = rule

	if v := q.Get("block"); v != "" {
		kind, err := domain.ParseBlockKind(v)
		if err != nil {
			return domain.TableOptions{}, err
		}
		opts.Kind = kind
	}

	baseline, err := baselineFrom(q)
	if err != nil {
		return domain.TableOptions{}, err
	}
	if baseline != nil {
		opts.Baseline = baseline
	}

	years, err := yearsFrom(q)
	if err != nil {
		return domain.TableOptions{}, err
	}
	opts.Years = years

	return opts, nil
}

func baselineFrom(q url.Values) (*domain.BaselineRange, error) {
	start, startSet, err := intParam(q, "baseline_start")
	if err != nil {
		return nil, err
	}
	end, endSet, err := intParam(q, "baseline_end")
	if err != nil {
		return nil, err
	}
	if startSet != endSet {
		return nil, fmt.Errorf("%w: baseline_start and baseline_end must be set together", domain.ErrConfig)
	}
	if !startSet {
		return nil, nil
	}
	return &domain.BaselineRange{StartYear: start, EndYear: end}, nil
}

func yearsFrom(q url.Values) (*domain.YearSelection, error) {
	from, fromSet, err := intParam(q, "from")
	if err != nil {
		return nil, err
	}
	to, toSet, err := intParam(q, "to")
	if err != nil {
		return nil, err
	}
	if fromSet != toSet {
		return nil, fmt.Errorf("%w: from and to must be set together", domain.ErrConfig)
	}
	if !fromSet {
		return nil, nil
	}
	return &domain.YearSelection{From: from, To: to}, nil
}

func intParam(q url.Values, key string) (int, bool, error) {
	v := q.Get(key)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s %q is not a year", domain.ErrConfig, key, v)
	}
	return n, true, nil
}

// respond writes the JSON response and counts the request outcome.
func (s *Server) respond(w http.ResponseWriter, endpoint string, status int, v any) {
	writeJSON(w, status, v)
	s.metrics.APIRequests.WithLabelValues(endpoint, outcomeFor(status)).Inc()
}

// respondError maps configuration errors to 400 and everything else to 500.
func (s *Server) respondError(w http.ResponseWriter, endpoint string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrConfig) {
		status = http.StatusBadRequest
	}
	s.respond(w, endpoint, status, map[string]string{"error": err.Error()})
}

func outcomeFor(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "not_found"
	case status >= http.StatusBadRequest:
		return "bad_request"
	default:
		return "ok"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
