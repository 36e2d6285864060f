package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/webscan/internal/api/middleware"
	"github.com/khanhnv2901/webscan/internal/domain/scan"
	"github.com/khanhnv2901/webscan/internal/export"
)

const (
	maxBodyBytes   = 1 << 20 // 1MB request body limit
	exportFileName = "scan_results.csv"

	authTokenHeader        = "X-Auth-Token"
	persistenceErrorHeader = "X-Persistence-Error"
)

// ScanService is the core the HTTP adapter delegates to.
type ScanService interface {
	RunScan(ctx context.Context, raw string) ([]scan.Result, error)
	Query(ctx context.Context, urls []string) ([]scan.Record, error)
	History(ctx context.Context) ([]scan.Record, error)
}

type HealthService interface {
	Check(ctx context.Context) error
}

// ScanRequest carries newline-separated targets.
type ScanRequest struct {
	URLs string `json:"urls"`
}

// ScanResponse always carries the results; PersistenceError is set when history could not be written.
type ScanResponse struct {
	Results          []scan.Result `json:"results"`
	PersistenceError string        `json:"persistence_error,omitempty"`
}

type Config struct {
	Scans       ScanService
	Health      HealthService
	AuthToken   string
	Logger      *zap.Logger
	CORSOrigins []string // Allowed CORS origins (empty = allow all)
	RateLimit   int      // Requests per second per IP (0 = disabled)
	RateBurst   int      // Burst size for rate limiter
}

type Server struct {
	cfg      Config
	router   chi.Router
	limiters *clientLimiters
}

func NewServer(cfg Config) *Server {
	srv := &Server{
		cfg:      cfg,
		limiters: newClientLimiters(),
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background maintenance.
func (s *Server) Close() {
	s.limiters.stop()
}

func (s *Server) routes() {
	r := chi.NewRouter()

	// RequestID -> Logging -> RateLimit -> CORS -> Auth -> Handler
	r.Use(middleware.RequestID)
	r.Use(s.withLogging)
	r.Use(s.withRateLimit)
	r.Use(s.withCORS)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowed(s.methodNotAllowed)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.withAuth)

		r.Get("/health", s.handleHealth)
		r.Post("/scan", s.handleScan)
		r.Post("/scan/export", s.handleScanExport)
		r.Get("/history", s.handleHistory)
		r.Get("/export", s.handleExport)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Health != nil {
		if err := s.cfg.Health.Check(r.Context()); err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	raw, err := s.readTargets(w, r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	results, err := s.cfg.Scans.RunScan(r.Context(), raw)
	resp := ScanResponse{Results: results}
	if err != nil {
		s.requestLogger(r).Warn("scan_persistence_failed", zap.Error(err))
		resp.PersistenceError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScanExport(w http.ResponseWriter, r *http.Request) {
	schema, err := export.ParseSchema(r.URL.Query().Get("schema"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	raw, err := s.readTargets(w, r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	results, err := s.cfg.Scans.RunScan(r.Context(), raw)
	if err != nil {
		s.requestLogger(r).Warn("scan_persistence_failed", zap.Error(err))
		w.Header().Set(persistenceErrorHeader, err.Error())
	}
	s.writeCSV(w, r, export.Records(results), schema)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	schema, err := export.ParseSchema(r.URL.Query().Get("schema"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	records, err := s.lookup(r)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeCSV(w, r, records, schema)
}

// lookup returns history for the url query parameters, or the whole history when none are given.
func (s *Server) lookup(r *http.Request) ([]scan.Record, error) {
	urls := r.URL.Query()["url"]
	if len(urls) == 0 {
		return s.cfg.Scans.History(r.Context())
	}
	return s.cfg.Scans.Query(r.Context(), urls)
}

// readTargets accepts a JSON body {"urls": "..."} or a form field named urls.
func (s *Server) readTargets(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return "", fmt.Errorf("invalid form: %w", err)
		}
		return r.FormValue("urls"), nil
	}

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", fmt.Errorf("invalid request body: %w", err)
	}
	return req.URLs, nil
}

func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, records []scan.Record, schema export.Schema) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records, schema); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+exportFileName)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.cfg.RateLimit <= 0 {
		return next
	}
	burst := s.cfg.RateBurst
	if burst <= 0 {
		burst = s.cfg.RateLimit
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiters.forClient(ip, s.cfg.RateLimit, burst).Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded", zap.String("client_ip", ip))
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the connection address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// allowedOrigin returns the Access-Control-Allow-Origin value for origin, or "" to omit it.
func (s *Server) allowedOrigin(origin string) string {
	if len(s.cfg.CORSOrigins) == 0 {
		return "*"
	}
	if slices.Contains(s.cfg.CORSOrigins, origin) {
		return origin
	}
	return ""
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allow := s.allowedOrigin(r.Header.Get("Origin")); allow != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allow)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+authTokenHeader)
			h.Set("Access-Control-Expose-Headers", "Content-Disposition, "+persistenceErrorHeader+", "+middleware.RequestIDHeader)
			h.Set("Access-Control-Max-Age", "3600")
		}

		// OPTIONS never reaches the scan routes.
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging writes one http_request line per request once the handler has returned.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.requestLogger(r).Info("http_request",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes", rec.written),
		)
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	want := []byte(s.cfg.AuthToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get(authTokenHeader)), want) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status code and body size a handler produced.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.written += int64(n)
	return n, err
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()

	// 5xx details stay in the server log
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger scopes the server logger to one request.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if s.cfg.Logger == nil {
		return zap.NewNop()
	}

	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

const (
	limiterIdleTTL       = 5 * time.Minute
	limiterSweepInterval = time.Minute
)

// clientLimiters hands out one token bucket per client address. Buckets idle for
// limiterIdleTTL are swept until stop is called.
type clientLimiters struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	done    chan struct{}
	once    sync.Once
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters() *clientLimiters {
	m := &clientLimiters{
		buckets: make(map[string]*clientBucket),
		done:    make(chan struct{}),
	}
	go m.sweep(limiterSweepInterval)
	return m
}

func (m *clientLimiters) forClient(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		m.buckets[ip] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

func (m *clientLimiters) stop() {
	m.once.Do(func() { close(m.done) })
}

func (m *clientLimiters) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.evictIdle(now)
		}
	}
}

func (m *clientLimiters) evictIdle(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ip, b := range m.buckets {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(m.buckets, ip)
		}
	}
}
