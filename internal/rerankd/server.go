package rerankd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feedcurator/internal/config"
	"feedcurator/internal/curator"
	"feedcurator/internal/feed"
	"feedcurator/internal/fingerprint"
	"feedcurator/internal/logging"
	"feedcurator/internal/memo"
	"feedcurator/internal/rescache"
	"feedcurator/internal/resultstore"
	"feedcurator/internal/services"
	"feedcurator/internal/source"
)

const (
	maxBodyBytes        = 1 << 20
	pruneInterval       = time.Hour
	shutdownGracePeriod = 5 * time.Second
	sourceHeader        = "X-Curation-Source"
)

// Grouping sources reported in metrics and the X-Curation-Source header.
const (
	SourceThrottle = "throttle"
	SourceStore    = "store"
	SourceShared   = "shared"
)

// Curator groups a candidate list. *curator.Curator satisfies it.
type Curator interface {
	Curate(ctx context.Context, videos []feed.CandidateItem) curator.Outcome
}

// Option customizes a Server.
type Option func(*Server)

// WithStore persists model groupings in store.
func WithStore(store *resultstore.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used by the throttle cache and pruning.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server is the reranking HTTP service.
type Server struct {
	bind           string
	token          string
	maxVideos      int
	retention      time.Duration
	requestTimeout time.Duration

	curator  Curator
	store    *resultstore.Store
	throttle *rescache.Cache
	flight   *memo.Group[curator.Outcome]
	registry *prometheus.Registry
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time

	handler http.Handler
}

// New builds a server from cfg. cur performs the actual grouping.
func New(cfg *config.Config, cur Curator, opts ...Option) *Server {
	s := &Server{
		bind:           strings.TrimSpace(cfg.Server.Bind),
		token:          strings.TrimSpace(cfg.Server.APIToken),
		maxVideos:      cfg.Server.MaxVideos,
		retention:      cfg.StoreRetention(),
		requestTimeout: time.Duration(cfg.LLM.TimeoutSeconds*(cfg.LLM.RetryAttempts+1)) * time.Second,
		curator:        cur,
		flight:         memo.New[curator.Outcome](nil),
		logger:         logging.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "rerankd")
	if s.maxVideos <= 0 {
		s.maxVideos = feed.DefaultMaxItems
	}
	s.throttle = rescache.New(rescache.Options{
		Capacity: cfg.Server.CacheCapacity,
		TTL:      cfg.MinRequestInterval(),
		Now:      s.now,
		Logger:   s.logger,
	})
	s.registry = newRegistry()
	s.metrics = newMetrics(s.registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/rerank", authMiddleware(s.token, s.handleRerank))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.handler = requestIDMiddleware(corsMiddleware(mux))
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe listens on the configured bind address and serves until
// ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.bind == "" {
		return services.Wrap(services.ErrConfiguration, "rerankd", "listen", "server.bind is empty", nil)
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("rerankd listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve handles connections on listener until ctx is canceled, then shuts
// down gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.requestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	go s.pruneLoop(ctx)

	s.logger.Info("rerank service listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.token != ""),
		logging.Bool("result_store", s.store != nil))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("rerankd serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("rerankd shutdown: %w", err)
	}
	s.logger.Info("rerank service stopped")
	return nil
}

type rerankResponse struct {
	Groups []feed.Group `json:"groups"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRerank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		s.metrics.Requests.WithLabelValues(strconv.Itoa(http.StatusMethodNotAllowed)).Inc()
		return
	}
	started := time.Now()
	defer func() {
		s.metrics.Duration.Observe(time.Since(started).Seconds())
	}()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		s.metrics.Requests.WithLabelValues(strconv.Itoa(http.StatusRequestEntityTooLarge)).Inc()
		return
	}
	videos, err := source.DecodeVideos(body)
	if err != nil {
		logging.WithContext(r.Context(), s.logger).Debug("rejecting rerank payload", logging.Error(err))
		writeError(w, http.StatusBadRequest, "Payload must include a 'videos' array.")
		s.metrics.Requests.WithLabelValues(strconv.Itoa(http.StatusBadRequest)).Inc()
		return
	}

	videos, _ = feed.Split(videos, s.maxVideos)
	groups, origin := s.curate(r.Context(), videos)

	w.Header().Set(sourceHeader, origin)
	s.writeJSON(w, http.StatusOK, rerankResponse{Groups: groups})
	s.metrics.Requests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	if len(videos) > 0 {
		s.metrics.Curations.WithLabelValues(origin).Inc()
	}
	s.metrics.CacheEntries.Set(float64(s.throttle.Len()))
}

// curate resolves groups for videos via the throttle cache, the result
// store, then the curator, in that order.
func (s *Server) curate(ctx context.Context, videos []feed.CandidateItem) ([]feed.Group, string) {
	if len(videos) == 0 {
		return []feed.Group{}, string(curator.SourceModel)
	}
	fp := fingerprint.Compute(videos, len(videos))
	ctx = services.WithFingerprint(ctx, fp)
	logger := logging.WithContext(ctx, s.logger)

	if groups, ok := s.throttle.Get(fp); ok {
		logger.Info("serving recent grouping",
			logging.String(logging.FieldEventType, "rerank_throttled"),
			logging.ItemCount(len(videos)))
		return groups, SourceThrottle
	}

	if groups, ok := s.lookupStore(ctx, fp); ok {
		s.throttle.Put(fp, groups)
		return groups, SourceStore
	}

	outcome, shared, err := s.flight.Do(ctx, fp, func(ctx context.Context) (curator.Outcome, error) {
		out := s.curator.Curate(ctx, videos)
		// Fallbacks are throttled too so a failing model is not hammered.
		s.throttle.Put(fp, out.Groups)
		if out.Source == curator.SourceModel {
			s.saveStore(ctx, fp, videos, out)
		}
		return out, nil
	})
	if err != nil {
		// The client went away; nothing useful can be written.
		return feed.AllVideos(videos), string(curator.SourceFallback)
	}
	if shared {
		return feed.CloneGroups(outcome.Groups), SourceShared
	}
	return outcome.Groups, string(outcome.Source)
}

func (s *Server) lookupStore(ctx context.Context, fp string) ([]feed.Group, bool) {
	if s.store == nil {
		return nil, false
	}
	rec, err := s.store.Get(ctx, fp, s.retention)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "result store lookup failed", "result_store_read_failed",
			logging.Error(err),
			logging.Impact("curating without persisted result"))
		return nil, false
	}
	if rec == nil {
		return nil, false
	}
	if err := s.store.MarkHit(ctx, fp); err != nil {
		logging.WithContext(ctx, s.logger).Debug("result store hit counter failed", logging.Error(err))
	}
	return rec.Groups, true
}

func (s *Server) saveStore(ctx context.Context, fp string, videos []feed.CandidateItem, out curator.Outcome) {
	if s.store == nil {
		return
	}
	model := ""
	if named, ok := s.curator.(interface{ Model() string }); ok {
		model = named.Model()
	}
	err := s.store.Save(ctx, resultstore.Record{
		Fingerprint: fp,
		Groups:      out.Groups,
		ItemCount:   len(videos),
		Source:      string(out.Source),
		Model:       model,
		CreatedAt:   s.now(),
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "result store write failed", "result_store_write_failed",
			logging.Error(err),
			logging.Impact("grouping will not survive a restart"))
	}
}

func (s *Server) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		s.prune(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// prune evicts expired throttle entries and, when persistence is enabled,
// result store records older than the retention window.
func (s *Server) prune(ctx context.Context) {
	if removed := s.throttle.Prune(); removed > 0 {
		s.logger.Debug("pruned throttle cache", logging.Int("removed", removed))
	}
	s.metrics.CacheEntries.Set(float64(s.throttle.Len()))

	if s.store == nil || s.retention <= 0 {
		return
	}
	removed, err := s.store.Prune(ctx, s.now().Add(-s.retention))
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(s.logger, "result store prune failed", "result_store_prune_failed", logging.Error(err))
		}
		return
	}
	if removed > 0 {
		s.logger.Info("pruned result store", logging.Int64("removed", removed))
	}
}

type healthResponse struct {
	Status       string `json:"status"`
	CacheEntries int    `json:"cache_entries"`
	ResultStore  bool   `json:"result_store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		CacheEntries: s.throttle.Len(),
		ResultStore:  s.store != nil,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response failed", logging.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}
