// Package server exposes the battle model over HTTP: simulation, battle
// history, composition optimization and a live WebSocket feed of stored
// battles.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lawnchairsociety/battleadvisor/internal/antispam"
	"github.com/lawnchairsociety/battleadvisor/internal/battle"
	"github.com/lawnchairsociety/battleadvisor/internal/config"
	"github.com/lawnchairsociety/battleadvisor/internal/labelfilter"
	"github.com/lawnchairsociety/battleadvisor/internal/logger"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Battle Advisor"

type Server struct {
	cfg          *config.ServerConfig
	model        battle.Model
	store        BattleStore
	feed         *Feed
	connLimiter  *ConnLimiter
	proxies      trustedProxies
	authLimiter  *AuthRateLimiter
	spamGuard    *antispam.Guard
	labelFilter  *labelfilter.Filter
	keyHashes    [][]byte
	handler      http.Handler
	httpServer   *http.Server
	mu           sync.Mutex
	shutdownOnce sync.Once
	StartTime    time.Time

	// newID and now are replaced in tests.
	newID func() string
	now   func() time.Time
}

// NewServer wires the routes and middleware for cfg. The store is required.
func NewServer(cfg *config.ServerConfig, store BattleStore, model battle.Model) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Server{
		cfg:         cfg,
		model:       model,
		store:       store,
		connLimiter: NewConnLimiter(cfg.Connections),
		proxies:     parseTrustedProxies(cfg.HTTP.TrustedProxies),
		StartTime:   time.Now(),
		newID:       uuid.NewString,
		now:         time.Now,
	}

	s.connLimiter.clientIP = s.proxies.clientIP

	s.spamGuard = antispam.NewGuard(antispam.ConfigFromYAML(
		cfg.Antispam.Enabled,
		cfg.Antispam.MaxSubmissions,
		cfg.Antispam.TimeWindowSeconds,
		cfg.Antispam.RepeatCooldownSeconds,
	))

	s.labelFilter = newLabelFilter(cfg.LabelFilter)

	if cfg.Feed.Enabled {
		s.feed = NewFeed(cfg.Feed.MaxMessageSize)
	}

	if cfg.Auth.Enabled {
		s.authLimiter = NewAuthRateLimiter(cfg.RateLimit)
		for _, h := range cfg.Auth.KeyHashes {
			if h = strings.TrimSpace(h); h != "" {
				s.keyHashes = append(s.keyHashes, []byte(h))
			}
		}
		if len(s.keyHashes) == 0 {
			logger.Warning("API key auth enabled with no key hashes configured; every API request will be rejected")
		}
	}

	s.handler = s.buildHandler()
	return s
}

// newLabelFilter builds the banned-word filter, merging in the optional
// words file. An unreadable words file is logged and skipped.
func newLabelFilter(c config.LabelFilterConfig) *labelfilter.Filter {
	words := append([]string(nil), c.BannedWords...)
	if c.Enabled && c.WordsFile != "" {
		extra, err := labelfilter.LoadWordList(c.WordsFile)
		if err != nil {
			logger.Warning("Failed to load banned words file", "path", c.WordsFile, "error", err)
		} else {
			words = append(words, extra...)
		}
	}

	if c.Enabled {
		logger.Info("Label filter enabled", "mode", c.Mode, "words", len(words))
	}
	return labelfilter.New(labelfilter.Config{
		Enabled:     c.Enabled,
		Mode:        labelfilter.Mode(c.Mode),
		BannedWords: words,
	})
}

// buildHandler assembles the router. Middleware that must see every request,
// including CORS preflights that match no route, wraps the router itself.
func (s *Server) buildHandler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireAPIKey)
	api.HandleFunc("/battle/simulate", s.handleSimulate).Methods(http.MethodPost)
	api.HandleFunc("/battle/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/battle/{id}", s.handleGetBattle).Methods(http.MethodGet)
	api.HandleFunc("/army/optimize", s.handleOptimize).Methods(http.MethodGet)

	if s.feed != nil {
		ws := r.PathPrefix("/ws").Subrouter()
		ws.Use(s.requireAPIKey)
		ws.HandleFunc("/battles", s.handleFeed).Methods(http.MethodGet)
	}

	var h http.Handler = r
	h = s.connLimiter.Middleware(h)
	h = s.cors(h)
	if s.cfg.SecurityHeaders.Enabled {
		h = securityHeaders(h)
	}
	return s.requestLogger(h)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Feed returns the live feed, or nil when it is disabled.
func (s *Server) Feed() *Feed {
	return s.feed
}

// ListenAndServe serves on the configured address until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.handler,
		ReadTimeout:       s.cfg.HTTP.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.HTTP.ReadTimeout(),
		WriteTimeout:      s.cfg.HTTP.WriteTimeout(),
		ErrorLog:          logger.StdLogger(slog.LevelWarn),
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.Info("HTTP server listening", "address", s.cfg.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes feed connections, stops background work and drains
// in-flight requests. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.feed != nil {
			s.feed.Close()
		}
		if s.authLimiter != nil {
			s.authLimiter.Stop()
		}

		s.mu.Lock()
		srv := s.httpServer
		s.mu.Unlock()
		if srv != nil {
			err = srv.Shutdown(ctx)
		}

		logger.Info("Server shutdown complete", "uptime", time.Since(s.StartTime).Round(time.Second))
	})
	return err
}

// clientIP is the address rate limits, lockouts and logs attribute r to.
func (s *Server) clientIP(r *http.Request) string {
	return s.proxies.clientIP(r)
}
