// Package httpapi exposes quote sessions over HTTP.
package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vsinha/quoting/pkg/application/services/quoting"
	"github.com/vsinha/quoting/pkg/domain/entities"
	"github.com/vsinha/quoting/pkg/domain/repositories"
	"github.com/vsinha/quoting/pkg/domain/services/costing"
	"github.com/vsinha/quoting/pkg/domain/services/matching"
	"github.com/vsinha/quoting/pkg/infrastructure/events"
	"github.com/vsinha/quoting/pkg/infrastructure/importer"
	"github.com/vsinha/quoting/pkg/infrastructure/metrics"
	"go.uber.org/zap"
)

var errTooManySessions = errors.New("session limit reached")

// Options configures a Server. Catalog is required.
type Options struct {
	Catalog     repositories.CatalogRepository
	Rates       *costing.Rates
	Logger      *zap.Logger
	MaxSessions int
}

// sessionEntry serializes operations on one session
type sessionEntry struct {
	mu      sync.Mutex
	session *quoting.Session
}

// Server holds the open quote sessions
type Server struct {
	catalog     repositories.CatalogRepository
	rates       *costing.Rates
	logger      *zap.Logger
	recorder    *metrics.Recorder
	events      *events.InMemoryEventStore
	decoder     *importer.Decoder
	maxSessions int

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewServer creates a server with no open sessions
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		catalog:     opts.Catalog,
		rates:       opts.Rates,
		logger:      logger,
		recorder:    metrics.NewRecorder(),
		events:      events.NewInMemoryEventStore(logger),
		decoder:     importer.NewDecoder(nil),
		maxSessions: opts.MaxSessions,
		sessions:    make(map[string]*sessionEntry),
	}
	_ = s.events.Subscribe(events.SessionEventTypes, s.recorder)
	return s
}

// Router builds the gin engine serving the API
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessions := r.Group("/sessions")
	{
		sessions.POST("", s.CreateSession)
		sessions.GET("/:id", s.GetSession)
		sessions.DELETE("/:id", s.CloseSession)
		sessions.POST("/:id/quotes", s.GenerateQuotes)
		sessions.POST("/:id/recalculate", s.RecalculateTotals)
		sessions.GET("/:id/events", s.ListEvents)
		sessions.GET("/:id/nodes/:node", s.GetNode)
		sessions.PUT("/:id/nodes/:node/material", s.UpdateMaterial)
		sessions.PUT("/:id/nodes/:node/quantity", s.UpdateQuantity)
		sessions.PUT("/:id/nodes/:node/alloy", s.ChangeAlloy)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

func (s *Server) open(root *entities.Node) (string, *sessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		return "", nil, errTooManySessions
	}

	id := uuid.NewString()
	session, err := quoting.NewSession(root, quoting.Config{
		ID:           id,
		Catalog:      s.catalog,
		Rates:        s.rates,
		Logger:       s.logger,
		EventStore:   s.events,
		Observer:     s.recorder,
		MatchOptions: []matching.Option{matching.WithObserver(s.recorder)},
	})
	if err != nil {
		return "", nil, err
	}

	entry := &sessionEntry{session: session}
	s.sessions[id] = entry
	s.recorder.SessionOpened()
	return id, entry, nil
}

func (s *Server) lookup(id string) (*sessionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	return entry, ok
}

func (s *Server) remove(id string) (*sessionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	return entry, ok
}

// withSession runs fn holding the session's lock, or answers 404
func (s *Server) withSession(c *gin.Context, fn func(session *quoting.Session)) {
	entry, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("session not found: %s", c.Param("id"))})
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	fn(entry.session)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, quoting.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, errTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, entities.ErrNotPartNode),
		errors.Is(err, entities.ErrNotQuotable),
		errors.Is(err, entities.ErrInvalidQuantity),
		errors.Is(err, entities.ErrInvalidShape):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
