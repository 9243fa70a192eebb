package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"webscope/pkg/broadcast"
	"webscope/pkg/config"
	wserrors "webscope/pkg/errors"
	"webscope/pkg/health"
	"webscope/pkg/logger"
	"webscope/pkg/signaling"
	"webscope/pkg/storage"

	"github.com/gin-gonic/gin"
)

// eventHistoryLimit caps /api/events responses
const eventHistoryLimit = 100

// Server wires the signaling manager, the broadcast loop and the HTTP
// surface together.
type Server struct {
	cfg         *config.ServerConfig
	manager     *signaling.Manager
	broadcaster *broadcast.Broadcaster
	store       storage.Store
	monitor     *health.Monitor
	log         *logger.Logger

	httpServer      *http.Server
	serverMu        sync.Mutex
	broadcastCancel context.CancelFunc
}

// NewServer creates a server instance with the default WebRTC transport.
func NewServer(cfg *config.ServerConfig) (*Server, error) {
	return newServer(cfg, signaling.NewWebRTCFactory(cfg.WebRTC.STUNServers))
}

// newServer builds the server around an arbitrary transport factory.
func newServer(cfg *config.ServerConfig, factory signaling.TransportFactory) (*Server, error) {
	log := logger.Get()

	gen := broadcast.NewWaveformGenerator(cfg.Broadcast.SampleCount, cfg.Broadcast.SignalHz)
	broadcaster := broadcast.New(cfg.Broadcast.FrameInterval(), gen, log)

	store, err := storage.NewStore(cfg.Database)
	if err != nil {
		log.ErrorWithErr("failed to open event store", err)
		log.InfoWith("server will continue without the event log")
		store = nil
	}

	manager := signaling.NewManager(factory, log)

	s := &Server{
		cfg:         cfg,
		manager:     manager,
		broadcaster: broadcaster,
		store:       store,
		monitor:     health.NewMonitor(),
		log:         log,
	}

	manager.OnChannel(s.handleChannel)
	manager.OnEvent(s.recordEvent)

	return s, nil
}

// recordEvent appends a session lifecycle event to the store, if any.
func (s *Server) recordEvent(ev signaling.Event) {
	if s.store == nil {
		return
	}
	err := s.store.SaveSessionEvent(&storage.SessionEvent{
		SessionID: ev.SessionID,
		Kind:      ev.Kind,
		CreatedAt: ev.At,
	})
	if err != nil {
		s.log.WarnWith("failed to record session event", "session", ev.SessionID, "error", err)
	}
}

// buildRouter assembles the gin routes.
func (s *Server) buildRouter() *gin.Engine {
	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.POST("/connect", s.handleConnect)
	router.GET("/healthz", s.handleHealth)
	router.GET("/api/stats", s.handleStats)
	router.GET("/api/sessions", s.handleSessions)
	router.GET("/api/events", s.handleEvents)
	router.GET("/ws/stats", s.handleStatsWS)

	// Static viewer assets, read-only under /
	router.NoRoute(gin.WrapH(http.FileServer(http.Dir(s.cfg.StaticDir))))

	return router
}

// handleConnect is the signaling endpoint: it consumes an offer and
// returns the answer tagged with the session id.
func (s *Server) handleConnect(c *gin.Context) {
	var offer signaling.ConnectInfo
	if err := c.ShouldBindJSON(&offer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	answer, err := s.manager.HandleOffer(c.Request.Context(), offer)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, wserrors.ErrInvalidPayload):
			status = http.StatusBadRequest
		case errors.Is(err, wserrors.ErrUnknownSession):
			status = http.StatusNotFound
		case errors.Is(err, wserrors.ErrShuttingDown):
			status = http.StatusServiceUnavailable
		}
		s.log.WarnWith("offer rejected", "status", status, "error", err.Error())
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, answer)
}

// handleHealth returns a health snapshot.
func (s *Server) handleHealth(c *gin.Context) {
	stats := s.broadcaster.Stats()
	c.JSON(http.StatusOK, s.monitor.GetHealth(s.manager.Count(), stats.ActiveChannels))
}

// handleStats returns broadcaster and session counters.
func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.statsPayload())
}

// handleSessions lists live sessions.
func (s *Server) handleSessions(c *gin.Context) {
	sessions := s.manager.Sessions()
	out := make([]gin.H, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, gin.H{
			"id":          sess.ID(),
			"state":       sess.State().String(),
			"age_seconds": int64(sess.Age().Seconds()),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// handleEvents returns recent session lifecycle events from the store.
func (s *Server) handleEvents(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event log not available"})
		return
	}

	events, err := s.store.GetRecentEvents(eventHistoryLimit)
	if err != nil {
		s.log.ErrorWithErr("failed to load session events", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Start runs the broadcast loop and serves HTTP until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.serverMu.Lock()
	s.broadcastCancel = cancel
	s.serverMu.Unlock()

	go s.broadcaster.Run(ctx)

	router := s.buildRouter()
	httpServer := &http.Server{
		Addr:    s.cfg.Address,
		Handler: router,
	}

	s.serverMu.Lock()
	s.httpServer = httpServer
	s.serverMu.Unlock()

	s.log.InfoWith("server listening", "address", s.cfg.Address)
	return httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server, the broadcast loop and every live
// session, then closes the event store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.InfoWith("initiating graceful shutdown")

	s.serverMu.Lock()
	httpServer := s.httpServer
	cancel := s.broadcastCancel
	s.serverMu.Unlock()

	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			s.log.ErrorWithErr("error shutting down HTTP server", err)
			httpServer.Close()
		}
	}

	if cancel != nil {
		cancel()
	}

	if err := s.manager.Shutdown(ctx); err != nil {
		s.log.ErrorWithErr("error closing sessions", err)
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.ErrorWithErr("error closing event store", err)
		}
	}

	s.log.InfoWith("graceful shutdown complete")
	return nil
}
