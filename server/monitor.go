package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// statsPushInterval is how often the stats socket emits a snapshot
const statsPushInterval = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// statsPayload assembles the live counters shared by /api/stats and the
// stats socket.
func (s *Server) statsPayload() gin.H {
	stats := s.broadcaster.Stats()
	return gin.H{
		"sessions":         s.manager.Count(),
		"active_channels":  stats.ActiveChannels,
		"frames_generated": stats.FramesGenerated,
		"deliveries":       stats.Deliveries,
		"soft_errors":      stats.SoftErrors,
		"pruned":           stats.Pruned,
		"last_cycle_us":    stats.LastCycleWork.Microseconds(),
	}
}

// handleStatsWS streams the stats payload once per second until the peer
// goes away.
func (s *Server) handleStatsWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WarnWith("stats socket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	// Drain inbound frames so close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statsPushInterval)
	defer ticker.Stop()

	for range ticker.C {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(s.statsPayload()); err != nil {
			return
		}
	}
}
