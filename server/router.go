package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"gamerooms/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const maxLeaderboardSize = 100

// RoomCounter reports how many rooms this process holds
type RoomCounter interface {
	ActiveRooms() int
}

// SetupRouter wires the ops endpoints: health, metrics and read-only ledger views
func SetupRouter(ledger service.LedgerService, rooms RoomCounter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "active_rooms": rooms.ActiveRooms()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/leaderboard", func(c *gin.Context) {
		n := 10
		if raw := c.Query("n"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > maxLeaderboardSize {
				c.JSON(http.StatusBadRequest, gin.H{"error": "n must be between 1 and 100"})
				return
			}
			n = parsed
		}

		board, err := ledger.TopN(c.Request.Context(), n)
		if err != nil {
			log.WithError(err).Error("Failed to load leaderboard")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"entries":     board.Entries,
			"as_of":       board.AsOf,
			"age_seconds": int64(board.Age / time.Second),
		})
	})

	r.GET("/points/:user", func(c *gin.Context) {
		userID := c.Param("user")
		points, err := ledger.Balance(c.Request.Context(), userID)
		if err != nil {
			log.WithError(err).WithField("user", userID).Error("Failed to load balance")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load balance"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "points": points})
	})

	return r
}

// Server runs the ops router until shut down
type Server struct {
	httpServer *http.Server
}

// New creates a server listening on addr
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background
func (s *Server) Start() {
	go func() {
		log.WithField("addr", s.httpServer.Addr).Info("Ops HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Ops HTTP server stopped")
		}
	}()
}

// Shutdown waits for in-flight requests up to the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
