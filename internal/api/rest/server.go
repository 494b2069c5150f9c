package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/KevinKickass/HomeGateway/internal/api/websocket"
	"github.com/KevinKickass/HomeGateway/internal/auth"
	"github.com/KevinKickass/HomeGateway/internal/config"
	"github.com/KevinKickass/HomeGateway/internal/interfaces"
)

type Server struct {
	router      *gin.Engine
	lm          interfaces.LifecycleManager
	logger      *zap.Logger
	server      *http.Server
	wsHub       *websocket.Hub
	authService *auth.Service
	gatherer    prometheus.Gatherer
}

// NewServer builds the HTTP API. gatherer may be nil when metrics are disabled.
func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub, authService *auth.Service, gatherer prometheus.Gatherer) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:      gin.New(),
		lm:          lm,
		logger:      logger,
		wsHub:       wsHub,
		authService: authService,
		gatherer:    gatherer,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	// Public routes (no auth required)
	s.router.GET("/health", s.healthCheck)
	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.router.Group("/api/v1")
	{
		// ==================== AUTH (PUBLIC) ====================
		v1.POST("/auth/token", s.issueToken)

		// ==================== VENTILATION ====================
		vent := v1.Group("/ventilation")
		vent.Use(s.authService.AuthMiddleware())
		{
			read := auth.RequirePermission(auth.PermRead)
			write := auth.RequirePermission(auth.PermWrite)

			vent.GET("/parameters", read, s.listParameters)
			vent.GET("/parameters/:name", read, s.getParameter)
			vent.PUT("/parameters/:name", write, s.putParameter)

			vent.GET("/snapshot", read, s.getSnapshot)
			vent.POST("/snapshot/refresh", write, s.refreshSnapshot)

			vent.GET("/presets", read, s.listPresets)
			vent.POST("/presets/:name/apply", write, s.applyPreset)

			vent.GET("/history/:name", read, s.getHistory)
			vent.GET("/writes", read, s.getWrites)
		}

		// ==================== SYSTEM ====================
		system := v1.Group("/system")
		system.Use(s.authService.AuthMiddleware())
		{
			system.GET("/status", auth.RequirePermission(auth.PermRead), s.getSystemStatus)
			system.POST("/shutdown", auth.RequirePermission(auth.PermWrite), s.shutdown)
			system.GET("/auth-events", auth.RequirePermission(auth.PermWrite), s.getAuthEvents)
		}

		// ==================== WEBSOCKET (auth via first message) ====================
		ws := v1.Group("/ws")
		{
			ws.GET("/live", s.wsLiveConnection)
			ws.GET("/status", s.wsStatus)
		}
	}
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

// Health check (public). The gateway is alive even when the unit is not.
func (s *Server) healthCheck(c *gin.Context) {
	h := s.lm.DeviceManager().Health()

	status := "ok"
	if !h.LastRefresh.IsZero() && !h.Reachable() {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"device":    h,
		"reachable": h.Reachable(),
		"timestamp": time.Now().Unix(),
	})
}
