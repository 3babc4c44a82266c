package webui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"runsettings/internal/logging"
	"runsettings/internal/observability"
	"runsettings/internal/session"
	"runsettings/internal/toolpolicy"
	"runsettings/internal/webui/handlers"
	"runsettings/internal/webui/middleware"
)

// ServerConfig - HTTP server settings
type ServerConfig struct {
	Host         string
	Port         int
	EnableCORS   bool
	Debug        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MetricsPath  string
	Version      string
}

// DefaultServerConfig - defaults used when the caller has no config file
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "localhost",
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		MetricsPath:  "/metrics",
		Version:      "dev",
	}
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Registry *session.Registry
	Cookie   ModelCookie
	Policy   *toolpolicy.Policy
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
	Tracer   *observability.TracerProvider
	Logger   logging.Logger
	// SessionTTL sets the session cookie lifetime.
	SessionTTL time.Duration
}

// Server - run-settings HTTP and websocket server
type Server struct {
	registry   *session.Registry
	cookie     ModelCookie
	metrics    *observability.Metrics
	tracer     *observability.TracerProvider
	logger     logging.Logger
	sessionTTL time.Duration

	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader

	config    ServerConfig
	startTime time.Time
}

// NewServer - build the gin engine and routes
func NewServer(deps Deps, config ServerConfig) (*Server, error) {
	if deps.Registry == nil {
		return nil, errors.New("session registry is required")
	}
	if deps.Cookie.Name == "" {
		deps.Cookie.Name = "selected_model"
	}
	if deps.Cookie.MaxAge <= 0 {
		deps.Cookie.MaxAge = 365 * 24 * time.Hour
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = session.DefaultIdleTTL
	}
	logger := logging.OrNop(deps.Logger)

	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.AccessLog(logger, deps.Metrics))

	if config.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Requested-With"}
		corsConfig.AllowWebSockets = true
		engine.Use(cors.New(corsConfig))
	}

	s := &Server{
		registry:   deps.Registry,
		cookie:     deps.Cookie,
		metrics:    deps.Metrics,
		tracer:     deps.Tracer,
		logger:     logger,
		sessionTTL: deps.SessionTTL,
		engine:     engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// SameSite=Strict cookies already bind the session to its origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		config:    config,
		startTime: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      engine,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	s.setupRoutes(handlers.NewSettingsHandler(deps.Policy, deps.Tracer, logger), deps.Gatherer)
	return s, nil
}

func (s *Server) setupRoutes(settingsHandler *handlers.SettingsHandler, gatherer prometheus.Gatherer) {
	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)

	scoped := api.Group("")
	scoped.Use(s.sessionMiddleware())
	scoped.Use(middleware.Tracing(s.tracer))
	scoped.Use(middleware.JSONMiddleware())
	{
		scoped.GET("/models", settingsHandler.ListModels)

		sg := scoped.Group("/settings")
		sg.GET("", settingsHandler.GetSettings)
		sg.PUT("/model", settingsHandler.SelectModel)
		sg.PATCH("/tools", settingsHandler.PatchTools)
		sg.POST("/tools/:name/toggle", settingsHandler.ToggleTool)
		sg.PUT("/effort", settingsHandler.SetEffort)
		sg.POST("/reset", settingsHandler.Reset)
		sg.POST("/tool-choice", settingsHandler.ToolChoice)
		sg.GET("/stream", s.handleStream)
	}

	if s.config.MetricsPath != "" && gatherer != nil {
		s.engine.GET(s.config.MetricsPath, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// sessionMiddleware resolves the caller's session, seeding new sessions from
// the persisted model cookie, and flushes pending selections as Set-Cookie.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookieName)
		sess, created := s.registry.Resolve(id, s.cookie.Read(c.Request))
		if created {
			s.metrics.SessionCreated(s.registry.Len())
			http.SetCookie(c.Writer, sessionCookie(c.Request, sess.ID(), s.sessionTTL))
		}

		handlers.SetSession(c, sess)
		c.Request = c.Request.WithContext(logging.ContextWithSessionID(c.Request.Context(), sess.ID()))

		header := c.Writer.Header()
		flush := func() { s.cookie.FlushPending(header, c.Request, sess) }
		c.Writer = &cookieWriter{ResponseWriter: c.Writer, flush: flush}

		c.Next()

		if !c.Writer.Written() {
			flush()
		}
	}
}

// handleHealth - liveness probe
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: HealthResponse{
			Status:    "ok",
			Version:   s.config.Version,
			Timestamp: time.Now(),
			Uptime:    time.Since(s.startTime).Round(time.Second).String(),
			Sessions:  s.registry.Len(),
		},
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("run-settings server listening on %s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// Start listens on the configured address.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Shutdown stops accepting requests and releases every session, which also
// closes open websocket feeds.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping run-settings server")
	s.registry.Purge()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
