package realtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/colonyops/okr/internal/core/logging"
	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/core/tracker"
	"github.com/colonyops/okr/internal/data/stores"
	"github.com/colonyops/okr/internal/metrics"
	"github.com/colonyops/okr/internal/service"
)

// ServerOptions configures a Server.
type ServerOptions struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server is the HTTP API and websocket endpoint of `okr serve`.
type Server struct {
	app      *service.App
	hub      *Hub
	engine   *gin.Engine
	upgrader websocket.Upgrader
	opts     ServerOptions
	log      zerolog.Logger
	now      func() time.Time

	addr chan net.Addr
}

// NewServer builds the router and registers the hub on the app bus.
func NewServer(app *service.App, opts ServerOptions, log zerolog.Logger) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		app:  app,
		hub:  NewHub(app.Objectives, app.Progress, opts.Metrics, opts.Now, log),
		opts: opts,
		log:  log.With().Str("component", "server").Logger(),
		now:  opts.Now,
		addr: make(chan net.Addr, 1),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.hub.RegisterBus(app.Bus)

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.observe)
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Addr blocks until the listener is bound and returns its address.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case a := <-s.addr:
		s.addr <- a
		return a, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Server) routes() {
	s.engine.GET("/ws", func(c *gin.Context) {
		s.hub.ServeWS(&s.upgrader, c.Writer, c.Request)
	})
	if s.opts.Gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/users", s.handleUsers)
	api.GET("/notifications", s.handleNotifications)
	api.GET("/quarters", s.handleQuarters)

	objectives := api.Group("/objectives")
	{
		objectives.GET("", s.handleListObjectives)
		objectives.POST("", s.handleCreateObjective)
		objectives.GET("/:id", s.handleGetObjective)
	}

	keyResults := api.Group("/key-results")
	{
		keyResults.GET("/:id/periods", s.handlePeriods)
		keyResults.POST("/:id/check-ins", s.handleCheckIn)
		keyResults.POST("/:id/comments", s.handleComment)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	s.addr <- ln.Addr()

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info().Msg("server shutting down")
	err = srv.Shutdown(shutdownCtx)
	s.hub.Close()
	<-errCh
	if err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

// checkOrigin accepts requests without an Origin header. With no allowed
// origins configured the Origin host must equal the request host, otherwise
// it must match one of the configured glob patterns.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	if len(s.opts.AllowedOrigins) == 0 {
		return u.Host == r.Host
	}
	for _, pattern := range s.opts.AllowedOrigins {
		if ok, _ := doublestar.Match(pattern, u.Host); ok {
			return true
		}
	}
	s.log.Warn().Str("origin", origin).Msg("websocket origin rejected")
	return false
}

func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	s.opts.Metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	s.log.Debug().
		Str("method", c.Request.Method).
		Str("route", route).
		Int("status", c.Writer.Status()).
		Dur("elapsed", time.Since(start)).
		Msg("request")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": s.hub.Clients(),
	})
}

func (s *Server) handleUsers(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.Objectives.ListUsers())
}

func (s *Server) handleNotifications(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		s.fail(c, err)
		return
	}
	list, err := s.app.Notifications.List(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleQuarters(c *gin.Context) {
	objectives, err := s.app.Objectives.ListObjectives(service.ObjectiveFilter{IncludeArchived: true})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, okr.Quarters(objectives))
}

func (s *Server) handleListObjectives(c *gin.Context) {
	now, err := s.queryNow(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	views, err := s.app.Progress.Overview(service.ObjectiveFilter{
		Quarter:         c.Query("quarter"),
		Title:           c.Query("title"),
		OwnerID:         c.Query("owner"),
		IncludeArchived: c.Query("archived") == "true",
	}, now)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) handleGetObjective(c *gin.Context) {
	now, err := s.queryNow(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	view, err := s.app.Progress.ObjectiveView(c.Param("id"), now)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleCreateObjective(c *gin.Context) {
	var o okr.Objective
	if err := c.ShouldBindJSON(&o); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", okr.ErrInvalid, err))
		return
	}
	created, err := s.app.Objectives.CreateObjective(c.Request.Context(), o)
	if err != nil {
		s.fail(c, err)
		return
	}
	view, err := s.app.Progress.ObjectiveView(created.ID, s.now())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (s *Server) handlePeriods(c *gin.Context) {
	now, err := s.queryNow(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	page, err := queryInt(c, "page", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.app.Progress.Periods(c.Param("id"), now, page)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", okr.ErrInvalid, err))
		return
	}

	id := c.Param("id")
	ctx := logging.WithKeyResultID(c.Request.Context(), id)
	kr, adopted, err := s.app.Objectives.CheckIn(ctx, id, req.CheckIn())
	if err != nil {
		s.fail(c, err)
		return
	}
	progress, err := s.app.Progress.KeyResultProgress(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"keyResult": kr,
		"adopted":   adopted,
		"progress":  progress,
	})
}

func (s *Server) handleComment(c *gin.Context) {
	var body struct {
		AuthorID string `json:"authorId"`
		Text     string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", okr.ErrInvalid, err))
		return
	}
	comment, err := s.app.Objectives.AddComment(c.Request.Context(), c.Param("id"), okr.Comment{
		AuthorID: body.AuthorID,
		Text:     body.Text,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) queryNow(c *gin.Context) (time.Time, error) {
	raw := c.Query("now")
	if raw == "" {
		return s.now(), nil
	}
	return tracker.ParseDay(raw)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", okr.ErrInvalid, key)
	}
	return n, nil
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, ErrorData{Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, okr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, okr.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, okr.ErrArchived):
		return http.StatusConflict
	case stores.IsBusyError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
