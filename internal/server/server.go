package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"

	"main/internal/obs"
	"main/internal/schema"
	"main/internal/sink"
	"main/pkg/exception"
)

// Orders is the admission surface the HTTP layer drives.
type Orders interface {
	AddOrder(ctx context.Context, req schema.OrderRequest) (string, error)
}

// Config describes the HTTP server dependencies.
type Config struct {
	Addr    string
	Orders  Orders
	Sink    *sink.Registry
	Metrics *obs.Metrics
}

// Server exposes order submission over HTTP and per-order status streams
// over websocket.
type Server struct {
	addr     string
	router   *gin.Engine
	orders   Orders
	sink     *sink.Registry
	metrics  *obs.Metrics
	started  time.Time
	upgrader websocket.Upgrader
}

// New builds the HTTP server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Orders == nil {
		return nil, errors.New("server requires an order service")
	}
	if cfg.Sink == nil {
		return nil, errors.New("server requires a sink registry")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		addr:    cfg.Addr,
		router:  router,
		orders:  cfg.Orders,
		sink:    cfg.Sink,
		metrics: cfg.Metrics,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	router.GET("/health", s.handleHealth)
	api := router.Group("/api")
	api.POST("/orders/execute", s.handleExecute)
	api.GET("/orders/:orderId/status", s.handleStatusStream)
	api.GET("/metrics", s.handleMetrics)

	return s, nil
}

// Handler exposes the route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until the context ends, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logs.Infof("http server listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		s.sink.Drain()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleExecute(c *gin.Context) {
	var req schema.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed order request"})
		return
	}

	orderID, err := s.orders.AddOrder(c.Request.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, exception.ErrOrderInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, exception.ErrOrderDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, exception.ErrQueueFull), errors.Is(err, exception.ErrQueueClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	default:
		logs.Errorf("order admission failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Order received and queued for execution",
		"orderId": orderID,
		"wsUrl":   "/api/orders/" + orderID + "/status",
	})
}

func (s *Server) handleStatusStream(c *gin.Context) {
	orderID := c.Param("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing order id"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logs.Warnf("websocket upgrade for order %s: %v", orderID, err)
		return
	}

	ch := newWSChannel(conn)
	if err := ch.hello(orderID); err != nil {
		_ = conn.Close()
		return
	}
	s.sink.Register(orderID, ch)

	// Read pump: the client sends nothing meaningful, but reading is the
	// only way to notice it went away.
	go func() {
		defer func() {
			s.sink.Unregister(orderID)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptimeSeconds": int64(time.Since(s.started).Seconds()),
		"observers":     s.sink.Count(),
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	snapshot := s.metrics.Snapshot()
	statuses := make(map[string]uint64, len(snapshot.StatusCounts))
	for status, count := range snapshot.StatusCounts {
		statuses[status.String()] = count
	}
	c.JSON(http.StatusOK, gin.H{
		"statusCounts": statuses,
		"queueDrops":   snapshot.QueueDrops,
		"sinkDrops":    snapshot.SinkDrops,
		"retries":      snapshot.Retries,
		"latency": gin.H{
			"routing":    latencyView(snapshot.RoutingLatency),
			"settlement": latencyView(snapshot.SettlementLatency),
			"execution":  latencyView(snapshot.ExecutionLatency),
		},
	})
}

func latencyView(l obs.LatencySnapshot) gin.H {
	return gin.H{
		"count": l.Count,
		"minMs": l.Min.Milliseconds(),
		"maxMs": l.Max.Milliseconds(),
		"avgMs": l.Avg.Milliseconds(),
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logs.Debugf("http %s %s status=%d dur=%s", method, path, c.Writer.Status(), time.Since(start))
	}
}
