package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mentionscope/internal/api/v1"
	"mentionscope/internal/config"
	"mentionscope/internal/logging"
	"mentionscope/internal/metrics"
	"mentionscope/internal/service/session"
	"mentionscope/internal/store"
)

// Server HTTP服务器
type Server struct {
	router  *gin.Engine
	store   *store.Store
	session *session.Manager
	log     *zap.Logger
	http    *http.Server
}

// NewServer 创建服务器：打开数据库、加载工作集、注册路由
func NewServer(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Server, error) {
	log = logging.OrNop(log)
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store
	if _, err := config.EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	sqliteStore, err := store.New(config.GetDBPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sess := session.NewManager(sqliteStore, session.Options{
		Total:         cfg.Allocation.Total,
		AutosaveDelay: time.Duration(cfg.Allocation.AutosaveDelayMS) * time.Millisecond,
		Logger:        log.Named("session"),
		Metrics:       metrics.New(reg),
	})
	if _, err := sess.Load(ctx); err != nil {
		_ = sqliteStore.Close()
		return nil, fmt.Errorf("load working set: %w", err)
	}

	s := &Server{
		router:  gin.New(),
		store:   sqliteStore,
		session: sess,
		log:     log,
	}
	s.setupRoutes(v1.NewHandler(sqliteStore, sess, log.Named("api")), reg)
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(h *v1.Handler, reg *prometheus.Registry) {
	s.router.Use(gin.Recovery(), s.requestLogger())

	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	api := s.router.Group("/api")
	{
		h.RegisterRoutes(api)
	}

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Handler 返回 HTTP 处理器（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 监听 addr 并启动服务器，阻塞直到 Shutdown
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 在已有监听上提供服务；Shutdown 之后调用会立即返回
func (s *Server) Serve(ln net.Listener) error {
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 停止接收请求，保存未提交的分配并关闭数据库
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.SaveNow(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// SaveNow 立即持久化未保存的分配
func (s *Server) SaveNow(ctx context.Context) error {
	return s.session.Close(ctx)
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
