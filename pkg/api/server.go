package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"TradeAssistant/pkg/config"
	"TradeAssistant/pkg/logger"
)

// Server API服务器
type Server struct {
	router          *gin.Engine
	limiter         gin.HandlerFunc
	srv             *http.Server
	log             *logger.Logger
	shutdownTimeout time.Duration
}

// NewServer 创建API服务器并注册路由
func NewServer(cfg config.APIConfig, handlers *Handlers, log *logger.Logger) *Server {
	router := gin.New()

	// 设置中间件
	router.Use(recovery(log))
	router.Use(requestLogger(log))

	s := &Server{
		router: router,
		srv: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		limiter:         rateLimit(cfg.RateLimit, cfg.RateBurst, log),
		log:             log,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	s.SetupRoutes(handlers)
	return s
}

// SetupRoutes 设置路由
func (s *Server) SetupRoutes(h *Handlers) {
	// 健康检查
	s.router.GET("/health", h.HealthCheck)
	s.router.GET("/ready", h.ReadinessCheck)
	if h.metricsHandler != nil {
		s.router.GET(h.metricsPath, gin.WrapH(h.metricsHandler))
	}

	// 实时推送
	s.router.GET("/ws", gin.WrapF(h.hub.ServeWS))

	api := s.router.Group("/api")
	{
		api.POST("/tv-alert", s.limiter, h.ReceiveAlert)

		setups := api.Group("/trade-setups")
		setups.GET("", h.GetTradeSetups)
		setups.POST("/mark-all-delivered", h.MarkAllDelivered)
		setups.PATCH("/:id", h.MarkDelivered)

		interactions := api.Group("/trade-interactions")
		interactions.POST("", h.LogInteraction)
		interactions.GET("", h.GetInteractions)

		trades := api.Group("/trades")
		trades.POST("/log", s.limiter, h.CaptureTrade)
		trades.GET("/user/:userId", h.GetUserTrades)
		trades.GET("/user/:userId/stats", h.GetUserTradeStats)
	}
}

// Handler 路由处理器，测试中直接使用
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API服务器启动", logger.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("启动服务器失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	// 优雅关闭
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}
	s.log.Info("服务器已关闭")
	return nil
}
