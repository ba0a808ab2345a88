package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"TradeAssistant/pkg/engine"
	"TradeAssistant/pkg/logger"
	"TradeAssistant/pkg/messaging"
	"TradeAssistant/pkg/metrics"
	"TradeAssistant/pkg/model"
	"TradeAssistant/pkg/monitor"
	"TradeAssistant/pkg/repository"
	"TradeAssistant/pkg/service"
)

// Notifier 推送新交易信号
type Notifier interface {
	Notify(trade any, userID string) int
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Handlers API处理程序
type Handlers struct {
	store        repository.TradeStore
	processor    *engine.Processor
	hub          Notifier
	publisher    messaging.Publisher
	trades       *service.TradeService
	monitor      *monitor.Monitor
	metrics      *metrics.Recorder
	log          *logger.Logger
	defaultEmail string
	storeTimeout time.Duration

	metricsHandler http.Handler
	metricsPath    string
}

// Option 处理程序选项
type Option func(*Handlers)

// WithPublisher 新信号发布到消息流
func WithPublisher(p messaging.Publisher) Option {
	return func(h *Handlers) { h.publisher = p }
}

// WithMonitor 就绪检查使用的组件健康状态
func WithMonitor(m *monitor.Monitor) Option {
	return func(h *Handlers) { h.monitor = m }
}

// WithMetrics 指标记录器及其暴露路径，handler 为 nil 时不注册路由
func WithMetrics(m *metrics.Recorder, handler http.Handler, path string) Option {
	return func(h *Handlers) {
		h.metrics = m
		h.metricsHandler = handler
		h.metricsPath = path
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *logger.Logger) Option {
	return func(h *Handlers) { h.log = l }
}

// WithProcessor 替换信号处理器，测试中用于固定时钟
func WithProcessor(p *engine.Processor) Option {
	return func(h *Handlers) { h.processor = p }
}

// WithDefaultUser 单一调用方部署下信号归属的用户邮箱
func WithDefaultUser(email string) Option {
	return func(h *Handlers) {
		if email != "" {
			h.defaultEmail = email
		}
	}
}

// WithStoreTimeout 单次存储调用的超时
func WithStoreTimeout(d time.Duration) Option {
	return func(h *Handlers) {
		if d > 0 {
			h.storeTimeout = d
		}
	}
}

// NewHandlers 创建新的API处理程序
func NewHandlers(store repository.TradeStore, hub Notifier, opts ...Option) *Handlers {
	h := &Handlers{
		store:        store,
		processor:    engine.NewProcessor(),
		hub:          hub,
		publisher:    messaging.NopPublisher{},
		trades:       service.NewTradeService(store),
		log:          logger.Nop(),
		defaultEmail: model.DefaultUserEmail,
		storeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handlers) storeCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.storeTimeout)
}

// HealthCheck 健康检查处理程序
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck 就绪检查处理程序
func (h *Handlers) ReadinessCheck(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	components := h.monitor.GetAllStatus()
	if !h.monitor.IsHealthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "unavailable",
			"components": components,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// ReceiveAlert 接收图表工具推送的信号
func (h *Handlers) ReceiveAlert(c *gin.Context) {
	var alert model.Alert
	if err := c.ShouldBindJSON(&alert); err != nil {
		h.metrics.AlertProcessed(metrics.ResultInvalid)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := engine.ValidateAlert(alert); err != nil {
		h.metrics.AlertProcessed(metrics.ResultInvalid)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	processed, err := h.processor.Process(alert)
	if err != nil {
		h.metrics.AlertProcessed(metrics.ResultInvalid)
		if errors.Is(err, engine.ErrUndefinedRiskReward) {
			c.JSON(http.StatusBadRequest, gin.H{"error": engine.MsgStopEqual})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Processing failed", "details": err.Error()})
		return
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	user, err := h.store.GetOrCreateUser(ctx, h.defaultEmail)
	if err == nil {
		err = h.store.SaveTrade(ctx, user.ID, &processed)
	}
	if err != nil {
		h.metrics.AlertProcessed(metrics.ResultFailed)
		h.log.Error("保存交易信号失败", logger.String("symbol", alert.Symbol), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Processing failed", "details": err.Error()})
		return
	}
	h.metrics.AlertProcessed(metrics.ResultProcessed)

	delivered := h.hub.Notify(&processed, user.ID)
	if err := h.publisher.PublishTrade(ctx, &processed); err != nil {
		h.log.Warn("发布交易信号失败", logger.String("trade_id", processed.ID), logger.Error(err))
	}

	h.log.Info("交易信号已处理",
		logger.String("trade_id", processed.ID),
		logger.String("symbol", processed.Symbol),
		logger.Float("rr", processed.RR),
		logger.Int("confidence", processed.Confidence),
		logger.Int("delivered", delivered),
	)
	c.JSON(http.StatusCreated, gin.H{"success": true, "processed": processed})
}

// parseTradeFilter 把查询参数转换为过滤条件
func parseTradeFilter(c *gin.Context) (model.TradeFilter, error) {
	var f model.TradeFilter
	if v := c.Query("origin"); v != "" {
		f.Origin = &v
	}
	if v := c.Query("status"); v != "" {
		f.Status = &v
	}
	if v, ok := c.GetQuery("delivered"); ok {
		delivered := v == "true"
		f.Delivered = &delivered
	}
	if v := c.Query("validUntil"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		f.ValidUntilAfter = &t
	}
	return f, nil
}

// GetTradeSetups 查询默认用户的交易信号
func (h *Handlers) GetTradeSetups(c *gin.Context) {
	filter, err := parseTradeFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validUntil must be an RFC3339 timestamp"})
		return
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	user, err := h.store.GetOrCreateUser(ctx, h.defaultEmail)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trades", "details": err.Error()})
		return
	}
	trades, err := h.store.GetTrades(ctx, user.ID, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trades", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"userId": user.ID, "trades": trades})
}

// MarkDelivered 标记单条信号已送达
func (h *Handlers) MarkDelivered(c *gin.Context) {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	trade, err := h.store.MarkDelivered(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trade not found", "details": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update trade", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trade)
}

type markAllRequest struct {
	UserID string `json:"userId"`
}

// MarkAllDelivered 批量标记用户信号已送达
func (h *Handlers) MarkAllDelivered(c *gin.Context) {
	var req markAllRequest
	_ = c.ShouldBindJSON(&req)
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing userId"})
		return
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	n, err := h.store.MarkAllDelivered(ctx, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update trades", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}
