package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"TradeAssistant/pkg/logger"
	"TradeAssistant/pkg/metrics"
	"TradeAssistant/pkg/repository"
)

// DefaultExpirySpec 默认每 60 秒扫描一次
const DefaultExpirySpec = "@every 60s"

// Expirer 过期扫描依赖的存储能力
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

var _ Expirer = (repository.TradeStore)(nil)

// Sweeper 定期把过期的交易信号标记为 expired
type Sweeper struct {
	cron    *cron.Cron
	store   Expirer
	spec    string
	timeout time.Duration
	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Recorder
}

// Option 扫描器选项
type Option func(*Sweeper)

// WithSpec cron 表达式，为空时保留默认值
func WithSpec(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.spec = spec
		}
	}
}

// WithTimeout 单次存储调用的超时
func WithTimeout(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock 指定扫描使用的当前时间
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithLogger 设置日志记录器
func WithLogger(l *logger.Logger) Option {
	return func(s *Sweeper) { s.log = l }
}

// WithMetrics 记录过期条数和扫描耗时
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Sweeper) { s.metrics = m }
}

// NewSweeper 创建过期扫描器
func NewSweeper(store Expirer, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:   store,
		spec:    DefaultExpirySpec,
		timeout: 10 * time.Second,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(cron.WithChain(cron.Recover(cronLogger{s.log})))
	return s
}

// Start 启动调度器
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("注册过期扫描任务失败: %w", err)
	}
	s.cron.Start()
	s.log.Info("过期扫描已启动", logger.String("spec", s.spec))
	return nil
}

// Stop 停止调度器并等待正在执行的任务结束
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep 执行一次扫描，返回过期的条数
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.store.ExpireOverdue(ctx, s.now())
	s.metrics.ObserveSweep(time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("过期扫描失败: %w", err)
	}
	s.metrics.TradesExpired(n)
	return n, nil
}

// run 定时任务入口，错误只记录不传播，下个周期无条件重试
func (s *Sweeper) run() {
	n, err := s.Sweep(context.Background())
	if err != nil {
		s.log.Error("过期扫描失败", logger.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("已过期交易信号", logger.Int64("count", n))
	}
}

// cronLogger 把 cron 的日志接到 zerolog
type cronLogger struct {
	log *logger.Logger
}

// Info cron 的普通日志降为 debug
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, logger.Any("details", keysAndValues))
}

// Error 记录任务 panic 等错误
func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, logger.Error(err), logger.Any("details", keysAndValues))
}
