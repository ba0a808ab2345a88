// Package metrics Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 信号处理结果标签
const (
	ResultProcessed = "processed"
	ResultInvalid   = "invalid"
	ResultFailed    = "failed"
)

// Recorder 指标记录器。nil 接收者上的调用均为空操作
type Recorder struct {
	alertsProcessed *prometheus.CounterVec
	notifications   prometheus.Counter
	connections     prometheus.Gauge
	tradesExpired   prometheus.Counter
	sweepDuration   prometheus.Histogram
}

// New 在给定注册表上创建指标
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		alertsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trade_assistant_alerts_total",
				Help: "Total number of inbound alerts by result",
			},
			[]string{"result"},
		),
		notifications: f.NewCounter(prometheus.CounterOpts{
			Name: "trade_assistant_notifications_delivered_total",
			Help: "Total number of websocket messages delivered",
		}),
		connections: f.NewGauge(prometheus.GaugeOpts{
			Name: "trade_assistant_ws_connections",
			Help: "Number of open websocket connections",
		}),
		tradesExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "trade_assistant_trades_expired_total",
			Help: "Total number of trade setups transitioned to expired",
		}),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trade_assistant_expiry_sweep_duration_seconds",
			Help:    "Duration of expiry sweeps in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// AlertProcessed 记录一条信号的处理结果
func (r *Recorder) AlertProcessed(result string) {
	if r == nil {
		return
	}
	r.alertsProcessed.WithLabelValues(result).Inc()
}

// NotificationsDelivered 记录推送成功的消息数
func (r *Recorder) NotificationsDelivered(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.notifications.Add(float64(n))
}

// SetConnections 更新当前连接数
func (r *Recorder) SetConnections(n int) {
	if r == nil {
		return
	}
	r.connections.Set(float64(n))
}

// TradesExpired 记录过期的信号数
func (r *Recorder) TradesExpired(n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.tradesExpired.Add(float64(n))
}

// ObserveSweep 记录一次过期扫描耗时
func (r *Recorder) ObserveSweep(d time.Duration) {
	if r == nil {
		return
	}
	r.sweepDuration.Observe(d.Seconds())
}
