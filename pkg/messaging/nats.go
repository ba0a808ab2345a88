// pkg/messaging/nats.go
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"TradeAssistant/pkg/config"
	"TradeAssistant/pkg/logger"
	"TradeAssistant/pkg/model"
)

// Publisher 交易信号发布
type Publisher interface {
	PublishTrade(ctx context.Context, trade *model.TradeSetup) error
	Close() error
}

// TradeEvent 发布到消息流的信号事件
type TradeEvent struct {
	Type  string            `json:"type"`
	Trade *model.TradeSetup `json:"trade"`
}

// NATSClient NATS JetStream客户端
type NATSClient struct {
	conn      *nats.Conn
	jetStream jetstream.JetStream
	cfg       config.NATSConfig
	log       *logger.Logger
}

// NewNATSClient 连接 NATS 并确保交易信号 Stream 存在
func NewNATSClient(ctx context.Context, cfg config.NATSConfig, log *logger.Logger) (*NATSClient, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("trade-assistant"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // 无限重连
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS连接断开", logger.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS重新连接成功")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("连接NATS失败: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("创建JetStream失败: %w", err)
	}

	client := &NATSClient{
		conn:      nc,
		jetStream: js,
		cfg:       cfg,
		log:       log,
	}

	if err := client.setupStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	return client, nil
}

// StreamConfig 交易信号 Stream 配置
func StreamConfig(cfg config.NATSConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        cfg.Stream,
		Subjects:    []string{subjectWildcard(cfg.Subject)},
		Description: "交易信号数据流",
		Retention:   jetstream.LimitsPolicy,
		MaxMsgs:     50000,
		MaxBytes:    50 * 1024 * 1024,   // 50MB
		MaxAge:      7 * 24 * time.Hour, // 保留7天
	}
}

// subjectWildcard trades.new -> trades.*
func subjectWildcard(subject string) string {
	if i := strings.LastIndex(subject, "."); i >= 0 {
		return subject[:i] + ".*"
	}
	return subject
}

func (c *NATSClient) setupStream(ctx context.Context) error {
	sc := StreamConfig(c.cfg)
	if _, err := c.jetStream.CreateOrUpdateStream(ctx, sc); err != nil {
		return fmt.Errorf("创建/更新Stream %s 失败: %w", sc.Name, err)
	}
	c.log.Info("Stream 设置成功", logger.String("stream", sc.Name))
	return nil
}

// Publish 发布消息到指定主题
func (c *NATSClient) Publish(ctx context.Context, subject string, data any) error {
	payload, err := encode(data)
	if err != nil {
		return err
	}

	if _, err := c.jetStream.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("发布消息到 %s 失败: %w", subject, err)
	}

	c.log.Debug("发布消息", logger.String("subject", subject), logger.Int("bytes", len(payload)))
	return nil
}

// PublishTrade 发布新交易信号
func (c *NATSClient) PublishTrade(ctx context.Context, trade *model.TradeSetup) error {
	return c.Publish(ctx, c.cfg.Subject, TradeEvent{Type: "new-trade", Trade: trade})
}

// Close 关闭连接
func (c *NATSClient) Close() error {
	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			c.conn.Close()
		}
	}
	c.log.Info("NATS连接已关闭")
	return nil
}

// IsConnected 检查连接状态
func (c *NATSClient) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Check 健康检查
func (c *NATSClient) Check(ctx context.Context) error {
	if c.conn == nil {
		return errors.New("NATS未连接")
	}
	if !c.conn.IsConnected() {
		return fmt.Errorf("NATS未连接: %s", c.conn.Status())
	}
	return nil
}

func encode(data any) ([]byte, error) {
	switch v := data.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("序列化数据失败: %w", err)
		}
		return payload, nil
	}
}

// NopPublisher 未配置 NATS 时使用
type NopPublisher struct{}

func (NopPublisher) PublishTrade(context.Context, *model.TradeSetup) error { return nil }
func (NopPublisher) Close() error                                          { return nil }

var (
	_ Publisher = (*NATSClient)(nil)
	_ Publisher = NopPublisher{}
)
