// Package realtime WebSocket 推送：按用户跟踪连接并广播新交易信号
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"TradeAssistant/pkg/logger"
	"TradeAssistant/pkg/metrics"
)

// 消息类型
const (
	TypeWelcome  = "welcome"
	TypeNewTrade = "new-trade"

	WelcomeMessage = "Connected to Trading Assistant WebSocket."
)

const defaultWriteTimeout = 5 * time.Second

// Envelope 服务端推送的消息
type Envelope struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Trade   any    `json:"trade,omitempty"`
}

type bindMessage struct {
	UserID any `json:"userId"`
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // gorilla 连接只允许一个并发写
	userID  string     // 受 Hub.mu 保护
}

func (c *client) send(payload []byte, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub 连接注册表。所有连接的集合与 userId -> 连接集合在同一把锁下修改
type Hub struct {
	mu     sync.RWMutex
	conns  map[*client]struct{}
	users  map[string]map[*client]struct{}
	closed bool

	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	log          *logger.Logger
	metrics      *metrics.Recorder
}

// Option Hub 选项
type Option func(*Hub)

// WithWriteTimeout 单次发送的写超时
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *logger.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// WithMetrics 记录连接数和推送数
func WithMetrics(m *metrics.Recorder) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithCheckOrigin 默认允许任意来源
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

// NewHub 创建 Hub，进程内只需要一个实例，由调用方传给 HTTP 层
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		conns:        make(map[*client]struct{}),
		users:        make(map[string]map[*client]struct{}),
		writeTimeout: defaultWriteTimeout,
		log:          logger.Nop(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeWS 升级连接并阻塞处理客户端消息，直到连接关闭
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket 升级失败", logger.Error(err))
		return
	}

	c := &client{conn: conn}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	defer h.unregister(c)

	welcome, _ := json.Marshal(Envelope{Type: TypeWelcome, Message: WelcomeMessage})
	if err := c.send(welcome, h.writeTimeout); err != nil {
		h.log.Warn("发送欢迎消息失败", logger.Error(err))
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg bindMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		userID, ok := msg.UserID.(string)
		if !ok || userID == "" {
			continue
		}
		h.bind(c, userID)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()

	h.metrics.SetConnections(n)
	h.log.Debug("WebSocket 客户端已连接", logger.Int("connections", n))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		h.detach(c)
	}
	n := len(h.conns)
	h.mu.Unlock()

	_ = c.conn.Close()
	h.metrics.SetConnections(n)
	h.log.Debug("WebSocket 客户端已断开", logger.Int("connections", n))
}

// bind 把连接绑定到用户，重复绑定以最后一次为准
func (h *Hub) bind(c *client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; !ok || c.userID == userID {
		return
	}
	h.detach(c)

	set, ok := h.users[userID]
	if !ok {
		set = make(map[*client]struct{})
		h.users[userID] = set
	}
	set[c] = struct{}{}
	c.userID = userID
	h.log.Debug("WebSocket 连接已绑定用户", logger.String("user_id", userID))
}

// detach 从当前用户集合移除连接，集合为空时删除该用户，调用方持有写锁
func (h *Hub) detach(c *client) {
	if c.userID == "" {
		return
	}
	if set, ok := h.users[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.userID)
		}
	}
	c.userID = ""
}

// Notify 推送新交易信号。userID 有已绑定连接时只发给该用户，否则广播给所有连接。
// 尽力而为，发送失败的连接直接跳过。返回成功送达的连接数
func (h *Hub) Notify(trade any, userID string) int {
	payload, err := json.Marshal(Envelope{Type: TypeNewTrade, Trade: trade})
	if err != nil {
		h.log.Error("序列化推送消息失败", logger.Error(err))
		return 0
	}

	h.mu.RLock()
	var targets []*client
	if set, ok := h.users[userID]; ok && userID != "" && len(set) > 0 {
		targets = make([]*client, 0, len(set))
		for c := range set {
			targets = append(targets, c)
		}
	} else {
		targets = make([]*client, 0, len(h.conns))
		for c := range h.conns {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if err := c.send(payload, h.writeTimeout); err != nil {
			// 关闭后读循环退出并完成清理
			_ = c.conn.Close()
			continue
		}
		delivered++
	}

	h.metrics.NotificationsDelivered(delivered)
	return delivered
}

// ConnectionCount 当前打开的连接数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// UserCount 有绑定连接的用户数
func (h *Hub) UserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users)
}

// UserConnections 绑定到该用户的连接数
func (h *Hub) UserConnections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Close 关闭所有连接，之后的新连接会被拒绝
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.conns))
	for c := range h.conns {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	}
}
