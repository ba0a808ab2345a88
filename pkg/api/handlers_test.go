package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"TradeAssistant/pkg/config"
	"TradeAssistant/pkg/logger"
	"TradeAssistant/pkg/metrics"
	"TradeAssistant/pkg/model"
	"TradeAssistant/pkg/monitor"
	"TradeAssistant/pkg/realtime"
	"TradeAssistant/pkg/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const validAlert = `{"symbol":"BTCUSD","side":"long","entry":30000,"stop":29500,"target":31000,"type":"breakout","origin":"BreakoutStrategy"}`

type testEnv struct {
	store *repository.MemoryStore
	hub   *realtime.Hub
	srv   *Server
}

func newTestEnv(t *testing.T, store repository.TradeStore, opts ...Option) *testEnv {
	t.Helper()
	mem, _ := store.(*repository.MemoryStore)
	hub := realtime.NewHub()
	t.Cleanup(hub.Close)

	h := NewHandlers(store, hub, opts...)
	return &testEnv{
		store: mem,
		hub:   hub,
		srv:   NewServer(config.Default().API, h, logger.Nop()),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("解析响应失败: %v, body=%s", err, w.Body.String())
		}
	}
	return w, out
}

func TestReceiveAlert(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryStore())

	w, body := env.do(t, http.MethodPost, "/api/tv-alert", validAlert)
	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d: %s", w.Code, w.Body.String())
	}
	if body["success"] != true {
		t.Fatalf("期望 success=true: %v", body)
	}
	processed := body["processed"].(map[string]any)
	if processed["rr"].(float64) != 2 || processed["trailingStop"].(float64) != 30500 {
		t.Fatalf("处理结果错误: %v", processed)
	}
	if processed["confidence"].(float64) != 90 || processed["status"] != model.StatusActive {
		t.Fatalf("处理结果错误: %v", processed)
	}
	if env.store.Count() != 1 {
		t.Fatalf("期望保存 1 条，实际 %d", env.store.Count())
	}
}

func TestReceiveAlertMissingTargetWritesNothing(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryStore())
	before := env.store.Count()

	w, body := env.do(t, http.MethodPost, "/api/tv-alert",
		`{"symbol":"BTCUSD","side":"long","entry":30000,"stop":29500,"type":"breakout"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("期望 400，实际 %d", w.Code)
	}
	if body["error"] != "Missing required fields" {
		t.Fatalf("错误信息不符: %v", body)
	}
	if env.store.Count() != before {
		t.Fatalf("校验失败不应写入，记录数 %d -> %d", before, env.store.Count())
	}
}

func TestReceiveAlertValidation(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryStore())

	cases := []struct {
		body string
		want string
	}{
		{`{"symbol":"BTCUSD","side":"up","entry":1,"stop":0.5,"target":2,"type":"x"}`, "side must be long or short"},
		{`{"symbol":"BTCUSD","side":"long","entry":-1,"stop":0.5,"target":2,"type":"x"}`, "entry must be a positive number"},
		{`{"symbol":"BTCUSD","side":"long","entry":1,"stop":1,"target":2,"type":"x"}`, "stop must differ from entry"},
		{`not json`, "Invalid request body"},
	}
	for _, c := range cases {
		w, body := env.do(t, http.MethodPost, "/api/tv-alert", c.body)
		if w.Code != http.StatusBadRequest || body["error"] != c.want {
			t.Errorf("%s: 期望 400 %q，实际 %d %v", c.body, c.want, w.Code, body)
		}
	}
	if env.store.Count() != 0 {
		t.Fatalf("不应写入记录，实际 %d", env.store.Count())
	}
}

type failingStore struct {
	*repository.MemoryStore
}

func (f failingStore) SaveTrade(ctx context.Context, userID string, trade *model.TradeSetup) error {
	return errors.New("disk full")
}

func TestReceiveAlertStoreFailure(t *testing.T) {
	env := newTestEnv(t, failingStore{repository.NewMemoryStore()})

	w, body := env.do(t, http.MethodPost, "/api/tv-alert", validAlert)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("期望 500，实际 %d", w.Code)
	}
	if body["error"] != "Processing failed" || body["details"] != "disk full" {
		t.Fatalf("错误信息不符: %v", body)
	}
}

func TestReceiveAlertNotifiesWebSocket(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryStore())
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("连接 WebSocket 失败: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var welcome map[string]any
	if err := conn.ReadJSON(&welcome); err != nil || welcome["type"] != realtime.TypeWelcome {
		t.Fatalf("期望欢迎消息: %v, %v", welcome, err)
	}

	resp, err := http.Post(ts.URL+"/api/tv-alert", "application/json", bytes.NewBufferString(validAlert))
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d", resp.StatusCode)
	}

	var msg struct {
		Type  string           `json:"type"`
		Trade model.TradeSetup `json:"trade"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("读取推送失败: %v", err)
	}
	if msg.Type != realtime.TypeNewTrade || msg.Trade.Symbol != "BTCUSD" || msg.Trade.ID == "" {
		t.Fatalf("推送内容错误: %+v", msg)
	}
}

func TestGetTradeSetups(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryStore())
	env.do(t, http.MethodPost, "/api/tv-alert", validAlert)
	env.do(t, http.MethodPost, "/api/tv-alert",
		`{"symbol":"ETHUSD","side":"short","entry":2000,"stop":2100,"target":1800,"type":"reversal","origin":"Other","validUntil":"2030-01-01T00:00:00Z"}`)

	w, body := env.do(t, http.MethodGet, "/api/trade-setups", "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if body["userId"] == "" || len(body["trades"].([]any)) != 2 {
		t.Fatalf("响应错误: %v", body)
	}
	first := body["trades"].([]any)[0].(map[string]any)
	if first["symbol"] != "ETHUSD" {
		t.Fatalf("期望最新的在前，实际 %v", first["symbol"])
	}

	_, body = env.do(t, http.MethodGet, "/api/trade-setups?origin=BreakoutStrategy", "")
	if n := len(body["trades"].([]any)); n != 1 {
		t.Fatalf("origin 过滤期望 1 条，实际 %d", n)
	}
	_, body = env.do(t, http.MethodGet, "/api/trade-setups?validUntil=2029-01-01T00:00:00Z&delivered=false", "")
	if n := len(body["trades"].([]any)); n != 1 {
		t.Fatalf("validUntil 过滤期望 1 条，实际 %d", n)
	}
	_, body = env.do(t, http.MethodGet, "/api/trade-setups?delivered=true", "")
	if n := len(body["trades"].([]any)); n != 0 {
		t.Fatalf("delivered=true 期望 0 条，实际 %d", n)
	}

	w, _ = env.do(t, http.MethodGet, "/api/trade-setups?validUntil=tomorrow", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("无效 validUntil 期望 400，实际 %d", w.Code)
	}
}

func TestMarkDelivered(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryStore())
	_, body := env.do(t, http.MethodPost, "/api/tv-alert", validAlert)
	id := body["processed"].(map[string]any)["id"].(string)
	env.do(t, http.MethodPost, "/api/tv-alert", validAlert)

	w, body := env.do(t, http.MethodPatch, "/api/trade-setups/"+id, "")
	if w.Code != http.StatusOK || body["delivered"] != true {
		t.Fatalf("标记送达失败: %d %v", w.Code, body)
	}

	w, body = env.do(t, http.MethodPatch, "/api/trade-setups/missing", "")
	if w.Code != http.StatusNotFound || body["error"] != "Trade not found" {
		t.Fatalf("期望 404: %d %v", w.Code, body)
	}

	w, body = env.do(t, http.MethodPost, "/api/trade-setups/mark-all-delivered", `{}`)
	if w.Code != http.StatusBadRequest || body["error"] != "Missing userId" {
		t.Fatalf("期望 400: %d %v", w.Code, body)
	}

	user, _ := env.store.GetOrCreateUser(context.Background(), model.DefaultUserEmail)
	w, body = env.do(t, http.MethodPost, "/api/trade-setups/mark-all-delivered", `{"userId":"`+user.ID+`"}`)
	if w.Code != http.StatusOK || body["updated"].(float64) != 1 {
		t.Fatalf("批量标记期望更新 1 条: %d %v", w.Code, body)
	}
}

func TestInteractions(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryStore())

	w, body := env.do(t, http.MethodPost, "/api/trade-interactions", `{"userId":"demo","tradeId":"t1"}`)
	if w.Code != http.StatusBadRequest || body["error"] != "Missing required fields" {
		t.Fatalf("期望 400: %d %v", w.Code, body)
	}

	w, body = env.do(t, http.MethodPost, "/api/trade-interactions", `{"userId":"demo","tradeId":"t1","action":"viewed"}`)
	if w.Code != http.StatusCreated || body["success"] != true {
		t.Fatalf("期望 201: %d %v", w.Code, body)
	}
	interaction := body["interaction"].(map[string]any)
	if interaction["id"] == "" || interaction["action"] != "viewed" {
		t.Fatalf("交互记录错误: %v", interaction)
	}

	w, body = env.do(t, http.MethodGet, "/api/trade-interactions", "")
	if w.Code != http.StatusBadRequest || body["error"] != "Missing userId" {
		t.Fatalf("期望 400: %d %v", w.Code, body)
	}

	w, body = env.do(t, http.MethodGet, "/api/trade-interactions?userId=demo", "")
	if w.Code != http.StatusOK || len(body["interactions"].([]any)) != 1 {
		t.Fatalf("查询交互记录失败: %d %v", w.Code, body)
	}
}

func TestCaptureTrade(t *testing.T) {
	env := newTestEnv(t, repository.NewMemoryStore())
	user, _ := env.store.GetOrCreateUser(context.Background(), "trader@example.com")

	payload := func(extra string) string {
		return `{"userId":"` + user.ID + `","symbol":"AAPL","quantity":10,"direction":"BUY",` +
			`"status":"CLOSED","timestamp":"2025-07-01T10:00:00Z","broker":"alpaca",` + extra + `}`
	}

	w, body := env.do(t, http.MethodPost, "/api/trades/log", `{"symbol":"AAPL"}`)
	if w.Code != http.StatusBadRequest || body["success"] != false || body["error"] != "Missing required fields" {
		t.Fatalf("期望缺少字段: %d %v", w.Code, body)
	}

	w, body = env.do(t, http.MethodPost, "/api/trades/log", payload(`"entryPrice":-150`))
	if w.Code != http.StatusBadRequest || !strings.Contains(body["error"].(string), "entryPrice must be a positive number") {
		t.Fatalf("期望 entryPrice 校验错误: %d %v", w.Code, body)
	}

	w, body = env.do(t, http.MethodPost, "/api/trades/log",
		strings.Replace(payload(`"entryPrice":150`), user.ID, "nobody", 1))
	if w.Code != http.StatusBadRequest || body["error"] != "User not found" {
		t.Fatalf("期望 User not found: %d %v", w.Code, body)
	}

	w, body = env.do(t, http.MethodPost, "/api/trades/log", payload(`"entryPrice":150,"exitPrice":155,"rawPayload":{"id":1}`))
	if w.Code != http.StatusOK || body["message"] != "Trade captured successfully" {
		t.Fatalf("期望捕获成功: %d %v", w.Code, body)
	}
	if pnl := body["trade"].(map[string]any)["pnl"].(float64); pnl != 50 {
		t.Fatalf("pnl 期望 50，实际 %v", pnl)
	}

	w, body = env.do(t, http.MethodGet, "/api/trades/user/"+user.ID+"?limit=abc", "")
	if w.Code != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("查询成交失败: %d %v", w.Code, body)
	}

	w, body = env.do(t, http.MethodGet, "/api/trades/user/"+user.ID+"/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("查询统计失败: %d", w.Code)
	}
	stats := body["stats"].(map[string]any)
	if stats["totalTrades"].(float64) != 1 || stats["winRate"].(float64) != 100 {
		t.Fatalf("统计错误: %v", stats)
	}
}

func TestHealthAndReady(t *testing.T) {
	mon := monitor.NewMonitor(nil)
	mon.RegisterComponent("database", func(ctx context.Context) error { return errors.New("down") })
	mon.CheckAll(context.Background())
	env := newTestEnv(t, repository.NewMemoryStore(), WithMonitor(mon))

	w, body := env.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("健康检查失败: %d %v", w.Code, body)
	}

	w, _ = env.do(t, http.MethodGet, "/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("存在不健康组件时期望 503，实际 %d", w.Code)
	}

	mon.UpdateStatus("database", monitor.StatusHealthy, "")
	w, _ = env.do(t, http.MethodGet, "/ready", "")
	if w.Code != http.StatusOK {
		t.Fatalf("全部健康时期望 200，实际 %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	env := newTestEnv(t, repository.NewMemoryStore(),
		WithMetrics(rec, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), "/metrics"))

	env.do(t, http.MethodPost, "/api/tv-alert", validAlert)
	env.do(t, http.MethodPost, "/api/tv-alert", `{"symbol":"BTCUSD"}`)

	w, _ := env.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	out := w.Body.String()
	for _, want := range []string{
		`trade_assistant_alerts_total{result="processed"} 1`,
		`trade_assistant_alerts_total{result="invalid"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("指标输出缺少 %s", want)
		}
	}
}
