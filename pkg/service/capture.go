// Package service 券商成交捕获
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"TradeAssistant/pkg/model"
	"TradeAssistant/pkg/repository"
	"TradeAssistant/pkg/validation"
)

// DefaultTradeLimit 查询用户成交的默认条数
const DefaultTradeLimit = 50

// MsgUserNotFound 用户不存在
const MsgUserNotFound = "User not found"

// CapturePayload 券商推送的成交
type CapturePayload struct {
	UserID     string          `json:"userId"`
	Symbol     string          `json:"symbol"`
	EntryPrice float64         `json:"entryPrice"`
	ExitPrice  *float64        `json:"exitPrice,omitempty"`
	Quantity   float64         `json:"quantity"`
	Direction  string          `json:"direction"`
	Status     string          `json:"status"`
	Timestamp  string          `json:"timestamp"`
	Broker     string          `json:"broker"`
	RawPayload json.RawMessage `json:"rawPayload,omitempty"`
}

// HasRequired 必填字段是否都存在（零值视为缺失）
func (p CapturePayload) HasRequired() bool {
	return p.UserID != "" && p.Symbol != "" && p.EntryPrice != 0 && p.Quantity != 0 &&
		p.Direction != "" && p.Status != "" && p.Timestamp != "" && p.Broker != ""
}

// ValidationError 捕获请求不合法，Message 为第一条失败原因
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Store 成交捕获依赖的存储能力
type Store interface {
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	SaveUserTrade(ctx context.Context, trade *model.UserTrade) error
	GetUserTrades(ctx context.Context, userID string, limit int) ([]model.UserTrade, error)
	GetClosedUserTrades(ctx context.Context, userID string) ([]model.UserTrade, error)
}

// TradeService 成交捕获服务
type TradeService struct {
	store Store
}

func NewTradeService(store Store) *TradeService {
	return &TradeService{store: store}
}

// Validate 按固定顺序校验，返回第一条失败原因
func Validate(p CapturePayload) string {
	return validation.First(
		validation.Tag(p.UserID, "required", "userId is required"),
		validation.Tag(p.Symbol, "required", "symbol is required"),
		validation.Tag(p.EntryPrice, "gt=0", "entryPrice must be a positive number"),
		validation.When(p.ExitPrice != nil,
			validation.Check(func() bool { return *p.ExitPrice > 0 }, "exitPrice must be a positive number")),
		validation.Tag(p.Quantity, "gt=0", "quantity must be a positive number"),
		validation.Tag(p.Direction, "oneof=BUY SELL", "direction must be BUY or SELL"),
		validation.Tag(p.Status, "oneof=OPEN CLOSED REJECTED", "status must be OPEN, CLOSED, or REJECTED"),
		validation.Tag(p.Timestamp, "required", "timestamp is required"),
		validation.Tag(p.Broker, "required", "broker is required"),
		validation.Check(func() bool {
			_, err := time.Parse(time.RFC3339, p.Timestamp)
			return err == nil
		}, "timestamp must be an RFC3339 time"),
	)
}

// CalculatePnL 已平仓且有平仓价时计算盈亏，否则返回 nil
func CalculatePnL(p CapturePayload) *float64 {
	if p.Status != string(model.UserTradeClosed) || p.ExitPrice == nil || *p.ExitPrice == 0 {
		return nil
	}
	multiplier := 1.0
	if p.Direction != string(model.DirectionBuy) {
		multiplier = -1
	}
	pnl := (*p.ExitPrice - p.EntryPrice) * multiplier * p.Quantity
	return &pnl
}

// Capture 校验并保存一笔成交
func (s *TradeService) Capture(ctx context.Context, p CapturePayload) (*model.UserTrade, error) {
	if msg := Validate(p); msg != "" {
		return nil, &ValidationError{Message: msg}
	}

	if _, err := s.store.GetUserByID(ctx, p.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ValidationError{Message: MsgUserNotFound}
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	ts, _ := time.Parse(time.RFC3339, p.Timestamp)
	trade := &model.UserTrade{
		UserID:     p.UserID,
		Symbol:     p.Symbol,
		EntryPrice: p.EntryPrice,
		ExitPrice:  p.ExitPrice,
		Quantity:   p.Quantity,
		Direction:  model.TradeDirection(p.Direction),
		Status:     model.UserTradeStatus(p.Status),
		PnL:        CalculatePnL(p),
		Timestamp:  ts.UTC(),
		Broker:     p.Broker,
	}
	if len(p.RawPayload) > 0 {
		trade.RawPayload = datatypes.JSON(p.RawPayload)
	}

	if err := s.store.SaveUserTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("保存成交失败: %w", err)
	}
	return trade, nil
}

// UserTrades 用户最近的成交，limit <= 0 时使用默认值
func (s *TradeService) UserTrades(ctx context.Context, userID string, limit int) ([]model.UserTrade, error) {
	if limit <= 0 {
		limit = DefaultTradeLimit
	}
	trades, err := s.store.GetUserTrades(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("查询用户成交失败: %w", err)
	}
	return trades, nil
}

// Stats 已平仓成交统计，盈亏为 0 的成交计入亏损
func (s *TradeService) Stats(ctx context.Context, userID string) (model.UserTradeStats, error) {
	trades, err := s.store.GetClosedUserTrades(ctx, userID)
	if err != nil {
		return model.UserTradeStats{}, fmt.Errorf("查询已平仓成交失败: %w", err)
	}

	var stats model.UserTradeStats
	stats.TotalTrades = len(trades)
	for _, t := range trades {
		var pnl float64
		if t.PnL != nil {
			pnl = *t.PnL
		}
		if pnl > 0 {
			stats.WinningTrades++
		}
		stats.TotalPnL += pnl
	}
	stats.LosingTrades = stats.TotalTrades - stats.WinningTrades
	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
		stats.AveragePnL = stats.TotalPnL / float64(stats.TotalTrades)
	}
	return stats, nil
}
