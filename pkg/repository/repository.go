package repository

import (
	"context"
	"errors"
	"time"

	"TradeAssistant/pkg/model"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrUserIDRequired 缺少用户ID
	ErrUserIDRequired = errors.New("缺少用户ID")
)

// TradeStore 交易信号存储契约
type TradeStore interface {
	// GetOrCreateUser 按邮箱获取用户，不存在时创建。并发首次调用总是得到同一个用户
	GetOrCreateUser(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, userID string) (*model.User, error)

	// SaveTrade 保存交易信号并分配ID
	SaveTrade(ctx context.Context, userID string, trade *model.TradeSetup) error
	// GetTrades 按 createdAt 倒序返回，最多 model.DefaultPageSize 条
	GetTrades(ctx context.Context, userID string, filter model.TradeFilter) ([]model.TradeSetup, error)
	MarkDelivered(ctx context.Context, tradeID string) (*model.TradeSetup, error)
	MarkAllDelivered(ctx context.Context, userID string) (int64, error)
	// ExpireOverdue 把 validUntil < now 且未过期的信号批量标记为 expired，返回影响条数
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	LogInteraction(ctx context.Context, interaction *model.TradeInteraction) error
	// GetInteractions 返回最近 model.InteractionPageSize 条，按时间倒序
	GetInteractions(ctx context.Context, userID string) ([]model.TradeInteraction, error)

	SaveUserTrade(ctx context.Context, trade *model.UserTrade) error
	GetUserTrades(ctx context.Context, userID string, limit int) ([]model.UserTrade, error)
	GetClosedUserTrades(ctx context.Context, userID string) ([]model.UserTrade, error)

	Ping(ctx context.Context) error
	Close() error
}
