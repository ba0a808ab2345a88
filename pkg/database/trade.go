// pkg/database/trade.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"TradeAssistant/pkg/model"
	"TradeAssistant/pkg/repository"
)

type TradeDB struct {
	db *gorm.DB
}

func (s *Store) Trade() *TradeDB {
	return &TradeDB{db: s.db}
}

func (t *TradeDB) Save(ctx context.Context, userID string, trade *model.TradeSetup) error {
	if userID == "" {
		return repository.ErrUserIDRequired
	}
	trade.UserID = userID
	if !trade.CreatedAt.IsZero() {
		trade.CreatedAt = trade.CreatedAt.UTC()
	}
	if trade.ValidUntil != nil {
		v := trade.ValidUntil.UTC()
		trade.ValidUntil = &v
	}

	if err := t.db.WithContext(ctx).Create(trade).Error; err != nil {
		return fmt.Errorf("保存交易信号失败: %w", err)
	}
	return nil
}

// applyFilter 查询条件转换为 SQL 谓词的唯一入口
func applyFilter(q *gorm.DB, f model.TradeFilter) *gorm.DB {
	if f.Origin != nil {
		q = q.Where("origin = ?", *f.Origin)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Delivered != nil {
		q = q.Where("delivered = ?", *f.Delivered)
	}
	if f.ValidUntilAfter != nil {
		q = q.Where("valid_until >= ?", f.ValidUntilAfter.UTC())
	}
	return q
}

func (t *TradeDB) List(ctx context.Context, userID string, filter model.TradeFilter) ([]model.TradeSetup, error) {
	trades := make([]model.TradeSetup, 0)
	err := applyFilter(t.db.WithContext(ctx).Where("user_id = ?", userID), filter).
		Order("created_at DESC").
		Limit(model.DefaultPageSize).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("查询交易信号失败: %w", err)
	}
	return trades, nil
}

func (t *TradeDB) GetByID(ctx context.Context, tradeID string) (*model.TradeSetup, error) {
	var trade model.TradeSetup
	err := t.db.WithContext(ctx).First(&trade, "id = ?", tradeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("获取交易信号失败: %w", err)
	}
	return &trade, nil
}

func (t *TradeDB) MarkDelivered(ctx context.Context, tradeID string) (*model.TradeSetup, error) {
	result := t.db.WithContext(ctx).Model(&model.TradeSetup{}).
		Where("id = ?", tradeID).
		Update("delivered", true)
	if result.Error != nil {
		return nil, fmt.Errorf("标记送达失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, repository.ErrNotFound
	}
	return t.GetByID(ctx, tradeID)
}

func (t *TradeDB) MarkAllDelivered(ctx context.Context, userID string) (int64, error) {
	result := t.db.WithContext(ctx).Model(&model.TradeSetup{}).
		Where("user_id = ? AND delivered = ?", userID, false).
		Update("delivered", true)
	if result.Error != nil {
		return 0, fmt.Errorf("批量标记送达失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ExpireOverdue 单条 UPDATE 完成过期迁移
func (t *TradeDB) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := t.db.WithContext(ctx).Model(&model.TradeSetup{}).
		Where("valid_until IS NOT NULL AND valid_until < ? AND status <> ?", now.UTC(), model.StatusExpired).
		Update("status", model.StatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("过期交易信号失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}
