package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"TradeAssistant/pkg/model"
)

type UserTradeDB struct {
	db *gorm.DB
}

func (s *Store) UserTrade() *UserTradeDB {
	return &UserTradeDB{db: s.db}
}

func (u *UserTradeDB) Save(ctx context.Context, trade *model.UserTrade) error {
	trade.Timestamp = trade.Timestamp.UTC()
	if err := u.db.WithContext(ctx).Create(trade).Error; err != nil {
		return fmt.Errorf("保存成交记录失败: %w", err)
	}
	return nil
}

func (u *UserTradeDB) ListByUser(ctx context.Context, userID string, limit int) ([]model.UserTrade, error) {
	trades := make([]model.UserTrade, 0)
	q := u.db.WithContext(ctx).Where("user_id = ?", userID).Order(byTimestampDesc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("查询用户成交失败: %w", err)
	}
	return trades, nil
}

func (u *UserTradeDB) Closed(ctx context.Context, userID string) ([]model.UserTrade, error) {
	trades := make([]model.UserTrade, 0)
	err := u.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.UserTradeClosed).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("查询已平仓成交失败: %w", err)
	}
	return trades, nil
}
