package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"TradeAssistant/pkg/model"
)

type InteractionDB struct {
	db *gorm.DB
}

func (s *Store) Interaction() *InteractionDB {
	return &InteractionDB{db: s.db}
}

func (i *InteractionDB) Save(ctx context.Context, interaction *model.TradeInteraction) error {
	interaction.Timestamp = interaction.Timestamp.UTC()
	if err := i.db.WithContext(ctx).Create(interaction).Error; err != nil {
		return fmt.Errorf("保存交互记录失败: %w", err)
	}
	return nil
}

func (i *InteractionDB) Recent(ctx context.Context, userID string) ([]model.TradeInteraction, error) {
	interactions := make([]model.TradeInteraction, 0)
	err := i.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(byTimestampDesc).
		Limit(model.InteractionPageSize).
		Find(&interactions).Error
	if err != nil {
		return nil, fmt.Errorf("查询交互记录失败: %w", err)
	}
	return interactions, nil
}

// timestamp 在部分数据库中是关键字，需要转义
var byTimestampDesc = clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}
