package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InteractionPageSize 交互记录查询返回的最大条数
const InteractionPageSize = 20

// TradeInteraction 用户对交易信号的操作记录（查看、忽略、下单等）
type TradeInteraction struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(64);not null;index:idx_interactions_user_ts" json:"userId"`
	TradeID   string    `gorm:"type:varchar(64);not null;index" json:"tradeId"`
	Action    string    `gorm:"type:varchar(64);not null" json:"action"`
	Timestamp time.Time `gorm:"index:idx_interactions_user_ts" json:"timestamp"`
}

// BeforeCreate 创建前生成UUID并补齐时间戳
func (i *TradeInteraction) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now().UTC()
	}
	return nil
}

// TableName 指定表名
func (TradeInteraction) TableName() string {
	return "trade_interactions"
}
