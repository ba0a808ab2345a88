package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TradeDirection 券商成交方向
type TradeDirection string

const (
	DirectionBuy  TradeDirection = "BUY"
	DirectionSell TradeDirection = "SELL"
)

// UserTradeStatus 券商成交状态
type UserTradeStatus string

const (
	UserTradeOpen     UserTradeStatus = "OPEN"
	UserTradeClosed   UserTradeStatus = "CLOSED"
	UserTradeRejected UserTradeStatus = "REJECTED"
)

// UserTrade 从券商平台捕获的真实成交
type UserTrade struct {
	ID         string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     string          `gorm:"type:varchar(36);not null;index:idx_user_trades_user_ts" json:"userId"`
	Symbol     string          `gorm:"type:varchar(32);not null" json:"symbol"`
	EntryPrice float64         `gorm:"not null" json:"entryPrice"`
	ExitPrice  *float64        `json:"exitPrice,omitempty"`
	Quantity   float64         `gorm:"not null" json:"quantity"`
	Direction  TradeDirection  `gorm:"type:varchar(8);not null" json:"direction"`
	Status     UserTradeStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	PnL        *float64        `gorm:"column:pnl" json:"pnl"`
	Timestamp  time.Time       `gorm:"index:idx_user_trades_user_ts" json:"timestamp"`
	Broker     string          `gorm:"type:varchar(64);not null" json:"broker"`
	RawPayload datatypes.JSON  `json:"rawPayload,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// BeforeCreate 创建前生成UUID
func (t *UserTrade) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (UserTrade) TableName() string {
	return "user_trades"
}

// UserTradeStats 用户已平仓成交统计
type UserTradeStats struct {
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	WinRate       float64 `json:"winRate"`
	TotalPnL      float64 `json:"totalPnL"`
	AveragePnL    float64 `json:"averagePnL"`
}
