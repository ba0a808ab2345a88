// pkg/model/trade.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ConfidenceFactors 置信度明细，因子名 -> 带符号的加分标签（如 "+30"）
type ConfidenceFactors = datatypes.JSONType[map[string]string]

// TradeSetup 经过处理的交易信号
type TradeSetup struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id,omitempty"`
	UserID     string     `gorm:"type:varchar(36);not null;index:idx_trades_user_created" json:"userId,omitempty"`
	Symbol     string     `gorm:"type:varchar(32);not null;index" json:"symbol"`
	Side       Side       `gorm:"type:varchar(8);not null" json:"side"`
	Entry      float64    `gorm:"not null" json:"entry"`
	Stop       float64    `gorm:"not null" json:"stop"`
	Target     float64    `gorm:"not null" json:"target"`
	Type       string     `gorm:"type:varchar(64);not null" json:"type"`
	Origin     string     `gorm:"type:varchar(128);index" json:"origin,omitempty"`
	ValidUntil *time.Time `gorm:"index" json:"validUntil,omitempty"`

	RR                float64           `gorm:"not null" json:"rr"`
	TrailingStop      float64           `json:"trailingStop"`
	Confidence        int               `gorm:"not null" json:"confidence"`
	ConfidenceFactors ConfidenceFactors `json:"confidenceFactors"`

	Status    string    `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	Delivered bool      `gorm:"not null;default:false;index" json:"delivered"`
	CreatedAt time.Time `gorm:"index:idx_trades_user_created" json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// BeforeCreate 创建前生成UUID
func (t *TradeSetup) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (TradeSetup) TableName() string {
	return "trades"
}

// Factors 返回置信度明细的副本
func (t *TradeSetup) Factors() map[string]string {
	src := t.ConfidenceFactors.Data()
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Clone 深拷贝，返回的记录不与原记录共享 validUntil 和置信度明细
func (t *TradeSetup) Clone() TradeSetup {
	cp := *t
	if t.ValidUntil != nil {
		v := *t.ValidUntil
		cp.ValidUntil = &v
	}
	if t.ConfidenceFactors.Data() != nil {
		cp.ConfidenceFactors = datatypes.NewJSONType(t.Factors())
	}
	return cp
}

// Expired 判断信号在给定时间是否已过期
func (t *TradeSetup) Expired(now time.Time) bool {
	return t.ValidUntil != nil && t.ValidUntil.Before(now)
}
