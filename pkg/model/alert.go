// pkg/model/alert.go
package model

import "time"

// Side 交易方向
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// 交易信号状态
const (
	StatusActive    = "active"
	StatusTriggered = "triggered"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// 常见的信号形态，用于置信度加分
const (
	PatternBreakout = "breakout"
	PatternReversal = "reversal"
)

// Alert 原始交易信号（TradingView 等图表工具推送）
type Alert struct {
	Symbol     string     `json:"symbol"` // 例如 BTCUSD
	Side       Side       `json:"side"`
	Entry      float64    `json:"entry"`
	Stop       float64    `json:"stop"`
	Target     float64    `json:"target"`
	Type       string     `json:"type"`             // 策略标签：breakout、reversal 等
	Origin     string     `json:"origin,omitempty"` // 来源脚本名
	ValidUntil *time.Time `json:"validUntil,omitempty"`
	Status     string     `json:"status,omitempty"`

	// 输入中的置信度明细会被忽略，由引擎重新计算
	ConfidenceFactors map[string]any `json:"confidenceFactors,omitempty"`
}
