package model

import "time"

// DefaultPageSize 交易信号查询的固定分页大小
const DefaultPageSize = 100

// TradeFilter 交易信号查询条件，未设置的字段不参与过滤，多个条件之间为 AND
type TradeFilter struct {
	Origin          *string
	Status          *string
	Delivered       *bool
	ValidUntilAfter *time.Time // validUntil >= 该时间
}

// Matches 判断交易信号是否满足过滤条件
func (f TradeFilter) Matches(t *TradeSetup) bool {
	if f.Origin != nil && t.Origin != *f.Origin {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Delivered != nil && t.Delivered != *f.Delivered {
		return false
	}
	if f.ValidUntilAfter != nil {
		if t.ValidUntil == nil || t.ValidUntil.Before(*f.ValidUntilAfter) {
			return false
		}
	}
	return true
}

// IsEmpty 是否没有任何过滤条件
func (f TradeFilter) IsEmpty() bool {
	return f.Origin == nil && f.Status == nil && f.Delivered == nil && f.ValidUntilAfter == nil
}
