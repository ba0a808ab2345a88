// pkg/engine/processor.go
package engine

import (
	"errors"
	"math"
	"time"

	"gorm.io/datatypes"

	"TradeAssistant/pkg/model"
)

// ErrUndefinedRiskReward 入场价与止损价相同时风险收益比无定义
var ErrUndefinedRiskReward = errors.New("入场价与止损价相同，风险收益比无定义")

// Processor 把原始信号转换为交易信号记录，无副作用
type Processor struct {
	now func() time.Time
}

// Option 处理器选项
type Option func(*Processor)

// WithClock 指定时钟，测试中用于固定 createdAt
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor 创建信号处理器
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RiskReward 计算风险收益比
func RiskReward(side model.Side, entry, stop, target float64) (float64, error) {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0, ErrUndefinedRiskReward
	}

	var rr float64
	if side == model.SideShort {
		rr = (entry - target) / risk
	} else {
		rr = (target - entry) / risk
	}
	if math.IsNaN(rr) || math.IsInf(rr, 0) {
		return 0, ErrUndefinedRiskReward
	}
	return rr, nil
}

// TrailingStop 入场价与目标价的中点，多空相同
func TrailingStop(entry, target float64) float64 {
	return entry + 0.5*(target-entry)
}

// Process 处理单条信号。调用方负责先完成字段校验
func (p *Processor) Process(alert model.Alert) (model.TradeSetup, error) {
	rr, err := RiskReward(alert.Side, alert.Entry, alert.Stop, alert.Target)
	if err != nil {
		return model.TradeSetup{}, err
	}

	status := alert.Status
	if status == "" {
		status = model.StatusActive
	}

	var validUntil *time.Time
	if alert.ValidUntil != nil {
		v := *alert.ValidUntil
		validUntil = &v
	}

	setup := model.TradeSetup{
		Symbol:            alert.Symbol,
		Side:              alert.Side,
		Entry:             alert.Entry,
		Stop:              alert.Stop,
		Target:            alert.Target,
		Type:              alert.Type,
		Origin:            alert.Origin,
		ValidUntil:        validUntil,
		RR:                rr,
		TrailingStop:      TrailingStop(alert.Entry, alert.Target),
		Confidence:        Score(alert, rr),
		ConfidenceFactors: datatypes.NewJSONType(Explain(alert, rr)),
		Status:            status,
		Delivered:         false,
		CreatedAt:         p.now(),
	}
	return setup, nil
}
