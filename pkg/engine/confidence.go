// pkg/engine/confidence.go
package engine

import (
	"strconv"

	"TradeAssistant/pkg/model"
)

// 置信度明细中的因子名
const (
	FactorBase    = "base"
	FactorRR      = "rrRatio"
	FactorPattern = "pattern"
)

const (
	baseConfidence = 50
	minConfidence  = 0
	maxConfidence  = 100
)

// rrBonus 风险收益比加分，严格大于阈值，命中第一档即停止
func rrBonus(rr float64) int {
	switch {
	case rr > 2:
		return 30
	case rr > 1.5:
		return 20
	case rr > 1:
		return 10
	default:
		return 0
	}
}

// patternBonus 形态加分
func patternBonus(pattern string) int {
	switch pattern {
	case model.PatternBreakout:
		return 20
	case model.PatternReversal:
		return 10
	default:
		return 0
	}
}

// Score 计算信号置信度，结果在 [0, 100]
func Score(alert model.Alert, rr float64) int {
	return clamp(baseConfidence + rrBonus(rr) + patternBonus(alert.Type))
}

// Explain 返回置信度各组成部分，与 Score 使用相同的分档
func Explain(alert model.Alert, rr float64) map[string]string {
	return map[string]string{
		FactorBase:    label(baseConfidence),
		FactorRR:      label(rrBonus(rr)),
		FactorPattern: label(patternBonus(alert.Type)),
	}
}

func clamp(n int) int {
	if n < minConfidence {
		return minConfidence
	}
	if n > maxConfidence {
		return maxConfidence
	}
	return n
}

func label(n int) string {
	if n < 0 {
		return strconv.Itoa(n)
	}
	return "+" + strconv.Itoa(n)
}
