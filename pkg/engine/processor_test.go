package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"TradeAssistant/pkg/model"
)

var fixedNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func newTestProcessor() *Processor {
	return NewProcessor(WithClock(func() time.Time { return fixedNow }))
}

func TestProcessLong(t *testing.T) {
	alert := model.Alert{
		Symbol: "BTCUSD",
		Side:   model.SideLong,
		Entry:  30000,
		Stop:   29500,
		Target: 31000,
		Type:   model.PatternBreakout,
		Origin: "BreakoutStrategy",
	}

	got, err := newTestProcessor().Process(alert)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if math.Abs(got.RR-2.0) > 1e-9 {
		t.Errorf("rr 期望 2.0，实际 %v", got.RR)
	}
	if got.TrailingStop != 30500 {
		t.Errorf("trailingStop 期望 30500，实际 %v", got.TrailingStop)
	}
	if got.Status != model.StatusActive {
		t.Errorf("status 期望 active，实际 %s", got.Status)
	}
	if got.Delivered {
		t.Error("delivered 应为 false")
	}
	if !got.CreatedAt.Equal(fixedNow) {
		t.Errorf("createdAt 期望 %v，实际 %v", fixedNow, got.CreatedAt)
	}
	if got.Symbol != "BTCUSD" || got.Origin != "BreakoutStrategy" || got.Type != model.PatternBreakout {
		t.Errorf("输入字段未复制: %+v", got)
	}
	// rr 恰好为 2 只命中 +20 档
	if got.Confidence != 90 {
		t.Errorf("confidence 期望 90，实际 %d", got.Confidence)
	}
	if got.Factors()[FactorRR] != "+20" {
		t.Errorf("rrRatio 期望 +20，实际 %s", got.Factors()[FactorRR])
	}
}

func TestProcessShort(t *testing.T) {
	alert := model.Alert{
		Symbol: "BTCUSD",
		Side:   model.SideShort,
		Entry:  31000,
		Stop:   31500,
		Target: 30000,
		Type:   model.PatternReversal,
	}

	got, err := newTestProcessor().Process(alert)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if math.Abs(got.RR-2.0) > 1e-9 {
		t.Errorf("rr 期望 2.0，实际 %v", got.RR)
	}
	if got.TrailingStop != 30500 {
		t.Errorf("trailingStop 期望 30500，实际 %v", got.TrailingStop)
	}
	if got.Confidence != 80 {
		t.Errorf("confidence 期望 80，实际 %d", got.Confidence)
	}
}

func TestProcessKeepsStatusAndValidUntil(t *testing.T) {
	until := fixedNow.Add(time.Hour)
	alert := model.Alert{
		Symbol: "ETHUSD", Side: model.SideLong, Entry: 100, Stop: 90, Target: 130,
		Type: "scalp", Status: model.StatusTriggered, ValidUntil: &until,
	}

	got, err := newTestProcessor().Process(alert)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if got.Status != model.StatusTriggered {
		t.Errorf("status 期望 triggered，实际 %s", got.Status)
	}
	if got.ValidUntil == nil || !got.ValidUntil.Equal(until) {
		t.Fatalf("validUntil 未复制: %v", got.ValidUntil)
	}
	want := until
	*alert.ValidUntil = until.Add(time.Hour)
	if !got.ValidUntil.Equal(want) {
		t.Error("记录不应共享输入的 validUntil")
	}
}

func TestProcessEntryEqualsStop(t *testing.T) {
	alert := model.Alert{
		Symbol: "BTCUSD", Side: model.SideLong, Entry: 100, Stop: 100, Target: 120, Type: "x",
	}
	_, err := newTestProcessor().Process(alert)
	if !errors.Is(err, ErrUndefinedRiskReward) {
		t.Fatalf("期望 ErrUndefinedRiskReward，实际 %v", err)
	}
}

func TestValidateAlert(t *testing.T) {
	valid := model.Alert{
		Symbol: "BTCUSD", Side: model.SideLong, Entry: 30000, Stop: 29500, Target: 31000, Type: "breakout",
	}

	cases := []struct {
		name   string
		mutate func(*model.Alert)
		want   string
	}{
		{"valid", func(a *model.Alert) {}, ""},
		{"missing target", func(a *model.Alert) { a.Target = 0 }, MsgMissingFields},
		{"missing symbol", func(a *model.Alert) { a.Symbol = "" }, MsgMissingFields},
		{"missing type", func(a *model.Alert) { a.Type = "" }, MsgMissingFields},
		{"negative entry", func(a *model.Alert) { a.Entry = -1 }, "entry must be a positive number"},
		{"negative stop first", func(a *model.Alert) { a.Stop = -1; a.Side = "up" }, "stop must be a positive number"},
		{"bad side", func(a *model.Alert) { a.Side = "up" }, MsgSide},
		{"bad status", func(a *model.Alert) { a.Status = "open" }, MsgStatus},
		{"stop equals entry", func(a *model.Alert) { a.Stop = a.Entry }, MsgStopEqual},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := valid
			c.mutate(&a)
			err := ValidateAlert(a)
			if c.want == "" {
				if err != nil {
					t.Fatalf("期望通过，实际 %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("期望 ValidationError，实际 %v", err)
			}
			if ve.Message != c.want {
				t.Fatalf("期望 %q，实际 %q", c.want, ve.Message)
			}
		})
	}
}
