package model

import (
	"testing"
	"time"

	"gorm.io/datatypes"
)

func TestTradeSetupClone(t *testing.T) {
	until := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	orig := TradeSetup{
		Symbol:            "BTCUSD",
		ValidUntil:        &until,
		ConfidenceFactors: datatypes.NewJSONType(map[string]string{"base": "+50"}),
	}

	cp := orig.Clone()
	*cp.ValidUntil = until.Add(time.Hour)
	cp.ConfidenceFactors.Data()["base"] = "+0"

	if !orig.ValidUntil.Equal(until) {
		t.Errorf("原记录 validUntil 被修改: %v", orig.ValidUntil)
	}
	if orig.Factors()["base"] != "+50" {
		t.Errorf("原记录置信度明细被修改: %v", orig.Factors())
	}

	empty := (&TradeSetup{}).Clone()
	if empty.ValidUntil != nil || empty.ConfidenceFactors.Data() != nil {
		t.Errorf("空记录拷贝应保持零值: %+v", empty)
	}
}
