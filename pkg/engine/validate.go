package engine

import (
	"TradeAssistant/pkg/model"
	"TradeAssistant/pkg/validation"
)

// 校验失败信息
const (
	MsgMissingFields = "Missing required fields"
	MsgSide          = "side must be long or short"
	MsgStatus        = "status must be one of active, triggered, cancelled, expired"
	MsgStopEqual     = "stop must differ from entry"
)

// ValidationError 信号校验错误，只携带第一条失败原因
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateAlert 按固定顺序校验信号，返回第一条失败原因
func ValidateAlert(a model.Alert) error {
	msg := validation.First(
		validation.Check(func() bool {
			return a.Symbol != "" && a.Side != "" && a.Entry != 0 &&
				a.Stop != 0 && a.Target != 0 && a.Type != ""
		}, MsgMissingFields),
		validation.Tag(a.Entry, "gt=0", "entry must be a positive number"),
		validation.Tag(a.Stop, "gt=0", "stop must be a positive number"),
		validation.Tag(a.Target, "gt=0", "target must be a positive number"),
		validation.Tag(string(a.Side), "oneof=long short", MsgSide),
		validation.When(a.Status != "",
			validation.Tag(a.Status, "oneof=active triggered cancelled expired", MsgStatus)),
		validation.Check(func() bool { return a.Entry != a.Stop }, MsgStopEqual),
	)
	if msg != "" {
		return &ValidationError{Message: msg}
	}
	return nil
}
