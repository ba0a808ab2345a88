// Package validation 按固定顺序执行的校验规则，第一个失败的规则决定错误信息
package validation

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New()
	})
	return v
}

// Rule 单条校验规则
type Rule struct {
	Message string
	check   func() bool
}

// Tag 使用 validator 标签校验单个值，例如 "required"、"gt=0"、"oneof=long short"
func Tag(value any, tag, message string) Rule {
	return Rule{
		Message: message,
		check: func() bool {
			return instance().Var(value, tag) == nil
		},
	}
}

// Check 自定义校验函数，返回 true 表示通过
func Check(ok func() bool, message string) Rule {
	return Rule{Message: message, check: ok}
}

// When 仅在 cond 为真时执行规则
func When(cond bool, r Rule) Rule {
	if cond {
		return r
	}
	return Rule{check: func() bool { return true }}
}

// First 依次执行规则，返回第一个失败规则的信息；全部通过返回空字符串
func First(rules ...Rule) string {
	for _, r := range rules {
		if !r.check() {
			return r.Message
		}
	}
	return ""
}
