package model

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed 准入池已关闭
	ErrPoolClosed = errors.New("admission pool closed")

	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("session not found")
)

// ConfigurationError 组件构造参数非法，不会被静默替换为默认值
type ConfigurationError struct {
	Component string
	Field     string
	Value     any
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid %s %v: %s", e.Component, e.Field, e.Value, e.Reason)
}

// FilterError 过滤规则无法解析，本次 AddFilter 失败
type FilterError struct {
	Filter RequestFilter
	Reason string
	Err    error
}

func (e *FilterError) Error() string {
	name := e.Filter.Name
	if name == "" {
		name = e.Filter.URLContains
	}
	if e.Err != nil {
		return fmt.Sprintf("filter %q: %s: %v", name, e.Reason, e.Err)
	}
	return fmt.Sprintf("filter %q: %s", name, e.Reason)
}

func (e *FilterError) Unwrap() error { return e.Err }
