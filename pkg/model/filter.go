package model

// RequestFilter 记录器的过滤规则
//
// URLContains 为子串匹配；Method 为空表示任意方法，否则需完全相等；
// RequiredHeaders 中每个头名（大小写不敏感）都必须出现。URLGlob 可选，
// 非空时 URL 还需满足该通配表达式。
type RequestFilter struct {
	Name            string   `json:"name,omitempty" yaml:"name"`
	URLContains     string   `json:"urlContains" yaml:"urlContains"`
	Method          string   `json:"method,omitempty" yaml:"method"`
	RequiredHeaders []string `json:"requiredHeaders,omitempty" yaml:"requiredHeaders"`
	URLGlob         string   `json:"urlGlob,omitempty" yaml:"urlGlob"`
}
