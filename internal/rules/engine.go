package rules

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/net/http/httpguts"

	"cdpsession/pkg/model"
	"cdpsession/pkg/traffic"
)

// Matcher 编译后的单条过滤规则
type Matcher struct {
	key     string
	filter  model.RequestFilter
	headers []string
	glob    glob.Glob
}

// Compile 校验并编译过滤规则，无法解析时返回 *model.FilterError
func Compile(f model.RequestFilter) (*Matcher, error) {
	if f.Method != "" && !isToken(f.Method) {
		return nil, &model.FilterError{Filter: f, Reason: fmt.Sprintf("invalid method %q", f.Method)}
	}
	headers := make([]string, 0, len(f.RequiredHeaders))
	for _, h := range f.RequiredHeaders {
		if !httpguts.ValidHeaderFieldName(h) {
			return nil, &model.FilterError{Filter: f, Reason: fmt.Sprintf("invalid header name %q", h)}
		}
		headers = append(headers, h)
	}
	m := &Matcher{filter: f, headers: headers}
	if f.URLGlob != "" {
		g, err := glob.Compile(f.URLGlob)
		if err != nil {
			return nil, &model.FilterError{Filter: f, Reason: "invalid url glob", Err: err}
		}
		m.glob = g
	}
	return m, nil
}

func isToken(s string) bool {
	for i := 0; i < len(s); i++ {
		if !httpguts.IsTokenRune(rune(s[i])) {
			return false
		}
	}
	return s != ""
}

// Filter 返回原始规则
func (m *Matcher) Filter() model.RequestFilter { return m.filter }

// Match 判断记录是否满足该规则
func (m *Matcher) Match(rec *traffic.RequestRecord) bool {
	if !strings.Contains(rec.URL, m.filter.URLContains) {
		return false
	}
	if m.filter.Method != "" && rec.Method != m.filter.Method {
		return false
	}
	for _, h := range m.headers {
		if !rec.Headers.Has(h) {
			return false
		}
	}
	if m.glob != nil && !m.glob.Match(rec.URL) {
		return false
	}
	return true
}

// Engine 规则集合，任一规则命中即视为命中
//
// Engine 自身不加锁，由持有者串行化访问。
type Engine struct {
	matchers []*Matcher
	total    int64
	matched  int64
	byFilter map[string]int64
}

func New() *Engine {
	return &Engine{byFilter: make(map[string]int64)}
}

// Add 编译并追加规则；失败时已有规则保持不变
func (e *Engine) Add(f model.RequestFilter) error {
	m, err := Compile(f)
	if err != nil {
		return err
	}
	m.key = f.Name
	if m.key == "" {
		m.key = fmt.Sprintf("filter-%d", len(e.matchers))
	}
	e.matchers = append(e.matchers, m)
	return nil
}

// Eval 依次评估规则，返回第一个命中的规则；无规则时永不命中
func (e *Engine) Eval(rec *traffic.RequestRecord) *Matcher {
	e.total++
	for _, m := range e.matchers {
		if m.Match(rec) {
			e.matched++
			e.byFilter[m.key]++
			return m
		}
	}
	return nil
}

// Filters 返回当前规则副本
func (e *Engine) Filters() []model.RequestFilter {
	out := make([]model.RequestFilter, 0, len(e.matchers))
	for _, m := range e.matchers {
		out = append(out, m.filter)
	}
	return out
}

func (e *Engine) Len() int { return len(e.matchers) }

// Stats 返回评估统计
func (e *Engine) Stats() (total, matched int64, byFilter map[string]int64) {
	byFilter = make(map[string]int64, len(e.byFilter))
	for k, v := range e.byFilter {
		byFilter[k] = v
	}
	return e.total, e.matched, byFilter
}
