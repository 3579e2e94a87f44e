package recorder

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"cdpsession/internal/rules"
	"cdpsession/pkg/model"
	"cdpsession/pkg/traffic"
)

// Recorder 定长请求事件记录器
//
// 只保留至少命中一条过滤规则的请求，按时间先后存放在环形缓冲中；
// 已满时先丢弃最旧的记录。过滤规则与历史记录生命周期独立，Clear 只清空历史。
type Recorder struct {
	max         int
	redactPaths []string
	now         func() time.Time

	// buf 未满时按追加增长且 head 为 0；长度到达 max 后按环形覆盖
	mu      sync.Mutex
	buf     []traffic.RequestRecord
	head    int // 最旧记录下标
	engine  *rules.Engine
	evicted int64

	subMu       sync.RWMutex
	subscribers map[chan traffic.RequestRecord]struct{}
	closed      bool
}

// Option 记录器可选项
type Option func(*Recorder)

// WithRedactPaths 设置 JSON 请求体中需脱敏的路径（gjson 语法）
func WithRedactPaths(paths ...string) Option {
	return func(r *Recorder) { r.redactPaths = append(r.redactPaths, paths...) }
}

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// New 创建最多保留 maxRecords 条记录的记录器
func New(maxRecords int, opts ...Option) (*Recorder, error) {
	if maxRecords <= 0 {
		return nil, &model.ConfigurationError{
			Component: "recorder",
			Field:     "max_records",
			Value:     maxRecords,
			Reason:    "must be a positive integer",
		}
	}
	r := &Recorder{
		max:         maxRecords,
		now:         time.Now,
		engine:      rules.New(),
		subscribers: make(map[chan traffic.RequestRecord]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// AddFilter 追加过滤规则，规则无法解析时返回 *model.FilterError
func (r *Recorder) AddFilter(f model.RequestFilter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Add(f)
}

// Filters 返回当前过滤规则
func (r *Recorder) Filters() []model.RequestFilter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Filters()
}

// Intercept 评估请求，命中任一规则则记录并返回 true；未命中直接丢弃
func (r *Recorder) Intercept(rec traffic.RequestRecord) bool {
	r.mu.Lock()
	if r.engine.Eval(&rec) == nil {
		r.mu.Unlock()
		return false
	}
	stored := rec.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = r.now()
	}
	if len(r.redactPaths) > 0 {
		stored.Body = redactBody(stored.Body, r.redactPaths)
	}
	r.push(stored)
	r.mu.Unlock()

	r.notify(stored)
	return true
}

func (r *Recorder) push(rec traffic.RequestRecord) {
	if len(r.buf) < r.max {
		r.buf = append(r.buf, rec)
		return
	}
	r.buf[r.head] = rec
	r.head = (r.head + 1) % r.max
	r.evicted++
}

// ordered 按从旧到新的顺序返回内部记录，调用方需持有锁
func (r *Recorder) ordered() []traffic.RequestRecord {
	out := make([]traffic.RequestRecord, 0, len(r.buf))
	out = append(out, r.buf[r.head:]...)
	return append(out, r.buf[:r.head]...)
}

// Records 按从旧到新的顺序返回记录副本
func (r *Recorder) Records() []traffic.RequestRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.ordered()
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

func (r *Recorder) Cap() int { return r.max }

// Clear 清空历史记录，不影响过滤规则
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = nil
	r.head = 0
}

// DropBefore 丢弃早于 cutoff 的记录，返回丢弃数量
func (r *Recorder) DropBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := r.ordered()
	n := 0
	for n < len(recs) && recs[n].Timestamp.Before(cutoff) {
		n++
	}
	if n == 0 {
		return 0
	}
	r.buf = append([]traffic.RequestRecord(nil), recs[n:]...)
	r.head = 0
	return n
}

// Stats 返回记录器统计
func (r *Recorder) Stats() model.RecorderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	total, matched, by := r.engine.Stats()
	return model.RecorderStats{
		Total:    total,
		Matched:  matched,
		Evicted:  r.evicted,
		Len:      len(r.buf),
		Capacity: r.max,
		ByFilter: by,
	}
}

// Subscribe 订阅新记录，返回只读通道与取消函数；订阅者处理过慢时丢弃。
// 记录器关闭后订阅得到的通道已关闭
func (r *Recorder) Subscribe(buffer int) (<-chan traffic.RequestRecord, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan traffic.RequestRecord, buffer)
	r.subMu.Lock()
	if r.closed {
		r.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	r.subscribers[ch] = struct{}{}
	r.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.subMu.Lock()
			if _, ok := r.subscribers[ch]; ok {
				delete(r.subscribers, ch)
				close(ch)
			}
			r.subMu.Unlock()
		})
	}
}

// Close 关闭全部订阅
func (r *Recorder) Close() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.closed = true
	for ch := range r.subscribers {
		delete(r.subscribers, ch)
		close(ch)
	}
}

func (r *Recorder) notify(rec traffic.RequestRecord) {
	r.subMu.RLock()
	defer r.subMu.RUnlock()
	for ch := range r.subscribers {
		select {
		case ch <- rec.Clone():
		default:
		}
	}
}
