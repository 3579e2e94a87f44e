package traffic

import (
	"bytes"
	"strings"
	"time"
)

// HeaderField 单个请求头
type HeaderField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Headers 有序的请求头序列，保留原始顺序与重复项
type Headers []HeaderField

// Get 获取指定 Header 的第一个值（大小写不敏感）
func (h Headers) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Has 判断是否存在指定 Header（大小写不敏感，忽略值）
func (h Headers) Has(name string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Add 追加一个 Header
func (h *Headers) Add(name, value string) {
	*h = append(*h, HeaderField{Name: name, Value: value})
}

// RequestRecord 中立的请求记录模型，一经记录不再修改
type RequestRecord struct {
	ID           string    // 记录唯一ID
	URL          string    // 完整URL
	Method       string    // HTTP方法
	Headers      Headers   // 请求头
	Body         []byte    // 请求体原始数据，nil 表示无请求体
	ResourceType string    // 资源类型 (如 Document, XHR)
	Timestamp    time.Time // 记录时间
}

// NewRecord 创建初始化请求记录
func NewRecord(method, url string) *RequestRecord {
	return &RequestRecord{
		URL:     url,
		Method:  method,
		Headers: make(Headers, 0, 8),
	}
}

// Clone 深拷贝，调用方持有的副本与记录器内部状态互不影响
func (r RequestRecord) Clone() RequestRecord {
	out := r
	if r.Headers != nil {
		out.Headers = make(Headers, len(r.Headers))
		copy(out.Headers, r.Headers)
	}
	if r.Body != nil {
		out.Body = bytes.Clone(r.Body)
	}
	return out
}

// IsDocument 是否为页面级资源
func (r RequestRecord) IsDocument() bool {
	return strings.EqualFold(r.ResourceType, "Document")
}
