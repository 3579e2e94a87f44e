package cdp

import (
	"time"

	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/protocol/network"
	"github.com/tidwall/gjson"

	"cdpsession/pkg/model"
	"cdpsession/pkg/traffic"
)

// ToRecord 将 Fetch.requestPaused 事件转换为中立请求记录
func ToRecord(ev *fetch.RequestPausedReply) traffic.RequestRecord {
	rec := fromRequest(ev.Request)
	rec.ID = string(ev.RequestID)
	rec.ResourceType = string(ev.ResourceType)
	return rec
}

// FromRequestWillBeSent 将 Network.requestWillBeSent 事件转换为中立请求记录
func FromRequestWillBeSent(ev *network.RequestWillBeSentReply) traffic.RequestRecord {
	rec := fromRequest(ev.Request)
	rec.ID = string(ev.RequestID)
	if ev.Type != "" {
		rec.ResourceType = string(ev.Type)
	}
	return rec
}

func fromRequest(r network.Request) traffic.RequestRecord {
	rec := traffic.RequestRecord{
		URL:       r.URL,
		Method:    r.Method,
		Headers:   parseHeaders(r.Headers),
		Timestamp: time.Now(),
	}
	if r.PostData != nil {
		rec.Body = []byte(*r.PostData)
	}
	return rec
}

// parseHeaders 按 JSON 对象中的原始顺序提取请求头
func parseHeaders(raw network.Headers) traffic.Headers {
	h := traffic.Headers{}
	if len(raw) == 0 {
		return h
	}
	gjson.ParseBytes(raw).ForEach(func(k, v gjson.Result) bool {
		h.Add(k.String(), v.String())
		return true
	})
	return h
}

// TierOf 根据资源类型选择缓存分层：文档进入页面层，其余进入资源层
func TierOf(resourceType string) model.Tier {
	if resourceType == string(network.ResourceTypeDocument) {
		return model.TierPage
	}
	return model.TierAsset
}
