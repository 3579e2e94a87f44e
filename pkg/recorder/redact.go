package recorder

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const redactedValue = "[REDACTED]"

// redactBody 将 JSON 请求体中指定路径的值替换为占位符；非 JSON 请求体原样返回
func redactBody(body []byte, paths []string) []byte {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return body
	}
	out := body
	for _, p := range paths {
		if !gjson.GetBytes(out, p).Exists() {
			continue
		}
		b, err := sjson.SetBytes(out, p, redactedValue)
		if err != nil {
			continue
		}
		out = b
	}
	return out
}
