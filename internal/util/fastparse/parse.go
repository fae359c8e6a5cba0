// Package fastparse 提供高性能的字符串解析函数。
// 避免在热路径使用 fmt，使用 strconv 进行转换。
// 主要用于解析交易所 WebSocket 消息中的价格、数量与时间戳字段。
package fastparse

import (
	"strconv"
)

// ParseFloat 快速解析浮点数字符串
// 参数 s: 待解析的字符串，如 "45100.50"
// 返回: 解析后的浮点数和可能的错误
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// ParseInt 快速解析整数字符串
// 用于解析毫秒时间戳等字段
func ParseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
