// Package binance Binance WebSocket 消息结构定义
package binance

// SubscribeRequest 订阅请求
type SubscribeRequest struct {
	// Method 请求方法，固定为 SUBSCRIBE
	Method string `json:"method"`
	// Params 订阅参数列表，如 ["btcusdt@trade"]
	Params []string `json:"params"`
	// ID 请求 ID
	ID int `json:"id"`
}

// TradeEvent 逐笔成交推送
// 频道: <symbol>@trade
type TradeEvent struct {
	// EventType 事件类型，成交为 trade
	EventType string `json:"e"`
	// EventTimeMs 事件时间（毫秒）
	EventTimeMs int64 `json:"E"`
	// Symbol 交易对原生拼写，如 BTCUSDT
	Symbol string `json:"s"`
	// Price 成交价（字符串）
	Price string `json:"p"`
	// Quantity 成交量（字符串）
	Quantity string `json:"q"`
	// TradeTimeMs 成交时间（毫秒）
	TradeTimeMs int64 `json:"T"`
}
