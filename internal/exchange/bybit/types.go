// Package bybit Bybit WebSocket 消息结构定义
package bybit

// SubscribeRequest 订阅/心跳请求
type SubscribeRequest struct {
	// Op 操作类型: subscribe 或 ping
	Op string `json:"op"`
	// Args 订阅参数列表，如 ["tickers.BTCUSDT"]（ping 时省略）
	Args []string `json:"args,omitempty"`
}

// PushMessage 行情推送
type PushMessage struct {
	// Topic 推送主题，如 tickers.BTCUSDT
	Topic string `json:"topic"`
	// Type 推送类型: snapshot 或 delta
	Type string `json:"type"`
	// TsMs 推送时间（毫秒）
	TsMs int64 `json:"ts"`
	// Data 行情数据
	Data TickerData `json:"data"`
	// Op 控制消息操作类型（pong/subscribe 回执才有）
	Op string `json:"op"`
	// RetMsg 控制消息返回说明
	RetMsg string `json:"ret_msg"`
}

// TickerData 行情快照数据
type TickerData struct {
	// Symbol 交易对原生拼写，如 BTCUSDT
	Symbol string `json:"symbol"`
	// LastPrice 最新价（字符串）
	LastPrice string `json:"lastPrice"`
	// Volume24h 24 小时成交量（字符串，delta 推送可能缺失）
	Volume24h string `json:"volume24h"`
}
