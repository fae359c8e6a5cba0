// Package okx OKX WebSocket 消息结构定义
package okx

// SubscribeArg 订阅参数
type SubscribeArg struct {
	// Channel 频道名，成交为 trades
	Channel string `json:"channel"`
	// InstId 产品 ID，如 BTC-USDT
	InstId string `json:"instId"`
}

// SubscribeRequest 订阅请求
type SubscribeRequest struct {
	// Op 操作类型，固定为 subscribe
	Op string `json:"op"`
	// Args 订阅参数列表
	Args []SubscribeArg `json:"args"`
}

// PushMessage 行情推送
type PushMessage struct {
	// Event 事件类型（subscribe/error 等控制消息才有）
	Event string `json:"event"`
	// Arg 推送来源频道
	Arg SubscribeArg `json:"arg"`
	// Data 成交数据列表
	Data []TradeData `json:"data"`
}

// TradeData 单笔成交
type TradeData struct {
	// InstId 产品 ID
	InstId string `json:"instId"`
	// Px 成交价（字符串）
	Px string `json:"px"`
	// Sz 成交量（字符串）
	Sz string `json:"sz"`
	// Ts 成交时间（毫秒，字符串）
	Ts string `json:"ts"`
}
