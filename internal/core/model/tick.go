// Package model 定义价差监控器中使用的核心数据结构。
// 包含归一化行情 Tick、价格档位、套利机会与信号等核心类型。
package model

import (
	"time"
)

// Exchange 交易所标识常量
const (
	// ExchangeBinance Binance 交易所
	ExchangeBinance = "binance"
	// ExchangeOKX OKX 交易所
	ExchangeOKX = "okx"
	// ExchangeBybit Bybit 交易所
	ExchangeBybit = "bybit"
)

// TickKind 行情类型
type TickKind string

const (
	// KindTrade 成交行情（逐笔成交价）
	KindTrade TickKind = "trade"
	// KindTicker 行情快照（最新价推送）
	KindTicker TickKind = "ticker"
)

// Tick 归一化行情事件
// 一条 Tick 表示某交易所、某交易对的一次最新价观测。
// JSON 标签即 ingestion → detection 的传输报文格式，
// 字段顺序与字段名不可随意更改（跨进程消费方依赖该格式）。
type Tick struct {
	// Exchange 交易所标识: binance, okx, bybit
	Exchange string `json:"exchange"`
	// Symbol 统一交易对标识，如 BTC/USDT
	Symbol string `json:"symbol"`
	// Price 成交/最新价，必须为正数
	Price float64 `json:"price"`
	// Volume 成交量，允许为 0（ticker 类型通常无逐笔量）
	Volume float64 `json:"volume"`
	// TimestampMs 交易所事件时间戳（毫秒）；缺失时由归一化层填充为本机时间
	TimestampMs int64 `json:"timestamp"`
	// Kind 行情类型: trade 或 ticker
	Kind TickKind `json:"type"`
}

// Time 获取事件时间的 time.Time 表示
func (t *Tick) Time() time.Time {
	return time.UnixMilli(t.TimestampMs)
}

// PriceLevel 单个交易所、单个交易对的最优报价缓存
// 由单笔成交价通过固定半价差 ε 推导（bid = price·(1−ε)，ask = price·(1+ε)），
// 是近似值而非真实订单簿。每次接受新 Tick 时整体覆盖，不保留历史。
type PriceLevel struct {
	// Bid 最优买价
	Bid float64
	// Ask 最优卖价
	Ask float64
	// TimestampMs 报价时间戳（毫秒），用于陈旧判定与乱序保护
	TimestampMs int64
}

// Mid 计算中间价
func (p PriceLevel) Mid() float64 {
	return (p.Bid + p.Ask) / 2
}
