// Package model 定义价差监控器中使用的核心数据结构。
package model

import (
	"fmt"
	"strings"
)

// SignalKind 信号类型标识
// 当前仅有跨所套利机会一种。
const SignalKind = "ARBITRAGE_OPPORTUNITY"

// Opportunity 跨所套利机会（瞬态）
// 每次评估时新鲜计算，不直接存储；只有超过阈值的机会才会被发布为 Signal。
type Opportunity struct {
	// Symbol 统一交易对标识
	Symbol string
	// BuyExchange 买入交易所（ask 最低的一侧）
	BuyExchange string
	// SellExchange 卖出交易所（bid 最高的一侧）
	SellExchange string
	// BuyPrice 买入价（买入所的 ask），保留 2 位小数
	BuyPrice float64
	// SellPrice 卖出价（卖出所的 bid），保留 2 位小数
	SellPrice float64
	// SpreadPct 价差百分比，保留 4 位小数
	// 公式: (sell.bid − buy.ask) / buy.ask × 100
	SpreadPct float64
	// ProfitPerUnit 单位利润（SellPrice − BuyPrice），保留 2 位小数
	ProfitPerUnit float64
}

// Signal 套利信号（不可变）
// 由 Signal Publisher 从 Opportunity 确定性推导，创建后不再修改。
// JSON 标签即广播通道与历史查询的报文格式。
type Signal struct {
	// ID 信号唯一标识（uuid）
	ID string `json:"id"`
	// Kind 信号类型，固定为 ARBITRAGE_OPPORTUNITY
	Kind string `json:"type"`
	// Action 操作描述，推导规则: BUY_<买入所>_SELL_<卖出所>（大写）
	Action string `json:"action"`
	// Symbol 统一交易对标识
	Symbol string `json:"symbol"`
	// SpreadPct 价差百分比（4 位小数）
	SpreadPct float64 `json:"spread_pct"`
	// BuyPrice 买入价
	BuyPrice float64 `json:"buy_price"`
	// SellPrice 卖出价
	SellPrice float64 `json:"sell_price"`
	// ProfitEstimate 单位利润估计（2 位小数）
	ProfitEstimate float64 `json:"profit_estimate"`
	// GeneratedAtMs 信号生成时间戳（毫秒）
	GeneratedAtMs int64 `json:"generated_at"`
}

// DeriveAction 从买卖交易所推导 Action 字符串
// 规则: BUY_<买入所大写>_SELL_<卖出所大写>
func DeriveAction(buyExchange, sellExchange string) string {
	return fmt.Sprintf("BUY_%s_SELL_%s", strings.ToUpper(buyExchange), strings.ToUpper(sellExchange))
}
