// Package spread 实现跨交易所价差计算与机会筛选。
// 纯函数包：输入若干交易所的报价快照，输出最优套利机会，
// 不持有状态、不做 I/O，便于确定性测试。
package spread

import (
	"math"
	"sort"

	"arbitrage-sniper/internal/core/model"
)

// DefaultThresholdPct 默认价差阈值（百分比）
// 价差严格大于该阈值才构成机会；恰好等于阈值不触发。
const DefaultThresholdPct = 0.5

// Pct 计算单方向价差百分比
// 公式: (卖方 bid − 买方 ask) / 买方 ask × 100
// 买方 ask 非正时返回 0（防御除零，上游校验保证正价格）。
func Pct(buyAsk, sellBid float64) float64 {
	if buyAsk <= 0 {
		return 0
	}
	return (sellBid - buyAsk) / buyAsk * 100
}

// FindBest 在报价快照中寻找最优套利机会
// 遍历所有交易所有序对（双向），取价差最大者；
// 价差相等时保留先遇到的一对——交易所按名称排序遍历，结果确定。
// 少于两个交易所或最大价差不为正时返回 nil：
// 非正价差不构成机会，配置校验保证阈值为正，该下限不会吞掉可触发的机会。
func FindBest(symbol string, levels map[string]model.PriceLevel) *model.Opportunity {
	if len(levels) < 2 {
		return nil
	}

	exchanges := make([]string, 0, len(levels))
	for name := range levels {
		exchanges = append(exchanges, name)
	}
	sort.Strings(exchanges)

	var best *model.Opportunity
	// 以 0 为搜索下限，Qualify 只在其上做阈值判定
	bestPct := 0.0
	for _, buyEx := range exchanges {
		for _, sellEx := range exchanges {
			if buyEx == sellEx {
				continue
			}
			buy := levels[buyEx]
			sell := levels[sellEx]
			pct := Pct(buy.Ask, sell.Bid)
			if pct <= bestPct {
				continue
			}
			bestPct = pct
			best = &model.Opportunity{
				Symbol:        symbol,
				BuyExchange:   buyEx,
				SellExchange:  sellEx,
				BuyPrice:      buy.Ask,
				SellPrice:     sell.Bid,
				SpreadPct:     pct,
				ProfitPerUnit: sell.Bid - buy.Ask,
			}
		}
	}
	return best
}

// Qualify 判断机会是否超过阈值
// 价差必须严格大于阈值；恰好等于阈值不触发（避免边界抖动反复告警）。
func Qualify(op *model.Opportunity, thresholdPct float64) bool {
	return op != nil && op.SpreadPct > thresholdPct
}

// Round 按小数位数四舍五入
// 价差保留 4 位，价格与预估收益保留 2 位，统一经此函数处理。
func Round(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
