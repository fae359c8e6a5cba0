// Package normalize 实现行情 Tick 的归一化校验。
// 纯函数：校验通过返回 Tick，否则返回 nil；绝不 panic，
// 非法输入的告警日志由调用方（Feed 客户端）负责。
package normalize

import (
	"math"

	"arbitrage-sniper/internal/core/model"
	"arbitrage-sniper/internal/util/timeutil"
)

// DefaultFreshnessWindowMs 默认新鲜度窗口（毫秒）
// 事件时间与本机时间相差超过该窗口的 Tick 被视为时钟偏斜或积压重放，直接丢弃。
const DefaultFreshnessWindowMs = 60_000

// Normalize 校验并修正一条 Tick
// 规则:
//   - exchange/symbol 不能为空
//   - price 必须为有限正数
//   - volume 必须为非负有限数
//   - kind 必须为 trade 或 ticker
//   - timestamp 缺失（为 0）时以 nowMs 填充
//   - |nowMs − timestamp| > windowMs 时拒绝（防时钟偏斜与积压重放，不处理乱序）
//
// 返回: 校验通过的 Tick（原地修正后的同一指针），否则 nil。
func Normalize(t *model.Tick, nowMs, windowMs int64) *model.Tick {
	if t == nil || t.Exchange == "" || t.Symbol == "" {
		return nil
	}
	if t.Price <= 0 || math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		return nil
	}
	if t.Volume < 0 || math.IsNaN(t.Volume) || math.IsInf(t.Volume, 0) {
		return nil
	}
	if t.Kind != model.KindTrade && t.Kind != model.KindTicker {
		return nil
	}

	if t.TimestampMs == 0 {
		t.TimestampMs = nowMs
	}
	if timeutil.AbsDiffMs(nowMs, t.TimestampMs) > windowMs {
		return nil
	}

	return t
}
