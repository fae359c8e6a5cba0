// Package book 维护所有交易所的最新报价缓存。
// 使用单写者模式避免锁和竞态条件：只有检测域的单个 goroutine 写入。
package book

import (
	"sort"

	"arbitrage-sniper/internal/core/model"
)

// DefaultStaleThresholdMs 默认陈旧阈值（毫秒）
// 超过该阈值未更新的报价在机会评估时视为缺失。
const DefaultStaleThresholdMs = 5_000

// DefaultHalfSpread 默认合成半价差 ε
// 由单笔成交价推导 bid/ask 的近似系数，可配置。
const DefaultHalfSpread = 0.0001

// Book 最新报价缓存（单写者）
// 注意：本结构体由检测域单 goroutine 独占写入；
// 跨 goroutine 读取必须通过消息或快照拷贝，不能直接共享。
type Book struct {
	// levels 按交易所、交易对缓存最新 PriceLevel
	// 第一层 key: exchange（binance/okx/bybit）
	// 第二层 key: 统一交易对（如 BTC/USDT）
	levels map[string]map[string]model.PriceLevel
	// staleMs 陈旧阈值（毫秒）
	staleMs int64
	// halfSpread 合成半价差 ε
	halfSpread float64
	// updates 接受的更新总数
	updates int64
	// rejected 因乱序被拒绝的更新总数
	rejected int64
}

// Stats 缓存统计快照
type Stats struct {
	// Exchanges 当前缓存的交易所数量
	Exchanges int
	// Updates 接受的更新总数
	Updates int64
	// Rejected 因乱序被拒绝的更新总数
	Rejected int64
}

// New 创建报价缓存
// 参数 staleMs: 陈旧阈值（毫秒），<=0 时使用默认 5000
// 参数 halfSpread: 合成半价差 ε，<=0 时使用默认 0.0001
func New(staleMs int64, halfSpread float64) *Book {
	if staleMs <= 0 {
		staleMs = DefaultStaleThresholdMs
	}
	if halfSpread <= 0 {
		halfSpread = DefaultHalfSpread
	}
	return &Book{
		levels:     make(map[string]map[string]model.PriceLevel, 4),
		staleMs:    staleMs,
		halfSpread: halfSpread,
	}
}

// Update 更新缓存
// 乱序保护：tsMs 严格小于已缓存时间戳时为 no-op（旧数据不覆盖新数据）；
// 相等时覆盖（latest-wins，幂等）。接受的更新整体覆盖档位，不做合并。
// 返回: 更新是否被接受
func (b *Book) Update(exchange, symbol string, price float64, tsMs int64) bool {
	if exchange == "" || symbol == "" || price <= 0 {
		return false
	}

	exLevels, ok := b.levels[exchange]
	if !ok {
		exLevels = make(map[string]model.PriceLevel)
		b.levels[exchange] = exLevels
	}

	if current, ok := exLevels[symbol]; ok && tsMs < current.TimestampMs {
		b.rejected++
		return false
	}

	// 由成交价合成近似 bid/ask（非真实订单簿）
	exLevels[symbol] = model.PriceLevel{
		Bid:         price * (1 - b.halfSpread),
		Ask:         price * (1 + b.halfSpread),
		TimestampMs: tsMs,
	}
	b.updates++
	return true
}

// Get 获取指定交易所与交易对的报价
// 不做陈旧过滤；机会评估请使用 FreshLevels。
func (b *Book) Get(exchange, symbol string) (model.PriceLevel, bool) {
	exLevels, ok := b.levels[exchange]
	if !ok {
		return model.PriceLevel{}, false
	}
	level, ok := exLevels[symbol]
	return level, ok
}

// FreshLevels 获取某交易对所有未陈旧的交易所报价
// 非陈旧定义: nowMs − TimestampMs ≤ staleMs。
// 返回的 map 为快照拷贝，可安全传递。
func (b *Book) FreshLevels(symbol string, nowMs int64) map[string]model.PriceLevel {
	result := make(map[string]model.PriceLevel, len(b.levels))
	for exchange, exLevels := range b.levels {
		level, ok := exLevels[symbol]
		if !ok {
			continue
		}
		if nowMs-level.TimestampMs > b.staleMs {
			continue
		}
		result[exchange] = level
	}
	return result
}

// Exchanges 获取当前缓存的交易所列表（排序后，便于确定性遍历）
func (b *Book) Exchanges() []string {
	names := make([]string, 0, len(b.levels))
	for exchange := range b.levels {
		names = append(names, exchange)
	}
	sort.Strings(names)
	return names
}

// Stats 获取缓存统计快照
func (b *Book) Stats() Stats {
	return Stats{
		Exchanges: len(b.levels),
		Updates:   b.updates,
		Rejected:  b.rejected,
	}
}
