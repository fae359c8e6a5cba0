// Package publish 实现套利信号的构建、历史保留与分发。
// 信号由检测域单 goroutine 产出；历史环形缓冲加锁保护，
// 供网关并发读取快照与历史查询。
package publish

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"arbitrage-sniper/internal/core/model"
	"arbitrage-sniper/internal/core/spread"
)

// DefaultHistorySize 默认信号历史保留条数
const DefaultHistorySize = 1000

// DefaultBroadcastBuffer 默认广播通道缓冲大小
const DefaultBroadcastBuffer = 256

// Sink 信号下游投递接口
// Deliver 必须非阻塞：慢速下游自行缓冲或丢弃，不得拖慢检测域。
type Sink interface {
	Deliver(sig model.Signal)
}

// Stats 发布统计快照
type Stats struct {
	// Published 已发布信号总数
	Published int64
	// BroadcastDropped 广播通道满被丢弃的信号总数
	BroadcastDropped int64
	// HistoryLen 当前历史保留条数
	HistoryLen int
}

// Publisher 信号发布器
type Publisher struct {
	logger      *zap.Logger
	historySize int

	mu      sync.Mutex
	history []model.Signal

	// out 广播通道，网关从此消费并扇出到订阅者
	out chan model.Signal

	sinks []Sink

	published        atomic.Int64
	broadcastDropped atomic.Int64
}

// New 创建信号发布器
// 参数 historySize: 历史保留条数，<=0 时使用默认 1000
// 参数 sinks: 下游投递端（Redis 等），可为空
func New(logger *zap.Logger, historySize int, sinks ...Sink) *Publisher {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Publisher{
		logger:      logger.Named("publish"),
		historySize: historySize,
		history:     make([]model.Signal, 0, historySize),
		out:         make(chan model.Signal, DefaultBroadcastBuffer),
		sinks:       sinks,
	}
}

// Build 由机会构建信号
// 精度约定: 价差保留 4 位小数，价格与预估收益保留 2 位。
func Build(op *model.Opportunity, nowMs int64) model.Signal {
	return model.Signal{
		ID:             uuid.NewString(),
		Kind:           model.SignalKind,
		Action:         model.DeriveAction(op.BuyExchange, op.SellExchange),
		Symbol:         op.Symbol,
		SpreadPct:      spread.Round(op.SpreadPct, 4),
		BuyPrice:       spread.Round(op.BuyPrice, 2),
		SellPrice:      spread.Round(op.SellPrice, 2),
		ProfitEstimate: spread.Round(op.ProfitPerUnit, 2),
		GeneratedAtMs:  nowMs,
	}
}

// Publish 发布一个机会
// 依次完成: 构建信号 → 写入历史（满则淘汰最旧）→ 广播 → 投递下游。
// 全程非阻塞，广播通道满时丢弃该信号的广播份（历史与下游不受影响）。
// 返回: 构建出的信号
func (p *Publisher) Publish(op *model.Opportunity, nowMs int64) model.Signal {
	sig := Build(op, nowMs)

	p.mu.Lock()
	p.history = append(p.history, sig)
	if len(p.history) > p.historySize {
		p.history = p.history[len(p.history)-p.historySize:]
	}
	p.mu.Unlock()

	select {
	case p.out <- sig:
	default:
		p.broadcastDropped.Add(1)
	}

	for _, sink := range p.sinks {
		sink.Deliver(sig)
	}

	p.published.Add(1)
	p.logger.Info("套利信号",
		zap.String("action", sig.Action),
		zap.String("symbol", sig.Symbol),
		zap.Float64("spread_pct", sig.SpreadPct),
		zap.Float64("buy_price", sig.BuyPrice),
		zap.Float64("sell_price", sig.SellPrice),
	)
	return sig
}

// Broadcast 获取广播通道（只读）
func (p *Publisher) Broadcast() <-chan model.Signal {
	return p.out
}

// History 获取最近的信号（最新在前）
// 参数 limit: 最大返回条数，<=0 时返回全部保留历史
func (p *Publisher) History(limit int) []model.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	result := make([]model.Signal, limit)
	for i := 0; i < limit; i++ {
		result[i] = p.history[n-1-i]
	}
	return result
}

// Stats 获取发布统计快照
func (p *Publisher) Stats() Stats {
	p.mu.Lock()
	historyLen := len(p.history)
	p.mu.Unlock()
	return Stats{
		Published:        p.published.Load(),
		BroadcastDropped: p.broadcastDropped.Load(),
		HistoryLen:       historyLen,
	}
}
