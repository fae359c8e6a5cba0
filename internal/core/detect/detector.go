// Package detect 实现检测域主循环。
// 单 goroutine 从传输队列消费归一化 Tick，依次完成
// 缓存更新 → 价差评估 → 阈值筛选 → 信号发布。
// 单写者模型：Book 只在本循环内读写，天然无竞态。
package detect

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"arbitrage-sniper/internal/bridge"
	"arbitrage-sniper/internal/core/book"
	"arbitrage-sniper/internal/core/model"
	"arbitrage-sniper/internal/core/publish"
	"arbitrage-sniper/internal/core/spread"
	"arbitrage-sniper/internal/stats/latency"
	"arbitrage-sniper/internal/util/timeutil"
)

// Config 检测域配置
type Config struct {
	// SpreadThresholdPct 价差阈值（百分比），严格大于才发布
	SpreadThresholdPct float64
	// StaleThresholdMs 报价陈旧阈值（毫秒）
	StaleThresholdMs int64
	// HalfSpread 合成半价差 ε
	HalfSpread float64
}

// Stats 检测统计快照
type Stats struct {
	// Consumed 已消费 Tick 总数
	Consumed int64
	// Rejected 缓存乱序拒绝总数
	Rejected int64
	// Evaluated 价差评估总次数
	Evaluated int64
	// Signals 已发布信号总数
	Signals int64
}

// Detector 价差检测器
type Detector struct {
	cfg       Config
	logger    *zap.Logger
	queue     *bridge.Queue
	book      *book.Book
	publisher *publish.Publisher
	tracker   *latency.Tracker

	consumed  atomic.Int64
	rejected  atomic.Int64
	evaluated atomic.Int64
	signals   atomic.Int64
}

// New 创建检测器
// 参数 tracker: 时延追踪器，可为 nil（不记录时延）
func New(cfg Config, queue *bridge.Queue, publisher *publish.Publisher, tracker *latency.Tracker, logger *zap.Logger) *Detector {
	if cfg.SpreadThresholdPct <= 0 {
		cfg.SpreadThresholdPct = spread.DefaultThresholdPct
	}
	return &Detector{
		cfg:       cfg,
		logger:    logger.Named("detect"),
		queue:     queue,
		book:      book.New(cfg.StaleThresholdMs, cfg.HalfSpread),
		publisher: publisher,
		tracker:   tracker,
	}
}

// Run 启动检测主循环（阻塞）
// 上下文取消后返回。
func (d *Detector) Run(ctx context.Context) {
	d.logger.Info("检测循环启动",
		zap.Float64("threshold_pct", d.cfg.SpreadThresholdPct),
	)
	for {
		t := d.queue.Pop(ctx)
		if t == nil {
			d.logger.Info("检测循环退出")
			return
		}
		d.Process(t, timeutil.NowMs())
	}
}

// Process 处理单条 Tick（确定性，便于测试）
// 返回: 本次处理产生的信号；未产生时返回 nil
func (d *Detector) Process(t *model.Tick, nowMs int64) *model.Signal {
	d.consumed.Add(1)

	if d.tracker != nil {
		d.tracker.Observe(t.Exchange, (nowMs-t.TimestampMs)*1_000_000)
	}

	if !d.book.Update(t.Exchange, t.Symbol, t.Price, t.TimestampMs) {
		d.rejected.Add(1)
		return nil
	}

	fresh := d.book.FreshLevels(t.Symbol, nowMs)
	if len(fresh) < 2 {
		return nil
	}

	d.evaluated.Add(1)
	op := spread.FindBest(t.Symbol, fresh)
	if !spread.Qualify(op, d.cfg.SpreadThresholdPct) {
		return nil
	}

	sig := d.publisher.Publish(op, nowMs)
	d.signals.Add(1)
	return &sig
}

// Book 获取报价缓存（仅限检测 goroutine 或测试使用）
func (d *Detector) Book() *book.Book {
	return d.book
}

// Stats 获取检测统计快照
func (d *Detector) Stats() Stats {
	return Stats{
		Consumed:  d.consumed.Load(),
		Rejected:  d.rejected.Load(),
		Evaluated: d.evaluated.Load(),
		Signals:   d.signals.Load(),
	}
}
