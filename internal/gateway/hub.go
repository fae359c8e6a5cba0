// Package gateway 实现信号分发网关。
// 将发布器的广播通道扇出给所有 WebSocket 订阅者，
// 并提供信号历史的 HTTP 查询。
package gateway

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"arbitrage-sniper/internal/core/model"
)

// DefaultSnapshotSize 新订阅者接入时推送的最近信号条数
const DefaultSnapshotSize = 20

// subscriberBuffer 单个订阅者的发送缓冲大小
const subscriberBuffer = 64

// subscriber 单个 WebSocket 订阅者
// send 缓冲满时丢弃该订阅者的信号份，慢速消费者不拖慢整体分发。
type subscriber struct {
	send chan model.Signal
}

// Hub 信号扇出中心
type Hub struct {
	logger *zap.Logger
	// snapshotSize 接入快照条数
	snapshotSize int
	// history 历史查询来源（发布器）
	history HistoryProvider

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}

	// dropped 因订阅者缓冲满被丢弃的信号份数
	dropped int64
}

// HistoryProvider 信号历史查询接口（由发布器实现）
type HistoryProvider interface {
	// History 获取最近的信号（最新在前）
	History(limit int) []model.Signal
}

// NewHub 创建扇出中心
// 参数 snapshotSize: 接入快照条数，<=0 时使用默认 20
func NewHub(history HistoryProvider, snapshotSize int, logger *zap.Logger) *Hub {
	if snapshotSize <= 0 {
		snapshotSize = DefaultSnapshotSize
	}
	return &Hub{
		logger:       logger.Named("hub"),
		snapshotSize: snapshotSize,
		history:      history,
		subscribers:  make(map[*subscriber]struct{}),
	}
}

// Run 消费广播通道并扇出（阻塞）
// 上下文取消后返回，所有订阅者的发送通道被关闭。
func (h *Hub) Run(ctx context.Context, broadcast <-chan model.Signal) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-broadcast:
			if !ok {
				return
			}
			h.fanOut(sig)
		}
	}
}

// Register 注册一个新订阅者
// 接入时先推送最近 snapshotSize 条历史信号（按时间先后），随后接收实时信号。
// 返回: 订阅者句柄；注销请调用 Unregister
func (h *Hub) Register() *subscriber {
	sub := &subscriber{send: make(chan model.Signal, subscriberBuffer)}

	// History 返回最新在前，倒序入队使订阅者看到的流按时间单调递增，
	// 快照与其后的实时信号衔接为同一条时间线
	snapshot := h.history.History(h.snapshotSize)
	for i := len(snapshot) - 1; i >= 0; i-- {
		select {
		case sub.send <- snapshot[i]:
		default:
		}
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Info("订阅者接入", zap.Int("subscribers", count))
	return sub
}

// Unregister 注销订阅者并关闭其发送通道
func (h *Hub) Unregister(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Info("订阅者离开", zap.Int("subscribers", count))
}

// Subscribers 获取当前订阅者数量
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) fanOut(sig model.Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		select {
		case sub.send <- sig:
		default:
			h.dropped++
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.send)
	}
}
