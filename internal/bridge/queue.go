// Package bridge 实现采集域与检测域之间的有界传输队列。
// 采集域多个 Feed 客户端并发写入，检测域单 goroutine 消费，
// 二者通过本队列解耦：检测域消费不及时时丢弃最旧数据，
// 保证缓存中始终是最新报价（旧报价对价差评估没有价值）。
package bridge

import (
	"context"
	"fmt"
	"sync/atomic"

	"arbitrage-sniper/internal/core/model"
)

// DefaultCapacity 默认队列容量
const DefaultCapacity = 1000

// Queue 有界传输队列（满时丢最旧）
type Queue struct {
	// ch 底层缓冲通道
	ch chan *model.Tick
	// enqueued 成功入队总数
	enqueued atomic.Int64
	// dropped 因队列满被丢弃的最旧消息总数
	dropped atomic.Int64
}

// Stats 队列统计快照
type Stats struct {
	// Depth 当前队列深度
	Depth int
	// Capacity 队列容量
	Capacity int
	// Enqueued 成功入队总数
	Enqueued int64
	// Dropped 被丢弃的消息总数
	Dropped int64
}

// New 创建传输队列
// 参数 capacity: 队列容量，必须为正数
// 返回: 队列实例；容量非法时返回错误（进程启动期唯一的致命条件之一）
func New(capacity int) (*Queue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("队列容量必须为正数: %d", capacity)
	}
	return &Queue{ch: make(chan *model.Tick, capacity)}, nil
}

// Offer 入队一条 Tick（非阻塞）
// 队列满时先丢弃最旧的一条再入队新数据，采集端绝不因消费端而阻塞。
// 返回: 入队过程中是否发生了丢弃
func (q *Queue) Offer(t *model.Tick) bool {
	droppedAny := false
	for {
		select {
		case q.ch <- t:
			q.enqueued.Add(1)
			return droppedAny
		default:
			// 队列满：腾出最旧的一条
			// 并发入队时可能有别的 goroutine 先腾出了位置，
			// 此时 drain 会落空，回到外层循环重试即可。
			select {
			case <-q.ch:
				q.dropped.Add(1)
				droppedAny = true
			default:
			}
		}
	}
}

// Pop 出队一条 Tick（阻塞）
// 返回: Tick；上下文取消时返回 nil
func (q *Queue) Pop(ctx context.Context) *model.Tick {
	select {
	case t := <-q.ch:
		return t
	case <-ctx.Done():
		return nil
	}
}

// TryPop 出队一条 Tick（非阻塞）
// 返回: Tick；队列空时返回 nil
func (q *Queue) TryPop() *model.Tick {
	select {
	case t := <-q.ch:
		return t
	default:
		return nil
	}
}

// Stats 获取队列统计快照
func (q *Queue) Stats() Stats {
	return Stats{
		Depth:    len(q.ch),
		Capacity: cap(q.ch),
		Enqueued: q.enqueued.Load(),
		Dropped:  q.dropped.Load(),
	}
}
