// Package backoff 实现指数退避重连机制。
// 用于行情 WebSocket 断线重连时的延迟计算，避免频繁重连导致交易所拒绝。
// 延迟公式: min(base · 2^attempt, max)，基础间隔 1s，最大间隔 30s，可选抖动。
package backoff

import (
	"math/rand"
	"time"
)

// Backoff 指数退避计算器
// 每次调用 Next() 返回下一次重试的等待时间并递增重试计数；
// 连接成功后必须调用 Reset() 将计数归零。
type Backoff struct {
	// base 基础等待时间
	base time.Duration
	// max 最大等待时间
	max time.Duration
	// jitter 抖动比例（0-1），0 表示延迟完全确定
	jitter float64
	// attempt 当前重试次数
	attempt int
}

// New 创建新的退避计算器
// 参数 base: 基础等待时间（建议 1s）
// 参数 max: 最大等待时间（建议 30s）
// 参数 jitter: 抖动比例（建议 0.2，即 ±20%）
func New(base, max time.Duration, jitter float64) *Backoff {
	return &Backoff{
		base:   base,
		max:    max,
		jitter: jitter,
	}
}

// NewDefault 创建默认配置的退避计算器
// 基础间隔 1s，最大间隔 30s，抖动 ±20%
func NewDefault() *Backoff {
	return New(time.Second, 30*time.Second, 0.2)
}

// Next 获取下次重试的等待时间
// 计算公式: min(base · 2^attempt, max)，然后应用抖动
func (b *Backoff) Next() time.Duration {
	// 位移实现 2^attempt，避免浮点运算。
	// 持续断连时 attempt 会一直增长，先判断 base·2^attempt 是否超过 max
	// 再位移，防止 int64 溢出为负值绕过上限（负延迟会退化为热重连）。
	delay := b.max
	if b.attempt < 63 && b.base <= b.max>>b.attempt {
		delay = b.base << b.attempt
	}

	// 抖动范围: [delay·(1−jitter), delay·(1+jitter)]
	if b.jitter > 0 {
		jitterFactor := 1.0 + (rand.Float64()*2-1)*b.jitter
		delay = time.Duration(float64(delay) * jitterFactor)
	}

	b.attempt++

	return delay
}

// Reset 重置退避计算器
// 连接成功进入 CONNECTED 状态后调用，重试次数归零。
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt 获取当前重试次数
// 对外暴露给健康上报（reconnectAttempts）。
func (b *Backoff) Attempt() int {
	return b.attempt
}
