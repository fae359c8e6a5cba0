// Package timeutil 提供时间相关的工具函数。
// 主要用于获取毫秒级时间戳，用于新鲜度判定、陈旧过滤与延迟测量。
package timeutil

import (
	"time"
)

var (
	// baseTime 基准时间点（包含单调时钟读数）
	baseTime = time.Now()
	// baseUnixNs 基准时间点对应的 Unix 纳秒时间戳
	baseUnixNs = baseTime.UnixNano()
)

// NowNano 获取当前时间的纳秒时间戳
// 使用“单调时钟 + 启动时 Unix 时间”组合实现：
// NowNano = baseUnixNs + time.Since(baseTime).Nanoseconds()
// 系统时间跳变（NTP/手动调整）时仍能保持时间差的单调性，
// 避免污染新鲜度判定与延迟统计。
func NowNano() int64 {
	return baseUnixNs + time.Since(baseTime).Nanoseconds()
}

// NowMs 获取当前时间的毫秒时间戳
// 交易所行情时间戳通常为毫秒，缓存与信号均以毫秒为基准。
func NowMs() int64 {
	return NowNano() / 1_000_000
}

// AbsDiffMs 计算两个毫秒时间戳的绝对差值
// 用于新鲜度窗口判定（时钟偏斜可能导致事件时间在未来）。
func AbsDiffMs(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
