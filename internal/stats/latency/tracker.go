// Package latency 实现行情链路时延测量和统计。
// 为每个交易所维护独立的滚动窗口追踪器，
// 度量从交易所事件时间到检测域处理时刻的端到端时延。
package latency

import (
	"sort"
	"sync"
)

// Stats 时延统计快照（滚动窗口）
// 单位：毫秒。
type Stats struct {
	// Exchange 交易所名称
	Exchange string
	// Count 样本总数（累计）
	Count int64

	// P50Ms P50 时延（毫秒）
	P50Ms float64
	// P90Ms P90 时延（毫秒）
	P90Ms float64
	// P99Ms P99 时延（毫秒）
	P99Ms float64
}

type rollingWindow struct {
	size  int
	buf   []int64
	pos   int
	count int64
	full  bool

	mu sync.Mutex
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{size: size, buf: make([]int64, 0, size)}
}

func (w *rollingWindow) add(v int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.count++
	if w.size <= 0 {
		return
	}

	if !w.full {
		w.buf = append(w.buf, v)
		if len(w.buf) == w.size {
			w.full = true
			w.pos = 0
		}
		return
	}

	w.buf[w.pos] = v
	w.pos++
	if w.pos >= w.size {
		w.pos = 0
	}
}

func (w *rollingWindow) snapshotQuantiles(qs ...float64) (count int64, values []int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	count = w.count
	if len(w.buf) == 0 {
		return count, make([]int64, len(qs))
	}

	tmp := make([]int64, len(w.buf))
	copy(tmp, w.buf)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })

	values = make([]int64, len(qs))
	n := len(tmp)
	for i, q := range qs {
		if q <= 0 {
			values[i] = tmp[0]
			continue
		}
		if q >= 1 {
			values[i] = tmp[n-1]
			continue
		}
		idx := int(float64(n-1) * q)
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		values[i] = tmp[idx]
	}
	return count, values
}

// Tracker 时延追踪器
// 为每个交易所维护独立的滚动窗口统计，Observe 与 Stats 可并发调用。
type Tracker struct {
	windowSize int

	mu      sync.Mutex
	windows map[string]*rollingWindow
}

// NewTracker 创建时延追踪器
// 参数 windowSize: 滚动窗口大小（建议 10000），用于 P50/P90/P99。
func NewTracker(windowSize int) *Tracker {
	return &Tracker{
		windowSize: windowSize,
		windows:    make(map[string]*rollingWindow, 4),
	}
}

func (t *Tracker) window(exchange string) *rollingWindow {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[exchange]
	if !ok {
		w = newRollingWindow(t.windowSize)
		t.windows[exchange] = w
	}
	return w
}

// Observe 记录一条时延样本
// 参数 lagNs: 端到端时延（纳秒），负数样本丢弃（时钟偏斜时可能出现）。
func (t *Tracker) Observe(exchange string, lagNs int64) {
	if exchange == "" || lagNs < 0 {
		return
	}
	t.window(exchange).add(lagNs)
}

// Stats 获取指定交易所的统计快照
func (t *Tracker) Stats(exchange string) Stats {
	t.mu.Lock()
	w, ok := t.windows[exchange]
	t.mu.Unlock()
	if !ok {
		return Stats{Exchange: exchange}
	}

	count, qs := w.snapshotQuantiles(0.50, 0.90, 0.99)
	return Stats{
		Exchange: exchange,
		Count:    count,
		P50Ms:    float64(qs[0]) / 1_000_000.0,
		P90Ms:    float64(qs[1]) / 1_000_000.0,
		P99Ms:    float64(qs[2]) / 1_000_000.0,
	}
}

// Exchanges 获取已记录样本的交易所列表（排序后）
func (t *Tracker) Exchanges() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.windows))
	for name := range t.windows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
