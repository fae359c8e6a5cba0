// Package book 报价缓存测试
package book

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestBook_SyntheticLevel 测试合成 bid/ask 推导
func TestBook_SyntheticLevel(t *testing.T) {
	b := New(DefaultStaleThresholdMs, 0.0001)

	if !b.Update("binance", "BTC/USDT", 45100.00, 1_000) {
		t.Fatalf("首次更新应被接受")
	}

	level, ok := b.Get("binance", "BTC/USDT")
	if !ok {
		t.Fatalf("更新后应能读到报价")
	}
	wantBid := 45100.00 * 0.9999
	wantAsk := 45100.00 * 1.0001
	if math.Abs(level.Bid-wantBid) > 1e-9 {
		t.Errorf("Bid = %v, want %v", level.Bid, wantBid)
	}
	if math.Abs(level.Ask-wantAsk) > 1e-9 {
		t.Errorf("Ask = %v, want %v", level.Ask, wantAsk)
	}
	if level.TimestampMs != 1_000 {
		t.Errorf("TimestampMs = %d, want 1000", level.TimestampMs)
	}
}

// TestBook_OutOfOrder 测试乱序保护
// 时间戳更旧的更新为 no-op；时间戳相等的更新覆盖
func TestBook_OutOfOrder(t *testing.T) {
	b := New(DefaultStaleThresholdMs, 0.0001)

	b.Update("binance", "BTC/USDT", 45100.00, 2_000)

	if b.Update("binance", "BTC/USDT", 44000.00, 1_999) {
		t.Errorf("更旧时间戳的更新应被拒绝")
	}
	level, _ := b.Get("binance", "BTC/USDT")
	if math.Abs(level.Mid()-45100.00) > 1e-6 {
		t.Errorf("被拒绝的更新不应改变缓存, Mid = %v", level.Mid())
	}

	if !b.Update("binance", "BTC/USDT", 45200.00, 2_000) {
		t.Errorf("相同时间戳的更新应覆盖")
	}
	level, _ = b.Get("binance", "BTC/USDT")
	if math.Abs(level.Mid()-45200.00) > 1e-6 {
		t.Errorf("相同时间戳更新后 Mid = %v, want 45200", level.Mid())
	}

	stats := b.Stats()
	if stats.Updates != 2 || stats.Rejected != 1 {
		t.Errorf("Stats = %+v, want Updates=2 Rejected=1", stats)
	}
}

// TestBook_FreshLevels 测试陈旧过滤
// 超过 staleMs 未更新的报价在评估时视为缺失
func TestBook_FreshLevels(t *testing.T) {
	b := New(5_000, 0.0001)

	b.Update("binance", "BTC/USDT", 45100.00, 10_000)
	b.Update("okx", "BTC/USDT", 45150.00, 4_000)
	b.Update("bybit", "BTC/USDT", 45120.00, 5_000)
	b.Update("binance", "ETH/USDT", 2500.00, 10_000)

	fresh := b.FreshLevels("BTC/USDT", 10_000)
	if len(fresh) != 2 {
		t.Fatalf("len(fresh) = %d, want 2", len(fresh))
	}
	if _, ok := fresh["okx"]; ok {
		t.Errorf("okx 报价已陈旧 6000ms，应被过滤")
	}
	if _, ok := fresh["bybit"]; !ok {
		t.Errorf("bybit 报价恰好 5000ms，应保留（边界含）")
	}
	if _, ok := fresh["binance"]; !ok {
		t.Errorf("binance 报价应保留")
	}
}

// TestBook_InvalidUpdate 测试非法更新拒绝
func TestBook_InvalidUpdate(t *testing.T) {
	b := New(DefaultStaleThresholdMs, 0.0001)

	if b.Update("", "BTC/USDT", 45100, 1_000) {
		t.Errorf("exchange 为空应被拒绝")
	}
	if b.Update("binance", "", 45100, 1_000) {
		t.Errorf("symbol 为空应被拒绝")
	}
	if b.Update("binance", "BTC/USDT", 0, 1_000) {
		t.Errorf("price=0 应被拒绝")
	}
	if b.Update("binance", "BTC/USDT", -1, 1_000) {
		t.Errorf("负价格应被拒绝")
	}
}

// TestBook_Exchanges 测试交易所列表排序
func TestBook_Exchanges(t *testing.T) {
	b := New(DefaultStaleThresholdMs, 0.0001)
	b.Update("okx", "BTC/USDT", 45100, 1_000)
	b.Update("binance", "BTC/USDT", 45100, 1_000)
	b.Update("bybit", "BTC/USDT", 45100, 1_000)

	got := b.Exchanges()
	want := []string{"binance", "bybit", "okx"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Exchanges[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

// TestBook_Monotonic_Property 缓存单调性属性测试
// 属性: 任意更新序列后，缓存中的时间戳等于该交易所/交易对被接受更新的最大时间戳
func TestBook_Monotonic_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("缓存时间戳单调不减", prop.ForAll(
		func(timestamps []int64) bool {
			b := New(DefaultStaleThresholdMs, 0.0001)
			maxTs := int64(-1)
			for _, ts := range timestamps {
				b.Update("binance", "BTC/USDT", 45100, ts)
				if ts > maxTs {
					maxTs = ts
				}
			}
			if len(timestamps) == 0 {
				_, ok := b.Get("binance", "BTC/USDT")
				return !ok
			}
			level, ok := b.Get("binance", "BTC/USDT")
			return ok && level.TimestampMs == maxTs
		},
		gen.SliceOf(gen.Int64Range(1, 1_000_000)),
	))

	properties.Property("合成 bid 恒小于 ask", prop.ForAll(
		func(price float64) bool {
			b := New(DefaultStaleThresholdMs, 0.0001)
			b.Update("binance", "BTC/USDT", price, 1_000)
			level, ok := b.Get("binance", "BTC/USDT")
			return ok && level.Bid < level.Ask && level.Bid > 0
		},
		gen.Float64Range(0.0001, 1e9),
	))

	properties.TestingRun(t)
}
