// Package latency 时延追踪器测试
package latency

import (
	"math"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestTracker_SingleSample 测试单样本的时延计算
func TestTracker_SingleSample(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("单样本时 P50/P90/P99 均等于该样本", prop.ForAll(
		func(lagNs int64) bool {
			tr := NewTracker(100)
			tr.Observe("binance", lagNs)
			stats := tr.Stats("binance")

			wantMs := float64(lagNs) / 1_000_000.0
			return approxEqual(stats.P50Ms, wantMs, 1e-9) &&
				approxEqual(stats.P90Ms, wantMs, 1e-9) &&
				approxEqual(stats.P99Ms, wantMs, 1e-9) &&
				stats.Count == 1
		},
		gen.Int64Range(0, 60_000_000_000),
	))

	properties.TestingRun(t)
}

// TestTracker_Percentiles 测试分位数与排序结果一致
func TestTracker_Percentiles(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("P50/P90/P99 与排序分位数一致", prop.ForAll(
		func(lagsMs []int64) bool {
			if len(lagsMs) < 3 {
				return true
			}

			tr := NewTracker(1000)
			for _, ms := range lagsMs {
				tr.Observe("okx", ms*1_000_000)
			}

			stats := tr.Stats("okx")

			sorted := make([]int64, len(lagsMs))
			copy(sorted, lagsMs)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

			want50 := float64(sorted[idxQuantile(sorted, 0.50)])
			want90 := float64(sorted[idxQuantile(sorted, 0.90)])
			want99 := float64(sorted[idxQuantile(sorted, 0.99)])

			return approxEqual(stats.P50Ms, want50, 1e-9) &&
				approxEqual(stats.P90Ms, want90, 1e-9) &&
				approxEqual(stats.P99Ms, want99, 1e-9)
		},
		gen.SliceOfN(20, gen.Int64Range(0, 5000)),
	))

	properties.TestingRun(t)
}

// TestTracker_ExchangeIndependence 测试各交易所统计相互独立
func TestTracker_ExchangeIndependence(t *testing.T) {
	tr := NewTracker(100)

	tr.Observe("okx", 10*1_000_000)
	tr.Observe("binance", 100*1_000_000)

	okxStats := tr.Stats("okx")
	binStats := tr.Stats("binance")

	if math.Abs(okxStats.P50Ms-10) > 1e-9 {
		t.Fatalf("okx P50Ms=%f, want 10", okxStats.P50Ms)
	}
	if math.Abs(binStats.P50Ms-100) > 1e-9 {
		t.Fatalf("binance P50Ms=%f, want 100", binStats.P50Ms)
	}

	exchanges := tr.Exchanges()
	if len(exchanges) != 2 || exchanges[0] != "binance" || exchanges[1] != "okx" {
		t.Fatalf("Exchanges = %v, want [binance okx]", exchanges)
	}
}

// TestTracker_NegativeSamples 测试负样本丢弃
func TestTracker_NegativeSamples(t *testing.T) {
	tr := NewTracker(100)
	tr.Observe("binance", -1)
	if stats := tr.Stats("binance"); stats.Count != 0 {
		t.Fatalf("负样本不应被记录, Count=%d", stats.Count)
	}
}

func idxQuantile(sorted []int64, q float64) int {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return 0
	}
	if q >= 1 {
		return len(sorted) - 1
	}
	idx := int(float64(len(sorted)-1) * q)
	if idx < 0 {
		return 0
	}
	if idx >= len(sorted) {
		return len(sorted) - 1
	}
	return idx
}

func approxEqual(a, b float64, eps float64) bool {
	return math.Abs(a-b) <= eps
}
