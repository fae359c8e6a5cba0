// Package symbols 交易对映射测试
package symbols

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestParse_Spellings 测试各交易所拼写推导
func TestParse_Spellings(t *testing.T) {
	m, err := Parse("BTC/USDT")
	if err != nil {
		t.Fatalf("Parse 失败: %v", err)
	}
	if m.Canon != "BTC/USDT" {
		t.Errorf("Canon = %s, want BTC/USDT", m.Canon)
	}
	if m.BinanceSym != "BTCUSDT" {
		t.Errorf("BinanceSym = %s, want BTCUSDT", m.BinanceSym)
	}
	if m.OKXInstId != "BTC-USDT" {
		t.Errorf("OKXInstId = %s, want BTC-USDT", m.OKXInstId)
	}
	if m.BybitSym != "BTCUSDT" {
		t.Errorf("BybitSym = %s, want BTCUSDT", m.BybitSym)
	}
}

// TestParse_Invalid 测试非法输入
func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "BTCUSDT", "BTC/", "/USDT", "BTC/USDT/X"} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) 应返回错误", input)
		}
	}
}

// TestParse_Consistency 测试不同分隔格式的标准化一致性
// 属性: 同一交易对的不同输入格式应映射到相同的 Canon
func TestParse_Consistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	coins := []string{"BTC", "ETH", "SOL", "DOGE", "XRP", "ADA", "DOT", "LINK", "UNI", "AVAX"}

	properties.Property("分隔符与大小写不影响标准化结果", prop.ForAll(
		func(baseIdx int, quoteIdx int) bool {
			base := coins[baseIdx%len(coins)]
			quote := coins[quoteIdx%len(coins)]

			withDash, _ := Parse(base + "-" + quote)
			withUnderscore, _ := Parse(base + "_" + quote)
			withSlash, _ := Parse(base + "/" + quote)
			lower, _ := Parse(strings.ToLower(base + "/" + quote))

			if withDash == nil || withUnderscore == nil || withSlash == nil || lower == nil {
				return false
			}
			return withDash.Canon == withSlash.Canon &&
				withUnderscore.Canon == withSlash.Canon &&
				lower.Canon == withSlash.Canon
		},
		gen.IntRange(0, 100),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

// TestBuild_Indexes 测试反查索引
func TestBuild_Indexes(t *testing.T) {
	maps, err := Build([]string{"BTC/USDT", "ETH/USDT"})
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	if len(maps) != 2 {
		t.Fatalf("len(maps) = %d, want 2", len(maps))
	}

	if canon := BinanceIndex(maps)["ETHUSDT"]; canon != "ETH/USDT" {
		t.Errorf("BinanceIndex[ETHUSDT] = %s, want ETH/USDT", canon)
	}
	if canon := OKXIndex(maps)["BTC-USDT"]; canon != "BTC/USDT" {
		t.Errorf("OKXIndex[BTC-USDT] = %s, want BTC/USDT", canon)
	}
	if canon := BybitIndex(maps)["BTCUSDT"]; canon != "BTC/USDT" {
		t.Errorf("BybitIndex[BTCUSDT] = %s, want BTC/USDT", canon)
	}
}
