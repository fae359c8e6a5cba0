// Package binance 消息解析测试
package binance

import (
	"encoding/json"
	"testing"

	"arbitrage-sniper/internal/core/model"
	"arbitrage-sniper/internal/symbols"
)

func testMaps(t *testing.T) map[string]*symbols.SymbolMap {
	t.Helper()
	maps, err := symbols.Build([]string{"BTC/USDT"})
	if err != nil {
		t.Fatalf("symbols.Build: %v", err)
	}
	return maps
}

// TestParse_Trade 测试逐笔成交解析
func TestParse_Trade(t *testing.T) {
	p := NewParser(testMaps(t))

	raw := `{"e":"trade","E":1700000000100,"s":"BTCUSDT","t":12345,"p":"45100.50","q":"0.012","T":1700000000099}`
	ticks, err := p.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ticks) != 1 {
		t.Fatalf("len(ticks) = %d, want 1", len(ticks))
	}

	tick := ticks[0]
	if tick.Exchange != model.ExchangeBinance {
		t.Errorf("Exchange = %s", tick.Exchange)
	}
	if tick.Symbol != "BTC/USDT" {
		t.Errorf("Symbol = %s, want BTC/USDT", tick.Symbol)
	}
	if tick.Price != 45100.50 {
		t.Errorf("Price = %v", tick.Price)
	}
	if tick.Volume != 0.012 {
		t.Errorf("Volume = %v", tick.Volume)
	}
	if tick.TimestampMs != 1700000000099 {
		t.Errorf("TimestampMs = %d, want 成交时间 T", tick.TimestampMs)
	}
	if tick.Kind != model.KindTrade {
		t.Errorf("Kind = %s", tick.Kind)
	}
}

// TestParse_NonTrade 测试非成交消息忽略
func TestParse_NonTrade(t *testing.T) {
	p := NewParser(testMaps(t))

	for _, raw := range []string{
		`{"result":null,"id":1}`,
		`{"e":"aggTrade","E":1700000000100,"s":"BTCUSDT","p":"45100.50","q":"0.012"}`,
	} {
		ticks, err := p.Parse([]byte(raw))
		if err != nil {
			t.Errorf("Parse(%s): %v", raw, err)
		}
		if len(ticks) != 0 {
			t.Errorf("非成交消息应返回空, got %d", len(ticks))
		}
	}
}

// TestParse_UnknownSymbol 测试未配置交易对过滤
func TestParse_UnknownSymbol(t *testing.T) {
	p := NewParser(testMaps(t))

	raw := `{"e":"trade","E":1700000000100,"s":"ETHUSDT","p":"2500.00","q":"1.0","T":1700000000099}`
	ticks, err := p.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ticks) != 0 {
		t.Errorf("未配置交易对应被过滤, got %d", len(ticks))
	}
}

// TestParse_Invalid 测试非法消息
func TestParse_Invalid(t *testing.T) {
	p := NewParser(testMaps(t))

	if _, err := p.Parse([]byte(`not json`)); err == nil {
		t.Errorf("非 JSON 消息应返回错误")
	}
	if _, err := p.Parse([]byte(`{"e":"trade","s":"BTCUSDT","p":"abc","q":"0.1","T":1}`)); err == nil {
		t.Errorf("非法价格应返回错误")
	}
}

// TestNewSpec_SubscribeFrames 测试订阅报文生成
func TestNewSpec_SubscribeFrames(t *testing.T) {
	spec := NewSpec("wss://stream.binance.com:9443/ws", testMaps(t))

	if spec.Exchange != model.ExchangeBinance {
		t.Errorf("Exchange = %s", spec.Exchange)
	}
	if spec.PingFrame != nil {
		t.Errorf("Binance 应使用协议层心跳")
	}

	frames, err := spec.SubscribeFrames()
	if err != nil {
		t.Fatalf("SubscribeFrames: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("len(frames) = %d, want 1", len(frames))
	}

	var req SubscribeRequest
	if err := json.Unmarshal(frames[0], &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if req.Method != "SUBSCRIBE" {
		t.Errorf("Method = %s", req.Method)
	}
	if len(req.Params) != 1 || req.Params[0] != "btcusdt@trade" {
		t.Errorf("Params = %v, want [btcusdt@trade]", req.Params)
	}
}
