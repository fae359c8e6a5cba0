// Package gateway 分发网关测试
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"arbitrage-sniper/internal/core/model"
)

type fakeHistory struct {
	signals []model.Signal
}

// History 返回最近 limit 条（最新在前）
func (f *fakeHistory) History(limit int) []model.Signal {
	n := len(f.signals)
	if limit <= 0 || limit > n {
		limit = n
	}
	result := make([]model.Signal, limit)
	for i := 0; i < limit; i++ {
		result[i] = f.signals[n-1-i]
	}
	return result
}

func makeSignals(n int) []model.Signal {
	signals := make([]model.Signal, n)
	for i := range signals {
		signals[i] = model.Signal{
			ID:            "sig-" + string(rune('a'+i%26)),
			Kind:          model.SignalKind,
			Action:        "BUY_BINANCE_SELL_OKX",
			Symbol:        "BTC/USDT",
			GeneratedAtMs: int64(i),
		}
	}
	return signals
}

// TestHub_SnapshotOnRegister 测试接入快照
// 新订阅者应先收到最近 20 条历史信号，按时间先后排列
func TestHub_SnapshotOnRegister(t *testing.T) {
	history := &fakeHistory{signals: makeSignals(30)}
	hub := NewHub(history, 20, zap.NewNop())

	sub := hub.Register()
	defer hub.Unregister(sub)

	if got := len(sub.send); got != 20 {
		t.Fatalf("快照条数 = %d, want 20", got)
	}
	// 30 条中最近 20 条为 10..29，入队按时间先后
	prev := int64(-1)
	for i := 0; i < 20; i++ {
		sig := <-sub.send
		if i == 0 && sig.GeneratedAtMs != 10 {
			t.Errorf("快照首条 GeneratedAtMs = %d, want 10（最旧在前）", sig.GeneratedAtMs)
		}
		if i == 19 && sig.GeneratedAtMs != 29 {
			t.Errorf("快照末条 GeneratedAtMs = %d, want 29", sig.GeneratedAtMs)
		}
		if sig.GeneratedAtMs <= prev {
			t.Fatalf("快照时间戳未单调递增: %d 在 %d 之后", sig.GeneratedAtMs, prev)
		}
		prev = sig.GeneratedAtMs
	}
}

// TestHub_FanOut 测试实时扇出
func TestHub_FanOut(t *testing.T) {
	hub := NewHub(&fakeHistory{}, 20, zap.NewNop())
	broadcast := make(chan model.Signal, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx, broadcast)
	}()

	sub1 := hub.Register()
	sub2 := hub.Register()

	broadcast <- model.Signal{ID: "x", GeneratedAtMs: 1}

	for _, sub := range []*subscriber{sub1, sub2} {
		select {
		case sig := <-sub.send:
			if sig.ID != "x" {
				t.Errorf("收到信号 ID = %s", sig.ID)
			}
		case <-time.After(time.Second):
			t.Fatalf("订阅者未收到信号")
		}
	}

	cancel()
	<-done
	// Run 退出后所有订阅者通道被关闭
	if _, ok := <-sub1.send; ok {
		t.Errorf("Run 退出后订阅者通道应关闭")
	}
}

// TestServer_HistoryEndpoint 测试历史查询接口
func TestServer_HistoryEndpoint(t *testing.T) {
	history := &fakeHistory{signals: makeSignals(100)}
	hub := NewHub(history, 20, zap.NewNop())
	srv := NewServer(":0", hub, 50, zap.NewNop())

	ts := httptest.NewServer(srv.httpSrv.Handler)
	defer ts.Close()

	var got []model.Signal

	// 默认返回上限 50 条
	resp, err := http.Get(ts.URL + "/signals/history")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	resp.Body.Close()
	if len(got) != 50 {
		t.Errorf("默认返回 %d 条, want 50", len(got))
	}
	if got[0].GeneratedAtMs != 99 {
		t.Errorf("首条 GeneratedAtMs = %d, want 99", got[0].GeneratedAtMs)
	}

	// limit 参数生效
	resp, err = http.Get(ts.URL + "/signals/history?limit=5")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	resp.Body.Close()
	if len(got) != 5 {
		t.Errorf("limit=5 返回 %d 条", len(got))
	}

	// 超出上限按上限截断
	resp, err = http.Get(ts.URL + "/signals/history?limit=500")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	resp.Body.Close()
	if len(got) != 50 {
		t.Errorf("limit=500 应截断为 50, got %d", len(got))
	}

	// 非法 limit
	resp, err = http.Get(ts.URL + "/signals/history?limit=abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("非法 limit 应返回 400, got %d", resp.StatusCode)
	}
}

// TestServer_WebSocketPush 测试 WebSocket 推送链路
func TestServer_WebSocketPush(t *testing.T) {
	history := &fakeHistory{signals: makeSignals(3)}
	hub := NewHub(history, 20, zap.NewNop())
	srv := NewServer(":0", hub, 50, zap.NewNop())

	broadcast := make(chan model.Signal, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx, broadcast)

	ts := httptest.NewServer(srv.httpSrv.Handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// 先收到 3 条快照，按时间先后排列
	for i := 0; i < 3; i++ {
		var sig model.Signal
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&sig); err != nil {
			t.Fatalf("读取快照第 %d 条失败: %v", i, err)
		}
		if sig.GeneratedAtMs != int64(i) {
			t.Errorf("快照第 %d 条 GeneratedAtMs = %d, want %d", i, sig.GeneratedAtMs, i)
		}
	}

	// 实时信号跟随其后
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("订阅者未注册")
		}
		time.Sleep(10 * time.Millisecond)
	}
	broadcast <- model.Signal{ID: "live", GeneratedAtMs: 42}

	var sig model.Signal
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&sig); err != nil {
		t.Fatalf("读取实时信号失败: %v", err)
	}
	if sig.ID != "live" {
		t.Errorf("实时信号 ID = %s, want live", sig.ID)
	}
}
