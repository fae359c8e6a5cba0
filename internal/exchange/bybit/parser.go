// Package bybit 实现 Bybit 交易所的行情接入。
// 连接地址: wss://stream.bybit.com/v5/public/spot
// 订阅频道: tickers.<symbol>（最新价快照）
// 心跳机制: 应用层 {"op":"ping"} / {"op":"pong"}
package bybit

import (
	"encoding/json"
	"fmt"
	"strings"

	"arbitrage-sniper/internal/core/model"
	"arbitrage-sniper/internal/exchange/feed"
	"arbitrage-sniper/internal/symbols"
	"arbitrage-sniper/internal/util/fastparse"
)

// Parser Bybit 消息解析器
type Parser struct {
	// index 原生拼写 → Canon 反查索引，用于过滤未配置交易对
	index map[string]string
}

// NewParser 创建 Bybit 消息解析器
// 参数 symbolMaps: Symbol 映射表（key 为 Canon）
func NewParser(symbolMaps map[string]*symbols.SymbolMap) *Parser {
	return &Parser{index: symbols.BybitIndex(symbolMaps)}
}

// Parse 解析 Bybit WebSocket 消息为归一化 Tick
// 参数 data: 原始消息字节
// 返回: 可能包含 0 或 1 个 Tick（pong、订阅回执与 delta 缺价推送返回空）
func (p *Parser) Parse(data []byte) ([]*model.Tick, error) {
	var msg PushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 Bybit 消息失败: %w", err)
	}

	// pong 与订阅回执
	if msg.Op != "" || msg.RetMsg != "" {
		return nil, nil
	}
	if !strings.HasPrefix(msg.Topic, "tickers.") {
		return nil, nil
	}
	// delta 推送里 lastPrice 未变化时为空，跳过
	if msg.Data.LastPrice == "" {
		return nil, nil
	}

	canon, ok := p.index[strings.ToUpper(msg.Data.Symbol)]
	if !ok {
		return nil, nil
	}

	price, err := fastparse.ParseFloat(msg.Data.LastPrice)
	if err != nil {
		return nil, fmt.Errorf("解析 Bybit 最新价失败: %w", err)
	}

	var volume float64
	if msg.Data.Volume24h != "" {
		if volume, err = fastparse.ParseFloat(msg.Data.Volume24h); err != nil {
			return nil, fmt.Errorf("解析 Bybit 成交量失败: %w", err)
		}
	}

	return []*model.Tick{{
		Exchange:    model.ExchangeBybit,
		Symbol:      canon,
		Price:       price,
		Volume:      volume,
		TimestampMs: msg.TsMs,
		Kind:        model.KindTicker,
	}}, nil
}

// NewSpec 构建 Bybit 接入规格
// 参数 url: WebSocket 连接地址
// 参数 symbolMaps: Symbol 映射表（key 为 Canon）
func NewSpec(url string, symbolMaps map[string]*symbols.SymbolMap) feed.Spec {
	parser := NewParser(symbolMaps)

	return feed.Spec{
		Exchange: model.ExchangeBybit,
		URL:      url,
		SubscribeFrames: func() ([][]byte, error) {
			args := make([]string, 0, len(symbolMaps))
			for _, m := range symbolMaps {
				args = append(args, "tickers."+m.BybitSym)
			}
			frame, err := json.Marshal(SubscribeRequest{Op: "subscribe", Args: args})
			if err != nil {
				return nil, fmt.Errorf("序列化订阅请求失败: %w", err)
			}
			return [][]byte{frame}, nil
		},
		Parse: parser.Parse,
		PingFrame: func() []byte {
			frame, _ := json.Marshal(SubscribeRequest{Op: "ping"})
			return frame
		},
	}
}
