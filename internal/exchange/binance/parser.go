// Package binance 实现 Binance 交易所的行情接入。
// 连接地址: wss://stream.binance.com:9443/ws
// 订阅频道: <symbol>@trade（逐笔成交）
// 心跳机制: 协议层 ping/pong
package binance

import (
	"encoding/json"
	"fmt"
	"strings"

	"arbitrage-sniper/internal/core/model"
	"arbitrage-sniper/internal/exchange/feed"
	"arbitrage-sniper/internal/symbols"
	"arbitrage-sniper/internal/util/fastparse"
)

// Parser Binance 消息解析器
type Parser struct {
	// index 原生拼写 → Canon 反查索引，用于过滤未配置交易对
	index map[string]string
}

// NewParser 创建 Binance 消息解析器
// 参数 symbolMaps: Symbol 映射表（key 为 Canon）
func NewParser(symbolMaps map[string]*symbols.SymbolMap) *Parser {
	return &Parser{index: symbols.BinanceIndex(symbolMaps)}
}

// Parse 解析 Binance WebSocket 消息为归一化 Tick
// 参数 data: 原始消息字节
// 返回: 可能包含 0 或 1 个 Tick（订阅确认等非成交消息返回空）
func (p *Parser) Parse(data []byte) ([]*model.Tick, error) {
	var msg TradeEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 Binance 消息失败: %w", err)
	}

	if msg.EventType != "trade" {
		return nil, nil
	}

	canon, ok := p.index[strings.ToUpper(msg.Symbol)]
	if !ok {
		return nil, nil
	}

	price, err := fastparse.ParseFloat(msg.Price)
	if err != nil {
		return nil, fmt.Errorf("解析 Binance 成交价失败: %w", err)
	}
	volume, err := fastparse.ParseFloat(msg.Quantity)
	if err != nil {
		return nil, fmt.Errorf("解析 Binance 成交量失败: %w", err)
	}

	tsMs := msg.TradeTimeMs
	if tsMs == 0 {
		tsMs = msg.EventTimeMs
	}

	return []*model.Tick{{
		Exchange:    model.ExchangeBinance,
		Symbol:      canon,
		Price:       price,
		Volume:      volume,
		TimestampMs: tsMs,
		Kind:        model.KindTrade,
	}}, nil
}

// NewSpec 构建 Binance 接入规格
// 参数 url: WebSocket 连接地址
// 参数 symbolMaps: Symbol 映射表（key 为 Canon）
func NewSpec(url string, symbolMaps map[string]*symbols.SymbolMap) feed.Spec {
	parser := NewParser(symbolMaps)

	return feed.Spec{
		Exchange: model.ExchangeBinance,
		URL:      url,
		Origin:   "https://www.binance.com",
		SubscribeFrames: func() ([][]byte, error) {
			params := make([]string, 0, len(symbolMaps))
			for _, m := range symbolMaps {
				// Binance 订阅参数要求小写 symbol
				params = append(params, fmt.Sprintf("%s@trade", strings.ToLower(m.BinanceSym)))
			}
			frame, err := json.Marshal(SubscribeRequest{
				Method: "SUBSCRIBE",
				Params: params,
				ID:     1,
			})
			if err != nil {
				return nil, fmt.Errorf("序列化订阅请求失败: %w", err)
			}
			return [][]byte{frame}, nil
		},
		Parse: parser.Parse,
		// PingFrame 为 nil: 使用协议层 ping
	}
}
