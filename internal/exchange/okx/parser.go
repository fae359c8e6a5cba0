// Package okx 实现 OKX 交易所的行情接入。
// 连接地址: wss://ws.okx.com:8443/ws/v5/public
// 订阅频道: trades（逐笔成交）
// 心跳机制: 应用层文本 ping/pong
package okx

import (
	"bytes"
	"encoding/json"
	"fmt"

	"arbitrage-sniper/internal/core/model"
	"arbitrage-sniper/internal/exchange/feed"
	"arbitrage-sniper/internal/symbols"
	"arbitrage-sniper/internal/util/fastparse"
)

// pongMessage 服务端心跳回应（纯文本）
var pongMessage = []byte("pong")

// Parser OKX 消息解析器
type Parser struct {
	// index instId → Canon 反查索引，用于过滤未配置交易对
	index map[string]string
}

// NewParser 创建 OKX 消息解析器
// 参数 symbolMaps: Symbol 映射表（key 为 Canon）
func NewParser(symbolMaps map[string]*symbols.SymbolMap) *Parser {
	return &Parser{index: symbols.OKXIndex(symbolMaps)}
}

// Parse 解析 OKX WebSocket 消息为归一化 Tick
// 参数 data: 原始消息字节
// 返回: 0 到多个 Tick（一次推送可含多笔成交；pong 与控制消息返回空）
func (p *Parser) Parse(data []byte) ([]*model.Tick, error) {
	if bytes.Equal(bytes.TrimSpace(data), pongMessage) {
		return nil, nil
	}

	var msg PushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 OKX 消息失败: %w", err)
	}

	// 订阅确认、错误通知等控制消息
	if msg.Event != "" || msg.Arg.Channel != "trades" {
		return nil, nil
	}

	ticks := make([]*model.Tick, 0, len(msg.Data))
	for _, trade := range msg.Data {
		canon, ok := p.index[trade.InstId]
		if !ok {
			continue
		}

		price, err := fastparse.ParseFloat(trade.Px)
		if err != nil {
			return nil, fmt.Errorf("解析 OKX 成交价失败: %w", err)
		}
		volume, err := fastparse.ParseFloat(trade.Sz)
		if err != nil {
			return nil, fmt.Errorf("解析 OKX 成交量失败: %w", err)
		}
		tsMs, err := fastparse.ParseInt(trade.Ts)
		if err != nil {
			return nil, fmt.Errorf("解析 OKX 成交时间失败: %w", err)
		}

		ticks = append(ticks, &model.Tick{
			Exchange:    model.ExchangeOKX,
			Symbol:      canon,
			Price:       price,
			Volume:      volume,
			TimestampMs: tsMs,
			Kind:        model.KindTrade,
		})
	}
	return ticks, nil
}

// NewSpec 构建 OKX 接入规格
// 参数 url: WebSocket 连接地址
// 参数 symbolMaps: Symbol 映射表（key 为 Canon）
func NewSpec(url string, symbolMaps map[string]*symbols.SymbolMap) feed.Spec {
	parser := NewParser(symbolMaps)

	return feed.Spec{
		Exchange: model.ExchangeOKX,
		URL:      url,
		SubscribeFrames: func() ([][]byte, error) {
			args := make([]SubscribeArg, 0, len(symbolMaps))
			for _, m := range symbolMaps {
				args = append(args, SubscribeArg{Channel: "trades", InstId: m.OKXInstId})
			}
			frame, err := json.Marshal(SubscribeRequest{Op: "subscribe", Args: args})
			if err != nil {
				return nil, fmt.Errorf("序列化订阅请求失败: %w", err)
			}
			return [][]byte{frame}, nil
		},
		Parse: parser.Parse,
		// OKX 要求客户端定期发送文本 ping，服务端回 pong
		PingFrame: func() []byte { return []byte("ping") },
	}
}
