// Package symbols 负责统一交易对标识与各交易所原生拼写之间的映射。
// 统一标识形如 BTC/USDT；各交易所的订阅参数与消息字段拼写各不相同：
// Binance/Bybit 使用 BTCUSDT，OKX 使用 BTC-USDT。
// 映射为纯规则推导，不依赖交易所元数据接口（监控的现货交易对拼写规则稳定）。
package symbols

import (
	"fmt"
	"strings"
)

// SymbolMap 单个交易对的映射表
type SymbolMap struct {
	// Canon 统一交易对标识，如 BTC/USDT
	Canon string
	// Base 基础币种，如 BTC
	Base string
	// Quote 计价币种，如 USDT
	Quote string
	// BinanceSym Binance 原生拼写，如 BTCUSDT
	BinanceSym string
	// OKXInstId OKX 合约/现货 ID，如 BTC-USDT
	OKXInstId string
	// BybitSym Bybit 原生拼写，如 BTCUSDT
	BybitSym string
}

// Parse 解析用户输入的交易对并构建映射
// 接受 BTC/USDT、BTC-USDT、BTC_USDT 三种分隔格式，大小写不敏感。
// 返回: 映射表；输入非法时返回错误
func Parse(input string) (*SymbolMap, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	if s == "" {
		return nil, fmt.Errorf("交易对不能为空")
	}

	// 统一分隔符
	s = strings.ReplaceAll(s, "-", "/")
	s = strings.ReplaceAll(s, "_", "/")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("交易对格式非法: %q，期望 BASE/QUOTE", input)
	}

	base, quote := parts[0], parts[1]
	return &SymbolMap{
		Canon:      base + "/" + quote,
		Base:       base,
		Quote:      quote,
		BinanceSym: base + quote,
		OKXInstId:  base + "-" + quote,
		BybitSym:   base + quote,
	}, nil
}

// Build 为配置的交易对列表构建映射表
// 返回: 以 Canon 为 key 的映射表；任一交易对非法时整体失败
func Build(inputs []string) (map[string]*SymbolMap, error) {
	result := make(map[string]*SymbolMap, len(inputs))
	for _, input := range inputs {
		m, err := Parse(input)
		if err != nil {
			return nil, fmt.Errorf("映射交易对 '%s' 失败: %w", input, err)
		}
		result[m.Canon] = m
	}
	return result, nil
}

// BinanceIndex 构建 Binance 原生拼写 → Canon 的反查索引
// key 为大写原生拼写（如 BTCUSDT）
func BinanceIndex(maps map[string]*SymbolMap) map[string]string {
	index := make(map[string]string, len(maps))
	for canon, m := range maps {
		index[m.BinanceSym] = canon
	}
	return index
}

// OKXIndex 构建 OKX instId → Canon 的反查索引
func OKXIndex(maps map[string]*SymbolMap) map[string]string {
	index := make(map[string]string, len(maps))
	for canon, m := range maps {
		index[m.OKXInstId] = canon
	}
	return index
}

// BybitIndex 构建 Bybit 原生拼写 → Canon 的反查索引
func BybitIndex(maps map[string]*SymbolMap) map[string]string {
	index := make(map[string]string, len(maps))
	for canon, m := range maps {
		index[m.BybitSym] = canon
	}
	return index
}
