// Package config 负责加载和验证 YAML 配置文件。
// 提供应用程序所需的所有配置项，包括交易所连接、检测参数、Redis 与网关设置等。
// 部分关键项支持环境变量覆盖（容器部署时不改配置文件即可调整）。
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"arbitrage-sniper/internal/util/fastparse"
)

// Config 应用配置根结构
// 包含所有子模块的配置项
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Symbols 用户配置的交易对列表
	Symbols []SymbolConfig `yaml:"symbols"`
	// WS WebSocket 连接配置
	WS WSConfig `yaml:"ws"`
	// Bridge 传输队列配置
	Bridge BridgeConfig `yaml:"bridge"`
	// Engine 检测参数配置
	Engine EngineConfig `yaml:"engine"`
	// Redis Redis 投递配置
	Redis RedisConfig `yaml:"redis"`
	// Gateway 信号分发网关配置
	Gateway GatewayConfig `yaml:"gateway"`
	// Output 审计输出配置
	Output OutputConfig `yaml:"output"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
	// LogFile 日志文件路径（为空时仅输出到 stdout）
	LogFile string `yaml:"log_file"`
	// LogMaxSizeMB 单个日志文件大小上限（MB）
	LogMaxSizeMB int `yaml:"log_max_size_mb"`
	// LogMaxBackups 日志文件保留个数
	LogMaxBackups int `yaml:"log_max_backups"`
	// LogMaxAgeDays 日志文件保留天数
	LogMaxAgeDays int `yaml:"log_max_age_days"`
}

// SymbolConfig 交易对配置
type SymbolConfig struct {
	// Input 用户输入的交易对格式，如 BTC/USDT、BTC-USDT
	Input string `yaml:"input"`
}

// WSConfig WebSocket 连接配置
type WSConfig struct {
	// Binance Binance WebSocket 配置
	Binance ExchangeWSConfig `yaml:"binance"`
	// OKX OKX WebSocket 配置
	OKX ExchangeWSConfig `yaml:"okx"`
	// Bybit Bybit WebSocket 配置
	Bybit ExchangeWSConfig `yaml:"bybit"`
}

// ExchangeWSConfig 单个交易所的 WebSocket 配置
type ExchangeWSConfig struct {
	// Enabled 是否启用该交易所
	Enabled bool `yaml:"enabled"`
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// PingIntervalMs 心跳间隔（毫秒）
	PingIntervalMs int `yaml:"ping_interval_ms"`
	// ReadTimeoutMs 读取超时（毫秒）
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
}

// BridgeConfig 传输队列配置
type BridgeConfig struct {
	// Capacity 队列容量，满时丢弃最旧行情
	Capacity int `yaml:"capacity"`
}

// EngineConfig 检测参数配置
type EngineConfig struct {
	// SpreadThresholdPct 价差阈值（百分比），严格大于才发布信号
	SpreadThresholdPct float64 `yaml:"spread_threshold_pct"`
	// HalfSpread 合成半价差 ε，由成交价推导 bid/ask
	HalfSpread float64 `yaml:"half_spread"`
	// StaleThresholdMs 报价陈旧阈值（毫秒）
	StaleThresholdMs int64 `yaml:"stale_threshold_ms"`
	// FreshnessWindowMs 归一化新鲜度窗口（毫秒）
	FreshnessWindowMs int64 `yaml:"freshness_window_ms"`
	// LatencyWindowSize 时延统计滚动窗口大小
	LatencyWindowSize int `yaml:"latency_window_size"`
}

// RedisConfig Redis 投递配置
type RedisConfig struct {
	// Enabled 是否启用 Redis 投递
	Enabled bool `yaml:"enabled"`
	// Addr Redis 地址，如 localhost:6379
	Addr string `yaml:"addr"`
	// Password 密码（可为空）
	Password string `yaml:"password"`
	// DB 数据库编号
	DB int `yaml:"db"`
	// SignalChannel 实时信号 PUBLISH 频道
	SignalChannel string `yaml:"signal_channel"`
	// HistoryKey 历史信号有序集合 key
	HistoryKey string `yaml:"history_key"`
	// HistorySize 历史信号保留条数
	HistorySize int `yaml:"history_size"`
}

// GatewayConfig 信号分发网关配置
type GatewayConfig struct {
	// Enabled 是否启用网关
	Enabled bool `yaml:"enabled"`
	// ListenAddr 监听地址，如 :8080
	ListenAddr string `yaml:"listen_addr"`
	// SnapshotSize 新订阅者接入时推送的最近信号条数
	SnapshotSize int `yaml:"snapshot_size"`
	// HistoryLimit 历史查询单次最大返回条数
	HistoryLimit int `yaml:"history_limit"`
}

// OutputConfig 审计输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// SignalsEnabled 是否输出信号审计文件
	SignalsEnabled bool `yaml:"signals_enabled"`
	// StatsEnabled 是否输出统计快照文件
	StatsEnabled bool `yaml:"stats_enabled"`
	// StatsIntervalMs 统计快照输出间隔（毫秒）
	StatsIntervalMs int `yaml:"stats_interval_ms"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// Load 从文件加载配置并验证
// 加载顺序: .env（如存在）→ YAML → 环境变量覆盖 → 默认值 → 验证。
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	// .env 不存在不是错误
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("应用环境变量覆盖失败: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// applyEnv 应用环境变量覆盖
// 支持: REDIS_ADDR, SPREAD_THRESHOLD_PCT, SYMBOLS（逗号分隔）, LOG_LEVEL
func (c *Config) applyEnv() error {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
	if v := os.Getenv("SPREAD_THRESHOLD_PCT"); v != "" {
		threshold, err := fastparse.ParseFloat(v)
		if err != nil {
			return fmt.Errorf("SPREAD_THRESHOLD_PCT 非法: %w", err)
		}
		c.Engine.SpreadThresholdPct = threshold
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = c.Symbols[:0]
		for _, input := range strings.Split(v, ",") {
			input = strings.TrimSpace(input)
			if input != "" {
				c.Symbols = append(c.Symbols, SymbolConfig{Input: input})
			}
		}
	}
	return nil
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	// 应用默认值
	if c.App.Name == "" {
		c.App.Name = "arbitrage-sniper"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.LogMaxSizeMB == 0 {
		c.App.LogMaxSizeMB = 100
	}
	if c.App.LogMaxBackups == 0 {
		c.App.LogMaxBackups = 5
	}
	if c.App.LogMaxAgeDays == 0 {
		c.App.LogMaxAgeDays = 14
	}

	// WebSocket 默认配置
	if c.WS.OKX.PingIntervalMs == 0 {
		c.WS.OKX.PingIntervalMs = 25000 // 25 秒
	}
	if c.WS.Bybit.PingIntervalMs == 0 {
		c.WS.Bybit.PingIntervalMs = 20000 // 20 秒
	}
	if c.WS.Binance.ReadTimeoutMs == 0 {
		c.WS.Binance.ReadTimeoutMs = 30000 // 30 秒
	}

	// 传输队列默认容量
	if c.Bridge.Capacity == 0 {
		c.Bridge.Capacity = 1000
	}

	// 检测参数默认值
	if c.Engine.SpreadThresholdPct == 0 {
		c.Engine.SpreadThresholdPct = 0.5
	}
	if c.Engine.HalfSpread == 0 {
		c.Engine.HalfSpread = 0.0001
	}
	if c.Engine.StaleThresholdMs == 0 {
		c.Engine.StaleThresholdMs = 5000 // 5 秒
	}
	if c.Engine.FreshnessWindowMs == 0 {
		c.Engine.FreshnessWindowMs = 60000 // 60 秒
	}
	if c.Engine.LatencyWindowSize == 0 {
		c.Engine.LatencyWindowSize = 10000
	}

	// Redis 默认值
	if c.Redis.SignalChannel == "" {
		c.Redis.SignalChannel = "arbitrage:signals"
	}
	if c.Redis.HistoryKey == "" {
		c.Redis.HistoryKey = "signals:history"
	}
	if c.Redis.HistorySize == 0 {
		c.Redis.HistorySize = 1000
	}

	// 网关默认值
	if c.Gateway.ListenAddr == "" {
		c.Gateway.ListenAddr = ":8080"
	}
	if c.Gateway.SnapshotSize == 0 {
		c.Gateway.SnapshotSize = 20
	}
	if c.Gateway.HistoryLimit == 0 {
		c.Gateway.HistoryLimit = 50
	}

	// 输出默认值
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.StatsIntervalMs == 0 {
		c.Output.StatsIntervalMs = 10000 // 10 秒
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	// 验证交易对配置
	if len(c.Symbols) == 0 {
		errs = append(errs, "symbols: 至少需要配置一个交易对")
	}
	for i, sym := range c.Symbols {
		if sym.Input == "" {
			errs = append(errs, fmt.Sprintf("symbols[%d].input: 交易对不能为空", i))
		}
	}

	// 验证交易所配置：价差检测至少需要两个交易所
	enabled := 0
	for _, ex := range []struct {
		name string
		cfg  ExchangeWSConfig
	}{
		{"binance", c.WS.Binance},
		{"okx", c.WS.OKX},
		{"bybit", c.WS.Bybit},
	} {
		if !ex.cfg.Enabled {
			continue
		}
		enabled++
		if ex.cfg.URL == "" {
			errs = append(errs, fmt.Sprintf("ws.%s.url: 已启用的交易所地址不能为空", ex.name))
		}
	}
	if enabled < 2 {
		errs = append(errs, "ws: 至少需要启用两个交易所")
	}

	// 验证传输队列
	if c.Bridge.Capacity <= 0 {
		errs = append(errs, "bridge.capacity: 队列容量必须为正数")
	}

	// 验证检测参数
	if c.Engine.SpreadThresholdPct <= 0 {
		errs = append(errs, "engine.spread_threshold_pct: 价差阈值必须为正数")
	}
	if c.Engine.HalfSpread < 0 || c.Engine.HalfSpread >= 1 {
		errs = append(errs, "engine.half_spread: 合成半价差必须在 [0, 1) 之间")
	}
	if c.Engine.StaleThresholdMs <= 0 {
		errs = append(errs, "engine.stale_threshold_ms: 陈旧阈值必须为正数")
	}
	if c.Engine.FreshnessWindowMs <= 0 {
		errs = append(errs, "engine.freshness_window_ms: 新鲜度窗口必须为正数")
	}

	// 验证 Redis 配置
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis.addr: 已启用 Redis 时地址不能为空")
	}
	if c.Redis.HistorySize < 0 {
		errs = append(errs, "redis.history_size: 保留条数不能为负数")
	}

	// 验证网关配置
	if c.Gateway.SnapshotSize < 0 {
		errs = append(errs, "gateway.snapshot_size: 快照条数不能为负数")
	}
	if c.Gateway.HistoryLimit <= 0 {
		errs = append(errs, "gateway.history_limit: 历史查询上限必须为正数")
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// GetSymbolInputs 获取所有配置的交易对输入
// 返回: 交易对输入字符串列表
func (c *Config) GetSymbolInputs() []string {
	inputs := make([]string, len(c.Symbols))
	for i, sym := range c.Symbols {
		inputs[i] = sym.Input
	}
	return inputs
}
