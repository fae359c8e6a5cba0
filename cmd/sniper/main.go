// Package main 是跨所价差监控器的入口点。
// 监控器接入多家交易所的实时行情，归一化后汇入单一检测循环，
// 当同一交易对在两家交易所之间出现超过阈值的价差时发布套利信号，
// 并通过 Redis 频道与 WebSocket 网关分发给下游。
//
// 重要：本系统仅产出信号，严禁真实下单。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"arbitrage-sniper/internal/bridge"
	"arbitrage-sniper/internal/config"
	"arbitrage-sniper/internal/core/detect"
	"arbitrage-sniper/internal/core/model"
	"arbitrage-sniper/internal/core/publish"
	"arbitrage-sniper/internal/exchange/binance"
	"arbitrage-sniper/internal/exchange/bybit"
	"arbitrage-sniper/internal/exchange/feed"
	"arbitrage-sniper/internal/exchange/okx"
	"arbitrage-sniper/internal/gateway"
	"arbitrage-sniper/internal/output/jsonl"
	"arbitrage-sniper/internal/stats/latency"
	"arbitrage-sniper/internal/symbols"
	"arbitrage-sniper/internal/util/logging"
	"arbitrage-sniper/internal/util/timeutil"
)

// statsSnapshot 周期统计快照（写入 stats.jsonl）
type statsSnapshot struct {
	// TsUnixNs 快照采集时间（纳秒）
	TsUnixNs int64 `json:"ts_unix_ns"`
	// Detect 检测统计
	Detect detect.Stats `json:"detect"`
	// Bridge 传输队列统计
	Bridge bridge.Stats `json:"bridge"`
	// Publish 发布统计
	Publish publish.Stats `json:"publish"`
	// Feeds 各交易所连接指标
	Feeds map[string]feed.ConnectionMetrics `json:"feeds"`
	// Latency 各交易所链路时延统计
	Latency map[string]latency.Stats `json:"latency"`
	// Subscribers 网关订阅者数量
	Subscribers int `json:"subscribers"`
}

// auditSink 信号审计投递端（落盘 signals.jsonl）
type auditSink struct {
	w *jsonl.Writer
}

// Deliver 写入一条信号审计记录
func (s *auditSink) Deliver(sig model.Signal) {
	_ = s.w.Write(sig)
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Level:      cfg.App.LogLevel,
		File:       cfg.App.LogFile,
		MaxSizeMB:  cfg.App.LogMaxSizeMB,
		MaxBackups: cfg.App.LogMaxBackups,
		MaxAgeDays: cfg.App.LogMaxAgeDays,
	})
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	symbolMaps, err := symbols.Build(cfg.GetSymbolInputs())
	if err != nil {
		logger.Error("构建 symbol 映射失败", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("symbol 映射完成", zap.Int("symbols", len(symbolMaps)))

	// 传输队列创建失败是启动期唯一的致命条件
	queue, err := bridge.New(cfg.Bridge.Capacity)
	if err != nil {
		logger.Error("创建传输队列失败", zap.Error(err))
		os.Exit(1)
	}

	// 信号下游：审计文件 + Redis（均为可选）
	var sinks []publish.Sink
	var signalsWriter *jsonl.Writer
	if cfg.Output.SignalsEnabled {
		signalsWriter, err = jsonl.NewWriter(fmt.Sprintf("%s/signals.jsonl", cfg.Output.Dir), cfg.Output.BufferSize)
		if err != nil {
			logger.Error("创建 signals writer 失败", zap.Error(err))
			os.Exit(1)
		}
		sinks = append(sinks, &auditSink{w: signalsWriter})
	}

	var redisSink *publish.RedisSink
	if cfg.Redis.Enabled {
		redisSink = publish.NewRedisSink(publish.RedisConfig{
			Addr:          cfg.Redis.Addr,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			SignalChannel: cfg.Redis.SignalChannel,
			HistoryKey:    cfg.Redis.HistoryKey,
			HistorySize:   cfg.Redis.HistorySize,
		}, logger)
		redisSink.Start(ctx)
		sinks = append(sinks, redisSink)
	}

	publisher := publish.New(logger, publish.DefaultHistorySize, sinks...)
	latTracker := latency.NewTracker(cfg.Engine.LatencyWindowSize)
	detector := detect.New(detect.Config{
		SpreadThresholdPct: cfg.Engine.SpreadThresholdPct,
		StaleThresholdMs:   cfg.Engine.StaleThresholdMs,
		HalfSpread:         cfg.Engine.HalfSpread,
	}, queue, publisher, latTracker, logger)

	// 按配置启用的交易所构建行情客户端
	type feedEntry struct {
		spec feed.Spec
		cfg  config.ExchangeWSConfig
	}
	var entries []feedEntry
	if cfg.WS.Binance.Enabled {
		entries = append(entries, feedEntry{binance.NewSpec(cfg.WS.Binance.URL, symbolMaps), cfg.WS.Binance})
	}
	if cfg.WS.OKX.Enabled {
		entries = append(entries, feedEntry{okx.NewSpec(cfg.WS.OKX.URL, symbolMaps), cfg.WS.OKX})
	}
	if cfg.WS.Bybit.Enabled {
		entries = append(entries, feedEntry{bybit.NewSpec(cfg.WS.Bybit.URL, symbolMaps), cfg.WS.Bybit})
	}

	startCtx, startCancel := context.WithTimeout(ctx, 10*time.Second)
	defer startCancel()

	clients := make([]*feed.Client, 0, len(entries))
	for _, entry := range entries {
		client := feed.NewClient(entry.spec, feed.Options{
			PingIntervalMs:    entry.cfg.PingIntervalMs,
			ReadTimeoutMs:     entry.cfg.ReadTimeoutMs,
			FreshnessWindowMs: cfg.Engine.FreshnessWindowMs,
		}, queue, logger)
		clients = append(clients, client)

		// 启动期连接失败不致命：Run 循环会按退避持续重连
		if err := client.Connect(startCtx); err != nil {
			logger.Error("交易所连接失败，进入重连", zap.Error(err))
		} else if err := client.Subscribe(); err != nil {
			logger.Error("交易所订阅失败，进入重连", zap.Error(err))
		}
		go client.Run(ctx)
	}

	// 信号分发网关
	var hub *gateway.Hub
	var gwServer *gateway.Server
	if cfg.Gateway.Enabled {
		hub = gateway.NewHub(publisher, cfg.Gateway.SnapshotSize, logger)
		go hub.Run(ctx, publisher.Broadcast())

		gwServer = gateway.NewServer(cfg.Gateway.ListenAddr, hub, cfg.Gateway.HistoryLimit, logger)
		errCh := gwServer.Start()
		go func() {
			if err := <-errCh; err != nil {
				logger.Error("网关异常退出", zap.Error(err))
			}
		}()
	}

	// 周期统计快照
	var statsWriter *jsonl.Writer
	if cfg.Output.StatsEnabled {
		statsWriter, err = jsonl.NewWriter(fmt.Sprintf("%s/stats.jsonl", cfg.Output.Dir), cfg.Output.BufferSize)
		if err != nil {
			logger.Error("创建 stats writer 失败", zap.Error(err))
			os.Exit(1)
		}
	}
	writeStats := func() {
		if statsWriter == nil {
			return
		}
		snap := statsSnapshot{
			TsUnixNs: timeutil.NowNano(),
			Detect:   detector.Stats(),
			Bridge:   queue.Stats(),
			Publish:  publisher.Stats(),
			Feeds:    make(map[string]feed.ConnectionMetrics, len(clients)),
			Latency:  make(map[string]latency.Stats),
		}
		for _, client := range clients {
			snap.Feeds[client.Exchange()] = client.Metrics()
		}
		for _, exchange := range latTracker.Exchanges() {
			snap.Latency[exchange] = latTracker.Stats(exchange)
		}
		if hub != nil {
			snap.Subscribers = hub.Subscribers()
		}
		_ = statsWriter.Write(snap)
		_ = statsWriter.Flush()
	}
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Output.StatsIntervalMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				writeStats()
			}
		}
	}()

	// 检测主循环（阻塞直到退出信号）
	detector.Run(ctx)

	// 输出最后一份统计快照（便于离线复盘）
	writeStats()

	// 优雅关闭（10s 超时）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, client := range clients {
			_ = client.Close()
		}
		if gwServer != nil {
			_ = gwServer.Shutdown(shutdownCtx)
		}
		if redisSink != nil {
			redisSink.Close()
		}
		if signalsWriter != nil {
			_ = signalsWriter.Close()
		}
		if statsWriter != nil {
			_ = statsWriter.Close()
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("关闭超时，强制退出")
	case <-done:
		logger.Info("关闭完成")
	}
}
