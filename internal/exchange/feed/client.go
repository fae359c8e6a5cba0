// Package feed 实现通用的交易所 WebSocket 行情客户端。
// 各交易所只有 URL、订阅报文、心跳和消息解析不同，
// 连接管理、重连退避、读循环、指标统计全部共用：
// 差异以 Spec 数据注入，新增交易所不需要复制客户端代码。
package feed

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"arbitrage-sniper/internal/core/model"
	"arbitrage-sniper/internal/core/normalize"
	"arbitrage-sniper/internal/util/backoff"
	"arbitrage-sniper/internal/util/timeutil"
)

// State 连接状态
type State int32

const (
	// StateDisconnected 未连接
	StateDisconnected State = iota
	// StateConnecting 连接中
	StateConnecting
	// StateConnected 已连接
	StateConnected
	// StateBackoff 等待重连
	StateBackoff
	// StateClosed 已关闭（终态）
	StateClosed
)

// String 获取状态的可读表示
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Spec 单个交易所的接入规格
// 把交易所之间的差异收敛为数据与纯函数，由通用客户端驱动。
type Spec struct {
	// Exchange 交易所标识: binance, okx, bybit
	Exchange string
	// URL WebSocket 连接地址
	URL string
	// Origin 握手 Origin 头（可为空）
	Origin string
	// SubscribeFrames 生成订阅报文（连接与每次重连后逐帧发送）
	SubscribeFrames func() ([][]byte, error)
	// Parse 解析一条原始消息为归一化 Tick
	// 订阅确认、心跳回应等非行情消息返回 (nil, nil)。
	Parse func(data []byte) ([]*model.Tick, error)
	// PingFrame 应用层心跳报文；为 nil 时使用 WebSocket 协议层 ping
	PingFrame func() []byte
}

// Options 客户端运行参数
type Options struct {
	// PingIntervalMs 心跳间隔（毫秒），<=0 时为读超时的一半
	PingIntervalMs int
	// ReadTimeoutMs 读超时（毫秒），<=0 时使用 30000
	ReadTimeoutMs int
	// FreshnessWindowMs 新鲜度窗口（毫秒），<=0 时使用默认 60000
	FreshnessWindowMs int64
}

// Sink 归一化 Tick 的下游投递接口（由传输队列实现）
type Sink interface {
	// Offer 非阻塞入队，返回入队过程中是否发生了丢弃
	Offer(t *model.Tick) bool
}

// ConnectionMetrics 连接指标快照
type ConnectionMetrics struct {
	// State 当前连接状态
	State string
	// ReconnectCount 重连次数
	ReconnectCount int64
	// ParseErrorCount 解析错误次数
	ParseErrorCount int64
	// InvalidTickCount 归一化拒绝次数
	InvalidTickCount int64
	// UpdatesPerSec 每秒 Tick 数
	UpdatesPerSec float64
	// LastMessageAgeMs 距最后一条消息的时间（毫秒）
	LastMessageAgeMs int64
}

// Client 通用 WebSocket 行情客户端
type Client struct {
	// spec 交易所接入规格
	spec Spec
	// opts 运行参数
	opts Options
	// sink 归一化 Tick 下游
	sink Sink
	// logger 日志记录器
	logger *zap.Logger

	// conn WebSocket 连接
	conn *websocket.Conn
	// connMu 连接锁
	connMu sync.Mutex

	// state 连接状态
	state atomic.Int32

	// metrics 连接指标
	metrics ConnectionMetrics
	// metricsMu 指标锁
	metricsMu sync.RWMutex

	// lastMsgTime 最后消息时间（纳秒）
	lastMsgTime int64
	// updateCount 更新计数（用于计算 QPS）
	updateCount int64
	// backoff 重连退避
	backoff *backoff.Backoff
	// closed 是否已关闭
	closed int32

	// parseErrSampleCount 解析错误计数（用于采样日志）
	parseErrSampleCount uint64
	// lastParseErrLogNs 上次解析错误日志时间（纳秒）
	lastParseErrLogNs int64
}

// NewClient 创建行情客户端
// 参数 spec: 交易所接入规格
// 参数 sink: 归一化 Tick 下游（传输队列）
func NewClient(spec Spec, opts Options, sink Sink, logger *zap.Logger) *Client {
	if opts.FreshnessWindowMs <= 0 {
		opts.FreshnessWindowMs = normalize.DefaultFreshnessWindowMs
	}
	return &Client{
		spec:    spec,
		opts:    opts,
		sink:    sink,
		logger:  logger.Named(spec.Exchange),
		backoff: backoff.NewDefault(),
	}
}

// Connect 建立 WebSocket 连接
// 参数 ctx: 上下文，用于取消连接
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.setState(StateConnecting)

	header := http.Header{}
	header.Set("User-Agent", "arbitrage-sniper/1.0")
	if c.spec.Origin != "" {
		header.Set("Origin", c.spec.Origin)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.spec.URL, header)
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("连接 %s WebSocket 失败: %w", c.spec.Exchange, err)
	}

	readTimeout := time.Duration(c.readTimeoutMs()) * time.Millisecond
	if readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			atomic.StoreInt64(&c.lastMsgTime, timeutil.NowNano())
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
	}

	c.conn = conn
	c.backoff.Reset()
	c.setState(StateConnected)
	c.logger.Info("WebSocket 连接成功", zap.String("url", c.spec.URL))
	return nil
}

// Subscribe 发送订阅报文
func (c *Client) Subscribe() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("WebSocket 未连接")
	}

	frames, err := c.spec.SubscribeFrames()
	if err != nil {
		return fmt.Errorf("生成订阅报文失败: %w", err)
	}
	for _, frame := range frames {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return fmt.Errorf("发送订阅报文失败: %w", err)
		}
	}

	c.logger.Info("订阅请求已发送", zap.Int("frames", len(frames)))
	return nil
}

// Run 启动客户端主循环
// 包含读取循环、心跳循环和指标统计
func (c *Client) Run(ctx context.Context) {
	go c.pingLoop(ctx)
	go c.metricsLoop(ctx)
	c.readLoop(ctx)
}

func (c *Client) readLoop(ctx context.Context) {
	readTimeout := time.Duration(c.readTimeoutMs()) * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if atomic.LoadInt32(&c.closed) == 1 {
			return
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			c.reconnect(ctx)
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("读取消息失败", zap.Error(err))
			c.incrementReconnectCount()
			c.reconnect(ctx)
			continue
		}

		if readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		}

		atomic.StoreInt64(&c.lastMsgTime, timeutil.NowNano())

		ticks, err := c.spec.Parse(data)
		if err != nil {
			c.incrementParseErrorCount()
			c.maybeLogParseError(err, data)
			continue
		}

		nowMs := timeutil.NowMs()
		for _, t := range ticks {
			if normalize.Normalize(t, nowMs, c.opts.FreshnessWindowMs) == nil {
				c.incrementInvalidTickCount()
				continue
			}
			atomic.AddInt64(&c.updateCount, 1)
			if c.sink.Offer(t) {
				c.logger.Warn("传输队列已满，最旧行情被丢弃")
			}
		}
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	intervalMs := c.opts.PingIntervalMs
	if intervalMs <= 0 {
		intervalMs = c.readTimeoutMs() / 2
		if intervalMs <= 0 {
			intervalMs = 15000
		}
	}

	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if atomic.LoadInt32(&c.closed) == 1 {
				return
			}

			c.connMu.Lock()
			conn := c.conn
			if conn == nil {
				c.connMu.Unlock()
				continue
			}

			var err error
			if frame := c.pingFrame(); frame != nil {
				// 应用层心跳（OKX/Bybit 风格）
				err = conn.WriteMessage(websocket.TextMessage, frame)
			} else {
				// 协议层心跳（Binance 风格）
				deadline := time.Now().Add(5 * time.Second)
				err = conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline)
			}
			c.connMu.Unlock()
			if err != nil {
				c.logger.Warn("发送心跳失败", zap.Error(err))
			}
		}
	}
}

func (c *Client) metricsLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastCount int64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if atomic.LoadInt32(&c.closed) == 1 {
				return
			}

			count := atomic.LoadInt64(&c.updateCount)
			qps := float64(count - lastCount)
			lastCount = count

			lastMsg := atomic.LoadInt64(&c.lastMsgTime)
			var ageMs int64
			if lastMsg > 0 {
				ageMs = (timeutil.NowNano() - lastMsg) / 1_000_000
			}

			c.metricsMu.Lock()
			c.metrics.UpdatesPerSec = qps
			c.metrics.LastMessageAgeMs = ageMs
			c.metricsMu.Unlock()
		}
	}
}

func (c *Client) reconnect(ctx context.Context) {
	c.closeConn()

	c.setState(StateBackoff)
	delay := c.backoff.Next()
	c.logger.Info("准备重连",
		zap.Duration("delay", delay),
		zap.Int("attempt", c.backoff.Attempt()),
	)

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	if err := c.Connect(ctx); err != nil {
		c.logger.Error("重连失败", zap.Error(err))
		return
	}
	if err := c.Subscribe(); err != nil {
		c.logger.Error("重新订阅失败", zap.Error(err))
	}
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	if State(c.state.Load()) != StateClosed {
		c.setState(StateDisconnected)
	}
}

// Close 关闭客户端（终态，不再重连）
func (c *Client) Close() error {
	atomic.StoreInt32(&c.closed, 1)
	c.closeConn()
	c.setState(StateClosed)
	c.logger.Info("行情客户端已关闭")
	return nil
}

// Exchange 获取交易所标识
func (c *Client) Exchange() string {
	return c.spec.Exchange
}

// State 获取当前连接状态
func (c *Client) State() State {
	return State(c.state.Load())
}

// Metrics 获取连接指标快照
func (c *Client) Metrics() ConnectionMetrics {
	c.metricsMu.RLock()
	defer c.metricsMu.RUnlock()
	m := c.metrics
	m.State = c.State().String()
	return m
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Client) pingFrame() []byte {
	if c.spec.PingFrame == nil {
		return nil
	}
	return c.spec.PingFrame()
}

func (c *Client) incrementReconnectCount() {
	c.metricsMu.Lock()
	c.metrics.ReconnectCount++
	c.metricsMu.Unlock()
}

func (c *Client) incrementParseErrorCount() {
	c.metricsMu.Lock()
	c.metrics.ParseErrorCount++
	c.metricsMu.Unlock()
}

func (c *Client) incrementInvalidTickCount() {
	c.metricsMu.Lock()
	c.metrics.InvalidTickCount++
	c.metricsMu.Unlock()
}

func (c *Client) readTimeoutMs() int {
	if c.opts.ReadTimeoutMs > 0 {
		return c.opts.ReadTimeoutMs
	}
	// 未配置时使用 30s
	return 30000
}

// maybeLogParseError 采样记录解析错误原始消息，避免刷盘
// 采样策略：每 100 次错误记录 1 条，且同一类日志至少间隔 1 分钟。
func (c *Client) maybeLogParseError(err error, data []byte) {
	count := atomic.AddUint64(&c.parseErrSampleCount, 1)
	if count%100 != 0 {
		return
	}

	nowNs := timeutil.NowNano()
	last := atomic.LoadInt64(&c.lastParseErrLogNs)
	if last > 0 && nowNs-last < int64(time.Minute) {
		return
	}
	atomic.StoreInt64(&c.lastParseErrLogNs, nowNs)

	sample := data
	if len(sample) > 200 {
		sample = sample[:200]
	}
	c.logger.Warn("解析消息失败（采样）", zap.Error(err), zap.ByteString("data", sample))
}
