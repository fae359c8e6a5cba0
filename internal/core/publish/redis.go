// Redis 下游投递：PUBLISH 实时频道 + ZADD 历史有序集合。
// Redis 不可用绝不影响检测主链路：投递异步化，
// 连续失败由熔断器短路，恢复后自动闭合。
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	retry "github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"arbitrage-sniper/internal/core/model"
)

// RedisConfig Redis 投递配置
type RedisConfig struct {
	// Addr Redis 地址，如 localhost:6379
	Addr string
	// Password 密码（可为空）
	Password string
	// DB 数据库编号
	DB int
	// SignalChannel 实时信号 PUBLISH 频道
	SignalChannel string
	// HistoryKey 历史信号有序集合 key
	HistoryKey string
	// HistorySize 有序集合保留条数，超出部分按 score 淘汰最旧
	HistorySize int
}

// RedisSink Redis 信号投递端
type RedisSink struct {
	cfg    RedisConfig
	logger *zap.Logger

	client  *redis.Client
	breaker *gobreaker.CircuitBreaker

	ch      chan model.Signal
	dropped int64

	mu      sync.Mutex
	started bool

	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
}

// NewRedisSink 创建 Redis 投递端
// 仅构建客户端，不建立连接；连接在 Start 中完成。
func NewRedisSink(cfg RedisConfig, logger *zap.Logger) *RedisSink {
	if cfg.SignalChannel == "" {
		cfg.SignalChannel = "arbitrage:signals"
	}
	if cfg.HistoryKey == "" {
		cfg.HistoryKey = "signals:history"
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}

	return &RedisSink{
		cfg:    cfg,
		logger: logger.Named("redis"),
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  5 * time.Second,
			WriteTimeout: 3 * time.Second,
		}),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "redis-publish",
			Timeout: 15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		ch:     make(chan model.Signal, DefaultBroadcastBuffer),
		closed: make(chan struct{}),
	}
}

// Start 建立连接并启动后台投递 goroutine
// PING 失败按指数退避重试（最多约 30 秒）；最终失败只记录告警，
// 投递端仍会启动——后续每次投递经熔断器尝试，Redis 恢复后自动续上。
func (s *RedisSink) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	policy := retry.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 8 * time.Second
	policy.MaxElapsedTime = 30 * time.Second

	err := retry.Retry(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return s.client.Ping(pingCtx).Err()
	}, retry.WithContext(policy, ctx))
	if err != nil {
		s.logger.Warn("Redis 连接失败，投递降级为尽力而为", zap.Error(err))
	} else {
		s.logger.Info("Redis 已连接", zap.String("addr", s.cfg.Addr))
	}

	s.wg.Add(1)
	go s.loop()
}

// Deliver 投递一条信号（非阻塞）
// 缓冲满时丢弃并记录，不阻塞调用方。
func (s *RedisSink) Deliver(sig model.Signal) {
	select {
	case <-s.closed:
		return
	default:
	}
	select {
	case s.ch <- sig:
	default:
		s.dropped++
		s.logger.Warn("Redis 投递缓冲满，信号被丢弃", zap.String("id", sig.ID))
	}
}

// Close 停止投递并关闭客户端
// 缓冲中未投递的信号会先排空。
func (s *RedisSink) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		close(s.ch)
		s.wg.Wait()
		if err := s.client.Close(); err != nil {
			s.logger.Warn("关闭 Redis 客户端失败", zap.Error(err))
		}
	})
}

func (s *RedisSink) loop() {
	defer s.wg.Done()
	for sig := range s.ch {
		if _, err := s.breaker.Execute(func() (any, error) {
			return nil, s.publishOne(sig)
		}); err != nil {
			s.logger.Warn("Redis 投递失败",
				zap.String("id", sig.ID),
				zap.Error(err),
			)
		}
	}
}

// publishOne 投递单条信号
// 三条命令走同一 pipeline: PUBLISH 实时频道、ZADD 历史集合（score 为生成时间戳）、
// ZREMRANGEBYRANK 裁剪到保留上限。
func (s *RedisSink) publishOne(sig model.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("编码信号失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pipe := s.client.Pipeline()
	pipe.Publish(ctx, s.cfg.SignalChannel, payload)
	pipe.ZAdd(ctx, s.cfg.HistoryKey, &redis.Z{
		Score:  float64(sig.GeneratedAtMs),
		Member: payload,
	})
	pipe.ZRemRangeByRank(ctx, s.cfg.HistoryKey, 0, int64(-s.cfg.HistorySize-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("执行 Redis pipeline 失败: %w", err)
	}
	return nil
}
