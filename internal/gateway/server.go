// HTTP/WebSocket 服务端: /ws 实时信号推送、/signals/history 历史查询、/healthz 存活探针。
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"arbitrage-sniper/internal/util/fastparse"
)

// DefaultHistoryLimit 历史查询单次最大返回条数
const DefaultHistoryLimit = 50

// writeWait WebSocket 单次写超时
const writeWait = 10 * time.Second

// Server 信号分发服务端
type Server struct {
	hub    *Hub
	logger *zap.Logger
	// historyLimit 历史查询条数上限
	historyLimit int

	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// NewServer 创建分发服务端
// 参数 listenAddr: 监听地址，如 :8080
// 参数 historyLimit: 历史查询条数上限，<=0 时使用默认 50
func NewServer(listenAddr string, hub *Hub, historyLimit int, logger *zap.Logger) *Server {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}

	s := &Server{
		hub:          hub,
		logger:       logger.Named("gateway"),
		historyLimit: historyLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// 信号为公开推送，不校验来源
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/signals/history", s.handleHistory)
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpSrv = &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start 启动 HTTP 服务（非阻塞）
// 监听失败通过返回的通道上报。
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("网关启动", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("网关监听失败: %w", err)
		}
	}()
	return errCh
}

// Shutdown 优雅关闭 HTTP 服务
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// handleWS 处理 WebSocket 订阅
// 升级连接后注册到扇出中心，信号以 JSON 文本帧逐条推送。
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	sub := s.hub.Register()
	defer s.hub.Unregister(sub)

	// 读循环只用于感知断开，订阅者不发送业务消息
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer conn.Close()
	for {
		select {
		case <-done:
			return
		case sig, ok := <-sub.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(sig); err != nil {
				s.logger.Warn("推送信号失败", zap.Error(err))
				return
			}
		}
	}
}

// handleHistory 处理历史查询
// GET /signals/history?limit=N，N 超过上限时按上限截断，最新在前。
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := fastparse.ParseInt(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if int(n) < limit {
			limit = int(n)
		}
	}

	signals := s.hub.history.History(limit)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(signals); err != nil {
		s.logger.Warn("编码历史信号失败", zap.Error(err))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"subscribers": s.hub.Subscribers(),
	})
}
