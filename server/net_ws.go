package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"henarena/game"
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws    *websocket.Conn
	codec Codec
	send  chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClientConn(ws *websocket.Conn, codec Codec, queue int) *ClientConn {
	return &ClientConn{
		ws:    ws,
		codec: codec,
		send:  make(chan []byte, queue),
	}
}

func (c *ClientConn) Codec() Codec { return c.codec }

// Send 将消息压入发送队列（非阻塞）：连接已关闭返回 ErrSessionGone，队列满返回 ErrSendQueueFull
func (c *ClientConn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSessionGone
	}
	select {
	case c.send <- b:
		return nil
	default:
		// 为了实时性直接丢弃，下一次状态广播会自然纠正
		return ErrSendQueueFull
	}
}

// Close 关闭发送队列与底层连接（可重复调用）
func (c *ClientConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	return c.ws.Close()
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *ClientConn) writePump(cfg Config) {
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(c.codec.FrameType(), msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端动作并同步分发；同一会话的动作按到达顺序逐条处理完毕
func (c *ClientConn) readPump(hub *Hub, id game.SessionID, cfg Config) {
	// 读泵退出即视为断线
	defer hub.Disconnect(id)
	c.ws.SetReadLimit(cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Debugw("read error", "session", id, "error", err)
			}
			return
		}
		_ = hub.Dispatch(id, payload)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// WSHandler WebSocket 接入：/ws?codec=json|msgpack
// 连接建立即注册会话，随后需要客户端发送 join 才进入游戏
func (h *Hub) WSHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		codec, err := CodecByName(r.URL.Query().Get("codec"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			Log.Warnf("upgrade error: %v", err)
			return
		}

		id := game.SessionID(uuid.New().String())
		client := NewClientConn(ws, codec, cfg.SendQueue)
		h.Connect(id, client)

		go client.writePump(cfg)
		go client.readPump(h, id, cfg)
	}
}
