package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"henarena/game"
)

// Hub 会话与广播层：维护在线连接，串联世界状态与出站投递。
// seq 从调用世界操作一直持有到事件全部入队，保证每个接收方看到的顺序
// 与世界提交顺序一致。Conn.Send 不阻塞，持锁期间只做入队。
type Hub struct {
	seq deadlock.Mutex

	world    *game.World
	registry Registry
	workers  int
	metrics  *HubMetrics
}

// NewHub 创建 Hub；workers 为单次广播的最大并发投递数
func NewHub(world *game.World, registry Registry, workers int) *Hub {
	if workers <= 0 {
		workers = 1
	}
	return &Hub{
		world:    world,
		registry: registry,
		workers:  workers,
		metrics:  &HubMetrics{},
	}
}

func (h *Hub) World() *game.World { return h.world }

func (h *Hub) Metrics() *HubMetrics { return h.metrics }

// Connect 连接建立时注册会话（尚未加入游戏）
func (h *Hub) Connect(id game.SessionID, c Conn) {
	h.seq.Lock()
	defer h.seq.Unlock()
	h.registry.Put(id, c)
	h.metrics.IncConnects()
	Log.Infow("session connected", "session", id, "codec", c.Codec().Name())
}

// Disconnect 注销会话（幂等）；玩家仍在局内时广播 playerLeft
func (h *Hub) Disconnect(id game.SessionID) {
	h.seq.Lock()
	defer h.seq.Unlock()
	h.disconnectLocked(id)
}

// disconnectLocked 返回连接是否由本次调用移除
func (h *Hub) disconnectLocked(id game.SessionID) bool {
	c, removed := h.registry.Delete(id)
	if removed {
		_ = c.Close()
		h.metrics.IncDisconnects()
		Log.Infow("session disconnected", "session", id)
	}
	h.deliverLocked(h.world.RemoveSession(id))
	return removed
}

// join 加入游戏；连接在排队等待 seq 时已断开的，撤销刚创建的玩家
func (h *Hub) join(id game.SessionID) []game.Event {
	events := h.world.Join(id)
	if _, ok := h.registry.Get(id); !ok {
		Log.Debugw("join raced a disconnect", "session", id)
		return h.world.RemoveSession(id)
	}
	return events
}

// deliverLocked 按产生顺序投递世界事件，调用方持有 seq
func (h *Hub) deliverLocked(events []game.Event) {
	for _, ev := range events {
		switch ev.Audience {
		case game.ToOne:
			h.sendLocked(ev.Session, ev.Message)
		case game.ToAllExcept:
			_ = h.broadcastLocked(ev.Message, ev.Session)
		default:
			_ = h.broadcastLocked(ev.Message, "")
		}
	}
}

// SendTo 单播；会话不存在时静默忽略
func (h *Hub) SendTo(id game.SessionID, msg game.Message) {
	h.seq.Lock()
	defer h.seq.Unlock()
	h.sendLocked(id, msg)
}

func (h *Hub) sendLocked(id game.SessionID, msg game.Message) {
	c, ok := h.registry.Get(id)
	if !ok {
		return
	}
	b, err := c.Codec().Marshal(msg)
	if err != nil {
		Log.Errorw("encode message failed", "session", id, "type", msg.MessageType(), "error", err)
		return
	}
	if err := c.Send(b); err != nil {
		h.metrics.AddFailed(1)
		Log.Warnw("delivery failed", "session", id, "type", msg.MessageType(), "error", err)
		if errors.Is(err, ErrSessionGone) {
			h.evictLocked(id)
		}
		return
	}
	h.metrics.AddSent(1)
}

type recipient struct {
	id   game.SessionID
	conn Conn
}

// Broadcast 投递给除 exclude 外的所有在线会话。每个接收方独立投递，
// 单个失败不影响其他人，也不重试；已离开的接收方会被清理。
func (h *Hub) Broadcast(msg game.Message, exclude game.SessionID) error {
	h.seq.Lock()
	defer h.seq.Unlock()
	return h.broadcastLocked(msg, exclude)
}

func (h *Hub) broadcastLocked(msg game.Message, exclude game.SessionID) error {
	var targets []recipient
	h.registry.Range(func(id game.SessionID, c Conn) bool {
		if id != exclude {
			targets = append(targets, recipient{id: id, conn: c})
		}
		return true
	})
	if len(targets) == 0 {
		return nil
	}

	// 每种编码只序列化一次
	encoded := make(map[string][]byte, 2)
	for _, t := range targets {
		codec := t.conn.Codec()
		if _, ok := encoded[codec.Name()]; ok {
			continue
		}
		b, err := codec.Marshal(msg)
		if err != nil {
			Log.Errorw("encode broadcast failed", "type", msg.MessageType(), "codec", codec.Name(), "error", err)
			return fmt.Errorf("encode %s as %s: %w", msg.MessageType(), codec.Name(), err)
		}
		encoded[codec.Name()] = b
	}

	var (
		mu       sync.Mutex
		failures error
		gone     []game.SessionID
		g        errgroup.Group
	)
	g.SetLimit(h.workers)
	for _, t := range targets {
		t := t
		payload := encoded[t.conn.Codec().Name()]
		g.Go(func() error {
			if err := t.conn.Send(payload); err != nil {
				mu.Lock()
				failures = multierr.Append(failures, fmt.Errorf("session %s: %w", t.id, err))
				if errors.Is(err, ErrSessionGone) {
					gone = append(gone, t.id)
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := len(multierr.Errors(failures))
	h.metrics.AddSent(int64(len(targets) - failed))
	if failures != nil {
		h.metrics.AddFailed(int64(failed))
		Log.Warnw("broadcast partially failed", "type", msg.MessageType(), "recipients", len(targets), "failed", failed, "error", failures)
	}
	for _, id := range gone {
		h.evictLocked(id)
	}
	return failures
}

// evictLocked 清理投递失败的会话；已被其他路径移除时不重复计数
func (h *Hub) evictLocked(id game.SessionID) {
	if h.disconnectLocked(id) {
		h.metrics.IncSessionsEvicted()
	}
}
