package server

import (
	"errors"

	"github.com/sasha-s/go-deadlock"

	"henarena/game"
)

var (
	// ErrSessionGone 接收方已离开（连接已关闭），触发会话清理
	ErrSessionGone = errors.New("session gone")
	// ErrSendQueueFull 发送队列已满，本条消息被丢弃
	ErrSendQueueFull = errors.New("send queue full")
)

// Conn 单个会话的出站通道
type Conn interface {
	Send(b []byte) error
	Codec() Codec
	Close() error
}

// Registry 在线连接表：按会话 ID 查找、遍历、插入、删除
type Registry interface {
	Put(id game.SessionID, c Conn)
	Get(id game.SessionID) (Conn, bool)
	// Delete 删除并返回原连接；不存在时返回 false
	Delete(id game.SessionID) (Conn, bool)
	Range(fn func(id game.SessionID, c Conn) bool)
	Len() int
}

// MemoryRegistry 进程内连接表
type MemoryRegistry struct {
	mu    deadlock.RWMutex
	conns map[game.SessionID]Conn
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{conns: make(map[game.SessionID]Conn)}
}

func (r *MemoryRegistry) Put(id game.SessionID, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = c
}

func (r *MemoryRegistry) Get(id game.SessionID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

func (r *MemoryRegistry) Delete(id game.SessionID) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	return c, ok
}

// Range 在快照上遍历，回调中可以安全地修改注册表
func (r *MemoryRegistry) Range(fn func(id game.SessionID, c Conn) bool) {
	r.mu.RLock()
	snapshot := make(map[game.SessionID]Conn, len(r.conns))
	for id, c := range r.conns {
		snapshot[id] = c
	}
	r.mu.RUnlock()

	for id, c := range snapshot {
		if !fn(id, c) {
			return
		}
	}
}

func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
