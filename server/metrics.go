package server

import (
	"sync/atomic"
)

// HubMetrics 记录会话层运行期的关键指标（用于监控与调试）
type HubMetrics struct {
	ActionsAccepted  int64 // 成功处理的动作数
	ActionsRejected  int64 // 被拒绝的动作数（格式错误、限流、无金蛋）
	ActionsFailed    int64 // 内部错误导致失败的动作数
	Connects         int64
	Disconnects      int64
	DeliveriesSent   int64 // 成功入队的出站消息数
	DeliveriesFailed int64 // 投递失败数（队列满或接收方已离开）
	SessionsEvicted  int64 // 因投递失败被清理的会话数
}

func (m *HubMetrics) IncAccepted()        { atomic.AddInt64(&m.ActionsAccepted, 1) }
func (m *HubMetrics) IncRejected()        { atomic.AddInt64(&m.ActionsRejected, 1) }
func (m *HubMetrics) IncFailed()          { atomic.AddInt64(&m.ActionsFailed, 1) }
func (m *HubMetrics) IncConnects()        { atomic.AddInt64(&m.Connects, 1) }
func (m *HubMetrics) IncDisconnects()     { atomic.AddInt64(&m.Disconnects, 1) }
func (m *HubMetrics) AddSent(n int64)     { atomic.AddInt64(&m.DeliveriesSent, n) }
func (m *HubMetrics) AddFailed(n int64)   { atomic.AddInt64(&m.DeliveriesFailed, n) }
func (m *HubMetrics) IncSessionsEvicted() { atomic.AddInt64(&m.SessionsEvicted, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *HubMetrics) Snapshot() map[string]any {
	return map[string]any{
		"actions_accepted":  atomic.LoadInt64(&m.ActionsAccepted),
		"actions_rejected":  atomic.LoadInt64(&m.ActionsRejected),
		"actions_failed":    atomic.LoadInt64(&m.ActionsFailed),
		"connects":          atomic.LoadInt64(&m.Connects),
		"disconnects":       atomic.LoadInt64(&m.Disconnects),
		"deliveries_sent":   atomic.LoadInt64(&m.DeliveriesSent),
		"deliveries_failed": atomic.LoadInt64(&m.DeliveriesFailed),
		"sessions_evicted":  atomic.LoadInt64(&m.SessionsEvicted),
	}
}
