package server

import (
	"errors"
	"fmt"
	"runtime/debug"

	"henarena/game"
)

// ErrInternal 处理动作时发生的意外错误
var ErrInternal = errors.New("internal error")

// MsgActionRejected 动作被拒绝时仅回给发送方
const MsgActionRejected = "actionRejected"

type rejectMessage struct {
	game.Header
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// Dispatch 解码一条入站消息并路由到对应处理器。
// 错误只影响这一条动作：不广播，不影响其他会话。
// 世界操作与事件入队在 seq 下完成，所有会话的动作在这里串行。
func (h *Hub) Dispatch(id game.SessionID, raw []byte) (err error) {
	var action string
	h.seq.Lock()
	defer h.seq.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInternal, r)
			Log.Errorw("action panicked", "session", id, "action", action, "panic", r, "stack", string(debug.Stack()))
		}
		h.settleLocked(id, action, err)
	}()

	env, err := DecodeAction(raw)
	if err != nil {
		return err
	}
	action = env.Action

	events, err := h.route(id, env)
	if err != nil {
		return err
	}
	h.deliverLocked(events)
	return nil
}

func (h *Hub) route(id game.SessionID, env ActionEnvelope) ([]game.Event, error) {
	switch env.Action {
	case ActionJoin:
		return h.join(id), nil
	case ActionMove:
		pos, vel, jumping, err := DecodeMove(env)
		if err != nil {
			return nil, err
		}
		return h.world.Move(id, pos, vel, jumping), nil
	case ActionJump:
		return h.world.Jump(id), nil
	case ActionSmash:
		return h.world.Smash(id), nil
	case ActionAttack:
		req, err := DecodeAttack(env)
		if err != nil {
			return nil, err
		}
		return h.world.Attack(id, req)
	case ActionMegaTransform:
		return h.world.MegaTransform(id)
	default:
		return nil, badRequest("unknown action %q", env.Action)
	}
}

// settleLocked 统计结果，并把拒绝原因回给发送方
func (h *Hub) settleLocked(id game.SessionID, action string, err error) {
	if err == nil {
		h.metrics.IncAccepted()
		return
	}

	var reason string
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, game.ErrUnknownAttack):
		reason = ErrBadRequest.Error()
	case errors.Is(err, game.ErrAttackThrottled):
		reason = game.ErrAttackThrottled.Error()
	case errors.Is(err, game.ErrNoGoldenEgg):
		reason = game.ErrNoGoldenEgg.Error()
	default:
		h.metrics.IncFailed()
		Log.Errorw("action failed", "session", id, "action", action, "error", err)
		h.sendLocked(id, rejectMessage{Header: game.Header{Type: MsgActionRejected}, Action: action, Reason: ErrInternal.Error()})
		return
	}
	h.metrics.IncRejected()
	Log.Debugw("action rejected", "session", id, "action", action, "error", err)
	h.sendLocked(id, rejectMessage{Header: game.Header{Type: MsgActionRejected}, Action: action, Reason: reason})
}
