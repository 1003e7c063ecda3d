package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"henarena/game"
)

// ErrBadRequest 动作未知或缺少必填字段
var ErrBadRequest = errors.New("bad request")

// 客户端动作
const (
	ActionJoin          = "join"
	ActionMove          = "move"
	ActionJump          = "jump"
	ActionSmash         = "smash"
	ActionAttack        = "attack"
	ActionMegaTransform = "megaTransform"
)

// ActionEnvelope 入站消息信封（WebSocket 文本消息）
// 示例：{"action":"move","data":{"pos":{"x":1,"y":2},"vel":{"x":0,"y":0},"jumping":false}}
type ActionEnvelope struct {
	Action string          `json:"action" jsonschema:"enum=join,enum=move,enum=jump,enum=smash,enum=attack,enum=megaTransform"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// MovePayload move 动作的数据；指针字段用于区分缺失与零值
type MovePayload struct {
	Pos     *game.Vec `json:"pos"`
	Vel     *game.Vec `json:"vel"`
	Jumping *bool     `json:"jumping"`
}

// AttackPayload attack 动作的数据
type AttackPayload struct {
	Type      string    `json:"type" jsonschema:"enum=peck,enum=kick,enum=punch,enum=egg,enum=ko,enum=throw"`
	Pos       *game.Vec `json:"pos"`
	Direction *int      `json:"direction" jsonschema:"enum=-1,enum=1"`
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// DecodeAction 解析信封；动作名在分发时校验
func DecodeAction(b []byte) (ActionEnvelope, error) {
	if len(b) == 0 {
		return ActionEnvelope{}, badRequest("empty message")
	}
	var env ActionEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return ActionEnvelope{}, badRequest("invalid json: %v", err)
	}
	if env.Action == "" {
		return ActionEnvelope{}, badRequest("missing action")
	}
	return env, nil
}

func decodeData[T any](env ActionEnvelope) (T, error) {
	var out T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, badRequest("%s: missing data", env.Action)
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, badRequest("%s: %v", env.Action, err)
	}
	return out, nil
}

// DecodeMove 解析并校验 move 数据
func DecodeMove(env ActionEnvelope) (pos, vel game.Vec, jumping bool, err error) {
	p, err := decodeData[MovePayload](env)
	if err != nil {
		return pos, vel, false, err
	}
	if p.Pos == nil || p.Vel == nil || p.Jumping == nil {
		return pos, vel, false, badRequest("move: pos, vel and jumping are required")
	}
	return *p.Pos, *p.Vel, *p.Jumping, nil
}

// DecodeAttack 解析并校验 attack 数据
func DecodeAttack(env ActionEnvelope) (game.AttackRequest, error) {
	p, err := decodeData[AttackPayload](env)
	if err != nil {
		return game.AttackRequest{}, err
	}
	typ, err := game.ParseAttackType(p.Type)
	if err != nil {
		return game.AttackRequest{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if p.Pos == nil || p.Direction == nil {
		return game.AttackRequest{}, badRequest("attack: pos and direction are required")
	}
	if *p.Direction != -1 && *p.Direction != 1 {
		return game.AttackRequest{}, badRequest("attack: direction must be -1 or 1, got %d", *p.Direction)
	}
	return game.AttackRequest{Type: typ, Origin: *p.Pos, Direction: *p.Direction}, nil
}
