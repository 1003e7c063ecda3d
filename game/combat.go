package game

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

var (
	ErrUnknownAttack   = errors.New("unknown attack type")
	ErrAttackThrottled = errors.New("attack throttled")
)

// AttackType 攻击类型
type AttackType string

const (
	AttackPeck  AttackType = "peck"
	AttackKick  AttackType = "kick"
	AttackPunch AttackType = "punch"
	AttackEgg   AttackType = "egg"
	AttackKO    AttackType = "ko"
	AttackThrow AttackType = "throw"
)

const (
	CritChance       = 0.1
	GoldenEggChance  = 0.1
	pvpDamageFactor  = 0.5
	megaDamageFactor = 2
)

type attackStats struct {
	damage   int
	reach    float64
	cooldown time.Duration
	stamina  float64
}

var attackTable = map[AttackType]attackStats{
	AttackPeck:  {damage: 15, reach: 30, cooldown: 500 * time.Millisecond, stamina: 10},
	AttackKick:  {damage: 25, reach: 30, cooldown: 1000 * time.Millisecond, stamina: 15},
	AttackPunch: {damage: 20, reach: 35, cooldown: 800 * time.Millisecond, stamina: 12},
	AttackEgg:   {damage: 30, reach: 200, cooldown: 2000 * time.Millisecond, stamina: 20},
	AttackKO:    {damage: 50, reach: 60, cooldown: 5000 * time.Millisecond, stamina: 30},
	AttackThrow: {damage: 40, reach: 50, cooldown: 3000 * time.Millisecond, stamina: 25},
}

// ParseAttackType 校验攻击类型
func ParseAttackType(s string) (AttackType, error) {
	t := AttackType(s)
	if _, ok := attackTable[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAttack, s)
	}
	return t, nil
}

// AttackTypes 所有合法攻击类型
func AttackTypes() []AttackType {
	return []AttackType{AttackPeck, AttackKick, AttackPunch, AttackEgg, AttackKO, AttackThrow}
}

// AttackRequest 客户端发起的一次攻击
type AttackRequest struct {
	Type      AttackType
	Origin    Vec
	Direction int
}

// Hit 攻击命中记录
type Hit struct {
	TargetType string    `json:"type"`
	ID         SessionID `json:"id,omitempty"`
	Damage     int       `json:"damage"`
	Pos        Vec       `json:"pos"`
}

const (
	TargetPlayer = "player"
	TargetEnemy  = "enemy"
)

// AttackReport attackPerformed 的载荷
type AttackReport struct {
	AttackerID SessionID  `json:"attackerId"`
	AttackType AttackType `json:"attackType"`
	Pos        Vec        `json:"pos"`
	Direction  int        `json:"direction"`
	Hits       []Hit      `json:"hits"`
}

type plannedHit struct {
	player SessionID
	enemy  int
	damage int
}

// Attack 结算一次攻击。先在不修改状态的前提下计算全部命中，再统一提交，
// 任何校验失败都不会留下部分结果。攻击者不存在时静默忽略。
func (w *World) Attack(id SessionID, req AttackRequest) ([]Event, error) {
	now := w.begin()
	defer w.end()

	stats, ok := attackTable[req.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttack, req.Type)
	}
	attacker, ok := w.players[id]
	if !ok {
		return nil, nil
	}
	if w.rules.EnforceAttackLimits {
		if !attacker.lastAttack.IsZero() && now.Sub(attacker.lastAttack) < stats.cooldown {
			return nil, fmt.Errorf("%w: %s on cooldown", ErrAttackThrottled, req.Type)
		}
		if attacker.Stamina < stats.stamina {
			return nil, fmt.Errorf("%w: not enough stamina for %s", ErrAttackThrottled, req.Type)
		}
	}

	base := stats.damage
	if attacker.IsMegaChicken {
		base *= megaDamageFactor
	}

	var plan []plannedHit
	for _, tid := range w.order {
		if tid == id {
			continue
		}
		target := w.players[tid]
		if distance(req.Origin, target.Pos) <= stats.reach {
			plan = append(plan, plannedHit{player: tid, damage: w.rollDamage(base, true)})
		}
	}
	for i := len(w.enemies) - 1; i >= 0; i-- {
		if distance(req.Origin, w.enemies[i].Pos) <= stats.reach {
			plan = append(plan, plannedHit{enemy: i, damage: w.rollDamage(base, false)})
		}
	}

	// 提交阶段：以下只做赋值，不会失败
	if w.rules.EnforceAttackLimits {
		attacker.lastAttack = now
		attacker.Stamina -= stats.stamina
	}

	var events []Event
	hits := make([]Hit, 0, len(plan))
	for _, ph := range plan {
		if ph.player != "" {
			target := w.players[ph.player]
			hits = append(hits, Hit{TargetType: TargetPlayer, ID: ph.player, Damage: ph.damage, Pos: target.Pos})
			target.takeDamage(ph.damage)
			if target.Health <= 0 {
				events = append(events, w.knockOutLocked(ph.player, target, string(id))...)
			}
			continue
		}
		enemy := &w.enemies[ph.enemy]
		hits = append(hits, Hit{TargetType: TargetEnemy, Damage: ph.damage, Pos: enemy.Pos})
		enemy.Health -= ph.damage
		if enemy.Health < 0 {
			enemy.Health = 0
		}
		if enemy.Health <= 0 {
			events = append(events, w.killEnemyLocked(ph.enemy)...)
			if w.roll.Float64() < GoldenEggChance {
				attacker.HasGoldenEgg = true
				events = append(events, toOne(id, ItemReceivedMessage{Header: header(MsgItemReceived), Item: ItemGoldenEgg}))
			}
		}
	}

	if req.Type == AttackEgg {
		w.addProjectileLocked(Projectile{
			Pos:     req.Origin,
			Vel:     Vec{X: float64(req.Direction) * eggSpeedX, Y: eggSpeedY},
			Damage:  base,
			OwnerID: id,
			Type:    string(AttackEgg),
		})
	}

	w.log.Debug("attack resolved",
		zap.String("attacker", string(id)),
		zap.String("type", string(req.Type)),
		zap.Int("hits", len(hits)))

	events = append(events, toAll(AttackPerformedMessage{
		Header: header(MsgAttackPerformed),
		Data: AttackReport{
			AttackerID: id,
			AttackType: req.Type,
			Pos:        req.Origin,
			Direction:  req.Direction,
			Hits:       hits,
		},
	}))
	return events, nil
}

const (
	eggSpeedX = 10
	eggSpeedY = -5
)

// rollDamage PVP 先减半（向下取整），再独立判定 10% 暴击翻倍
func (w *World) rollDamage(base int, pvp bool) int {
	d := base
	if pvp {
		d = int(math.Floor(float64(base) * pvpDamageFactor))
	}
	if w.roll.Float64() < CritChance {
		d *= 2
	}
	return d
}

// killEnemyLocked 移除敌人并广播击杀位置。enemy 下标必须从大到小处理。
func (w *World) killEnemyLocked(i int) []Event {
	pos := w.enemies[i].Pos
	w.enemies = append(w.enemies[:i], w.enemies[i+1:]...)
	return []Event{toAll(EnemyKilledMessage{Header: header(MsgEnemyKilled), Data: pos})}
}

func distance(a, b Vec) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
