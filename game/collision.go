package game

import "math"

const (
	ContactDamage             = 25
	ContactInvulnerableFrames = 120

	contactReach = 30
	rescueReach  = 30
	stompReach   = 30
	bossReach    = 70

	jumpVelocity = -15
)

// within 轴对齐盒检测：|dx| < reach 且 |dy| < reach
func within(a, b Vec, reach float64) bool {
	return math.Abs(a.X-b.X) < reach && math.Abs(a.Y-b.Y) < reach
}

// checkCollisionsLocked 每次移动后调用。无敌期间整体跳过；
// 下落中（vel.y > 0）接触敌人走踩踏路径，不算接触伤害。
func (w *World) checkCollisionsLocked(id SessionID, p *PlayerSession) []Event {
	if p.Invulnerable > 0 {
		return nil
	}

	for i := range w.enemies {
		enemy := w.enemies[i]
		if !within(p.Pos, enemy.Pos, contactReach) || p.Vel.Y > 0 {
			continue
		}
		p.takeDamage(ContactDamage)
		p.Invulnerable = ContactInvulnerableFrames

		var events []Event
		if p.Health <= 0 {
			events = w.knockOutLocked(id, p, enemy.Name)
		}
		return append(events, toOne(id, PlayerDamagedMessage{
			Header: header(MsgPlayerDamaged),
			Damage: ContactDamage,
			Health: p.Health,
		}))
	}

	if w.zeldina != nil && !w.zeldina.Rescued && within(p.Pos, w.zeldina.pos(), rescueReach) {
		return w.rescueLocked()
	}
	return nil
}

// Smash 踩踏：杀死脚下所有敌人，并对 Boss 造成 1 点伤害
func (w *World) Smash(id SessionID) []Event {
	w.begin()
	defer w.end()

	p, ok := w.players[id]
	if !ok || p.Vel.Y <= 0 {
		return nil
	}

	var events []Event
	for i := len(w.enemies) - 1; i >= 0; i-- {
		if within(p.Pos, w.enemies[i].Pos, stompReach) {
			events = append(events, w.killEnemyLocked(i)...)
		}
	}

	if w.boss != nil && within(p.Pos, w.boss.pos(), bossReach) {
		events = append(events, w.damageBossLocked()...)
	}
	return events
}
