package game

import "go.uber.org/zap"

const (
	BossHealth = 5
	bossSpawnY = 100
)

// Phase 关卡/Boss 进度状态
type Phase int

const (
	PhaseInLevel Phase = iota
	PhaseBossFight
	PhaseWon
)

func (p Phase) String() string {
	switch p {
	case PhaseInLevel:
		return "inLevel"
	case PhaseBossFight:
		return "bossFight"
	case PhaseWon:
		return "won"
	default:
		return "unknown"
	}
}

// Phase 当前进度状态
func (w *World) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phaseLocked()
}

func (w *World) phaseLocked() Phase {
	switch {
	case w.won:
		return PhaseWon
	case w.boss != nil:
		return PhaseBossFight
	default:
		return PhaseInLevel
	}
}

// rescueLocked InLevel -> BossFight：标记营救并在世界中上方生成 Boss
func (w *World) rescueLocked() []Event {
	w.zeldina.Rescued = true
	w.boss = &Boss{X: WorldWidth / 2, Y: bossSpawnY, Health: BossHealth}
	w.log.Info("zeldina rescued, boss spawned", zap.Int("level", w.level))
	return []Event{
		toAll(SignalMessage{Header: header(MsgZeldinaRescued)}),
		toAll(BossMessage{Header: header(MsgBossSpawned), Data: *w.boss}),
	}
}

// damageBossLocked 每次合格踩踏扣 1 血，归零时进入下一关或通关
func (w *World) damageBossLocked() []Event {
	w.boss.Health--
	if w.boss.Health > 0 {
		return []Event{toAll(BossMessage{Header: header(MsgBossUpdate), Data: *w.boss})}
	}

	w.boss = nil
	w.level++
	if w.level >= LevelCount() {
		w.won = true
		w.log.Info("final boss defeated, match won")
		return []Event{toAll(SignalMessage{Header: header(MsgGameWin)})}
	}

	w.loadLevelLocked(w.level)
	return []Event{toAll(LevelCompleteMessage{
		Header: header(MsgLevelComplete),
		Data:   LevelComplete{Level: w.level, Snapshot: w.snapshotLocked()},
	})}
}

// loadLevelLocked 从模板深拷贝重置关卡，并把在线玩家送回出生点。
// 生命数与当前血量上限保留（超级鸡是否到期已由 age 处理）。
func (w *World) loadLevelLocked(n int) bool {
	if n < 0 || n >= LevelCount() {
		return false
	}
	w.platforms, w.enemies, w.zeldina = levels[n].instantiate()
	w.level = n
	w.boss = nil
	w.projectiles = []Projectile{}

	for _, p := range w.players {
		p.Pos = SpawnPoint
		p.Vel = Vec{}
		p.Jumping = false
		if p.Lives <= 0 {
			p.Lives = DefaultLives
		}
		p.Health = p.MaxHealth
	}
	w.log.Info("level loaded", zap.Int("level", n), zap.String("name", levels[n].name))
	return true
}
