package game

import (
	"errors"
	"math/rand"
	"slices"
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// ErrNoGoldenEgg 没有金蛋时拒绝变身
var ErrNoGoldenEgg = errors.New("no golden egg")

// Roller 随机源（*rand.Rand 满足该接口），测试中可替换为固定序列
type Roller interface {
	Float64() float64
}

// Rules 运行期可调整的规则
type Rules struct {
	// EnforceAttackLimits 为 true 时服务端校验冷却与体力，否则信任客户端
	EnforceAttackLimits bool `json:"enforceAttackLimits"`
	// MaxProjectiles 抛射物列表上限，超出丢弃最旧的
	MaxProjectiles int `json:"maxProjectiles"`
}

func DefaultRules() Rules {
	return Rules{MaxProjectiles: 64}
}

type Option func(*World)

func WithLogger(l *zap.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.log = l
		}
	}
}

func WithRoller(r Roller) Option {
	return func(w *World) {
		if r != nil {
			w.roll = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *World) {
		if now != nil {
			w.now = now
		}
	}
}

func WithRules(r Rules) Option {
	return func(w *World) { w.rules = r }
}

// World 世界状态存储：唯一的权威状态，所有读写都在同一把锁内串行完成。
// 每个公开方法代表一次完整的逻辑动作，返回的 Event 由调用方在锁外投递。
type World struct {
	mu    deadlock.Mutex
	log   *zap.Logger
	roll  Roller
	now   func() time.Time
	rules Rules

	initialized bool
	won         bool
	players     map[SessionID]*PlayerSession
	order       []SessionID // 加入顺序，保证结算顺序确定
	enemies     []Enemy
	platforms   []Platform
	zeldina     *Zeldina
	boss        *Boss
	level       int
	projectiles []Projectile
}

func NewWorld(opts ...Option) *World {
	w := &World{
		log:     zap.NewNop(),
		roll:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
		rules:   DefaultRules(),
		players: make(map[SessionID]*PlayerSession),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// begin 加锁并推进所有会话的帧计时，返回本次动作的时间点
func (w *World) begin() time.Time {
	w.mu.Lock()
	now := w.now()
	for _, p := range w.players {
		p.age(now)
	}
	return now
}

func (w *World) end() { w.mu.Unlock() }

// Join 新玩家加入；首次加入时惰性初始化世界
func (w *World) Join(id SessionID) []Event {
	now := w.begin()
	defer w.end()

	if !w.initialized {
		w.log.Info("initializing world on first join")
		w.loadLevelLocked(0)
		w.initialized = true
	}

	p := newPlayerSession(now)
	if _, ok := w.players[id]; !ok {
		w.order = append(w.order, id)
	}
	w.players[id] = p

	return []Event{
		toOne(id, JoinedMessage{Header: header(MsgJoined), PlayerID: id}),
		toOne(id, GameStateMessage{Header: header(MsgGameState), Data: w.snapshotLocked()}),
		toAllExcept(id, PlayerUpdateMessage{Header: header(MsgPlayerUpdate), Data: p.update(id)}),
	}
}

// Move 客户端上报位置/速度后执行碰撞检测并通知其他人
func (w *World) Move(id SessionID, pos, vel Vec, jumping bool) []Event {
	w.begin()
	defer w.end()

	p, ok := w.players[id]
	if !ok {
		return nil
	}
	p.Pos = pos
	p.Vel = vel
	p.Jumping = jumping

	events := w.checkCollisionsLocked(id, p)
	if _, still := w.players[id]; still {
		events = append(events, toAllExcept(id, PlayerUpdateMessage{Header: header(MsgPlayerUpdate), Data: p.update(id)}))
	}
	return events
}

// Jump 未在跳跃中时起跳，广播给包括自己在内的所有人
func (w *World) Jump(id SessionID) []Event {
	w.begin()
	defer w.end()

	p, ok := w.players[id]
	if !ok || p.Jumping {
		return nil
	}
	p.Vel.Y = jumpVelocity
	p.Jumping = true
	return []Event{toAll(PlayerUpdateMessage{Header: header(MsgPlayerUpdate), Data: p.update(id)})}
}

// MegaTransform 消耗金蛋变身超级鸡
func (w *World) MegaTransform(id SessionID) ([]Event, error) {
	w.begin()
	defer w.end()

	p, ok := w.players[id]
	if !ok {
		return nil, nil
	}
	if !p.HasGoldenEgg {
		return nil, ErrNoGoldenEgg
	}
	p.IsMegaChicken = true
	p.MegaChickenTimer = MegaChickenFrames
	p.MaxHealth = MegaMaxHealth
	p.Health = MegaMaxHealth
	p.HasGoldenEgg = false
	w.log.Info("mega transform", zap.String("session", string(id)))

	return []Event{toAll(MegaTransformMessage{
		Header: header(MsgMegaTransform),
		Data:   MegaState{PlayerID: id, Active: true},
	})}, nil
}

// RemoveSession 移除会话（幂等）；若玩家在局内则广播 playerLeft
func (w *World) RemoveSession(id SessionID) []Event {
	w.begin()
	defer w.end()

	if !w.removeLocked(id) {
		return nil
	}
	return []Event{toAll(PlayerLeftMessage{Header: header(MsgPlayerLeft), PlayerID: id})}
}

// Snapshot 返回完整世界状态的深拷贝
func (w *World) Snapshot() Snapshot {
	w.begin()
	defer w.end()
	return w.snapshotLocked()
}

// Player 返回会话状态的副本
func (w *World) Player(id SessionID) (PlayerSession, bool) {
	w.begin()
	defer w.end()
	p, ok := w.players[id]
	if !ok {
		return PlayerSession{}, false
	}
	return *p, true
}

func (w *World) Rules() Rules {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rules
}

func (w *World) SetRules(r Rules) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rules = r
	w.trimProjectilesLocked()
}

// Summary 供监控接口使用的概要
type Summary struct {
	Phase       string `json:"phase"`
	Level       int    `json:"level"`
	LevelName   string `json:"levelName"`
	Players     int    `json:"players"`
	Enemies     int    `json:"enemies"`
	Projectiles int    `json:"projectiles"`
}

func (w *World) Summary() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Summary{
		Phase:       w.phaseLocked().String(),
		Level:       w.level,
		LevelName:   LevelName(w.level),
		Players:     len(w.players),
		Enemies:     len(w.enemies),
		Projectiles: len(w.projectiles),
	}
}

func (w *World) removeLocked(id SessionID) bool {
	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	if i := slices.Index(w.order, id); i >= 0 {
		w.order = slices.Delete(w.order, i, i+1)
	}
	return true
}

// knockOutLocked 血量归零：扣命后复活或淘汰
func (w *World) knockOutLocked(id SessionID, p *PlayerSession, by string) []Event {
	p.Lives--
	if p.Lives > 0 {
		p.respawn()
		return nil
	}
	w.removeLocked(id)
	w.log.Info("player eliminated", zap.String("session", string(id)), zap.String("by", by))
	return []Event{toAll(PlayerEliminatedMessage{
		Header:       header(MsgPlayerEliminated),
		PlayerID:     id,
		EliminatedBy: by,
	})}
}

func (w *World) addProjectileLocked(pr Projectile) {
	w.projectiles = append(w.projectiles, pr)
	w.trimProjectilesLocked()
}

func (w *World) trimProjectilesLocked() {
	limit := w.rules.MaxProjectiles
	if limit <= 0 || len(w.projectiles) <= limit {
		return
	}
	w.projectiles = slices.Delete(w.projectiles, 0, len(w.projectiles)-limit)
}

// Snapshot 世界状态的只读副本（gameState / levelComplete 载荷）
type Snapshot struct {
	Players      map[SessionID]PlayerSession `json:"players"`
	Enemies      []Enemy                     `json:"enemies"`
	Platforms    []Platform                  `json:"platforms"`
	Zeldina      *Zeldina                    `json:"zeldina"`
	Boss         *Boss                       `json:"boss"`
	CurrentLevel int                         `json:"currentLevel"`
	Projectiles  []Projectile                `json:"projectiles"`
}

func (w *World) snapshotLocked() Snapshot {
	s := Snapshot{
		Players:      make(map[SessionID]PlayerSession, len(w.players)),
		Enemies:      append([]Enemy{}, w.enemies...),
		Platforms:    append([]Platform{}, w.platforms...),
		CurrentLevel: w.level,
		Projectiles:  append([]Projectile{}, w.projectiles...),
	}
	for id, p := range w.players {
		s.Players[id] = *p
	}
	if w.zeldina != nil {
		z := *w.zeldina
		s.Zeldina = &z
	}
	if w.boss != nil {
		b := *w.boss
		s.Boss = &b
	}
	return s
}
