package game

import "time"

// SessionID 会话唯一标识（每个连接一个）
type SessionID string

// Vec 二维坐标或速度
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

const (
	DefaultLives   = 3
	BaseMaxHealth  = 100
	MegaMaxHealth  = 200
	BaseMaxStamina = 100

	// RespawnInvulnerableFrames 复活后的无敌帧数（60 FPS 下 3 秒）
	RespawnInvulnerableFrames = 180
)

// SpawnPoint 出生点与复活点
var SpawnPoint = Vec{X: 50, Y: 400}

// PlayerSession 玩家实体（服务端权威状态）
type PlayerSession struct {
	Pos              Vec     `json:"pos"`
	Vel              Vec     `json:"vel"`
	Jumping          bool    `json:"jumping"`
	Lives            int     `json:"lives"`
	Health           int     `json:"health"`
	MaxHealth        int     `json:"maxHealth"`
	Stamina          float64 `json:"stamina"`
	MaxStamina       float64 `json:"maxStamina"`
	IsMegaChicken    bool    `json:"isMegaChicken"`
	MegaChickenTimer int     `json:"megaChickenTimer"`
	HasGoldenEgg     bool    `json:"hasGoldenEgg"`
	Invulnerable     int     `json:"invulnerable"`
	Score            int     `json:"score"`

	aged       time.Time // 帧计时推进到的时间点
	lastAttack time.Time
}

func newPlayerSession(now time.Time) *PlayerSession {
	return &PlayerSession{
		Pos:        SpawnPoint,
		Lives:      DefaultLives,
		Health:     BaseMaxHealth,
		MaxHealth:  BaseMaxHealth,
		Stamina:    BaseMaxStamina,
		MaxStamina: BaseMaxStamina,
		aged:       now,
	}
}

// PlayerUpdate 广播给其他客户端的轻量状态
type PlayerUpdate struct {
	ID            SessionID `json:"id"`
	Pos           Vec       `json:"pos"`
	Vel           Vec       `json:"vel"`
	Jumping       bool      `json:"jumping"`
	Health        int       `json:"health"`
	MaxHealth     int       `json:"maxHealth"`
	IsMegaChicken bool      `json:"isMegaChicken"`
}

func (p *PlayerSession) update(id SessionID) PlayerUpdate {
	return PlayerUpdate{
		ID:            id,
		Pos:           p.Pos,
		Vel:           p.Vel,
		Jumping:       p.Jumping,
		Health:        p.Health,
		MaxHealth:     p.MaxHealth,
		IsMegaChicken: p.IsMegaChicken,
	}
}

// takeDamage 扣血并裁剪到 [0, MaxHealth]
func (p *PlayerSession) takeDamage(n int) {
	if n < 0 {
		n = 0
	}
	p.Health -= n
	p.clampHealth()
}

func (p *PlayerSession) clampHealth() {
	if p.Health < 0 {
		p.Health = 0
	}
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
}

// respawn 回到出生点，满血并获得复活无敌
func (p *PlayerSession) respawn() {
	p.Pos = SpawnPoint
	p.Vel = Vec{}
	p.Health = p.MaxHealth
	p.Invulnerable = RespawnInvulnerableFrames
}
