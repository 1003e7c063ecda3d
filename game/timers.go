package game

import "time"

const (
	// FramesPerSecond 客户端帧率；所有计时字段以帧为单位
	FramesPerSecond = 60

	// MegaChickenFrames 超级鸡持续帧数（30 秒）
	MegaChickenFrames = 1800

	staminaRegenPerSecond = 10
)

var frameInterval = time.Second / FramesPerSecond

// age 按流逝的墙钟时间推进会话的帧计时（服务端无 Tick，处理每个动作前调用）
func (p *PlayerSession) age(now time.Time) {
	if p.aged.IsZero() {
		p.aged = now
		return
	}
	frames := int(now.Sub(p.aged) / frameInterval)
	if frames <= 0 {
		return
	}
	p.aged = p.aged.Add(time.Duration(frames) * frameInterval)

	p.Invulnerable -= frames
	if p.Invulnerable < 0 {
		p.Invulnerable = 0
	}

	if p.IsMegaChicken {
		p.MegaChickenTimer -= frames
		if p.MegaChickenTimer <= 0 {
			p.expireMega()
		}
	}

	if p.Stamina < p.MaxStamina {
		p.Stamina += float64(frames) * staminaRegenPerSecond / FramesPerSecond
		if p.Stamina > p.MaxStamina {
			p.Stamina = p.MaxStamina
		}
	}
}

// expireMega 超级鸡到期：恢复 100 血上限并裁剪当前血量
func (p *PlayerSession) expireMega() {
	p.IsMegaChicken = false
	p.MegaChickenTimer = 0
	p.MaxHealth = BaseMaxHealth
	p.clampHealth()
}
