package game

// PlatformType 平台类型；移动/渐隐仅是客户端表现，服务端碰撞面固定
type PlatformType string

const (
	PlatformNormal PlatformType = "normal"
	PlatformMoving PlatformType = "moving"
	PlatformFading PlatformType = "fading"
)

type Platform struct {
	X    float64      `json:"x"`
	Y    float64      `json:"y"`
	W    float64      `json:"w"`
	H    float64      `json:"h"`
	Type PlatformType `json:"type"`
}

// Enemy 关卡敌人；服务端不驱动其移动
type Enemy struct {
	Pos    Vec     `json:"pos"`
	Color  string  `json:"color"`
	Name   string  `json:"name"`
	Speed  float64 `json:"speed"`
	Health int     `json:"health"`
}

// Zeldina 每关一个的营救目标
type Zeldina struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Rescued bool    `json:"rescued"`
}

func (z Zeldina) pos() Vec { return Vec{X: z.X, Y: z.Y} }

// Boss 仅存在于营救之后、被击败之前
type Boss struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Health int     `json:"health"`
}

func (b Boss) pos() Vec { return Vec{X: b.X, Y: b.Y} }

// Projectile 远程攻击生成的抛射物（创建后不推进、不结算）
type Projectile struct {
	Pos     Vec       `json:"pos"`
	Vel     Vec       `json:"vel"`
	Damage  int       `json:"damage"`
	OwnerID SessionID `json:"ownerId"`
	Type    string    `json:"type"`
}
