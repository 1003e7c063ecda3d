package game

// 出站消息类型
const (
	MsgJoined           = "joined"
	MsgGameState        = "gameState"
	MsgPlayerUpdate     = "playerUpdate"
	MsgPlayerDamaged    = "playerDamaged"
	MsgEnemyKilled      = "enemyKilled"
	MsgPlayerEliminated = "playerEliminated"
	MsgPlayerLeft       = "playerLeft"
	MsgZeldinaRescued   = "zeldinaRescued"
	MsgBossSpawned      = "bossSpawned"
	MsgBossUpdate       = "bossUpdate"
	MsgLevelComplete    = "levelComplete"
	MsgGameWin          = "gameWin"
	MsgItemReceived     = "itemReceived"
	MsgAttackPerformed  = "attackPerformed"
	MsgMegaTransform    = "megaTransform"
)

// ItemGoldenEgg 金蛋掉落物
const ItemGoldenEgg = "goldenEgg"

// Message 出站消息，序列化为 {type, ...payload}
type Message interface {
	MessageType() string
}

// Header 嵌入到每个出站消息中，序列化时展开为 type 字段
type Header struct {
	Type string `json:"type"`
}

func (h Header) MessageType() string { return h.Type }

type JoinedMessage struct {
	Header
	PlayerID SessionID `json:"playerId"`
}

type GameStateMessage struct {
	Header
	Data Snapshot `json:"data"`
}

type PlayerUpdateMessage struct {
	Header
	Data PlayerUpdate `json:"data"`
}

type PlayerDamagedMessage struct {
	Header
	Damage int `json:"damage"`
	Health int `json:"health"`
}

type EnemyKilledMessage struct {
	Header
	Data Vec `json:"data"`
}

type PlayerEliminatedMessage struct {
	Header
	PlayerID     SessionID `json:"playerId"`
	EliminatedBy string    `json:"eliminatedBy"`
}

type PlayerLeftMessage struct {
	Header
	PlayerID SessionID `json:"playerId"`
}

// SignalMessage 无载荷消息（zeldinaRescued、gameWin）
type SignalMessage struct {
	Header
}

type BossMessage struct {
	Header
	Data Boss `json:"data"`
}

// LevelComplete 新关卡序号 + 完整世界状态
type LevelComplete struct {
	Level int `json:"level"`
	Snapshot
}

type LevelCompleteMessage struct {
	Header
	Data LevelComplete `json:"data"`
}

type ItemReceivedMessage struct {
	Header
	Item string `json:"item"`
}

type AttackPerformedMessage struct {
	Header
	Data AttackReport `json:"data"`
}

type MegaState struct {
	PlayerID SessionID `json:"playerId"`
	Active   bool      `json:"active"`
}

type MegaTransformMessage struct {
	Header
	Data MegaState `json:"data"`
}

// Audience 消息投递范围
type Audience int

const (
	ToAll Audience = iota
	ToAllExcept
	ToOne
)

// Event 一次状态变更产生的待投递消息；在释放世界锁之后按顺序投递
type Event struct {
	Audience Audience
	Session  SessionID // ToOne 的接收者或 ToAllExcept 的排除者
	Message  Message
}

func toAll(m Message) Event { return Event{Audience: ToAll, Message: m} }

func toAllExcept(id SessionID, m Message) Event {
	return Event{Audience: ToAllExcept, Session: id, Message: m}
}

func toOne(id SessionID, m Message) Event {
	return Event{Audience: ToOne, Session: id, Message: m}
}

func header(t string) Header { return Header{Type: t} }
