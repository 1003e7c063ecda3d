package server

import (
	"math/rand"
	"sync"
	"time"

	"henarena/game"
)

var (
	defaultHub *Hub
	once       sync.Once
)

// NewHubFromConfig 按配置组装世界状态、连接表与 Hub
func NewHubFromConfig(cfg Config) *Hub {
	seed := cfg.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	world := game.NewWorld(
		game.WithLogger(Log.Desugar().Named("world")),
		game.WithRoller(rand.New(rand.NewSource(seed))),
		game.WithRules(cfg.Rules),
	)
	return NewHub(world, NewMemoryRegistry(), cfg.BroadcastWorkers)
}

// GetHub 进程内唯一的 Hub；首次调用时用 cfg 创建，之后忽略参数
func GetHub(cfg Config) *Hub {
	once.Do(func() {
		defaultHub = NewHubFromConfig(cfg)
	})
	return defaultHub
}
