package server

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"henarena/game"
)

// Config 服务配置：默认值 < .env < 环境变量 < 命令行参数
type Config struct {
	Addr      string
	StaticDir string

	LogFile   string
	LogLevel  string
	LogStdout bool

	SendQueue        int   // 每个连接的发送队列长度
	BroadcastWorkers int   // 广播并发投递的协程上限
	ReadLimit        int64 // 单条入站消息最大字节数
	PongWait         time.Duration
	PingPeriod       time.Duration
	WriteWait        time.Duration

	RandSeed int64 // 0 表示使用当前时间
	Rules    game.Rules
}

func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		StaticDir:        "web",
		LogFile:          "app.log",
		LogLevel:         "debug",
		SendQueue:        64,
		BroadcastWorkers: 16,
		ReadLimit:        1 << 20, // 1MB
		PongWait:         60 * time.Second,
		PingPeriod:       25 * time.Second,
		WriteWait:        5 * time.Second,
		Rules:            game.DefaultRules(),
	}
}

// LoadConfig 读取可选的 .env 文件与 HEN_* 环境变量
func LoadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg := DefaultConfig()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("HEN_ADDR", &c.Addr)
	str("HEN_STATIC_DIR", &c.StaticDir)
	str("HEN_LOG_FILE", &c.LogFile)
	str("HEN_LOG_LEVEL", &c.LogLevel)
	boolean("HEN_LOG_STDOUT", &c.LogStdout)
	integer("HEN_SEND_QUEUE", &c.SendQueue)
	integer("HEN_BROADCAST_WORKERS", &c.BroadcastWorkers)
	boolean("HEN_ENFORCE_ATTACK_LIMITS", &c.Rules.EnforceAttackLimits)
	integer("HEN_MAX_PROJECTILES", &c.Rules.MaxProjectiles)
	if v, ok := lookup("HEN_RAND_SEED"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("HEN_RAND_SEED: %w", err))
		} else {
			c.RandSeed = n
		}
	}
	return multierr.Combine(errs...)
}

// BindFlags 注册命令行参数，解析后覆盖当前值
func (c *Config) BindFlags(set *flag.FlagSet) {
	set.StringVar(&c.Addr, "addr", c.Addr, "server listen address, e.g. :8080")
	set.StringVar(&c.StaticDir, "web", c.StaticDir, "directory of static client assets")
	set.StringVar(&c.LogFile, "log", c.LogFile, "log file path")
	set.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug|info|warn|error")
	set.BoolVar(&c.LogStdout, "log-stdout", c.LogStdout, "also write logs to stdout")
	set.IntVar(&c.SendQueue, "send-queue", c.SendQueue, "per-connection outbound queue length")
	set.IntVar(&c.BroadcastWorkers, "broadcast-workers", c.BroadcastWorkers, "max concurrent deliveries per broadcast")
	set.BoolVar(&c.Rules.EnforceAttackLimits, "enforce-attack-limits", c.Rules.EnforceAttackLimits, "validate attack cooldown and stamina on the server")
	set.IntVar(&c.Rules.MaxProjectiles, "max-projectiles", c.Rules.MaxProjectiles, "cap on stored projectiles")
	set.Int64Var(&c.RandSeed, "seed", c.RandSeed, "random seed for combat rolls (0 = time based)")
}

func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("config: empty listen address")
	case c.SendQueue <= 0:
		return fmt.Errorf("config: send queue must be positive, got %d", c.SendQueue)
	case c.BroadcastWorkers <= 0:
		return fmt.Errorf("config: broadcast workers must be positive, got %d", c.BroadcastWorkers)
	case c.Rules.MaxProjectiles < 0:
		return fmt.Errorf("config: max projectiles must not be negative, got %d", c.Rules.MaxProjectiles)
	}
	return nil
}
