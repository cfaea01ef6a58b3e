package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`

	StartingBalance int64 `env:"STARTING_BALANCE" envDefault:"1000"`

	TickPeriod     time.Duration `env:"TICK_PERIOD" envDefault:"500ms"`
	TurnTimeout    time.Duration `env:"TURN_TIMEOUT" envDefault:"20s"`
	ReconnectGrace time.Duration `env:"RECONNECT_GRACE" envDefault:"30s"`
	RoomIdleAfter  time.Duration `env:"ROOM_IDLE_AFTER" envDefault:"10m"`

	DailyRewardAmount int64         `env:"DAILY_REWARD_AMOUNT" envDefault:"500"`
	DailyRewardEvery  time.Duration `env:"DAILY_REWARD_EVERY" envDefault:"24h"`

	AnnounceDiscordWebhook string        `env:"ANNOUNCE_DISCORD_WEBHOOK"`
	AnnounceWebhookURL     string        `env:"ANNOUNCE_WEBHOOK_URL"`
	AnnounceWebhookSecret  string        `env:"ANNOUNCE_WEBHOOK_SECRET"`
	AnnounceWorkers        int           `env:"ANNOUNCE_WORKERS" envDefault:"2"`
	AnnounceRetryMax       int           `env:"ANNOUNCE_RETRY_MAX" envDefault:"3"`
	AnnounceRetryBase      time.Duration `env:"ANNOUNCE_RETRY_BASE" envDefault:"500ms"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
