package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string        `env:"ADDR" envDefault:":8080"`
	DatabaseDSN string        `env:"DATABASE_DSN" envDefault:"postgres://localhost:5432/mowan?sslmode=disable"`
	JWTSecret   string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	GraceWindow time.Duration `env:"RECONNECT_GRACE" envDefault:"60s"`
	TurnTimer   time.Duration `env:"TURN_TIMER" envDefault:"0"`
	Retention   time.Duration `env:"ROOM_RETENTION" envDefault:"5m"`
	Dev         bool          `env:"DEV" envDefault:"false"`
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return env.ParseAs[Config]()
}
