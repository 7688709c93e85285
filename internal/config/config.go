package config

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/ledass/Auto-accepting-repo/internal/audit"
	"github.com/ledass/Auto-accepting-repo/internal/domain"
)

// ErrNoAdmin is returned by Admin when ADMIN_ID is not set.
var ErrNoAdmin = errors.New("ADMIN_ID is not set")

// Config holds application configuration loaded from environment variables.
//
// ADMIN_ID and LOG_CHANNEL_ID are kept raw: a bad value disables the
// feature instead of failing startup.
type Config struct {
	BotToken       string `envconfig:"BOT_TOKEN" required:"true"`
	AdminIDRaw     string `envconfig:"ADMIN_ID"`
	LogChannelRaw  string `envconfig:"LOG_CHANNEL_ID"`
	StoreDriver    string `envconfig:"STORE_DRIVER" default:"sqlite"` // sqlite|file
	DBPath         string `envconfig:"DB_PATH" default:"./data/users.db"`
	UsersFile      string `envconfig:"USERS_FILE" default:"./data/users.json"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	HTTPAddr       string `envconfig:"HTTP_ADDR" default:":8080"` // healthz
	BroadcastQueue int    `envconfig:"BROADCAST_QUEUE" default:"4"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if strings.TrimSpace(cfg.BotToken) == "" {
		return cfg, errors.New("BOT_TOKEN is empty")
	}
	return cfg, nil
}

// Admin parses ADMIN_ID. On error the returned Admin is disabled, so admin
// commands are rejected for everyone.
func (c Config) Admin() (domain.Admin, error) {
	raw := strings.TrimSpace(c.AdminIDRaw)
	if raw == "" {
		return domain.Admin{}, ErrNoAdmin
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return domain.Admin{}, err
	}
	return domain.Admin{ID: domain.UserID(id), Enabled: true}, nil
}

// AuditDestination parses LOG_CHANNEL_ID. An empty value disables auditing.
func (c Config) AuditDestination() (audit.Destination, error) {
	return audit.ParseDestination(c.LogChannelRaw)
}
