package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingToken = errors.New("no bot token found: set DISCORD_BOT_TOKEN (or TOKEN) in the environment or .env")

type Config struct {
	Discord      DiscordConfig      `mapstructure:"discord"`
	Channels     ChannelsConfig     `mapstructure:"channels"`
	Roles        RolesConfig        `mapstructure:"roles"`
	Tickets      TicketsConfig      `mapstructure:"tickets"`
	Sessions     SessionsConfig     `mapstructure:"sessions"`
	Applications ApplicationsConfig `mapstructure:"applications"`
	Leveling     LevelingConfig     `mapstructure:"leveling"`
	Economy      EconomyConfig      `mapstructure:"economy"`
	AutoMod      AutoModConfig      `mapstructure:"automod"`
	Verification VerificationConfig `mapstructure:"verification"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Events       EventsConfig       `mapstructure:"events"`
	Log          LogConfig          `mapstructure:"log"`
	Lang         LangConfig         `mapstructure:"lang"`
}

type DiscordConfig struct {
	Token   string `mapstructure:"token"`
	GuildID string `mapstructure:"guild_id"`
	Prefix  string `mapstructure:"prefix"`
}

type ChannelsConfig struct {
	Announcements string `mapstructure:"announcements"`
	Tickets       string `mapstructure:"tickets"`
	StaffLog      string `mapstructure:"staff_log"`
	Welcome       string `mapstructure:"welcome"`
	WarningStaff  string `mapstructure:"warning_staff"`
	ReleaseLog    string `mapstructure:"release_log"`
	Session       string `mapstructure:"session"`
	Applications  string `mapstructure:"applications"`
	Suggestions   string `mapstructure:"suggestions"`
}

type RolesConfig struct {
	Staff         string   `mapstructure:"staff"`
	SessionHost   string   `mapstructure:"session_host"`
	TicketAccess  string   `mapstructure:"ticket_access"`
	Reviewer      string   `mapstructure:"reviewer"`
	WarningLevels []string `mapstructure:"warning_levels"`
	StartupPings  []string `mapstructure:"startup_pings"`
	ReleasePings  []string `mapstructure:"release_pings"`
}

type TicketsConfig struct {
	CategoryID    string        `mapstructure:"category_id"`
	IdleThreshold time.Duration `mapstructure:"idle_threshold"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	CloseDelay    time.Duration `mapstructure:"close_delay"`
}

type SessionsConfig struct {
	PromptTimeout time.Duration `mapstructure:"prompt_timeout"`
	ModalTimeout  time.Duration `mapstructure:"modal_timeout"`
}

type ApplicationsConfig struct {
	AnswerTimeout time.Duration `mapstructure:"answer_timeout"`
	Questions     []string      `mapstructure:"questions"`
}

type LevelingConfig struct {
	XPMin int `mapstructure:"xp_min"`
	XPMax int `mapstructure:"xp_max"`
}

type EconomyConfig struct {
	CoinMin       int64         `mapstructure:"coin_min"`
	CoinMax       int64         `mapstructure:"coin_max"`
	DailyCooldown time.Duration `mapstructure:"daily_cooldown"`
	DailyMin      int64         `mapstructure:"daily_min"`
	DailyMax      int64         `mapstructure:"daily_max"`
	WorkCooldown  time.Duration `mapstructure:"work_cooldown"`
	WorkMin       int64         `mapstructure:"work_min"`
	WorkMax       int64         `mapstructure:"work_max"`
	Jobs          []string      `mapstructure:"jobs"`
}

type AutoModConfig struct {
	BadWords []string `mapstructure:"bad_words"`
}

// VerificationConfig is the reaction-role binding seeded at startup.
type VerificationConfig struct {
	ChannelID string `mapstructure:"channel_id"`
	MessageID string `mapstructure:"message_id"`
	Emoji     string `mapstructure:"emoji"`
	RoleID    string `mapstructure:"role_id"`
}

type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Driver  string        `mapstructure:"driver"`
	SQLite  SQLiteConfig  `mapstructure:"sqlite"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type EventsConfig struct {
	Driver string      `mapstructure:"driver"`
	AMQP   AMQPConfig  `mapstructure:"amqp"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type LangConfig struct {
	Path string `mapstructure:"path"`
}

// LoadConfig builds the configuration from compiled-in defaults, an optional
// YAML file, PRISM_* environment variables and finally the bot token from the
// process environment (or envFile when it exists).
func LoadConfig(path, envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PRISM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if tok := Token(); tok != "" {
		cfg.Discord.Token = tok
	}

	return &cfg, nil
}

// Token returns the credential from DISCORD_BOT_TOKEN, falling back to TOKEN.
func Token() string {
	if tok := os.Getenv("DISCORD_BOT_TOKEN"); tok != "" {
		return tok
	}
	return os.Getenv("TOKEN")
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return ErrMissingToken
	}
	if c.Discord.Prefix == "" {
		return errors.New("discord.prefix must not be empty")
	}
	if len(c.Roles.WarningLevels) != 3 {
		return fmt.Errorf("roles.warning_levels needs exactly 3 role ids, got %d", len(c.Roles.WarningLevels))
	}
	if c.Tickets.IdleThreshold <= 0 {
		return errors.New("tickets.idle_threshold must be positive")
	}
	if c.Tickets.SweepInterval <= 0 {
		return errors.New("tickets.sweep_interval must be positive")
	}
	if len(c.Applications.Questions) == 0 {
		return errors.New("applications.questions must not be empty")
	}
	return nil
}

// WarningRole returns the marker role for a ladder level (1..3).
func (c *Config) WarningRole(level int) string {
	if level < 1 || level > len(c.Roles.WarningLevels) {
		return ""
	}
	return c.Roles.WarningLevels[level-1]
}
