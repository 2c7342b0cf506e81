package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNoPassword is returned by RequirePassword when no RCON password is set.
var ErrNoPassword = errors.New("rcon password not configured")

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Bot      BotConfig      `yaml:"bot"`
	Mapcycle MapcycleConfig `yaml:"mapcycle"`
	Rules    RulesConfig    `yaml:"rules"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Notify   NotifyConfig   `yaml:"notify"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the game server connection settings
type ServerConfig struct {
	LogFile      string        `yaml:"log_file"`
	Address      string        `yaml:"address"`
	RconPassword string        `yaml:"rcon_password"`
	RconDelay    time.Duration `yaml:"rcon_delay"`
	RconTimeout  time.Duration `yaml:"rcon_timeout"`
	PMTag        bool          `yaml:"pm_tag"`
	MapcycleFile string        `yaml:"mapcycle_file"`
	ServerName   string        `yaml:"server_name"`
	DiscordLink  string        `yaml:"discord_link"`
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BotConfig holds the moderation policy
type BotConfig struct {
	TeamkillAutokick       bool   `yaml:"teamkill_autokick"`
	NoobAutokick           bool   `yaml:"noob_autokick"`
	SpawnkillAutokick      bool   `yaml:"spawnkill_autokick"`
	InstantKillSpawnkiller bool   `yaml:"instant_kill_spawnkiller"`
	MaxPing                int    `yaml:"max_ping"`
	KickSpecFullServer     int    `yaml:"kick_spec_full_server"`
	TaskFrequency          int    `yaml:"task_frequency"`
	WarnExpiration         int    `yaml:"warn_expiration"`
	BadWordsAutokick       int    `yaml:"bad_words_autokick"`
	BanDuration            int    `yaml:"ban_duration"`
	ShowCountryOnConnect   bool   `yaml:"show_country_on_connect"`
	ShowFirstKill          bool   `yaml:"show_first_kill"`
	ShowHitStatsRespawn    bool   `yaml:"show_hit_stats_respawn"`
	ShowMultiKill          bool   `yaml:"show_multi_kill"`
	Autobalancer           bool   `yaml:"autobalancer"`
	AllowTeamsRoundEnd     bool   `yaml:"allow_teams_round_end"`
	LimitNextmapVotes      bool   `yaml:"limit_nextmap_votes"`
	LimitCyclemapVotes     bool   `yaml:"limit_cyclemap_votes"`
	FailedVoteDelay        int    `yaml:"failed_vote_delay"`
	RequireAuthVotes       bool   `yaml:"require_auth_votes"`
	SpamBombPlanted        bool   `yaml:"spam_bomb_planted"`
	KillSurvivedOpponents  bool   `yaml:"kill_survived_opponents"`
	SpamKnifeKills         bool   `yaml:"spam_knife_kills"`
	SpamNadeKills          bool   `yaml:"spam_nade_kills"`
	SpamHeadshotHits       bool   `yaml:"spam_headshot_hits"`
	ExplodeTime            string `yaml:"explode_time"`
	SupportLowGravity      bool   `yaml:"support_lowgravity"`
	Gravity                int    `yaml:"gravity"`
	// ClanTags are name prefixes reserved for Regulars and above.
	ClanTags []string `yaml:"clan_tags"`
}

// MapcycleConfig controls the player-count dependent map rotation
type MapcycleConfig struct {
	Dynamic      bool     `yaml:"dynamic_mapcycle"`
	SwitchCount  int      `yaml:"switch_count"`
	BigCycle     []string `yaml:"big_cycle"`
	SmallCycle   []string `yaml:"small_cycle"`
	DisabledMaps []string `yaml:"disabled_maps"`
}

// RulesConfig controls the rotating server messages
type RulesConfig struct {
	Show        bool          `yaml:"show_rules"`
	Display     string        `yaml:"display"`
	Frequency   int           `yaml:"frequency"`
	File        string        `yaml:"file"`
	InitialWait time.Duration `yaml:"initial_wait"`
}

// LookupConfig holds the external lookup services
type LookupConfig struct {
	GeoIPDB       string `yaml:"geoip_db"`
	IPHubKey      string `yaml:"iphub_key"`
	AuthStatusURL string `yaml:"auth_status_url"`
}

// NotifyConfig holds the outbound notification sinks
type NotifyConfig struct {
	DiscordReportWebhook string `yaml:"discord_report_webhook"`
	DiscordBanWebhook    string `yaml:"discord_ban_webhook"`
	NATSURL              string `yaml:"nats_url"`
	NATSSubject          string `yaml:"nats_subject"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns a configuration with every option at its documented default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:     "127.0.0.1:27960",
			RconDelay:   200 * time.Millisecond,
			RconTimeout: 3 * time.Second,
			PMTag:       true,
			DiscordLink: "discordapp.com",
		},
		Database: DatabaseConfig{Path: "./data/spunky.db"},
		Bot: BotConfig{
			TeamkillAutokick:     true,
			MaxPing:              200,
			KickSpecFullServer:   10,
			TaskFrequency:        60,
			WarnExpiration:       240,
			BanDuration:          7,
			ShowCountryOnConnect: true,
			ShowFirstKill:        true,
			ShowHitStatsRespawn:  true,
			ShowMultiKill:        true,
			FailedVoteDelay:      60,
			RequireAuthVotes:     true,
			ExplodeTime:          "40",
			Gravity:              800,
			ClanTags:             []string{"pwny|", "|pwny|"},
		},
		Mapcycle: MapcycleConfig{SwitchCount: 4},
		Rules: RulesConfig{
			Display:     "chat",
			Frequency:   90,
			File:        "./conf/rules.conf",
			InitialWait: 30 * time.Second,
		},
		Notify: NotifyConfig{NATSSubject: "spunky.notices"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	// A missing .env is fine, it only carries overrides.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if pw := os.Getenv("SPUNKY_RCON_PASSWORD"); pw != "" {
		cfg.Server.RconPassword = pw
	}
	if os.Getenv("SPUNKY_DEBUG") != "" {
		cfg.Log.Level = "debug"
	}

	cfg.applyFloors()

	if cfg.Server.LogFile == "" {
		return nil, fmt.Errorf("server.log_file is required")
	}
	return cfg, nil
}

func (c *Config) applyFloors() {
	if c.Bot.TaskFrequency < 10 {
		c.Bot.TaskFrequency = 10
	}
	if c.Rules.Frequency < 10 {
		c.Rules.Frequency = 10
	}
	if c.Bot.BanDuration < 1 {
		c.Bot.BanDuration = 1
	}
	if c.Bot.MaxPing < 0 {
		c.Bot.MaxPing = 0
	}
	if c.Server.RconDelay <= 0 {
		c.Server.RconDelay = 200 * time.Millisecond
	}
	if c.Server.RconTimeout <= 0 {
		c.Server.RconTimeout = 3 * time.Second
	}
	switch c.Rules.Display {
	case "chat", "bigtext", "raw":
	default:
		c.Rules.Display = "chat"
	}
}

// TaskInterval is the periodic task runner cadence.
func (c *Config) TaskInterval() time.Duration {
	return time.Duration(c.Bot.TaskFrequency) * time.Second
}

// WarnTTL is how long timed warnings stay active.
func (c *Config) WarnTTL() time.Duration {
	return time.Duration(c.Bot.WarnExpiration) * time.Second
}

// BanTTL is the length of a !ban.
func (c *Config) BanTTL() time.Duration {
	return time.Duration(c.Bot.BanDuration) * 24 * time.Hour
}

// RequirePassword returns the RCON password or ErrNoPassword.
func (c *Config) RequirePassword() (string, error) {
	if c.Server.RconPassword == "" {
		return "", ErrNoPassword
	}
	return c.Server.RconPassword, nil
}
