package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spunky.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SPUNKY_RCON_PASSWORD", "")
	t.Setenv("SPUNKY_DEBUG", "")
	path := writeConfig(t, "server:\n  log_file: /tmp/games.log\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.Bot.TeamkillAutokick {
		t.Error("teamkill_autokick should default to true")
	}
	if cfg.Bot.MaxPing != 200 {
		t.Errorf("max_ping = %d, want 200", cfg.Bot.MaxPing)
	}
	if cfg.Bot.WarnExpiration != 240 {
		t.Errorf("warn_expiration = %d, want 240", cfg.Bot.WarnExpiration)
	}
	if cfg.TaskInterval() != 60*time.Second {
		t.Errorf("task interval = %v, want 60s", cfg.TaskInterval())
	}
	if cfg.Bot.BanDuration != 7 {
		t.Errorf("ban_duration = %d, want 7", cfg.Bot.BanDuration)
	}
	if !cfg.Server.PMTag {
		t.Error("pm_tag should default to true")
	}
	if cfg.Server.RconDelay != 200*time.Millisecond {
		t.Errorf("rcon_delay = %v", cfg.Server.RconDelay)
	}
	if len(cfg.Bot.ClanTags) != 2 || cfg.Bot.ClanTags[0] != "pwny|" {
		t.Errorf("clan_tags = %v", cfg.Bot.ClanTags)
	}
}

func TestLoadFloors(t *testing.T) {
	t.Setenv("SPUNKY_RCON_PASSWORD", "")
	path := writeConfig(t, `
server:
  log_file: /tmp/games.log
bot:
  task_frequency: 2
  ban_duration: 0
  show_first_kill: false
rules:
  frequency: 1
  display: neon
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bot.TaskFrequency != 10 {
		t.Errorf("task_frequency = %d, want floor 10", cfg.Bot.TaskFrequency)
	}
	if cfg.Bot.BanDuration != 1 {
		t.Errorf("ban_duration = %d, want floor 1", cfg.Bot.BanDuration)
	}
	if cfg.Rules.Frequency != 10 {
		t.Errorf("rules frequency = %d, want floor 10", cfg.Rules.Frequency)
	}
	if cfg.Rules.Display != "chat" {
		t.Errorf("display = %q, want chat", cfg.Rules.Display)
	}
	if cfg.Bot.ShowFirstKill {
		t.Error("explicit false should override the default")
	}
	// untouched keys keep defaults
	if !cfg.Bot.ShowMultiKill {
		t.Error("show_multi_kill should keep its default")
	}
}

func TestLoadPasswordFromEnv(t *testing.T) {
	t.Setenv("SPUNKY_RCON_PASSWORD", "s3cret")
	path := writeConfig(t, "server:\n  log_file: /tmp/games.log\n  rcon_password: fromfile\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pw, err := cfg.RequirePassword()
	if err != nil {
		t.Fatalf("RequirePassword: %v", err)
	}
	if pw != "s3cret" {
		t.Errorf("password = %q, want env override", pw)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "server: [unclosed")); err == nil {
		t.Error("expected error for invalid yaml")
	}
	if _, err := Load(writeConfig(t, "bot:\n  max_ping: 100\n")); err == nil {
		t.Error("expected error when log_file is missing")
	}
}

func TestRequirePasswordEmpty(t *testing.T) {
	cfg := Default()
	if _, err := cfg.RequirePassword(); err != ErrNoPassword {
		t.Errorf("err = %v, want ErrNoPassword", err)
	}
}
