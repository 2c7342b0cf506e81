package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seanbarr1988/spunkybot/internal/config"
	"github.com/seanbarr1988/spunkybot/internal/domain"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"admin", domain.RoleAdmin, true},
		{"Mod", domain.RoleModerator, true},
		{"80", domain.RoleSeniorAdmin, true},
		{"100", domain.RoleHeadAdmin, true},
		{"55", 0, false},
		{"owner", 0, false},
	}
	for _, tt := range tests {
		got, err := parseRole(tt.in)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("parseRole(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "spunky.log")
	logger, closeLog, err := newLogger(config.LogConfig{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("line routed", "tag", "Kill")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "line routed") || !strings.Contains(string(data), "tag=Kill") {
		t.Errorf("log file = %q", data)
	}
}
