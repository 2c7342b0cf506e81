package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notice types published to external sinks
const (
	NoticeReport      = "report"
	NoticeBan         = "ban"
	NoticeKick        = "kick"
	NoticeWarning     = "warning"
	NoticeMatchStart  = "match_start"
	NoticeMatchEnd    = "match_end"
	NoticePlayerJoin  = "player_join"
	NoticePlayerLeave = "player_leave"
	NoticeVote        = "vote"
	NoticeBotLive     = "bot_live"
)

// Notice is one moderation or match event for Discord and NATS subscribers
type Notice struct {
	ID        string      `json:"id"`
	Type      string      `json:"event"`
	Server    string      `json:"server"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// NewNotice stamps a notice with a fresh ID
func NewNotice(kind, server string, now time.Time, data interface{}) Notice {
	return Notice{
		ID:        uuid.NewString(),
		Type:      kind,
		Server:    server,
		Timestamp: now.UTC(),
		Data:      data,
	}
}

// ReportNotice is sent when a player reports another
type ReportNotice struct {
	Reporter     string `json:"reporter"`
	ReporterAuth string `json:"reporter_auth,omitempty"`
	ReporterID   int64  `json:"reporter_id,omitempty"`
	Target       string `json:"target"`
	TargetAuth   string `json:"target_auth,omitempty"`
	TargetID     int64  `json:"target_id,omitempty"`
	TargetIP     string `json:"target_ip,omitempty"`
	Reason       string `json:"reason"`
	Map          string `json:"map"`
}

// BanNotice is sent when a ban is written or extended
type BanNotice struct {
	Player     string   `json:"player"`
	PlayerID   int64    `json:"player_id"`
	GUID       string   `json:"guid"`
	IP         string   `json:"ip"`
	Country    string   `json:"country,omitempty"`
	CountryISO string   `json:"country_iso,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
	Duration   int64    `json:"duration_seconds"`
	Expires    string   `json:"expires"`
	Permanent  bool     `json:"permanent"`
	Reason     string   `json:"reason"`
	Admin      string   `json:"admin,omitempty"`
	AdminAuth  string   `json:"admin_auth,omitempty"`
	Extended   bool     `json:"extended"`
}

// KickNotice is sent when the bot kicks a player
type KickNotice struct {
	Player string `json:"player"`
	Reason string `json:"reason"`
	Admin  string `json:"admin,omitempty"`
}

// WarningNotice is sent when a player is warned
type WarningNotice struct {
	Player   string `json:"player"`
	Reason   string `json:"reason"`
	Warnings int    `json:"warnings"`
}

// MatchStartNotice is sent when a new map starts
type MatchStartNotice struct {
	Map      string `json:"map"`
	GameType string `json:"game_type"`
}

// MatchEndNotice is sent on Exit
type MatchEndNotice struct {
	Map     string `json:"map"`
	Players int    `json:"players"`
}

// PlayerNotice is sent on connect and disconnect
type PlayerNotice struct {
	Num     int    `json:"num"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	ID      int64  `json:"player_id,omitempty"`
}

// VoteNotice is sent when a map vote resolves
type VoteNotice struct {
	Map    string `json:"map"`
	Passed bool   `json:"passed"`
}
