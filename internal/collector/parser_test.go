package collector

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/seanbarr1988/spunkybot/internal/domain"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		raw     string
		kind    EventKind
		tag     string
		payload string
	}{
		{"  0:00 InitGame: \\sv_hostname\\srv\\g_gametype\\7", EventInitGame, "InitGame", "\\sv_hostname\\srv\\g_gametype\\7"},
		{" 12:34 Kill: 0 1 19: Alice killed Bob by UT_MOD_LR300", EventKill, "Kill", "0 1 19: Alice killed Bob by UT_MOD_LR300"},
		{"1:02 say: 0 Alice: !help", EventSay, "say", "0 Alice: !help"},
		{"1:02 sayteam: 0 Alice: hi", EventSay, "sayteam", "0 Alice: hi"},
		{"1:02 ClientUserinfoChanged: 3 n\\Neo\\t\\1", EventUserinfoChanged, "ClientUserinfoChanged", "3 n\\Neo\\t\\1"},
		{"100:00 ShutdownGame:", EventShutdown, "ShutdownGame", ""},
		{"2:00 Bomb was planted by 2", EventBomb, "Bomb was planted by 2", "Bomb was planted by 2"},
		{"2:00 Bombholder is 4", EventBomb, "Bombholder is 4", "Bombholder is 4"},
		{"2:30 Pop!", EventBombExploded, "Pop!", "Pop!"},
		{"2:30 Item: 0 ut_weapon_ak103", EventUnknown, "Item", "0 ut_weapon_ak103"},
		{"--------------------------", EventUnknown, "--------------------------", "--------------------------"},
	}
	for _, tt := range tests {
		ev := ParseLine(tt.raw)
		if ev.Kind != tt.kind || ev.Tag != tt.tag || ev.Payload != tt.payload {
			t.Errorf("ParseLine(%q) = %+v, want kind %d tag %q payload %q", tt.raw, ev, tt.kind, tt.tag, tt.payload)
		}
	}
}

func TestStripTimestamp(t *testing.T) {
	tests := map[string]string{
		"  0:00 InitGame: x": "InitGame: x",
		"123:45   Exit: y":   "Exit: y",
		"Exit: Timelimit":    "Exit: Timelimit",
		"Pop!":               "Pop!",
		"a:b say: hi":        "a:b say: hi",
	}
	for in, want := range tests {
		if got := stripTimestamp(in); got != want {
			t.Errorf("stripTimestamp(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExplode(t *testing.T) {
	got := explode(`\ip\1.2.3.4:27960\name\Alice \cl_guid\ABCDEF\dangling`)
	want := map[string]string{"ip": "1.2.3.4:27960", "name": "Alice", "cl_guid": "ABCDEF"}
	if len(got) != len(want) {
		t.Fatalf("explode = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("explode[%q] = %q, want %q", k, got[k], v)
		}
	}

	if got := explode(`n\Neo\t\2`); got["n"] != "Neo" || got["t"] != "2" {
		t.Errorf("explode without leading backslash = %v", got)
	}
}

func TestSplitSlot(t *testing.T) {
	num, rest, err := splitSlot(" 12 \\ip\\1.2.3.4")
	if err != nil || num != 12 || rest != "\\ip\\1.2.3.4" {
		t.Errorf("splitSlot = %d, %q, %v", num, rest, err)
	}
	if num, rest, err := splitSlot("7"); err != nil || num != 7 || rest != "" {
		t.Errorf("splitSlot(bare) = %d, %q, %v", num, rest, err)
	}
	if _, _, err := splitSlot("abc"); !errors.Is(err, errMalformed) {
		t.Errorf("splitSlot(abc) err = %v, want errMalformed", err)
	}
}

func TestHeadInts(t *testing.T) {
	nums, tail, err := headInts("0 1 19: Alice killed Bob by UT_MOD_LR300", 3)
	if err != nil {
		t.Fatalf("headInts: %v", err)
	}
	if nums[0] != 0 || nums[1] != 1 || nums[2] != 19 {
		t.Errorf("nums = %v", nums)
	}
	if tail != "Alice killed Bob by UT_MOD_LR300" {
		t.Errorf("tail = %q", tail)
	}

	if _, _, err := headInts("0 1: x", 3); !errors.Is(err, errMalformed) {
		t.Errorf("short head err = %v", err)
	}
	if _, _, err := headInts("0 x 2: y", 3); !errors.Is(err, errMalformed) {
		t.Errorf("non-numeric head err = %v", err)
	}
}

func TestParseInitGame(t *testing.T) {
	s := ParseInitGame(`\sv_hostname\srv\g_gametype\8\mapname\UT4_Turnpike\g_modversion\4.2.023\g_gear\KQ`)
	if s.MapName != "ut4_turnpike" || s.Type != domain.GameBomb || s.Mod != domain.Mod42 || s.Gear != "KQ" {
		t.Errorf("settings = %+v", s)
	}

	s = ParseInitGame(`\mapname\ut4_abbey\g_modversion\4.1`)
	if s.Type != domain.GameTDM {
		t.Errorf("default type = %v, want TDM", s.Type)
	}
	if s.Mod != domain.Mod41 || s.Gear != "0" {
		t.Errorf("4.1 settings = %+v", s)
	}

	if s := ParseInitGame(""); s.Mod != domain.Mod43 || s.Type != domain.GameTDM {
		t.Errorf("empty settings = %+v", s)
	}
}

func TestConvertTime(t *testing.T) {
	tests := []struct {
		in    string
		secs  int
		label string
	}{
		{"", 3600, "1 hour"},
		{"30m", 1800, "30 minutes"},
		{"90m", 5400, "1 hour 30 minutes"},
		{"12h", 43200, "12 hours"},
		{"2d", 172800, "2 days"},
		{"100d", 259200, "3 days"},
		{"0h", 3600, "1 hour"},
		{"d", 86400, "1 day"},
		{"s", 30, "30 seconds"},
		{"45s", 45, "45 seconds"},
		{"5x", 3600, "1 hour"},
	}
	for _, tt := range tests {
		d, label := convertTime(tt.in)
		if int(d.Seconds()) != tt.secs || label != tt.label {
			t.Errorf("convertTime(%q) = %v, %q, want %ds, %q", tt.in, d, label, tt.secs, tt.label)
		}
	}
}

func TestParseMapcycle(t *testing.T) {
	cycle := `ut4_turnpike
{
  g_gear "0"
  g_gravity 800
}

ut4_abbey
ut4_casa
`
	maps, err := parseMapcycle(strings.NewReader(cycle))
	if err != nil {
		t.Fatalf("parseMapcycle: %v", err)
	}
	if strings.Join(maps, ",") != "ut4_turnpike,ut4_abbey,ut4_casa" {
		t.Errorf("maps = %v", maps)
	}
}

func TestTruncateReason(t *testing.T) {
	long := strings.Repeat("x", 60)
	if got := truncateReason(long); len(got) != maxReasonLen {
		t.Errorf("len = %d, want %d", len(got), maxReasonLen)
	}
	if got := truncateReason("spam"); got != "spam" {
		t.Errorf("truncateReason(spam) = %q", got)
	}
	accented := strings.Repeat("é", 30)
	got := truncateReason(accented)
	if !utf8.ValidString(got) || len(got) > maxReasonLen || !strings.HasPrefix(accented, got) {
		t.Errorf("truncateReason(accented) = %q", got)
	}
}
