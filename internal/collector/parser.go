package collector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/seanbarr1988/spunkybot/internal/domain"
)

// EventKind identifies a log line by its tag.
type EventKind int

// Event kinds
const (
	EventUnknown EventKind = iota
	EventInitGame
	EventWarmup
	EventInitRound
	EventExit
	EventShutdown
	EventSay
	EventSayTell
	EventUserinfo
	EventUserinfoChanged
	EventBegin
	EventDisconnect
	EventSpawn
	EventKill
	EventHit
	EventAssist
	EventFreeze
	EventThawOut
	EventFlag
	EventFlagCaptureTime
	EventSurvivorWinner
	EventCallvote
	EventVotePassed
	EventVoteFailed
	EventBomb
	EventBombExploded
)

var eventTags = map[string]EventKind{
	"InitGame":              EventInitGame,
	"Warmup":                EventWarmup,
	"InitRound":             EventInitRound,
	"Exit":                  EventExit,
	"ShutdownGame":          EventShutdown,
	"say":                   EventSay,
	"sayteam":               EventSay,
	"saytell":               EventSayTell,
	"ClientUserinfo":        EventUserinfo,
	"ClientUserinfoChanged": EventUserinfoChanged,
	"ClientBegin":           EventBegin,
	"ClientDisconnect":      EventDisconnect,
	"ClientSpawn":           EventSpawn,
	"Kill":                  EventKill,
	"Hit":                   EventHit,
	"Assist":                EventAssist,
	"Freeze":                EventFreeze,
	"ThawOutFinished":       EventThawOut,
	"Flag":                  EventFlag,
	"FlagCaptureTime":       EventFlagCaptureTime,
	"SurvivorWinner":        EventSurvivorWinner,
	"Callvote":              EventCallvote,
	"VotePassed":            EventVotePassed,
	"VoteFailed":            EventVoteFailed,
}

// Event is one routed log line.
type Event struct {
	Kind    EventKind
	Tag     string
	Payload string
}

// errMalformed marks lines whose payload does not have the expected shape.
var errMalformed = errors.New("malformed line")

// ParseLine strips the timestamp and splits the line into tag and payload.
// Bomb lines carry the tag inside free text, so anything mentioning "Bomb"
// or "Pop" is routed by substring after the exact tags fail.
func ParseLine(raw string) Event {
	content := stripTimestamp(raw)
	tag, payload, found := strings.Cut(content, ":")
	if !found {
		// Bomb lines have no colon, the whole line is both tag and payload.
		tag, payload = content, content
	}
	tag = strings.TrimSpace(tag)
	ev := Event{Tag: tag, Payload: strings.TrimSpace(payload)}

	if kind, ok := eventTags[tag]; ok {
		ev.Kind = kind
		return ev
	}
	switch {
	case strings.Contains(tag, "Bomb"):
		ev.Kind = EventBomb
	case strings.Contains(tag, "Pop"):
		ev.Kind = EventBombExploded
	}
	return ev
}

// stripTimestamp drops the leading "mm:ss" clock the server writes on
// every line. Lines without one are returned trimmed.
func stripTimestamp(line string) string {
	line = strings.TrimLeft(line, " \t")
	end := strings.IndexByte(line, ' ')
	if end <= 0 {
		return line
	}
	clock := line[:end]
	if !strings.Contains(clock, ":") {
		return line
	}
	for _, r := range clock {
		if r != ':' && !unicode.IsDigit(r) {
			return line
		}
	}
	return strings.TrimLeft(line[end+1:], " ")
}

// explode parses a backslash-separated key\value blob. A leading
// backslash is optional.
func explode(info string) map[string]string {
	info = strings.TrimLeft(strings.TrimSpace(info), "\\")
	parts := strings.Split(info, "\\")
	result := make(map[string]string, len(parts)/2)
	for i := 0; i+1 < len(parts); i += 2 {
		result[strings.TrimRight(parts[i], " ")] = strings.TrimRight(parts[i+1], " \r\n")
	}
	return result
}

// splitSlot reads the leading slot number of a payload and returns the
// remaining text.
func splitSlot(payload string) (int, string, error) {
	payload = strings.TrimSpace(payload)
	end := 0
	for end < len(payload) && payload[end] >= '0' && payload[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, "", fmt.Errorf("%w: no slot in %q", errMalformed, payload)
	}
	num, err := strconv.Atoi(payload[:end])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", errMalformed, err)
	}
	return num, strings.TrimSpace(payload[end:]), nil
}

// headInts returns the integer fields before the first colon of a payload,
// the positional part of Kill, Hit, Freeze and Flag lines.
func headInts(payload string, n int) ([]int, string, error) {
	head, tail, _ := strings.Cut(payload, ":")
	fields := strings.Fields(head)
	if len(fields) < n {
		return nil, "", fmt.Errorf("%w: want %d fields in %q", errMalformed, n, head)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", errMalformed, err)
		}
		out[i] = v
	}
	return out, strings.TrimSpace(tail), nil
}

// GameSettings are the InitGame values the bot tracks.
type GameSettings struct {
	MapName string
	Type    domain.GameType
	Mod     domain.ModVersion
	Gear    string
}

// ParseInitGame reads map, game type, server tier and default gear from
// an InitGame payload. Missing values fall back to team deathmatch on a
// 4.3 server.
func ParseInitGame(payload string) GameSettings {
	values := explode(payload)
	s := GameSettings{
		MapName: strings.ToLower(values["mapname"]),
		Type:    domain.GameTDM,
		Mod:     domain.ParseModVersion(values["g_modversion"]),
	}
	if gt, err := strconv.Atoi(values["g_gametype"]); err == nil {
		s.Type = domain.GameType(gt)
	}
	if gear, ok := values["g_gear"]; ok {
		s.Gear = gear
	} else if s.Mod == domain.Mod41 {
		s.Gear = "0"
	}
	return s
}
