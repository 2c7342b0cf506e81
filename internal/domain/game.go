package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const maxLastMaps = 4

// Console is the outbound side of the game server as seen by the model.
// Every method only enqueues and must not block.
type Console interface {
	Send(cmd string)
	Say(msg string)
	Tell(num int, msg string, pmTag bool)
	BigText(msg string)
}

// GameStats holds team head counts. The bot is not counted.
type GameStats struct {
	Red       int
	Blue      int
	Spectator int
	Green     int
}

// Count returns the head count of one team.
func (s GameStats) Count(t Team) int {
	switch t {
	case TeamRed:
		return s.Red
	case TeamBlue:
		return s.Blue
	case TeamSpectator:
		return s.Spectator
	}
	return s.Green
}

// Game is the per-process match state. It is reinitialized, not
// reallocated, on every InitGame.
type Game struct {
	Players map[int]*Player
	Console Console

	Live        bool
	Type        GameType
	Mod         ModVersion
	DefaultGear string

	MapName string
	NextMap string
	MapList []string
	AllMaps []string

	lastMaps []string
}

// NewGame creates the match state with the bot registered as "World".
func NewGame(console Console, now time.Time) *Game {
	g := &Game{
		Players: make(map[int]*Player),
		Console: console,
		Mod:     Mod43,
		Type:    GameTDM,
	}
	bot := NewPlayer(BotPlayerNum, "127.0.0.1", "NONE", "World", now)
	bot.Role = RoleHeadAdmin
	g.AddPlayer(bot)
	return g
}

func (g *Game) AddPlayer(p *Player)    { g.Players[p.Num] = p }
func (g *Game) RemovePlayer(num int)   { delete(g.Players, num) }
func (g *Game) Bot() *Player           { return g.Players[BotPlayerNum] }
func (g *Game) LastMaps() []string     { return g.lastMaps }
func (g *Game) Player(num int) *Player { return g.Players[num] }

// NumberOfPlayers excludes the bot.
func (g *Game) NumberOfPlayers() int { return len(g.Players) - 1 }

// Humans returns connected players other than the bot, ordered by slot.
func (g *Game) Humans() []*Player {
	out := make([]*Player, 0, len(g.Players))
	for num, p := range g.Players {
		if num != BotPlayerNum {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Num < out[j].Num })
	return out
}

// Stats counts players per team.
func (g *Game) Stats() GameStats {
	var s GameStats
	for _, p := range g.Humans() {
		switch p.Team {
		case TeamRed:
			s.Red++
		case TeamBlue:
			s.Blue++
		case TeamSpectator:
			s.Spectator++
		default:
			s.Green++
		}
	}
	return s
}

// SetMap makes name the current map. The map it replaces moves onto the
// recent history.
func (g *Game) SetMap(name string) {
	if g.MapName != "" {
		g.lastMaps = append(g.lastMaps, g.MapName)
		if len(g.lastMaps) > maxLastMaps {
			g.lastMaps = g.lastMaps[len(g.lastMaps)-maxLastMaps:]
		}
	}
	g.MapName = name
}

// RecentlyPlayed reports whether name is in the recent map history.
func (g *Game) RecentlyPlayed(name string) bool {
	for _, m := range g.lastMaps {
		if m == name {
			return true
		}
	}
	return false
}

// RotationNext returns the map following the current one in rotation,
// the first rotation entry, or the current map when there is no rotation.
func RotationNext(rotation []string, current string) string {
	for i, m := range rotation {
		if m == current {
			return rotation[(i+1)%len(rotation)]
		}
	}
	if len(rotation) > 0 {
		return rotation[0]
	}
	return current
}

// --- Outbound helpers ---

func (g *Game) Send(cmd string)                { g.Console.Send(cmd) }
func (g *Game) Say(msg string)                 { g.Console.Say(msg) }
func (g *Game) Tell(num int, msg string)       { g.Console.Tell(num, msg, true) }
func (g *Game) TellPlain(num int, msg string)  { g.Console.Tell(num, msg, false) }
func (g *Game) BigText(msg string)             { g.Console.BigText(msg) }
func (g *Game) ForceTeam(num int, team string) { g.Send(fmt.Sprintf("forceteam %d %s", num, team)) }
func (g *Game) Smite(num int)                  { g.Send(fmt.Sprintf("smite %d", num)) }
func (g *Game) Veto()                          { g.Send("veto") }
func (g *Game) SetCvar(name, value string)     { g.Send(fmt.Sprintf("set %s %s", name, value)) }

// Kick removes a player. Only tier 42 and later servers display a reason.
func (g *Game) Kick(num int, reason string) {
	if reason != "" && g.Mod > Mod41 {
		g.Send(fmt.Sprintf("kick %d \"%s\"", num, reason))
		return
	}
	g.Send(fmt.Sprintf("kick %d", num))
}

// --- Lookup ---

// FindPlayers resolves a chat argument to a connected player. An exact
// name, slot, @id or auth name match wins immediately. Otherwise every
// case-insensitive substring match is returned as a candidate.
func (g *Game) FindPlayers(arg string) (exact *Player, candidates []*Player) {
	upper := strings.ToUpper(arg)
	for _, p := range g.Humans() {
		if upper == strings.ToUpper(p.Name()) ||
			arg == strconv.Itoa(p.Num) ||
			arg == fmt.Sprintf("@%d", p.ID) ||
			(p.AuthName != "" && strings.ToLower(arg) == p.AuthName) {
			return p, nil
		}
		if strings.Contains(strings.ToUpper(p.Name()), upper) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return nil, candidates
}

// FindMap resolves a map argument against all server maps. An exact name
// or its ut4_ form wins, otherwise all substring matches are returned.
func (g *Game) FindMap(arg string) (exact string, candidates []string) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	for _, m := range g.AllMaps {
		if m == arg || m == "ut4_"+arg {
			return m, nil
		}
		if strings.Contains(m, arg) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return "", candidates
}
