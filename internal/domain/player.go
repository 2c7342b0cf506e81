package domain

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// Warning texts the bot itself issues and later clears by value.
const (
	WarnTeamKill   = "stop team killing"
	WarnSpectator  = "spectator too long on full server"
	WarnScore      = "score too low for this server"
	WarnPing       = "fix your ping"
	WarnSpawnKill  = "stop spawn killing"
	WarnBadWords   = "bad language"
	WarnDoNotSpam  = "do not spam"
	WarnKickLimit  = 4
	maxNameLength  = 20
	noCaptureTime  = 999
	multiKillDelay = 5 * time.Second
)

var colorCodes = regexp.MustCompile(`\^[0-9]`)

// CleanName strips spaces and color codes and caps the length.
func CleanName(name string) string {
	name = strings.ReplaceAll(name, " ", "")
	name = colorCodes.ReplaceAllString(name, "")
	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength])
	}
	return name
}

// StoredStats are the lifetime counters kept in the xlrstats table.
type StoredStats struct {
	Kills         int
	Deaths        int
	Headshots     int
	TeamKills     int
	TeamDeaths    int
	MaxStreak     int
	Suicides      int
	FlagsCaptured int
	FlagsReturned int
	FlagsDropped  int
	Assists       int
	Rounds        int
	NumPlayed     int
}

// Ratio is kills per death rounded to two places, 1.0 without deaths.
func (s StoredStats) Ratio() float64 {
	return KDRatio(s.Kills, s.Deaths)
}

// KDRatio rounds kills/deaths to two places. No deaths counts as 1.0.
func KDRatio(kills, deaths int) float64 {
	if deaths == 0 {
		return 1.0
	}
	return math.Round(float64(kills)/float64(deaths)*100) / 100
}

// Player is the live record of one connected client.
type Player struct {
	Num        int
	GUID       string
	AuthName   string
	IP         string
	Gear       string
	Country    string
	CountryISO string

	// Persistent identity, filled from storage.
	ID         int64
	Registered bool
	Role       int
	FirstSeen  string
	LastVisit  string
	Aliases    string
	Stored     StoredStats

	Team        Team
	TeamLock    *Team
	Alive       bool
	RespawnTime time.Time
	TimeJoined  time.Time
	Welcome     bool
	PingValue   int

	name        string
	nameChanges int

	kills       int
	deaths      int
	assists     int
	headshots   int
	allHits     int
	hitZones    map[string]int
	heKills     int
	knifeKills  int
	streak      int
	maxStreak   int
	teamKills   int
	freezes     int
	thawouts    int
	multiKills  int
	lastKill    time.Time
	captures    int
	returns     int
	drops       int
	captureTime float64

	BombHolder    bool
	bombPlanted   int
	bombDefused   int
	carrierKills  int
	killsWithBomb int

	warnings     []string
	lastWarnTime time.Time
	// killedMe holds the slots that team-killed this player, tkVictims the
	// slots this player team-killed. Both keep duplicates.
	killedMe  []int
	tkVictims []int
	grudged   []int
}

// NewPlayer creates the record for a slot on first userinfo.
func NewPlayer(num int, ip, guid, name string, now time.Time) *Player {
	p := &Player{
		Num:         num,
		GUID:        guid,
		IP:          ip,
		Team:        TeamSpectator,
		TimeJoined:  now,
		Welcome:     true,
		hitZones:    map[string]int{"body": 0, "arms": 0, "legs": 0},
		captureTime: noCaptureTime,
	}
	p.SetName(name)
	return p
}

func (p *Player) Name() string     { return p.name }
func (p *Player) NameChanges() int { return p.nameChanges }

// SetName sanitizes and stores the display name, counting the change.
func (p *Player) SetName(name string) {
	p.name = CleanName(name)
	p.nameChanges++
}

// SetGear normalizes a gear string to five slots padded with 'A'.
func (p *Player) SetGear(gear string) {
	gear = strings.ReplaceAll(gear, "A", "")
	for len(gear) < 5 {
		gear += "A"
	}
	p.Gear = gear
}

// IsBot reports clients added through addbot.
func (p *Player) IsBot() bool { return p.IP == "0.0.0.0" }

// DisplayName appends the auth tag when the player is authenticated.
func (p *Player) DisplayName() string {
	if p.AuthName != "" {
		return p.name + " [^2" + p.AuthName + "^7]"
	}
	return p.name
}

// Reset clears match counters and moderation state at match start.
func (p *Player) Reset() {
	p.kills, p.deaths, p.assists = 0, 0, 0
	p.freezes, p.thawouts = 0, 0
	p.streak, p.maxStreak = 0, 0
	p.headshots, p.allHits = 0, 0
	p.hitZones = map[string]int{"body": 0, "arms": 0, "legs": 0}
	p.heKills, p.knifeKills, p.teamKills = 0, 0, 0
	p.tkVictims, p.killedMe, p.grudged = nil, nil, nil
	p.warnings, p.lastWarnTime = nil, time.Time{}
	p.ResetFlagStats()
	p.BombHolder = false
	p.bombPlanted, p.bombDefused, p.carrierKills, p.killsWithBomb = 0, 0, 0, 0
	p.TeamLock = nil
	p.Alive, p.RespawnTime = false, time.Time{}
	p.multiKills, p.lastKill = 0, time.Time{}
	p.nameChanges = 0
}

// ResetFlagStats clears the CTF counters at round start.
func (p *Player) ResetFlagStats() {
	p.captures, p.returns, p.drops = 0, 0, 0
	p.captureTime = noCaptureTime
}

// --- Combat ---

// Kill counts a frag and tracks kills within the multi-kill window.
func (p *Player) Kill(now time.Time) {
	p.streak++
	p.kills++
	p.Stored.Kills++
	if !p.lastKill.IsZero() && now.Sub(p.lastKill) < multiKillDelay {
		p.multiKills++
	} else {
		p.lastKill = now
		p.multiKills = 1
	}
}

// Die ends the current streak.
func (p *Player) Die() {
	if p.streak > p.maxStreak {
		p.maxStreak = p.streak
	}
	if p.maxStreak > p.Stored.MaxStreak {
		p.Stored.MaxStreak = p.maxStreak
	}
	p.streak = 0
	p.deaths++
	p.Stored.Deaths++
	p.multiKills, p.lastKill = 0, time.Time{}
}

func (p *Player) Suicide() { p.Stored.Suicides++ }

func (p *Player) Assist() {
	p.assists++
	p.Stored.Assists++
}

func (p *Player) TeamKill() {
	p.teamKills++
	p.Stored.TeamKills++
}

func (p *Player) TeamDeath() { p.Stored.TeamDeaths++ }

// Hit records a hit and returns true for a head or helmet hit.
func (p *Player) Hit(zone string) bool {
	p.allHits++
	if zone == ZoneHead || zone == ZoneHelmet {
		p.headshots++
		p.Stored.Headshots++
		return true
	}
	if bucket := HitBucket(zone); bucket != "" {
		p.hitZones[bucket]++
	}
	return false
}

func (p *Player) HEKill()    { p.heKills++ }
func (p *Player) KnifeKill() { p.knifeKills++ }

// SetAlive marks the player alive or dead, stamping the respawn time.
func (p *Player) SetAlive(alive bool, now time.Time) {
	p.Alive = alive
	if alive {
		p.RespawnTime = now
	}
}

func (p *Player) Kills() int         { return p.kills }
func (p *Player) Deaths() int        { return p.deaths }
func (p *Player) Assists() int       { return p.assists }
func (p *Player) Headshots() int     { return p.headshots }
func (p *Player) AllHits() int       { return p.allHits }
func (p *Player) HEKills() int       { return p.heKills }
func (p *Player) KnifeKills() int    { return p.knifeKills }
func (p *Player) Streak() int        { return p.streak }
func (p *Player) MaxStreak() int     { return p.maxStreak }
func (p *Player) TeamKillCount() int { return p.teamKills }
func (p *Player) MultiKills() int    { return p.multiKills }

// HitZone returns the body, arms or legs tally.
func (p *Player) HitZone(bucket string) int { return p.hitZones[bucket] }

// HeadshotPercent is headshots over all hits as a whole percentage.
func (p *Player) HeadshotPercent() int {
	if p.allHits == 0 {
		return 0
	}
	return int(math.Round(float64(p.headshots) / float64(p.allHits) * 100))
}

// --- Game modes ---

func (p *Player) CaptureFlag() {
	p.captures++
	p.Stored.FlagsCaptured++
}

func (p *Player) ReturnFlag() {
	p.returns++
	p.Stored.FlagsReturned++
}

func (p *Player) DropFlag() {
	p.drops++
	p.Stored.FlagsDropped++
}

// SetCaptureTime keeps the fastest capture in seconds.
func (p *Player) SetCaptureTime(secs float64) {
	if secs < p.captureTime {
		p.captureTime = secs
	}
}

// CaptureTime returns the fastest capture, 0 when none.
func (p *Player) CaptureTime() float64 {
	if p.captureTime == noCaptureTime {
		return 0
	}
	return p.captureTime
}

func (p *Player) FlagsCaptured() int { return p.captures }
func (p *Player) FlagsReturned() int { return p.returns }
func (p *Player) FlagsDropped() int  { return p.drops }

func (p *Player) PlantBomb() {
	p.bombPlanted++
	p.BombHolder = false
}

func (p *Player) DefuseBomb()       { p.bombDefused++ }
func (p *Player) KillBombCarrier()  { p.carrierKills++ }
func (p *Player) KillWithBomb()     { p.killsWithBomb++ }
func (p *Player) BombPlanted() int  { return p.bombPlanted }
func (p *Player) BombDefused() int  { return p.bombDefused }
func (p *Player) CarrierKills() int { return p.carrierKills }
func (p *Player) BombKills() int    { return p.killsWithBomb }

func (p *Player) Freeze()       { p.freezes++ }
func (p *Player) Thawout()      { p.thawouts++ }
func (p *Player) Freezes() int  { return p.freezes }
func (p *Player) Thawouts() int { return p.thawouts }

// --- Warnings ---

// AddWarning appends a warning. Only timed warnings refresh the expiry clock.
func (p *Player) AddWarning(reason string, timed bool, now time.Time) {
	p.warnings = append(p.warnings, reason)
	if timed {
		p.lastWarnTime = now
	}
}

// AddHighPing records a ping warning with the offending value.
func (p *Player) AddHighPing(ping int) {
	p.warnings = append(p.warnings, WarnPing)
	p.PingValue = ping
}

func (p *Player) Warnings() int           { return len(p.warnings) }
func (p *Player) LastWarnTime() time.Time { return p.lastWarnTime }

// LastWarning returns the most recent warning text or "".
func (p *Player) LastWarning() string {
	if len(p.warnings) == 0 {
		return ""
	}
	return p.warnings[len(p.warnings)-1]
}

// WarningMessages returns the distinct warning texts in first-seen order.
func (p *Player) WarningMessages() []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range p.warnings {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// WarningsExpired reports whether the timed warnings are older than ttl.
func (p *Player) WarningsExpired(ttl time.Duration, now time.Time) bool {
	return !p.lastWarnTime.IsZero() && p.lastWarnTime.Add(ttl).Before(now)
}

// ClearWarnings drops all warnings and team-kill bookkeeping.
func (p *Player) ClearWarnings() {
	p.warnings = nil
	p.tkVictims = nil
	p.killedMe = nil
	p.lastWarnTime = time.Time{}
}

// ClearWarning removes every occurrence of one warning text.
func (p *Player) ClearWarning(reason string) {
	p.warnings = removeAllString(p.warnings, reason)
}

// ClearLastWarning pops the newest warning and returns it, or "" when
// there is none.
func (p *Player) ClearLastWarning() string {
	if len(p.warnings) == 0 {
		return ""
	}
	last := p.warnings[len(p.warnings)-1]
	p.warnings = p.warnings[:len(p.warnings)-1]
	if len(p.warnings) > 0 {
		p.lastWarnTime = p.lastWarnTime.Add(-time.Minute)
	} else {
		p.lastWarnTime = time.Time{}
	}
	if strings.Contains(last, WarnTeamKill) && len(p.tkVictims) > 0 {
		p.tkVictims = p.tkVictims[:len(p.tkVictims)-1]
	}
	return last
}

// --- Team kills ---

// AddKilledMe records a team kill suffered from killer.
func (p *Player) AddKilledMe(killer int) { p.killedMe = append(p.killedMe, killer) }

// KilledMe returns the slots that team-killed this player, oldest first.
func (p *Player) KilledMe() []int { return p.killedMe }

// UniqueKilledMe returns KilledMe without duplicates, in first-seen order.
func (p *Player) UniqueKilledMe() []int { return uniqueInts(p.killedMe) }

// AddTKVictim records a team kill this player committed.
func (p *Player) AddTKVictim(victim int) { p.tkVictims = append(p.tkVictims, victim) }

func (p *Player) TKVictims() []int { return p.tkVictims }

// ClearKilledMe forgives this player's team kills against victim, removing
// one team-kill warning per forgiven kill.
func (p *Player) ClearKilledMe(victim int) {
	var kept []int
	for _, v := range p.tkVictims {
		if v == victim {
			p.removeOneWarning(WarnTeamKill)
			continue
		}
		kept = append(kept, v)
	}
	p.tkVictims = kept
}

// ClearAllKilledMe forgets every team kill this player committed.
func (p *Player) ClearAllKilledMe() {
	p.tkVictims = nil
	p.ClearWarning(WarnTeamKill)
}

// ClearTK drops killer from the list of players who team-killed this one.
func (p *Player) ClearTK(killer int) { p.killedMe = removeAllInt(p.killedMe, killer) }

// ClearAllTK forgives everyone.
func (p *Player) ClearAllTK() { p.killedMe = nil }

// SetGrudge marks killer as never to be forgiven.
func (p *Player) SetGrudge(killer int) {
	p.grudged = append(p.grudged, killer)
	p.ClearTK(killer)
}

func (p *Player) Grudged() []int { return p.grudged }

// HasGrudge reports whether this player holds a grudge against killer.
func (p *Player) HasGrudge(killer int) bool {
	for _, g := range p.grudged {
		if g == killer {
			return true
		}
	}
	return false
}

// ClearGrudge drops every grudge against killer.
func (p *Player) ClearGrudge(killer int) { p.grudged = removeAllInt(p.grudged, killer) }

func (p *Player) removeOneWarning(reason string) {
	for i, w := range p.warnings {
		if w == reason {
			p.warnings = append(p.warnings[:i], p.warnings[i+1:]...)
			return
		}
	}
}

func removeAllInt(list []int, v int) []int {
	var out []int
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func removeAllString(list []string, v string) []string {
	var out []string
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func uniqueInts(list []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, x := range list {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}
