package domain

import (
	"sort"
	"strings"
)

// Reserved slots. The bot itself is "World" on BotPlayerNum, lookups of
// stored players that are not connected use OfflinePlayerNum.
const (
	BotPlayerNum     = 1022
	OfflinePlayerNum = 1023
)

// ModVersion is the server build tier parsed from g_modversion.
type ModVersion int

const (
	Mod41 ModVersion = 41
	Mod42 ModVersion = 42
	Mod43 ModVersion = 43
)

// ParseModVersion maps a g_modversion value like "4.2.023" to a tier.
func ParseModVersion(v string) ModVersion {
	switch {
	case strings.HasPrefix(v, "4.1"):
		return Mod41
	case strings.HasPrefix(v, "4.2"):
		return Mod42
	default:
		return Mod43
	}
}

// Team is the in-game team number as reported by the server.
type Team int

const (
	TeamGreen Team = iota
	TeamRed
	TeamBlue
	TeamSpectator
)

func (t Team) String() string {
	switch t {
	case TeamRed:
		return "red"
	case TeamBlue:
		return "blue"
	case TeamSpectator:
		return "spectator"
	default:
		return "green"
	}
}

// ParseTeam accepts the forceteam argument names used by admins.
func ParseTeam(s string) (Team, bool) {
	switch strings.ToLower(s) {
	case "red", "r", "re":
		return TeamRed, true
	case "blue", "b", "bl", "blu":
		return TeamBlue, true
	case "spec", "spectator", "s", "sp", "spe":
		return TeamSpectator, true
	case "green":
		return TeamGreen, true
	}
	return TeamGreen, false
}

// GameType is the value of g_gametype.
type GameType int

const (
	GameFFA     GameType = 0
	GameLMS     GameType = 1
	GameTDM     GameType = 3
	GameTS      GameType = 4
	GameFTL     GameType = 5
	GameCTF     GameType = 7
	GameBomb    GameType = 8
	GameJump    GameType = 9
	GameFreeze  GameType = 10
	GameGunGame GameType = 11
)

// FFALike reports modes without teams, where team kills and balancing do not apply.
func (g GameType) FFALike() bool {
	switch g {
	case GameFFA, GameLMS, GameJump, GameGunGame:
		return true
	}
	return false
}

// TeamSurvivor covers TS and its Follow-the-Leader variant.
func (g GameType) TeamSurvivor() bool { return g == GameTS || g == GameFTL }

// RoundBased reports modes where team changes are deferred to round end.
func (g GameType) RoundBased() bool {
	return g.TeamSurvivor() || g == GameBomb || g == GameFreeze
}

func (g GameType) String() string {
	switch g {
	case GameFFA:
		return "Free For All"
	case GameLMS:
		return "Last Man Standing"
	case GameTDM:
		return "Team Deathmatch"
	case GameTS:
		return "Team Survivor"
	case GameFTL:
		return "Follow the Leader"
	case GameCTF:
		return "Capture the Flag"
	case GameBomb:
		return "Bomb"
	case GameJump:
		return "Jump"
	case GameFreeze:
		return "Freeze Tag"
	case GameGunGame:
		return "Gun Game"
	}
	return "Unknown"
}

// Hit zones after normalization across versions.
const (
	ZoneHead   = "HEAD"
	ZoneHelmet = "HELMET"
)

var hitPoints43 = map[int]string{
	0: "HEAD", 1: "HEAD", 2: "HELMET", 3: "TORSO", 4: "VEST", 5: "LEFT_ARM", 6: "RIGHT_ARM",
	7: "GROIN", 8: "BUTT", 9: "LEFT_UPPER_LEG", 10: "RIGHT_UPPER_LEG", 11: "LEFT_LOWER_LEG",
	12: "RIGHT_LOWER_LEG", 13: "LEFT_FOOT", 14: "RIGHT_FOOT",
}

var hitPoints41 = map[int]string{
	0: "HEAD", 1: "HELMET", 2: "TORSO", 3: "KEVLAR", 4: "ARMS", 5: "LEGS", 6: "BODY",
}

// HitPoint names a hit location code for the given tier.
func HitPoint(mod ModVersion, code int) string {
	if mod == Mod41 {
		return hitPoints41[code]
	}
	return hitPoints43[code]
}

// HitBucket groups a hit location into body, arms or legs. Head hits and
// unknown zones return "".
func HitBucket(zone string) string {
	switch zone {
	case "TORSO", "VEST", "KEVLAR", "BUTT", "GROIN", "BODY":
		return "body"
	case "ARMS", "LEFT_ARM", "RIGHT_ARM":
		return "arms"
	case "LEGS", "LEFT_UPPER_LEG", "RIGHT_UPPER_LEG", "LEFT_LOWER_LEG", "RIGHT_LOWER_LEG", "LEFT_FOOT", "RIGHT_FOOT":
		return "legs"
	}
	return ""
}

var hitItemBase = map[int]string{
	1: "UT_MOD_KNIFE", 2: "UT_MOD_BERETTA", 3: "UT_MOD_DEAGLE", 4: "UT_MOD_SPAS", 5: "UT_MOD_MP5K",
	6: "UT_MOD_UMP45", 8: "UT_MOD_LR300", 9: "UT_MOD_G36", 10: "UT_MOD_PSG1", 14: "UT_MOD_SR8",
	15: "UT_MOD_AK103", 17: "UT_MOD_NEGEV", 19: "UT_MOD_M4", 20: "UT_MOD_GLOCK", 21: "UT_MOD_COLT1911",
	22: "UT_MOD_MAC11", 23: "UT_MOD_BLED",
}

var hitItemTier = map[ModVersion]map[int]string{
	Mod43: {23: "UT_MOD_FRF1", 24: "UT_MOD_BENELLI", 25: "UT_MOD_P90", 26: "UT_MOD_MAGNUM", 29: "UT_MOD_KICKED", 30: "UT_MOD_KNIFE_THROWN"},
	Mod42: {23: "UT_MOD_BLED", 24: "UT_MOD_KICKED", 25: "UT_MOD_KNIFE_THROWN"},
	Mod41: {21: "UT_MOD_KICKED", 22: "UT_MOD_KNIFE_THROWN"},
}

// HitItem names the weapon code carried by a Hit line.
func HitItem(mod ModVersion, code int) string {
	if name, ok := hitItemTier[mod][code]; ok {
		return name
	}
	return hitItemBase[code]
}

// Death causes the state machine branches on.
const (
	CauseWater       = "MOD_WATER"
	CauseLava        = "MOD_LAVA"
	CauseFalling     = "MOD_FALLING"
	CauseSuicide     = "UT_MOD_SUICIDE"
	CauseTriggerHurt = "MOD_TRIGGER_HURT"
	CauseChangeTeam  = "MOD_CHANGE_TEAM"
	CauseKnife       = "UT_MOD_KNIFE"
	CauseKnifeThrown = "UT_MOD_KNIFE_THROWN"
	CauseHK69        = "UT_MOD_HK69"
	CauseHEGrenade   = "UT_MOD_HEGRENADE"
	CauseSploded     = "UT_MOD_SPLODED"
	CauseSlapped     = "UT_MOD_SLAPPED"
	CauseSmited      = "UT_MOD_SMITED"
	CauseBombed      = "UT_MOD_BOMBED"
	CauseNuked       = "UT_MOD_NUKED"
)

// ChangeTeamCode is the numeric cause logged when a player switches teams.
const ChangeTeamCode = 10

var deathCauseBase = map[int]string{
	1: "MOD_WATER", 3: "MOD_LAVA", 5: "UT_MOD_TELEFRAG", 6: "MOD_FALLING", 7: "UT_MOD_SUICIDE",
	9: "MOD_TRIGGER_HURT", 10: "MOD_CHANGE_TEAM", 12: "UT_MOD_KNIFE", 13: "UT_MOD_KNIFE_THROWN",
	14: "UT_MOD_BERETTA", 15: "UT_MOD_DEAGLE", 16: "UT_MOD_SPAS", 17: "UT_MOD_UMP45", 18: "UT_MOD_MP5K",
	19: "UT_MOD_LR300", 20: "UT_MOD_G36", 21: "UT_MOD_PSG1", 22: "UT_MOD_HK69", 23: "UT_MOD_BLED",
	24: "UT_MOD_KICKED", 25: "UT_MOD_HEGRENADE", 28: "UT_MOD_SR8", 30: "UT_MOD_AK103",
	31: "UT_MOD_SPLODED", 32: "UT_MOD_SLAPPED", 33: "UT_MOD_SMITED", 34: "UT_MOD_BOMBED",
	35: "UT_MOD_NUKED", 36: "UT_MOD_NEGEV", 37: "UT_MOD_HK69_HIT", 38: "UT_MOD_M4",
	39: "UT_MOD_GLOCK", 40: "UT_MOD_COLT1911", 41: "UT_MOD_MAC11",
}

var deathCauseTier = map[ModVersion]map[int]string{
	Mod43: {42: "UT_MOD_FRF1", 43: "UT_MOD_BENELLI", 44: "UT_MOD_P90", 45: "UT_MOD_MAGNUM", 46: "UT_MOD_TOD50", 47: "UT_MOD_FLAG", 48: "UT_MOD_GOOMBA"},
	Mod42: {42: "UT_MOD_FLAG", 43: "UT_MOD_GOOMBA"},
	Mod41: {33: "UT_MOD_BOMBED", 34: "UT_MOD_NUKED", 35: "UT_MOD_NEGEV", 39: "UT_MOD_FLAG", 40: "UT_MOD_GOOMBA"},
}

// DeathCause names a Kill cause code for the given tier.
func DeathCause(mod ModVersion, code int) string {
	if name, ok := deathCauseTier[mod][code]; ok {
		return name
	}
	return deathCauseBase[code]
}

// IsSuicideCause reports environmental and self-inflicted deaths. Grenade,
// launcher, nuke and bomb deaths only count when killer and victim match.
func IsSuicideCause(cause string, self bool) bool {
	switch cause {
	case CauseSuicide, CauseFalling, CauseWater, CauseLava, CauseTriggerHurt, CauseSploded, CauseSlapped, CauseSmited:
		return true
	case CauseHEGrenade, CauseHK69, CauseNuked, CauseBombed:
		return self
	}
	return false
}

// Reasons maps short warn/kick/ban keywords to their canned text.
var Reasons = map[string]string{
	"obj":      "go for objective",
	"camp":     "stop camping",
	"spam":     "do not spam!",
	"lang":     "bad language",
	"glitch":   "stop using map glitches",
	"racism":   "racism is not tolerated",
	"ping":     "ping too high for this server",
	"afk":      "away from keyboard",
	"tk":       "stop team killing",
	"td":       "stop team damaging",
	"sk":       "stop spawn killing",
	"spec":     "spectator too long on full server",
	"score":    "score too low for this server",
	"ci":       "connection interrupted",
	"999":      "connection interrupted",
	"whiner":   "stop complaining about camp, lag or block",
	"skill":    "skill too low for this server",
	"name":     "do not use offensive names",
	"wh":       "wallhack",
	"aim":      "aimbot",
	"insult":   "stop insulting",
	"exploit":  "do not use map bugs/exploits",
	"autojoin": "use auto-join",
}

// ReasonText expands a reason keyword, returning the input when it is free text.
func ReasonText(reason string) string {
	if text, ok := Reasons[reason]; ok {
		return text
	}
	return reason
}

// ReasonKeys returns the sorted reason keywords.
func ReasonKeys() []string {
	keys := make([]string, 0, len(Reasons))
	for k := range Reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Admin roles.
const (
	RoleGuest       = 0
	RoleUser        = 1
	RoleRegular     = 2
	RoleModerator   = 20
	RoleAdmin       = 40
	RoleFullAdmin   = 60
	RoleSeniorAdmin = 80
	RoleSuperAdmin  = 90
	RoleHeadAdmin   = 100
)

var roleNames = map[int]string{
	RoleGuest:       "Guest",
	RoleUser:        "User",
	RoleRegular:     "Regular",
	RoleModerator:   "Moderator",
	RoleAdmin:       "Admin",
	RoleFullAdmin:   "Full Admin",
	RoleSeniorAdmin: "Senior Admin",
	RoleSuperAdmin:  "Super Admin",
	RoleHeadAdmin:   "Head Admin",
}

// RoleName returns the display name of a role level.
func RoleName(role int) string {
	if name, ok := roleNames[role]; ok {
		return name
	}
	return "Unknown"
}

// Group names accepted by !putgroup.
var Groups = map[string]int{
	"user":        RoleUser,
	"regular":     RoleRegular,
	"reg":         RoleRegular,
	"mod":         RoleModerator,
	"admin":       RoleAdmin,
	"fulladmin":   RoleFullAdmin,
	"senioradmin": RoleSeniorAdmin,
	"superadmin":  RoleSuperAdmin,
}

var badWords = []string{
	"fuck", "ass", "bastard", "retard", "slut", "bitch", "whore", "cunt", "pussy", "dick", "sucker",
	"fick", "arsch", "nutte", "schlampe", "hure", "fotze", "penis", "wichser", "nazi", "hitler",
	"putain", "merde", "chienne",
	"kurwa", "suka", "dupa", "dupek", "puta",
}

// ContainsBadWord reports whether any whitespace-separated word of text is on the list.
func ContainsBadWord(text string) bool {
	for _, word := range strings.Fields(strings.ToLower(text)) {
		for _, bad := range badWords {
			if word == bad {
				return true
			}
		}
	}
	return false
}

// Gear strings for !gear, indexed by preset name. Tier 41 servers use the
// numeric bitmask form.
var gearPresets = map[string][2]string{
	"knife":   {"FGHIJKLMNZacefghijklOQRSTUVWX", "63"},
	"pistol":  {"HIJKLMNZacehijkOQ", "55"},
	"shotgun": {"FGIJKLMNZacefghiklOQ", "59"},
	"sniper":  {"FGHIJKLMacefghjklOQ", "61"},
}

// GearPreset returns the g_gear value for a preset on the given tier.
func GearPreset(name string, mod ModVersion) (string, bool) {
	p, ok := gearPresets[name]
	if !ok {
		return "", false
	}
	if mod > Mod41 {
		return p[0], true
	}
	return p[1], true
}
