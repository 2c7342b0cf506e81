package domain

import (
	"fmt"
	"sort"
	"strings"
)

// CommandKind identifies a chat command.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	// guest, level 0
	CmdHelp
	CmdForgive
	CmdForgiveAll
	CmdForgiveList
	CmdForgivePrev
	CmdGrudge
	CmdRegister
	CmdTime
	CmdDiscord
	CmdIAmGod
	// user, level 1
	CmdTeams
	CmdSpree
	CmdStats
	CmdBombStats
	CmdCTFStats
	CmdFreezeStats
	CmdHEStats
	CmdHits
	CmdHS
	CmdKnife
	CmdRegTest
	CmdReport
	CmdXLRStats
	CmdXLRTopStats
	CmdNextMap
	CmdLastMaps
	CmdLike
	CmdVotes
	CmdMapStats
	// moderator, level 20
	CmdAdminTest
	CmdLevelTest
	CmdList
	CmdLocate
	CmdMute
	CmdSeen
	CmdSpec
	CmdWarn
	CmdWarnInfo
	CmdWarnRemove
	CmdWarns
	CmdWarnTest
	// admin, level 40
	CmdAdmins
	CmdAFK
	CmdAliases
	CmdBigText
	CmdExit
	CmdFind
	CmdForce
	CmdKick
	CmdRegulars
	CmdSay
	CmdTell
	CmdTempBan
	CmdWarnClear
	CmdDemo
	// full admin, level 60
	CmdBanInfo
	CmdCI
	CmdForgiveClear
	CmdForgiveInfo
	CmdID
	CmdSlap
	CmdSwap
	CmdVeto
	CmdLookup
	CmdUnban
	// senior admin, level 80
	CmdBan
	CmdKickBots
	CmdScream
	CmdNuke
	CmdShuffleTeams
	CmdAddBots
	CmdBanAll
	CmdBanList
	CmdBots
	CmdCycleMap
	CmdExec
	CmdGear
	CmdInstagib
	CmdKickAll
	CmdKill
	CmdKiss
	CmdLastBans
	CmdMakeReg
	CmdMap
	CmdMaps
	CmdMapRestart
	CmdMoon
	CmdPermBan
	CmdPutGroup
	CmdRebuild
	CmdSetNextMap
	CmdSwapTeams
	CmdUnreg
	// super admin, level 90
	CmdBomb
	CmdCTF
	CmdFFA
	CmdGunGame
	CmdJump
	CmdLMS
	CmdTDM
	CmdTS
	CmdUngroup
	CmdPassword
	CmdReload
)

// Command is a chat command registry entry.
type Command struct {
	Kind  CommandKind
	Name  string
	Alias string
	Level int
	Args  string
	Desc  string
	// Hidden commands are left out of !help listings.
	Hidden bool
}

// Syntax is the usage line shown on bad arguments.
func (c Command) Syntax() string {
	if c.Args == "" {
		return fmt.Sprintf("^7Usage: ^8!%s", c.Name)
	}
	return fmt.Sprintf("^7Usage: ^8!%s ^7%s", c.Name, c.Args)
}

var registry = []Command{
	{CmdHelp, "help", "h", 0, "", "display all available commands", false},
	{CmdForgive, "forgive", "f", 0, "[<name>]", "forgive a player for team killing", false},
	{CmdForgiveAll, "forgiveall", "fa", 0, "", "forgive all team kills", false},
	{CmdForgiveList, "forgivelist", "fl", 0, "", "list all players who killed you", false},
	{CmdForgivePrev, "forgiveprev", "fp", 0, "", "forgive last team kill", false},
	{CmdGrudge, "grudge", "", 0, "[<name>]", "grudge a player for team killing, a grudged player will not be forgiven", false},
	{CmdRegister, "register", "", 0, "", "register yourself as a basic user", false},
	{CmdTime, "time", "", 0, "", "display the current server time", false},
	{CmdDiscord, "discord", "", 0, "", "display the discord invite link", false},
	{CmdIAmGod, "iamgod", "", 0, "", "register yourself as head admin", true},

	{CmdTeams, "teams", "", 1, "", "balance teams", false},
	{CmdSpree, "spree", "", 1, "", "display current kill streak", false},
	{CmdStats, "stats", "", 1, "", "display current map stats", false},
	{CmdBombStats, "bombstats", "", 1, "", "display Bomb stats", false},
	{CmdCTFStats, "ctfstats", "", 1, "", "display Capture the Flag stats", false},
	{CmdFreezeStats, "freezestats", "", 1, "", "display freeze/thawout stats", false},
	{CmdHEStats, "hestats", "", 1, "", "display HE grenade kill stats", false},
	{CmdHits, "hits", "", 1, "", "display hit stats", false},
	{CmdHS, "hs", "", 1, "", "display headshot counter", false},
	{CmdKnife, "knife", "", 1, "", "display knife kill stats", false},
	{CmdRegTest, "regtest", "", 1, "", "display current user status", false},
	{CmdReport, "report", "r", 1, "<player> <reason>", "report a player to an admin", false},
	{CmdXLRStats, "xlrstats", "", 1, "[<name>]", "display full player statistics", false},
	{CmdXLRTopStats, "xlrtopstats", "topstats", 1, "", "display the top players", false},
	{CmdNextMap, "nextmap", "", 1, "", "display the next map in rotation", false},
	{CmdLastMaps, "lastmaps", "", 1, "", "list the last played maps", false},
	{CmdLike, "like", "", 1, "", "like your favourite maps", false},
	{CmdVotes, "votes", "", 1, "", "time remaining before next vote", false},
	{CmdMapStats, "mapstats", "", 1, "", "display the full stats of the current map", true},

	{CmdAdminTest, "admintest", "", 20, "", "display current admin status", false},
	{CmdLevelTest, "leveltest", "lt", 20, "[<name>]", "get the admin level for a given player or myself", false},
	{CmdList, "list", "", 20, "", "list all connected players", false},
	{CmdLocate, "locate", "", 20, "<name>", "display geolocation info of a player", false},
	{CmdMute, "mute", "", 20, "<name> [<duration>]", "mute or un-mute a player", false},
	{CmdSeen, "seen", "", 20, "<name>", "display when a player was last seen", false},
	{CmdSpec, "spec", "", 20, "", "move yourself to spectator", false},
	{CmdWarn, "warn", "w", 20, "<name> [<reason>]", "warn player", false},
	{CmdWarnInfo, "warninfo", "wi", 20, "<name>", "display how many warnings a player has", false},
	{CmdWarnRemove, "warnremove", "wr", 20, "<name>", "remove a player's last warning", false},
	{CmdWarns, "warns", "", 20, "", "list the warnings", false},
	{CmdWarnTest, "warntest", "wt", 20, "<warning>", "test a warning", false},

	{CmdAdmins, "admins", "", 40, "", "list all the online admins", false},
	{CmdAFK, "afk", "", 40, "<name>", "force a player to spec, because he is away from keyboard", false},
	{CmdAliases, "aliases", "alias", 40, "<name>", "list the aliases of a player", false},
	{CmdBigText, "bigtext", "", 40, "<text>", "display big message on screen", false},
	{CmdExit, "exit", "", 40, "", "display last disconnected player", false},
	{CmdFind, "find", "", 40, "<name>", "display the slot number of a player", false},
	{CmdForce, "force", "", 40, "<name> <blue/red/spec> [<lock>]", "force a player to the given team", false},
	{CmdKick, "kick", "k", 40, "<name> <reason>", "kick a player", false},
	{CmdRegulars, "regulars", "regs", 40, "", "display the regular players online", false},
	{CmdSay, "say", "", 40, "<text>", "say a message to all players", false},
	{CmdTell, "tell", "", 40, "<name> <text>", "tell a message to a specific player", false},
	{CmdTempBan, "tempban", "tb", 40, "<name> <duration> [<reason>]", "ban a player temporary for the given period", false},
	{CmdWarnClear, "warnclear", "wc", 40, "<name>", "clear the player warnings", false},
	{CmdDemo, "demo", "", 40, "<name> <start/stop/stopall>", "record a serverside demo of given player", false},

	{CmdBanInfo, "baninfo", "bi", 60, "<name>", "display active bans of a player", false},
	{CmdCI, "ci", "", 60, "<name>", "kick player with connection interrupt", false},
	{CmdForgiveClear, "forgiveclear", "fc", 60, "[<name>]", "clear a player's team kills", false},
	{CmdForgiveInfo, "forgiveinfo", "fi", 60, "<name>", "display a player's team kills", false},
	{CmdID, "id", "", 60, "<name>", "show the IP, guid and authname of a player", false},
	{CmdSlap, "slap", "", 60, "<name> [<amount>]", "slap a player (a number of times)", false},
	{CmdSwap, "swap", "", 60, "<name1> [<name2>]", "swap teams for player A and B", false},
	{CmdVeto, "veto", "", 60, "", "stop voting process", false},
	{CmdLookup, "lookup", "l", 60, "<name>", "search for a player in the database", false},
	{CmdUnban, "unban", "", 60, "<@ID>", "unban a player from the database", false},

	{CmdBan, "ban", "b", 80, "<name> <reason>", "ban a player for several days", false},
	{CmdKickBots, "kickbots", "kb", 80, "", "kick all bots", false},
	{CmdScream, "scream", "", 80, "<text>", "scream a message in different colors to all players", false},
	{CmdNuke, "nuke", "", 80, "<name>", "nuke a player", false},
	{CmdShuffleTeams, "shuffleteams", "shuffle", 80, "", "shuffle the teams", false},
	{CmdAddBots, "addbots", "", 80, "", "add bots to the game", false},
	{CmdBanAll, "banall", "ball", 80, "<pattern> [<reason>]", "ban all players matching pattern", false},
	{CmdBanList, "banlist", "", 80, "", "display the last active 10 bans", false},
	{CmdBots, "bots", "", 80, "<on/off>", "enables or disables bot support", false},
	{CmdCycleMap, "cyclemap", "", 80, "", "cycle to the next map", false},
	{CmdExec, "exec", "", 80, "<filename>", "execute given config file", false},
	{CmdGear, "gear", "", 80, "<default/all/knife/pistol/shotgun/sniper>", "set allowed weapons", false},
	{CmdInstagib, "instagib", "", 80, "<on/off>", "set Instagib mode", false},
	{CmdKickAll, "kickall", "kall", 80, "<pattern> [<reason>]", "kick all players matching pattern", false},
	{CmdKill, "kill", "", 80, "<name>", "kill a player", false},
	{CmdKiss, "kiss", "clear", 80, "", "clear all player warnings", false},
	{CmdLastBans, "lastbans", "bans", 80, "", "list the last 4 bans", false},
	{CmdMakeReg, "makereg", "mr", 80, "<name>", "make a player a regular (Level 2) user", false},
	{CmdMap, "map", "", 80, "<ut4_name>", "load given map", false},
	{CmdMaps, "maps", "", 80, "", "display all available maps", false},
	{CmdMapRestart, "maprestart", "restart", 80, "", "restart the map", false},
	{CmdMoon, "moon", "", 80, "<on/off>", "activate Moon mode (low gravity)", false},
	{CmdPermBan, "permban", "pb", 80, "<name> <reason>", "ban a player permanent", false},
	{CmdPutGroup, "putgroup", "", 80, "<name> <group>", "add a client to a group", false},
	{CmdRebuild, "rebuild", "", 80, "", "sync up all available maps", false},
	{CmdSetNextMap, "setnextmap", "", 80, "<ut4_name>", "set the next map", false},
	{CmdSwapTeams, "swapteams", "", 80, "", "swap the current teams", false},
	{CmdUnreg, "unreg", "", 80, "<name>", "remove a player from the regular group", false},

	{CmdBomb, "bomb", "", 90, "", "change gametype to Bomb", false},
	{CmdCTF, "ctf", "", 90, "", "change gametype to Capture the Flag", false},
	{CmdFFA, "ffa", "", 90, "", "change gametype to Free For All", false},
	{CmdGunGame, "gungame", "", 90, "", "change gametype to Gun Game", false},
	{CmdJump, "jump", "", 90, "", "change gametype to Jump", false},
	{CmdLMS, "lms", "", 90, "", "change gametype to Last Man Standing", false},
	{CmdTDM, "tdm", "", 90, "", "change gametype to Team Deathmatch", false},
	{CmdTS, "ts", "", 90, "", "change gametype to Team Survivor", false},
	{CmdUngroup, "ungroup", "", 90, "<name>", "remove admin level from a player", false},
	{CmdPassword, "password", "", 90, "[<password>]", "set private server password", false},
	{CmdReload, "reload", "", 90, "", "reload map", false},
}

var (
	commandsByName = map[string]Command{}
	commandsByKind = map[CommandKind]Command{}
)

func init() {
	for _, c := range registry {
		commandsByName[c.Name] = c
		commandsByKind[c.Kind] = c
		if c.Alias != "" {
			commandsByName[c.Alias] = c
		}
	}
}

// LookupCommand resolves a chat token such as "!w", "@admins" or "warn"
// to its registry entry.
func LookupCommand(token string) (Command, bool) {
	// "!!text" is shorthand for !say
	if strings.HasPrefix(token, "!!") {
		return commandsByKind[CmdSay], true
	}
	name := strings.ToLower(strings.TrimLeft(token, "!@"))
	c, ok := commandsByName[name]
	return c, ok
}

// CommandFor returns the registry entry of a kind.
func CommandFor(kind CommandKind) Command {
	return commandsByKind[kind]
}

// HelpList returns the command names shown by !help for a role, every
// visible command up to the issuer's tier.
func HelpList(role int) []string {
	var limit int
	switch {
	case role < RoleModerator:
		limit = RoleUser
	case role < RoleAdmin:
		limit = RoleModerator
	case role < RoleFullAdmin:
		limit = RoleAdmin
	case role < RoleSeniorAdmin:
		limit = RoleFullAdmin
	case role < RoleSuperAdmin:
		limit = RoleSeniorAdmin
	default:
		limit = RoleHeadAdmin
	}
	var names []string
	for _, c := range registry {
		if c.Hidden || c.Level > limit {
			continue
		}
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}
