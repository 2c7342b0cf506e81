package collector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/seanbarr1988/spunkybot/internal/domain"
	"github.com/seanbarr1988/spunkybot/internal/storage"
)

const (
	maxSlaps      = 15
	lookupLimit   = 8
	banListLimit  = 10
	lastBansLimit = 4
	minPatternLen = 3
	interruptPing = 999
)

// gametypeCommands maps the mode switch commands to g_gametype values.
// minMod is the lowest server tier offering the mode.
var gametypeCommands = map[domain.CommandKind]struct {
	mode   domain.GameType
	minMod domain.ModVersion
}{
	domain.CmdFFA:     {domain.GameFFA, domain.Mod41},
	domain.CmdLMS:     {domain.GameLMS, domain.Mod43},
	domain.CmdTDM:     {domain.GameTDM, domain.Mod41},
	domain.CmdTS:      {domain.GameTS, domain.Mod41},
	domain.CmdCTF:     {domain.GameCTF, domain.Mod41},
	domain.CmdBomb:    {domain.GameBomb, domain.Mod41},
	domain.CmdJump:    {domain.GameJump, domain.Mod41},
	domain.CmdGunGame: {domain.GameGunGame, domain.Mod43},
}

var gearNames = []struct{ key, label string }{
	{"knife", "Knife only"},
	{"pistol", "Pistols only"},
	{"shotgun", "Shotguns only"},
	{"sniper", "Sniper rifles only"},
}

func (b *Bot) adminCommand(c *cmdCtx) {
	if g, ok := gametypeCommands[c.cmd.Kind]; ok {
		if b.game.Mod < g.minMod {
			b.tell(c, "^7Unknown command ^3"+c.token)
			return
		}
		b.game.Send(fmt.Sprintf("g_gametype %d", int(g.mode)))
		b.tell(c, "^7Game Mode: ^1"+g.mode.String())
		b.tell(c, "^7Mode changed for next map")
		return
	}

	switch c.cmd.Kind {
	// Full admin
	case domain.CmdBanInfo:
		b.withTarget(c, func(t *domain.Player) {
			ban, err := b.store.ActiveBan(c.ctx, t.GUID, "", b.now())
			switch {
			case err == nil:
				b.tell(c, fmt.Sprintf("^3%s ^7has an active ban until [^1%s^7]", t.Name(), ban.Expires))
			case errors.Is(err, storage.ErrNotFound):
				b.tell(c, fmt.Sprintf("^3%s ^7has no active ban", t.Name()))
			default:
				b.logger.Warn("reading ban", "player", t.Name(), "err", err)
			}
		})
	case domain.CmdCI:
		b.withSubordinate(c, "kick", b.kickInterrupted(c))
	case domain.CmdForgiveInfo:
		b.withTarget(c, func(t *domain.Player) {
			if n := len(t.TKVictims()); n > 0 {
				b.tell(c, fmt.Sprintf("^3%s ^7killed ^1%d ^7teammate%s", t.Name(), n, plural(n)))
			} else {
				b.tell(c, fmt.Sprintf("^3%s ^7has not killed teammates", t.Name()))
			}
		})
	case domain.CmdForgiveClear:
		if c.args == "" {
			for _, p := range b.game.Players {
				p.ClearAllTK()
				p.ClearAllKilledMe()
			}
			b.game.Say("^1All player team kills cleared")
			return
		}
		b.withSubordinate(c, "clear team kills of", func(t *domain.Player) {
			t.ClearAllKilledMe()
			for _, p := range b.game.Players {
				p.ClearTK(t.Num)
			}
			b.game.Say("^1All^7 team kills cleared for ^3" + t.Name())
		})
	case domain.CmdID:
		b.withTarget(c, func(t *domain.Player) {
			auth := t.AuthName
			if auth == "" {
				auth = "---"
			}
			b.tell(c, fmt.Sprintf("^7[^1@%d^7] %s ^3%s ^7[^3%s^7] since ^3%s", t.ID, t.Name(), t.IP, auth, t.FirstSeen))
		})
	case domain.CmdSlap:
		b.cmdSlap(c)
	case domain.CmdSwap:
		b.cmdSwap(c)
	case domain.CmdVeto:
		b.game.Veto()
	case domain.CmdLookup:
		b.cmdLookup(c)
	case domain.CmdUnban:
		b.cmdUnban(c)

	// Senior admin
	case domain.CmdBan:
		b.cmdBan(c)
	case domain.CmdPermBan:
		b.cmdPermBan(c)
	case domain.CmdBanAll, domain.CmdKickAll:
		b.cmdPattern(c)
	case domain.CmdKickBots:
		b.game.Send("kick allbots")
	case domain.CmdAddBots:
		b.game.Send("addbot boa 3 blue 50 BOT1")
		b.game.Send("addbot python 4 blue 50 BOT2")
		b.game.Send("addbot cheetah 3 red 50 BOT3")
		b.game.Send("addbot cobra 4 red 50 BOT4")
	case domain.CmdBots:
		switch c.args {
		case "on":
			b.game.Send("bot_enable 1")
			b.game.Send("bot_minplayers 0")
			b.tell(c, "^7Bot support: ^2On")
			b.tell(c, "^3Map cycle may be required to enable bot support")
		case "off":
			b.game.Send("bot_enable 0")
			b.game.Send("kick allbots")
			b.tell(c, "^7Bot support: ^1Off")
		default:
			b.syntax(c)
		}
	case domain.CmdScream:
		if c.args == "" {
			b.syntax(c)
			return
		}
		for _, color := range []string{"^1", "^2", "^3", "^5"} {
			b.game.Say(color + c.args)
		}
	case domain.CmdNuke:
		b.withTarget(c, func(t *domain.Player) {
			if outranks(t, c.issuer) {
				b.tell(c, "^3Insufficient privileges to nuke an admin")
				return
			}
			b.game.Send(fmt.Sprintf("nuke %d", t.Num))
		})
	case domain.CmdKill:
		if b.game.Mod == domain.Mod41 {
			b.tell(c, "^7The command ^3!kill ^7is not supported")
			return
		}
		b.withTarget(c, func(t *domain.Player) {
			if outranks(t, c.issuer) {
				b.tell(c, "^3Insufficient privileges to kill an admin")
				return
			}
			b.game.Smite(t.Num)
		})
	case domain.CmdKiss:
		if c.args == "" {
			for _, p := range b.game.Players {
				b.clearWarnings(c.ctx, p)
			}
			b.game.Say("^1All player warnings and team kills cleared")
			return
		}
		b.withSubordinate(c, "clear warnings of", func(t *domain.Player) {
			b.clearWarnings(c.ctx, t)
			for _, p := range b.game.Players {
				p.ClearTK(t.Num)
			}
			b.game.Say("^1All^7 warnings and team kills cleared for ^3" + t.Name())
		})
	case domain.CmdShuffleTeams:
		if b.game.Type.FFALike() {
			b.tell(c, "^7Command is disabled for this game mode")
			return
		}
		b.game.Send("shuffleteams")
		b.game.Send("exec shuffle.cfg")
	case domain.CmdSwapTeams:
		b.game.Send("swapteams")
	case domain.CmdCycleMap:
		b.game.Send("cyclemap")
	case domain.CmdExec:
		if c.args == "" {
			b.syntax(c)
			return
		}
		b.game.Send("exec " + c.args)
	case domain.CmdGear:
		b.cmdGear(c)
	case domain.CmdInstagib:
		b.cmdToggle(c, b.game.Mod >= domain.Mod43, "g_instagib", "1", "0", "Instagib", "^7Instagib changed for next map")
	case domain.CmdMoon:
		b.cmdToggle(c, true, "g_gravity", "100", "800", "Moon mode", "")
	case domain.CmdMap, domain.CmdSetNextMap:
		if c.args == "" {
			b.syntax(c)
			return
		}
		name, msg, ok := b.findMap(c.args)
		if !ok {
			b.tell(c, msg)
			return
		}
		b.game.Send("g_nextmap " + name)
		b.game.NextMap = name
		if c.cmd.Kind == domain.CmdSetNextMap {
			b.tell(c, "^7Next Map set to: ^3"+name)
			return
		}
		b.tell(c, "^7Changing Map to: ^3"+name)
		b.game.Send("cyclemap")
	case domain.CmdMaps:
		b.reply(c, fmt.Sprintf("^7Available Maps [^1%d^7]: ^3%s", len(b.game.AllMaps), strings.Join(b.game.AllMaps, ", ^3")))
	case domain.CmdMapRestart:
		b.game.Send("restart")
		b.resetStats(c.ctx, false)
	case domain.CmdRebuild:
		b.setAllMaps(c.ctx)
		b.tell(c, fmt.Sprintf("^7Rebuild maps: ^3%d ^7maps found", len(b.game.AllMaps)))
		b.setCurrentMap(c.ctx, "")
		b.tell(c, b.nextMapMessage(c.ctx))
	case domain.CmdBanList:
		b.cmdBanList(c)
	case domain.CmdLastBans:
		bans, err := b.store.LastBans(c.ctx, lastBansLimit)
		if err != nil {
			b.logger.Warn("listing bans", "err", err)
			return
		}
		for _, ban := range bans {
			b.tell(c, fmt.Sprintf("^3[^1@%d^3] ^7%s ^3(^1%s^3)", ban.ID, ban.Name, ban.Expires))
		}
	case domain.CmdMakeReg:
		b.withTarget(c, func(t *domain.Player) {
			if t.Registered && t.Role >= domain.RoleRegular {
				b.tell(c, fmt.Sprintf("^3%s is already in a higher level group", t.Name()))
				return
			}
			if b.setRole(c, t, domain.RoleRegular) == nil {
				b.tell(c, fmt.Sprintf("^1%s ^7put in group Regular", t.Name()))
			}
		})
	case domain.CmdUnreg:
		b.withTarget(c, func(t *domain.Player) {
			if t.Role != domain.RoleRegular {
				b.tell(c, fmt.Sprintf("^3%s is not in the regular group", t.Name()))
				return
			}
			if b.setRole(c, t, domain.RoleUser) == nil {
				b.tell(c, fmt.Sprintf("^1%s ^7put in group User", t.Name()))
			}
		})
	case domain.CmdPutGroup:
		b.cmdPutGroup(c)

	// Super admin
	case domain.CmdPassword:
		if c.args == "" {
			b.game.Send(`g_password ""`)
			b.tell(c, "^7Password removed - Server is public")
			return
		}
		b.game.Send("g_password " + c.args)
		b.tell(c, fmt.Sprintf("^7Password set to '%s' - Server is private", c.args))
	case domain.CmdReload:
		b.game.Send("reload")
	case domain.CmdUngroup:
		b.withTarget(c, func(t *domain.Player) {
			allowed := (t.Role > domain.RoleUser && t.Role < c.cmd.Level) || c.issuer.Role == domain.RoleHeadAdmin
			if !allowed || t.Num == c.issuer.Num {
				b.tell(c, fmt.Sprintf("^3Sorry, you cannot put %s in group User", t.Name()))
				return
			}
			if b.setRole(c, t, domain.RoleUser) == nil {
				b.tell(c, fmt.Sprintf("^1%s ^7put in group User", t.Name()))
			}
		})
	}
}

// kickInterrupted kicks a player whose ping shows 999 in the live status.
func (b *Bot) kickInterrupted(c *cmdCtx) func(*domain.Player) {
	return func(t *domain.Player) {
		_, rows, err := b.server.Status(c.ctx)
		if err != nil {
			b.logger.Warn("reading status", "err", err)
			return
		}
		for _, row := range rows {
			if row.Num == t.Num && row.Ping == interruptPing {
				b.kickReason(t.Num, "connection interrupted, try to reconnect")
				b.game.Say(fmt.Sprintf("^1%s ^7was kicked: ^3connection interrupted", t.Name()))
				return
			}
		}
		b.tell(c, fmt.Sprintf("^3%s has no connection interrupted", t.Name()))
	}
}

func (b *Bot) cmdSlap(c *cmdCtx) {
	args := c.fields()
	if len(args) == 0 {
		b.syntax(c)
		return
	}
	times := 1
	if len(args) > 1 && isDigits(args[1]) {
		times, _ = strconv.Atoi(args[1])
	}
	if times > maxSlaps {
		times = maxSlaps
	}
	t, msg, ok := b.findPlayer(c.ctx, args[0])
	if !ok {
		b.tell(c, msg)
		return
	}
	if outranks(t, c.issuer) {
		b.tell(c, "^3Insufficient privileges to slap an admin")
		return
	}
	for i := 0; i < times; i++ {
		b.game.Send(fmt.Sprintf("slap %d", t.Num))
	}
}

// cmdSwap exchanges the teams of two players, or of one player and the
// issuer. The player on the smaller team moves first.
func (b *Bot) cmdSwap(c *cmdCtx) {
	if b.game.Type.FFALike() {
		b.tell(c, "^7Command is disabled for this game mode")
		return
	}
	args := c.fields()
	if len(args) == 0 {
		b.syntax(c)
		return
	}
	first, _, ok1 := b.findPlayer(c.ctx, args[0])
	second, ok2 := c.issuer, true
	if len(args) > 1 {
		second, _, ok2 = b.findPlayer(c.ctx, args[1])
	}
	if !ok1 || !ok2 {
		b.tell(c, "^3Player not found")
		return
	}
	if b.denyTarget(c, first, "swap") || b.denyTarget(c, second, "swap") {
		return
	}
	if first.Team == second.Team {
		b.tell(c, "^7Cannot swap, both players are in the same team")
		return
	}
	first.TeamLock, second.TeamLock = nil, nil
	stats := b.game.Stats()
	team1, team2 := first.Team, second.Team
	if stats.Count(team1) < stats.Count(team2) {
		b.game.ForceTeam(second.Num, team1.String())
		b.game.ForceTeam(first.Num, team2.String())
	} else {
		b.game.ForceTeam(first.Num, team2.String())
		b.game.ForceTeam(second.Num, team1.String())
	}
	b.game.Say(fmt.Sprintf("^7Swapped player ^3%s ^7with ^3%s", first.Name(), second.Name()))
}

func (b *Bot) cmdLookup(c *cmdCtx) {
	if c.args == "" {
		b.syntax(c)
		return
	}
	rows, err := b.store.SearchPlayers(c.ctx, c.args, lookupLimit)
	if err != nil {
		b.logger.Warn("searching players", "pattern", c.args, "err", err)
		return
	}
	if len(rows) == 0 {
		b.tell(c, "^3No Player found matching "+c.args)
		return
	}
	for _, row := range rows {
		b.game.TellPlain(c.issuer.Num, fmt.Sprintf("^7[^1@%d^7] %s ^7[^3%s^7]", row.ID, row.Name, row.TimeJoined))
	}
}

// cmdUnban removes a ban by id together with every ban sharing its GUID
// or address, then purges the subnet from the ban file.
func (b *Bot) cmdUnban(c *cmdCtx) {
	arg := strings.TrimLeft(c.args, "@")
	if !isDigits(arg) {
		b.syntax(c)
		return
	}
	id, _ := strconv.ParseInt(arg, 10, 64)
	ban, err := b.store.Unban(c.ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.tell(c, "^7Invalid ID, no Player found")
			return
		}
		b.logger.Error("removing ban", "ban_id", id, "err", err)
		return
	}
	b.logger.Info("player unbanned", "ban_id", id, "player", ban.Name, "admin", c.issuer.Name())
	b.tell(c, fmt.Sprintf("^7Player ^1%s ^7unbanned", ban.Name))
	b.tell(c, fmt.Sprintf("^7Attempting to remove duplicates of [^1%s^7]", ban.IP))
	if b.banfile == nil {
		return
	}
	removed, err := b.banfile.Remove(ban.IP)
	if err != nil {
		b.logger.Warn("updating ban file", "ip", ban.IP, "err", err)
	}
	if removed > 0 {
		b.tell(c, fmt.Sprintf("^2Success!^7 Removed ^3%d^7 duplicate%s.", removed, plural(removed)))
	} else {
		b.tell(c, "^3No duplicates where found")
	}
}

func (b *Bot) banDays() string {
	days := b.cfg.Bot.BanDuration
	return fmt.Sprintf("%d day%s", days, plural(days))
}

func (b *Bot) cmdBan(c *cmdCtx) {
	args := c.fields()
	if len(args) == 0 {
		b.syntax(c)
		return
	}
	reason := "tempban"
	if len(args) > 1 {
		reason = truncateReason(strings.Join(args[1:], " "))
	}
	kickText := ""
	if reason != "tempban" {
		kickText = domain.ReasonText(reason)
	}
	t, msg, ok := b.findPlayer(c.ctx, args[0])
	if !ok {
		b.tell(c, msg)
		return
	}
	if outranks(t, c.issuer) {
		b.tell(c, "^3Insufficient privileges to ban an admin")
		return
	}
	if b.ban(c.ctx, t, b.cfg.BanTTL(), reason, c.issuer) {
		out := fmt.Sprintf("^3%s  ^1banned ^7for ^3%s ^7by %s", t.Name(), b.banDays(), c.issuer.Name())
		if kickText != "" {
			out += ": ^3" + kickText
		}
		b.game.Say(out)
	} else {
		b.tell(c, "^7This player has already a longer ban")
	}
	if t.Num != domain.OfflinePlayerNum {
		b.kickReason(t.Num, kickText)
	}
}

func (b *Bot) cmdPermBan(c *cmdCtx) {
	args := c.fields()
	if len(args) == 0 {
		b.syntax(c)
		return
	}
	if len(args) < 2 {
		b.tell(c, "^7You need to enter a reason: ^3!permban <name> <reason>")
		return
	}
	reason := truncateReason(strings.Join(args[1:], " "))
	t, msg, ok := b.findPlayer(c.ctx, args[0])
	if !ok {
		b.tell(c, msg)
		return
	}
	if outranks(t, c.issuer) {
		b.tell(c, "^3Insufficient privileges to ban an admin")
		return
	}
	b.ban(c.ctx, t, permanentBan, reason, c.issuer)
	b.game.Say(fmt.Sprintf("^8%s ^1banned permanently ^7by %s: ^3%s", t.Name(), c.issuer.Name(), reason))
	if t.Num != domain.OfflinePlayerNum {
		b.game.Kick(t.Num, "")
	}
	if b.banfile != nil {
		if err := b.banfile.Append(t.IP, t.Name(), reason, b.now()); err != nil {
			b.logger.Warn("appending ban file", "ip", t.IP, "err", err)
		}
	}
}

// cmdPattern is !kickall and !banall: every connected player whose name
// contains the pattern, skipping those the issuer does not outrank.
func (b *Bot) cmdPattern(c *cmdCtx) {
	pattern, rest := c.split()
	if pattern == "" {
		b.syntax(c)
		return
	}
	if len(pattern) < minPatternLen {
		b.tell(c, "^3Pattern must be at least 3 characters long")
		return
	}
	banning := c.cmd.Kind == domain.CmdBanAll
	reason := truncateReason(rest)
	if banning && reason == "" {
		reason = "tempban"
	}

	upper := strings.ToUpper(pattern)
	var matches []*domain.Player
	for _, p := range b.game.Humans() {
		if strings.Contains(strings.ToUpper(p.Name()), upper) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		b.tell(c, "^3No Players found matching "+pattern)
		return
	}
	for _, p := range matches {
		switch {
		case outranks(p, c.issuer) && banning:
			b.tell(c, "^3Insufficient privileges to ban an admin")
		case outranks(p, c.issuer):
			b.tell(c, "^3Insufficient privileges to kick an admin")
		case banning:
			b.ban(c.ctx, p, b.cfg.BanTTL(), reason, c.issuer)
			b.game.Say(fmt.Sprintf("^1%s ^7banned ^7for ^3%s ^7by %s", p.Name(), b.banDays(), c.issuer.Name()))
		default:
			b.kickReason(p.Num, reason)
		}
	}
}

func (b *Bot) cmdBanList(c *cmdCtx) {
	bans, err := b.store.ActiveBans(c.ctx, b.now(), banListLimit)
	if err != nil {
		b.logger.Warn("listing active bans", "err", err)
		return
	}
	if len(bans) == 0 {
		b.tell(c, "^7Banlist: Currently no one is banned")
		return
	}
	items := make([]string, len(bans))
	for i, ban := range bans {
		items[i] = fmt.Sprintf("^7[^1@%d^7] %s", ban.ID, ban.Name)
	}
	b.tell(c, "^7Banlist: "+strings.Join(items, ", "))
}

func (b *Bot) cmdGear(c *cmdCtx) {
	arg := c.args
	switch {
	case arg == "":
		b.syntax(c)
	case strings.Contains(arg, "all"):
		b.game.Send("g_gear 0")
		b.game.Say("^7Gear: ^1All weapons enabled")
	case strings.Contains(arg, "default"):
		b.game.Send(fmt.Sprintf("g_gear \"%s\"", b.game.DefaultGear))
		b.game.Say("^7Gear: ^1Server defaults enabled")
	default:
		for _, g := range gearNames {
			if strings.Contains(arg, g.key) {
				value, _ := domain.GearPreset(g.key, b.game.Mod)
				b.game.Send(fmt.Sprintf("g_gear \"%s\"", value))
				b.game.Say("^7Gear: ^1" + g.label)
				return
			}
		}
		b.syntax(c)
	}
}

// cmdToggle handles the on/off cvar commands. note is told after a
// successful change when non-empty.
func (b *Bot) cmdToggle(c *cmdCtx, supported bool, cvar, on, off, label, note string) {
	if !supported {
		b.tell(c, fmt.Sprintf("^7The command ^3%s ^7is not supported", c.token))
		return
	}
	switch c.args {
	case "on":
		b.game.Send(cvar + " " + on)
		b.tell(c, "^7"+label+": ^2On")
	case "off":
		b.game.Send(cvar + " " + off)
		b.tell(c, "^7"+label+": ^1Off")
	default:
		b.syntax(c)
		return
	}
	if note != "" {
		b.tell(c, note)
	}
}

// putGroups lists the !putgroup targets in match order. minIssuer is the
// level the issuer needs, zero meaning the target must be below senior
// admin instead.
var putGroups = []struct {
	match     func(string) bool
	role      int
	label     string
	minIssuer int
}{
	{func(s string) bool { return s == "user" }, domain.RoleUser, "^3%s put in group ^7User", 0},
	{func(s string) bool { return strings.Contains(s, "reg") }, domain.RoleRegular, "^3%s put in group ^7Regular", 0},
	{func(s string) bool { return strings.Contains(s, "mod") }, domain.RoleModerator, "^3%s added as ^7Moderator", 0},
	{func(s string) bool { return s == "admin" }, domain.RoleAdmin, "^3%s added as ^7Admin", 0},
	{func(s string) bool { return strings.Contains(s, "fulladmin") }, domain.RoleFullAdmin, "^3%s added as ^7Full Admin", 0},
	{func(s string) bool { return strings.Contains(s, "senioradmin") }, domain.RoleSeniorAdmin, "^3%s added as ^6Senior Admin", domain.RoleSuperAdmin},
	{func(s string) bool { return strings.Contains(s, "superadmin") }, domain.RoleSuperAdmin, "^3%s added as ^1Super Admin", domain.RoleHeadAdmin},
}

func (b *Bot) cmdPutGroup(c *cmdCtx) {
	args := c.fields()
	if len(args) < 2 {
		b.syntax(c)
		return
	}
	t, msg, ok := b.findPlayer(c.ctx, args[0])
	if !ok {
		b.tell(c, msg)
		return
	}
	group := strings.ToLower(args[1])
	for _, g := range putGroups {
		if !g.match(group) {
			continue
		}
		var allowed bool
		if g.minIssuer == 0 {
			allowed = t.Role < domain.RoleSeniorAdmin
		} else {
			allowed = c.issuer.Role >= g.minIssuer && t.Num != c.issuer.Num
		}
		if !allowed {
			continue
		}
		if b.setRole(c, t, g.role) != nil {
			return
		}
		b.tell(c, fmt.Sprintf(g.label, t.Name()))
		if g.role >= domain.RoleModerator {
			b.game.Tell(t.Num, "^3You are added as ^7"+domain.RoleName(g.role))
		}
		return
	}
	if !t.Registered {
		b.setRole(c, t, domain.RoleUser)
	}
	b.tell(c, fmt.Sprintf("^3Sorry, you cannot put %s in group <%s>", t.Name(), args[1]))
}
