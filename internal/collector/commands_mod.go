package collector

import (
	"fmt"
	"strings"
	"time"

	"github.com/seanbarr1988/spunkybot/internal/domain"
)

// warnDelay is the minimum gap between two admin warnings to one player.
const warnDelay = 5 * time.Second

const notAuthenticated = "^7You are not ^3Authenticated!^7 if ^2Auth^7 is down try again in a few mins "

func (b *Bot) moderatorCommand(c *cmdCtx) {
	p := c.issuer
	switch c.cmd.Kind {
	case domain.CmdAdminTest:
		b.tell(c, fmt.Sprintf("^7%s^7 [^3@%d^7] is ^3%s ^7[^3%d^7]", p.Name(), p.ID, domain.RoleName(p.Role), p.Role))
	case domain.CmdLocate:
		b.withTarget(c, func(t *domain.Player) {
			b.reply(c, fmt.Sprintf("^3%s ^7is connecting from ^3%s", t.Name(), t.Country))
		})
	case domain.CmdLevelTest:
		if c.args == "" {
			b.tell(c, fmt.Sprintf("^3Level^7 %s^7 [^3%d^7]: ^7%s", p.Name(), p.Role, domain.RoleName(p.Role)))
			return
		}
		b.withTarget(c, func(t *domain.Player) {
			msg := fmt.Sprintf("^7%s^7 [^3@%d^7] is ^3%s ^7[^3%d^7]", t.Name(), t.ID, domain.RoleName(t.Role), t.Role)
			if t.Role > domain.RoleGuest {
				msg += " and registered since ^3" + t.FirstSeen
			}
			b.tell(c, msg)
		})
	case domain.CmdList:
		labels := make([]string, 0, len(b.game.Players))
		for _, h := range b.game.Humans() {
			labels = append(labels, fmt.Sprintf("^3%s^7 [^3%d^7]", h.Name(), h.Num))
		}
		b.tell(c, "^7Players online: "+strings.Join(labels, ", "))
	case domain.CmdMute:
		b.cmdMute(c)
	case domain.CmdSeen:
		b.withTarget(c, func(t *domain.Player) {
			if t.Registered {
				b.tell(c, fmt.Sprintf("^3%s ^7was last seen on %s", t.Name(), t.LastVisit))
			} else {
				b.tell(c, fmt.Sprintf("^3%s ^7is not a registered user", t.Name()))
			}
		})
	case domain.CmdSpec:
		b.game.ForceTeam(p.Num, domain.TeamSpectator.String())
	case domain.CmdWarnInfo:
		b.withTarget(c, b.warnInfo(c))
	case domain.CmdWarn:
		b.cmdWarn(c)
	case domain.CmdWarnRemove:
		b.withSubordinate(c, "remove warnings of", func(t *domain.Player) {
			if last := t.ClearLastWarning(); last != "" {
				b.game.Say(fmt.Sprintf("^7Last warning removed for %s: ^3%s", t.Name(), last))
			} else {
				b.tell(c, fmt.Sprintf("^3%s ^7has no active warning", t.Name()))
			}
		})
	case domain.CmdWarns:
		b.tell(c, "^7Warnings: ^3"+strings.Join(domain.ReasonKeys(), ", ^3"))
	case domain.CmdWarnTest:
		warning := "behave yourself"
		if c.args != "" {
			warning = domain.ReasonText(c.args)
		}
		b.tell(c, "^1TEST: ^1WARNING ^7[^31^7]: ^4"+warning)

	case domain.CmdAdmins:
		b.reply(c, b.adminsOnline())
	case domain.CmdRegulars:
		b.reply(c, b.regularsOnline())
	case domain.CmdAliases:
		b.withTarget(c, func(t *domain.Player) {
			b.reply(c, fmt.Sprintf("^7Aliases of ^5%s: ^3%s", t.Name(), t.Aliases))
		})
	case domain.CmdBigText:
		if c.args == "" {
			b.syntax(c)
			return
		}
		b.game.BigText(c.args)
	case domain.CmdSay:
		if c.args == "" {
			if !strings.HasPrefix(c.token, "!!") {
				b.syntax(c)
			}
			return
		}
		b.game.Say(fmt.Sprintf("^2%s: ^7%s", p.Name(), c.args))
	case domain.CmdTell:
		name, text := c.split()
		if text == "" {
			b.syntax(c)
			return
		}
		t, msg, ok := b.findPlayer(c.ctx, name)
		if !ok {
			b.tell(c, msg)
			return
		}
		b.game.Tell(t.Num, fmt.Sprintf("^4%s: ^7%s", p.Name(), text))
	case domain.CmdExit:
		if b.lastDisconnected != nil {
			b.tell(c, "^3Last disconnected player: ^7"+b.lastDisconnected.Name())
		} else {
			b.tell(c, "^3No player left during this match")
		}
	case domain.CmdFind:
		if c.args == "" {
			b.syntax(c)
			return
		}
		_, msg, _ := b.findPlayer(c.ctx, c.args)
		b.tell(c, msg)
	case domain.CmdAFK:
		name, _ := c.split()
		if name == "" {
			b.syntax(c)
			return
		}
		t, msg, ok := b.findPlayer(c.ctx, name)
		if !ok {
			b.tell(c, msg)
			return
		}
		if b.denyTarget(c, t, "move") {
			return
		}
		b.game.ForceTeam(t.Num, domain.TeamSpectator.String())
	case domain.CmdForce:
		b.cmdForce(c)
	case domain.CmdKick:
		b.cmdKick(c)
	case domain.CmdWarnClear:
		b.withSubordinate(c, "clear warnings of", func(t *domain.Player) {
			b.clearWarnings(c.ctx, t)
			for _, other := range b.game.Players {
				other.ClearTK(t.Num)
			}
			b.game.Say("^1All^7 warnings and team kills cleared for ^3" + t.Name())
		})
	case domain.CmdTempBan:
		b.cmdTempBan(c)
	case domain.CmdDemo:
		b.cmdDemo(c)
	}
}

// withTarget resolves the whole argument to one player and runs fn, or
// answers with the syntax or the lookup failure.
func (b *Bot) withTarget(c *cmdCtx, fn func(*domain.Player)) {
	if c.args == "" {
		b.syntax(c)
		return
	}
	t, msg, ok := b.findPlayer(c.ctx, c.args)
	if !ok {
		b.tell(c, msg)
		return
	}
	fn(t)
}

// authRequired reports and refuses commands needing an auth name while
// the auth system is up.
func (b *Bot) authRequired(c *cmdCtx) bool {
	if b.authActive && c.issuer.AuthName == "" {
		b.tell(c, notAuthenticated)
		return true
	}
	return false
}

func (b *Bot) adminsOnline() string {
	var labels []string
	for _, p := range b.game.Humans() {
		if p.Role >= domain.RoleModerator {
			labels = append(labels, fmt.Sprintf("^7%s ^7[^3%d^7]", p.Name(), p.Role))
		}
	}
	if len(labels) == 0 {
		return "^7No admins online"
	}
	return "^3Admins online: " + strings.Join(labels, ", ")
}

func (b *Bot) regularsOnline() string {
	var labels []string
	for _, p := range b.game.Humans() {
		if p.Role == domain.RoleRegular {
			labels = append(labels, fmt.Sprintf("^3%s^7 [^3%d^7]", p.Name(), p.Role))
		}
	}
	if len(labels) == 0 {
		return "^7No regulars online"
	}
	return "^7Regulars online: " + strings.Join(labels, ", ")
}

func (b *Bot) cmdMute(c *cmdCtx) {
	args := c.fields()
	if len(args) == 0 {
		b.syntax(c)
		return
	}
	duration := ""
	if len(args) > 1 && isDigits(args[1]) {
		duration = args[1]
	}
	t, msg, ok := b.findPlayer(c.ctx, args[0])
	if !ok {
		b.tell(c, msg)
		return
	}
	if b.denyTarget(c, t, "mute") {
		return
	}
	b.game.Send(strings.TrimSpace(fmt.Sprintf("mute %d %s", t.Num, duration)))
}

// warnInfo drops expired warnings before reporting the active ones.
func (b *Bot) warnInfo(c *cmdCtx) func(*domain.Player) {
	return func(t *domain.Player) {
		now := b.now()
		ttl := b.cfg.WarnTTL()
		if t.WarningsExpired(ttl, now) {
			b.clearWarnings(c.ctx, t)
		}
		n := t.Warnings()
		if n == 0 {
			b.tell(c, fmt.Sprintf("^1%s ^7has ^3no ^7active warning", t.Name()))
			return
		}
		mins := minutesLeft(t.LastWarnTime().Add(ttl), now)
		b.tell(c, fmt.Sprintf("^1%s ^7has ^3%d ^7active warning%s, expires in ^1%d ^7minute%s: ^3%s",
			t.Name(), n, plural(n), mins, plural(mins), strings.Join(t.WarningMessages(), ", ^3")))
	}
}

// warnBanPoints maps warn keywords to the ban point duration they add
// once the player already holds more than one warning.
var warnBanPoints = map[string]time.Duration{
	"tk":     30 * time.Minute,
	"lang":   5 * time.Minute,
	"spam":   5 * time.Minute,
	"racism": 5 * time.Minute,
}

func (b *Bot) cmdWarn(c *cmdCtx) {
	name, rest := c.split()
	if name == "" {
		b.syntax(c)
		return
	}
	reason := "behave yourself"
	if rest != "" {
		reason = truncateReason(rest)
	}
	t, msg, ok := b.findPlayer(c.ctx, name)
	if !ok {
		b.tell(c, msg)
		return
	}
	now := b.now()
	switch {
	case outranks(t, c.issuer):
		b.tell(c, "^3You cannot warn an admin")
		return
	case t.LastWarnTime().Add(warnDelay).After(now):
		b.tell(c, fmt.Sprintf("^3Only one warning per %d seconds can be issued", int(warnDelay/time.Second)))
		return
	}
	if t.WarningsExpired(b.cfg.WarnTTL(), now) {
		b.clearWarnings(c.ctx, t)
	}

	if t.Warnings() > domain.WarnKickLimit {
		b.kickReason(t.Num, "too many warnings")
		b.game.Say(fmt.Sprintf("^1%s ^7was kicked, too many warnings", t.Name()))
		return
	}

	warning := domain.ReasonText(reason)
	banMins := 0
	if d, ok := warnBanPoints[reason]; ok && t.Warnings() > 1 {
		point := reason
		if reason == "tk" {
			point = "tk, ban by " + c.issuer.Name()
		}
		banMins = b.addBanPoint(c.ctx, t, point, d)
	}
	t.AddWarning(warning, true, now)

	if banMins > 0 {
		b.game.Say(fmt.Sprintf("^1%s ^7banned for ^3%d minutes ^7for too many warnings", t.Name(), banMins))
		b.kickReason(t.Num, "too many warnings")
		return
	}
	b.game.Say(fmt.Sprintf("^1WARNING ^7[^3%d^7]: ^3%s^7: %s", t.Warnings(), t.Name(), warning))
	if t.Warnings() == domain.WarnKickLimit {
		b.game.Say(fmt.Sprintf("^1ALERT: ^3%s ^7auto-kick from warnings if not cleared", t.Name()))
	}
}

func (b *Bot) cmdForce(c *cmdCtx) {
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
	if b.denyTarget(c, t, "force") {
		return
	}
	if strings.EqualFold(args[1], "free") {
		t.TeamLock = nil
		return
	}
	team, ok := domain.ParseTeam(args[1])
	if !ok || t.IsBot() {
		b.syntax(c)
		return
	}
	b.game.ForceTeam(t.Num, team.String())
	b.game.Tell(t.Num, "^3You are forced to: ^7"+team.String())
	t.TeamLock = nil
	if len(args) > 2 && args[2] == "lock" {
		t.TeamLock = &team
	}
}

func (b *Bot) cmdKick(c *cmdCtx) {
	args := c.fields()
	if len(args) == 0 {
		b.syntax(c)
		return
	}
	var reason string
	switch {
	case len(args) > 1:
		reason = truncateReason(strings.Join(args[1:], " "))
	case c.issuer.Role >= domain.RoleSeniorAdmin:
		reason = "."
	default:
		b.tell(c, "^7You need to enter a reason: ^3!kick <name> <reason>")
		return
	}
	t, msg, ok := b.findPlayer(c.ctx, args[0])
	if !ok {
		b.tell(c, msg)
		return
	}
	if outranks(t, c.issuer) {
		b.tell(c, "^3Insufficient privileges to kick an admin")
		return
	}
	out := fmt.Sprintf("^1%s ^7was kicked by %s", t.Name(), c.issuer.Name())
	kickText := ""
	if reason != "." {
		kickText = domain.ReasonText(reason)
		out += ": ^3" + kickText
	}
	b.game.Kick(t.Num, kickText)
	b.game.Say(out)
}

func (b *Bot) cmdTempBan(c *cmdCtx) {
	if b.authRequired(c) {
		return
	}
	args := c.fields()
	if len(args) == 0 {
		b.syntax(c)
		return
	}
	if len(args) < 2 {
		b.tell(c, "^7You need to enter a duration: ^3!tempban <name> <duration> [<reason>]")
		return
	}
	d, label := convertTime(args[1])
	reason := "tempban"
	if len(args) > 2 {
		reason = truncateReason(strings.Join(args[2:], " "))
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
	if b.ban(c.ctx, t, d, reason, c.issuer) {
		out := fmt.Sprintf("^3%s  ^1banned ^7for ^3%s ^7by %s", t.Name(), label, c.issuer.Name())
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

func (b *Bot) cmdDemo(c *cmdCtx) {
	if b.authRequired(c) {
		return
	}
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
	switch mode := args[1]; {
	case strings.Contains(mode, "stopall"):
		b.game.Send("stopserverdemo all")
		b.tell(c, "^7Disabling ^1All ^7 demo recordings")
	case b.denyTarget(c, t, "record"):
	case strings.Contains(mode, "start"):
		b.game.Send(fmt.Sprintf("startserverdemo %d", t.Num))
		b.tell(c, fmt.Sprintf("^7Recording of %s  ^2Enabled!^7", t.Name()))
	case strings.Contains(mode, "stop"):
		b.game.Send(fmt.Sprintf("stopserverdemo %d", t.Num))
		b.tell(c, fmt.Sprintf("^7Recording of %s  ^1Disabled!^7", t.Name()))
	default:
		b.syntax(c)
	}
}
