package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seanbarr1988/spunkybot/internal/domain"
	"github.com/seanbarr1988/spunkybot/internal/storage"
)

const (
	reportCooldown    = time.Minute
	maxReportCooldown = 5 * time.Minute
	topStatsWindow    = 120 * 24 * time.Hour
)

// runCommand executes a resolved command whose level the issuer holds.
func (b *Bot) runCommand(c *cmdCtx) {
	switch c.cmd.Level {
	case domain.RoleGuest, domain.RoleUser:
		b.playerCommand(c)
	case domain.RoleModerator, domain.RoleAdmin:
		b.moderatorCommand(c)
	default:
		b.adminCommand(c)
	}
}

func (b *Bot) playerCommand(c *cmdCtx) {
	p := c.issuer
	switch c.cmd.Kind {
	case domain.CmdHelp:
		b.cmdHelp(c)
	case domain.CmdRegister:
		b.cmdRegister(c)
	case domain.CmdRegTest:
		if p.Registered {
			b.tell(c, fmt.Sprintf("^7%s [^3@%d^7] is registered since ^3%s", p.Name(), p.ID, p.FirstSeen))
		} else {
			b.tell(c, "^7You are not a registered user.")
		}
	case domain.CmdHS:
		b.tell(c, countLine(p.Headshots(), "^7You made ^3%d ^7headshot%s", "^7You made no headshot"))
	case domain.CmdSpree:
		b.tell(c, countLine(p.Streak(), "^7You have ^3%d ^7kill%s in a row", "^7You are currently not having a killing spree"))
	case domain.CmdHEStats:
		b.tell(c, countLine(p.HEKills(), "^7You made ^3%d ^7HE grenade kill%s", "^7You made no HE grenade kill"))
	case domain.CmdKnife:
		b.tell(c, countLine(p.KnifeKills(), "^7You made ^3%d ^7knife kill%s", "^7You made no knife kill"))
	case domain.CmdHits:
		b.tell(c, hitStats(p))
	case domain.CmdBombStats:
		if b.game.Type != domain.GameBomb {
			b.tell(c, "^7You are not playing Bomb")
			return
		}
		b.tell(c, fmt.Sprintf("^7planted: ^2%d ^7- defused: ^2%d", p.BombPlanted(), p.BombDefused()))
		b.tell(c, fmt.Sprintf("^7bomb carrier killed: ^2%d ^7- enemies bombed: ^2%d", p.CarrierKills(), p.BombKills()))
	case domain.CmdCTFStats:
		if b.game.Type != domain.GameCTF {
			b.tell(c, "^7You are not playing Capture the Flag")
			return
		}
		b.tell(c, b.flagLine(p))
	case domain.CmdFreezeStats:
		if b.game.Type != domain.GameFreeze {
			b.tell(c, "^7You are not playing Freeze Tag")
			return
		}
		b.tell(c, fmt.Sprintf("^7freeze: ^2%d ^7- thaw out: ^2%d", p.Freezes(), p.Thawouts()))
	case domain.CmdMapStats:
		b.cmdMapStats(c)
	case domain.CmdTime:
		b.reply(c, "^7"+b.now().Format("15:04"))
	case domain.CmdDiscord:
		b.reply(c, "^3Discord: ^7"+b.cfg.Server.DiscordLink)
	case domain.CmdVotes:
		b.cmdVotes(c)
	case domain.CmdTeams:
		if !b.game.Type.FFALike() {
			b.handleTeamBalance()
		}
	case domain.CmdStats:
		if b.game.Type == domain.GameFreeze {
			b.tell(c, fmt.Sprintf("^7Freeze Stats %s: ^7F ^2%d ^7T ^3%d ^7TK ^1%d ^7HS ^2%d",
				p.Name(), p.Freezes(), p.Thawouts(), p.TeamKillCount(), p.Headshots()))
			return
		}
		b.tell(c, fmt.Sprintf("^7Map Stats %s: ^7K ^3%d ^7D ^3%d ^7TK ^3%d ^7Ratio ^3%v ^7HS ^3%d",
			p.Name(), p.Kills(), p.Deaths(), p.TeamKillCount(), domain.KDRatio(p.Kills(), p.Deaths()), p.Headshots()))
	case domain.CmdXLRStats:
		b.cmdXLRStats(c)
	case domain.CmdXLRTopStats:
		b.cmdTopStats(c)
	case domain.CmdForgive:
		b.cmdForgive(c)
	case domain.CmdForgivePrev:
		killed := p.KilledMe()
		if len(killed) == 0 {
			b.tell(c, "^3No one to forgive")
			return
		}
		b.forgive(p, killed[len(killed)-1])
	case domain.CmdForgiveList:
		if len(p.KilledMe()) == 0 {
			b.tell(c, "^3No one to forgive")
			return
		}
		b.tell(c, "^7Whom to forgive? "+b.killerList(p))
	case domain.CmdForgiveAll:
		b.cmdForgiveAll(c)
	case domain.CmdGrudge:
		b.cmdGrudge(c)
	case domain.CmdReport:
		b.cmdReport(c)
	case domain.CmdLike:
		b.cmdLike(c)
	case domain.CmdNextMap:
		b.reply(c, b.nextMapMessage(c.ctx))
	case domain.CmdLastMaps:
		if last := b.game.LastMaps(); len(last) > 0 {
			b.tell(c, "^7Last Maps: ^3"+strings.Join(last, ", "))
		}
	case domain.CmdIAmGod:
		b.cmdIAmGod(c)
	}
}

func countLine(n int, some, none string) string {
	if n > 0 {
		return fmt.Sprintf(some, n, plural(n))
	}
	return none
}

func (b *Bot) flagLine(p *domain.Player) string {
	if b.game.Mod > domain.Mod41 {
		return fmt.Sprintf("^7flags captured:^3%d ^7- flags returned:^3%d ^7- fastest cap:^3%v ^7sec",
			p.FlagsCaptured(), p.FlagsReturned(), p.CaptureTime())
	}
	return fmt.Sprintf("^7flags captured:^3%d ^7- flags returned:^3%d", p.FlagsCaptured(), p.FlagsReturned())
}

func (b *Bot) cmdMapStats(c *cmdCtx) {
	p := c.issuer
	b.tell(c, fmt.Sprintf("^3%d ^7kills - ^3%d ^7deaths", p.Kills(), p.Deaths()))
	b.tell(c, fmt.Sprintf("^3%d ^7kills in a row - ^3%d ^7teamkills", p.Streak(), p.TeamKillCount()))
	b.tell(c, fmt.Sprintf("^3%d ^7total hits - ^3%d ^7headshots", p.AllHits(), p.Headshots()))
	b.tell(c, fmt.Sprintf("^3%d ^7HE grenade kills", p.HEKills()))
	switch b.game.Type {
	case domain.GameCTF:
		b.tell(c, b.flagLine(p))
	case domain.GameBomb:
		b.tell(c, fmt.Sprintf("^7planted: ^2%d ^7- defused: ^2%d", p.BombPlanted(), p.BombDefused()))
		b.tell(c, fmt.Sprintf("^7bomb carrier killed: ^2%d ^7- enemies bombed: ^2%d", p.CarrierKills(), p.BombKills()))
	case domain.GameFreeze:
		b.tell(c, fmt.Sprintf("^7freeze: ^2%d ^7- thaw out: ^2%d", p.Freezes(), p.Thawouts()))
	}
}

var helpTitles = []struct {
	min   int
	title string
}{
	{domain.RoleSuperAdmin, "^7Super Admin commands: "},
	{domain.RoleSeniorAdmin, "^7Senior Admin commands: "},
	{domain.RoleFullAdmin, "^7Full Admin commands: "},
	{domain.RoleAdmin, "^7Admin commands: "},
	{domain.RoleModerator, "^7Moderator commands: "},
	{domain.RoleGuest, "^7Available commands: "},
}

func (b *Bot) cmdHelp(c *cmdCtx) {
	role := c.issuer.Role
	if c.args != "" {
		cmd, ok := domain.LookupCommand(c.args)
		if !ok {
			b.tell(c, "^7Unknown command ^3"+c.args)
			return
		}
		if role >= cmd.Level {
			b.tell(c, cmd.Syntax()+" ^3- "+cmd.Desc)
		}
		return
	}

	var names []string
	for _, name := range domain.HelpList(role) {
		if !b.modeCommand(name) {
			names = append(names, name)
		}
	}
	for _, t := range helpTitles {
		if role >= t.min {
			b.tell(c, t.title+"^3"+strings.Join(names, ", ^3"))
			return
		}
	}
}

// modeCommand reports commands hidden from !help in the current mode or
// on the current server tier.
func (b *Bot) modeCommand(name string) bool {
	switch name {
	case "bombstats":
		return b.game.Type != domain.GameBomb
	case "ctfstats":
		return b.game.Type != domain.GameCTF
	case "freezestats":
		return b.game.Type != domain.GameFreeze
	case "kill":
		return b.game.Mod == domain.Mod41
	case "instagib":
		return b.game.Mod < domain.Mod43
	}
	return false
}

func (b *Bot) cmdRegister(c *cmdCtx) {
	p := c.issuer
	if p.Registered {
		b.tell(c, fmt.Sprintf("^3%s ^7is already in a higher level group", p.Name()))
		return
	}
	if err := b.register(c, p, domain.RoleUser); err != nil {
		return
	}
	b.tell(c, fmt.Sprintf("^3%s ^7put in group User", p.Name()))
}

// register stores p as a registered user with role.
func (b *Bot) register(c *cmdCtx, p *domain.Player, role int) error {
	now := b.now()
	if err := b.store.RegisterUser(c.ctx, p.GUID, p.Name(), p.IP, role, now); err != nil {
		b.logger.Error("registering player", "player", p.Name(), "guid", p.GUID, "err", err)
		return err
	}
	p.Registered = true
	p.Role = role
	p.FirstSeen = now.Format("2006-01-02 15:04:05")
	p.LastVisit = p.FirstSeen
	return nil
}

// setRole changes the stored role of p, registering it first if needed.
func (b *Bot) setRole(c *cmdCtx, p *domain.Player, role int) error {
	if !p.Registered {
		return b.register(c, p, role)
	}
	if err := b.store.SetRole(c.ctx, p.GUID, role); err != nil {
		b.logger.Error("setting role", "player", p.Name(), "role", role, "err", err)
		return err
	}
	p.Role = role
	return nil
}

func (b *Bot) voteStatus(allowed bool, timer time.Time, label string) string {
	now := b.now()
	switch {
	case !allowed:
		return label + " ^7vote is ^1disabled"
	case !timer.After(now):
		return label + " ^7vote available: ^2Now!"
	}
	mins := minutesLeft(timer, now)
	return fmt.Sprintf("%s ^7vote available in: ^8 %d min%s", label, mins, plural(mins))
}

func (b *Bot) cmdVotes(c *cmdCtx) {
	if b.authActive && c.issuer.AuthName == "" {
		b.reply(c, "^3Players ^7must have ^3[^2AUTH^3]^7 to use this command")
		return
	}
	b.reply(c, b.voteStatus(b.allowNextmapVote, b.failedVoteTimer, "^3Next Map"))
	b.reply(c, b.voteStatus(b.allowCyclevote, b.failedCyclemapTimer, "^3Cycle Map"))
	if b.game.MapName == "" {
		return
	}
	passed, failed, err := b.store.MapVotes(c.ctx, b.game.MapName)
	if err != nil {
		b.logger.Warn("reading map votes", "map", b.game.MapName, "err", err)
		return
	}
	if passed+failed > 0 {
		b.reply(c, fmt.Sprintf("^3%s ^7nextmap votes: ^2%d ^7passed - ^1%d ^7failed", b.game.MapName, passed, failed))
	}
}

func xlrLine(p *domain.Player) string {
	st := p.Stored
	return fmt.Sprintf("^1Stats^7 %s: ^7K ^3%d ^7D ^3%d ^7TK ^3%d ^7Ratio ^3%v ^7HS ^3%d",
		p.Name(), st.Kills, st.Deaths, st.TeamKills, st.Ratio(), st.Headshots)
}

func (b *Bot) cmdXLRStats(c *cmdCtx) {
	if c.args == "" {
		if !c.issuer.Registered {
			b.tell(c, "^7You need to ^3!register ^7first")
			return
		}
		b.tell(c, xlrLine(c.issuer))
		return
	}
	target, candidates := b.game.FindPlayers(c.args)
	if target == nil && len(candidates) > 0 {
		target = candidates[0]
	}
	switch {
	case target == nil:
		b.tell(c, "^7No player found matching ^3"+c.args)
	case !target.Registered:
		b.tell(c, "^7Sorry, this player is not registered")
	default:
		b.tell(c, xlrLine(target))
	}
}

func (b *Bot) cmdTopStats(c *cmdCtx) {
	names, err := b.store.TopPlayers(c.ctx, b.now().Add(-topStatsWindow))
	if err != nil {
		b.logger.Warn("loading top players", "err", err)
	}
	if len(names) == 0 {
		b.tell(c, "^3Awards still available")
		return
	}
	list := make([]string, len(names))
	for i, n := range names {
		list[i] = fmt.Sprintf("^1#%d ^7%s", i+1, n)
	}
	b.tell(c, "^3Top players: "+strings.Join(list, ", "))
}

// --- Forgive and grudge ---

func (b *Bot) killerList(p *domain.Player) string {
	var labels []string
	for _, num := range p.UniqueKilledMe() {
		if k := b.game.Player(num); k != nil {
			labels = append(labels, fmt.Sprintf("^3%s^7 [^3%d^7]", k.Name(), num))
		}
	}
	return strings.Join(labels, ", ")
}

// forgive clears one team killer of victim on both sides.
func (b *Bot) forgive(victim *domain.Player, killerNum int) {
	victim.ClearTK(killerNum)
	killer := b.game.Player(killerNum)
	if killer == nil {
		return
	}
	killer.ClearKilledMe(victim.Num)
	b.game.Say(fmt.Sprintf("^7%s has forgiven %s's attack", victim.Name(), killer.Name()))
}

func (b *Bot) cmdForgive(c *cmdCtx) {
	victim := c.issuer
	killed := victim.KilledMe()
	if len(killed) == 0 {
		b.tell(c, "^3No one to forgive")
		return
	}
	if c.args == "" {
		b.forgive(victim, killed[len(killed)-1])
		return
	}
	if killer, _, ok := b.findPlayer(c.ctx, c.args); ok && containsInt(killed, killer.Num) {
		b.forgive(victim, killer.Num)
		return
	}
	b.tell(c, "^7Whom to forgive? "+b.killerList(victim))
}

func (b *Bot) cmdForgiveAll(c *cmdCtx) {
	victim := c.issuer
	killers := victim.UniqueKilledMe()
	if len(killers) == 0 {
		b.tell(c, "^3No one to forgive")
		return
	}
	victim.ClearAllTK()
	var names []string
	for _, num := range killers {
		if k := b.game.Player(num); k != nil {
			k.ClearKilledMe(victim.Num)
			names = append(names, k.Name())
		}
	}
	b.game.Say(fmt.Sprintf("^7%s has forgiven: ^3%s", victim.Name(), strings.Join(names, ", ")))
}

func (b *Bot) cmdGrudge(c *cmdCtx) {
	victim := c.issuer
	killed := victim.KilledMe()
	if len(killed) == 0 {
		if grudged := victim.Grudged(); len(grudged) > 0 {
			var names []string
			for _, num := range grudged {
				if k := b.game.Player(num); k != nil {
					names = append(names, "^3"+k.Name())
				}
			}
			b.tell(c, "^7No one to grudge. You already have a grudge against: "+strings.Join(names, ", "))
			return
		}
		b.tell(c, "^3No one to grudge")
		return
	}

	target := b.game.Player(killed[len(killed)-1])
	if c.args != "" {
		found, _, ok := b.findPlayer(c.ctx, c.args)
		if !ok || found.Num == domain.OfflinePlayerNum {
			b.tell(c, "^7Whom to grudge? "+b.killerList(victim))
			return
		}
		target = found
	}
	if target == nil {
		return
	}
	victim.SetGrudge(target.Num)
	b.game.Say(fmt.Sprintf("^7%s has grudge against ^1%s", victim.Name(), target.Name()))
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// --- Reports ---

func (b *Bot) cmdReport(c *cmdCtx) {
	reporter := c.issuer
	if b.authActive && reporter.AuthName == "" {
		b.reply(c, "^3Players ^7must have ^3[^2AUTH^3]^7 to use this command")
		return
	}
	args := c.fields()
	if len(args) == 0 {
		b.syntax(c)
		return
	}
	now := b.now()
	if len(args) == 1 {
		if reporter.Role >= domain.RoleAdmin && strings.Contains(args[0], "clear") {
			b.reportCooldown = now
			b.lastReport = nil
			b.tell(c, "^3Reports^7 are now cleared")
			return
		}
		b.tell(c, "^7You need to enter a reason: ^8!report ^7 <name> <reason>")
		return
	}

	target, msg, ok := b.findPlayer(c.ctx, args[0])
	if !ok {
		b.tell(c, msg)
		return
	}
	if target == b.lastReport {
		b.tell(c, "^7This player has already been reported")
		return
	}
	b.lastReport = target
	reason := domain.ReasonText(truncateReason(strings.Join(args[1:], " ")))

	if now.After(b.reportCooldown) || reporter.Role >= domain.RoleAdmin {
		b.reportCooldown = now.Add(reportCooldown)
		err := b.notice(c.ctx, domain.NoticeReport, domain.ReportNotice{
			Reporter:     reporter.Name(),
			ReporterAuth: reporter.AuthName,
			ReporterID:   reporter.ID,
			Target:       target.Name(),
			TargetAuth:   target.AuthName,
			TargetID:     target.ID,
			TargetIP:     target.IP,
			Reason:       reason,
			Map:          b.game.MapName,
		})
		if err != nil {
			b.tell(c, "^3Report: ^1Failed^7 with error "+err.Error())
			return
		}
		b.tell(c, "^3Report: ^2success")
		return
	}

	if !b.reportCooldown.Before(now.Add(maxReportCooldown)) {
		b.reportCooldown = now.Add(maxReportCooldown)
	} else {
		b.reportCooldown = b.reportCooldown.Add(reportCooldown)
	}
	mins := minutesLeft(b.reportCooldown, now)
	reporter.AddWarning(domain.WarnDoNotSpam, false, now)
	b.tell(c, fmt.Sprintf("^1WARNING ^7[^3%d^7]: ^3%s^7: %s", reporter.Warnings(), reporter.Name(), domain.WarnDoNotSpam))
	b.tell(c, fmt.Sprintf("^8!report^7 is on cooldown for: ^3 %d min%s", mins, plural(mins)))
}

func (b *Bot) cmdLike(c *cmdCtx) {
	p := c.issuer
	if b.game.MapName == "" || !p.Registered {
		b.tell(c, "^7 You must ^3!register^7 for xlrstats")
		return
	}
	if _, err := b.store.LikeMap(c.ctx, p.GUID, b.game.MapName); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.tell(c, "^7 You must ^3!register^7 for xlrstats")
			return
		}
		b.logger.Warn("storing liked map", "player", p.Name(), "err", err)
		return
	}
	b.tell(c, "^2 Success - ^7Liked map set to ^3"+b.game.MapName)
}

// nextMapMessage prefers the server's g_nextmap, then g_nextcyclemap.
func (b *Bot) nextMapMessage(ctx context.Context) string {
	next := firstWord(b.cvar(ctx, "g_nextmap"))
	if next != "" && contains(b.game.AllMaps, next) {
		b.game.NextMap = next
	} else if cycle := firstWord(b.cvar(ctx, "g_nextcyclemap")); cycle != "" {
		b.game.NextMap = cycle
	}
	return "^3Next Map: ^7" + b.game.NextMap
}

func (b *Bot) cvar(ctx context.Context, name string) string {
	v, err := b.server.Cvar(ctx, name)
	if err != nil {
		b.logger.Debug("reading cvar", "cvar", name, "err", err)
		return ""
	}
	return v
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return strings.ToLower(f[0])
	}
	return ""
}

func (b *Bot) cmdIAmGod(c *cmdCtx) {
	exists, err := b.store.HeadAdminExists(c.ctx)
	if err != nil {
		b.logger.Error("checking head admin", "err", err)
		return
	}
	if exists {
		b.tell(c, "^7Unknown command ^3"+c.token)
		return
	}
	if err := b.setRole(c, c.issuer, domain.RoleHeadAdmin); err != nil {
		return
	}
	b.logger.Info("head admin registered", "player", c.issuer.Name(), "guid", c.issuer.GUID)
	b.tell(c, "^7You are registered as ^6Head Admin")
}
