package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/seanbarr1988/spunkybot/internal/domain"
)

const (
	// spawnProtection is how soon after a respawn a kill counts as spawn killing.
	spawnProtection = 6 * time.Second
	tkBanDuration   = 30 * time.Minute
)

var streakCallouts = map[int]string{
	6:  "IS ON ^8FIRE!^7",
	9:  "IS ON A ^1RAMPAGE!^7 ",
	12: "IS ^5UNSTOPPABLE!^7",
	15: "IS ^2DOMINATING!^7",
	20: "IS ^9G O D L I K E !^7",
	25: "IS ^6L E G E N D A R Y !^7",
}

var multiKillCallouts = map[int]string{
	2: "^7DOUBLE KILL!",
	3: "^7TRIPLE KILL!",
	4: "^8MULTI KILL!",
	5: "^1MONSTER KILL!",
}

var headshotCallouts = map[int]string{
	10: "watch out!",
	15: "awesome!",
	20: "unbelievable!",
	30: "^1MANIAC!",
	40: "^8AIMBOT?",
	50: "stop that",
}

// handleHit counts a hit for the attacker and reports the headshot tally.
func (b *Bot) handleHit(payload string) error {
	nums, _, err := headInts(payload, 4)
	if err != nil {
		return err
	}
	hitter, err := b.player(nums[1])
	if err != nil {
		return err
	}
	zone := domain.HitPoint(b.game.Mod, nums[2])
	if zone == "" {
		b.logger.Debug("unknown hit zone", "code", nums[2], "item", domain.HitItem(b.game.Mod, nums[3]))
	}
	if !hitter.Hit(zone) {
		return nil
	}

	hs := hitter.Headshots()
	if b.cfg.Bot.SpamHeadshotHits {
		if callout, ok := headshotCallouts[hs]; ok {
			b.game.BigText(fmt.Sprintf("^3%s: ^8%d ^7HeadShots, %s", hitter.Name(), hs, callout))
		}
	}
	word := "headshots"
	if hs == 1 {
		word = "headshot"
	}
	b.game.Send(fmt.Sprintf("^3%s^7 has made ^3%d ^7%s (%d percent)", hitter.Name(), hs, word, hitter.HeadshotPercent()))
	return nil
}

// handleKill is the frag state machine: team kill punishment, kill and
// suicide counting, spawn kill checks and the kill announcements.
func (b *Bot) handleKill(ctx context.Context, payload string) error {
	nums, tail, err := headInts(payload, 3)
	if err != nil {
		return err
	}
	killerNum, victimNum, code := nums[0], nums[1], nums[2]
	if fields := strings.Fields(tail); len(fields) > 0 && fields[0] == "<non-client>" {
		killerNum = domain.BotPlayerNum
	}
	victim, err := b.player(victimNum)
	if err != nil {
		return err
	}
	killer, err := b.player(killerNum)
	if err != nil {
		return err
	}
	victim.SetAlive(false, b.now())

	cause := domain.DeathCause(b.game.Mod, code)
	killerName, victimName := killer.Name(), victim.Name()
	tk := false

	if !b.game.Type.FFALike() && victim.Team == killer.Team && victim.Team != domain.TeamSpectator &&
		killerNum != victimNum && cause != domain.CauseBombed {
		tk = true
		killer.TeamKill()
		victim.TeamDeath()
		if killer.Role < domain.RoleRegular && b.cfg.Bot.TeamkillAutokick && !killer.IsBot() {
			b.punishTeamKill(ctx, killer, victim)
		}
	}

	switch {
	case domain.IsSuicideCause(cause, killerNum == victimNum):
		victim.Suicide()
	case !tk && code != domain.ChangeTeamCode:
		killer.Kill(b.now())
		b.checkSpawnKill(killer, victim)
		b.announceMultiKill(killer)
	}

	if victimName != killerName && strings.ToLower(killerName) != "world" && code != domain.ChangeTeamCode && !tk {
		b.announceFirstKill(killerName, victimName, cause)
	}

	switch cause {
	case domain.CauseHEGrenade:
		killer.HEKill()
		if b.cfg.Bot.SpamNadeKills && killer.HEKills()%5 == 0 {
			b.game.BigText(fmt.Sprintf("^3%s: ^7%d HE grenade kills", killerName, killer.HEKills()))
		}
	case domain.CauseKnife, domain.CauseKnifeThrown:
		killer.KnifeKill()
		if b.cfg.Bot.SpamKnifeKills && killer.KnifeKills()%5 == 0 {
			b.game.BigText(fmt.Sprintf("^3%s: ^7%d knife kills", killerName, killer.KnifeKills()))
		}
	case domain.CauseBombed:
		if killerNum != victimNum {
			killer.KillWithBomb()
		}
	}
	if victim.BombHolder && killer.Team != victim.Team {
		killer.KillBombCarrier()
	}
	victim.BombHolder = false

	if killerNum != domain.BotPlayerNum {
		streak := killer.Streak()
		if callout, ok := streakCallouts[streak]; ok {
			msg := fmt.Sprintf("^3%s ^7%s", killerName, callout)
			b.game.Say(msg)
			if streak >= 20 {
				b.game.BigText(msg)
				b.game.BigText(msg)
			}
		}
		if vs := victim.Streak(); vs >= 6 && killerName != victimName {
			switch {
			case vs >= 25:
				b.game.Say(fmt.Sprintf("^3%s's ^6L E G E N D A R Y^7 (^3%d ^7kills) was ended by ^3%s!", victimName, vs, killerName))
			case vs >= 20:
				b.game.Say(fmt.Sprintf("^3%s's ^9G O D L I K E^7 (^3%d ^7kills) was ended by ^3%s!", victimName, vs, killerName))
			default:
				b.game.Say(fmt.Sprintf("^3%s's ^7Spree (^3%d ^7kills) was ended by ^3%s!", victimName, vs, killerName))
			}
		}
	}

	victim.Die()
	if b.cfg.Bot.ShowHitStatsRespawn {
		b.game.Tell(victimNum, hitStats(victim))
	}
	b.logger.Debug("kill", "killer", killerName, "victim", victimName, "cause", cause, "team_kill", tk)
	return nil
}

func (b *Bot) punishTeamKill(ctx context.Context, killer, victim *domain.Player) {
	killer.AddTKVictim(victim.Num)
	if !victim.HasGrudge(killer.Num) {
		victim.AddKilledMe(killer.Num)
		b.game.Tell(victim.Num, "^7Type ^3!fp ^7to forgive ^3"+killer.Name())
	}
	b.game.Tell(killer.Num, "^7Do not attack teammates, you ^1killed ^7"+victim.Name())

	if len(killer.TKVictims()) > domain.WarnKickLimit {
		b.ban(ctx, killer, tkBanDuration, "team killing over limit", nil)
		b.game.Say(fmt.Sprintf("^3%s ^7banned for ^130 minutes ^7for team killing over limit", killer.Name()))
		b.kickReason(killer.Num, "team killing over limit")
		return
	}
	killer.AddWarning(domain.WarnTeamKill, true, b.now())
	b.game.TellPlain(killer.Num, fmt.Sprintf("^1WARNING ^7[^3%d^7]: ^7For team killing you will get kicked", killer.Warnings()))
	if killer.Warnings() == domain.WarnKickLimit && killer.Role < domain.RoleAdmin {
		b.game.Say(fmt.Sprintf("^1ALERT: ^2%s ^7auto-kick from warnings if not cleared", killer.Name()))
	}
}

func (b *Bot) checkSpawnKill(killer, victim *domain.Player) {
	cfg := b.cfg.Bot
	if !(cfg.SpawnkillAutokick || cfg.InstantKillSpawnkiller) || killer.Role >= domain.RoleAdmin {
		return
	}
	if victim.RespawnTime.IsZero() || !victim.RespawnTime.Add(spawnProtection).After(b.now()) {
		return
	}
	if killer.IsBot() {
		b.game.Smite(killer.Num)
		return
	}
	if cfg.InstantKillSpawnkiller {
		b.game.Smite(killer.Num)
		b.game.Say(fmt.Sprintf("^7%s got killed for Spawn Killing", killer.Name()))
	}
	if cfg.SpawnkillAutokick {
		killer.AddWarning(domain.WarnSpawnKill, true, b.now())
		b.kickHighWarns(killer, domain.WarnSpawnKill, "Spawn Killing are not allowed")
	}
}

func (b *Bot) announceMultiKill(killer *domain.Player) {
	if !b.cfg.Bot.ShowMultiKill || killer.Num == domain.BotPlayerNum {
		return
	}
	n := killer.MultiKills()
	if n > 5 {
		n = 5
	}
	if callout, ok := multiKillCallouts[n]; ok {
		b.game.BigText(fmt.Sprintf("^3%s: %s", killer.Name(), callout))
	}
}

func (b *Bot) announceFirstKill(killerName, victimName, cause string) {
	knife := cause == domain.CauseKnife || cause == domain.CauseKnifeThrown
	nade := cause == domain.CauseHEGrenade
	switch {
	case b.firstBlood:
		b.game.BigText(fmt.Sprintf("^1FIRST BLOOD: ^7%s killed by ^3%s", victimName, killerName))
		b.firstBlood = false
		if nade {
			b.firstNadeKill = false
		}
		if knife {
			b.firstKnifeKill = false
		}
	case b.firstNadeKill && nade:
		b.game.BigText(fmt.Sprintf("^3%s: ^7first HE grenade kill", killerName))
		b.firstNadeKill = false
	case b.firstKnifeKill && knife:
		b.game.BigText(fmt.Sprintf("^3%s: ^7first knife kill", killerName))
		b.firstKnifeKill = false
	}
}

func hitStats(p *domain.Player) string {
	return fmt.Sprintf("^1HIT Stats: ^7HS:^3%d ^7BODY:^3%d ^7ARMS:^3%d ^7LEGS:^3%d ^7TOTAL:^3%d",
		p.Headshots(), p.HitZone("body"), p.HitZone("arms"), p.HitZone("legs"), p.AllHits())
}
