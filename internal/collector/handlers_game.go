package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/seanbarr1988/spunkybot/internal/domain"
	"github.com/seanbarr1988/spunkybot/internal/storage"
)

// errNoSlot marks events naming a slot the bot never saw connect.
var errNoSlot = errors.New("unknown slot")

// player returns the connected player on a slot.
func (b *Bot) player(num int) (*domain.Player, error) {
	p := b.game.Player(num)
	if p == nil {
		return nil, fmt.Errorf("%w: %d", errNoSlot, num)
	}
	return p, nil
}

// --- Match lifecycle ---

func (b *Bot) handleInitGame(ctx context.Context, payload string) error {
	settings := ParseInitGame(payload)
	b.applySettings(settings)
	b.logger.Info("match start", "map", settings.MapName, "game_type", settings.Type.String(), "mod_version", int(settings.Mod))

	b.server.Clear()
	b.resetStats(ctx, false)
	b.armFirstKills()
	b.matchSaved = false

	b.setCurrentMap(ctx, settings.MapName)
	b.setAllMaps(ctx)
	if b.cfg.Bot.SupportLowGravity {
		b.game.Send(fmt.Sprintf("set g_gravity %d", b.cfg.Bot.Gravity))
	}

	now := b.now()
	b.lastDisconnected = nil
	b.allowNextmapVote = true
	b.failedVoteTimer = now.Add(voteGrace)
	if b.allowCyclevote {
		b.failedCyclemapTimer = now.Add(voteGrace)
	} else {
		// a passed cyclemap vote locks the next one out for most of a map
		b.failedCyclemapTimer = now.Add(cyclemapGrace)
		b.allowCyclevote = true
	}

	b.notice(ctx, domain.NoticeMatchStart, domain.MatchStartNotice{Map: settings.MapName, GameType: settings.Type.String()})
	return nil
}

func (b *Bot) handleInitRound() {
	switch {
	case b.game.Type == domain.GameCTF:
		for _, p := range b.game.Players {
			p.ResetFlagStats()
		}
	case b.game.Type.RoundBased() && b.cfg.Bot.AllowTeamsRoundEnd:
		b.allowCmdTeams = false
	}
}

func (b *Bot) handleExit(ctx context.Context) {
	b.allowCmdTeams = true
	b.resetStats(ctx, !b.statsWithBots)
	b.armFirstKills()
	b.matchSaved = true
	b.notice(ctx, domain.NoticeMatchEnd, domain.MatchEndNotice{Map: b.game.MapName, Players: b.game.NumberOfPlayers()})
}

func (b *Bot) handleShutdown(ctx context.Context) {
	if !b.matchSaved {
		b.resetStats(ctx, !b.statsWithBots)
		b.matchSaved = true
	}
	b.statsWithBots = false
}

// resetStats clears the match counters of every player. With save the
// lifetime counters are written first, otherwise they are reloaded so the
// unsaved match is discarded.
func (b *Bot) resetStats(ctx context.Context, save bool) {
	for _, p := range b.game.Humans() {
		if p.Registered {
			if save {
				b.saveStats(ctx, p)
			} else {
				b.reloadStats(ctx, p)
			}
		}
		p.Reset()
	}
}

func (b *Bot) saveStats(ctx context.Context, p *domain.Player) {
	if err := b.store.SaveStats(ctx, p.GUID, p.Stored, p.Gear); err != nil {
		b.logger.Error("saving stats", "player", p.Name(), "guid", p.GUID, "err", err)
	}
}

func (b *Bot) reloadStats(ctx context.Context, p *domain.Player) {
	st, err := b.store.LoadStats(ctx, p.GUID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.logger.Warn("reloading stats", "player", p.Name(), "err", err)
		}
		return
	}
	p.Stored = st
}

func (b *Bot) armFirstKills() {
	arm := b.cfg.Bot.ShowFirstKill && !b.game.Type.FFALike()
	b.firstBlood, b.firstNadeKill, b.firstKnifeKill = arm, arm, arm
}

// --- Game modes ---

func (b *Bot) handleAssist(payload string) error {
	nums, _, err := headInts(payload, 1)
	if err != nil {
		return err
	}
	p, err := b.player(nums[0])
	if err != nil {
		return err
	}
	p.Assist()
	return nil
}

func (b *Bot) handleFreeze(payload string, freeze bool) error {
	nums, _, err := headInts(payload, 1)
	if err != nil {
		return err
	}
	p, err := b.player(nums[0])
	if err != nil {
		return err
	}
	if freeze {
		p.Freeze()
	} else {
		p.Thawout()
	}
	return nil
}

func (b *Bot) handleFlag(payload string) error {
	fields := strings.Fields(payload)
	if len(fields) < 2 {
		return fmt.Errorf("%w: flag %q", errMalformed, payload)
	}
	num, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	p, err := b.player(num)
	if err != nil {
		return err
	}
	switch fields[1] {
	case "0:":
		p.DropFlag()
	case "1:":
		p.ReturnFlag()
	case "2:":
		p.CaptureFlag()
		caps := p.FlagsCaptured()
		b.game.Send(fmt.Sprintf("^3%s^7 has captured ^3%d ^7flag%s", p.Name(), caps, plural(caps)))
	}
	return nil
}

func (b *Bot) handleFlagCaptureTime(payload string) error {
	num, rest, err := splitSlot(payload)
	if err != nil {
		return err
	}
	ms, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(rest, ":")), 64)
	if err != nil {
		return fmt.Errorf("%w: capture time %q", errMalformed, rest)
	}
	p, err := b.player(num)
	if err != nil {
		return err
	}
	p.SetCaptureTime(math.Round(ms/10) / 100)
	return nil
}

func (b *Bot) handleBomb(payload string) error {
	line := payload
	sep := "by"
	if strings.Contains(line, "Bombholder") {
		sep = "is"
	}
	action, numText, found := strings.Cut(line, sep)
	if !found {
		return fmt.Errorf("%w: bomb %q", errMalformed, line)
	}
	num, err := strconv.Atoi(strings.TrimSpace(strings.TrimRight(strings.TrimSpace(numText), "!")))
	if err != nil {
		return fmt.Errorf("%w: bomb slot %q", errMalformed, numText)
	}
	p, err := b.player(num)
	if err != nil {
		return err
	}
	name := p.Name()

	switch strings.TrimSpace(action) {
	case "Bomb was defused":
		p.DefuseBomb()
		b.game.Send(fmt.Sprintf("^7The ^8BOMB ^7has been defused by ^8%s^7!", name))
		b.roundWinner("Blue")
		if b.cfg.Bot.KillSurvivedOpponents && b.game.Mod > domain.Mod41 {
			b.smiteAlive(domain.TeamRed)
		}
	case "Bomb was planted":
		p.PlantBomb()
		b.game.Send(fmt.Sprintf("^7The ^1BOMB ^7has been planted by ^1%s^7! ^8%s ^7seconds to detonation.", name, b.cfg.Bot.ExplodeTime))
		if b.cfg.Bot.SpamBombPlanted {
			for i := 0; i < 2; i++ {
				b.game.BigText(fmt.Sprintf("^1The ^7BOMB ^1has been planted by ^7%s^1!", name))
				b.game.BigText(fmt.Sprintf("^7The ^1BOMB ^7has been planted by ^1%s^7!", name))
			}
		}
	case "Bomb was tossed":
		p.BombHolder = false
		b.tellAliveMates(p, "^7The ^1BOMB ^7is loose!")
	case "Bomb has been collected":
		p.BombHolder = true
		b.tellAliveMates(p, fmt.Sprintf("^7Help ^1%s ^7to plant the ^1BOMB", name))
	case "Bombholder":
		p.BombHolder = true
	}
	return nil
}

// tellAliveMates messages the living red players other than p. Only the
// red team carries the bomb.
func (b *Bot) tellAliveMates(p *domain.Player, msg string) {
	for _, mate := range b.game.Humans() {
		if mate.Team == domain.TeamRed && mate.Alive && mate != p {
			b.game.Tell(mate.Num, msg)
		}
	}
}

func (b *Bot) smiteAlive(team domain.Team) {
	for _, p := range b.game.Humans() {
		if p.Team == team && p.Alive {
			b.game.Smite(p.Num)
		}
	}
}

// handleBombExploded finishes the round for red. Surviving blue players
// are smitten a moment later, after the explosion has played out.
func (b *Bot) handleBombExploded() {
	if b.cfg.Bot.KillSurvivedOpponents && b.game.Mod > domain.Mod41 {
		b.game.Say("^7Planted?")
		done := b.lifetime().Done()
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			t := time.NewTimer(1300 * time.Millisecond)
			defer t.Stop()
			select {
			case <-done:
				return
			case <-t.C:
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			b.smiteAlive(domain.TeamBlue)
		}()
	}
	b.roundWinner("Red")
}

// --- Teams ---

// roundWinner announces the round result and runs any balancing that was
// deferred to the end of the round.
func (b *Bot) roundWinner(winner string) {
	winner = strings.TrimSpace(winner)
	switch {
	case strings.Contains(winner, "Draw"):
		b.game.Send("^7Draw")
	case winner == "Red":
		b.game.Send("^1Red ^7team wins")
	default:
		b.game.Send("^4" + winner + " ^7team wins")
	}
	b.autobalance()
	if b.tsDoTeamBalance {
		b.allowCmdTeams = true
		b.handleTeamBalance()
		if b.cfg.Bot.AllowTeamsRoundEnd {
			b.allowCmdTeams = false
		}
	}
}

// handleTeamBalance is !teams: balance now when allowed, otherwise defer
// to round end in round based modes.
func (b *Bot) handleTeamBalance() {
	stats := b.game.Stats()
	b.game.Say(fmt.Sprintf("^7Red: ^1%d ^7- Blue: ^4%d ^7- Spectator: ^3%d", stats.Red, stats.Blue, stats.Spectator))
	if !stats.Unbalanced() {
		b.game.Say("^7Teams are already balanced")
		b.tsDoTeamBalance = false
		return
	}
	if b.allowCmdTeams {
		b.game.BalanceTeams()
		b.tsDoTeamBalance = false
		b.logger.Debug("balanced teams on request")
		return
	}
	if b.game.Type.RoundBased() {
		b.tsDoTeamBalance = true
		b.game.Say("^7Teams will be balanced at the end of this round!")
	}
}

func (b *Bot) autobalance() {
	if !b.cfg.Bot.Autobalancer {
		return
	}
	if b.game.Stats().Unbalanced() {
		b.game.BalanceTeams()
		b.logger.Debug("autobalancer balanced teams")
	}
	b.tsDoTeamBalance = false
}

// --- Votes ---

func (b *Bot) handleCallvote(payload string) error {
	if len(payload) < 2 {
		return fmt.Errorf("%w: callvote %q", errMalformed, payload)
	}
	num, err := strconv.Atoi(strings.TrimSpace(payload[:2]))
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	p, err := b.player(num)
	if err != nil {
		return err
	}

	if b.cfg.Bot.RequireAuthVotes && b.authActive && p.AuthName == "" {
		b.game.Veto()
		b.game.Say("^3Players ^7must have ^3[^2AUTH^3]^7 to call votes")
		return nil
	}

	now := b.now()
	var msg string
	nag := false
	nextmap := false
	switch {
	case strings.Contains(payload, "g_nextmap") && b.cfg.Bot.LimitNextmapVotes:
		nextmap = true
		spot := voteMap(payload)
		switch {
		case !b.allowNextmapVote:
			msg = "^3Next Map^7 voting is ^1disabled^7 for the rest of this map"
		case b.failedVoteTimer.After(now):
			b.failedVoteTimer = b.failedVoteTimer.Add(time.Minute)
			mins := minutesLeft(b.failedVoteTimer, now)
			msg = fmt.Sprintf("^3Next Map^7 voting not available for: ^3 %d min%s", mins, plural(mins))
		case b.game.RecentlyPlayed(spot):
			msg = fmt.Sprintf("^3%s ^7has been played recently", spot)
		case spot != "" && strings.Contains(b.game.NextMap, spot):
			msg = fmt.Sprintf("^3%s ^7is already the nextmap", spot)
		case contains(b.cfg.Mapcycle.DisabledMaps, spot):
			msg = fmt.Sprintf("^3%s ^7is not allowed on this server", spot)
		default:
			nag = true
		}
	case strings.Contains(payload, "cyclemap") && b.cfg.Bot.LimitCyclemapVotes:
		switch {
		case !b.allowCyclevote:
			msg = "^3Cyclemap^7 voting is ^1disabled^7 for the rest of this map"
		case b.failedCyclemapTimer.After(now):
			mins := minutesLeft(b.failedCyclemapTimer, now)
			msg = fmt.Sprintf("^7Cyclemap voting is disabled for^3 %d min%s", mins, plural(mins))
		default:
			nag = true
		}
	default:
		return nil
	}

	if !nag {
		b.game.Veto()
		b.game.Say(msg)
		return nil
	}
	for i := 0; i < 3; i++ {
		b.game.BigText("^7Press ^2F1 ^7or ^1F2 ^7to vote!")
	}
	if nextmap {
		if last := b.game.LastMaps(); len(last) > 0 {
			b.game.Say("^3Last Maps:^7 " + strings.Join(last, ", "))
		}
	}
	return nil
}

// voteMap extracts the map name of a g_nextmap vote line.
func voteMap(payload string) string {
	_, after, found := strings.Cut(payload, "g_nextmap")
	if !found {
		return ""
	}
	fields := strings.Fields(after)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Trim(fields[0], `"`))
}

func (b *Bot) handleVotePassed(ctx context.Context, payload string) {
	switch {
	case strings.Contains(payload, "g_nextmap"):
		spot := voteMap(payload)
		b.game.NextMap = spot
		b.game.Say("^3Next Map:^7 " + spot)
		b.allowNextmapVote = false
		b.allowCyclevote = false
		b.recordVote(ctx, spot, true)
	case strings.Contains(payload, "cyclemap"):
		b.allowCyclevote = false
	}
}

func (b *Bot) handleVoteFailed(ctx context.Context, payload string) {
	switch {
	case strings.Contains(payload, "g_nextmap"):
		spot := voteMap(payload)
		if !b.game.RecentlyPlayed(spot) || b.game.NextMap != "" {
			b.failedVoteTimer = b.now().Add(time.Duration(b.cfg.Bot.FailedVoteDelay*5) * time.Second)
		}
		b.recordVote(ctx, spot, false)
	case strings.Contains(payload, "cyclemap"):
		b.allowCyclevote = false
	}
}

func (b *Bot) recordVote(ctx context.Context, spot string, passed bool) {
	if spot == "" {
		return
	}
	if err := b.store.RecordMapVote(ctx, spot, passed); err != nil {
		b.logger.Warn("recording map vote", "map", spot, "err", err)
	}
	b.notice(ctx, domain.NoticeVote, domain.VoteNotice{Map: spot, Passed: passed})
}

// minutesLeft rounds the time until t up to whole minutes.
func minutesLeft(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Minutes()))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
