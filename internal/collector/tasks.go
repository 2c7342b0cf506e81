package collector

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/seanbarr1988/spunkybot/internal/domain"
	"github.com/seanbarr1988/spunkybot/internal/rcon"
)

const (
	// specGrace is how long a fresh connection may spectate before the
	// full server check warns it.
	specGrace = 30 * time.Second
	lowRatio  = 0.33
	pingPoint = 200 * time.Second
	tkPoint   = 30 * time.Minute
	gtvPrefix = "GTV-"
)

// taskLoop runs the periodic checks every task_frequency seconds.
func (b *Bot) taskLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.TaskInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.runTasks(ctx)
		}
	}
}

// runTasks is one pass of the periodic runner under the shared lock.
func (b *Bot) runTasks(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	// the status endpoint is slow, so it is polled before taking the lock
	authActive := b.auth.Active(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("task panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	now := b.now()
	count := b.game.NumberOfPlayers()
	for _, p := range b.game.Humans() {
		b.checkWarnings(ctx, p, count, now)
	}
	b.checkPing(ctx)
	if !b.game.Type.FFALike() {
		b.autobalance()
	}
	b.authActive = authActive
}

// checkWarnings expires warnings, kicks past the limit and issues the
// spectator and low score warnings.
func (b *Bot) checkWarnings(ctx context.Context, p *domain.Player, count int, now time.Time) {
	cfg := b.cfg.Bot
	if cfg.WarnExpiration > 0 && p.Warnings() > 0 && p.WarningsExpired(b.cfg.WarnTTL(), now) {
		b.clearWarnings(ctx, p)
	}

	if p.Warnings() > domain.WarnKickLimit && p.Role < domain.RoleAdmin {
		b.autoKick(ctx, p)
		return
	}

	if cfg.KickSpecFullServer > 0 && p.Role < domain.RoleModerator {
		if strings.Contains(p.Name(), gtvPrefix) {
			return
		}
		if count > cfg.KickSpecFullServer && p.Team == domain.TeamSpectator && p.TimeJoined.Before(now.Add(-specGrace)) {
			p.AddWarning(domain.WarnSpectator, false, now)
			b.logger.Debug("spectator on full server", "player", p.Name(), "warnings", p.Warnings())
			b.game.TellPlain(p.Num, fmt.Sprintf("^1WARNING ^7[^3%d^7]: You are spectator too long on full server", p.Warnings()))
		} else {
			p.ClearWarning(domain.WarnSpectator)
		}
	}

	if cfg.NoobAutokick && p.Role < domain.RoleRegular && !p.IsBot() {
		ratio := domain.KDRatio(p.Kills(), p.Deaths())
		if p.Kills() > 0 && ratio < lowRatio {
			p.AddWarning(domain.WarnScore, false, now)
			b.logger.Debug("score too low", "player", p.Name(), "ratio", ratio)
			b.game.TellPlain(p.Num, fmt.Sprintf("^1WARNING ^7[^3%d^7]: Your score is too low for this server", p.Warnings()))
		} else {
			p.ClearWarning(domain.WarnScore)
		}
	}

	if p.Warnings() == domain.WarnKickLimit && p.Role < domain.RoleAdmin {
		b.game.Say(fmt.Sprintf("^1ALERT: ^3%s ^7auto-kick from warnings if not cleared", p.Name()))
	}
}

// autoKick removes a player over the warning limit. The kick reason
// follows the most recent warning.
func (b *Bot) autoKick(ctx context.Context, p *domain.Player) {
	last := p.LastWarning()
	var msg, reason string
	switch {
	case strings.Contains(last, "spectator"):
		msg, reason = domain.WarnSpectator, domain.WarnSpectator
	case strings.Contains(last, "ping"):
		msg = fmt.Sprintf("ping too high for this server ^3[^3%dms^3]", p.PingValue)
		reason = domain.WarnPing
		b.addBanPoint(ctx, p, "auto-kick for high ping", pingPoint)
	case strings.Contains(last, "score"):
		msg, reason = domain.WarnScore, domain.WarnScore
	case strings.Contains(last, "team killing"):
		msg, reason = "team killing over limit", "team killing over limit"
		b.addBanPoint(ctx, p, "auto-kick for team killing", tkPoint)
	default:
		msg, reason = "too many warnings", "too many warnings"
	}
	b.logger.Info("auto-kick", "player", p.Name(), "warnings", p.Warnings(), "reason", reason)
	b.game.Say(fmt.Sprintf("^3%s ^7was kicked, %s", p.Name(), msg))
	b.kickReason(p.Num, reason)
}

// checkPing warns every non-admin whose status ping exceeds max_ping.
// 999 means an interrupted connection and is left to !ci.
func (b *Bot) checkPing(ctx context.Context) {
	maxPing := b.cfg.Bot.MaxPing
	if maxPing <= 0 {
		return
	}
	_, rows, err := b.server.Status(ctx)
	if err != nil {
		if !errors.Is(err, rcon.ErrNotLive) {
			b.logger.Warn("reading status", "err", err)
		}
		return
	}
	for _, row := range rows {
		p := b.game.Player(row.Num)
		if p == nil || p.Role >= domain.RoleAdmin {
			continue
		}
		if row.Ping > maxPing && row.Ping < interruptPing {
			p.AddHighPing(row.Ping)
			b.game.TellPlain(row.Num, fmt.Sprintf("^1WARNING ^7[^3%d^7]: Your ping is too high [^4%d^7]. ^3The maximum allowed ping is %d.",
				p.Warnings(), row.Ping, maxPing))
		}
	}
}

// janitorLoop purges expired ban points.
func (b *Bot) janitorLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(janitorEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.purgeBanPoints(ctx)
		}
	}
}

func (b *Bot) purgeBanPoints(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()
	n, err := b.store.PurgeBanPoints(ctx, b.now())
	if err != nil {
		b.logger.Warn("purging ban points", "err", err)
		return
	}
	if n > 0 {
		b.logger.Debug("purged ban points", "count", n)
	}
}
