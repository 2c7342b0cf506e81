package collector

import (
	"context"
	"strings"
	"time"

	"github.com/seanbarr1988/spunkybot/internal/domain"
	"github.com/seanbarr1988/spunkybot/internal/storage"
)

// permanentBan is the duration !permban writes, twenty years.
const permanentBan = 630720000 * time.Second

// ban writes or extends the ban of p and publishes it. admin is nil for
// bans the bot issues on its own. It reports whether the stored expiry
// moved later.
func (b *Bot) ban(ctx context.Context, p *domain.Player, d time.Duration, reason string, admin *domain.Player) bool {
	comment := domain.ReasonText(reason)
	now := b.now()

	notice := domain.BanNotice{
		Player:     p.Name(),
		PlayerID:   p.ID,
		GUID:       p.GUID,
		IP:         p.IP,
		Country:    p.Country,
		CountryISO: p.CountryISO,
		Duration:   int64(d / time.Second),
		Expires:    now.Add(d).Format("2006-01-02 15:04:05"),
		Permanent:  d >= permanentBan,
		Reason:     comment,
	}
	if p.Aliases != "" {
		notice.Aliases = strings.Split(p.Aliases, ", ")
	}
	if admin != nil {
		reason = reason + ", ban by " + admin.Name()
		notice.Admin = admin.Name()
		notice.AdminAuth = admin.AuthName
	}

	extended, err := b.store.AddBan(ctx, storage.BanRequest{
		PlayerID: p.ID,
		GUID:     p.GUID,
		Name:     p.Name(),
		IP:       p.IP,
		Duration: d,
		Reason:   reason,
	}, now)
	if err != nil {
		b.logger.Error("writing ban", "player", p.Name(), "guid", p.GUID, "err", err)
		return false
	}
	notice.Extended = extended
	b.logger.Info("player banned", "player", p.Name(), "guid", p.GUID, "duration", d, "reason", reason, "extended", extended)
	b.notice(ctx, domain.NoticeBan, notice)
	return extended
}

// addBanPoint records a ban point. A second unexpired point bans for three
// times the point duration, whose length in minutes is returned. Zero
// means no ban.
func (b *Bot) addBanPoint(ctx context.Context, p *domain.Player, pointType string, d time.Duration) int {
	count, err := b.store.AddBanPoint(ctx, p.GUID, pointType, d, b.now())
	if err != nil {
		b.logger.Error("adding ban point", "player", p.Name(), "err", err)
		return 0
	}
	if count <= 1 {
		return 0
	}
	banFor := d * 3
	b.ban(ctx, p, banFor, pointType, nil)
	return int(banFor / time.Minute)
}

// clearWarnings resets the warning state of p and drops its unexpired ban
// points.
func (b *Bot) clearWarnings(ctx context.Context, p *domain.Player) {
	p.ClearWarnings()
	if p.GUID == "" {
		return
	}
	if err := b.store.ClearBanPoints(ctx, p.GUID, b.now()); err != nil {
		b.logger.Warn("clearing ban points", "player", p.Name(), "err", err)
	}
}
