package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/seanbarr1988/spunkybot/internal/domain"
	"github.com/seanbarr1988/spunkybot/internal/storage"
)

const (
	defaultPort = "27960"
	cheaterPort = "1337"
)

// handleUserinfo creates the player on first sight and keeps GUID, auth
// and gear current on every later userinfo line.
func (b *Bot) handleUserinfo(ctx context.Context, payload string) error {
	num, info, err := splitSlot(payload)
	if err != nil {
		return err
	}
	values := explode(info)

	name := values["name"]
	if name == "" {
		name = "UnnamedPlayer"
	}
	ip, port := splitAddress(values["ip"])

	guid := values["cl_guid"]
	if guid == "" {
		if skill, ok := values["skill"]; ok && skill != "" {
			guid = fmt.Sprintf("BOT%d", num)
		} else {
			guid = "None"
			b.kickReason(num, "Player with invalid GUID kicked")
		}
	}

	p := b.game.Player(num)
	if p == nil {
		p = domain.NewPlayer(num, ip, guid, name, b.now())
		b.game.AddPlayer(p)
		b.hydrate(ctx, p)
		b.admit(ctx, p)
	}

	if p.GUID != guid {
		p.GUID = guid
	}
	p.AuthName = strings.ToLower(values["authl"])
	if gear, ok := values["gear"]; ok {
		p.SetGear(gear)
	}

	switch strings.ToUpper(guid) {
	case "KEMFEW":
		b.kickReason(num, "Cheater GUID detected for "+p.Name()+" -> Player kicked")
	case "WORLD", "UNKNOWN":
		b.kickReason(num, "Invalid GUID detected for "+p.Name()+" -> Player kicked")
	}

	if _, ok := values["challenge"]; ok {
		if port == cheaterPort {
			b.kickReason(num, "Cheater Port detected for "+p.Name()+" -> Player kicked")
		}
		if b.lastDisconnected != nil && b.lastDisconnected.GUID == guid {
			b.lastDisconnected = nil
		}
	}
	return nil
}

// splitAddress separates ip and port, mapping local names to loopback.
func splitAddress(addr string) (ip, port string) {
	if addr == "" {
		addr = "0.0.0.0:0"
	}
	if addr == "loopback" || addr == "localhost" {
		return "127.0.0.1", defaultPort
	}
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defaultPort
	}
	if host == "loopback" || host == "localhost" {
		host = "127.0.0.1"
	}
	return host, p
}

// hydrate loads the stored identity and geolocation of a new player. Bots
// are neither stored nor located.
func (b *Bot) hydrate(ctx context.Context, p *domain.Player) {
	if p.IsBot() {
		return
	}
	rec, err := b.store.SyncPlayer(ctx, p.GUID, p.Name(), p.IP, b.now())
	if err != nil {
		b.logger.Error("syncing player", "player", p.Name(), "guid", p.GUID, "err", err)
	} else {
		applyRecord(p, rec)
	}
	if country, iso, ok := b.geo.Country(p.IP); ok {
		p.Country, p.CountryISO = country, iso
	}
}

func applyRecord(p *domain.Player, rec *storage.PlayerRecord) {
	p.ID = rec.ID
	p.Registered = rec.Registered
	p.Role = rec.Role
	p.FirstSeen = rec.FirstSeen
	p.LastVisit = rec.LastVisit
	p.Aliases = strings.Join(rec.Aliases, ", ")
	if rec.Registered {
		p.Stored = rec.Stats
	}
}

// admit applies the connect time checks in order: active bans, proxy
// addresses and forbidden names. Only one of them kicks.
func (b *Bot) admit(ctx context.Context, p *domain.Player) {
	now := b.now()
	ban, err := b.store.ActiveBan(ctx, p.GUID, p.IP, now)
	switch {
	case err == nil:
		reason, _, _ := strings.Cut(ban.Reason, ",")
		b.kickReason(p.Num, fmt.Sprintf("%s ^1banned ^3(ID @%d):^7 %s", p.Name(), ban.ID, domain.ReasonText(strings.TrimSpace(reason))))
		b.logger.Info("kicked banned player", "player", p.Name(), "ban_id", ban.ID, "expires", ban.Expires)
		return
	case !errors.Is(err, storage.ErrNotFound):
		b.logger.Error("checking ban", "player", p.Name(), "err", err)
	}

	if p.IP != "0.0.0.0" && p.IP != "127.0.0.1" && b.rep.Suspicious(ctx, p.IP) {
		b.kickReason(p.Num, "use of VPN/PROXY is not allowed")
		b.logger.Info("kicked proxy", "player", p.Name(), "ip", p.IP)
		return
	}
	if strings.Contains(strings.ToLower(p.Name()), "unnamedplayer") {
		b.kickReason(p.Num, "name not allowed on this server")
		return
	}

	if b.cfg.Bot.ShowCountryOnConnect && p.Country != "" {
		b.game.Say(fmt.Sprintf("^3%s ^7connected from^3 %s", p.Name(), p.Country))
	}
	b.notice(ctx, domain.NoticePlayerJoin, domain.PlayerNotice{Num: p.Num, Name: p.Name(), Country: p.Country, ID: p.ID})
}

// handleUserinfoChanged tracks team and name changes and enforces team
// locks and naming rules.
func (b *Bot) handleUserinfoChanged(payload string) error {
	num, info, err := splitSlot(payload)
	if err != nil {
		return err
	}
	p, err := b.player(num)
	if err != nil {
		return err
	}
	values := explode(info)

	team := domain.TeamSpectator
	if t, ok := values["t"]; ok {
		if n, err := parseTeamNumber(t); err == nil {
			team = n
		}
	}
	p.Team = team

	if raw, ok := values["n"]; ok {
		if name := domain.CleanName(raw); name != p.Name() {
			p.SetName(raw)
			b.checkName(p)
		}
	}

	if p.TeamLock != nil && *p.TeamLock != p.Team {
		lock := p.TeamLock.String()
		b.game.ForceTeam(p.Num, lock)
		b.game.Tell(p.Num, "^7You are forced to: ^3"+lock)
	}
	return nil
}

func parseTeamNumber(s string) (domain.Team, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return domain.TeamSpectator, err
	}
	if n < int(domain.TeamGreen) || n > int(domain.TeamSpectator) {
		return domain.TeamSpectator, fmt.Errorf("%w: team %d", errMalformed, n)
	}
	return domain.Team(n), nil
}

// checkName kicks for forbidden names, misused clan tags and name spam.
func (b *Bot) checkName(p *domain.Player) {
	lower := strings.ToLower(p.Name())
	if strings.Contains(lower, "unnamedplayer") {
		b.kickReason(p.Num, "name not allowed on this server")
		return
	}
	if p.Role < domain.RoleRegular {
		for _, tag := range b.cfg.Bot.ClanTags {
			if tag != "" && strings.HasPrefix(lower, strings.ToLower(tag)) {
				b.kickReason(p.Num, p.Name()+" [WARNING] Do not use our clan tag")
				return
			}
		}
	}
	if p.NameChanges() > 2 {
		b.kickReason(p.Num, p.Name()+" Name changed too many times")
	}
}

func (b *Bot) handleBegin(payload string) error {
	num, _, err := splitSlot(payload)
	if err != nil {
		return err
	}
	p, err := b.player(num)
	if err != nil {
		return err
	}
	if !p.Welcome {
		return nil
	}
	p.Welcome = false
	if p.IsBot() {
		return nil
	}
	name := p.Name() + "^7"
	if p.AuthName != "" {
		name = fmt.Sprintf("%s^7 [^2%s^7]", p.Name(), p.AuthName)
	}
	if p.Registered {
		b.game.TellPlain(num, fmt.Sprintf("^7[^3%s^7] [^3@%d^7] Welcome back %s", domain.RoleName(p.Role), p.ID, name))
	} else {
		b.game.Tell(num, fmt.Sprintf("^7Welcome %s, you are player number ^3#%d^7. Type ^8!register ^7to save your stats", name, p.ID))
	}
	return nil
}

func (b *Bot) handleDisconnect(ctx context.Context, payload string) error {
	num, _, err := splitSlot(payload)
	if err != nil {
		return err
	}
	p, err := b.player(num)
	if err != nil {
		return err
	}
	if p.Registered && !b.statsWithBots {
		b.saveStats(ctx, p)
	}
	p.Reset()
	b.lastDisconnected = p
	b.game.RemovePlayer(num)
	for _, other := range b.game.Players {
		other.ClearTK(num)
		other.ClearGrudge(num)
	}
	b.logger.Debug("player disconnected", "slot", num, "player", p.Name())
	b.notice(ctx, domain.NoticePlayerLeave, domain.PlayerNotice{Num: num, Name: p.Name(), Country: p.Country, ID: p.ID})
	return nil
}

func (b *Bot) handleSpawn(payload string) error {
	num, _, err := splitSlot(payload)
	if err != nil {
		return err
	}
	p, err := b.player(num)
	if err != nil {
		return err
	}
	p.SetAlive(true, b.now())
	if p.IsBot() {
		b.statsWithBots = true
	}
	return nil
}
