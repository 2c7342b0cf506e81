package collector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/seanbarr1988/spunkybot/internal/domain"
	"github.com/seanbarr1988/spunkybot/internal/storage"
)

const (
	maxReasonLen = 40
	maxTempBan   = 72 * time.Hour
)

// cmdCtx is one chat command invocation.
type cmdCtx struct {
	ctx    context.Context
	cmd    domain.Command
	issuer *domain.Player
	token  string
	// args is the chat text after the command token.
	args string
}

// public reports the @ form, which answers in global chat.
func (c *cmdCtx) public() bool { return strings.HasPrefix(c.token, "@") }

// fields splits the arguments on whitespace.
func (c *cmdCtx) fields() []string { return strings.Fields(c.args) }

// split returns the first argument and the rest of the text.
func (c *cmdCtx) split() (string, string) {
	first, rest, _ := strings.Cut(strings.TrimSpace(c.args), " ")
	return first, strings.TrimSpace(rest)
}

// handleSay routes a chat line: command tokens go to their handler,
// everything else is checked for bad language.
func (b *Bot) handleSay(ctx context.Context, payload string) error {
	head, text, found := strings.Cut(strings.TrimSpace(payload), ": ")
	if !found {
		return fmt.Errorf("%w: chat %q", errMalformed, payload)
	}
	numText, _, _ := strings.Cut(head, " ")
	num, err := strconv.Atoi(numText)
	if err != nil {
		return fmt.Errorf("%w: chat slot %q", errMalformed, numText)
	}
	issuer, err := b.player(num)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	token, rest, _ := strings.Cut(text, " ")

	if strings.HasPrefix(token, "!") || strings.HasPrefix(token, "@") {
		cmd, ok := domain.LookupCommand(token)
		if !ok {
			if strings.HasPrefix(token, "!") && len(token) > 1 {
				b.game.Tell(num, "^7Unknown command ^3"+token)
			}
			return nil
		}
		if issuer.Role < cmd.Level {
			b.game.Tell(num, "^7Insufficient privileges to use command ^3"+token)
			return nil
		}
		c := &cmdCtx{ctx: ctx, cmd: cmd, issuer: issuer, token: token, args: strings.TrimSpace(rest)}
		if strings.HasPrefix(token, "!!") {
			c.args = strings.TrimSpace(text[2:])
		}
		b.logger.Debug("command", "player_num", num, "cmd", cmd.Name, "args", c.args)
		b.runCommand(c)
		return nil
	}

	if b.cfg.Bot.BadWordsAutokick > 0 && issuer.Role < domain.RoleAdmin && domain.ContainsBadWord(text) {
		issuer.AddWarning(domain.WarnBadWords, true, b.now())
		b.kickHighWarns(issuer, domain.WarnBadWords, "Behave, stop using bad language")
	}
	return nil
}

// kickHighWarns kicks a player past the warning limit, otherwise shows
// the warning and the final alert.
func (b *Bot) kickHighWarns(p *domain.Player, reason, text string) {
	if p.Warnings() > domain.WarnKickLimit {
		b.game.Say(fmt.Sprintf("^1%s ^7was kicked, %s", p.Name(), reason))
		b.kickReason(p.Num, reason)
		return
	}
	b.game.Tell(p.Num, fmt.Sprintf("^1WARNING ^7[^3%d^7]: %s", p.Warnings(), text))
	if p.Warnings() == domain.WarnKickLimit {
		b.game.Say(fmt.Sprintf("^1ALERT: ^3%s ^7auto-kick from warnings if not cleared", p.Name()))
	}
}

func (b *Bot) reply(c *cmdCtx, msg string) {
	if c.public() {
		b.game.Say(msg)
		return
	}
	b.game.Tell(c.issuer.Num, msg)
}

func (b *Bot) tell(c *cmdCtx, msg string) { b.game.Tell(c.issuer.Num, msg) }

func (b *Bot) syntax(c *cmdCtx) { b.tell(c, c.cmd.Syntax()) }

// findPlayer resolves a chat argument to one player. On success msg is
// the "found" line, otherwise it explains the failure. An @id that
// matches nobody online is looked up in the store and returned as an
// offline player.
func (b *Bot) findPlayer(ctx context.Context, arg string) (*domain.Player, string, bool) {
	exact, candidates := b.game.FindPlayers(arg)
	if exact != nil {
		return exact, fmt.Sprintf("^7Found player matching %s: ^3%s", arg, slotLabel(exact)), true
	}
	if len(candidates) > 1 {
		labels := make([]string, len(candidates))
		for i, p := range candidates {
			labels[i] = slotLabel(p)
		}
		return nil, fmt.Sprintf("^7Players matching %s: ^3%s", arg, strings.Join(labels, ", ")), false
	}
	if strings.HasPrefix(arg, "@") {
		return b.offlinePlayer(ctx, arg)
	}
	return nil, "^3No players found matching " + arg, false
}

func slotLabel(p *domain.Player) string {
	return fmt.Sprintf("^3%s^7 [^3%d^7]", p.Name(), p.Num)
}

func (b *Bot) offlinePlayer(ctx context.Context, arg string) (*domain.Player, string, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "@"), 10, 64)
	if err != nil || id <= 1 {
		return nil, "^3No Player found", false
	}
	rec, err := b.store.PlayerByID(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			b.logger.Warn("loading offline player", "player_id", id, "err", err)
		}
		return nil, "^3No Player found", false
	}
	p := domain.NewPlayer(domain.OfflinePlayerNum, rec.IP, rec.GUID, rec.Name, b.now())
	applyRecord(p, rec)
	p.Welcome = false
	return p, "", true
}

// findMap resolves a map argument, or returns the failure message.
func (b *Bot) findMap(arg string) (string, string, bool) {
	exact, candidates := b.game.FindMap(arg)
	switch {
	case exact != "":
		return exact, "", true
	case len(candidates) > 1:
		return "", fmt.Sprintf("^7Maps matching %s: ^3%s", arg, strings.Join(candidates, ", ")), false
	}
	return "", "^3Map not found", false
}

// outranks reports whether target holds the issuer's level or more.
// Privileged actions against such targets are refused.
func outranks(target, issuer *domain.Player) bool {
	return target.Role >= issuer.Role
}

// denyTarget refuses an action against another player at or above the
// issuer's level. Issuers may always act on themselves.
func (b *Bot) denyTarget(c *cmdCtx, t *domain.Player, action string) bool {
	if t == c.issuer || !outranks(t, c.issuer) {
		return false
	}
	b.tell(c, "^3Insufficient privileges to "+action+" an admin")
	return true
}

// withSubordinate is withTarget for actions guarded by denyTarget.
func (b *Bot) withSubordinate(c *cmdCtx, action string, fn func(*domain.Player)) {
	b.withTarget(c, func(t *domain.Player) {
		if !b.denyTarget(c, t, action) {
			fn(t)
		}
	})
}

func truncateReason(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxReasonLen {
		s = strings.TrimSpace(cutRunes(s, maxReasonLen))
	}
	return s
}

// cutRunes returns the longest prefix of s of at most n bytes that does
// not split a UTF-8 sequence.
func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// convertTime parses a ban duration such as 3d, 12h, 30m or 45s. A bare
// suffix uses one unit, a missing suffix or zero means one hour, and
// the result is capped at 72 hours.
func convertTime(s string) (time.Duration, string) {
	secs := 3600
	if s != "" {
		unit := s[len(s)-1]
		if size, ok := unitSeconds[unit]; ok {
			digits := strings.TrimRight(s, string(unit))
			if n, err := strconv.Atoi(digits); err == nil && isDigits(digits) {
				secs = n * size
			} else {
				secs = unitFallback[unit]
			}
		}
	}
	switch {
	case secs == 0:
		secs = 3600
	case secs > int(maxTempBan/time.Second):
		secs = int(maxTempBan / time.Second)
	}

	var parts []string
	rest := secs
	for _, u := range durationUnits {
		if n := rest / u.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s%s", n, u.name, plural(n)))
			rest %= u.size
		}
	}
	return time.Duration(secs) * time.Second, strings.Join(parts, " ")
}

var (
	unitSeconds  = map[byte]int{'d': 86400, 'h': 3600, 'm': 60, 's': 1}
	unitFallback = map[byte]int{'d': 86400, 'h': 3600, 'm': 60, 's': 30}
)

var durationUnits = []struct {
	size int
	name string
}{{86400, "day"}, {3600, "hour"}, {60, "minute"}, {1, "second"}}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
