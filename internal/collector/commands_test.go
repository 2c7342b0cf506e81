package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/seanbarr1988/spunkybot/internal/domain"
	"github.com/seanbarr1988/spunkybot/internal/storage"
)

func TestUnknownAndPrivilegedCommands(t *testing.T) {
	tb := newTestBot(t)
	tb.join(0, "Alice", 1)
	tb.join(1, "Bob", 2)

	tb.say(0, "Alice", "!bogus")
	if !tb.srv.toldTo(0, "Unknown command ^3!bogus") {
		t.Errorf("tells = %v", tb.srv.tells)
	}

	tb.say(0, "Alice", "!kick Bob spam")
	if !tb.srv.toldTo(0, "Insufficient privileges to use command ^3!kick") {
		t.Errorf("tells = %v", tb.srv.tells)
	}
	if tb.srv.sentCmd("kick 1") {
		t.Error("guest kicked a player")
	}

	tb.srv.reset()
	tb.say(0, "Alice", "hello !bogus")
	if len(tb.srv.tells) != 0 {
		t.Errorf("plain chat answered: %v", tb.srv.tells)
	}
}

func TestHelpListsGuestCommands(t *testing.T) {
	tb := newTestBot(t)
	tb.join(0, "Alice", 1)
	tb.srv.reset()

	tb.say(0, "Alice", "!help")
	if len(tb.srv.tells) != 1 {
		t.Fatalf("tells = %v", tb.srv.tells)
	}
	msg := tb.srv.tells[0].msg
	if !strings.Contains(msg, "register") || strings.Contains(msg, "kick") {
		t.Errorf("help = %q", msg)
	}

	tb.srv.reset()
	tb.say(0, "Alice", "!help warn")
	if len(tb.srv.tells) != 0 {
		t.Errorf("help for a higher command answered: %v", tb.srv.tells)
	}
}

func TestRegister(t *testing.T) {
	tb := newTestBot(t)
	p := tb.join(0, "Alice", 1)

	tb.say(0, "Alice", "!register")
	if !p.Registered || p.Role != domain.RoleUser {
		t.Fatalf("registered = %v role = %d", p.Registered, p.Role)
	}
	if !tb.srv.toldTo(0, "put in group User") {
		t.Errorf("tells = %v", tb.srv.tells)
	}
	rec, err := tb.store.PlayerByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("PlayerByID: %v", err)
	}
	if !rec.Registered || rec.Role != domain.RoleUser {
		t.Errorf("stored record = %+v", rec)
	}

	tb.say(0, "Alice", "!register")
	if !tb.srv.toldTo(0, "already in a higher level group") {
		t.Errorf("second register not refused, tells = %v", tb.srv.tells)
	}
}

func TestIAmGodOnlyOnce(t *testing.T) {
	tb := newTestBot(t)
	alice := tb.join(0, "Alice", 1)
	bob := tb.join(1, "Bob", 2)

	tb.say(0, "Alice", "!iamgod")
	if alice.Role != domain.RoleHeadAdmin {
		t.Fatalf("role = %d", alice.Role)
	}

	tb.say(1, "Bob", "!iamgod")
	if bob.Role != domain.RoleGuest {
		t.Errorf("second head admin created, role = %d", bob.Role)
	}
	if !tb.srv.toldTo(1, "Unknown command ^3!iamgod") {
		t.Errorf("tells = %v", tb.srv.tells)
	}
}

func TestWarnEscalatesToBan(t *testing.T) {
	tb := newTestBot(t)
	admin := tb.join(0, "Alice", 1)
	admin.Role = domain.RoleAdmin
	bob := tb.join(1, "Bob", 2)

	tb.say(0, "Alice", "!warn Bob spam")
	if bob.Warnings() != 1 {
		t.Fatalf("warnings = %d", bob.Warnings())
	}
	if !tb.srv.said("WARNING ^7[^31^7]: ^3Bob^7: " + domain.ReasonText("spam")) {
		t.Errorf("says = %v", tb.srv.says)
	}

	tb.say(0, "Alice", "!warn Bob spam")
	if bob.Warnings() != 1 || !tb.srv.toldTo(0, "Only one warning per 5 seconds") {
		t.Errorf("warn delay not enforced, warnings = %d", bob.Warnings())
	}

	for i := 0; i < 3; i++ {
		tb.advance(6 * time.Second)
		tb.say(0, "Alice", "!warn Bob spam")
	}
	if bob.Warnings() != 4 {
		t.Errorf("warnings = %d, want 4", bob.Warnings())
	}
	if !tb.srv.said("banned for ^315 minutes") {
		t.Errorf("says = %v", tb.srv.says)
	}
	if !tb.srv.sentCmd("kick 1") {
		t.Errorf("sent = %v", tb.srv.sent)
	}
	if _, err := tb.store.ActiveBan(context.Background(), bob.GUID, "", tb.clock); err != nil {
		t.Errorf("ActiveBan: %v", err)
	}
}

func TestWarnRefusesAdmins(t *testing.T) {
	tb := newTestBot(t)
	alice := tb.join(0, "Alice", 1)
	alice.Role = domain.RoleModerator
	bob := tb.join(1, "Bob", 2)
	bob.Role = domain.RoleAdmin

	tb.say(0, "Alice", "!warn Bob")
	if bob.Warnings() != 0 || !tb.srv.toldTo(0, "You cannot warn an admin") {
		t.Errorf("warnings = %d tells = %v", bob.Warnings(), tb.srv.tells)
	}
}

func TestTempBanAndUnban(t *testing.T) {
	tb := newTestBot(t)
	admin := tb.join(0, "Alice", 1)
	admin.Role = domain.RoleSeniorAdmin
	bob := tb.join(1, "Bob", 2)

	tb.say(0, "Alice", "!tempban Bob 2h spam")
	if !tb.srv.said("^1banned ^7for ^32 hours ^7by Alice") {
		t.Errorf("says = %v", tb.srv.says)
	}
	if !tb.srv.sentCmd("kick 1") {
		t.Errorf("sent = %v", tb.srv.sent)
	}
	ban, err := tb.store.ActiveBan(context.Background(), bob.GUID, "", tb.clock)
	if err != nil {
		t.Fatalf("ActiveBan: %v", err)
	}
	if !strings.Contains(ban.Reason, "ban by Alice") {
		t.Errorf("reason = %q", ban.Reason)
	}
	if !strings.Contains(strings.Join(tb.notifier.kinds(), ","), domain.NoticeBan) {
		t.Errorf("notices = %v", tb.notifier.kinds())
	}

	tb.say(0, "Alice", fmt.Sprintf("!unban @%d", ban.ID))
	if !tb.srv.toldTo(0, "^1Bob ^7unbanned") {
		t.Errorf("tells = %v", tb.srv.tells)
	}
	if _, err := tb.store.ActiveBan(context.Background(), bob.GUID, "", tb.clock); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ban still active: %v", err)
	}

	tb.say(0, "Alice", "!unban @9999")
	if !tb.srv.toldTo(0, "Invalid ID") {
		t.Errorf("tells = %v", tb.srv.tells)
	}
}

func TestTempBanRequiresAuth(t *testing.T) {
	tb := newTestBot(t)
	tb.line(`ClientUserinfo: 0 \ip\10.0.0.1:27960\name\Alice\cl_guid\GUIDA`)
	tb.game.Player(0).Role = domain.RoleAdmin
	tb.join(1, "Bob", 2)

	tb.say(0, "Alice", "!tempban Bob 1h")
	if tb.srv.sentCmd("kick 1") {
		t.Error("unauthenticated admin banned a player")
	}

	tb.authActive = false
	tb.say(0, "Alice", "!tempban Bob 1h")
	if !tb.srv.sentCmd("kick 1") {
		t.Errorf("sent = %v", tb.srv.sent)
	}
}

func TestKickRequiresReason(t *testing.T) {
	tb := newTestBot(t)
	admin := tb.join(0, "Alice", 1)
	admin.Role = domain.RoleAdmin
	tb.join(1, "Bob", 2)

	tb.say(0, "Alice", "!kick Bob")
	if tb.srv.sentCmd("kick 1") {
		t.Error("kick without reason accepted below level 80")
	}

	tb.say(0, "Alice", "!kick Bob stop")
	if !tb.srv.sentCmd("kick 1") {
		t.Errorf("sent = %v", tb.srv.sent)
	}
}

func TestReportCooldown(t *testing.T) {
	tb := newTestBot(t)
	tb.join(0, "Alice", 1)
	bob := tb.join(1, "Bob", 2)
	bob.Role = domain.RoleUser
	carol := tb.join(2, "Carol", 2)
	carol.Role = domain.RoleUser

	tb.say(1, "Bob", "!report Alice aimbot")
	if !tb.srv.toldTo(1, "^3Report: ^2success") {
		t.Fatalf("tells = %v", tb.srv.tells)
	}
	if !strings.Contains(strings.Join(tb.notifier.kinds(), ","), domain.NoticeReport) {
		t.Errorf("notices = %v", tb.notifier.kinds())
	}

	tb.say(2, "Carol", "!report Alice wallhack")
	if !tb.srv.toldTo(2, "already been reported") {
		t.Errorf("duplicate report accepted, tells = %v", tb.srv.tells)
	}

	tb.say(2, "Carol", "!report Bob camping")
	if carol.Warnings() != 1 || !tb.srv.toldTo(2, "on cooldown") {
		t.Errorf("cooldown not applied, warnings = %d", carol.Warnings())
	}
}

func TestForceLocksTeam(t *testing.T) {
	tb := newTestBot(t)
	admin := tb.join(0, "Alice", 1)
	admin.Role = domain.RoleAdmin
	bob := tb.join(1, "Bob", 2)

	tb.say(0, "Alice", "!force Bob red lock")
	if !tb.srv.sentCmd("forceteam 1 red") {
		t.Errorf("sent = %v", tb.srv.sent)
	}
	if bob.TeamLock == nil || *bob.TeamLock != domain.TeamRed {
		t.Fatalf("team lock = %v", bob.TeamLock)
	}

	tb.say(0, "Alice", "!force Bob free")
	if bob.TeamLock != nil {
		t.Errorf("team lock not released")
	}
}

func TestFindPlayerAmbiguous(t *testing.T) {
	tb := newTestBot(t)
	admin := tb.join(0, "Alice", 1)
	admin.Role = domain.RoleAdmin
	tb.join(1, "Bobby", 2)
	tb.join(2, "Bobcat", 2)

	tb.say(0, "Alice", "!kick bob spam")
	if tb.srv.sentCmd("kick 1") || tb.srv.sentCmd("kick 2") {
		t.Error("ambiguous name kicked a player")
	}
	if !tb.srv.toldTo(0, "Players matching bob") {
		t.Errorf("tells = %v", tb.srv.tells)
	}
}

func TestWarnClearDropsBanPoints(t *testing.T) {
	tb := newTestBot(t)
	admin := tb.join(0, "Alice", 1)
	admin.Role = domain.RoleAdmin
	bob := tb.join(1, "Bob", 2)
	ctx := context.Background()

	bob.AddWarning("stop spamming", true, tb.clock)
	if _, err := tb.store.AddBanPoint(ctx, bob.GUID, "spam", time.Hour, tb.clock); err != nil {
		t.Fatalf("AddBanPoint: %v", err)
	}

	tb.say(0, "Alice", "!warnclear Bob")
	if bob.Warnings() != 0 {
		t.Errorf("warnings = %d", bob.Warnings())
	}
	n, err := tb.store.AddBanPoint(ctx, bob.GUID, "spam", time.Hour, tb.clock)
	if err != nil {
		t.Fatalf("AddBanPoint: %v", err)
	}
	if n != 1 {
		t.Errorf("active points = %d, want 1", n)
	}
}

func TestVotesShowsMapTally(t *testing.T) {
	tb := newTestBot(t)
	alice := tb.join(0, "Alice", 1)
	alice.Role = domain.RoleUser
	tb.game.MapName = "ut4_turnpike"
	ctx := context.Background()
	for _, passed := range []bool{true, true, false} {
		if err := tb.store.RecordMapVote(ctx, "ut4_turnpike", passed); err != nil {
			t.Fatalf("RecordMapVote: %v", err)
		}
	}

	tb.say(0, "Alice", "!votes")
	if !tb.srv.toldTo(0, "^3ut4_turnpike ^7nextmap votes: ^22 ^7passed - ^11 ^7failed") {
		t.Errorf("tells = %v", tb.srv.tells)
	}
}

func TestTargetedCommandsRefuseEqualOrHigherRoles(t *testing.T) {
	tests := []struct {
		name      string
		issuer    int
		target    int
		text      string
		forbidden string
	}{
		{"force", domain.RoleAdmin, domain.RoleHeadAdmin, "!force Bob red lock", "forceteam"},
		{"afk", domain.RoleAdmin, domain.RoleAdmin, "!afk Bob", "forceteam"},
		{"mute", domain.RoleModerator, domain.RoleAdmin, "!mute Bob 60", "mute 1"},
		{"demo", domain.RoleAdmin, domain.RoleHeadAdmin, "!demo Bob start", "startserverdemo"},
		{"swap", domain.RoleFullAdmin, domain.RoleSeniorAdmin, "!swap Bob", "forceteam"},
		{"ci", domain.RoleFullAdmin, domain.RoleSeniorAdmin, "!ci Bob", "kick 1"},
		{"warnremove", domain.RoleModerator, domain.RoleAdmin, "!warnremove Bob", ""},
		{"warnclear", domain.RoleAdmin, domain.RoleFullAdmin, "!warnclear Bob", ""},
		{"forgiveclear", domain.RoleFullAdmin, domain.RoleFullAdmin, "!forgiveclear Bob", ""},
		{"kiss", domain.RoleSeniorAdmin, domain.RoleSuperAdmin, "!kiss Bob", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := newTestBot(t)
			alice := tb.join(0, "Alice", 1)
			alice.Role = tt.issuer
			bob := tb.join(1, "Bob", 2)
			bob.Role = tt.target
			bob.AddWarning("stop team killing", true, tb.clock)
			bob.AddTKVictim(5)
			tb.srv.reset()

			tb.say(0, "Alice", tt.text)
			if !tb.srv.toldTo(0, "Insufficient privileges to") {
				t.Errorf("no refusal, tells = %v", tb.srv.tells)
			}
			if tt.forbidden != "" && tb.srv.sentCmd(tt.forbidden) {
				t.Errorf("sent = %v", tb.srv.sent)
			}
			if bob.TeamLock != nil {
				t.Error("team lock applied")
			}
			if bob.Warnings() != 1 || len(bob.TKVictims()) != 1 {
				t.Errorf("target state changed: warnings = %d tk victims = %v", bob.Warnings(), bob.TKVictims())
			}
		})
	}
}

func TestTargetedCommandAllowsSelf(t *testing.T) {
	tb := newTestBot(t)
	alice := tb.join(0, "Alice", 1)
	alice.Role = domain.RoleModerator
	alice.AddWarning("behave yourself", true, tb.clock)

	tb.say(0, "Alice", "!warnremove Alice")
	if alice.Warnings() != 0 {
		t.Errorf("warnings = %d, tells = %v", alice.Warnings(), tb.srv.tells)
	}
}

func TestBanReasonAndBanInfo(t *testing.T) {
	tb := newTestBot(t)
	admin := tb.join(0, "Alice", 1)
	admin.Role = domain.RoleSeniorAdmin
	bob := tb.join(1, "Bob", 2)
	want := domain.ReasonText("spam")

	tb.say(0, "Alice", "!ban Bob spam")
	if !tb.srv.said("^1banned ^7for ^3" + tb.banDays() + " ^7by Alice: ^3" + want) {
		t.Errorf("says = %v", tb.srv.says)
	}
	if !tb.srv.sentCmd("kick 1") {
		t.Errorf("sent = %v", tb.srv.sent)
	}

	tb.notifier.mu.Lock()
	var shown string
	for _, n := range tb.notifier.notices {
		if bn, ok := n.Data.(domain.BanNotice); ok {
			shown = bn.Reason
		}
	}
	tb.notifier.mu.Unlock()
	if shown != want {
		t.Errorf("notice reason = %q, want %q", shown, want)
	}

	ban, err := tb.store.ActiveBan(context.Background(), bob.GUID, "", tb.clock)
	if err != nil {
		t.Fatalf("ActiveBan: %v", err)
	}
	if !strings.HasPrefix(ban.Reason, "spam") {
		t.Errorf("stored reason = %q", ban.Reason)
	}
	expires, err := time.ParseInLocation("2006-01-02 15:04:05", ban.Expires, time.UTC)
	if err != nil || !expires.After(tb.clock) {
		t.Errorf("expires = %q (%v)", ban.Expires, err)
	}

	tb.say(0, "Alice", "!baninfo Bob")
	if !tb.srv.toldTo(0, "^3Bob ^7has an active ban until [^1"+ban.Expires+"^7]") {
		t.Errorf("tells = %v", tb.srv.tells)
	}
}
