package domain

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"^1Red^7Dragon", "RedDragon"},
		{"Big Boss", "BigBoss"},
		{"abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrst"},
		{"^^1x", "^x"},
	}
	for _, tt := range tests {
		if got := CleanName(tt.in); got != tt.want {
			t.Errorf("CleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewPlayerCountsFirstName(t *testing.T) {
	p := NewPlayer(3, "1.2.3.4", "GUID", "^2Neo", t0)
	if p.Name() != "Neo" {
		t.Errorf("name = %q", p.Name())
	}
	if p.NameChanges() != 1 {
		t.Errorf("name changes = %d, want 1", p.NameChanges())
	}
	if p.Team != TeamSpectator {
		t.Errorf("team = %v, want spectator", p.Team)
	}
	p.SetName("Trinity")
	if p.NameChanges() != 2 {
		t.Errorf("name changes = %d, want 2", p.NameChanges())
	}
}

func TestKillStreakAndDeath(t *testing.T) {
	p := NewPlayer(1, "1.2.3.4", "G", "a", t0)
	for i := 0; i < 3; i++ {
		p.Kill(t0.Add(time.Duration(i) * time.Second))
	}
	if p.Streak() != 3 || p.Kills() != 3 {
		t.Fatalf("streak = %d kills = %d", p.Streak(), p.Kills())
	}
	if p.MultiKills() != 3 {
		t.Errorf("multi kills = %d, want 3", p.MultiKills())
	}

	p.Die()
	if p.Streak() != 0 {
		t.Errorf("streak after death = %d", p.Streak())
	}
	if p.MaxStreak() != 3 || p.Stored.MaxStreak != 3 {
		t.Errorf("max streak = %d stored = %d", p.MaxStreak(), p.Stored.MaxStreak)
	}
	if p.Deaths() != 1 || p.Stored.Deaths != 1 {
		t.Errorf("deaths = %d stored = %d", p.Deaths(), p.Stored.Deaths)
	}
}

func TestMultiKillWindow(t *testing.T) {
	p := NewPlayer(1, "1.2.3.4", "G", "a", t0)
	p.Kill(t0)
	p.Kill(t0.Add(6 * time.Second))
	if p.MultiKills() != 1 {
		t.Errorf("multi kills = %d, want window restart", p.MultiKills())
	}
}

func TestHitsAndHeadshotPercent(t *testing.T) {
	p := NewPlayer(1, "1.2.3.4", "G", "a", t0)
	if !p.Hit(ZoneHead) {
		t.Error("head hit should count as headshot")
	}
	p.Hit("TORSO")
	p.Hit("LEFT_ARM")
	if p.AllHits() != 3 || p.Headshots() != 1 {
		t.Fatalf("hits = %d headshots = %d", p.AllHits(), p.Headshots())
	}
	if p.HeadshotPercent() != 33 {
		t.Errorf("percent = %d, want 33", p.HeadshotPercent())
	}
	if p.HitZone("body") != 1 || p.HitZone("arms") != 1 {
		t.Errorf("zones body=%d arms=%d", p.HitZone("body"), p.HitZone("arms"))
	}
}

func TestWarningsExpire(t *testing.T) {
	p := NewPlayer(1, "1.2.3.4", "G", "a", t0)
	p.AddWarning(WarnTeamKill, true, t0)
	p.AddWarning(WarnTeamKill, true, t0)
	p.AddWarning(WarnSpawnKill, true, t0)

	if got := p.WarningMessages(); len(got) != 2 {
		t.Errorf("distinct messages = %v", got)
	}
	ttl := 240 * time.Second
	if p.WarningsExpired(ttl, t0.Add(time.Minute)) {
		t.Error("warnings expired too early")
	}
	if !p.WarningsExpired(ttl, t0.Add(5*time.Minute)) {
		t.Error("warnings should have expired")
	}
	p.ClearWarnings()
	if p.Warnings() != 0 || !p.LastWarnTime().IsZero() {
		t.Errorf("after clear: %d warnings, time %v", p.Warnings(), p.LastWarnTime())
	}
}

func TestUntimedWarningKeepsClock(t *testing.T) {
	p := NewPlayer(1, "1.2.3.4", "G", "a", t0)
	p.AddWarning(WarnDoNotSpam, false, t0)
	if !p.LastWarnTime().IsZero() {
		t.Error("untimed warning should not stamp the clock")
	}
}

func TestClearLastWarning(t *testing.T) {
	p := NewPlayer(1, "1.2.3.4", "G", "a", t0)
	if p.ClearLastWarning() != "" {
		t.Error("empty player should have nothing to clear")
	}
	p.AddWarning(WarnSpawnKill, true, t0)
	p.AddTKVictim(4)
	p.AddWarning(WarnTeamKill, true, t0)

	if got := p.ClearLastWarning(); got != WarnTeamKill {
		t.Errorf("cleared %q", got)
	}
	if len(p.TKVictims()) != 0 {
		t.Errorf("tk victims = %v, want popped", p.TKVictims())
	}
	if !p.LastWarnTime().Equal(t0.Add(-time.Minute)) {
		t.Errorf("warn time = %v, want rolled back a minute", p.LastWarnTime())
	}
	p.ClearLastWarning()
	if !p.LastWarnTime().IsZero() {
		t.Error("clearing the final warning should reset the clock")
	}
}

func TestForgiveRemovesOneWarningPerKill(t *testing.T) {
	killer := NewPlayer(1, "1.2.3.4", "K", "killer", t0)
	killer.AddTKVictim(2)
	killer.AddWarning(WarnTeamKill, true, t0)
	killer.AddTKVictim(2)
	killer.AddWarning(WarnTeamKill, true, t0)
	killer.AddTKVictim(3)
	killer.AddWarning(WarnTeamKill, true, t0)

	killer.ClearKilledMe(2)
	if killer.Warnings() != 1 {
		t.Errorf("warnings = %d, want 1", killer.Warnings())
	}
	if v := killer.TKVictims(); len(v) != 1 || v[0] != 3 {
		t.Errorf("victims = %v", v)
	}
}

func TestGrudge(t *testing.T) {
	victim := NewPlayer(2, "1.2.3.4", "V", "victim", t0)
	victim.AddKilledMe(1)
	victim.AddKilledMe(1)
	victim.AddKilledMe(5)
	if got := victim.UniqueKilledMe(); len(got) != 2 {
		t.Errorf("unique = %v", got)
	}

	victim.SetGrudge(1)
	if !victim.HasGrudge(1) {
		t.Error("grudge not recorded")
	}
	if got := victim.KilledMe(); len(got) != 1 || got[0] != 5 {
		t.Errorf("killed me = %v, want grudged slot dropped", got)
	}
	victim.ClearGrudge(1)
	if victim.HasGrudge(1) {
		t.Error("grudge not cleared")
	}
}

func TestCaptureTime(t *testing.T) {
	p := NewPlayer(1, "1.2.3.4", "G", "a", t0)
	if p.CaptureTime() != 0 {
		t.Errorf("capture time = %v, want 0", p.CaptureTime())
	}
	p.SetCaptureTime(42.5)
	p.SetCaptureTime(60)
	if p.CaptureTime() != 42.5 {
		t.Errorf("capture time = %v, want fastest", p.CaptureTime())
	}
}

func TestSetGear(t *testing.T) {
	p := NewPlayer(1, "1.2.3.4", "G", "a", t0)
	p.SetGear("FLAA")
	if p.Gear != "FLAAA" {
		t.Errorf("gear = %q", p.Gear)
	}
}

func TestKDRatio(t *testing.T) {
	if KDRatio(5, 0) != 1.0 {
		t.Error("no deaths should be 1.0")
	}
	if KDRatio(10, 3) != 3.33 {
		t.Errorf("ratio = %v", KDRatio(10, 3))
	}
}
