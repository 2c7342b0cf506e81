package domain

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Team balancing", func() {
	var (
		console *recordingConsole
		game    *Game
		base    time.Time
	)

	join := func(num int, team Team, minutes int) *Player {
		p := NewPlayer(num, "10.0.0.1", "GUID", "p", base.Add(time.Duration(minutes)*time.Minute))
		p.Team = team
		game.AddPlayer(p)
		return p
	}

	BeforeEach(func() {
		base = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
		console = newRecordingConsole()
		game = NewGame(console, base)
	})

	It("leaves a one player difference alone", func() {
		join(0, TeamRed, 0)
		join(1, TeamRed, 1)
		join(2, TeamBlue, 2)

		Expect(PlanBalance(game.Humans())).To(BeEmpty())
		game.BalanceTeams()
		Expect(console.sent).To(BeEmpty())
		Expect(console.said).To(Equal([]string{"^7Teams are already balanced"}))
	})

	It("moves floor(diff/2) of the newest players from the larger team", func() {
		join(0, TeamRed, 0)
		join(1, TeamRed, 5)
		join(2, TeamRed, 3)
		join(3, TeamRed, 9)
		join(4, TeamRed, 1)

		moves := PlanBalance(game.Humans())
		Expect(moves).To(Equal([]Move{{Num: 3, To: TeamBlue}, {Num: 1, To: TeamBlue}}))

		game.BalanceTeams()
		Expect(console.sent).To(Equal([]string{"forceteam 3 blue", "forceteam 1 blue"}))
		Expect(console.said).To(Equal([]string{"^7Autobalance complete!"}))
	})

	It("skips team locked players", func() {
		join(0, TeamBlue, 0)
		join(1, TeamBlue, 1)
		locked := join(2, TeamBlue, 9)
		blue := TeamBlue
		locked.TeamLock = &blue

		Expect(PlanBalance(game.Humans())).To(Equal([]Move{{Num: 1, To: TeamRed}}))
	})

	It("ignores spectators and the bot", func() {
		join(0, TeamRed, 0)
		join(1, TeamRed, 1)
		join(2, TeamSpectator, 2)
		join(3, TeamSpectator, 3)

		stats := game.Stats()
		Expect(stats.Red).To(Equal(2))
		Expect(stats.Spectator).To(Equal(2))
		Expect(stats.Unbalanced()).To(BeTrue())
		Expect(PlanBalance(game.Humans())).To(Equal([]Move{{Num: 1, To: TeamBlue}}))
	})
})
