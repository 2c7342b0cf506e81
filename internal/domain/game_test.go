package domain

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Game", func() {
	var (
		console *recordingConsole
		game    *Game
		now     time.Time
	)

	BeforeEach(func() {
		now = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
		console = newRecordingConsole()
		game = NewGame(console, now)
	})

	It("registers the bot but does not count it", func() {
		Expect(game.Bot()).NotTo(BeNil())
		Expect(game.Bot().Name()).To(Equal("World"))
		Expect(game.NumberOfPlayers()).To(Equal(0))
		Expect(game.Humans()).To(BeEmpty())

		game.AddPlayer(NewPlayer(0, "1.1.1.1", "A", "alpha", now))
		Expect(game.NumberOfPlayers()).To(Equal(1))
		game.RemovePlayer(0)
		Expect(game.NumberOfPlayers()).To(Equal(0))
	})

	It("starts as a team game on the newest mod", func() {
		Expect(game.Type).To(Equal(GameTDM))
		Expect(game.Type.FFALike()).To(BeFalse())
		Expect(game.Mod).To(Equal(Mod43))
	})

	It("keeps the last four previous maps", func() {
		for _, m := range []string{"ut4_a", "ut4_b", "ut4_c", "ut4_d", "ut4_e", "ut4_f"} {
			game.SetMap(m)
		}
		Expect(game.LastMaps()).To(Equal([]string{"ut4_b", "ut4_c", "ut4_d", "ut4_e"}))
		Expect(game.MapName).To(Equal("ut4_f"))
		Expect(game.RecentlyPlayed("ut4_a")).To(BeFalse())
	})

	It("wraps around the rotation", func() {
		rotation := []string{"ut4_a", "ut4_b", "ut4_c"}
		Expect(RotationNext(rotation, "ut4_b")).To(Equal("ut4_c"))
		Expect(RotationNext(rotation, "ut4_c")).To(Equal("ut4_a"))
		Expect(RotationNext(rotation, "ut4_x")).To(Equal("ut4_a"))
		Expect(RotationNext(nil, "ut4_x")).To(Equal("ut4_x"))
	})

	Describe("kick", func() {
		It("sends the reason on newer servers", func() {
			game.Kick(4, "too many warnings")
			Expect(console.sent).To(Equal([]string{`kick 4 "too many warnings"`}))
		})

		It("drops the reason on 4.1", func() {
			game.Mod = Mod41
			game.Kick(4, "too many warnings")
			Expect(console.sent).To(Equal([]string{"kick 4"}))
		})
	})

	Describe("player lookup", func() {
		BeforeEach(func() {
			game.AddPlayer(NewPlayer(0, "1.1.1.1", "A", "Alpha", now))
			game.AddPlayer(NewPlayer(1, "1.1.1.2", "B", "AlphaTwo", now))
			p := NewPlayer(7, "1.1.1.3", "C", "Charlie", now)
			p.ID = 55
			p.AuthName = "chaz"
			game.AddPlayer(p)
		})

		It("prefers an exact name over substring matches", func() {
			exact, cands := game.FindPlayers("alpha")
			Expect(exact).NotTo(BeNil())
			Expect(exact.Num).To(Equal(0))
			Expect(cands).To(BeNil())
		})

		It("matches slot, database id and auth name", func() {
			for _, arg := range []string{"7", "@55", "CHAZ"} {
				exact, _ := game.FindPlayers(arg)
				Expect(exact).NotTo(BeNil(), arg)
				Expect(exact.Num).To(Equal(7))
			}
		})

		It("returns all candidates when ambiguous", func() {
			exact, cands := game.FindPlayers("lph")
			Expect(exact).To(BeNil())
			Expect(cands).To(HaveLen(2))
		})

		It("resolves a single substring match", func() {
			exact, _ := game.FindPlayers("arl")
			Expect(exact).NotTo(BeNil())
			Expect(exact.Name()).To(Equal("Charlie"))
		})
	})

	It("finds maps with or without the ut4_ prefix", func() {
		game.AllMaps = []string{"ut4_turnpike", "ut4_casa", "ut4_abbey", "ut4_abbeyctf"}
		m, _ := game.FindMap("casa")
		Expect(m).To(Equal("ut4_casa"))
		m, _ = game.FindMap("ut4_abbey")
		Expect(m).To(Equal("ut4_abbey"))
		m, cands := game.FindMap("abb")
		Expect(m).To(BeEmpty())
		Expect(cands).To(ConsistOf("ut4_abbey", "ut4_abbeyctf"))
	})
})

var _ = Describe("Commands", func() {
	It("resolves names, aliases and prefixes", func() {
		c, ok := LookupCommand("!w")
		Expect(ok).To(BeTrue())
		Expect(c.Kind).To(Equal(CmdWarn))

		c, ok = LookupCommand("@ADMINS")
		Expect(ok).To(BeTrue())
		Expect(c.Kind).To(Equal(CmdAdmins))

		c, ok = LookupCommand("!!hello")
		Expect(ok).To(BeTrue())
		Expect(c.Kind).To(Equal(CmdSay))

		_, ok = LookupCommand("!nope")
		Expect(ok).To(BeFalse())
	})

	It("lists commands up to the caller's tier", func() {
		guest := HelpList(RoleGuest)
		Expect(guest).To(ContainElement("help"))
		Expect(guest).To(ContainElement("stats"))
		Expect(guest).NotTo(ContainElement("warn"))
		Expect(guest).NotTo(ContainElement("iamgod"))

		mod := HelpList(RoleModerator)
		Expect(mod).To(ContainElement("warn"))
		Expect(mod).To(ContainElement("stats"))
		Expect(mod).NotTo(ContainElement("kick"))

		Expect(HelpList(RoleSuperAdmin)).To(ContainElement("ungroup"))
	})

	It("formats usage lines", func() {
		Expect(CommandFor(CmdTime).Syntax()).To(Equal("^7Usage: ^8!time"))
		Expect(CommandFor(CmdWarn).Syntax()).To(Equal("^7Usage: ^8!warn ^7<name> [<reason>]"))
	})
})
