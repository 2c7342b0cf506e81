package domain

import "sort"

// Move is one forced team change produced by the balancer.
type Move struct {
	Num int
	To  Team
}

// PlanBalance decides which players to move so that red and blue differ by
// at most one. It moves floor(diff/2) unlocked players from the larger team,
// most recently joined first. A nil result means the teams are balanced.
func PlanBalance(players []*Player) []Move {
	var red, blue []*Player
	for _, p := range players {
		switch p.Team {
		case TeamRed:
			red = append(red, p)
		case TeamBlue:
			blue = append(blue, p)
		}
	}

	from, to := red, TeamBlue
	diff := len(red) - len(blue)
	if diff < 0 {
		from, to, diff = blue, TeamRed, -diff
	}
	if diff <= 1 {
		return nil
	}

	var movable []*Player
	for _, p := range from {
		if p.TeamLock == nil {
			movable = append(movable, p)
		}
	}
	sort.SliceStable(movable, func(i, j int) bool {
		return movable[i].TimeJoined.After(movable[j].TimeJoined)
	})

	n := diff / 2
	if n > len(movable) {
		n = len(movable)
	}
	moves := make([]Move, 0, n)
	for _, p := range movable[:n] {
		moves = append(moves, Move{Num: p.Num, To: to})
	}
	return moves
}

// BalanceTeams applies PlanBalance to the roster and announces the result.
func (g *Game) BalanceTeams() {
	stats := g.Stats()
	if abs(stats.Red-stats.Blue) <= 1 {
		g.Say("^7Teams are already balanced")
		return
	}
	for _, m := range PlanBalance(g.Humans()) {
		g.ForceTeam(m.Num, m.To.String())
	}
	g.Say("^7Autobalance complete!")
}

// Unbalanced reports whether red and blue differ by more than one.
func (s GameStats) Unbalanced() bool { return abs(s.Red-s.Blue) > 1 }

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
