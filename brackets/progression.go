package brackets

import "github.com/tkluge/tournament-server/models"

// Propagate pushes every decided slot winner into its participant position in
// the following round and resolves walkovers (slots fed by a single source
// need no game once that source is decided). It never touches a participant
// position whose source slot is still undecided, and it is idempotent.
//
// The returned champion is the winner of the final slot, or models.Unset
// while the tournament is still open.
func Propagate(bracket [][]models.BracketSlot, teamsPerMatch int) int {
	for changed := true; changed; {
		changed = false

		for r := 0; r < len(bracket)-1; r++ {
			for i := range bracket[r] {
				winner := bracket[r][i].Winner
				if winner == models.Unset {
					continue
				}
				target := &bracket[r+1][i/teamsPerMatch]
				pos := i % teamsPerMatch
				if target.Teams[pos] == models.Unset {
					target.Teams[pos] = winner
					changed = true
				}
			}
		}

		for r := 1; r < len(bracket); r++ {
			for i := range bracket[r] {
				slot := &bracket[r][i]
				if slot.Winner == models.Unset && len(slot.Teams) == 1 && slot.Teams[0] != models.Unset {
					slot.Winner = slot.Teams[0]
					changed = true
				}
			}
		}
	}

	final := bracket[len(bracket)-1]
	return final[len(final)-1].Winner
}

// RoundComplete reports whether every slot of the round has a decided winner.
func RoundComplete(round []models.BracketSlot) bool {
	for i := range round {
		if round[i].Winner == models.Unset {
			return false
		}
	}
	return true
}

// SlotReady reports whether a slot can have its game started: every
// participant position resolved, no game yet, and a real match-up (byes are
// decided at build time and never play).
func SlotReady(slot models.BracketSlot) bool {
	if len(slot.Teams) < 2 || slot.GameID != models.Unset || slot.Winner != models.Unset {
		return false
	}
	for _, t := range slot.Teams {
		if t == models.Unset {
			return false
		}
	}
	return true
}

// FindSlotByGame locates the slot holding gameID and returns its round and
// slot indexes; ok is false when no slot references the game.
func FindSlotByGame(bracket [][]models.BracketSlot, gameID int) (round, slot int, ok bool) {
	for r := range bracket {
		for i := range bracket[r] {
			if bracket[r][i].GameID == gameID {
				return r, i, true
			}
		}
	}
	return 0, 0, false
}
