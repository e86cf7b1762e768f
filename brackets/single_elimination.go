package brackets

import (
	"errors"
	"time"

	"github.com/tkluge/tournament-server/models"
)

var (
	ErrNotEnoughTeams           = errors.New("not enough teams to build a knockout bracket (minimum 2)")
	ErrCreationDatesMismatch    = errors.New("creation dates length does not match total bracket slot count")
	ErrUnsupportedTeamsPerMatch = errors.New("teams per match must be 2 or 3")
)

// SlotCounts returns the number of slots per round for a knockout bracket of
// teamCount teams with teamsPerMatch-way matches. Winners of one round feed
// the next, so each round holds ceil(previous/teamsPerMatch) slots down to
// the single final slot.
func SlotCounts(teamCount, teamsPerMatch int) []int {
	var counts []int
	size := teamCount
	for size > 1 {
		slots := ceilDiv(size, teamsPerMatch)
		counts = append(counts, slots)
		size = slots
	}
	return counts
}

// TotalSlots returns the slot count summed over all rounds. Creation dates
// supplied at tournament creation must match this number exactly.
func TotalSlots(teamCount, teamsPerMatch int) int {
	total := 0
	for _, c := range SlotCounts(teamCount, teamsPerMatch) {
		total += c
	}
	return total
}

// Build constructs the full knockout bracket for teamCount finalized teams,
// referenced by their index in registration order (first-come seeding).
//
// Round 1 has ceil(teamCount/teamsPerMatch) slots. Teams are distributed as
// evenly as possible; when the count does not divide, the smaller slots come
// first so the highest seeds land in them. A slot left with a single team is
// a bye: its winner is fixed at build time, no game is ever created for it,
// and the team is advanced into the next round immediately.
//
// Slot i of round r feeds position i%teamsPerMatch of slot i/teamsPerMatch in
// round r+1; unresolved positions carry models.Unset until the source slot
// decides. Build is deterministic: identical inputs yield identical brackets.
func Build(teamCount, teamsPerMatch int, creationDates []time.Time) ([][]models.BracketSlot, error) {
	if teamCount < 2 {
		return nil, ErrNotEnoughTeams
	}
	if teamsPerMatch != 2 && teamsPerMatch != 3 {
		return nil, ErrUnsupportedTeamsPerMatch
	}

	counts := SlotCounts(teamCount, teamsPerMatch)
	total := 0
	for _, c := range counts {
		total += c
	}
	if len(creationDates) != total {
		return nil, ErrCreationDatesMismatch
	}

	bracket := make([][]models.BracketSlot, len(counts))
	dateIdx := 0

	// Round 1: seed teams into slots, smallest slots first.
	firstRound := make([]models.BracketSlot, counts[0])
	base := teamCount / counts[0]
	oversized := teamCount % counts[0]
	team := 0
	for i := range firstRound {
		size := base
		if i >= counts[0]-oversized {
			size = base + 1
		}
		slot := models.BracketSlot{
			Teams:        make([]int, size),
			CreationDate: creationDates[dateIdx],
			GameID:       models.Unset,
			Winner:       models.Unset,
		}
		for j := 0; j < size; j++ {
			slot.Teams[j] = team
			team++
		}
		if size == 1 {
			slot.Winner = slot.Teams[0]
		}
		firstRound[i] = slot
		dateIdx++
	}
	bracket[0] = firstRound

	// Later rounds: one participant position per feeding slot.
	for r := 1; r < len(counts); r++ {
		round := make([]models.BracketSlot, counts[r])
		for i := range round {
			sources := counts[r-1] - i*teamsPerMatch
			if sources > teamsPerMatch {
				sources = teamsPerMatch
			}
			teams := make([]int, sources)
			for j := range teams {
				teams[j] = models.Unset
			}
			round[i] = models.BracketSlot{
				Teams:        teams,
				CreationDate: creationDates[dateIdx],
				GameID:       models.Unset,
				Winner:       models.Unset,
			}
			dateIdx++
		}
		bracket[r] = round
	}

	// Carry bye winners forward so round 2 starts pre-populated.
	Propagate(bracket, teamsPerMatch)

	return bracket, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
