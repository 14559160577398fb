// Package finishgrid maps player names to finishing ranks using the tokens
// recognized on an end-of-race results screen.
package finishgrid

import (
	"image"
	"strconv"

	"github.com/okian/kartpos/internal/domain/position"
)

// NotAvailable is the sheet cell written for a player that was not found.
const NotAvailable = "NA"

// Entry is one recognized token on the results screen.
type Entry struct {
	Text       string
	Box        image.Rectangle
	Confidence float64
}

// PlayerResult is the outcome for one requested player. Rank is meaningful
// only when Found is true.
type PlayerResult struct {
	Player string         `json:"player"`
	Rank   position.Label `json:"rank,omitempty"`
	Found  bool           `json:"found"`
}

// Cell renders the result as a sheet cell.
func (r PlayerResult) Cell() string {
	if !r.Found {
		return NotAvailable
	}
	return strconv.Itoa(int(r.Rank))
}

// Result holds one PlayerResult per requested player, in request order.
type Result []PlayerResult

// Row renders the result as a sheet row.
func (r Result) Row() []string {
	row := make([]string, len(r))
	for i, pr := range r {
		row[i] = pr.Cell()
	}
	return row
}

// Missing returns the players that were not found.
func (r Result) Missing() []string {
	var out []string
	for _, pr := range r {
		if !pr.Found {
			out = append(out, pr.Player)
		}
	}
	return out
}

// Lookup returns the result for player.
func (r Result) Lookup(player string) (PlayerResult, bool) {
	for _, pr := range r {
		if pr.Player == player {
			return pr, true
		}
	}
	return PlayerResult{}, false
}

// Resolve finds each player's rank as the 1-based index of the first token
// that matches the name exactly. Players without a match are reported as not
// found; resolution never fails.
func Resolve(tokens, players []string) Result {
	first := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		if _, seen := first[tok]; !seen {
			first[tok] = i + 1
		}
	}

	out := make(Result, len(players))
	for i, p := range players {
		out[i] = PlayerResult{Player: p}
		if rank, ok := first[p]; ok {
			out[i].Rank = position.Label(rank)
			out[i].Found = true
		}
	}
	return out
}

// Texts returns the text of each entry in recognition order.
func Texts(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}
