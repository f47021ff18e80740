// Package scoreboard holds the live match engine: the in-memory match
// table, the point/undo/set state machine, per-match session fan-out,
// and the archive token codec for finished matches.
package scoreboard

import "errors"

var (
	// ErrMatchNotFound is returned when a match ID is unknown. Callers
	// recover by redirecting to the creation page.
	ErrMatchNotFound = errors.New("match not found")

	// ErrMatchEnded is returned when joining a match that has already
	// been archived. Callers recover by redirecting to the archive view.
	ErrMatchEnded = errors.New("match ended")
)

// TeamStatic is one team's display identity, fixed at creation.
type TeamStatic struct {
	Name    string `json:"name"`
	ColorBG string `json:"color_bg"`
	ColorFG string `json:"color_fg"`
}

// MatchStatic is the immutable part of a match.
type MatchStatic struct {
	A          TeamStatic `json:"a"`
	B          TeamStatic `json:"b"`
	Location   string     `json:"desc"`
	AdminToken string     `json:"admin_token"`
	StartDate  string     `json:"start_date"`
}

// MatchState is the mutable part of a match. History is an ordered list
// of sets; each set is the ordered list of point events, 0 for team A
// and 1 for team B. While the match is live the last set is the one in
// progress and may be empty.
type MatchState struct {
	History     [][]int `json:"history"`
	Done        bool    `json:"done"`
	LastUpdated int64   `json:"last_updated"`
	Viewers     int     `json:"viewers"`
}

// Snapshot is the state pushed to every connected client after each
// mutation. It carries the static identity too so a freshly connected
// viewer can render without a second request.
type Snapshot struct {
	A        TeamStatic `json:"a"`
	B        TeamStatic `json:"b"`
	Location string     `json:"desc"`
	History  [][]int    `json:"history"`
	Done     bool       `json:"done"`
	Viewers  int        `json:"viewers"`
}

// SetScore is one set's derived tally.
type SetScore struct {
	A        int  `json:"a"`
	B        int  `json:"b"`
	Complete bool `json:"complete"`
}

// MatchInfo summarizes a live match for the listing endpoint.
type MatchInfo struct {
	MatchID   string     `json:"match_id"`
	Location  string     `json:"desc"`
	TeamA     string     `json:"team_a"`
	TeamB     string     `json:"team_b"`
	SetsA     int        `json:"sets_a"`
	SetsB     int        `json:"sets_b"`
	SetScores []SetScore `json:"set_scores"`
}

func countPoints(set []int, team int) int {
	n := 0
	for _, t := range set {
		if t == team {
			n++
		}
	}
	return n
}

// summarize derives per-set tallies and set-win counts from a point
// event history. Empty sets are skipped. A set counts toward wins only
// when complete: every set before the last one, or any set once the
// match is done. Tied complete sets count for neither team.
func summarize(history [][]int, done bool) (scores []SetScore, setsA, setsB int) {
	for i, set := range history {
		if len(set) == 0 {
			continue
		}
		a := countPoints(set, 0)
		b := countPoints(set, 1)
		complete := i < len(history)-1 || done

		scores = append(scores, SetScore{A: a, B: b, Complete: complete})
		if !complete {
			continue
		}
		switch {
		case a > b:
			setsA++
		case b > a:
			setsB++
		}
	}
	return scores, setsA, setsB
}

// copyHistory deep-copies a history. Inner slices stay non-nil so an
// empty live set serializes as [] rather than null.
func copyHistory(history [][]int) [][]int {
	out := make([][]int, len(history))
	for i, set := range history {
		out[i] = make([]int, len(set))
		copy(out[i], set)
	}
	return out
}
