package server

import (
	"net/http"

	"github.com/rmbolger/vbscore/internal/scoreboard"
)

// MatchListResponse wraps the live match listing.
type MatchListResponse struct {
	Matches []scoreboard.MatchInfo `json:"matches"`
}

func handleListMatches(store *scoreboard.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos := store.Info()
		if infos == nil {
			infos = []scoreboard.MatchInfo{}
		}
		writeJSON(w, http.StatusOK, MatchListResponse{Matches: infos})
	}
}
