package server

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/rmbolger/vbscore/internal/scoreboard"
)

// handleScoreboard serves the live scoreboard page. A finished match
// redirects to its archive token; an unknown one redirects to the
// creation page.
func handleScoreboard(logger *slog.Logger, store *scoreboard.Store, staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := chi.URLParam(r, "matchID")

		snap, ok := store.Get(matchID)
		if !ok {
			logger.Warn("scoreboard request for unknown match", "match_id", matchID)
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		if snap.Done {
			token, err := store.EncodeState(matchID)
			if err != nil {
				logger.Error("encoding archive state", "match_id", matchID, "error", err)
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			http.Redirect(w, r, "/archive?state="+token, http.StatusFound)
			return
		}

		http.ServeFile(w, r, filepath.Join(staticDir, "scoreboard.html"))
	}
}

// handleArchive serves the archive page; the result itself travels in
// the state query token and is rendered client-side.
func handleArchive(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(staticDir, "archive.html"))
	}
}
