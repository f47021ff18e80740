package server

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/rmbolger/vbscore/internal/ratelimit"
	"github.com/rmbolger/vbscore/internal/scoreboard"
)

func addRoutes(r chi.Router, logger *slog.Logger, store *scoreboard.Store, limiter *ratelimit.Limiter, db *sql.DB, staticDir, baseURL string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("vbscore API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))

	r.Post("/create_match", handleCreateMatch(logger, store, limiter, baseURL))
	r.Get("/scoreboard/{matchID}", handleScoreboard(logger, store, staticDir))
	r.Get("/archive", handleArchive(staticDir))
	r.Get("/api/matches", handleListMatches(store))
	r.Get("/ws/{matchID}", handleStream(logger, store))

	if staticDir != "" {
		if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
			logger.Info("serving static assets", "dir", staticDir)
			r.NotFound(handleStatic(staticDir))
		}
	}
}
