package server

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/rmbolger/vbscore/internal/ratelimit"
	"github.com/rmbolger/vbscore/internal/scoreboard"
)

// CreateMatchRequest documents the creation form fields.
type CreateMatchRequest struct {
	TeamAName    string `formData:"a_name"`
	TeamBName    string `formData:"b_name"`
	TeamAColor   string `formData:"a_color"`
	TeamBColor   string `formData:"b_color"`
	TeamAColorFG string `formData:"a_color_fg"`
	TeamBColorFG string `formData:"b_color_fg"`
	Location     string `formData:"mLoc"`
}

// CreateMatchResponse carries the two links for a new match. Only the
// admin link embeds the admin token.
type CreateMatchResponse struct {
	AdminLink  string `json:"admin_link"`
	ViewerLink string `json:"viewer_link"`
}

// limiterKey identifies the caller for rate limiting: client IP plus
// user agent, so distinct clients behind one NAT don't starve each
// other outright.
func limiterKey(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return ip + ":" + r.UserAgent()
}

func handleCreateMatch(logger *slog.Logger, store *scoreboard.Store, limiter *ratelimit.Limiter, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := limiter.Admit(limiterKey(r))
		if !allowed {
			seconds := int(retryAfter.Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form body")
			return
		}

		matchID, adminToken, err := store.Create(r.Context(), scoreboard.CreateInput{
			TeamAName:    r.PostFormValue("a_name"),
			TeamBName:    r.PostFormValue("b_name"),
			TeamAColor:   r.PostFormValue("a_color"),
			TeamBColor:   r.PostFormValue("b_color"),
			TeamAColorFG: r.PostFormValue("a_color_fg"),
			TeamBColorFG: r.PostFormValue("b_color_fg"),
			Location:     r.PostFormValue("mLoc"),
		})
		if err != nil {
			logger.Error("creating match", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		base := baseURL
		if base == "" {
			scheme := "http"
			if r.TLS != nil {
				scheme = "https"
			}
			base = scheme + "://" + r.Host
		}

		writeJSON(w, http.StatusOK, CreateMatchResponse{
			AdminLink:  base + "/scoreboard/" + matchID + "?token=" + adminToken,
			ViewerLink: base + "/scoreboard/" + matchID,
		})
	}
}
