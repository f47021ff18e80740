package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rmbolger/vbscore/internal/scoreboard"
)

// wsConn adapts a websocket connection to the scoreboard transport
// interface.
type wsConn struct {
	conn *websocket.Conn
}

func (c wsConn) Send(ctx context.Context, v any) error {
	return wsjson.Write(ctx, c.conn, v)
}

func (c wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// handleStream is the bidirectional live endpoint. Every client gets
// admitted as a session and receives an initial snapshot; only the
// admin session's action messages reach the state machine. Viewer
// input and malformed payloads are discarded with the connection left
// open.
func handleStream(logger *slog.Logger, store *scoreboard.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := chi.URLParam(r, "matchID")
		token := r.URL.Query().Get("token")

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "match_id", matchID, "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		wc := wsConn{conn}

		sess, err := store.Admit(ctx, matchID, wc, token)
		switch {
		case errors.Is(err, scoreboard.ErrMatchNotFound):
			store.Redirect(ctx, wc, "/")
			return
		case errors.Is(err, scoreboard.ErrMatchEnded):
			archiveToken, encErr := store.EncodeState(matchID)
			if encErr != nil {
				logger.Error("encoding archive state", "match_id", matchID, "error", encErr)
				store.Redirect(ctx, wc, "/")
				return
			}
			store.Redirect(ctx, wc, "/archive?state="+archiveToken)
			return
		case err != nil:
			logger.Error("admitting session", "match_id", matchID, "error", err)
			return
		}
		// The request context is gone once the client disconnects, but
		// the eviction bookkeeping still has to run.
		defer store.Evict(context.WithoutCancel(ctx), matchID, sess)

		if err := store.SendState(ctx, matchID, sess); err != nil {
			logger.Debug("sending initial state", "match_id", matchID, "session_id", sess.ID, "error", err)
			return
		}

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				logger.Debug("websocket read ended", "match_id", matchID, "session_id", sess.ID, "error", err)
				return
			}

			var act scoreboard.Action
			if err := json.Unmarshal(data, &act); err != nil {
				logger.Info("discarding malformed action", "match_id", matchID, "session_id", sess.ID, "error", err)
				continue
			}

			if !sess.Admin() {
				logger.Debug("ignoring action from viewer", "match_id", matchID, "session_id", sess.ID)
				continue
			}

			if err := store.Apply(ctx, matchID, sess.ID, act); err != nil {
				// The match expired or ended underneath this stream.
				if errors.Is(err, scoreboard.ErrMatchNotFound) {
					store.Redirect(ctx, wc, "/")
				}
				return
			}
		}
	}
}
