package scoreboard

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
)

// One stuck client must not hold a match lock forever; each individual
// send gets its own deadline.
const sendTimeout = 5 * time.Second

// Conn is the transport-layer handle for one connected client. The
// websocket lives at the server edge; the scoreboard only sends JSON
// payloads and closes.
type Conn interface {
	Send(ctx context.Context, v any) error
	Close() error
}

// Session is one live connection into a match, classified once at
// admission time.
type Session struct {
	ID    string
	conn  Conn
	admin bool
}

// Admin reports whether the session presented the match's admin token.
func (s *Session) Admin() bool { return s.admin }

type redirectMessage struct {
	Redirect string `json:"redirect"`
}

// Admit registers a connection as a session of the given match. It
// fails with ErrMatchNotFound or ErrMatchEnded; the caller translates
// those into redirects before closing the connection.
func (s *Store) Admit(ctx context.Context, matchID string, conn Conn, token string) (*Session, error) {
	e := s.lookup(matchID)
	if e == nil {
		return nil, ErrMatchNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !s.alive(matchID, e) {
		return nil, ErrMatchNotFound
	}
	if e.state.Done {
		return nil, ErrMatchEnded
	}

	sess := &Session{
		ID:    uuid.NewString()[:8],
		conn:  conn,
		admin: token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(e.static.AdminToken)) == 1,
	}
	e.sessions = append(e.sessions, sess)
	e.state.Viewers = len(e.sessions)

	s.logger.Info("session opened", "match_id", matchID, "session_id", sess.ID, "admin", sess.admin)
	return sess, nil
}

// Evict removes a session from its match and closes the connection.
// Idempotent: evicting an already-removed session only re-closes.
func (s *Store) Evict(ctx context.Context, matchID string, sess *Session) {
	if e := s.lookup(matchID); e != nil {
		e.mu.Lock()
		kept := e.sessions[:0]
		for _, other := range e.sessions {
			if other.conn != sess.conn {
				kept = append(kept, other)
			}
		}
		e.sessions = kept
		e.state.Viewers = len(e.sessions)
		e.mu.Unlock()
		s.logger.Info("session closed", "match_id", matchID, "session_id", sess.ID)
	}

	// Close errors on an already-closed connection are expected here.
	_ = sess.conn.Close()
}

// SendState pushes the current snapshot to a single session, used for
// the initial push right after admission.
func (s *Store) SendState(ctx context.Context, matchID string, sess *Session) error {
	e := s.lookup(matchID)
	if e == nil {
		return ErrMatchNotFound
	}
	e.mu.Lock()
	snap := e.snapshot()
	e.mu.Unlock()
	return s.send(ctx, sess.conn, snap)
}

// Redirect tells a single connection to navigate elsewhere, then
// closes it. Used for admission failures.
func (s *Store) Redirect(ctx context.Context, conn Conn, target string) {
	if err := s.send(ctx, conn, redirectMessage{Redirect: target}); err != nil {
		s.logger.Debug("sending redirect", "error", err)
	}
	_ = conn.Close()
}

func (s *Store) send(ctx context.Context, conn Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return conn.Send(ctx, v)
}

// broadcastState fans the current snapshot out to every session of the
// match in admission order. Per-session send failures are logged and
// skipped; the mutation that produced the snapshot is already
// committed. e.mu must be held.
func (s *Store) broadcastState(ctx context.Context, matchID string, e *matchEntry) {
	snap := e.snapshot()
	for _, sess := range e.sessions {
		if err := s.send(ctx, sess.conn, snap); err != nil {
			s.logger.Warn("broadcasting state", "match_id", matchID, "session_id", sess.ID, "error", err)
		}
	}
}

// broadcastRedirect sends a terminal redirect to every session of the
// match and closes each connection. e.mu must be held, so no session
// can observe a state snapshot after its redirect.
func (s *Store) broadcastRedirect(ctx context.Context, matchID string, e *matchEntry, target string) {
	s.logger.Info("redirecting all sessions", "match_id", matchID, "target", target)
	for _, sess := range e.sessions {
		s.Redirect(ctx, sess.conn, target)
	}
}
