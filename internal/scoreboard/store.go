package scoreboard

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"html"
	"log/slog"
	"sync"
	"time"
)

const (
	// Matches with no mutation for this long are removed by the sweep.
	matchExpiry = 3 * time.Hour

	maxNameLen     = 25
	maxLocationLen = 35

	defaultColorA = "#FF0000"
	defaultColorB = "#0000FF"
)

// Persister stores the match table across restarts and keeps the
// per-day match log. Implementations must be safe for concurrent use.
type Persister interface {
	SaveMatches(ctx context.Context, recs []MatchRecord) error
	LoadMatches(ctx context.Context) ([]MatchRecord, error)
	LogMatchStart(ctx context.Context, matchID string, static MatchStatic) error
	LogMatchEnd(ctx context.Context, matchID string, expired bool) error
}

// MatchRecord is one match as handed to the Persister.
type MatchRecord struct {
	MatchID string
	Static  MatchStatic
	State   MatchState
}

// matchEntry bundles everything owned by one match. Its mutex
// serializes every structural mutation, session admit/evict, and the
// broadcast that follows a mutation; it is held across the whole
// critical section. The entry is removed from the table only while
// both this mutex and the store's index mutex are held.
type matchEntry struct {
	mu       sync.Mutex
	static   MatchStatic
	state    MatchState
	sessions []*Session
}

// Store owns the table of live matches.
type Store struct {
	logger    *slog.Logger
	persister Persister
	now       func() time.Time

	// mu guards the matches index only, never a whole operation.
	mu      sync.Mutex
	matches map[string]*matchEntry
}

// NewStore creates an empty match store. persister may be nil, in which
// case the store is purely in-memory and nothing is logged to disk.
func NewStore(logger *slog.Logger, persister Persister) *Store {
	return &Store{
		logger:    logger,
		persister: persister,
		now:       time.Now,
		matches:   make(map[string]*matchEntry),
	}
}

// randomToken returns a short URL-safe random identifier.
func randomToken() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes)
}

func sanitizeName(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	return html.EscapeString(truncate(name, maxNameLen))
}

// CreateInput carries the creation form fields. Zero values get
// defaults; everything user-visible is length-capped and HTML-escaped.
type CreateInput struct {
	TeamAName    string
	TeamBName    string
	TeamAColor   string
	TeamBColor   string
	TeamAColorFG string
	TeamBColorFG string
	Location     string
}

// Create builds a new match and returns its identifier and the admin
// token. The token must only ever be disclosed to the creator.
func (s *Store) Create(ctx context.Context, in CreateInput) (matchID, adminToken string, err error) {
	aBG := in.TeamAColor
	if aBG == "" {
		aBG = defaultColorA
	}
	bBG := in.TeamBColor
	if bBG == "" {
		bBG = defaultColorB
	}
	aFG := in.TeamAColorFG
	if aFG == "" {
		aFG = contrastColor(aBG)
	}
	bFG := in.TeamBColorFG
	if bFG == "" {
		bFG = contrastColor(bBG)
	}

	now := s.now()
	adminToken = randomToken()
	entry := &matchEntry{
		static: MatchStatic{
			A:          TeamStatic{Name: sanitizeName(in.TeamAName, "Team A"), ColorBG: aBG, ColorFG: aFG},
			B:          TeamStatic{Name: sanitizeName(in.TeamBName, "Team B"), ColorBG: bBG, ColorFG: bFG},
			Location:   html.EscapeString(truncate(in.Location, maxLocationLen)),
			AdminToken: adminToken,
			StartDate:  now.Format("20060102"),
		},
		state: MatchState{
			History:     [][]int{{}},
			LastUpdated: now.Unix(),
		},
	}

	s.mu.Lock()
	for {
		matchID = randomToken()
		if _, taken := s.matches[matchID]; !taken {
			break
		}
	}
	s.matches[matchID] = entry
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.LogMatchStart(ctx, matchID, entry.static); err != nil {
			s.logger.Warn("writing match log", "match_id", matchID, "error", err)
		}
	}
	s.logger.Info("match created", "match_id", matchID)
	return matchID, adminToken, nil
}

// lookup returns the entry for matchID, or nil.
func (s *Store) lookup(matchID string) *matchEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches[matchID]
}

// alive reports whether e is still the table entry for matchID. Called
// with e.mu held, after the entry was fetched without it: an expiry
// sweep may have deleted the match in between.
func (s *Store) alive(matchID string, e *matchEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches[matchID] == e
}

// Get returns a point-in-time snapshot of a match.
func (s *Store) Get(matchID string) (Snapshot, bool) {
	e := s.lookup(matchID)
	if e == nil {
		return Snapshot{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), true
}

// snapshot builds the broadcast payload. e.mu must be held.
func (e *matchEntry) snapshot() Snapshot {
	return Snapshot{
		A:        e.static.A,
		B:        e.static.B,
		Location: e.static.Location,
		History:  copyHistory(e.state.History),
		Done:     e.state.Done,
		Viewers:  e.state.Viewers,
	}
}

// Info lists all live matches with derived set summaries.
func (s *Store) Info() []MatchInfo {
	s.mu.Lock()
	ids := make([]string, 0, len(s.matches))
	entries := make([]*matchEntry, 0, len(s.matches))
	for id, e := range s.matches {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	s.mu.Unlock()

	infos := make([]MatchInfo, 0, len(entries))
	for i, e := range entries {
		e.mu.Lock()
		scores, setsA, setsB := summarize(e.state.History, e.state.Done)
		info := MatchInfo{
			MatchID:   ids[i],
			Location:  e.static.Location,
			TeamA:     e.static.A.Name,
			TeamB:     e.static.B.Name,
			SetsA:     setsA,
			SetsB:     setsB,
			SetScores: scores,
		}
		e.mu.Unlock()
		infos = append(infos, info)
	}
	return infos
}

// ExpireIdle removes matches whose last mutation predates now by more
// than the expiry window, redirecting any remaining sessions home.
// Returns the number of matches removed.
func (s *Store) ExpireIdle(ctx context.Context) int {
	s.mu.Lock()
	ids := make([]string, 0, len(s.matches))
	entries := make([]*matchEntry, 0, len(s.matches))
	for id, e := range s.matches {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	s.mu.Unlock()

	cutoff := s.now().Add(-matchExpiry).Unix()
	removed := 0
	for i, e := range entries {
		id := ids[i]

		// Taking the entry lock first means an in-flight action on
		// this match finishes before we judge its idle time.
		e.mu.Lock()
		if e.state.LastUpdated > cutoff || !s.alive(id, e) {
			e.mu.Unlock()
			continue
		}

		s.mu.Lock()
		delete(s.matches, id)
		s.mu.Unlock()

		if !e.state.Done && s.persister != nil {
			if err := s.persister.LogMatchEnd(ctx, id, true); err != nil {
				s.logger.Warn("writing match log", "match_id", id, "error", err)
			}
		}
		s.broadcastRedirect(ctx, id, e, "/")
		e.sessions = nil
		e.state.Viewers = 0
		e.mu.Unlock()

		s.logger.Info("match expired", "match_id", id)
		removed++
	}
	return removed
}

// RunExpiry runs the idle sweep on a fixed interval until ctx ends.
func (s *Store) RunExpiry(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.ExpireIdle(ctx)
		}
	}
}

// Persist writes the full match table to the persister. Failures are
// logged, never fatal.
func (s *Store) Persist(ctx context.Context) {
	if s.persister == nil {
		return
	}

	s.mu.Lock()
	recs := make([]MatchRecord, 0, len(s.matches))
	ids := make([]string, 0, len(s.matches))
	entries := make([]*matchEntry, 0, len(s.matches))
	for id, e := range s.matches {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for i, e := range entries {
		e.mu.Lock()
		state := e.state
		state.History = copyHistory(e.state.History)
		recs = append(recs, MatchRecord{MatchID: ids[i], Static: e.static, State: state})
		e.mu.Unlock()
	}

	if err := s.persister.SaveMatches(ctx, recs); err != nil {
		s.logger.Warn("saving matches", "error", err)
		return
	}
	s.logger.Info("matches saved", "count", len(recs))
}

// Restore loads the match table from the persister. Missing or corrupt
// state is logged and the store starts empty. Restored matches begin
// with no sessions.
func (s *Store) Restore(ctx context.Context) {
	if s.persister == nil {
		return
	}

	recs, err := s.persister.LoadMatches(ctx)
	if err != nil {
		s.logger.Warn("loading matches", "error", err)
		return
	}

	s.mu.Lock()
	for _, rec := range recs {
		state := rec.State
		state.Viewers = 0
		if len(state.History) == 0 {
			state.History = [][]int{{}}
		}
		s.matches[rec.MatchID] = &matchEntry{static: rec.Static, state: state}
	}
	s.mu.Unlock()

	s.logger.Info("matches loaded", "count", len(recs))
}
