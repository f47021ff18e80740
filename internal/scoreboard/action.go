package scoreboard

import "context"

// Admin action names accepted on the stream.
const (
	ActionPoint    = "point"
	ActionUndo     = "undo"
	ActionNewSet   = "new_set"
	ActionEndMatch = "end_match"
)

const (
	// A match seals at most this many sets before it is forced done.
	maxSets = 5

	// Per-team score ceiling within one set; further points are ignored.
	maxSetPoints = 99
)

// Action is one admin command read from the stream. Team is only
// meaningful for point actions: 0 scores for team A, 1 for team B.
type Action struct {
	Action string `json:"action"`
	Team   *int   `json:"team,omitempty"`
}

// Apply runs one admin action against a match. Unrecognized or
// malformed actions are logged and dropped without touching state. A
// successful mutation broadcasts the new snapshot to every session;
// a transition to done broadcasts the archive redirect instead, the
// acting session included. The whole operation, broadcast included,
// runs under the match lock.
func (s *Store) Apply(ctx context.Context, matchID, sessionID string, act Action) error {
	e := s.lookup(matchID)
	if e == nil {
		return ErrMatchNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !s.alive(matchID, e) {
		return ErrMatchNotFound
	}
	if e.state.Done {
		return ErrMatchEnded
	}

	switch act.Action {
	case ActionPoint:
		if act.Team == nil || (*act.Team != 0 && *act.Team != 1) {
			s.logger.Warn("invalid team in point action", "match_id", matchID, "session_id", sessionID)
			return nil
		}
		team := *act.Team
		current := e.state.History[len(e.state.History)-1]
		if countPoints(current, team) >= maxSetPoints {
			s.logger.Info("set score ceiling reached", "match_id", matchID, "session_id", sessionID, "team", team)
			return nil
		}
		e.state.History[len(e.state.History)-1] = append(current, team)
		e.state.LastUpdated = s.now().Unix()

	case ActionUndo:
		current := e.state.History[len(e.state.History)-1]
		if len(current) == 0 {
			s.logger.Info("undo ignored, set is empty", "match_id", matchID, "session_id", sessionID)
			return nil
		}
		e.state.History[len(e.state.History)-1] = current[:len(current)-1]
		e.state.LastUpdated = s.now().Unix()

	case ActionNewSet, ActionEndMatch:
		e.state.LastUpdated = s.now().Unix()
		e.state.Done = act.Action == ActionEndMatch || len(e.state.History) >= maxSets
		if !e.state.Done {
			e.state.History = append(e.state.History, []int{})
			s.logger.Info("new set", "match_id", matchID, "session_id", sessionID, "set", len(e.state.History))
			break
		}

		// An empty trailing set (new_set clicked right before ending)
		// is dropped rather than archived.
		if last := e.state.History[len(e.state.History)-1]; len(last) == 0 {
			e.state.History = e.state.History[:len(e.state.History)-1]
		}

		if s.persister != nil {
			if err := s.persister.LogMatchEnd(ctx, matchID, false); err != nil {
				s.logger.Warn("writing match log", "match_id", matchID, "error", err)
			}
		}

		s.logger.Info("match ended", "match_id", matchID, "session_id", sessionID)
		token, err := s.archiveToken(e)
		if err != nil {
			s.logger.Error("encoding archive state", "match_id", matchID, "error", err)
			s.broadcastRedirect(ctx, matchID, e, "/")
			return nil
		}
		s.broadcastRedirect(ctx, matchID, e, "/archive?state="+token)
		return nil

	default:
		s.logger.Warn("unrecognized action", "match_id", matchID, "session_id", sessionID, "action", act.Action)
		return nil
	}

	s.broadcastState(ctx, matchID, e)
	return nil
}
