package scoreboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func team(n int) *int { return &n }

func apply(t *testing.T, s *Store, matchID string, act Action) {
	t.Helper()
	if err := s.Apply(context.Background(), matchID, "test", act); err != nil {
		t.Fatalf("apply %q: %v", act.Action, err)
	}
}

func currentSet(t *testing.T, s *Store, matchID string) []int {
	t.Helper()
	snap, ok := s.Get(matchID)
	if !ok {
		t.Fatalf("match %s not found", matchID)
	}
	return snap.History[len(snap.History)-1]
}

func TestPointUndoTally(t *testing.T) {
	tests := []struct {
		name    string
		actions []Action
		wantA   int
		wantB   int
	}{
		{
			name:    "points accumulate per team",
			actions: []Action{{Action: "point", Team: team(0)}, {Action: "point", Team: team(1)}, {Action: "point", Team: team(0)}},
			wantA:   2,
			wantB:   1,
		},
		{
			name:    "undo removes the last event",
			actions: []Action{{Action: "point", Team: team(0)}, {Action: "point", Team: team(1)}, {Action: "undo"}},
			wantA:   1,
			wantB:   0,
		},
		{
			name:    "undo on empty set is a no-op",
			actions: []Action{{Action: "undo"}, {Action: "undo"}, {Action: "point", Team: team(1)}},
			wantA:   0,
			wantB:   1,
		},
		{
			name:    "interleaved points and undos net out",
			actions: []Action{{Action: "point", Team: team(0)}, {Action: "undo"}, {Action: "point", Team: team(0)}, {Action: "point", Team: team(0)}, {Action: "undo"}},
			wantA:   1,
			wantB:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore(t)
			matchID, _ := createMatch(t, s, CreateInput{})

			for _, act := range tt.actions {
				apply(t, s, matchID, act)
			}

			set := currentSet(t, s, matchID)
			if gotA := countPoints(set, 0); gotA != tt.wantA {
				t.Errorf("team A tally = %d, want %d", gotA, tt.wantA)
			}
			if gotB := countPoints(set, 1); gotB != tt.wantB {
				t.Errorf("team B tally = %d, want %d", gotB, tt.wantB)
			}
		})
	}
}

func TestPointCeiling(t *testing.T) {
	s := testStore(t)
	matchID, _ := createMatch(t, s, CreateInput{})

	for i := 0; i < 120; i++ {
		apply(t, s, matchID, Action{Action: "point", Team: team(0)})
	}

	set := currentSet(t, s, matchID)
	if got := countPoints(set, 0); got != 99 {
		t.Errorf("team A tally = %d, want capped at 99", got)
	}

	// The other team is unaffected by the cap.
	apply(t, s, matchID, Action{Action: "point", Team: team(1)})
	set = currentSet(t, s, matchID)
	if got := countPoints(set, 1); got != 1 {
		t.Errorf("team B tally = %d, want 1", got)
	}
}

func TestInvalidActionsIgnored(t *testing.T) {
	s := testStore(t)
	matchID, _ := createMatch(t, s, CreateInput{})
	apply(t, s, matchID, Action{Action: "point", Team: team(0)})

	conn := &fakeConn{}
	if _, err := s.Admit(context.Background(), matchID, conn, ""); err != nil {
		t.Fatalf("admit: %v", err)
	}
	before := len(conn.messages())

	for _, act := range []Action{
		{Action: "reset"},
		{Action: ""},
		{Action: "point"},          // missing team
		{Action: "point", Team: team(2)}, // bad team
	} {
		apply(t, s, matchID, act)
	}

	if got := len(conn.messages()); got != before {
		t.Errorf("got %d broadcasts for ignored actions, want none", got-before)
	}
	set := currentSet(t, s, matchID)
	if got := len(set); got != 1 {
		t.Errorf("set has %d events after ignored actions, want 1", got)
	}
}

func TestFiveSetsForceDone(t *testing.T) {
	s := testStore(t)
	matchID, _ := createMatch(t, s, CreateInput{})

	for i := 0; i < 5; i++ {
		apply(t, s, matchID, Action{Action: "point", Team: team(i % 2)})
		apply(t, s, matchID, Action{Action: "new_set"})
	}

	snap, ok := s.Get(matchID)
	if !ok {
		t.Fatal("match gone after fifth set")
	}
	if !snap.Done {
		t.Error("match not done after five sealed sets")
	}
	if got := len(snap.History); got != 5 {
		t.Errorf("history has %d sets, want 5", got)
	}

	// Further actions on a done match are rejected.
	err := s.Apply(context.Background(), matchID, "test", Action{Action: "point", Team: team(0)})
	if !errors.Is(err, ErrMatchEnded) {
		t.Errorf("apply after done = %v, want ErrMatchEnded", err)
	}
}

func TestEndMatchDropsEmptyTrailingSet(t *testing.T) {
	s := testStore(t)
	matchID, _ := createMatch(t, s, CreateInput{TeamAName: "Reds", TeamBName: "Blues"})

	// Three points for the Reds, one undone, then a new set.
	for i := 0; i < 3; i++ {
		apply(t, s, matchID, Action{Action: "point", Team: team(0)})
	}
	apply(t, s, matchID, Action{Action: "undo"})
	apply(t, s, matchID, Action{Action: "new_set"})

	snap, _ := s.Get(matchID)
	if got := len(snap.History); got != 2 {
		t.Fatalf("history has %d sets, want sealed set plus live empty set", got)
	}
	if got := len(snap.History[1]); got != 0 {
		t.Fatalf("live set has %d events, want 0", got)
	}

	// Ending now must not archive the empty trailing set.
	apply(t, s, matchID, Action{Action: "end_match"})

	token, err := s.EncodeState(matchID)
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	rec, err := DecodeArchive(token)
	if err != nil {
		t.Fatalf("decode archive: %v", err)
	}
	if got := len(rec.History); got != 1 {
		t.Fatalf("archived history has %d sets, want 1", got)
	}
	if a, b := countPoints(rec.History[0], 0), countPoints(rec.History[0], 1); a != 2 || b != 0 {
		t.Errorf("archived set = %d-%d, want 2-0", a, b)
	}
}

func TestEndMatchRedirectsEveryone(t *testing.T) {
	s := testStore(t)
	matchID, _ := createMatch(t, s, CreateInput{})
	apply(t, s, matchID, Action{Action: "point", Team: team(0)})

	conns := make([]*fakeConn, 3)
	for i := range conns {
		conns[i] = &fakeConn{}
		if _, err := s.Admit(context.Background(), matchID, conns[i], ""); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}

	apply(t, s, matchID, Action{Action: "end_match"})

	for i, conn := range conns {
		got := conn.lastRedirect(t)
		want := "/archive?state="
		if len(got) <= len(want) || got[:len(want)] != want {
			t.Errorf("conn %d redirect = %q, want archive URL", i, got)
		}
		if !conn.isClosed() {
			t.Errorf("conn %d not closed after redirect", i)
		}
	}
}

func TestApplyUnknownMatch(t *testing.T) {
	s := testStore(t)
	err := s.Apply(context.Background(), "nope", "test", Action{Action: "point", Team: team(0)})
	if !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("apply = %v, want ErrMatchNotFound", err)
	}
}

func TestConcurrentPointsSerialize(t *testing.T) {
	s := testStore(t)
	matchID, _ := createMatch(t, s, CreateInput{})

	const goroutines = 8
	const perGoroutine = 10

	done := make(chan error, goroutines)
	for g := 0; g < goroutines; g++ {
		go func(teamNo int) {
			var err error
			for i := 0; i < perGoroutine; i++ {
				if e := s.Apply(context.Background(), matchID, fmt.Sprintf("g%d", teamNo), Action{Action: "point", Team: team(teamNo % 2)}); e != nil {
					err = e
				}
			}
			done <- err
		}(g)
	}
	for g := 0; g < goroutines; g++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent apply: %v", err)
		}
	}

	set := currentSet(t, s, matchID)
	if got := len(set); got != goroutines*perGoroutine {
		t.Errorf("set has %d events, want %d", got, goroutines*perGoroutine)
	}
	if a, b := countPoints(set, 0), countPoints(set, 1); a != 40 || b != 40 {
		t.Errorf("tally = %d-%d, want 40-40", a, b)
	}
}
