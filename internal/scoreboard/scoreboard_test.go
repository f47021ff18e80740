package scoreboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func createMatch(t *testing.T, s *Store, in CreateInput) (matchID, adminToken string) {
	t.Helper()
	matchID, adminToken, err := s.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	return matchID, adminToken
}

// fakeConn records everything sent to it, standing in for a websocket.
type fakeConn struct {
	mu       sync.Mutex
	sent     []any
	closed   bool
	failSend bool
}

func (c *fakeConn) Send(ctx context.Context, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("send failed")
	}
	c.sent = append(c.sent, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.sent...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// lastSnapshot returns the most recent state snapshot sent to c.
func (c *fakeConn) lastSnapshot(t *testing.T) Snapshot {
	t.Helper()
	msgs := c.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if snap, ok := msgs[i].(Snapshot); ok {
			return snap
		}
	}
	t.Fatal("no snapshot received")
	return Snapshot{}
}

// lastRedirect returns the most recent redirect sent to c.
func (c *fakeConn) lastRedirect(t *testing.T) string {
	t.Helper()
	msgs := c.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msg, ok := msgs[i].(redirectMessage); ok {
			return msg.Redirect
		}
	}
	t.Fatal("no redirect received")
	return ""
}
