package chat

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// recordingSink keeps every event it is handed.
type recordingSink struct {
	events []recordedEvent
	full   bool
}

func (s *recordingSink) Deliver(payload []byte) bool {
	if s.full {
		return false
	}
	var ev recordedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		panic(err)
	}
	s.events = append(s.events, ev)
	return true
}

func (s *recordingSink) names() []string {
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Event)
	}
	return out
}

func (s *recordingSink) count(name string) int {
	n := 0
	for _, ev := range s.events {
		if ev.Event == name {
			n++
		}
	}
	return n
}

// last decodes the data of the most recent event called name into v.
func (s *recordingSink) last(t *testing.T, name string, v any) {
	t.Helper()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Event == name {
			require.NoError(t, json.Unmarshal(s.events[i].Data, v))
			return
		}
	}
	t.Fatalf("no %s event among %v", name, s.names())
}

func (s *recordingSink) reset() { s.events = nil }

type wireMessage struct {
	ID          string              `json:"id"`
	SenderID    string              `json:"senderId"`
	SenderName  string              `json:"senderName"`
	Content     string              `json:"content"`
	Kind        string              `json:"kind"`
	RoomID      string              `json:"roomId"`
	RecipientID string              `json:"recipientId"`
	Reactions   map[string][]string `json:"reactions"`
	ReadBy      []string            `json:"readBy"`
}

type wireHistory struct {
	RoomID      string        `json:"roomId"`
	RecipientID string        `json:"recipientId"`
	Messages    []wireMessage `json:"messages"`
}

func newTestCoordinator(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.Now == nil {
		clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		opts.Now = func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}
	}
	return NewCoordinator(opts)
}

// join attaches a recording sink for connID and authenticates it as name.
func join(t *testing.T, c *Coordinator, connID, name string) (*recordingSink, User) {
	t.Helper()
	sink := &recordingSink{}
	c.Attach(connID, sink)
	c.Dispatch(connID, Authenticate{Profile: Profile{Username: name}})
	u, ok := c.users.Lookup(connID)
	require.True(t, ok, "%s should be registered", name)
	return sink, u
}
