package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

var (
	wsURL     = flag.String("url", "ws://localhost:3001/ws", "websocket endpoint")
	pairCount = flag.Int("pairs", 250, "number of user pairs")
	msgCount  = flag.Int("messages", 20, "messages per user")
	room      = flag.String("room", "general", "room every user talks in")
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

var received atomic.Int64

func main() {
	flag.Parse()
	log.Printf("🔥 STARTING STRESS TEST: %d Users, %d Messages each...", *pairCount*2, *msgCount)
	start := time.Now()

	ctx := context.Background()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(200)

	// User 0a talks to 0b, 1a to 1b, and so on.
	for i := 0; i < *pairCount; i++ {
		pairID := i
		g.Go(func() error {
			return runPair(ctx, pairID)
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("❌ LOAD TEST FAILED: %v", err)
		return
	}
	log.Printf("✅ LOAD TEST COMPLETE in %s, %d events received", time.Since(start).Round(time.Millisecond), received.Load())
}

func runPair(ctx context.Context, pairID int) error {
	a, err := connect(fmt.Sprintf("u_%d_a", pairID))
	if err != nil {
		return err
	}
	defer a.close()
	b, err := connect(fmt.Sprintf("u_%d_b", pairID))
	if err != nil {
		return err
	}
	defer b.close()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return a.spam(b.userID) })
	g.Go(func() error { return b.spam(a.userID) })
	return g.Wait()
}

type session struct {
	name   string
	userID string
	conn   *websocket.Conn
	done   chan struct{}
}

// connect dials, authenticates and waits for the server to hand back the
// user id.
func connect(name string) (*session, error) {
	conn, _, err := websocket.DefaultDialer.Dial(*wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", name, err)
	}
	s := &session{name: name, conn: conn, done: make(chan struct{})}

	if err := s.send("authenticate", map[string]string{"username": name}); err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for s.userID == "" {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			conn.Close()
			return nil, fmt.Errorf("authenticate %s: %w", name, err)
		}
		if f.Event == "authenticated" {
			id, err := authenticatedID(f)
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("authenticate %s: %w", name, err)
			}
			s.userID = id
		}
	}
	conn.SetReadDeadline(time.Time{})

	go s.drain()
	return s, nil
}

func authenticatedID(f frame) (string, error) {
	var u struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(f.Data, &u); err != nil {
		return "", fmt.Errorf("decode authenticated: %w", err)
	}
	if u.ID == "" {
		return "", errors.New("authenticated frame without user id")
	}
	return u.ID, nil
}

func (s *session) drain() {
	defer close(s.done)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
		received.Add(1)
	}
}

func (s *session) spam(peerID string) error {
	if *room != "general" {
		if err := s.send("join_room", *room); err != nil {
			return err
		}
	}
	for i := 0; i < *msgCount; i++ {
		data := map[string]string{"content": fmt.Sprintf("LoadTest Msg %d from %s", i, s.name)}
		if i%2 == 0 {
			data["roomId"] = *room
		} else {
			data["recipientId"] = peerID
		}
		if err := s.send("send_message", data); err != nil {
			return fmt.Errorf("send %s: %w", s.name, err)
		}
		// Small sleep to prevent instant localhost bottleneck (simulate real network)
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("✅ %s finished sending %d msgs", s.name, *msgCount)
	return nil
}

func (s *session) send(event string, data any) error {
	return s.conn.WriteJSON(outFrame{Event: event, Data: data})
}

func (s *session) close() {
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
	}
	s.conn.Close()
}
