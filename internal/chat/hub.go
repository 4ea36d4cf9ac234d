package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrHubStopped = errors.New("hub stopped")

// Peer is a live connection as the hub sees it. Close is called exactly once,
// from the hub goroutine, after the peer's last Deliver.
type Peer interface {
	Sink
	ID() string
	Close()
}

// LastSeenRecorder persists the moment a user went offline. It is called off
// the hub goroutine.
type LastSeenRecorder interface {
	RecordLastSeen(ctx context.Context, u User) error
}

type inbound struct {
	connID string
	cmd    Command
}

// Hub is the single owner of the Coordinator. Every register, unregister,
// command and query is serialized through Run.
type Hub struct {
	coord *Coordinator
	peers map[string]Peer

	register   chan Peer
	unregister chan string
	inbound    chan inbound
	queries    chan func(*Coordinator)
	departures chan User
	done       chan struct{}

	recorder LastSeenRecorder
	logger   *slog.Logger
}

type HubOptions struct {
	Options
	Recorder LastSeenRecorder
}

func NewHub(opts HubOptions) *Hub {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	h := &Hub{
		peers:      make(map[string]Peer),
		register:   make(chan Peer),
		unregister: make(chan string),
		inbound:    make(chan inbound, 256),
		queries:    make(chan func(*Coordinator)),
		departures: make(chan User, 256),
		done:       make(chan struct{}),
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}
	opts.OnDeparture = h.queueDeparture
	h.coord = NewCoordinator(opts.Options)
	return h
}

// Run blocks until ctx is cancelled. On the way out every peer is
// disconnected and closed and pending last-seen writes are flushed.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	var g errgroup.Group
	g.Go(func() error {
		defer close(h.departures)
		h.loop(ctx)
		return nil
	})
	g.Go(func() error {
		h.recordDepartures(context.WithoutCancel(ctx))
		return nil
	})
	return g.Wait()
}

func (h *Hub) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case p := <-h.register:
			h.peers[p.ID()] = p
			h.coord.Attach(p.ID(), p)

		case id := <-h.unregister:
			if p, ok := h.peers[id]; ok {
				delete(h.peers, id)
				h.coord.Dispatch(id, Disconnect{})
				p.Close()
			}

		case in := <-h.inbound:
			if _, ok := h.peers[in.connID]; !ok {
				continue
			}
			h.coord.Dispatch(in.connID, in.cmd)

		case q := <-h.queries:
			q(h.coord)
		}
	}
}

func (h *Hub) closeAll() {
	for id, p := range h.peers {
		delete(h.peers, id)
		h.coord.Dispatch(id, Disconnect{})
		p.Close()
	}
	h.logger.Info("hub stopped")
}

func (h *Hub) queueDeparture(u User) {
	if h.recorder == nil {
		return
	}
	select {
	case h.departures <- u:
	default:
		h.logger.Warn("last-seen queue full, dropping", "user", u.ID)
	}
}

func (h *Hub) recordDepartures(ctx context.Context) {
	for u := range h.departures {
		rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := h.recorder.RecordLastSeen(rctx, u); err != nil {
			h.logger.Error("record last seen", "username", u.Username, "error", err)
		}
		cancel()
	}
}

// Register hands a new connection to the hub.
func (h *Hub) Register(p Peer) bool {
	select {
	case h.register <- p:
		return true
	case <-h.done:
		return false
	}
}

// Unregister runs disconnect cleanup for connID and closes its peer.
func (h *Hub) Unregister(connID string) {
	select {
	case h.unregister <- connID:
	case <-h.done:
	}
}

// Submit queues a command from connID.
func (h *Hub) Submit(connID string, cmd Command) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.inbound <- inbound{connID: connID, cmd: cmd}:
		return true
	case <-h.done:
		return false
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Query runs fn on the hub goroutine and waits for it to finish. fn must
// only read state.
func (h *Hub) Query(ctx context.Context, fn func(*Coordinator)) error {
	finished := make(chan struct{})
	q := func(c *Coordinator) {
		defer close(finished)
		fn(c)
	}
	select {
	case h.queries <- q:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
	// fn always runs once the loop has taken it.
	<-finished
	return nil
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := h.Query(ctx, func(c *Coordinator) { s = c.Stats() })
	return s, err
}

func (h *Hub) Rooms(ctx context.Context) ([]RoomSummary, error) {
	var rooms []RoomSummary
	err := h.Query(ctx, func(c *Coordinator) { rooms = c.RoomSummaries() })
	return rooms, err
}

func (h *Hub) OnlineUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := h.Query(ctx, func(c *Coordinator) { users = c.OnlineUsers() })
	return users, err
}

func (h *Hub) FindOnline(ctx context.Context, username string) (User, bool, error) {
	var (
		u     User
		found bool
	)
	err := h.Query(ctx, func(c *Coordinator) { u, found = c.FindOnline(username) })
	return u, found, err
}

func (h *Hub) SearchOnline(ctx context.Context, q string, limit int) ([]User, error) {
	var users []User
	err := h.Query(ctx, func(c *Coordinator) { users = c.SearchOnline(q, limit) })
	return users, err
}
