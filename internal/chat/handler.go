package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	DefaultSendBuffer     = 256
	DefaultMaxMessageSize = 4096
)

type HandlerOptions struct {
	SendBuffer     int
	MaxMessageSize int64
	Logger         *slog.Logger
}

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	opts     HandlerOptions
}

func NewHandler(hub *Hub, opts HandlerOptions) *Handler {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are checked by the router middleware in front of /ws.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		opts: opts,
	}
}

// ServeWs upgrades the request and hands the connection to the hub. The
// client still has to send authenticate before anything else is accepted.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.opts.Logger.Warn("websocket upgrade", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := &Client{
		id:             uuid.NewString(),
		hub:            h.hub,
		conn:           conn,
		send:           make(chan []byte, h.opts.SendBuffer),
		logger:         h.opts.Logger,
		maxMessageSize: h.opts.MaxMessageSize,
	}
	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	h.opts.Logger.Debug("connection opened", "conn", client.id, "remote", r.RemoteAddr)

	go client.writePump()
	go client.readPump()
}

// Rooms lists every room with its member and message counts.
func (h *Handler) Rooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.hub.Rooms(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rooms)
}

// Health reports live counts from the hub.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.hub.Stats(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "stopping"})
		return
	}
	json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
		Stats
	}{"ok", stats})
}
