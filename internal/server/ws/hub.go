// Package ws streams aggregation events to dashboard clients. The hub
// bridges the Redis signal bus onto WebSocket connections: each connected
// session picks the event channels it cares about and receives the matching
// JSON frames as they are published.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxFrameSize   = 4096
	sessionBufSize = 256
)

// busChannels are the signal-bus channels the hub relays: per-cycle stats,
// arbitrage openings, and significant price moves.
var busChannels = []string{"ch:cycle", "ch:arb", "ch:move"}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks happen in the CORS layer; the hub accepts the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// controlFrame is the JSON envelope a session sends to manage its channel
// subscriptions:
//
//	{"action":"subscribe","channels":["ch:arb"]}
type controlFrame struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

// session is one connected WebSocket client and its subscription set.
type session struct {
	hub  *Hub
	conn *websocket.Conn
	out  chan []byte
	subs map[string]bool
	mu   sync.RWMutex
}

// event pairs a bus payload with its source channel for routing.
type event struct {
	channel string
	data    []byte
}

// Config carries the runtime metadata included in the status frame pushed
// to every new session.
type Config struct {
	Mode      string
	StartedAt time.Time
}

// Hub owns the session set and fans bus events out to subscribed sessions.
type Hub struct {
	bus      domain.SignalBus
	logger   *slog.Logger
	sessions map[*session]struct{}
	events   chan event
	attach   chan *session
	detach   chan *session
	done     chan struct{}
	mu       sync.RWMutex

	mode      string
	startedAt time.Time
}

func NewHub(bus domain.SignalBus, logger *slog.Logger, cfg Config) *Hub {
	mode := strings.TrimSpace(strings.ToLower(cfg.Mode))
	if mode == "" {
		mode = "unknown"
	}
	started := cfg.StartedAt
	if started.IsZero() {
		started = time.Now().UTC()
	}

	return &Hub{
		bus:       bus,
		logger:    logger.With(slog.String("component", "ws")),
		sessions:  make(map[*session]struct{}),
		events:    make(chan event, 256),
		attach:    make(chan *session),
		detach:    make(chan *session),
		done:      make(chan struct{}),
		mode:      mode,
		startedAt: started,
	}
}

// Run drives the hub until the context is cancelled: it pulls events off the
// bus subscriptions and routes them to sessions subscribed to the source
// channel. Call it in its own goroutine.
func (h *Hub) Run(ctx context.Context) error {
	for _, ch := range busChannels {
		go h.relay(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for s := range h.sessions {
				close(s.out)
				delete(h.sessions, s)
			}
			h.mu.Unlock()
			return ctx.Err()

		case s := <-h.attach:
			h.mu.Lock()
			h.sessions[s] = struct{}{}
			n := len(h.sessions)
			h.mu.Unlock()
			h.logger.Info("client connected", slog.Int("sessions", n))

		case s := <-h.detach:
			h.mu.Lock()
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				close(s.out)
			}
			n := len(h.sessions)
			h.mu.Unlock()
			h.logger.Info("client disconnected", slog.Int("sessions", n))

		case ev := <-h.events:
			h.mu.RLock()
			for s := range h.sessions {
				if !s.wants(ev.channel) {
					continue
				}
				select {
				case s.out <- ev.data:
				default:
					// Backpressure: the session is not draining its
					// buffer, so the frame is dropped rather than
					// stalling the fan-out.
					h.logger.Warn("dropping frame for slow client",
						slog.String("channel", ev.channel))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// relay forwards one bus channel into the hub's event stream.
func (h *Hub) relay(ctx context.Context, channel string) {
	msgs, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("bus subscribe failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.Info("relaying channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgs:
			if !ok {
				h.logger.Warn("bus subscription closed", slog.String("channel", channel))
				return
			}
			h.events <- event{channel: channel, data: data}
		}
	}
}

// HandleWS upgrades the request and attaches the new session, subscribed to
// every bus channel until it narrows the set with a control frame.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := &session{
		hub:  h,
		conn: conn,
		out:  make(chan []byte, sessionBufSize),
		subs: make(map[string]bool, len(busChannels)),
	}
	for _, ch := range busChannels {
		s.subs[ch] = true
	}

	// An upgrade that races hub shutdown must not block on the attach
	// channel once Run has returned.
	select {
	case h.attach <- s:
	case <-h.done:
		conn.Close()
		return
	}
	s.pushStatus()

	go s.writeLoop()
	go s.readLoop()
}

// readLoop consumes control frames and keeps the pong deadline fresh. Any
// read error tears the session down.
func (s *session) readLoop() {
	defer func() {
		select {
		case s.hub.detach <- s:
		case <-s.hub.done:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("unexpected close", slog.String("error", err.Error()))
			}
			return
		}

		var ctl controlFrame
		if err := json.Unmarshal(raw, &ctl); err == nil && ctl.Action != "" {
			s.apply(ctl)
		}
	}
}

func (s *session) apply(ctl controlFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ctl.Action {
	case "subscribe":
		for _, ch := range ctl.Channels {
			s.subs[ch] = true
		}
	case "unsubscribe":
		for _, ch := range ctl.Channels {
			delete(s.subs, ch)
		}
	}
}

// wants reports whether the session subscribed to the channel, either
// exactly or through a trailing-star pattern ("ch:*" matches "ch:arb").
func (s *session) wants(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.subs[channel] {
		return true
	}
	for sub := range s.subs {
		if strings.HasSuffix(sub, "*") && strings.HasPrefix(channel, sub[:len(sub)-1]) {
			return true
		}
	}
	return false
}

// pushStatus queues a status frame so clients can mark the connection
// healthy before any cycle events arrive.
func (s *session) pushStatus() {
	uptime := int64(time.Since(s.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	frame, err := json.Marshal(map[string]any{
		"type": "service_status",
		"payload": map[string]any{
			"mode":           s.hub.mode,
			"ws_connected":   true,
			"uptime_seconds": uptime,
			"channels":       busChannels,
		},
	})
	if err != nil {
		return
	}

	select {
	case s.out <- frame:
	default:
	}
}

// writeLoop drains the outbound buffer onto the wire as JSON text frames
// and pings on an interval to keep intermediaries from closing the socket.
func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
