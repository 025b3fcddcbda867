// Package debugview streams search snapshots and vitality changes to
// loopback websocket clients.
package debugview

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/udisondev/wayfinder/internal/ai"
	"github.com/udisondev/wayfinder/internal/geo"
	"github.com/udisondev/wayfinder/internal/vitality"
)

// Message types.
const (
	TypeSearch   = "search"
	TypeVitality = "vitality"
	TypeTick     = "tick"
)

const clientBuffer = 64

// Message is one event sent to every client as a JSON text frame.
type Message struct {
	Type  string `json:"type"`
	Agent string `json:"agent,omitempty"`
	Tick  uint64 `json:"tick,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// VitalityData is the payload of a vitality message.
type VitalityData struct {
	Current float64 `json:"current"`
	Max     float64 `json:"max"`
}

// Hub fans messages out to connected clients. Publishing never blocks:
// a client whose buffer is full misses the message.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[uint64]chan []byte
	unsubs  []func()
	closed  bool

	nextID  atomic.Uint64
	dropped atomic.Uint64
}

var _ ai.SearchObserver = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only, see WSHandler
		},
		clients: make(map[uint64]chan []byte),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns the number of per-client messages dropped on full buffers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Publish sends msg to every client.
func (h *Hub) Publish(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("encoding debug message", "type", msg.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, out := range h.clients {
		select {
		case out <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

// PublishSearch sends a search snapshot.
func (h *Hub) PublishSearch(agent string, snap *geo.Snapshot) {
	h.Publish(Message{Type: TypeSearch, Agent: agent, Data: snap})
}

// ObserveSearch implements ai.SearchObserver.
func (h *Hub) ObserveSearch(agent string, snap *geo.Snapshot) {
	h.PublishSearch(agent, snap)
}

// WatchVitality publishes every change of m until Close. Call it from the
// goroutine that ticks m.
func (h *Hub) WatchVitality(agent string, m *vitality.Model) {
	unsub := m.Subscribe(func(current, max float64) {
		h.Publish(Message{Type: TypeVitality, Agent: agent, Data: VitalityData{Current: current, Max: max}})
	})

	h.mu.Lock()
	h.unsubs = append(h.unsubs, unsub)
	h.mu.Unlock()
}

// PublishTick announces a completed tick.
func (h *Hub) PublishTick(tick uint64) {
	h.Publish(Message{Type: TypeTick, Tick: tick})
}

// Close disconnects every client and drops the vitality subscriptions.
// Call it once the models are no longer ticked.
func (h *Hub) Close() {
	h.disconnectAll()

	h.mu.Lock()
	unsubs := h.unsubs
	h.unsubs = nil
	h.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// disconnectAll closes every client and refuses new ones.
func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, out := range h.clients {
		close(out)
		delete(h.clients, id)
	}
}

func (h *Hub) join() (uint64, chan []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, false
	}
	id := h.nextID.Add(1)
	out := make(chan []byte, clientBuffer)
	h.clients[id] = out
	return id, out, true
}

func (h *Hub) leave(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if out, ok := h.clients[id]; ok {
		close(out)
		delete(h.clients, id)
	}
}

// WSHandler upgrades loopback requests and streams messages until the
// client goes away or the hub closes.
func (h *Hub) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, out, ok := h.join()
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
			return
		}
		defer h.leave(id)

		slog.Debug("debug client connected", "client", id, "remote", r.RemoteAddr)

		// Reader: clients only send control frames; a read error means they left.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				slog.Debug("debug client disconnected", "client", id)
				return
			case b, ok := <-out:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"), time.Now().Add(time.Second))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

// ListenAndServe serves the websocket endpoint at /ws until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.WSHandler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("debug export listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		h.disconnectAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
