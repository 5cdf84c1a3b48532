package controlapi

import (
	"sync"

	"github.com/rs/zerolog"
)

// hub fans a single Event stream out to every connected websocket client,
// generalizing the teacher's websocket.Hub (which indexed clients by user,
// workflow and execution ID for a multi-tenant REST server) to this
// package's simpler one-workflow-per-server shape: every authenticated
// client subscribes to the whole stream, so the index collapses to a
// single registered set guarded by a mutex plus register/unregister
// channels (unbuffered) and a broadcast channel (buffered) processed by one
// goroutine.
type hub struct {
	clients map[*wsClient]bool

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan Event

	log zerolog.Logger
	mu  sync.RWMutex
}

func newHub(log zerolog.Logger) *hub {
	return &hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan Event, 256),
		log:        log,
	}
}

// run processes registrations and broadcasts until stop is closed. Call it
// in its own goroutine.
func (h *hub) run(stop <-chan struct{}) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Debug().Str("client_id", c.id).Int("total_clients", h.count()).Msg("control api: websocket client connected")
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.log.Debug().Str("client_id", c.id).Int("total_clients", h.count()).Msg("control api: websocket client disconnected")
		case ev := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- ev:
				default:
					h.log.Warn().Str("event_level", ev.Level).Msg("control api: client buffer full, dropping event")
				}
			}
			h.mu.RUnlock()
		case <-stop:
			return
		}
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues ev for delivery to every connected client. Non-blocking:
// a full hub buffer drops the event rather than stalling workflow
// execution.
func (h *hub) Broadcast(ev Event) {
	select {
	case h.broadcast <- ev:
	default:
	}
}
