package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingPeriod   = (pongTimeout * 9) / 10
)

// hub fans view changes out to websocket viewers. Each viewer gets the full state on
// connect and again after every change; a slow viewer skips intermediate states.
type hub struct {
	view     View
	upgrader websocket.Upgrader

	mu      sync.Mutex
	viewers map[*viewer]struct{}
}

type viewer struct {
	conn    *websocket.Conn
	updates chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (v *viewer) close() {
	v.once.Do(func() {
		close(v.done)
	})
}

func newHub(view View) *hub {
	return &hub{
		view: view,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		viewers: make(map[*viewer]struct{}),
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] Websocket upgrade failed: %v", err)
		return
	}

	v := &viewer{
		conn:    conn,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	// Initial state
	v.updates <- struct{}{}

	h.mu.Lock()
	h.viewers[v] = struct{}{}
	h.mu.Unlock()
	log.Printf("[Server] Viewer connected (%d connected)", h.count())

	go h.readLoop(v)
	h.writeLoop(v)

	h.mu.Lock()
	delete(h.viewers, v)
	h.mu.Unlock()
	conn.Close()
	log.Printf("[Server] Viewer disconnected (%d connected)", h.count())
}

// readLoop discards client messages and detects disconnects.
func (h *hub) readLoop(v *viewer) {
	defer v.close()

	v.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) writeLoop(v *viewer) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-v.done:
			v.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return

		case <-v.updates:
			data, err := json.Marshal(h.view.Snapshot())
			if err != nil {
				log.Printf("[Server] Failed to marshal view state: %v", err)
				continue
			}
			v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := v.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				// A write deadline timeout cannot be recovered
				v.close()
				return
			}

		case <-ping.C:
			if err := v.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				v.close()
				return
			}
		}
	}
}

// broadcast marks every viewer as needing the latest state.
func (h *hub) broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for v := range h.viewers {
		select {
		case v.updates <- struct{}{}:
		default:
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for v := range h.viewers {
		v.close()
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}
