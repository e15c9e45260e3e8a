// Package stream broadcasts relaxation frames to websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/san-kum/molsim/internal/logging"
	"github.com/san-kum/molsim/internal/molecule"
	"github.com/san-kum/molsim/internal/storage"
)

const (
	writeTimeout = 10 * time.Second
	queueSize    = 256
)

var ErrClosed = errors.New("stream: hub closed")

// Message is one update sent to every client.
type Message struct {
	Type     string              `json:"type"`
	Name     string              `json:"name,omitempty"`
	Step     int                 `json:"step"`
	MaxForce float64             `json:"max_force"`
	Atoms    []storage.AtomState `json:"atoms,omitempty"`
	Bonds    []BondState         `json:"bonds,omitempty"`
}

// BondState is the recorded topology of one bond.
type BondState struct {
	A     molecule.AtomID `json:"a"`
	B     molecule.AtomID `json:"b"`
	Order int             `json:"order"`
}

// FrameMessage captures the solution after a step.
func FrameMessage(name string, step int, sol *molecule.Solution, stats molecule.StepStats) Message {
	bonds := sol.Bonds()
	msg := Message{
		Type:     "frame",
		Name:     name,
		Step:     step,
		MaxForce: stats.MaxForce,
		Atoms:    storage.Snapshot(step, sol).Atoms,
		Bonds:    make([]BondState, 0, len(bonds)),
	}
	for _, b := range bonds {
		msg.Bonds = append(msg.Bonds, BondState{A: b.Atom1(), B: b.Atom2(), Order: int(b.Order())})
	}
	return msg
}

// Hub keeps the connected clients and fans messages out to them from a
// single writer goroutine.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*websocket.Conn]bool
	upgrader   websocket.Upgrader
	broadcast  chan Message
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
	log        logging.Logger
}

func NewHub(log logging.Logger) *Hub {
	if log == nil {
		log = logging.Nop{}
	}
	h := &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Message, queueSize),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	h.wg.Add(1)
	go h.run()

	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects. Incoming messages are discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}
	h.log.Debugf("client connected from %s", r.RemoteAddr)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish queues a message for every client, waiting up to a second for
// room in the queue.
func (h *Hub) Publish(ctx context.Context, msg Message) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
		return errors.New("stream: queue full")
	}
}

// TryPublish queues a message unless the queue is full. It reports whether
// the message was queued.
func (h *Hub) TryPublish(msg Message) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- msg:
		return true
	default:
		return false
	}
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.drop(conn)

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				h.log.Errorf("encode %s message: %v", msg.Type, err)
				continue
			}
			h.send(data)
		}
	}
}

// send writes outside the lock and drops clients whose write fails.
func (h *Hub) send(data []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debugf("dropping client: %v", err)
			h.drop(conn)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

// Close disconnects every client and stops the writer. It is safe to call
// more than once.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
			delete(h.clients, conn)
		}
		h.mu.Unlock()
	})
	return nil
}
