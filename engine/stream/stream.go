// Package stream broadcasts Vault/OrderBook/Market lifecycle events (§6's
// named Events) to WebSocket subscribers, mirroring the teacher's own
// websocketroutine_manager: one upstream dispatch.Pipe per engine reader
// goroutine, fanned out to every connected client.
package stream

import (
	"net/http"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/gorilla/websocket"

	"github.com/thrasher-corp/perpvault/common/log"
	"github.com/thrasher-corp/perpvault/dispatch"
)

var streamLog = log.NewSubLogger("Stream")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// Broadcaster upgrades incoming HTTP connections to WebSocket and relays
// every event published on its subscribed topics to all connected clients.
type Broadcaster struct {
	mux    *dispatch.Mux
	topics []uuid.UUID

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]chan interface{}
}

// New returns a Broadcaster that will forward events published on topics
// once Run is started.
func New(mux *dispatch.Mux, topics []uuid.UUID) *Broadcaster {
	return &Broadcaster{
		mux:     mux,
		topics:  topics,
		clients: make(map[*websocket.Conn]chan interface{}),
	}
}

// Run subscribes to every configured topic and fans incoming events out to
// connected clients until stop is closed.
func (b *Broadcaster) Run(stop <-chan struct{}) {
	pipes := make([]dispatch.Pipe, 0, len(b.topics))
	for _, topic := range b.topics {
		p, err := b.mux.Subscribe(topic)
		if err != nil {
			streamLog.Errorf("subscribe to topic %s: %v", topic, err)
			continue
		}
		pipes = append(pipes, p)
	}
	defer func() {
		for _, p := range pipes {
			_ = p.Release()
		}
	}()

	cases := make(chan interface{})
	for _, p := range pipes {
		go func(c <-chan interface{}) {
			for v := range c {
				cases <- v
			}
		}(p.C)
	}

	for {
		select {
		case <-stop:
			return
		case evt := <-cases:
			b.broadcast(evt)
		}
	}
}

func (b *Broadcaster) broadcast(evt interface{}) {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()
	for conn, ch := range b.clients {
		select {
		case ch <- evt:
		default:
			streamLog.Warnf("client %s is slow, dropping event", conn.RemoteAddr())
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket and streams every
// subsequently broadcast event to it as JSON until the connection closes.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		streamLog.Errorf("upgrade: %v", err)
		return
	}
	ch := make(chan interface{}, 64)

	b.clientsMu.Lock()
	b.clients[conn] = ch
	b.clientsMu.Unlock()

	defer func() {
		b.clientsMu.Lock()
		delete(b.clients, conn)
		b.clientsMu.Unlock()
		_ = conn.Close()
	}()

	for evt := range ch {
		if err := conn.WriteJSON(evt); err != nil {
			return
		}
	}
}
