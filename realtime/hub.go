package realtime

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"

	DefaultBufferSize = 64
	writeWait         = 10 * time.Second
)

// Event represents a message sent to progress listeners
type Event struct {
	Type      string `json:"type"`
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Subscription is one listener. Events arrive on C in publish order; C is
// closed when the subscription is removed.
type Subscription struct {
	C  <-chan Event
	ch chan Event
}

// Hub fans progress events out to every current subscription. It is created
// once per process and shared by the upload handlers and the websocket endpoint.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &Hub{subs: make(map[*Subscription]struct{}), buffer: buffer}
}

func (h *Hub) Subscribe() *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Unknown or already removed
// subscriptions are ignored.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub)
}

// caller holds h.mu
func (h *Hub) remove(sub *Subscription) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}

// Publish delivers e to every subscription without blocking. A subscription
// whose buffer is full is considered dead and removed.
func (h *Hub) Publish(e Event) {
	if e.Type == "" {
		e.Type = "progress"
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ch <- e:
		default:
			log.Printf("realtime: dropping slow subscriber")
			h.remove(sub)
		}
	}
}

// PublishProgress publishes an upload lifecycle event.
func (h *Hub) PublishProgress(filename, status, errMsg string) {
	h.Publish(Event{Type: "progress", Filename: filename, Status: status, Error: errMsg})
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and streams events until either side goes away
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: websocket upgrade error: %v", err)
		return
	}
	sub := h.Subscribe()

	// writer
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range sub.C {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				h.Unsubscribe(sub)
				break
			}
		}
		conn.Close()
	}()

	// reader (just consume pings/close)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.Unsubscribe(sub)
	<-done
}
