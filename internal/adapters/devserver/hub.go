package devserver

import (
	"context"
	"sync/atomic"
)

const (
	sendQueueSize  = 256
	broadcastQueue = 16
)

type client struct {
	send chan []byte
}

// hub fans reload messages out to connected browsers. Only run touches clients.
type hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	clients map[*client]struct{}
	count   atomic.Int64
	dropped func()
}

func newHub(dropped func()) *hub {
	return &hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, broadcastQueue),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		dropped:    dropped,
	}
}

func (h *hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.remove(c)
					if h.dropped != nil {
						h.dropped()
					}
				}
			}
		}
	}
}

// remove closes the client's queue, which tells its handler to hang up.
func (h *hub) remove(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
}

// join registers c. It reports false once the hub has stopped.
func (h *hub) join(ctx context.Context, c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// publish queues msg for every client. It reports false when the queue is full.
func (h *hub) publish(msg []byte) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		return false
	}
}
