// Package livefeed pushes notifications to the websocket sessions of their recipient.
package livefeed

import (
	"context"
	"grievance/backend/internal/notify"
	"log"
)

// Hub owns the set of connected clients. All map access happens on the Run goroutine.
type Hub struct {
	clients map[uint]map[Client]struct{}

	RegisterCh   chan Client
	UnregisterCh chan Client
	DeliverCh    chan notify.Message
	countCh      chan chan int
	done         chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[uint]map[Client]struct{}),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		DeliverCh:    make(chan notify.Message, 64),
		countCh:      make(chan chan int),
		done:         make(chan struct{}),
	}
}

// Run processes registrations and deliveries until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					c.Close()
				}
			}
			h.clients = make(map[uint]map[Client]struct{})
			return

		case c := <-h.RegisterCh:
			set, ok := h.clients[c.GetUserID()]
			if !ok {
				set = make(map[Client]struct{})
				h.clients[c.GetUserID()] = set
			}
			set[c] = struct{}{}

		case c := <-h.UnregisterCh:
			h.remove(c)

		case msg := <-h.DeliverCh:
			h.deliver(msg)

		case reply := <-h.countCh:
			n := 0
			for _, set := range h.clients {
				n += len(set)
			}
			reply <- n
		}
	}
}

func (h *Hub) remove(c Client) {
	set, ok := h.clients[c.GetUserID()]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.GetUserID())
	}
	c.Close()
}

func (h *Hub) deliver(msg notify.Message) {
	for c := range h.clients[msg.RecipientID] {
		select {
		case c.GetSendChannel() <- msg:
		default:
			// повільний клієнт: відключаємо
			log.Printf("WARN: Dropping slow live feed client of user %d", msg.RecipientID)
			h.remove(c)
		}
	}
}

// Notify implements notify.Dispatcher for a single-instance deployment without Redis.
// Mail-only kinds never reach a session.
func (h *Hub) Notify(ctx context.Context, msg notify.Message) error {
	if msg.Kind.MailOnly() {
		return nil
	}
	select {
	case h.DeliverCh <- msg:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected returns the number of live clients, or 0 once Run has returned.
func (h *Hub) Connected() int {
	reply := make(chan int)
	select {
	case h.countCh <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Register adds c. It reports false once the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// unregister is safe to call after Run has returned.
func (h *Hub) unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}
