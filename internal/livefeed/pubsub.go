package livefeed

import (
	"context"
	"encoding/json"
	"grievance/backend/internal/notify"
	"log"

	"github.com/redis/go-redis/v9"
)

// Listen forwards notifications published on Redis to the hub until ctx is cancelled.
// Every API instance runs one, so a session gets its notifications whichever instance
// handled the request.
func (h *Hub) Listen(ctx context.Context, rdb *redis.Client, channel string) {
	pubsub := rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	h.Forward(ctx, pubsub.Channel())
}

// Forward decodes payloads from ch and hands them to the hub.
func (h *Hub) Forward(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg notify.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.Printf("ERROR: Error unmarshalling Redis notification: %v", err)
				continue
			}
			if msg.Kind.MailOnly() {
				continue
			}
			select {
			case h.DeliverCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}
