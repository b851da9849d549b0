package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

const adminChannel = "dispatch:admins"

func driverChannel(driverID string) string {
	return fmt.Sprintf("dispatch:driver:%s", driverID)
}

// Notifier publishes realtime dispatch events over Redis pub/sub. Gateway
// processes subscribe to the admin channel and to per-driver channels and
// relay events to connected clients. Publish failures are logged and
// swallowed so a flaky broker never fails a dispatch operation.
type Notifier struct {
	client *redis.Client
}

// NewNotifier creates a new Notifier.
func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// EmitToAdmins publishes an event to the shared admin channel.
func (n *Notifier) EmitToAdmins(ctx context.Context, event string, data any) {
	n.publish(ctx, adminChannel, event, data)
}

// EmitToDriver publishes an event to a driver's private channel.
func (n *Notifier) EmitToDriver(ctx context.Context, driverID, event string, data any) {
	if driverID == "" {
		return
	}
	n.publish(ctx, driverChannel(driverID), event, data)
}

func (n *Notifier) publish(ctx context.Context, channel, event string, data any) {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("notifier: marshal %s: %v", event, err)
		return
	}
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("notifier: publish %s to %s: %v", event, channel, err)
	}
}
