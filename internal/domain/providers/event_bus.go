package providers

import (
	"context"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to request events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.RequestEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.RequestEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelServicePrefix is the prefix for per-service request channels
const EventChannelServicePrefix = "service:"

// GetServiceChannel returns the channel name for a service's request queue
func GetServiceChannel(serviceName string) string {
	return EventChannelServicePrefix + serviceName
}
