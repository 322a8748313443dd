/**
 * @description
 * RabbitMQ-backed notifier. Renewal outcomes are published fire-and-forget to
 * a topic exchange; the notification consumer owns delivery channels (email,
 * push) and template rendering. The event's template name doubles as the
 * routing key so consumers can bind selectively.
 */
package app

import (
	"context"

	"github.com/shoply/renewal-service/internal/domain"
	"github.com/shoply/renewal-service/pkg/rabbitmq"
)

// EventsExchange is the durable topic exchange all subscription lifecycle
// events are published to.
const EventsExchange = "shoply.events"

// RabbitNotifier publishes notification events through a rabbitmq.Publisher.
type RabbitNotifier struct {
	producer rabbitmq.Publisher
}

// NewRabbitNotifier creates a notifier backed by the given producer.
func NewRabbitNotifier(producer rabbitmq.Publisher) *RabbitNotifier {
	return &RabbitNotifier{producer: producer}
}

// Notify publishes the event to the events exchange.
func (n *RabbitNotifier) Notify(ctx context.Context, event domain.NotificationEvent) error {
	return n.producer.Publish(ctx, EventsExchange, event.Template, event)
}
