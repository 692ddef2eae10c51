package messaging

import (
	"context"
	"strings"

	"github.com/mfg-platform/production-service/internal/domain"
	"github.com/mfg-platform/production-service/pkg/cloudevents"
	"github.com/mfg-platform/production-service/pkg/kafka"
	"github.com/mfg-platform/production-service/pkg/logging"
)

// producer is the subset of the Kafka producer the publisher needs.
type producer interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error
	PublishBatch(ctx context.Context, topic string, events []*cloudevents.CloudEvent) error
}

// KafkaEventPublisher converts domain events to CloudEvents and routes them
// to their topic by event type.
type KafkaEventPublisher struct {
	producer producer
	factory  *cloudevents.EventFactory
	logger   *logging.Logger
}

func NewKafkaEventPublisher(p producer, factory *cloudevents.EventFactory, logger *logging.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: p, factory: factory, logger: logger}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	cloudEvent := p.toCloudEvent(ctx, event)
	return p.producer.PublishEvent(ctx, topicFor(event.EventType()), cloudEvent)
}

func (p *KafkaEventPublisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	// Events for the same topic are batched; ordering within a topic is
	// preserved.
	byTopic := make(map[string][]*cloudevents.CloudEvent)
	order := make([]string, 0)
	for _, event := range events {
		topic := topicFor(event.EventType())
		if _, ok := byTopic[topic]; !ok {
			order = append(order, topic)
		}
		byTopic[topic] = append(byTopic[topic], p.toCloudEvent(ctx, event))
	}

	for _, topic := range order {
		if err := p.producer.PublishBatch(ctx, topic, byTopic[topic]); err != nil {
			return err
		}
	}
	return nil
}

func (p *KafkaEventPublisher) toCloudEvent(ctx context.Context, event domain.DomainEvent) *cloudevents.CloudEvent {
	return p.factory.CreateEventWithTenant(ctx, event.EventType(), subjectFor(event), event, tenantOf(event))
}

func topicFor(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "mfg.planning."):
		return kafka.Topics.PlanningEvents
	case strings.HasPrefix(eventType, "mfg.inventory."):
		return kafka.Topics.InventoryEvents
	default:
		return kafka.Topics.WorkOrderEvents
	}
}

func subjectFor(event domain.DomainEvent) string {
	switch e := event.(type) {
	case *domain.WorkOrderCreatedEvent:
		return "work-order/" + e.WorkOrderID
	case *domain.WorkOrderStartedEvent:
		return "work-order/" + e.WorkOrderID
	case *domain.WorkOrderCompletedEvent:
		return "work-order/" + e.WorkOrderID
	case *domain.WorkOrderCancelledEvent:
		return "work-order/" + e.WorkOrderID
	case *domain.StockConsumedEvent:
		return "work-order/" + e.WorkOrderID
	case *domain.LotCreatedEvent:
		return "stock-lot/" + e.LotID
	default:
		return ""
	}
}

func tenantOf(event domain.DomainEvent) string {
	switch e := event.(type) {
	case *domain.WorkOrderCreatedEvent:
		return e.TenantID
	case *domain.WorkOrderStartedEvent:
		return e.TenantID
	case *domain.WorkOrderCompletedEvent:
		return e.TenantID
	case *domain.WorkOrderCancelledEvent:
		return e.TenantID
	case *domain.StockConsumedEvent:
		return e.TenantID
	case *domain.LotCreatedEvent:
		return e.TenantID
	default:
		return ""
	}
}
