package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
	"github.com/angelmondragon/homequote-backend/pkg/outbox"
	"github.com/angelmondragon/homequote-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/homequote-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/homequote-backend/pkg/outbox/registry"
)

const lifecycleNotificationConsumer = "lifecycle-notifications"

type notificationWriter interface {
	CreateForEvent(ctx context.Context, notification *models.Notification) (bool, error)
}

type eventDecoder interface {
	Decode(eventType string, data []byte) (*registry.ResolvedEvent, error)
}

// ConsumerParams wires the lifecycle notification consumer.
type ConsumerParams struct {
	Repository   notificationWriter
	Subscription *pubsub.Subscriber
	Decoder      eventDecoder
	Idempotency  *idempotency.Manager
	Cache        UnreadCache
	Logger       *logger.Logger
}

// Consumer turns lifecycle events into in-app notifications.
type Consumer struct {
	repo         notificationWriter
	subscription *pubsub.Subscriber
	decoder      eventDecoder
	idempotency  *idempotency.Manager
	cache        UnreadCache
	logg         *logger.Logger
}

// NewConsumer builds a lifecycle notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	switch {
	case params.Repository == nil:
		return nil, errors.New("notifications repository required")
	case params.Subscription == nil:
		return nil, errors.New("notification subscription required")
	case params.Decoder == nil:
		return nil, errors.New("event decoder required")
	case params.Idempotency == nil:
		return nil, errors.New("idempotency manager required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	}
	return &Consumer{
		repo:         params.Repository,
		subscription: params.Subscription,
		decoder:      params.Decoder,
		idempotency:  params.Idempotency,
		cache:        params.Cache,
		logg:         params.Logger,
	}, nil
}

// Run receives until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) == retry {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// disposition is what happens to a message after processing.
type disposition int

const (
	done disposition = iota
	retry
)

// process acks poison messages; only transient store or Redis failures retry.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) disposition {
	eventType := msg.Attributes[outbox.AttrEventType]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType == string(enums.EventRequirementCreated) {
		return done
	}

	resolved, err := c.decoder.Decode(eventType, msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "notifications.decode_failed", err)
		return done
	}
	eventID, err := uuid.Parse(resolved.Envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "notifications.bad_event_id", err)
		return done
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	notification, ok := buildNotification(resolved.Payload)
	if !ok {
		c.logg.Debug(logCtx, "notifications.no_recipient")
		return done
	}
	notification.EventID = &eventID

	claimed, err := c.idempotency.Claim(ctx, lifecycleNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "notifications.claim_failed", err)
		return retry
	}
	if !claimed {
		c.logg.Debug(logCtx, "notifications.duplicate")
		return done
	}

	created, err := c.repo.CreateForEvent(ctx, notification)
	if err != nil {
		c.logg.Error(logCtx, "notifications.store_failed", err)
		if relErr := c.idempotency.Release(ctx, lifecycleNotificationConsumer, eventID); relErr != nil {
			c.logg.Warn(c.logg.WithField(logCtx, "error", relErr.Error()), "notifications.release_failed")
		}
		return retry
	}
	if created {
		invalidateUnread(ctx, c.cache, notification.UserID)
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"recipient_id":      notification.UserID.String(),
		"notification_type": notification.Type,
		"created":           created,
	}), "notifications.delivered")
	return done
}

func buildNotification(payload any) (*models.Notification, bool) {
	switch event := payload.(type) {
	case *payloads.QuotationSubmittedEvent:
		return &models.Notification{
			UserID:        event.HomeownerID,
			Type:          enums.NotificationTypeQuotationReceived,
			Title:         "New quotation received",
			Message:       fmt.Sprintf("%s quoted %s for %q.", shopLabel(event.ShopName), event.Amount.StringFixed(2), event.RequirementTitle),
			Link:          requirementLink(event.RequirementID),
			RequirementID: &event.RequirementID,
		}, event.HomeownerID != uuid.Nil
	case *payloads.QuotationUpdatedEvent:
		return &models.Notification{
			UserID:        event.HomeownerID,
			Type:          enums.NotificationTypeQuotationUpdated,
			Title:         "Quotation updated",
			Message:       fmt.Sprintf("%s updated their quotation for %q to %s.", shopLabel(event.ShopName), event.RequirementTitle, event.Amount.StringFixed(2)),
			Link:          requirementLink(event.RequirementID),
			RequirementID: &event.RequirementID,
		}, event.HomeownerID != uuid.Nil
	case *payloads.QuotationAcceptedEvent:
		return &models.Notification{
			UserID:        event.ShopOwnerID,
			Type:          enums.NotificationTypeQuotationAccepted,
			Title:         "Your quotation was accepted",
			Message:       fmt.Sprintf("%s accepted your quotation of %s for %q. Their contact details are now available.", homeownerLabel(event.HomeownerName), event.Amount.StringFixed(2), event.RequirementTitle),
			Link:          requirementLink(event.RequirementID),
			RequirementID: &event.RequirementID,
		}, event.ShopOwnerID != uuid.Nil
	default:
		return nil, false
	}
}

func requirementLink(id uuid.UUID) *string {
	link := fmt.Sprintf("/requirements/%s", id)
	return &link
}

func shopLabel(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return "A shop"
}

func homeownerLabel(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return "The homeowner"
}
