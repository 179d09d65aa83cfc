package outbox

import (
	"time"

	"github.com/angelmondragon/homequote-backend/pkg/db/models"
)

// Attribute keys stamped on every published lifecycle message. Consumers can
// route on them without decoding the body.
const (
	AttrEventID       = "event_id"
	AttrEventType     = "event_type"
	AttrAggregateType = "aggregate_type"
	AttrAggregateID   = "aggregate_id"
	AttrCreatedAt     = "created_at"
	AttrActorID       = "actor_id"
	AttrActorRole     = "actor_role"
)

func MessageAttributes(event models.OutboxEvent, envelope PayloadEnvelope) map[string]string {
	attrs := map[string]string{
		AttrEventID:       envelope.EventID,
		AttrEventType:     string(event.EventType),
		AttrAggregateType: string(event.AggregateType),
		AttrAggregateID:   event.AggregateID.String(),
		AttrCreatedAt:     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if a := envelope.Actor; a != nil {
		attrs[AttrActorID] = a.UserID.String()
		if a.Role != "" {
			attrs[AttrActorRole] = a.Role
		}
	}
	return attrs
}
