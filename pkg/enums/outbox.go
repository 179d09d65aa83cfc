package enums

import "slices"

// OutboxAggregateType is the entity an outbox row describes.
type OutboxAggregateType string

const (
	AggregateRequirement OutboxAggregateType = "requirement"
	AggregateQuotation   OutboxAggregateType = "quotation"
)

var aggregateTypes = []OutboxAggregateType{AggregateRequirement, AggregateQuotation}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseClosed("aggregate type", aggregateTypes, value)
}

// OutboxEventType names a lifecycle fact. It doubles as the Pub/Sub
// event_type attribute.
type OutboxEventType string

const (
	EventRequirementCreated OutboxEventType = "requirement_created"
	EventQuotationSubmitted OutboxEventType = "quotation_submitted"
	EventQuotationUpdated   OutboxEventType = "quotation_updated"
	EventQuotationAccepted  OutboxEventType = "quotation_accepted"
)

var eventTypes = []OutboxEventType{
	EventRequirementCreated,
	EventQuotationSubmitted,
	EventQuotationUpdated,
	EventQuotationAccepted,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

// Aggregate is the aggregate type rows of this event must carry. Acceptance
// belongs to the requirement because it is the requirement that changes state.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	switch e {
	case EventRequirementCreated, EventQuotationAccepted:
		return AggregateRequirement
	default:
		return AggregateQuotation
	}
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseClosed("event type", eventTypes, value)
}

// OutboxDLQErrorReason records why the relay gave up on a row.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
