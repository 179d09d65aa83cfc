package enums

import "slices"

// NotificationType selects the inbox template and icon on the client.
type NotificationType string

const (
	NotificationTypeQuotationReceived NotificationType = "quotation_received"
	NotificationTypeQuotationUpdated  NotificationType = "quotation_updated"
	NotificationTypeQuotationAccepted NotificationType = "quotation_accepted"
	NotificationTypeSystem            NotificationType = "system"
)

var notificationTypes = []NotificationType{
	NotificationTypeQuotationReceived,
	NotificationTypeQuotationUpdated,
	NotificationTypeQuotationAccepted,
	NotificationTypeSystem,
}

func (n NotificationType) IsValid() bool { return slices.Contains(notificationTypes, n) }

func ParseNotificationType(value string) (NotificationType, error) {
	return parseClosed("notification type", notificationTypes, value)
}
