package messaging

const (
	TopicOrderPlaced = "order.placed"

	NotificationConsumerGroup = "order-notifications"
)
