package pubsub

// Topic names used across Chitas services.
const (
	TopicProgressEvents     = "progress.events"
	TopicNotificationEvents = "notification.events"
)
