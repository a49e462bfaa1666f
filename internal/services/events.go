package services

// EventPublisher publishes domain lifecycle events (e.g. "task.created") to
// a message broker. Publishing is best-effort: services log failures and
// never let them affect the API result.
type EventPublisher interface {
	PublishEvent(event string, payload map[string]interface{}) error
}
