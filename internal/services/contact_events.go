package services

import (
	"encoding/json"
	"fmt"
	"time"

	"contactbook/internal/storage"
	"contactbook/pkg/logger"
)

// Lifecycle events published after a change is committed.
const (
	EventContactCreated = "contact.created"
	EventContactUpdated = "contact.updated"
	EventContactDeleted = "contact.deleted"
	EventContactViewed  = "contact.viewed"
	EventAccountDeleted = "account.deleted"
)

// EventPublisher delivers lifecycle events to a broker.
type EventPublisher interface {
	PublishEvent(eventType string, payload interface{}) error
}

// Event is the body of every lifecycle message.
type Event struct {
	Type       string    `json:"type"`
	OwnerID    uint64    `json:"ownerId,omitempty"`
	ContactID  uint64    `json:"contactId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// publish is best effort: the change is already durable, so a broker failure
// is only logged.
func publish(pub EventPublisher, log *logger.Logger, eventType string, event Event) {
	if pub == nil {
		return
	}
	event.Type = eventType
	event.OccurredAt = time.Now().UTC()
	if err := pub.PublishEvent(eventType, event); err != nil {
		log.Warn("failed to publish event", "type", eventType, "owner_id", event.OwnerID, "contact_id", event.ContactID, "error", err)
	}
}

// PhotoJanitor reclaims the photo directories of deleted contacts and accounts.
type PhotoJanitor struct {
	photos *storage.PhotoStore
	log    *logger.Logger
}

// NewPhotoJanitor creates a new PhotoJanitor.
func NewPhotoJanitor(photos *storage.PhotoStore, log *logger.Logger) *PhotoJanitor {
	return &PhotoJanitor{photos: photos, log: log.With("component", "photo_janitor")}
}

// Handle processes one event body. Malformed bodies are dropped, a returned
// error asks for redelivery.
func (j *PhotoJanitor) Handle(body []byte) error {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		j.log.Warn("dropping malformed event", "error", err)
		return nil
	}

	switch event.Type {
	case EventContactDeleted:
		if event.OwnerID == 0 || event.ContactID == 0 {
			j.log.Warn("dropping incomplete event", "type", event.Type)
			return nil
		}
		if err := j.photos.Remove(event.OwnerID, event.ContactID); err != nil {
			return fmt.Errorf("failed to reclaim photo of contact %d: %w", event.ContactID, err)
		}
		j.log.Debug("reclaimed contact photo", "owner_id", event.OwnerID, "contact_id", event.ContactID)
	case EventAccountDeleted:
		if event.OwnerID == 0 {
			j.log.Warn("dropping incomplete event", "type", event.Type)
			return nil
		}
		if err := j.photos.RemoveOwner(event.OwnerID); err != nil {
			return fmt.Errorf("failed to reclaim photos of account %d: %w", event.OwnerID, err)
		}
		j.log.Debug("reclaimed account photos", "owner_id", event.OwnerID)
	}
	return nil
}
