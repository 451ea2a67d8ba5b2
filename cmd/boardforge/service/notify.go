package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/boardforge/boardforge/common/logger"
	"github.com/boardforge/boardforge/common/queue"
)

// Event types published after successful commits.
const (
	EventPrototypeCreated    = "prototype.created"
	EventPrototypeUpdated    = "prototype.updated"
	EventPrototypeDeleted    = "prototype.deleted"
	EventPrototypeDuplicated = "prototype.duplicated"
	EventVersionCreated      = "version.created"
	EventInstanceCreated     = "instance.created"
	EventPlayerJoined        = "player.joined"
	EventPartCreated         = "part.created"
	EventPartMoved           = "part.moved"
	EventPartDeleted         = "part.deleted"
	EventPropertyUpdated     = "part.property.updated"
)

// Event is the payload pushed to live collaborators after a commit. It
// carries identifiers only; subscribers re-read whatever content they
// need.
type Event struct {
	Type        string     `json:"type"`
	PrototypeID uuid.UUID  `json:"prototype_id"`
	VersionID   *uuid.UUID `json:"version_id,omitempty"`
	PartID      *uuid.UUID `json:"part_id,omitempty"`
	UserID      string     `json:"user_id"`
	At          time.Time  `json:"at"`
}

// Notifier publishes post-commit events on the realtime channel. It is
// strictly best-effort: the data is already committed, so a publish
// failure is logged, never propagated.
type Notifier struct {
	pub    queue.Publisher
	prefix string
	log    *logger.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(pub queue.Publisher, prefix string, log *logger.Logger) *Notifier {
	return &Notifier{
		pub:    pub,
		prefix: prefix,
		log:    log,
	}
}

// Notify publishes the event on the prototype's channel.
func (n *Notifier) Notify(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		n.log.Error("failed to marshal event", "type", event.Type, "error", err)
		return
	}

	topic := fmt.Sprintf("%s:%s", n.prefix, event.PrototypeID)
	if err := n.pub.Publish(ctx, topic, payload); err != nil {
		n.log.Warn("failed to publish event",
			"type", event.Type,
			"topic", topic,
			"error", err,
		)
		return
	}

	n.log.Debug("event published", "type", event.Type, "topic", topic)
}
