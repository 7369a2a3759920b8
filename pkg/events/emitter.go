// Package events handles event emission for identity lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes identity lifecycle events. A nil producer disables
// emission, so callers never have to branch on whether Kafka is wired.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitIdentityCreated emits an identity.created event
func (e *Emitter) EmitIdentityCreated(ctx context.Context, identity *models.Identity) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitIdentityCreated")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	data, _ := json.Marshal(identity)

	event := &kafka.IdentityEvent{
		EventType:      "identity.created",
		IdentityID:     identity.ID,
		CanonicalEmail: identity.CanonicalEmail,
		Data:           data,
	}

	if err := e.producer.PublishIdentityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit identity.created event")
		return err
	}

	return nil
}

// EmitIdentityMerged emits an identity.merged event carrying the surviving
// identity and the id of the one that was absorbed
func (e *Emitter) EmitIdentityMerged(ctx context.Context, primary *models.Identity, secondaryID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitIdentityMerged")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	data, _ := json.Marshal(primary)

	event := &kafka.IdentityEvent{
		EventType:      "identity.merged",
		IdentityID:     primary.ID,
		CanonicalEmail: primary.CanonicalEmail,
		Data:           data,
		SourceIDs:      []string{primary.ID, secondaryID},
	}

	if err := e.producer.PublishIdentityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit identity.merged event")
		return err
	}

	return nil
}

// EmitReviewFlagged emits an identity.review_flagged event when a contact
// lands in the review band against an existing identity
func (e *Emitter) EmitReviewFlagged(ctx context.Context, identity *models.Identity, contact models.ContactEvent, confidence float64, breakdown []models.SignalScore) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewFlagged")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	payload := map[string]any{
		"schema_version": SchemaVersion,
		"contact":        contact,
		"confidence":     confidence,
		"breakdown":      breakdown,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.IdentityEvent{
		EventType:      "identity.review_flagged",
		IdentityID:     identity.ID,
		CanonicalEmail: identity.CanonicalEmail,
		Data:           data,
	}

	if err := e.producer.PublishIdentityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit identity.review_flagged event")
		return err
	}

	return nil
}
