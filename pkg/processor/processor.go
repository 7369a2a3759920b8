// Package processor handles incoming contact events from Kafka. It is the
// streaming counterpart of the resolve endpoint: each message is scored
// against the registry and either matched, flagged for review, or turned
// into a new identity.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Processor resolves contact events pulled off the input topic
type Processor struct {
	logger   ectologger.Logger
	resolver *matching.Resolver
	store    identity.Store
	emitter  *events.Emitter
}

// NewProcessor creates a new contact event processor
func NewProcessor(logger ectologger.Logger, resolver *matching.Resolver, store identity.Store, emitter *events.Emitter) *Processor {
	return &Processor{
		logger:   logger,
		resolver: resolver,
		store:    store,
		emitter:  emitter,
	}
}

// ProcessMessage handles an incoming Kafka message carrying a contact event.
// Malformed payloads are logged and committed; retrying them cannot succeed.
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.ProcessMessage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"key":    msg.Key,
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	var contact models.ContactEvent
	if err := json.Unmarshal(msg.Value, &contact); err != nil {
		log.WithError(err).Error("Failed to parse contact event, skipping")
		return nil
	}

	if !contact.HasSignals() {
		log.Warn("Contact event carries no signals, skipping")
		return nil
	}

	log = log.WithFields(map[string]any{"platform": contact.Platform})

	result, err := p.resolver.MatchContact(ctx, contact)
	if err != nil {
		log.WithError(err).Error("Failed to resolve contact event")
		return err
	}

	switch result.Action {
	case models.MatchActionAutoMatch:
		log.WithFields(map[string]any{
			"identity_id": result.Identity.ID,
			"confidence":  result.Confidence,
			"breakdown":   matching.FormatBreakdown(result.Breakdown),
		}).Info("Contact auto-matched to identity")
		return nil

	case models.MatchActionNeedsReview:
		log.WithFields(map[string]any{
			"identity_id": result.Identity.ID,
			"confidence":  result.Confidence,
		}).Info("Contact flagged for review")
		if p.emitter != nil {
			if err := p.emitter.EmitReviewFlagged(ctx, result.Identity, contact, result.Confidence, result.Breakdown); err != nil {
				return err
			}
		}
		return nil

	default:
		return p.createFromContact(ctx, contact, log)
	}
}

// createFromContact registers a new identity from a contact event. Events
// without both an email and a name cannot seed an identity and are skipped.
func (p *Processor) createFromContact(ctx context.Context, contact models.ContactEvent, log ectologger.Logger) error {
	ctx, span := tracing.StartSpan(ctx, "processor.createFromContact")
	defer span.End()

	if strings.TrimSpace(contact.Email) == "" || strings.TrimSpace(contact.Name) == "" {
		log.Debug("Contact lacks email or name, cannot create identity")
		return nil
	}

	req := models.CreateIdentityRequest{
		Email: contact.Email,
		Name:  contact.Name,
		Phone: contact.Phone,
	}
	if strings.TrimSpace(contact.SocialHandle) != "" && strings.TrimSpace(contact.Platform) != "" {
		req.SocialHandles = map[string]string{contact.Platform: contact.SocialHandle}
	}

	created, err := p.store.Create(ctx, req)
	if err != nil {
		// Another consumer or an API caller may have landed the same email
		// between resolve and create. That is not a retryable failure.
		if errors.Is(err, identity.ErrDuplicateCanonicalEmail) {
			log.WithError(err).Warn("Identity already exists for canonical email, skipping create")
			return nil
		}
		log.WithError(err).Error("Failed to create identity from contact event")
		return err
	}

	log.WithFields(map[string]any{"identity_id": created.ID}).Info("Created identity from contact event")

	if p.emitter != nil {
		if err := p.emitter.EmitIdentityCreated(ctx, created); err != nil {
			log.WithError(err).Warn("Identity created but event emission failed")
		}
	}

	return nil
}
