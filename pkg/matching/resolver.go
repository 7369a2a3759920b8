// Package matching implements multi-signal contact-to-identity resolution
package matching

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config contains the weights and thresholds for contact resolution
type Config struct {
	VerificationThreshold float64 // Normalized score at or above which to auto-match (default: 0.85)
	ReviewThreshold       float64 // Normalized score at or above which to queue for review (default: 0.60)

	WeightEmailExact   float64 // Canonical or alternative email equality (default: 1.0)
	WeightEmailFuzzy   float64 // Local-part similarity above the fuzzy gate (default: 0.7)
	WeightNameExact    float64 // Name similarity above the strong gate (default: 0.9)
	WeightNameFuzzy    float64 // Name similarity above the fuzzy gate (default: 0.6)
	WeightPhone        float64 // Normalized phone equality (default: 0.95)
	WeightSocialHandle float64 // Case-insensitive handle equality on the same platform (default: 0.85)

	EmailFuzzyGate float64 // Minimum local-part similarity to count a fuzzy email (default: 0.8)
	NameStrongGate float64 // Minimum name similarity for the exact weight (default: 0.9)
	NameFuzzyGate  float64 // Minimum name similarity for the fuzzy weight (default: 0.7)
}

// DefaultConfig returns the documented weight table and thresholds
func DefaultConfig() Config {
	return Config{
		VerificationThreshold: 0.85,
		ReviewThreshold:       0.60,
		WeightEmailExact:      1.0,
		WeightEmailFuzzy:      0.7,
		WeightNameExact:       0.9,
		WeightNameFuzzy:       0.6,
		WeightPhone:           0.95,
		WeightSocialHandle:    0.85,
		EmailFuzzyGate:        0.8,
		NameStrongGate:        0.9,
		NameFuzzyGate:         0.7,
	}
}

// Resolver scores incoming contacts against every registered identity and
// classifies the outcome. It never mutates the store; creation and merging
// stay with the caller.
type Resolver struct {
	logger ectologger.Logger
	store  identity.Store
	scorer *Scorer
	cfg    Config
}

// NewResolver creates a new contact resolver
func NewResolver(logger ectologger.Logger, store identity.Store, cfg Config) *Resolver {
	return &Resolver{
		logger: logger,
		store:  store,
		scorer: NewScorer(),
		cfg:    cfg,
	}
}

// signals holds the contact's fields normalized once per scan
type signals struct {
	email     string
	emailSet  bool
	phone     string
	phoneSet  bool
	name      string
	nameSet   bool
	handle    string
	handleSet bool
	platform  string
}

// MatchContact resolves a contact event against the registry.
//
// Behavior:
//   - empty registry: (nil, 0.0, create_new) regardless of supplied fields
//   - no supplied signals: (nil, 0.0, create_new); a well-defined outcome,
//     not an error
//   - otherwise: the candidate with the highest normalized score, classified
//     by the configured thresholds; ties resolve to the lowest identity id
func (r *Resolver) MatchContact(ctx context.Context, contact models.ContactEvent) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Resolver.MatchContact")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"platform": contact.Platform,
	})

	snapshot, err := r.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if len(snapshot) == 0 {
		log.Debug("Registry empty; recommending create")
		return &models.MatchResult{Confidence: 0.0, Action: models.MatchActionCreateNew}, nil
	}

	sig := normalizeSignals(contact)

	var best *models.Identity
	bestScore := 0.0
	var bestBreakdown []models.SignalScore

	// Snapshot is ordered by id, so keeping a candidate only on a strictly
	// higher score makes equal top scores resolve to the lowest id.
	for i := range snapshot {
		score, breakdown := r.scoreIdentity(sig, &snapshot[i])
		if best == nil || score > bestScore {
			best = &snapshot[i]
			bestScore = score
			bestBreakdown = breakdown
		}
	}

	result := &models.MatchResult{
		Confidence: bestScore,
		Breakdown:  bestBreakdown,
	}

	switch {
	case bestScore >= r.cfg.VerificationThreshold:
		result.Action = models.MatchActionAutoMatch
		result.Identity = best
	case bestScore >= r.cfg.ReviewThreshold:
		result.Action = models.MatchActionNeedsReview
		result.Identity = best
	default:
		result.Action = models.MatchActionCreateNew
	}

	log.WithFields(map[string]any{
		"confidence": bestScore,
		"action":     result.Action,
		"signals":    len(bestBreakdown),
	}).Debug("Resolved contact")

	return result, nil
}

// scoreIdentity computes the normalized weighted score of one identity
// against the contact's signals, plus the per-signal breakdown
func (r *Resolver) scoreIdentity(sig signals, ident *models.Identity) (float64, []models.SignalScore) {
	score := 0.0
	breakdown := make([]models.SignalScore, 0, 4)

	if sig.emailSet {
		if sig.email == ident.CanonicalEmail {
			score += r.cfg.WeightEmailExact
			breakdown = append(breakdown, models.SignalScore{Signal: "email", Outcome: "exact", Weighted: r.cfg.WeightEmailExact})
		} else if ident.HasAlternativeEmail(sig.email) {
			score += r.cfg.WeightEmailExact
			breakdown = append(breakdown, models.SignalScore{Signal: "email", Outcome: "alt_exact", Weighted: r.cfg.WeightEmailExact})
		} else {
			similarity := r.scorer.Ratio(localPart(sig.email), localPart(ident.CanonicalEmail))
			if similarity > r.cfg.EmailFuzzyGate {
				weighted := r.cfg.WeightEmailFuzzy * similarity
				score += weighted
				breakdown = append(breakdown, models.SignalScore{Signal: "email", Outcome: "fuzzy", Similarity: similarity, Weighted: weighted})
			}
		}
	}

	if sig.phoneSet && ident.HasPhone(sig.phone) {
		score += r.cfg.WeightPhone
		breakdown = append(breakdown, models.SignalScore{Signal: "phone", Outcome: "exact", Weighted: r.cfg.WeightPhone})
	}

	if sig.nameSet {
		similarity := r.scorer.NameSimilarity(sig.name, ident.CanonicalName)
		if similarity > r.cfg.NameStrongGate {
			weighted := r.cfg.WeightNameExact * similarity
			score += weighted
			breakdown = append(breakdown, models.SignalScore{Signal: "name", Outcome: "strong", Similarity: similarity, Weighted: weighted})
		} else if similarity > r.cfg.NameFuzzyGate {
			weighted := r.cfg.WeightNameFuzzy * similarity
			score += weighted
			breakdown = append(breakdown, models.SignalScore{Signal: "name", Outcome: "fuzzy", Similarity: similarity, Weighted: weighted})
		}
	}

	if sig.handleSet && sig.platform != "" {
		if stored, ok := ident.SocialHandles[sig.platform]; ok {
			storedHandle, ok := normalizers.ExtractSocialHandle(stored)
			if ok && strings.EqualFold(sig.handle, storedHandle) {
				score += r.cfg.WeightSocialHandle
				breakdown = append(breakdown, models.SignalScore{Signal: "social", Outcome: "exact", Weighted: r.cfg.WeightSocialHandle})
			}
		}
	}

	// Normalize by the best score the supplied signals could have reached,
	// so a phone-only contact can still hit 1.0
	maxPossible := 0.0
	if sig.emailSet {
		maxPossible += r.cfg.WeightEmailExact
	}
	if sig.phoneSet {
		maxPossible += r.cfg.WeightPhone
	}
	if sig.nameSet {
		maxPossible += r.cfg.WeightNameExact
	}
	if sig.handleSet {
		maxPossible += r.cfg.WeightSocialHandle
	}

	if maxPossible == 0 {
		return 0.0, nil
	}
	return score / maxPossible, breakdown
}

func normalizeSignals(contact models.ContactEvent) signals {
	var sig signals
	if email := strings.TrimSpace(contact.Email); email != "" {
		sig.email = normalizers.NormalizeEmail(email)
		sig.emailSet = true
	}
	if phone := strings.TrimSpace(contact.Phone); phone != "" {
		sig.phone = normalizers.NormalizePhone(phone)
		sig.phoneSet = true
	}
	if name := strings.TrimSpace(contact.Name); name != "" {
		sig.name = name
		sig.nameSet = true
	}
	if handle, ok := normalizers.ExtractSocialHandle(contact.SocialHandle); ok {
		sig.handle = handle
		sig.handleSet = true
	}
	sig.platform = strings.TrimSpace(contact.Platform)
	return sig
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}

// FormatBreakdown renders a breakdown the way operators read it in logs
func FormatBreakdown(breakdown []models.SignalScore) string {
	parts := make([]string, 0, len(breakdown))
	for _, b := range breakdown {
		if b.Similarity > 0 {
			parts = append(parts, fmt.Sprintf("%s=%s_%.2f", b.Signal, b.Outcome, b.Similarity))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", b.Signal, b.Outcome))
		}
	}
	return strings.Join(parts, " ")
}
