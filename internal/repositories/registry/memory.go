// Package registry provides the identity store backends: an in-memory
// registry for tests and single-node deployments, and a Postgres-backed one.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Memory is an in-memory identity registry. A single RWMutex guards the map:
// snapshots take the read lock, create and merge take the write lock, which
// makes the duplicate-email check-and-insert atomic and keeps scans from
// observing a half-applied merge.
type Memory struct {
	mu                 sync.RWMutex
	identities         map[string]*models.Identity
	enforceUniqueEmail bool
	logger             ectologger.Logger
}

// NewMemory creates an empty in-memory registry
func NewMemory(logger ectologger.Logger, enforceUniqueEmail bool) *Memory {
	return &Memory{
		identities:         make(map[string]*models.Identity),
		enforceUniqueEmail: enforceUniqueEmail,
		logger:             logger,
	}
}

// Create registers a new verified identity with normalized fields
func (m *Memory) Create(ctx context.Context, req models.CreateIdentityRequest) (*models.Identity, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", identity.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", identity.ErrInvalidInput)
	}

	now := time.Now().UTC()
	ident := &models.Identity{
		ID:                 uuid.NewString(),
		CanonicalEmail:     normalizers.NormalizeEmail(req.Email),
		CanonicalName:      strings.TrimSpace(req.Name),
		PhoneNumbers:       []string{},
		SocialHandles:      map[string]string{},
		AlternativeEmails:  []string{},
		ConfidenceScore:    1.0,
		VerificationStatus: models.VerificationStatusVerified,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if strings.TrimSpace(req.Phone) != "" {
		ident.PhoneNumbers = append(ident.PhoneNumbers, normalizers.NormalizePhone(req.Phone))
	}
	for platform, handle := range req.SocialHandles {
		ident.SocialHandles[platform] = handle
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.enforceUniqueEmail {
		for _, existing := range m.identities {
			if existing.CanonicalEmail == ident.CanonicalEmail {
				return nil, fmt.Errorf("%w: %s", identity.ErrDuplicateCanonicalEmail, ident.CanonicalEmail)
			}
		}
	}

	m.identities[ident.ID] = ident

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"identity_id":     ident.ID,
		"canonical_email": ident.CanonicalEmail,
	}).Info("Created identity")

	return ident.Clone(), nil
}

// Get returns a copy of the identity with the given id
func (m *Memory) Get(ctx context.Context, id string) (*models.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ident, ok := m.identities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", identity.ErrIdentityNotFound, id)
	}
	return ident.Clone(), nil
}

// Snapshot returns copies of every identity, ordered by id so scans are
// deterministic
func (m *Memory) Snapshot(ctx context.Context) ([]models.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make([]models.Identity, 0, len(m.identities))
	for _, ident := range m.identities {
		snapshot = append(snapshot, *ident.Clone())
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })
	return snapshot, nil
}

// Merge folds the secondary identity into the primary and destroys the
// secondary. The secondary's id is never reused.
func (m *Memory) Merge(ctx context.Context, primaryID, secondaryID string) (*models.Identity, error) {
	if primaryID == secondaryID {
		return nil, fmt.Errorf("%w: cannot merge an identity with itself", identity.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	primary, ok := m.identities[primaryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", identity.ErrIdentityNotFound, primaryID)
	}
	secondary, ok := m.identities[secondaryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", identity.ErrIdentityNotFound, secondaryID)
	}

	mergeInto(primary, secondary)
	primary.UpdatedAt = time.Now().UTC()
	delete(m.identities, secondaryID)

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"primary_id":   primaryID,
		"secondary_id": secondaryID,
	}).Info("Merged identities")

	return primary.Clone(), nil
}

// Report aggregates registry statistics
func (m *Memory) Report(ctx context.Context) (*models.UnificationReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := &models.UnificationReport{}
	total := 0.0
	for _, ident := range m.identities {
		report.TotalIdentities++
		total += ident.ConfidenceScore
		switch ident.VerificationStatus {
		case models.VerificationStatusVerified:
			report.Verified++
		case models.VerificationStatusNeedsReview:
			report.NeedsReview++
		case models.VerificationStatusAutoMatched:
			report.AutoMatched++
		}
	}
	if report.TotalIdentities > 0 {
		report.AvgConfidence = total / float64(report.TotalIdentities)
	}
	return report, nil
}

// mergeInto unions the secondary's signals into the primary: phones are
// deduplicated, platform handles are never overwritten, and the secondary's
// canonical email becomes an alternative of the primary
func mergeInto(primary, secondary *models.Identity) {
	for _, phone := range secondary.PhoneNumbers {
		if !primary.HasPhone(phone) {
			primary.PhoneNumbers = append(primary.PhoneNumbers, phone)
		}
	}
	for platform, handle := range secondary.SocialHandles {
		if _, ok := primary.SocialHandles[platform]; !ok {
			primary.SocialHandles[platform] = handle
		}
	}
	for _, alt := range secondary.AlternativeEmails {
		if alt != primary.CanonicalEmail && !primary.HasAlternativeEmail(alt) {
			primary.AlternativeEmails = append(primary.AlternativeEmails, alt)
		}
	}
	if secondary.CanonicalEmail != primary.CanonicalEmail && !primary.HasAlternativeEmail(secondary.CanonicalEmail) {
		primary.AlternativeEmails = append(primary.AlternativeEmails, secondary.CanonicalEmail)
	}
}
