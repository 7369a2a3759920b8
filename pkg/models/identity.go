package models

import (
	"time"
)

// VerificationStatus describes how an identity earned its place in the registry
type VerificationStatus string

const (
	// VerificationStatusVerified means the identity was explicitly created or human-confirmed
	VerificationStatusVerified VerificationStatus = "verified"
	// VerificationStatusNeedsReview means a match landed between the review and verification thresholds
	VerificationStatusNeedsReview VerificationStatus = "needs_review"
	// VerificationStatusAutoMatched means the identity was linked automatically above the verification threshold
	VerificationStatusAutoMatched VerificationStatus = "auto_matched"
)

// Identity is the canonical, de-duplicated record for one real-world contact.
// CanonicalEmail and AlternativeEmails are always stored normalized;
// PhoneNumbers holds normalized values with no duplicates.
type Identity struct {
	ID                 string             `json:"id" db:"id"`
	CanonicalEmail     string             `json:"canonical_email" db:"canonical_email"`
	CanonicalName      string             `json:"canonical_name" db:"canonical_name"`
	PhoneNumbers       []string           `json:"phone_numbers"`
	SocialHandles      map[string]string  `json:"social_handles"` // platform -> handle
	AlternativeEmails  []string           `json:"alternative_emails"`
	ConfidenceScore    float64            `json:"confidence_score" db:"confidence_score"`
	VerificationStatus VerificationStatus `json:"verification_status" db:"verification_status"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy so store snapshots can be scanned without holding locks
func (i *Identity) Clone() *Identity {
	c := *i
	c.PhoneNumbers = append([]string(nil), i.PhoneNumbers...)
	c.AlternativeEmails = append([]string(nil), i.AlternativeEmails...)
	c.SocialHandles = make(map[string]string, len(i.SocialHandles))
	for platform, handle := range i.SocialHandles {
		c.SocialHandles[platform] = handle
	}
	return &c
}

// HasPhone reports whether the identity already holds the normalized phone
func (i *Identity) HasPhone(normalized string) bool {
	for _, p := range i.PhoneNumbers {
		if p == normalized {
			return true
		}
	}
	return false
}

// HasAlternativeEmail reports whether the identity already holds the normalized email as an alternative
func (i *Identity) HasAlternativeEmail(normalized string) bool {
	for _, e := range i.AlternativeEmails {
		if e == normalized {
			return true
		}
	}
	return false
}

// CreateIdentityRequest is the request for explicitly creating a verified identity
type CreateIdentityRequest struct {
	Email         string            `json:"email" validate:"required"`
	Name          string            `json:"name" validate:"required"`
	Phone         string            `json:"phone,omitempty"`
	SocialHandles map[string]string `json:"social_handles,omitempty"`
}

// MergeIdentitiesRequest folds the secondary identity's signals into the
// primary and removes the secondary. The caller chooses which side survives.
type MergeIdentitiesRequest struct {
	PrimaryID   string `json:"primary_id" validate:"required"`
	SecondaryID string `json:"secondary_id" validate:"required"`
}

// IdentityListResponse is the response for enumerating identities
type IdentityListResponse struct {
	Items      []Identity `json:"items"`
	TotalCount int        `json:"total_count"`
}

// UnificationReport aggregates registry statistics
type UnificationReport struct {
	TotalIdentities int     `json:"total_identities"`
	Verified        int     `json:"verified"`
	NeedsReview     int     `json:"needs_review"`
	AutoMatched     int     `json:"auto_matched"`
	AvgConfidence   float64 `json:"avg_confidence"`
}
