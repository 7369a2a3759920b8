package models

import "strings"

// MatchAction is the resolution outcome for an incoming contact
type MatchAction string

const (
	// MatchActionAutoMatch links the contact to the best candidate without review
	MatchActionAutoMatch MatchAction = "auto_match"
	// MatchActionNeedsReview queues the candidate pair for a human decision
	MatchActionNeedsReview MatchAction = "needs_review"
	// MatchActionCreateNew recommends creating a fresh identity
	MatchActionCreateNew MatchAction = "create_new"
)

// ContactEvent is an inbound contact observation from some channel. All
// fields are free-form text; a field is a signal only if it is non-blank.
type ContactEvent struct {
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Name         string `json:"name,omitempty"`
	SocialHandle string `json:"social_handle,omitempty"`
	Platform     string `json:"platform,omitempty"`
}

// HasSignals reports whether at least one matchable field was supplied
func (c ContactEvent) HasSignals() bool {
	return strings.TrimSpace(c.Email) != "" ||
		strings.TrimSpace(c.Phone) != "" ||
		strings.TrimSpace(c.Name) != "" ||
		strings.TrimSpace(c.SocialHandle) != ""
}

// SignalScore is the per-signal diagnostic entry in a match breakdown.
// Outcome values mirror the scoring path taken: "exact", "alt_exact",
// "fuzzy", "strong", "none".
type SignalScore struct {
	Signal     string  `json:"signal"`
	Outcome    string  `json:"outcome"`
	Similarity float64 `json:"similarity,omitempty"`
	Weighted   float64 `json:"weighted"`
}

// MatchResult is the outcome of resolving a contact against the registry.
// Breakdown is diagnostic output for the caller's logs, not for branching.
type MatchResult struct {
	Identity   *Identity     `json:"identity,omitempty"`
	Confidence float64       `json:"confidence"`
	Action     MatchAction   `json:"action"`
	Breakdown  []SignalScore `json:"breakdown,omitempty"`
}
