package automod

// AgeStatusVerified is the directory's marker for a completed 18+ age
// verification.
const AgeStatusVerified = "18+"

// Candidate is the subject of an evaluation: a prospective joiner or an
// existing occupant. Read-only input; the engine never mutates it.
type Candidate struct {
	ID                    string   `json:"id"`
	DisplayName           string   `json:"displayName"`
	Bio                   string   `json:"bio,omitempty"`
	StatusDescription     string   `json:"statusDescription,omitempty"`
	Pronouns              string   `json:"pronouns,omitempty"`
	Tags                  []string `json:"tags,omitempty"`
	AgeVerified           bool     `json:"ageVerified"`
	AgeVerificationStatus string   `json:"ageVerificationStatus,omitempty"`
	// GroupMemberships is only needed when a group blacklist rule is active;
	// it may be absent from a directory profile and fetched separately.
	GroupMemberships []string `json:"groupMemberships,omitempty"`

	// Partial indicates a directory fetch failed and only locally-known
	// fields are populated. Decisions made from a partial candidate carry
	// IncompleteData.
	Partial bool `json:"partial,omitempty"`
}
