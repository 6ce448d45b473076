package presence

import (
	"fmt"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
)

// Status of a tracked occupant. Transitions are append-only: left and kicked
// entities are retained for session-scoped history, and only a fresh join
// re-enters active.
type Status string

const (
	StatusJoining Status = "joining"
	StatusActive  Status = "active"
	StatusLeft    Status = "left"
	StatusKicked  Status = "kicked"
)

// RankPending is the trust classification placeholder used until directory
// enrichment arrives.
const RankPending = "pending"

// Entity is one tracked occupant of the live session, identity-reconciled
// across events.
type Entity struct {
	// ID is the stable directory id when known, otherwise a synthetic key
	// derived from the display name.
	ID            string    `json:"id"`
	DisplayName   string    `json:"displayName"`
	Status        Status    `json:"status"`
	Rank          string    `json:"rank"`
	IsGroupMember bool      `json:"isGroupMember"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	FriendStatus  string    `json:"friendStatus,omitempty"`
	AgeVerified   bool      `json:"ageVerified,omitempty"`
	Encounters    int       `json:"encounters,omitempty"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// SyntheticKey returns a stable key for an occupant known only by display
// name, until the upstream supplies a real id. Uses a fast, compact murmur3
// hash with hex encoding.
func SyntheticKey(displayName string) string {
	return fmt.Sprintf("name:%016x", murmur3.Sum64([]byte(displayName)))
}

// HasStableID reports whether the entity has been reconciled to a directory
// id.
func (e *Entity) HasStableID() bool {
	return e.ID != "" && !strings.HasPrefix(e.ID, "name:")
}
