package interceptlog

import (
	"context"
	"errors"
	"time"

	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod"
)

// DefaultCapacity is how many recent entries the hot log keeps. Longer-term
// history is an external collaborator's concern.
const DefaultCapacity = 50

var ErrNotFound = errors.New("interception entry not found")

// Entry is one recorded interception: a decision taken against a subject at a
// point in time. Entries are historical records; reversing the underlying
// action (eg, unbanning) does not alter them.
type Entry struct {
	ID                 int64            `json:"id"`
	Timestamp          time.Time        `json:"timestamp"`
	SubjectID          string           `json:"subjectId"`
	SubjectDisplayName string           `json:"subjectDisplayName"`
	SessionGroupID     string           `json:"sessionGroupId,omitempty"`
	Decision           automod.Decision `json:"decision"`
}

// InterceptionLog is an append-only, capacity-bounded record of moderation
// decisions, newest first. Appends past capacity evict the oldest entry and
// never reject the newest write. Repeated interceptions of the same subject
// each get a distinct entry.
type InterceptionLog interface {
	// Append stores the entry and returns its assigned id.
	Append(ctx context.Context, entry Entry) (int64, error)
	// List returns up to limit entries, newest first. A non-positive limit
	// returns everything retained.
	List(ctx context.Context, limit int) ([]Entry, error)
	// Remove dismisses a single entry by id.
	Remove(ctx context.Context, id int64) error
	// Count returns the total number of interceptions ever appended,
	// including evicted ones.
	Count(ctx context.Context) (int64, error)
}
