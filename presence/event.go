package presence

import "time"

// Event is one unit of the occupancy stream emitted by the external
// log-watcher bridge. Exactly one field is set.
type Event struct {
	Joined          *JoinedEvent
	Left            *LeftEvent
	LocationChanged *LocationChangedEvent
	EntityUpdated   *EntityUpdatedEvent
	SessionEnded    *SessionEndedEvent
}

// JoinedEvent announces an occupant entering the session. Early join lines
// often carry only a display name; the stable id arrives later in an
// EntityUpdatedEvent and the two are reconciled into one entity.
type JoinedEvent struct {
	DisplayName string    `json:"displayName"`
	SubjectID   string    `json:"subjectId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// LeftEvent announces an occupant leaving. The upstream log only ever has a
// display name for departures.
type LeftEvent struct {
	DisplayName string    `json:"displayName"`
	Timestamp   time.Time `json:"timestamp"`
}

// LocationChangedEvent announces the monitored client moving to an instance.
// A repeated event for the same instance id is an idempotent rejoin, not a
// session boundary.
type LocationChangedEvent struct {
	InstanceID string    `json:"instanceId"`
	WorldID    string    `json:"worldId"`
	WorldName  string    `json:"worldName,omitempty"`
	GroupID    string    `json:"groupId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EntityUpdatedEvent enriches a tracked occupant with directory metadata,
// including the stable id for occupants previously known only by display
// name.
type EntityUpdatedEvent struct {
	EntityID      string    `json:"entityId"`
	DisplayName   string    `json:"displayName"`
	Rank          string    `json:"rank,omitempty"`
	IsGroupMember bool      `json:"isGroupMember"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	FriendStatus  string    `json:"friendStatus,omitempty"`
	AgeVerified   bool      `json:"ageVerified,omitempty"`
	Encounters    int       `json:"encounters,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// SessionEndedEvent announces that the monitored process exited. No further
// inference about the closed session is meaningful.
type SessionEndedEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
