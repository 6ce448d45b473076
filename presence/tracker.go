package presence

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// SessionContext identifies which instance and group the monitored session
// currently belongs to. A change of instance id is a session boundary.
type SessionContext struct {
	InstanceID string `json:"instanceId"`
	WorldID    string `json:"worldId,omitempty"`
	WorldName  string `json:"worldName,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
}

// Snapshot is a read-only copy of tracker state. It is also the persisted
// layout for the bounded replay buffer: raw event history and rule
// configuration are owned by other collaborators and deliberately excluded.
type Snapshot struct {
	History           []Sample `json:"history"`
	CurrentInstanceID string   `json:"currentInstanceId"`
	CurrentWorldName  string   `json:"currentWorldName"`
	LiveEntities      []Entity `json:"liveEntities"`
}

// Tracker maintains the live occupant set for the current session by applying
// presence events as a fully serialized reducer: receive event, compute next
// state, publish result. Producers funnel into one ordered queue; readers
// take snapshots.
type Tracker struct {
	Logger *slog.Logger

	queue chan Event

	mu sync.RWMutex
	// entities is keyed by stable id when known, else synthetic key
	entities map[string]*Entity
	// byName indexes display name to entity key for events that carry no id
	byName    map[string]string
	history   *History
	session   SessionContext
	observers []func(Snapshot)
}

func NewTracker(logger *slog.Logger, historyCapacity int) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		Logger:   logger,
		queue:    make(chan Event, 1024),
		entities: make(map[string]*Entity),
		byName:   make(map[string]string),
		history:  NewHistory(historyCapacity),
	}
}

// Submit enqueues an event for the reducer. Multiple producers may call this;
// application order is queue order.
func (t *Tracker) Submit(evt Event) {
	t.queue <- evt
}

// Run consumes the queue until the context is cancelled. Expects to be the
// only goroutine applying events.
func (t *Tracker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-t.queue:
			t.Apply(evt)
		}
	}
}

// Apply processes a single event against current state. Serialized; safe to
// call directly in tests or from a single consumer goroutine.
func (t *Tracker) Apply(evt Event) {
	t.mu.Lock()

	var changed bool
	var ts time.Time
	switch {
	case evt.Joined != nil:
		ts = evt.Joined.Timestamp
		changed = t.applyJoined(evt.Joined)
	case evt.Left != nil:
		ts = evt.Left.Timestamp
		changed = t.applyLeft(evt.Left)
	case evt.EntityUpdated != nil:
		ts = evt.EntityUpdated.Timestamp
		changed = t.applyEntityUpdated(evt.EntityUpdated)
	case evt.LocationChanged != nil:
		t.applyLocationChanged(evt.LocationChanged)
	case evt.SessionEnded != nil:
		t.applySessionEnded()
	default:
		t.mu.Unlock()
		t.Logger.Warn("empty presence event, skipping")
		return
	}

	if changed {
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		t.history.Record(ts, t.activeCountLocked())
	}
	eventsApplied.Inc()
	activeOccupants.Set(float64(t.activeCountLocked()))

	snap := t.snapshotLocked()
	observers := make([]func(Snapshot), len(t.observers))
	copy(observers, t.observers)
	t.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (t *Tracker) applyJoined(ev *JoinedEvent) bool {
	ent := t.lookupLocked(ev.SubjectID, ev.DisplayName)
	if ent == nil {
		key := ev.SubjectID
		if key == "" {
			key = SyntheticKey(ev.DisplayName)
		}
		ent = &Entity{
			ID:          key,
			DisplayName: ev.DisplayName,
			Status:      StatusJoining,
			Rank:        RankPending,
		}
		t.entities[key] = ent
		t.byName[ev.DisplayName] = key
	} else if ent.Status == StatusLeft || ent.Status == StatusKicked {
		// rejoin re-enters active without creating a duplicate
		ent.Status = StatusActive
	}
	ent.LastUpdated = eventTime(ev.Timestamp)
	return true
}

func (t *Tracker) applyLeft(ev *LeftEvent) bool {
	ent := t.lookupLocked("", ev.DisplayName)
	if ent == nil {
		// departure for an occupant never seen: keep a minimal placeholder
		// in left state so the record is auditable, instead of dropping
		// the event
		t.Logger.Warn("departure event for unknown occupant", "displayName", ev.DisplayName)
		orderingAnomalies.Inc()
		key := SyntheticKey(ev.DisplayName)
		t.entities[key] = &Entity{
			ID:          key,
			DisplayName: ev.DisplayName,
			Status:      StatusLeft,
			Rank:        RankPending,
			LastUpdated: eventTime(ev.Timestamp),
		}
		t.byName[ev.DisplayName] = key
		return true
	}
	ent.Status = StatusLeft
	ent.LastUpdated = eventTime(ev.Timestamp)
	return true
}

func (t *Tracker) applyEntityUpdated(ev *EntityUpdatedEvent) bool {
	ent := t.lookupLocked(ev.EntityID, ev.DisplayName)
	switch {
	case ent == nil:
		key := ev.EntityID
		if key == "" {
			key = SyntheticKey(ev.DisplayName)
		}
		ent = &Entity{
			ID:          key,
			DisplayName: ev.DisplayName,
			Status:      StatusActive,
			Rank:        RankPending,
		}
		t.entities[key] = ent
		t.byName[ev.DisplayName] = key
	case ev.EntityID != "" && ent.ID != ev.EntityID:
		// a stable id arrived for an occupant tracked under a synthetic
		// key: upgrade the key in place rather than duplicating
		ent = t.mergeIdentityLocked(ent.ID, ev.EntityID)
	}

	// the id-first lookup can resolve past a name-only placeholder created by
	// an earlier join (eg after a display name change); absorb it so one
	// occupant never maps to two entities
	if ev.DisplayName != "" {
		if key, ok := t.byName[ev.DisplayName]; ok && key != ent.ID {
			if other := t.entities[key]; other != nil && !other.HasStableID() {
				if other.Status == StatusJoining && (ent.Status == StatusLeft || ent.Status == StatusKicked) {
					// the placeholder recorded a real join
					ent.Status = StatusActive
				}
				delete(t.entities, key)
			}
		}
	}

	if ent.Status == StatusJoining {
		ent.Status = StatusActive
	}
	if ev.DisplayName != "" && ev.DisplayName != ent.DisplayName {
		delete(t.byName, ent.DisplayName)
		ent.DisplayName = ev.DisplayName
		t.byName[ev.DisplayName] = ent.ID
	}
	if ev.Rank != "" {
		ent.Rank = ev.Rank
	}
	ent.IsGroupMember = ev.IsGroupMember
	if ev.AvatarURL != "" {
		ent.AvatarURL = ev.AvatarURL
	}
	if ev.FriendStatus != "" {
		ent.FriendStatus = ev.FriendStatus
	}
	if ev.AgeVerified {
		ent.AgeVerified = true
	}
	if ev.Encounters > 0 {
		ent.Encounters = ev.Encounters
	}
	ent.LastUpdated = eventTime(ev.Timestamp)
	return true
}

func (t *Tracker) applyLocationChanged(ev *LocationChangedEvent) {
	if ev.InstanceID == t.session.InstanceID {
		// same instance: idempotent rejoin, only refresh descriptive
		// metadata, never wipe history
		t.session.WorldID = ev.WorldID
		if ev.WorldName != "" {
			t.session.WorldName = ev.WorldName
		}
		if ev.GroupID != "" {
			t.session.GroupID = ev.GroupID
		}
		return
	}

	// session boundary: population from a different instance has no bearing
	// here
	t.Logger.Info("instance changed, resetting occupancy state",
		"prevInstance", t.session.InstanceID, "instance", ev.InstanceID, "world", ev.WorldName)
	sessionResets.Inc()
	t.resetLocked()
	t.session = SessionContext{
		InstanceID: ev.InstanceID,
		WorldID:    ev.WorldID,
		WorldName:  ev.WorldName,
		GroupID:    ev.GroupID,
	}
}

func (t *Tracker) applySessionEnded() {
	t.Logger.Info("session ended, clearing occupancy state", "instance", t.session.InstanceID)
	sessionResets.Inc()
	t.resetLocked()
	t.session = SessionContext{}
}

// lookupLocked is the two-phase entity lookup: stable id first, display-name
// index second.
func (t *Tracker) lookupLocked(id, displayName string) *Entity {
	if id != "" {
		if ent, ok := t.entities[id]; ok {
			return ent
		}
	}
	if displayName != "" {
		if key, ok := t.byName[displayName]; ok {
			return t.entities[key]
		}
	}
	return nil
}

// mergeIdentityLocked upgrades a display-name-keyed entity to its stable id.
// Atomic from the reducer's point of view: there is never a transient state
// with two entities for one occupant.
func (t *Tracker) mergeIdentityLocked(oldKey, newKey string) *Entity {
	ent := t.entities[oldKey]
	delete(t.entities, oldKey)
	if existing, ok := t.entities[newKey]; ok {
		// both keys were tracked; the stable-id entity wins and absorbs
		// the placeholder
		ent = existing
	} else {
		ent.ID = newKey
		t.entities[newKey] = ent
	}
	t.byName[ent.DisplayName] = newKey
	return ent
}

func (t *Tracker) resetLocked() {
	t.entities = make(map[string]*Entity)
	t.byName = make(map[string]string)
	t.history.Reset()
}

func (t *Tracker) activeCountLocked() int {
	n := 0
	for _, ent := range t.entities {
		if ent.Status == StatusActive {
			n++
		}
	}
	return n
}

// MarkKicked transitions an active occupant to kicked, for removals by
// moderative action rather than voluntary departure. The id may be a stable
// id or a display name.
func (t *Tracker) MarkKicked(id string) bool {
	t.mu.Lock()
	ent := t.lookupLocked(id, id)
	if ent == nil || (ent.Status != StatusActive && ent.Status != StatusJoining) {
		t.mu.Unlock()
		return false
	}
	ent.Status = StatusKicked
	ent.LastUpdated = time.Now().UTC()
	t.history.Record(ent.LastUpdated, t.activeCountLocked())
	snap := t.snapshotLocked()
	observers := make([]func(Snapshot), len(t.observers))
	copy(observers, t.observers)
	t.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
	return true
}

// Session returns the current session context.
func (t *Tracker) Session() SessionContext {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.session
}

// Snapshot returns a read-only copy of current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	entities := make([]Entity, 0, len(t.entities))
	for _, ent := range t.entities {
		entities = append(entities, *ent)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].DisplayName < entities[j].DisplayName })
	return Snapshot{
		History:           t.history.Samples(),
		CurrentInstanceID: t.session.InstanceID,
		CurrentWorldName:  t.session.WorldName,
		LiveEntities:      entities,
	}
}

// Restore replaces tracker state with a persisted snapshot, eg across a
// restart within the same session.
func (t *Tracker) Restore(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetLocked()
	t.history.Restore(snap.History)
	t.session = SessionContext{
		InstanceID: snap.CurrentInstanceID,
		WorldName:  snap.CurrentWorldName,
	}
	for i := range snap.LiveEntities {
		ent := snap.LiveEntities[i]
		t.entities[ent.ID] = &ent
		t.byName[ent.DisplayName] = ent.ID
	}
}

// Subscribe registers a callback fired after each applied event, with the
// resulting snapshot. Callbacks run on the reducer goroutine and should be
// fast.
func (t *Tracker) Subscribe(fn func(Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

func eventTime(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts
}
