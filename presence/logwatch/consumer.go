package logwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"

	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/presence"
)

// wireEvent is one message from the client log relay. The relay tails the
// local game log and forwards parsed lines as JSON; the type field selects
// which of the optional payloads is populated.
type wireEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	DisplayName string `json:"displayName,omitempty"`
	SubjectID   string `json:"subjectId,omitempty"`

	InstanceID string `json:"instanceId,omitempty"`
	WorldID    string `json:"worldId,omitempty"`
	WorldName  string `json:"worldName,omitempty"`
	GroupID    string `json:"groupId,omitempty"`

	EntityID      string `json:"entityId,omitempty"`
	Rank          string `json:"rank,omitempty"`
	IsGroupMember bool   `json:"isGroupMember,omitempty"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	FriendStatus  string `json:"friendStatus,omitempty"`
	AgeVerified   bool   `json:"ageVerified,omitempty"`
	Encounters    int    `json:"encounters,omitempty"`
}

const (
	wirePlayerJoined    = "player_joined"
	wirePlayerLeft      = "player_left"
	wirePlayerUpdated   = "player_updated"
	wireLocationChanged = "location_changed"
	wireSessionEnded    = "session_ended"
)

// decodeWireEvent maps a relay message onto the tracker's event union.
func decodeWireEvent(raw []byte) (presence.Event, error) {
	var we wireEvent
	if err := json.Unmarshal(raw, &we); err != nil {
		return presence.Event{}, fmt.Errorf("parsing log relay message: %w", err)
	}
	switch we.Type {
	case wirePlayerJoined:
		return presence.Event{Joined: &presence.JoinedEvent{
			DisplayName: we.DisplayName,
			SubjectID:   we.SubjectID,
			Timestamp:   we.Timestamp,
		}}, nil
	case wirePlayerLeft:
		return presence.Event{Left: &presence.LeftEvent{
			DisplayName: we.DisplayName,
			Timestamp:   we.Timestamp,
		}}, nil
	case wirePlayerUpdated:
		return presence.Event{EntityUpdated: &presence.EntityUpdatedEvent{
			EntityID:      we.EntityID,
			DisplayName:   we.DisplayName,
			Rank:          we.Rank,
			IsGroupMember: we.IsGroupMember,
			AvatarURL:     we.AvatarURL,
			FriendStatus:  we.FriendStatus,
			AgeVerified:   we.AgeVerified,
			Encounters:    we.Encounters,
			Timestamp:     we.Timestamp,
		}}, nil
	case wireLocationChanged:
		return presence.Event{LocationChanged: &presence.LocationChangedEvent{
			InstanceID: we.InstanceID,
			WorldID:    we.WorldID,
			WorldName:  we.WorldName,
			GroupID:    we.GroupID,
			Timestamp:  we.Timestamp,
		}}, nil
	case wireSessionEnded:
		return presence.Event{SessionEnded: &presence.SessionEndedEvent{
			Timestamp: we.Timestamp,
		}}, nil
	default:
		return presence.Event{}, fmt.Errorf("unknown log relay event type: %q", we.Type)
	}
}

// LogStreamConsumer subscribes to the client log relay over websocket and
// feeds decoded events into the tracker's queue.
type LogStreamConsumer struct {
	Logger  *slog.Logger
	Host    string
	Tracker *presence.Tracker
}

// Run dials the relay and consumes messages until the context is cancelled or
// the stream breaks. A broken stream ends the live session, so a session-ended
// event is submitted before returning; the caller decides whether to
// reconnect.
func (lc *LogStreamConsumer) Run(ctx context.Context) error {
	u, err := url.Parse(lc.Host)
	if err != nil {
		return fmt.Errorf("invalid log relay URI: %w", err)
	}
	u.Path = "/stream/log"

	lc.Logger.Info("subscribing to log relay event stream", "upstream", lc.Host)
	con, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), http.Header{
		"User-Agent": []string{fmt.Sprintf("groupguard/%s", versioninfo.Short())},
	})
	if err != nil {
		return fmt.Errorf("subscribing to log relay failed (dialing): %w", err)
	}
	defer con.Close()

	go func() {
		<-ctx.Done()
		con.Close()
	}()

	for {
		_, raw, err := con.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			lc.Tracker.Submit(presence.Event{SessionEnded: &presence.SessionEndedEvent{Timestamp: time.Now().UTC()}})
			return fmt.Errorf("reading from log relay: %w", err)
		}
		evt, err := decodeWireEvent(raw)
		if err != nil {
			lc.Logger.Warn("skipping undecodable relay message", "err", err)
			eventsDropped.Inc()
			continue
		}
		lc.Tracker.Submit(evt)
		eventsReceived.Inc()
	}
}

// RunWithReconnect runs the consumer in a retry loop with linear backoff,
// until the context is cancelled.
func (lc *LogStreamConsumer) RunWithReconnect(ctx context.Context) error {
	for {
		err := lc.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		lc.Logger.Warn("log relay stream disconnected, will reconnect", "err", err)
		reconnects.Inc()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
		}
	}
}
