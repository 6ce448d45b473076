package logwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWireEvent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	evt, err := decodeWireEvent([]byte(`{"type":"player_joined","displayName":"Alice","subjectId":"u_1","timestamp":"2025-06-01T12:00:00Z"}`))
	require.NoError(err)
	require.NotNil(evt.Joined)
	assert.Equal("Alice", evt.Joined.DisplayName)
	assert.Equal("u_1", evt.Joined.SubjectID)

	evt, err = decodeWireEvent([]byte(`{"type":"player_left","displayName":"Alice"}`))
	require.NoError(err)
	require.NotNil(evt.Left)
	assert.Equal("Alice", evt.Left.DisplayName)

	evt, err = decodeWireEvent([]byte(`{"type":"player_updated","entityId":"u_1","displayName":"Alice","rank":"trusted","isGroupMember":true,"ageVerified":true}`))
	require.NoError(err)
	require.NotNil(evt.EntityUpdated)
	assert.Equal("u_1", evt.EntityUpdated.EntityID)
	assert.Equal("trusted", evt.EntityUpdated.Rank)
	assert.True(evt.EntityUpdated.IsGroupMember)
	assert.True(evt.EntityUpdated.AgeVerified)

	evt, err = decodeWireEvent([]byte(`{"type":"location_changed","instanceId":"inst_A","worldId":"wrld_1","worldName":"Lobby","groupId":"grp_1"}`))
	require.NoError(err)
	require.NotNil(evt.LocationChanged)
	assert.Equal("inst_A", evt.LocationChanged.InstanceID)
	assert.Equal("grp_1", evt.LocationChanged.GroupID)

	evt, err = decodeWireEvent([]byte(`{"type":"session_ended"}`))
	require.NoError(err)
	require.NotNil(evt.SessionEnded)
}

func TestDecodeWireEventErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := decodeWireEvent([]byte(`{not json`))
	assert.Error(err)

	_, err = decodeWireEvent([]byte(`{"type":"avatar_changed"}`))
	assert.Error(err)
}
