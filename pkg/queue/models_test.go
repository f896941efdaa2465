package queue

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/compass-engine/pkg/state"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

func TestRequest_RoundTrip(t *testing.T) {
	id := uuid.New()
	req := NewIntentRequest(id, state.Intent{Kind: state.IntentMove, Direction: world.North})

	data, err := req.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"game_state_id":"`+id.String()+`"`)

	got, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, req.RequestID, got.RequestID)
	assert.Equal(t, RequestTypeIntent, got.Type)
	assert.Equal(t, id, got.GameStateID)
	require.NotNil(t, got.Intent)
	assert.Equal(t, world.North, got.Intent.Direction)
	assert.Empty(t, got.Command)
}

func TestFromJSON_BadGameStateID(t *testing.T) {
	_, err := FromJSON([]byte(`{"request_id":"r","type":"intent","game_state_id":"nope"}`))
	assert.Error(t, err)
}

func TestRequest_Validate(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name    string
		req     *Request
		wantErr string
	}{
		{"intent", NewIntentRequest(id, state.Intent{Kind: state.IntentLook}), ""},
		{"command", NewCommandRequest(id, "take shovel"), ""},
		{"missing game", NewCommandRequest(uuid.Nil, "look"), "game_state_id is required"},
		{"empty intent", NewIntentRequest(id, state.Intent{}), "requires an intent kind"},
		{"empty command", NewCommandRequest(id, ""), "requires a command"},
		{"unknown type", &Request{Type: "chat", GameStateID: id}, "unknown request type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
