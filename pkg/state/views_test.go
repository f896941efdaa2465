package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/compass-engine/pkg/world"
)

func TestCurrentRoom(t *testing.T) {
	gs := newSmallGame(t)
	gs.World.Rooms["hall"].AddItem("key")

	v := gs.CurrentRoom()

	assert.Equal(t, "hall", v.ID)
	assert.Equal(t, "Hall", v.Name)
	assert.Equal(t, map[world.Direction]string{world.North: "yard"}, v.Exits, "dangling exits are hidden")
	require.Len(t, v.Items, 3, "the hidden flag does not filter items")
	assert.Equal(t, "lamp", v.Items[0].ID)
	assert.False(t, v.Items[1].CanTake)
	assert.Equal(t, "key", v.Items[2].ID)
}

func TestCurrentRoom_UnknownRoom(t *testing.T) {
	gs := newSmallGame(t)
	gs.RoomID = "attic"

	v := gs.CurrentRoom()
	assert.Equal(t, "attic", v.ID)
	assert.Empty(t, v.Exits)
	assert.Empty(t, v.Items)
	assert.Nil(t, gs.AvailableExits())
}

func TestAvailableExits_CompassOrder(t *testing.T) {
	gs := loadGeminiQuest(t)
	assert.Equal(t, world.Directions, gs.AvailableExits())

	gs.Move(world.North)
	assert.Equal(t, []world.Direction{world.West}, gs.AvailableExits())
}

func TestInventoryView(t *testing.T) {
	gs := newSmallGame(t)
	assert.Empty(t, gs.InventoryView())

	gs.PickUp("lamp")
	gs.Inventory = append(gs.Inventory, "ghost")
	items := gs.InventoryView()
	require.Len(t, items, 1)
	assert.Equal(t, ItemView{ID: "lamp", Name: "Lamp", Description: "A brass lamp.", CanTake: true}, items[0])
}

func TestView_JSON(t *testing.T) {
	gs := newSmallGame(t)

	data, err := json.Marshal(gs.View())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "hall", decoded["room_id"])
	assert.Contains(t, decoded, "room")
	assert.Contains(t, decoded, "available_exits")
	assert.Contains(t, decoded, "log")
}
