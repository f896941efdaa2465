package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorld() *World {
	return &World{
		Name:      "Test",
		StartRoom: "hall",
		Rooms: map[string]*Room{
			"hall": {
				ID:    "hall",
				Name:  "Hall",
				Exits: map[Direction]string{North: "attic"},
				Items: []string{"lamp", "rope"},
			},
			"attic": {
				ID:    "attic",
				Name:  "Attic",
				Exits: map[Direction]string{South: "hall"},
				Items: []string{},
			},
		},
		Items: map[string]Item{
			"lamp": {ID: "lamp", Name: "Lamp", CanTake: true},
			"rope": {ID: "rope", Name: "Rope", CanTake: true},
		},
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input string
		want  Direction
		ok    bool
	}{
		{"n", North, true},
		{"N", North, true},
		{"north", North, true},
		{"northeast", NorthEast, true},
		{"north-east", NorthEast, true},
		{"south west", SouthWest, true},
		{" nw ", NorthWest, true},
		{"up", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDirection(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirection_LabelAndName(t *testing.T) {
	assert.Equal(t, "NE", NorthEast.Label())
	assert.Equal(t, "northeast", NorthEast.Name())
	assert.False(t, Direction("up").Valid())
	assert.Len(t, Directions, 8)
}

func TestWorld_Lookups(t *testing.T) {
	w := newTestWorld()

	r, ok := w.Room("hall")
	require.True(t, ok)
	assert.Equal(t, "Hall", r.Name)

	_, ok = w.Room("cellar")
	assert.False(t, ok, "unknown rooms are absent")
	_, ok = w.Room("")
	assert.False(t, ok)

	it, ok := w.Item("lamp")
	require.True(t, ok)
	assert.Equal(t, "Lamp", it.Name)

	_, ok = w.Item("sword")
	assert.False(t, ok)

	var nilWorld *World
	_, ok = nilWorld.Room("hall")
	assert.False(t, ok)
}

func TestRoom_ItemMutation(t *testing.T) {
	r := newTestWorld().Rooms["hall"]

	assert.True(t, r.HasItem("lamp"))
	assert.True(t, r.RemoveItem("lamp"))
	assert.False(t, r.HasItem("lamp"))
	assert.False(t, r.RemoveItem("lamp"), "second removal finds nothing")
	assert.Equal(t, []string{"rope"}, r.Items)

	r.AddItem("lamp")
	assert.Equal(t, []string{"rope", "lamp"}, r.Items)

	taken := r.TakeAllItems()
	assert.Equal(t, []string{"rope", "lamp"}, taken)
	assert.Empty(t, r.Items)
}

func TestRoom_Exits(t *testing.T) {
	r := &Room{ID: "cave"}

	_, ok := r.Exit(North)
	assert.False(t, ok)

	r.SetExit(North, "not_built_yet")
	target, ok := r.Exit(North)
	assert.True(t, ok)
	assert.Equal(t, "not_built_yet", target)
}

func TestWorld_Clone(t *testing.T) {
	w := newTestWorld()
	c := w.Clone()

	c.Rooms["hall"].RemoveItem("lamp")
	c.Rooms["hall"].SetExit(East, "attic")

	assert.True(t, w.Rooms["hall"].HasItem("lamp"), "original items untouched")
	_, ok := w.Rooms["hall"].Exit(East)
	assert.False(t, ok, "original exits untouched")
	assert.Equal(t, w.StartRoom, c.StartRoom)
	assert.Len(t, c.Items, 2)
}

func TestEvent_Matches(t *testing.T) {
	anyItem := Event{Trigger: TriggerOnUseItem}
	shovelOnly := Event{Trigger: TriggerOnUseItem, TriggerID: "shovel"}

	assert.True(t, anyItem.Matches(TriggerOnUseItem, "lamp"))
	assert.False(t, anyItem.Matches(TriggerOnPickUp, "lamp"))
	assert.True(t, shovelOnly.Matches(TriggerOnUseItem, "shovel"))
	assert.False(t, shovelOnly.Matches(TriggerOnUseItem, "lamp"))
}
