package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/compass-engine/pkg/world"
)

func texts(entries []LogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

func TestMove_NoExitLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name string
		dir  world.Direction
	}{
		{name: "no exit", dir: world.West},
		{name: "dangling exit", dir: world.East},
		{name: "invalid direction", dir: world.Direction("up")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := newSmallGame(t)
			gs.Inventory = append(gs.Inventory, "lamp")
			gs.SetFlag("f")
			before := len(gs.Log)

			entries := gs.Move(tt.dir)

			assert.Nil(t, entries)
			assert.Equal(t, "hall", gs.RoomID)
			assert.Equal(t, []string{"lamp"}, gs.Inventory)
			assert.Equal(t, map[string]bool{"f": true}, gs.Flags)
			assert.Len(t, gs.Log, before)
		})
	}
}

func TestMove_LogsSystemLineThenDescription(t *testing.T) {
	gs := newSmallGame(t)

	entries := gs.Move(world.North)

	require.Len(t, entries, 2)
	assert.Equal(t, LogSystem, entries[0].Kind)
	assert.Equal(t, "[Moving N]", entries[0].Text)
	assert.Equal(t, LogNarrative, entries[1].Kind)
	assert.Equal(t, "An overgrown yard.", entries[1].Text)
	assert.Equal(t, "yard", gs.RoomID)
	assert.Len(t, gs.Log, 3)
}

func TestMove_OnEnterFlagGatedFiresOnce(t *testing.T) {
	w := smallWorld()
	w.Rooms["yard"].Events = []world.Event{{
		Trigger: world.TriggerOnEnter,
		When:    whenFlag("!visited_yard"),
		Action:  world.ActionMessage,
		Message: "Weeds brush your ankles.",
		SetFlag: "visited_yard",
	}}
	gs, err := NewGameState("small", w)
	require.NoError(t, err)

	first := gs.Move(world.North)
	assert.Equal(t, []string{"[Moving N]", "Weeds brush your ankles.", "An overgrown yard."}, texts(first))
	assert.Equal(t, LogEvent, first[1].Kind)
	assert.True(t, gs.GetFlag("visited_yard"))

	gs.Move(world.South)
	second := gs.Move(world.North)
	assert.Equal(t, []string{"[Moving N]", "An overgrown yard."}, texts(second))
}

func TestMove_UnconditionalEventFiresEveryTime(t *testing.T) {
	w := smallWorld()
	w.Rooms["yard"].Events = []world.Event{{
		Trigger: world.TriggerOnEnter,
		Action:  world.ActionMessage,
		Message: "A crow caws.",
	}}
	gs, err := NewGameState("small", w)
	require.NoError(t, err)

	for range 3 {
		entries := gs.Move(world.North)
		assert.Contains(t, texts(entries), "A crow caws.")
		gs.Move(world.South)
	}
}

func TestMove_TeleportOverridesNarration(t *testing.T) {
	w := smallWorld()
	w.Rooms["yard"].Events = []world.Event{{
		Trigger:  world.TriggerOnEnter,
		Action:   world.ActionTeleport,
		Teleport: &world.TeleportParams{TargetRoomID: "hall"},
		Message:  "The ground gives way.",
	}}
	gs, err := NewGameState("small", w)
	require.NoError(t, err)

	entries := gs.Move(world.North)

	assert.Equal(t, "hall", gs.RoomID)
	assert.Equal(t, []string{"[Moving N]", "The ground gives way.", "A long hall."}, texts(entries))
	last := gs.Log[len(gs.Log)-1]
	assert.Equal(t, LogNarrative, last.Kind)
	assert.Equal(t, "A long hall.", last.Text)
	assert.NotContains(t, texts(entries), "An overgrown yard.")
}

func TestLook(t *testing.T) {
	gs := newSmallGame(t)
	entries := gs.Look()
	require.Len(t, entries, 1)
	assert.Equal(t, LogNarrative, entries[0].Kind)
	assert.Equal(t, "A long hall.", entries[0].Text)
}

func TestPickUp(t *testing.T) {
	gs := newSmallGame(t)

	entries := gs.PickUp("lamp")

	assert.Equal(t, []string{"You picked up: Lamp"}, texts(entries))
	assert.Equal(t, []string{"lamp"}, gs.Inventory)
	assert.NotContains(t, gs.World.Rooms["hall"].Items, "lamp")

	// Already taken: silent no-op, no duplicate.
	before := len(gs.Log)
	assert.Nil(t, gs.PickUp("lamp"))
	assert.Equal(t, []string{"lamp"}, gs.Inventory)
	assert.Len(t, gs.Log, before)
}

func TestPickUp_NoOps(t *testing.T) {
	tests := []struct {
		name   string
		itemID string
	}{
		{name: "unknown item", itemID: "sword"},
		{name: "item in another room", itemID: "key"},
		{name: "empty id", itemID: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := newSmallGame(t)
			before := len(gs.Log)
			assert.Nil(t, gs.PickUp(tt.itemID))
			assert.Empty(t, gs.Inventory)
			assert.Len(t, gs.Log, before)
		})
	}
}

func TestPickUp_CannotTake(t *testing.T) {
	gs := newSmallGame(t)

	entries := gs.PickUp("statue")

	assert.Equal(t, []string{"You can't take the Statue."}, texts(entries))
	assert.Empty(t, gs.Inventory)
	assert.Contains(t, gs.World.Rooms["hall"].Items, "statue")
}

func TestPickUp_RunsOnPickUpEventsForThatItem(t *testing.T) {
	w := smallWorld()
	w.Rooms["hall"].Items = append(w.Rooms["hall"].Items, "key")
	w.Rooms["hall"].Events = []world.Event{
		{Trigger: world.TriggerOnPickUp, TriggerID: "key", Action: world.ActionMessage, Message: "It's cold."},
		{Trigger: world.TriggerOnPickUp, TriggerID: "lamp", Action: world.ActionMessage, Message: "It flickers."},
	}
	gs, err := NewGameState("small", w)
	require.NoError(t, err)

	entries := gs.PickUp("lamp")
	assert.Equal(t, []string{"You picked up: Lamp", "It flickers."}, texts(entries))
}

func TestUseItem_NothingHappens(t *testing.T) {
	gs := newSmallGame(t)
	gs.PickUp("lamp")
	before := len(gs.Log)

	entries := gs.UseItem("lamp")

	assert.Equal(t, []string{"You use the Lamp...", "Nothing happens."}, texts(entries))
	assert.Len(t, gs.Log, before+2)
	count := 0
	for _, e := range gs.Log {
		if e.Text == "Nothing happens." {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestUseItem_DefaultUseMessage(t *testing.T) {
	w := smallWorld()
	lamp := w.Items["lamp"]
	lamp.DefaultUseMessage = "The lamp hums."
	w.Items["lamp"] = lamp
	gs, err := NewGameState("small", w)
	require.NoError(t, err)
	gs.PickUp("lamp")

	entries := gs.UseItem("lamp")
	assert.Equal(t, []string{"You use the Lamp...", "The lamp hums."}, texts(entries))
}

func TestUseItem_NotHeldIsNoOp(t *testing.T) {
	gs := newSmallGame(t)
	gs.Mode = ModeItemMenu
	gs.SelectedItem = "lamp"
	before := len(gs.Log)

	assert.Nil(t, gs.UseItem("lamp"))
	assert.Nil(t, gs.UseItem("sword"))
	assert.Len(t, gs.Log, before)
	assert.Equal(t, ModeExploring, gs.Mode)
	assert.Empty(t, gs.SelectedItem)
}

func TestDrop_RoundTripToAnotherRoom(t *testing.T) {
	gs := newSmallGame(t)
	gs.PickUp("lamp")
	gs.Move(world.North)

	entries := gs.Drop("lamp")

	assert.Equal(t, []string{"You dropped the Lamp."}, texts(entries))
	assert.Empty(t, gs.Inventory)
	assert.Contains(t, gs.World.Rooms["yard"].Items, "lamp")
	assert.NotContains(t, gs.World.Rooms["hall"].Items, "lamp")

	// It can be picked up again from its new room.
	gs.PickUp("lamp")
	assert.Equal(t, []string{"lamp"}, gs.Inventory)
	assert.Empty(t, gs.World.Rooms["yard"].Items)
}

func TestDrop_NotHeldIsNoOp(t *testing.T) {
	gs := newSmallGame(t)
	gs.Mode = ModeItemMenu
	before := len(gs.Log)

	assert.Nil(t, gs.Drop("lamp"))
	assert.Len(t, gs.Log, before)
	assert.Equal(t, ModeExploring, gs.Mode)
	assert.Equal(t, []string{"lamp", "statue"}, gs.World.Rooms["hall"].Items)
}

func TestInspect(t *testing.T) {
	gs := newSmallGame(t)
	gs.PickUp("lamp")
	require.True(t, gs.SelectItem("lamp"))

	entries := gs.Inspect("lamp")

	assert.Equal(t, []string{"Lamp: A brass lamp."}, texts(entries))
	assert.Equal(t, ModeExploring, gs.Mode)
	assert.Nil(t, gs.Inspect("sword"))
}

func TestItemMenu(t *testing.T) {
	gs := newSmallGame(t)

	assert.False(t, gs.SelectItem("lamp"), "cannot select an item not held")
	assert.Equal(t, ModeExploring, gs.Mode)

	gs.PickUp("lamp")
	require.True(t, gs.SelectItem("lamp"))
	assert.Equal(t, ModeItemMenu, gs.Mode)
	assert.Equal(t, "lamp", gs.SelectedItem)

	gs.CancelItemMenu()
	assert.Equal(t, ModeExploring, gs.Mode)
	assert.Empty(t, gs.SelectedItem)

	require.True(t, gs.SelectItem("lamp"))
	gs.UseItem("lamp")
	assert.Equal(t, ModeExploring, gs.Mode)

	require.True(t, gs.SelectItem("lamp"))
	gs.Drop("lamp")
	assert.Equal(t, ModeExploring, gs.Mode)
}

func TestListInventory(t *testing.T) {
	gs := newSmallGame(t)
	assert.Equal(t, []string{"Your inventory is empty."}, texts(gs.ListInventory()))

	gs.PickUp("lamp")
	assert.Equal(t, []string{"You have: Lamp"}, texts(gs.ListInventory()))
}

func TestGeminiQuest_LeavingTheCircle(t *testing.T) {
	gs := loadGeminiQuest(t)
	require.False(t, gs.GetFlag("left_circle"))

	entries := gs.Move(world.North)

	assert.Equal(t, "sandy_shores", gs.RoomID)
	require.Len(t, entries, 3)
	assert.Equal(t, "[Moving N]", entries[0].Text)
	assert.Equal(t, LogEvent, entries[1].Kind)
	assert.Contains(t, entries[1].Text, "rainbow light")
	assert.Equal(t, LogNarrative, entries[2].Kind)
	assert.True(t, gs.GetFlag("left_circle"))

	// Back and forth along the beach never refires the line.
	for range 3 {
		gs.Move(world.West)
		again := gs.Move(world.East)
		assert.Equal(t, "sandy_shores", gs.RoomID)
		for _, e := range again {
			assert.NotEqual(t, LogEvent, e.Kind)
		}
	}
}

func TestGeminiQuest_ShovelUncoversConch(t *testing.T) {
	gs := loadGeminiQuest(t)
	gs.Move(world.North)
	gs.Move(world.West) // w1
	gs.Move(world.West) // w2
	gs.PickUp("shovel")
	require.True(t, gs.HasItem("shovel"))
	gs.Move(world.West) // w3
	gs.Move(world.West) // w4
	gs.Move(world.West) // w5
	require.Equal(t, "oceanside_beach_w5", gs.RoomID)
	require.False(t, gs.GetFlag("conch_uncovered"))

	entries := gs.UseItem("shovel")

	require.Len(t, entries, 2)
	assert.Equal(t, "You use the Shovel...", entries[0].Text)
	assert.Equal(t, LogEvent, entries[1].Kind)
	assert.True(t, gs.GetFlag("conch_uncovered"))
	assert.Equal(t, []string{"green_conch_shell"}, gs.World.Rooms["oceanside_beach_w5"].Items)

	// Digging again falls back to the shovel's default use message.
	again := gs.UseItem("shovel")
	assert.Equal(t, []string{"You use the Shovel...", "You dig a small hole. There is nothing but wet sand."}, texts(again))
	assert.Equal(t, []string{"green_conch_shell"}, gs.World.Rooms["oceanside_beach_w5"].Items)
}

func TestGeminiQuest_ConchOpensTheDunes(t *testing.T) {
	gs := loadGeminiQuest(t)
	for _, d := range []world.Direction{world.North, world.West, world.West} {
		gs.Move(d)
	}
	gs.PickUp("shovel")
	for range 3 {
		gs.Move(world.West)
	}
	gs.UseItem("shovel")
	gs.PickUp("green_conch_shell")
	for range 5 {
		gs.Move(world.East)
	}
	require.Equal(t, "sandy_shores", gs.RoomID)
	assert.NotContains(t, gs.AvailableExits(), world.North)

	gs.UseItem("green_conch_shell")
	assert.Contains(t, gs.AvailableExits(), world.North)

	gs.Move(world.North) // sand_dunes
	entries := gs.Move(world.North)
	require.Equal(t, "dune_crest", gs.RoomID)
	assert.Contains(t, texts(entries), "Gulls have been busy: everything that glittered on the beach below has been carried up here.")
	assert.Equal(t, []string{"signpost", "sea_glass"}, gs.World.Rooms["dune_crest"].Items)
	assert.Empty(t, gs.World.Rooms["oceanside_beach_w3"].Items)

	assert.Equal(t, []string{"You can't take the Signpost."}, texts(gs.PickUp("signpost")))

	// The conch links the circle to the crest and carries the player home.
	entries = gs.UseItem("green_conch_shell")
	assert.Equal(t, "circle_of_light", gs.RoomID)
	last := entries[len(entries)-1]
	assert.Equal(t, LogNarrative, last.Kind)
	assert.Equal(t, gs.World.Rooms["circle_of_light"].Description, last.Text)
	assert.True(t, gs.GetFlag("crest_linked"))

	gs.Move(world.North)
	assert.Equal(t, "dune_crest", gs.RoomID)
}
