package state

import (
	"fmt"
	"slices"

	"github.com/jwebster45206/compass-engine/pkg/world"
)

// Each intent runs to completion and returns the log entries it appended. A nil
// result means the intent was a no-op and the state is unchanged, except that
// item-menu actions always return the session to exploring mode.

// Move walks through an exit of the current room.
func (gs *GameState) Move(dir world.Direction) []LogEntry {
	room, ok := gs.currentRoom()
	if !ok {
		return nil
	}
	target, ok := room.Exit(dir)
	if !ok {
		gs.log().Debug("No exit in direction", "room_id", gs.RoomID, "direction", string(dir))
		return nil
	}
	dest, ok := gs.World.Room(target)
	if !ok {
		gs.log().Debug("Exit leads to unknown room", "room_id", gs.RoomID, "target", target)
		return nil
	}

	mark := len(gs.Log)
	gs.RoomID = dest.ID
	gs.appendLog(LogSystem, fmt.Sprintf("[Moving %s]", dir.Label()))

	res := gs.events().Execute(dest.Events, world.TriggerOnEnter, "")
	gs.Log = append(gs.Log, res.Entries...)
	if !res.Teleported {
		gs.appendLog(LogNarrative, dest.Description)
	}

	gs.touch()
	return gs.entriesSince(mark)
}

// Look re-describes the current room.
func (gs *GameState) Look() []LogEntry {
	desc, ok := gs.DescribeLocation()
	if !ok {
		return nil
	}
	mark := len(gs.Log)
	gs.appendLog(LogNarrative, desc)
	gs.touch()
	return gs.entriesSince(mark)
}

// PickUp takes an item from the current room.
func (gs *GameState) PickUp(itemID string) []LogEntry {
	item, ok := gs.World.Item(itemID)
	if !ok {
		gs.log().Debug("Pick up of unknown item", "item_id", itemID)
		return nil
	}
	room, ok := gs.currentRoom()
	if !ok || !room.HasItem(itemID) {
		return nil
	}

	mark := len(gs.Log)
	if !item.CanTake {
		gs.appendLog(LogSystem, fmt.Sprintf("You can't take the %s.", item.Name))
		gs.touch()
		return gs.entriesSince(mark)
	}

	room.RemoveItem(itemID)
	gs.Inventory = append(gs.Inventory, itemID)
	gs.appendLog(LogSystem, fmt.Sprintf("You picked up: %s", item.Name))

	res := gs.events().Execute(room.Events, world.TriggerOnPickUp, itemID)
	gs.Log = append(gs.Log, res.Entries...)

	gs.touch()
	return gs.entriesSince(mark)
}

// UseItem uses a held item in the current room.
func (gs *GameState) UseItem(itemID string) []LogEntry {
	defer gs.closeItemMenu()

	item, ok := gs.World.Item(itemID)
	if !ok || !gs.HasItem(itemID) {
		return nil
	}
	room, ok := gs.currentRoom()
	if !ok {
		return nil
	}

	mark := len(gs.Log)
	gs.appendLog(LogSystem, fmt.Sprintf("You use the %s...", item.Name))

	res := gs.events().Execute(room.Events, world.TriggerOnUseItem, itemID)
	gs.Log = append(gs.Log, res.Entries...)
	if !res.Handled {
		msg := item.DefaultUseMessage
		if msg == "" {
			msg = "Nothing happens."
		}
		gs.appendLog(LogSystem, msg)
	}

	gs.touch()
	return gs.entriesSince(mark)
}

// Drop leaves a held item in the current room.
func (gs *GameState) Drop(itemID string) []LogEntry {
	defer gs.closeItemMenu()

	item, ok := gs.World.Item(itemID)
	if !ok {
		return nil
	}
	idx := slices.Index(gs.Inventory, itemID)
	if idx < 0 {
		return nil
	}
	room, ok := gs.currentRoom()
	if !ok {
		return nil
	}

	mark := len(gs.Log)
	gs.Inventory = slices.Delete(gs.Inventory, idx, idx+1)
	room.AddItem(itemID)
	gs.appendLog(LogSystem, fmt.Sprintf("You dropped the %s.", item.Name))

	gs.touch()
	return gs.entriesSince(mark)
}

// Inspect describes an item.
func (gs *GameState) Inspect(itemID string) []LogEntry {
	defer gs.closeItemMenu()

	item, ok := gs.World.Item(itemID)
	if !ok {
		return nil
	}
	mark := len(gs.Log)
	gs.appendLog(LogSystem, fmt.Sprintf("%s: %s", item.Name, item.Description))
	gs.touch()
	return gs.entriesSince(mark)
}

// ListInventory logs what the player is carrying.
func (gs *GameState) ListInventory() []LogEntry {
	mark := len(gs.Log)
	gs.appendLog(LogSystem, gs.DescribeInventory())
	gs.touch()
	return gs.entriesSince(mark)
}

// SelectItem opens the item menu for a held item.
func (gs *GameState) SelectItem(itemID string) bool {
	if !gs.HasItem(itemID) {
		return false
	}
	gs.Mode = ModeItemMenu
	gs.SelectedItem = itemID
	gs.touch()
	return true
}

// CancelItemMenu returns to exploring mode.
func (gs *GameState) CancelItemMenu() {
	gs.closeItemMenu()
	gs.touch()
}

func (gs *GameState) closeItemMenu() {
	gs.Mode = ModeExploring
	gs.SelectedItem = ""
}

func (gs *GameState) events() *EventWorker {
	return NewEventWorker(gs, gs.log())
}
