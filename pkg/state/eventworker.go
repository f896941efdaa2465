package state

import (
	"log/slog"

	"github.com/jwebster45206/compass-engine/pkg/conditionals"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

// ExecResult is the outcome of one event batch.
type ExecResult struct {
	Handled    bool       // at least one event matched
	Entries    []LogEntry // log entries produced, in order
	Teleported bool       // a teleport moved the player during the batch
}

// EventWorker applies the events bound to a room for one trigger.
type EventWorker struct {
	gs     *GameState
	logger *slog.Logger
}

// NewEventWorker creates an event worker for the given session.
func NewEventWorker(gs *GameState, logger *slog.Logger) *EventWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventWorker{gs: gs, logger: logger}
}

// Execute selects every event matching the trigger, trigger id and conditions, then
// applies each in declaration order. Selection happens against the state as it stands
// before the batch, so an event cannot enable or disable a sibling in the same batch.
// Room-scoped actions target the room the player was in when the batch started, even
// after a teleport. Entries are returned, not appended to the session log.
func (ew *EventWorker) Execute(events []world.Event, trigger world.Trigger, triggerID string) ExecResult {
	var selected []world.Event
	for _, e := range events {
		if e.Matches(trigger, triggerID) && conditionals.EvaluateWhen(e.When, ew.gs) {
			selected = append(selected, e)
		}
	}
	if len(selected) == 0 {
		return ExecResult{}
	}

	actingRoom := ew.gs.RoomID
	res := ExecResult{Handled: true}
	for _, e := range selected {
		if ew.applyAction(e, actingRoom) {
			res.Teleported = true
		}
		res.Entries = append(res.Entries, ew.applySideChannel(e)...)
	}

	// Teleport narration goes last so it closes the turn.
	if res.Teleported {
		if desc, ok := ew.gs.DescribeLocation(); ok {
			res.Entries = append(res.Entries, ew.gs.newEntry(LogNarrative, desc))
		}
	}

	ew.logger.Debug("Event batch applied",
		"game_id", ew.gs.ID.String(),
		"trigger", string(trigger),
		"trigger_id", triggerID,
		"matched", len(selected),
		"teleported", res.Teleported)
	return res
}

// applyAction performs the event's single structural mutation. roomID is the room that
// owns the triggered events. It reports whether the player was teleported.
func (ew *EventWorker) applyAction(e world.Event, roomID string) bool {
	gs := ew.gs
	switch e.Action {
	case world.ActionMessage:
		// narration only

	case world.ActionSetFlag:
		if e.Flag == "" {
			// the side channel sets the flag
			if e.SetFlag == "" {
				ew.logger.Warn("set_flag event without flag", "room_id", roomID)
			}
			return false
		}
		gs.SetFlag(e.Flag)

	case world.ActionUnlock:
		if e.Exit == nil || !e.Exit.Direction.Valid() {
			ew.logger.Warn("unlock event without exit params", "room_id", roomID)
			return false
		}
		room, ok := gs.World.Room(roomID)
		if !ok {
			return false
		}
		room.SetExit(e.Exit.Direction, e.Exit.TargetRoomID)

	case world.ActionUpdateExit:
		if e.Exit == nil || !e.Exit.Direction.Valid() {
			ew.logger.Warn("update_exit event without exit params", "room_id", roomID)
			return false
		}
		room, ok := gs.World.Room(e.Exit.RoomID)
		if !ok {
			ew.logger.Warn("update_exit names unknown room", "room_id", e.Exit.RoomID)
			return false
		}
		room.SetExit(e.Exit.Direction, e.Exit.TargetRoomID)

	case world.ActionAddItem:
		if e.AddItem == nil || e.AddItem.ItemID == "" {
			ew.logger.Warn("add_item event without item", "room_id", roomID)
			return false
		}
		room, ok := gs.World.Room(roomID)
		if !ok {
			return false
		}
		room.AddItem(e.AddItem.ItemID)

	case world.ActionMoveRoomItems:
		if e.MoveItems == nil {
			ew.logger.Warn("move_room_items event without params", "room_id", roomID)
			return false
		}
		if e.MoveItems.SourceRoomID == e.MoveItems.TargetRoomID {
			return false
		}
		src, ok := gs.World.Room(e.MoveItems.SourceRoomID)
		if !ok {
			ew.logger.Warn("move_room_items names unknown source room", "room_id", e.MoveItems.SourceRoomID)
			return false
		}
		dst, ok := gs.World.Room(e.MoveItems.TargetRoomID)
		if !ok {
			ew.logger.Warn("move_room_items names unknown target room", "room_id", e.MoveItems.TargetRoomID)
			return false
		}
		for _, id := range src.TakeAllItems() {
			dst.AddItem(id)
		}

	case world.ActionTeleport:
		if e.Teleport == nil {
			ew.logger.Warn("teleport event without params", "room_id", roomID)
			return false
		}
		if !gs.World.HasRoom(e.Teleport.TargetRoomID) {
			ew.logger.Warn("teleport names unknown room", "room_id", e.Teleport.TargetRoomID)
			return false
		}
		gs.RoomID = e.Teleport.TargetRoomID
		return true

	default:
		ew.logger.Warn("Unknown event action", "action", string(e.Action), "room_id", roomID)
	}
	return false
}

// applySideChannel handles the optional message and set_flag fields carried by any event.
func (ew *EventWorker) applySideChannel(e world.Event) []LogEntry {
	var entries []LogEntry
	if e.Message != "" {
		entries = append(entries, ew.gs.newEntry(LogEvent, e.Message))
	}
	if e.SetFlag != "" {
		ew.gs.SetFlag(e.SetFlag)
	}
	return entries
}
