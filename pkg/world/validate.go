package world

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError collects every structural problem found in a world definition.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid world definition:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

type validator struct {
	w        *World
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// Validate checks references and required event parameters. It returns a
// *ValidationError listing every problem, or nil.
func (w *World) Validate() error {
	v := &validator{w: w}

	if w.StartRoom == "" {
		v.addf("start_room is required")
	} else if !w.HasRoom(w.StartRoom) {
		v.addf("start_room %q does not name a room", w.StartRoom)
	}

	for _, key := range sortedKeys(w.Items) {
		if it := w.Items[key]; it.ID != key {
			v.addf("item %q has mismatched id %q", key, it.ID)
		}
	}

	placed := make(map[string]string)
	for _, key := range sortedKeys(w.Rooms) {
		r := w.Rooms[key]
		if r == nil {
			v.addf("room %q is empty", key)
			continue
		}
		if r.ID != key {
			v.addf("room %q has mismatched id %q", key, r.ID)
		}
		for d, target := range r.Exits {
			if !d.Valid() {
				v.addf("room %q has exit in unknown direction %q", key, d)
			}
			if !w.HasRoom(target) {
				v.addf("room %q exit %s points at unknown room %q", key, d, target)
			}
		}
		for _, itemID := range r.Items {
			if _, ok := w.Item(itemID); !ok {
				v.addf("room %q holds unknown item %q", key, itemID)
			}
			if other, ok := placed[itemID]; ok {
				v.addf("item %q is placed in both %q and %q", itemID, other, key)
			}
			placed[itemID] = key
		}
		for i, e := range r.Events {
			v.validateEvent(fmt.Sprintf("room %q event %d", key, i), e)
		}
	}

	if len(v.problems) > 0 {
		return &ValidationError{Problems: v.problems}
	}
	return nil
}

func (v *validator) validateEvent(where string, e Event) {
	if !e.Trigger.Valid() {
		v.addf("%s has unknown trigger %q", where, e.Trigger)
	}
	if e.TriggerID != "" {
		if e.Trigger == TriggerOnEnter {
			v.addf("%s sets trigger_id on an on_enter trigger", where)
		} else if _, ok := v.w.Item(e.TriggerID); !ok {
			v.addf("%s trigger_id references unknown item %q", where, e.TriggerID)
		}
	}
	if e.When.Item != "" {
		if _, ok := v.w.Item(e.When.Item); !ok {
			v.addf("%s condition references unknown item %q", where, e.When.Item)
		}
	}

	switch e.Action {
	case ActionMessage:
		if e.Message == "" {
			v.addf("%s message action requires message", where)
		}
	case ActionSetFlag:
		if e.Flag == "" && e.SetFlag == "" {
			v.addf("%s set_flag action requires flag", where)
		}
	case ActionUnlock, ActionUpdateExit:
		if e.Exit == nil {
			v.addf("%s %s action requires exit", where, e.Action)
			return
		}
		if !e.Exit.Direction.Valid() {
			v.addf("%s %s action has unknown direction %q", where, e.Action, e.Exit.Direction)
		}
		if e.Exit.TargetRoomID == "" {
			v.addf("%s %s action requires exit.target_room_id", where, e.Action)
		}
		if e.Action == ActionUpdateExit && !v.w.HasRoom(e.Exit.RoomID) {
			v.addf("%s update_exit action references unknown room %q", where, e.Exit.RoomID)
		}
	case ActionAddItem:
		if e.AddItem == nil || e.AddItem.ItemID == "" {
			v.addf("%s add_item action requires add_item.item_id", where)
		} else if _, ok := v.w.Item(e.AddItem.ItemID); !ok {
			v.addf("%s add_item action references unknown item %q", where, e.AddItem.ItemID)
		}
	case ActionMoveRoomItems:
		if e.MoveItems == nil {
			v.addf("%s move_room_items action requires move_items", where)
			return
		}
		if !v.w.HasRoom(e.MoveItems.SourceRoomID) {
			v.addf("%s move_room_items action references unknown source room %q", where, e.MoveItems.SourceRoomID)
		}
		if !v.w.HasRoom(e.MoveItems.TargetRoomID) {
			v.addf("%s move_room_items action references unknown target room %q", where, e.MoveItems.TargetRoomID)
		}
	case ActionTeleport:
		if e.Teleport == nil || !v.w.HasRoom(e.Teleport.TargetRoomID) {
			v.addf("%s teleport action requires a known teleport.target_room_id", where)
		}
	default:
		v.addf("%s has unknown action %q", where, e.Action)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
