package world

import "github.com/jwebster45206/compass-engine/pkg/conditionals"

// Trigger is the intent kind an event listens for.
type Trigger string

const (
	TriggerOnEnter   Trigger = "on_enter"
	TriggerOnUseItem Trigger = "on_use_item"
	TriggerOnPickUp  Trigger = "on_pick_up"
)

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerOnEnter, TriggerOnUseItem, TriggerOnPickUp:
		return true
	}
	return false
}

// ActionKind selects the primary effect of an event.
type ActionKind string

const (
	ActionMessage       ActionKind = "message"
	ActionSetFlag       ActionKind = "set_flag"
	ActionUnlock        ActionKind = "unlock"
	ActionUpdateExit    ActionKind = "update_exit"
	ActionAddItem       ActionKind = "add_item"
	ActionMoveRoomItems ActionKind = "move_room_items"
	ActionTeleport      ActionKind = "teleport"
)

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionMessage, ActionSetFlag, ActionUnlock, ActionUpdateExit,
		ActionAddItem, ActionMoveRoomItems, ActionTeleport:
		return true
	}
	return false
}

// ExitParams rewires one exit. RoomID is only read by update_exit; unlock always
// rewrites the player's current room.
type ExitParams struct {
	RoomID       string    `json:"room_id,omitempty" yaml:"room_id,omitempty"`
	Direction    Direction `json:"direction" yaml:"direction"`
	TargetRoomID string    `json:"target_room_id" yaml:"target_room_id"`
}

// AddItemParams places an item in the player's current room.
type AddItemParams struct {
	ItemID string `json:"item_id" yaml:"item_id"`
}

// MoveItemsParams moves every item from one room to another.
type MoveItemsParams struct {
	SourceRoomID string `json:"source_room_id" yaml:"source_room_id"`
	TargetRoomID string `json:"target_room_id" yaml:"target_room_id"`
}

// TeleportParams relocates the player.
type TeleportParams struct {
	TargetRoomID string `json:"target_room_id" yaml:"target_room_id"`
}

// Event is a conditional rule bound to a room. Events hold no fired state; one-shot
// behaviour comes from a flag the event sets and its own condition excludes.
//
// Exactly one of the parameter blocks is read, selected by Action. Message and SetFlag
// apply on top of any action.
type Event struct {
	Trigger   Trigger                      `json:"trigger" yaml:"trigger"`
	TriggerID string                       `json:"trigger_id,omitempty" yaml:"trigger_id,omitempty"` // restricts item triggers to one item id
	When      conditionals.ConditionalWhen `json:"when,omitzero" yaml:"when,omitempty"`
	Action    ActionKind                   `json:"action" yaml:"action"`

	Flag      string           `json:"flag,omitempty" yaml:"flag,omitempty"`             // set_flag
	Exit      *ExitParams      `json:"exit,omitempty" yaml:"exit,omitempty"`             // unlock, update_exit
	AddItem   *AddItemParams   `json:"add_item,omitempty" yaml:"add_item,omitempty"`     // add_item
	MoveItems *MoveItemsParams `json:"move_items,omitempty" yaml:"move_items,omitempty"` // move_room_items
	Teleport  *TeleportParams  `json:"teleport,omitempty" yaml:"teleport,omitempty"`     // teleport

	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	SetFlag string `json:"set_flag,omitempty" yaml:"set_flag,omitempty"`
}

// Matches reports whether the event listens for this trigger and trigger id.
// An event without a TriggerID matches any id.
func (e Event) Matches(trigger Trigger, triggerID string) bool {
	if e.Trigger != trigger {
		return false
	}
	return e.TriggerID == "" || e.TriggerID == triggerID
}
