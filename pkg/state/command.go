package state

import (
	"strings"

	"github.com/jwebster45206/compass-engine/pkg/world"
)

// IntentKind names a player action.
type IntentKind string

const (
	IntentMove       IntentKind = "move"
	IntentLook       IntentKind = "look"
	IntentPickUp     IntentKind = "pick_up"
	IntentUseItem    IntentKind = "use_item"
	IntentDrop       IntentKind = "drop"
	IntentInspect    IntentKind = "inspect"
	IntentSelectItem IntentKind = "select_item"
	IntentCancel     IntentKind = "cancel"
	IntentInventory  IntentKind = "inventory"
	IntentNone       IntentKind = "" // not recognized
)

// Intent is a transport-neutral request for one turn.
type Intent struct {
	Kind      IntentKind      `json:"kind"`
	Direction world.Direction `json:"direction,omitempty"`
	ItemID    string          `json:"item_id,omitempty"`
}

// Valid reports whether k names a known intent.
func (k IntentKind) Valid() bool {
	switch k {
	case IntentMove, IntentLook, IntentPickUp, IntentUseItem, IntentDrop,
		IntentInspect, IntentSelectItem, IntentCancel, IntentInventory:
		return true
	}
	return false
}

var commandVerbs = map[string]IntentKind{
	"look":     IntentLook,
	"l":        IntentLook,
	"location": IntentLook,

	"inventory": IntentInventory,
	"inv":       IntentInventory,
	"i":         IntentInventory,

	"go":   IntentMove,
	"move": IntentMove,
	"walk": IntentMove,

	"take":    IntentPickUp,
	"get":     IntentPickUp,
	"pickup":  IntentPickUp,
	"pick up": IntentPickUp,
	"grab":    IntentPickUp,

	"use": IntentUseItem,

	"drop": IntentDrop,

	"inspect": IntentInspect,
	"examine": IntentInspect,
	"x":       IntentInspect,

	"select": IntentSelectItem,
	"cancel": IntentCancel,
}

// parseCommand splits input into a recognized verb and its argument. A bare direction
// is a move.
func parseCommand(input string) (IntentKind, string) {
	trimmed := strings.Join(strings.Fields(strings.ToLower(input)), " ")
	if trimmed == "" {
		return IntentNone, ""
	}
	if _, ok := world.ParseDirection(trimmed); ok {
		return IntentMove, trimmed
	}
	if kind, ok := commandVerbs[trimmed]; ok {
		return kind, ""
	}
	// Longest verb first so "pick up x" is not read as "pick".
	if rest, ok := strings.CutPrefix(trimmed, "pick up "); ok {
		return IntentPickUp, strings.TrimPrefix(rest, "the ")
	}
	verb, rest, _ := strings.Cut(trimmed, " ")
	kind, ok := commandVerbs[verb]
	if !ok {
		return IntentNone, ""
	}
	rest = strings.TrimPrefix(rest, "the ")
	return kind, rest
}

// ParseCommand turns typed text such as "n", "go north", "take shovel" or
// "use green conch shell" into an Intent. Item arguments are resolved by id or by
// display name. It reports false when the text is not a command.
func (gs *GameState) ParseCommand(input string) (Intent, bool) {
	kind, arg := parseCommand(input)
	switch kind {
	case IntentNone:
		return Intent{}, false
	case IntentMove:
		dir, ok := world.ParseDirection(arg)
		if !ok {
			return Intent{}, false
		}
		return Intent{Kind: IntentMove, Direction: dir}, true
	case IntentLook, IntentInventory, IntentCancel:
		return Intent{Kind: kind}, true
	default:
		if arg == "" {
			return Intent{}, false
		}
		return Intent{Kind: kind, ItemID: gs.resolveItem(arg)}, true
	}
}

// resolveItem maps a typed item reference to an item id, preferring items the player
// can reach. Unresolved text is returned as a snake_case id.
func (gs *GameState) resolveItem(ref string) string {
	id := strings.ReplaceAll(ref, " ", "_")
	if _, ok := gs.World.Item(id); ok {
		return id
	}

	candidates := append([]string{}, gs.Inventory...)
	if room, ok := gs.currentRoom(); ok {
		candidates = append(candidates, room.Items...)
	}
	for _, cid := range candidates {
		if item, ok := gs.World.Item(cid); ok && strings.EqualFold(item.Name, ref) {
			return cid
		}
	}
	for cid, item := range gs.World.Items {
		if strings.EqualFold(item.Name, ref) {
			return cid
		}
	}
	return id
}

// Apply dispatches an intent to the matching turn method.
func (gs *GameState) Apply(in Intent) []LogEntry {
	switch in.Kind {
	case IntentMove:
		return gs.Move(in.Direction)
	case IntentLook:
		return gs.Look()
	case IntentPickUp:
		return gs.PickUp(in.ItemID)
	case IntentUseItem:
		return gs.UseItem(in.ItemID)
	case IntentDrop:
		return gs.Drop(in.ItemID)
	case IntentInspect:
		return gs.Inspect(in.ItemID)
	case IntentSelectItem:
		gs.SelectItem(in.ItemID)
		return nil
	case IntentCancel:
		gs.CancelItemMenu()
		return nil
	case IntentInventory:
		return gs.ListInventory()
	default:
		gs.log().Warn("Unknown intent", "kind", string(in.Kind))
		return nil
	}
}

// DescribeLocation returns the current room's description, or false when the
// session points at a room the world does not have.
func (gs *GameState) DescribeLocation() (string, bool) {
	room, ok := gs.currentRoom()
	if !ok {
		return "", false
	}
	return room.Description, true
}

// DescribeInventory returns a one-line listing of held items by name.
func (gs *GameState) DescribeInventory() string {
	if len(gs.Inventory) == 0 {
		return "Your inventory is empty."
	}
	names := make([]string, 0, len(gs.Inventory))
	for _, id := range gs.Inventory {
		if item, ok := gs.World.Item(id); ok {
			names = append(names, item.Name)
			continue
		}
		names = append(names, id)
	}
	return "You have: " + strings.Join(names, ", ")
}
