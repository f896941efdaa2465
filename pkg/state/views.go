package state

import "github.com/jwebster45206/compass-engine/pkg/world"

// ItemView is a read-only item for renderers.
type ItemView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CanTake     bool   `json:"can_take"`
}

// RoomView is the current room as a renderer sees it. Exits only lists exits whose
// target room exists. Items marked hidden are listed like any other.
type RoomView struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Exits       map[world.Direction]string `json:"exits"`
	Items       []ItemView                 `json:"items"`
}

// SessionView bundles the session with its read-only views.
type SessionView struct {
	*GameState
	Room      RoomView          `json:"room"`
	Items     []ItemView        `json:"inventory_items"`
	ExitOrder []world.Direction `json:"available_exits"`
}

func toItemView(item world.Item) ItemView {
	return ItemView{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		CanTake:     item.CanTake,
	}
}

// CurrentRoom returns a view of the room the player is in.
func (gs *GameState) CurrentRoom() RoomView {
	room, ok := gs.currentRoom()
	if !ok {
		return RoomView{ID: gs.RoomID, Exits: map[world.Direction]string{}, Items: []ItemView{}}
	}
	v := RoomView{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		Exits:       make(map[world.Direction]string),
		Items:       make([]ItemView, 0, len(room.Items)),
	}
	for _, d := range gs.AvailableExits() {
		v.Exits[d] = room.Exits[d]
	}
	for _, id := range room.Items {
		item, ok := gs.World.Item(id)
		if !ok {
			continue
		}
		v.Items = append(v.Items, toItemView(item))
	}
	return v
}

// InventoryView returns the held items in pickup order.
func (gs *GameState) InventoryView() []ItemView {
	items := make([]ItemView, 0, len(gs.Inventory))
	for _, id := range gs.Inventory {
		if item, ok := gs.World.Item(id); ok {
			items = append(items, toItemView(item))
		}
	}
	return items
}

// AvailableExits lists, in compass order, the directions the player can move.
func (gs *GameState) AvailableExits() []world.Direction {
	room, ok := gs.currentRoom()
	if !ok {
		return nil
	}
	var dirs []world.Direction
	for _, d := range world.Directions {
		if target, ok := room.Exit(d); ok && gs.World.HasRoom(target) {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// View returns the session together with its renderer views.
func (gs *GameState) View() SessionView {
	return SessionView{
		GameState: gs,
		Room:      gs.CurrentRoom(),
		Items:     gs.InventoryView(),
		ExitOrder: gs.AvailableExits(),
	}
}
