package world

import "slices"

// Item is an immutable item definition. Only its location changes during play.
type Item struct {
	ID                string `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	Description       string `json:"description" yaml:"description"`
	CanTake           bool   `json:"can_take" yaml:"can_take"`
	DefaultUseMessage string `json:"default_use_message,omitempty" yaml:"default_use_message,omitempty"`
	Hidden            bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"` // reserved
}

// Room represents a place in the game world with exits, items and events.
type Room struct {
	ID          string               `json:"id" yaml:"id"` // Also the key in the map.
	Name        string               `json:"name" yaml:"name"`
	Description string               `json:"description" yaml:"description"`
	Exits       map[Direction]string `json:"exits,omitempty" yaml:"exits,omitempty"` // Direction → Room ID
	Items       []string             `json:"items,omitempty" yaml:"items,omitempty"` // Item IDs, in display order
	Events      []Event              `json:"events,omitempty" yaml:"events,omitempty"`
}

// World is the full collection of rooms and items for one game.
type World struct {
	Name      string           `json:"name" yaml:"name"`
	StartRoom string           `json:"start_room" yaml:"start_room"`
	Rooms     map[string]*Room `json:"rooms" yaml:"rooms"`
	Items     map[string]Item  `json:"items" yaml:"items"`
}

// Room looks up a room by id.
func (w *World) Room(id string) (*Room, bool) {
	if w == nil || id == "" {
		return nil, false
	}
	r, ok := w.Rooms[id]
	if !ok || r == nil {
		return nil, false
	}
	return r, true
}

// Item looks up an item definition by id.
func (w *World) Item(id string) (Item, bool) {
	if w == nil || id == "" {
		return Item{}, false
	}
	it, ok := w.Items[id]
	return it, ok
}

// HasRoom reports whether id names a room.
func (w *World) HasRoom(id string) bool {
	_, ok := w.Room(id)
	return ok
}

// Clone returns a deep copy of the mutable parts of the world. Events are shared
// read-only by value.
func (w *World) Clone() *World {
	if w == nil {
		return nil
	}
	c := &World{
		Name:      w.Name,
		StartRoom: w.StartRoom,
		Rooms:     make(map[string]*Room, len(w.Rooms)),
		Items:     make(map[string]Item, len(w.Items)),
	}
	for id, r := range w.Rooms {
		if r == nil {
			continue
		}
		c.Rooms[id] = r.clone()
	}
	for id, it := range w.Items {
		c.Items[id] = it
	}
	return c
}

func (r *Room) clone() *Room {
	c := *r
	c.Exits = make(map[Direction]string, len(r.Exits))
	for d, target := range r.Exits {
		c.Exits[d] = target
	}
	c.Items = slices.Clone(r.Items)
	c.Events = slices.Clone(r.Events)
	return &c
}

// Exit returns the raw exit target for a direction.
func (r *Room) Exit(d Direction) (string, bool) {
	target, ok := r.Exits[d]
	if !ok || target == "" {
		return "", false
	}
	return target, true
}

// SetExit points the exit in direction d at target. The target does not need to exist yet.
func (r *Room) SetExit(d Direction, target string) {
	if r.Exits == nil {
		r.Exits = make(map[Direction]string)
	}
	r.Exits[d] = target
}

// HasItem reports whether the item is lying in this room.
func (r *Room) HasItem(itemID string) bool {
	return slices.Contains(r.Items, itemID)
}

// AddItem appends an item id to the room's item list.
func (r *Room) AddItem(itemID string) {
	r.Items = append(r.Items, itemID)
}

// RemoveItem removes the first occurrence of an item id. It reports whether the item was present.
func (r *Room) RemoveItem(itemID string) bool {
	i := slices.Index(r.Items, itemID)
	if i < 0 {
		return false
	}
	r.Items = slices.Delete(r.Items, i, i+1)
	return true
}

// TakeAllItems empties the room and returns what was in it.
func (r *Room) TakeAllItems() []string {
	items := r.Items
	r.Items = []string{}
	return items
}
