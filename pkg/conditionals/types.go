package conditionals

import "strings"

// NegationPrefix marks a flag condition that requires the flag to be false.
const NegationPrefix = "!"

// ConditionalWhen defines the conditions that must be met for an event to fire.
// Every populated field must pass; an empty field imposes no constraint.
type ConditionalWhen struct {
	Flag string `json:"flag,omitempty" yaml:"flag,omitempty"` // "name" requires true, "!name" requires false
	Item string `json:"item,omitempty" yaml:"item,omitempty"` // item id that must be in the inventory
}

// IsEmpty reports whether no condition is declared.
func (w ConditionalWhen) IsEmpty() bool {
	return w.Flag == "" && w.Item == ""
}

// GameStateView provides the minimal interface needed to evaluate conditionals
// This avoids import cycles with the state package
type GameStateView interface {
	GetFlag(name string) bool
	HasItem(itemID string) bool
}

// ParseFlag splits a flag condition into the flag name and the value it requires.
func ParseFlag(condition string) (name string, want bool) {
	condition = strings.TrimSpace(condition)
	if strings.HasPrefix(condition, NegationPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(condition, NegationPrefix)), false
	}
	return condition, true
}

// EvaluateWhen checks if all conditions in a When clause are met.
// Missing flags read as false.
func EvaluateWhen(when ConditionalWhen, gsView GameStateView) bool {
	if when.IsEmpty() {
		return true
	}

	if when.Flag != "" {
		name, want := ParseFlag(when.Flag)
		if gsView.GetFlag(name) != want {
			return false
		}
	}

	if when.Item != "" {
		if !gsView.HasItem(when.Item) {
			return false
		}
	}

	return true
}
