package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/compass-engine/pkg/conditionals"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

func main() {
	strict := flag.Bool("strict", false, "treat warnings as errors")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-strict] <world.json|world.yaml|dir>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	files, err := expandArgs(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	failed := false
	for _, filename := range files {
		validator := &WorldValidator{}
		err := validator.validateFile(filename)
		for _, w := range validator.warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		if err == nil && *strict && len(validator.warnings) > 0 {
			err = fmt.Errorf("%d warning(s) in strict mode", len(validator.warnings))
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

// expandArgs replaces directories with the world files they contain.
func expandArgs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if _, ok := world.FormatFromPath(e.Name()); ok && !e.IsDir() {
				files = append(files, filepath.Join(arg, e.Name()))
			}
		}
	}
	return files, nil
}

// WorldValidator layers naming and authoring checks over world.Validate.
type WorldValidator struct {
	errors   []string
	warnings []string
}

func (v *WorldValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	format, ok := world.FormatFromPath(baseName)
	if !ok {
		return fmt.Errorf("world file must have .json, .yaml or .yml extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if !isValidWorldFilename(nameWithoutExt) {
		return fmt.Errorf("world filename '%s' must be lowercase snake_case (e.g., my_world.json, not my-world.json or MyWorld.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil
	v.warnings = nil

	w, err := world.Decode(data, format)
	if err != nil {
		var verr *world.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				v.addError(p)
			}
			return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
		}
		return fmt.Errorf("file %s failed strict decoding: %w", filename, err)
	}

	v.validateWorld(w)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	return nil
}

func (v *WorldValidator) validateWorld(w *world.World) {
	if strings.TrimSpace(w.Name) == "" {
		v.addError("world name is required")
	}

	for itemID, item := range w.Items {
		v.validateIDFormat("item ID", itemID)
		if item.Name == "" {
			v.addWarning(fmt.Sprintf("item %q has no display name", itemID))
		}
	}

	setFlags := make(map[string]bool)
	readFlags := make(map[string]string)
	for roomID, room := range w.Rooms {
		v.validateIDFormat("room ID", roomID)
		if room.Description == "" {
			v.addWarning(fmt.Sprintf("room %q has no description", roomID))
		}
		for i, e := range room.Events {
			where := fmt.Sprintf("room %s event %d", roomID, i)
			v.validateConditionalWhen(e.When, where)
			if e.When.Flag != "" {
				name, _ := conditionals.ParseFlag(e.When.Flag)
				readFlags[name] = where
			}
			for _, f := range []string{e.Flag, e.SetFlag} {
				if f == "" {
					continue
				}
				if !isValidVariableName(f) {
					v.addError(fmt.Sprintf("%s sets invalid flag name '%s' - should be lowercase snake_case", where, f))
				}
				setFlags[f] = true
			}
		}
	}

	for name, where := range readFlags {
		if !setFlags[name] {
			v.addWarning(fmt.Sprintf("%s checks flag %q which no event sets", where, name))
		}
	}

	for _, roomID := range unreachableRooms(w) {
		v.addWarning(fmt.Sprintf("room %q is not reachable from the start room", roomID))
	}
}

func (v *WorldValidator) validateConditionalWhen(when conditionals.ConditionalWhen, context string) {
	if when.Flag == "" {
		return
	}
	name, _ := conditionals.ParseFlag(when.Flag)
	if !isValidVariableName(name) {
		v.addError(fmt.Sprintf("%s has invalid flag name '%s' - should be lowercase snake_case", context, name))
	}
}

// unreachableRooms lists rooms that no exit, exit rewrite or teleport can lead to.
func unreachableRooms(w *world.World) []string {
	edges := make(map[string][]string)
	var anywhere []string // targets of update_exit and teleport can be reached from any room
	for id, room := range w.Rooms {
		for _, target := range room.Exits {
			edges[id] = append(edges[id], target)
		}
		for _, e := range room.Events {
			switch {
			case e.Action == world.ActionUnlock && e.Exit != nil:
				edges[id] = append(edges[id], e.Exit.TargetRoomID)
			case e.Action == world.ActionUpdateExit && e.Exit != nil:
				anywhere = append(anywhere, e.Exit.TargetRoomID)
			case e.Action == world.ActionTeleport && e.Teleport != nil:
				anywhere = append(anywhere, e.Teleport.TargetRoomID)
			}
		}
	}

	seen := map[string]bool{w.StartRoom: true}
	stack := append([]string{w.StartRoom}, anywhere...)
	for _, id := range anywhere {
		seen[id] = true
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range edges[id] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}

	var out []string
	for id := range w.Rooms {
		if !seen[id] {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (v *WorldValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}

	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *WorldValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func (v *WorldValidator) addWarning(msg string) {
	v.warnings = append(v.warnings, msg)
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validVarRegex      = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidVariableName(name string) bool {
	return validVarRegex.MatchString(name)
}

func isValidWorldFilename(name string) bool {
	// Allow 'x.' prefix for experimental worlds
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
