package world

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a world file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// Decode parses a world definition, fills ids from map keys and validates it.
// Unknown fields are rejected so authoring typos surface at load time.
func Decode(data []byte, format Format) (*World, error) {
	var w World
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&w); err != nil {
			return nil, fmt.Errorf("failed to decode world JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&w); err != nil {
			return nil, fmt.Errorf("failed to decode world YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported world format %q", format)
	}

	w.normalize()
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// LoadFile reads and decodes a world file, choosing the format from its extension.
func LoadFile(path string) (*World, error) {
	format, ok := FormatFromPath(path)
	if !ok {
		return nil, fmt.Errorf("world file must be .json, .yaml or .yml: %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file %s: %w", path, err)
	}
	w, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return w, nil
}

// normalize fills ids from map keys and replaces nil collections.
func (w *World) normalize() {
	if w.Rooms == nil {
		w.Rooms = make(map[string]*Room)
	}
	if w.Items == nil {
		w.Items = make(map[string]Item)
	}
	for key, r := range w.Rooms {
		if r == nil {
			continue
		}
		if r.ID == "" {
			r.ID = key
		}
		if r.Exits == nil {
			r.Exits = make(map[Direction]string)
		}
		if r.Items == nil {
			r.Items = []string{}
		}
	}
	for key, it := range w.Items {
		if it.ID == "" {
			it.ID = key
			w.Items[key] = it
		}
	}
}
