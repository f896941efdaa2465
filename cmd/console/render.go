package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/compass-engine/pkg/state"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

// LinePlayer marks player input echoed into the transcript.
const LinePlayer state.LogKind = "player"

var titleCaser = cases.Title(language.English)

// transcriptLine is one rendered line source: an engine log entry or echoed input.
type transcriptLine struct {
	Kind state.LogKind
	Text string
}

func fromEntries(entries []state.LogEntry) []transcriptLine {
	lines := make([]transcriptLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, transcriptLine{Kind: e.Kind, Text: e.Text})
	}
	return lines
}

// wrapLine wraps text to width, leaving it alone when the width is unknown.
func wrapLine(text string, width int) string {
	if width <= 0 {
		return text
	}
	return wordwrap.String(text, width)
}

// formatLine renders a transcript line for the TUI.
func formatLine(l transcriptLine, width int) string {
	switch l.Kind {
	case LinePlayer:
		return userStyle.Render("> ") + wrapLine(l.Text, width-2)
	case state.LogSystem:
		return systemStyle.Render(wrapLine(l.Text, width))
	case state.LogEvent:
		return eventStyle.Render(wrapLine(l.Text, width))
	default:
		return descriptionStyle.Render(wrapLine(l.Text, width))
	}
}

// plainTranscript renders lines without styling, for the clipboard and line mode.
func plainTranscript(lines []transcriptLine, width int) string {
	var b strings.Builder
	for _, l := range lines {
		text := wrapLine(l.Text, width)
		if l.Kind == LinePlayer {
			text = "> " + l.Text
		}
		b.WriteString(text + "\n\n")
	}
	return b.String()
}

// exitNames lists exits in compass order as "North, Southwest".
func exitNames(dirs []world.Direction) string {
	if len(dirs) == 0 {
		return "none"
	}
	names := make([]string, 0, len(dirs))
	for _, d := range dirs {
		names = append(names, titleCaser.String(d.Name()))
	}
	return strings.Join(names, ", ")
}

// compassRose draws the eight directions, dimming the ones without an exit.
func compassRose(dirs []world.Direction) string {
	open := make(map[world.Direction]bool, len(dirs))
	for _, d := range dirs {
		open[d] = true
	}
	cell := func(d world.Direction) string {
		label := fmt.Sprintf("%-2s", d.Label())
		if open[d] {
			return exitStyle.Render(label)
		}
		return promptStyle.Render(label)
	}
	rows := [][]world.Direction{
		{world.NorthWest, world.North, world.NorthEast},
		{world.West, "", world.East},
		{world.SouthWest, world.South, world.SouthEast},
	}
	var b strings.Builder
	for _, row := range rows {
		for i, d := range row {
			if i > 0 {
				b.WriteString(" ")
			}
			if d == "" {
				b.WriteString("◆ ")
				continue
			}
			b.WriteString(cell(d))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func itemNames(items []state.ItemView) []string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return names
}

func setFlags(flags map[string]bool) []string {
	var names []string
	for name, on := range flags {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

const helpText = `Commands:
  n, s, e, w, ne, nw, se, sw   move
  look (l)                     describe the room
  take <item>                  pick something up
  use <item>                   use a held item
  inspect <item> (x)           examine a held item
  drop <item>                  leave a held item here
  select <item> / cancel       open or close an item's menu
  inventory (i)                list what you carry

Console:
  /help    this help
  /exits   list exits
  /flags   list story flags
  /copy    copy the transcript (TUI)
  /new     pick another world (TUI)
  /quit    leave`
