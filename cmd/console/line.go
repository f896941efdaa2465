package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jwebster45206/compass-engine/internal/handlers"
	"github.com/jwebster45206/compass-engine/pkg/state"
)

// lineConsole is the plain prompt used when stdin or stdout is not a terminal, e.g.
// when commands are piped in.
type lineConsole struct {
	engine Engine
	in     *bufio.Scanner
	out    io.Writer
	width  int
	view   *state.SessionView
}

func newLineConsole(engine Engine, in io.Reader, out io.Writer, width int) *lineConsole {
	return &lineConsole{engine: engine, in: bufio.NewScanner(in), out: out, width: width}
}

// Run starts a game in worldRef, or asks for one when it is empty, and plays until
// input ends or the player quits. It returns the world file that was played.
func (c *lineConsole) Run(ctx context.Context, worldRef string) (string, error) {
	if worldRef == "" {
		var err error
		if worldRef, err = c.chooseWorld(ctx); err != nil {
			return "", err
		}
	}

	view, err := c.engine.NewGame(ctx, worldRef)
	if err != nil {
		return "", err
	}
	c.view = view
	c.printf("== %s ==\n\n", view.Room.Name)
	c.print(fromEntries(view.Log))

	for {
		c.printf("> ")
		if !c.in.Scan() {
			c.printf("\n")
			return view.WorldID, c.in.Err()
		}
		input := strings.TrimSpace(c.in.Text())
		if input == "" {
			continue
		}
		if quit := c.handle(ctx, input); quit {
			return view.WorldID, nil
		}
	}
}

func (c *lineConsole) chooseWorld(ctx context.Context) (string, error) {
	worlds, err := c.engine.Worlds(ctx)
	if err != nil {
		return "", err
	}
	if len(worlds) == 0 {
		return "", errors.New("no worlds available")
	}

	c.printf("Available Worlds:\n")
	for i, w := range worlds {
		c.printf("  %d - %s (%s)\n", i+1, w.Name, w.File)
	}
	c.printf("\nSelect a world by number: ")
	if !c.in.Scan() {
		return "", errors.New("no world selected")
	}
	choice, err := strconv.Atoi(strings.TrimSpace(c.in.Text()))
	if err != nil || choice < 1 || choice > len(worlds) {
		return "", errors.New("invalid selection")
	}
	c.printf("\n")
	return worlds[choice-1].File, nil
}

// handle runs one line of input and reports whether the player asked to quit.
func (c *lineConsole) handle(ctx context.Context, input string) bool {
	switch strings.ToLower(input) {
	case "/quit", "quit", "exit":
		return true
	case "/help", "help", "?":
		c.printf("%s\n\n", helpText)
		return false
	case "/exits":
		c.printf("Exits: %s\n\n", exitNames(c.view.ExitOrder))
		return false
	case "/flags":
		if flags := setFlags(c.view.Flags); len(flags) > 0 {
			c.printf("Flags: %s\n\n", strings.Join(flags, ", "))
		} else {
			c.printf("No flags are set.\n\n")
		}
		return false
	}

	resp, err := c.engine.Send(ctx, handlers.IntentRequest{Command: input})
	if err != nil {
		c.printf("Error: %v\n\n", err)
		return false
	}
	view := resp.State
	c.view = &view
	if len(resp.Entries) == 0 {
		c.printf("Nothing happens.\n\n")
		return false
	}
	c.print(fromEntries(resp.Entries))
	return false
}

func (c *lineConsole) print(lines []transcriptLine) {
	_, _ = io.WriteString(c.out, plainTranscript(lines, c.width))
}

func (c *lineConsole) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
