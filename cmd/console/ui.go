package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/compass-engine/internal/handlers"
	"github.com/jwebster45206/compass-engine/internal/session"
	"github.com/jwebster45206/compass-engine/pkg/state"
	"github.com/jwebster45206/compass-engine/pkg/world"
)

const (
	PlaceHolderText = "Type a command, or /help..."
	maxHistory      = 50
)

// lineError marks console-side errors in the transcript.
const lineError state.LogKind = "error"

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	engine       Engine
	settings     Settings
	settingsPath string
	timeout      time.Duration

	view         *state.SessionView
	transcript   []transcriptLine
	logViewport  viewport.Model
	metaViewport viewport.Model
	input        textinput.Model
	ready        bool
	width        int
	height       int
	err          error
	status       string
	loading      bool

	// Command history, newest last
	history    []string
	historyIdx int

	// World selection state
	showWorldModal bool
	worlds         []session.WorldInfo
	selectedWorld  int
	loadingWorlds  bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type worldsLoadedMsg struct {
	worlds []session.WorldInfo
	err    error
}

type gameCreatedMsg struct {
	view *state.SessionView
	err  error
}

type turnMsg struct {
	resp *handlers.TurnResponse
	err  error
}

type copiedMsg struct {
	err error
}

type settingsSavedMsg struct {
	err error
}

type progressTickMsg struct{}

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	descriptionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // grey

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
			Italic(true)

	exitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(engine Engine, settings Settings, settingsPath string) ConsoleUI {
	ti := textinput.New()
	ti.Placeholder = PlaceHolderText
	ti.Focus()
	ti.Prompt = promptStyle.Render(":: ")
	ti.CharLimit = 200
	ti.Width = 50
	ti.ShowSuggestions = true

	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true
	// Letters belong to the input; only paging keys scroll.
	logVp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}

	metaVp := viewport.New(20, 20)
	metaVp.KeyMap = viewport.KeyMap{}

	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return ConsoleUI{
		engine:         engine,
		settings:       settings,
		settingsPath:   settingsPath,
		timeout:        timeout,
		input:          ti,
		logViewport:    logVp,
		metaViewport:   metaVp,
		showWorldModal: true,
		loadingWorlds:  true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showWorldModal {
		return m.loadWorlds()
	}
	return textinput.Blink
}

// layout sizes the panels for the current window.
func (m *ConsoleUI) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6

	m.logViewport.Width = logWidth - 2
	m.logViewport.Height = m.height - 8
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.input.Width = logWidth - 8
}

// writeTranscript rebuilds the log panel for the current viewport width.
func (m *ConsoleUI) writeTranscript() {
	width := m.logViewport.Width - 6 // Account for left(3) + right(3) padding

	var content strings.Builder
	content.WriteString(titleStyle.Render("COMPASS ENGINE") + "\n\n")
	if m.view != nil && m.view.World != nil {
		content.WriteString(m.view.World.Name + "\n")
	}
	content.WriteString("Type /help for commands.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(width, 1))) + "\n\n")

	for _, l := range m.transcript {
		if l.Kind == lineError {
			content.WriteString(errorStyle.Render(wrapLine("Error: "+l.Text, width)) + "\n\n")
			continue
		}
		content.WriteString(formatLine(l, width) + "\n\n")
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.logViewport.SetContent(content.String())
	m.logViewport.GotoBottom()
}

func writeStatePanel(view *state.SessionView) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("GAME STATE") + "\n\n")
	if view == nil || view.GameState == nil {
		return content.String()
	}

	content.WriteString("Game ID:\n")
	content.WriteString(view.ID.String()[:8] + "...\n\n")

	content.WriteString("Location:\n")
	content.WriteString(view.Room.Name + "\n\n")

	content.WriteString(compassRose(view.ExitOrder) + "\n")
	content.WriteString("Exits:\n" + exitNames(view.ExitOrder) + "\n\n")

	content.WriteString("Here:\n")
	if names := itemNames(view.Room.Items); len(names) > 0 {
		for _, n := range names {
			content.WriteString("• " + n + "\n")
		}
	} else {
		content.WriteString("Nothing\n")
	}
	content.WriteString("\n")

	content.WriteString("Inventory:\n")
	if names := itemNames(view.Items); len(names) > 0 {
		for _, n := range names {
			content.WriteString("• " + n + "\n")
		}
	} else {
		content.WriteString("Empty\n")
	}
	content.WriteString("\n")

	mode := titleCaser.String(strings.ReplaceAll(string(view.Mode), "_", " "))
	content.WriteString("Mode:\n" + mode + "\n")
	if view.Mode == state.ModeItemMenu && view.SelectedItem != "" {
		name := view.SelectedItem
		if item, ok := view.World.Item(view.SelectedItem); ok {
			name = item.Name
		}
		content.WriteString("Selected: " + name + "\n")
	}
	content.WriteString("\n")

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• Tab: Complete\n")
	content.WriteString("• Ctrl+Y: Copy log\n")
	content.WriteString("• /help: Help\n")

	return content.String()
}

// suggestionsFor offers completions for the commands that make sense right now.
func suggestionsFor(view *state.SessionView) []string {
	if view == nil || view.GameState == nil {
		return nil
	}
	out := []string{"look", "inventory", "/help", "/exits", "/flags", "/copy", "/new", "/quit"}
	for _, d := range view.ExitOrder {
		out = append(out, "go "+d.Name())
	}
	for _, it := range view.Room.Items {
		out = append(out, "take "+strings.ToLower(it.Name))
	}
	for _, it := range view.Items {
		name := strings.ToLower(it.Name)
		out = append(out, "use "+name, "inspect "+name, "drop "+name, "select "+name)
	}
	if view.Mode == state.ModeItemMenu {
		out = append(out, "cancel")
	}
	return out
}

func (m *ConsoleUI) appendLines(lines ...transcriptLine) {
	m.transcript = append(m.transcript, lines...)
	m.writeTranscript()
}

func (m *ConsoleUI) setView(view *state.SessionView) {
	m.view = view
	m.metaViewport.SetContent(writeStatePanel(view))
	m.input.SetSuggestions(suggestionsFor(view))
}

func (m *ConsoleUI) pushHistory(input string) {
	if n := len(m.history); n == 0 || m.history[n-1] != input {
		m.history = append(m.history, input)
		if len(m.history) > maxHistory {
			m.history = m.history[1:]
		}
	}
	m.historyIdx = len(m.history)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle world modal first
	if m.showWorldModal && !m.showQuitModal {
		return m.updateWorldModal(msg)
	}

	// Handle quit modal second
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.writeTranscript()
		m.metaViewport.SetContent(writeStatePanel(m.view))

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyCtrlY:
			return m, copyTranscript(m.transcript, m.logViewport.Width-6)
		case tea.KeyUp:
			if m.historyIdx > 0 {
				m.historyIdx--
				m.input.SetValue(m.history[m.historyIdx])
				m.input.CursorEnd()
			}
			return m, nil
		case tea.KeyDown:
			if m.historyIdx < len(m.history)-1 {
				m.historyIdx++
				m.input.SetValue(m.history[m.historyIdx])
				m.input.CursorEnd()
			} else {
				m.historyIdx = len(m.history)
				m.input.Reset()
			}
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.input.Value())
			if input == "" {
				return m, nil
			}
			m.input.Reset()
			m.pushHistory(input)
			m.status = ""

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.loading = true
			m.progressTick = 0 // Reset progress animation
			m.appendLines(transcriptLine{Kind: LinePlayer, Text: input})

			return m, tea.Batch(m.sendTurn(input), progressTick())
		}

	case turnMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.appendLines(transcriptLine{Kind: lineError, Text: msg.err.Error()})
			return m, nil
		}
		m.err = nil
		view := msg.resp.State
		m.setView(&view)
		if len(msg.resp.Entries) == 0 {
			m.appendLines(transcriptLine{Kind: state.LogSystem, Text: "Nothing happens."})
		} else {
			m.appendLines(fromEntries(msg.resp.Entries)...)
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("Copy failed: " + msg.err.Error())
		} else {
			m.status = loadingStyle.Render("Transcript copied to clipboard")
		}
		return m, nil

	case settingsSavedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(msg.err.Error())
		}
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeTranscript()      // Refresh to animate the progress bar
			return m, progressTick() // Continue the animation
		}
		return m, nil
	}

	m.input, tiCmd = m.input.Update(msg)
	m.logViewport, vpCmd = m.logViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))

	switch cmd {
	case "/help":
		m.appendLines(transcriptLine{Kind: state.LogSystem, Text: helpText})

	case "/exits":
		var exits []world.Direction
		if m.view != nil {
			exits = m.view.ExitOrder
		}
		m.appendLines(transcriptLine{Kind: state.LogSystem, Text: "Exits: " + exitNames(exits)})

	case "/flags":
		var flags []string
		if m.view != nil {
			flags = setFlags(m.view.Flags)
		}
		text := "No flags are set."
		if len(flags) > 0 {
			text = "Flags: " + strings.Join(flags, ", ")
		}
		m.appendLines(transcriptLine{Kind: state.LogSystem, Text: text})

	case "/copy":
		return m, copyTranscript(m.transcript, m.logViewport.Width-6)

	case "/new":
		m.showWorldModal = true
		m.loadingWorlds = true
		m.err = nil
		return m, m.loadWorlds()

	case "/quit":
		m.showQuitModal = true

	default:
		m.appendLines(transcriptLine{Kind: lineError, Text: "unknown console command " + cmd})
	}

	return m, nil
}

func (m ConsoleUI) sendTurn(input string) tea.Cmd {
	engine, timeout := m.engine, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := engine.Send(ctx, handlers.IntentRequest{Command: input})
		return turnMsg{resp, err}
	}
}

func (m ConsoleUI) loadWorlds() tea.Cmd {
	engine, timeout := m.engine, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		worlds, err := engine.Worlds(ctx)
		return worldsLoadedMsg{worlds, err}
	}
}

func (m ConsoleUI) createGame(file string) tea.Cmd {
	engine, timeout := m.engine, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		view, err := engine.NewGame(ctx, file)
		return gameCreatedMsg{view, err}
	}
}

func (m ConsoleUI) saveSettings() tea.Cmd {
	if m.settingsPath == "" {
		return nil
	}
	path, settings := m.settingsPath, m.settings
	return func() tea.Msg {
		return settingsSavedMsg{SaveSettings(path, settings)}
	}
}

func copyTranscript(lines []transcriptLine, width int) tea.Cmd {
	text := plainTranscript(lines, width)
	return func() tea.Msg {
		if text == "" {
			return copiedMsg{errors.New("nothing to copy")}
		}
		return copiedMsg{clipboard.WriteAll(text)}
	}
}

func (m ConsoleUI) updateWorldModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case worldsLoadedMsg:
		m.loadingWorlds = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.worlds = msg.worlds
		m.selectedWorld = 0
		for i, w := range m.worlds {
			if w.File == m.settings.LastWorld {
				m.selectedWorld = i
			}
		}

	case gameCreatedMsg:
		// Regardless of outcome, we're no longer in the create-game loading phase
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.showWorldModal = false
		m.err = nil
		m.layout()
		m.transcript = fromEntries(msg.view.Log)
		m.history = nil
		m.historyIdx = 0
		m.setView(msg.view)
		m.writeTranscript()
		m.input.Focus() // Ensure the input gets focus when modal closes
		m.ready = true
		m.settings.LastWorld = msg.view.WorldID
		return m, tea.Batch(textinput.Blink, m.saveSettings())

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			if m.view == nil {
				return m, tea.Quit
			}
			// Back to the game in progress
			m.showWorldModal = false
			m.loadingWorlds = false
			m.loading = false
			m.err = nil
			return m, nil
		}
		if m.loadingWorlds || m.loading || m.err != nil {
			return m, nil
		}

		switch msg.Type {
		case tea.KeyUp:
			if m.selectedWorld > 0 {
				m.selectedWorld--
			}
		case tea.KeyDown:
			if m.selectedWorld < len(m.worlds)-1 {
				m.selectedWorld++
			}
		case tea.KeyEnter:
			if len(m.worlds) > 0 {
				m.loading = true
				return m, m.createGame(m.worlds[m.selectedWorld].File)
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.showWorldModal {
					return m, nil
				}
				m.input.Focus()
				return m, textinput.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to quit your adventure?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderWorldModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingWorlds:
		content.WriteString(modalTitleStyle.Render("Loading Worlds..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we fetch available worlds..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("%v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Esc to go back or Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Creating Game..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Setting up your adventure..."))
	case len(m.worlds) == 0:
		content.WriteString(modalTitleStyle.Render("No Worlds"))
		content.WriteString("\n\n")
		content.WriteString("No world files were found.")
	default:
		content.WriteString(modalTitleStyle.Render("Select a World"))
		content.WriteString("\n\n")

		for i, w := range m.worlds {
			if i == m.selectedWorld {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", w.Name)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", w.Name)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if m.showWorldModal {
		return m.renderWorldModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.logViewport.View(),
			"", // Add empty line for spacing
			separatorStyle.Render(strings.Repeat("─", max(logWidth-4, 1))),
			m.input.View(),
			m.status,
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.logViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
