package tui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tatianab/dungeon-crawler/internal/chronicle"
	"github.com/tatianab/dungeon-crawler/internal/dice"
	"github.com/tatianab/dungeon-crawler/internal/models"
	"github.com/tatianab/dungeon-crawler/internal/play"
)

// SaveName is the autosave slot.
const SaveName = "current"

// Archive lists finished runs for the title screen.
type Archive interface {
	ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
}

// Options configures Run.
type Options struct {
	SaveDir  string
	Archive  Archive
	DebugLog string
}

type screen int

const (
	screenTitle screen = iota
	screenLoading
	screenOptions
	screenSubOptions
	screenCustom
	screenError
	screenEnded
)

type model struct {
	ctrl    *play.Controller
	opts    Options
	classes []models.PlayerClass

	state    models.GameState
	cursor   int
	custom   bool
	canLoad  bool
	runs     []models.RunRecord
	lastRoll *dice.Result
	status   string

	textInput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	width     int
	height    int
}

// stateMsg signals that the store changed. The handler reads the latest
// snapshot, so out-of-order delivery is harmless.
type stateMsg struct{}

type doneMsg struct {
	roll *dice.Result
	err  error
}

type runsMsg struct {
	runs []models.RunRecord
}

func newModel(ctrl *play.Controller, opts Options) model {
	ti := textinput.New()
	ti.Placeholder = "Describe what you do..."
	ti.CharLimit = 200
	ti.Width = 50

	_, err := os.Stat(filepath.Join(saveDir(opts), SaveName))
	return model{
		ctrl:      ctrl,
		opts:      opts,
		classes:   ctrl.Store().Reducer().Layout().Classes,
		state:     ctrl.Store().Snapshot(),
		canLoad:   err == nil,
		textInput: ti,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func saveDir(opts Options) string {
	if opts.SaveDir == "" {
		return models.DefaultSaveDir
	}
	return opts.SaveDir
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadRuns())
}

func (m model) screen() screen {
	s := m.state
	switch {
	case s.Error != "":
		return screenError
	case s.Loading:
		return screenLoading
	case s.Phase == models.PhaseTitle:
		return screenTitle
	case s.Phase.Ended():
		return screenEnded
	case m.custom:
		return screenCustom
	case s.CurrentSubOptions != nil:
		return screenSubOptions
	}
	return screenOptions
}

// titleEntries is the number of rows on the title menu.
func (m model) titleEntries() int {
	if m.canLoad {
		return len(m.classes) + 1
	}
	return len(m.classes)
}

func (m model) menuLen() int {
	switch m.screen() {
	case screenTitle:
		return m.titleEntries()
	case screenOptions:
		return len(m.state.CurrentOptions)
	case screenSubOptions:
		return len(m.state.CurrentSubOptions)
	}
	return 0
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logWidth := int(float64(msg.Width) * 0.70)
		if m.viewport.Width == 0 {
			m.viewport = viewport.New(logWidth, msg.Height-10)
		} else {
			m.viewport.Width = logWidth
			m.viewport.Height = msg.Height - 10
		}
		m.viewport.SetContent(m.renderStory())

	case stateMsg:
		prev := m.screen()
		m.state = m.ctrl.Store().Snapshot()
		if m.screen() != prev {
			m.cursor = 0
		}
		m.viewport.SetContent(m.renderStory())
		m.viewport.GotoTop()

	case doneMsg:
		if msg.roll != nil {
			m.lastRoll = msg.roll
		}
		m.state = m.ctrl.Store().Snapshot()
		m.viewport.SetContent(m.renderStory())
		switch {
		case msg.err == nil:
			m.status = ""
			m.autosave()
			if m.state.Phase.Ended() {
				return m, m.loadRuns()
			}
		case errors.Is(msg.err, play.ErrBusy):
		case m.state.Error == "":
			// Input problems leave the state untouched; narrator failures
			// show up on the error screen instead.
			m.status = msg.err.Error()
		}

	case runsMsg:
		m.runs = msg.runs

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	scr := m.screen()

	if scr == screenCustom {
		switch msg.Type {
		case tea.KeyEsc:
			m.custom = false
			m.textInput.Blur()
			m.textInput.Reset()
			return m, nil
		case tea.KeyEnter:
			input := m.textInput.Value()
			m.custom = false
			m.textInput.Blur()
			m.textInput.Reset()
			return m, m.do(func(ctx context.Context) (*dice.Result, error) {
				r, err := m.ctrl.SubmitCustomInput(ctx, input)
				if r.Tier == "" {
					return nil, err
				}
				return &r, err
			})
		}
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < m.menuLen()-1 {
			m.cursor++
		}
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		if i := int(key[0] - '1'); i < m.menuLen() {
			m.cursor = i
			return m.choose()
		}
	}

	switch scr {
	case screenTitle, screenOptions, screenSubOptions:
		switch key {
		case "enter":
			return m.choose()
		case "esc":
			if scr == screenSubOptions {
				m.state = m.ctrl.ClearSelection()
				m.cursor = 0
				m.viewport.SetContent(m.renderStory())
			}
			return m, nil
		case "m":
			if scr == screenOptions {
				return m, m.do(func(ctx context.Context) (*dice.Result, error) {
					return nil, m.ctrl.LoadMore(ctx)
				})
			}
		case "c":
			if scr == screenOptions || scr == screenSubOptions {
				m.custom = true
				m.status = ""
				cmd := m.textInput.Focus()
				return m, cmd
			}
		}

	case screenError:
		switch key {
		case "r", "enter":
			return m, m.do(func(ctx context.Context) (*dice.Result, error) {
				return nil, m.ctrl.Retry(ctx)
			})
		case "esc":
			m.state = m.ctrl.Reset()
			m.cursor = 0
		}

	case screenEnded:
		switch key {
		case "p":
			m.status = m.writeChronicle()
		case "r", "enter":
			m.state = m.ctrl.Reset()
			m.cursor = 0
			m.lastRoll = nil
			m.status = ""
			m.viewport.SetContent(m.renderStory())
		}
	}
	return m, nil
}

// choose acts on the highlighted menu row.
func (m model) choose() (tea.Model, tea.Cmd) {
	switch m.screen() {
	case screenTitle:
		if m.cursor == len(m.classes) && m.canLoad {
			s, err := models.LoadState(m.opts.SaveDir, SaveName)
			if err != nil {
				m.status = fmt.Sprintf("Could not load save: %v", err)
				return m, nil
			}
			m.state = m.ctrl.Restore(s)
			m.cursor = 0
			m.viewport.SetContent(m.renderStory())
			return m, nil
		}
		if m.cursor >= len(m.classes) {
			return m, nil
		}
		name := m.classes[m.cursor].Name
		m.lastRoll = nil
		return m, m.do(func(ctx context.Context) (*dice.Result, error) {
			return nil, m.ctrl.StartGame(ctx, name)
		})

	case screenOptions:
		if m.cursor >= len(m.state.CurrentOptions) {
			return m, nil
		}
		id := m.state.CurrentOptions[m.cursor].ID
		return m, m.do(func(ctx context.Context) (*dice.Result, error) {
			return nil, m.ctrl.SelectOption(ctx, id)
		})

	case screenSubOptions:
		if m.cursor >= len(m.state.CurrentSubOptions) {
			return m, nil
		}
		id := m.state.CurrentSubOptions[m.cursor].ID
		return m, m.do(func(ctx context.Context) (*dice.Result, error) {
			r, err := m.ctrl.SelectSubOption(ctx, id)
			return &r, err
		})
	}
	return m, nil
}

func (m model) do(op func(context.Context) (*dice.Result, error)) tea.Cmd {
	return func() tea.Msg {
		roll, err := op(context.Background())
		return doneMsg{roll: roll, err: err}
	}
}

func (m model) loadRuns() tea.Cmd {
	if m.opts.Archive == nil {
		return nil
	}
	return func() tea.Msg {
		runs, err := m.opts.Archive.ListRuns(context.Background(), 5)
		if err != nil {
			log.Printf("tui: list runs: %v", err)
			return nil
		}
		return runsMsg{runs: runs}
	}
}

func (m *model) autosave() {
	if m.state.Phase != models.PhasePlaying {
		return
	}
	if err := models.SaveState(m.opts.SaveDir, SaveName, m.state); err != nil {
		log.Printf("tui: autosave: %v", err)
		return
	}
	m.canLoad = true
}

func (m model) writeChronicle() string {
	dir := saveDir(m.opts)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Sprintf("Could not write chronicle: %v", err)
	}
	name := "chronicle.pdf"
	if id := m.ctrl.RunID(); id != "" {
		name = "chronicle-" + id + ".pdf"
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Sprintf("Could not write chronicle: %v", err)
	}
	defer f.Close()
	if err := chronicle.Write(f, m.state, m.ctrl.Store().Reducer().Layout()); err != nil {
		return fmt.Sprintf("Could not write chronicle: %v", err)
	}
	return "Chronicle written to " + path
}

// Run plays ctrl in the terminal until the player quits.
func Run(ctrl *play.Controller, opts Options) error {
	if opts.DebugLog != "" {
		f, err := tea.LogToFile(opts.DebugLog, "tui")
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer f.Close()
	}

	p := tea.NewProgram(newModel(ctrl, opts), tea.WithAltScreen())
	// Send blocks while Update runs, and Update itself dispatches.
	cancel := ctrl.Store().Subscribe(func(models.GameState) {
		go p.Send(stateMsg{})
	})
	defer cancel()

	_, err := p.Run()
	return err
}
