package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tatianab/dungeon-crawler/internal/dungeon"
	"github.com/tatianab/dungeon-crawler/internal/engine"
	"github.com/tatianab/dungeon-crawler/internal/game"
	"github.com/tatianab/dungeon-crawler/internal/models"
	"github.com/tatianab/dungeon-crawler/internal/play"
)

type fixedSource int

func (f fixedSource) Intn(int) int { return int(f) }

func newTestModel(t *testing.T) model {
	t.Helper()
	store := game.NewStore(game.NewReducer(dungeon.Default(), fixedSource(0)))
	ctrl := play.New(store, engine.NewScripted(nil), fixedSource(9), nil)
	return newModel(ctrl, Options{SaveDir: t.TempDir()})
}

// press sends a key and runs the resulting command, if any, to completion.
func press(t *testing.T, m model, key tea.KeyMsg) model {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(model)
	if cmd == nil {
		return m
	}
	if msg, ok := cmd().(doneMsg); ok {
		next, _ = m.Update(msg)
		m = next.(model)
	}
	return m
}

// send delivers a key without running the command it returns.
func send(m model, key tea.KeyMsg) model {
	next, _ := m.Update(key)
	return next.(model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStartRunAndAutosave(t *testing.T) {
	m := newTestModel(t)
	if m.screen() != screenTitle || m.canLoad {
		t.Fatalf("expected a fresh title screen")
	}
	if !strings.Contains(m.View(), "The Fighter") {
		t.Errorf("title should list classes")
	}

	m = press(t, m, runes("2"))
	if m.screen() != screenOptions || m.state.PlayerClass.Name != "The Merchant" {
		t.Fatalf("expected a merchant run, got screen %d", m.screen())
	}
	if _, err := models.LoadState(m.opts.SaveDir, SaveName); err != nil {
		t.Errorf("expected an autosave: %v", err)
	}
	if !m.canLoad {
		t.Errorf("resume should be offered after an autosave")
	}
	if !strings.Contains(m.View(), "Investigate Left Passage") {
		t.Errorf("options should be rendered")
	}
}

func TestOptionFlow(t *testing.T) {
	m := press(t, newTestModel(t), tea.KeyMsg{Type: tea.KeyEnter})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", m.cursor)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen() != screenSubOptions || m.state.SelectedOption.ID != 2 {
		t.Fatalf("expected sub-options for option 2")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen() != screenOptions || m.state.SelectedOption != nil {
		t.Fatalf("esc should clear the selection")
	}

	m = press(t, m, runes("1"))
	m = press(t, m, runes("2"))
	if m.state.TurnCount != 1 || m.lastRoll == nil || m.lastRoll.Roll != 10 {
		t.Fatalf("expected a resolved turn with a roll of 10, got turn %d roll %+v", m.state.TurnCount, m.lastRoll)
	}
	if !strings.Contains(m.renderStory(), "rolled 10") {
		t.Errorf("story should show the roll")
	}

	m = press(t, m, runes("m"))
	if len(m.state.CurrentOptions) != 6 {
		t.Errorf("expected 6 options after loading more, got %d", len(m.state.CurrentOptions))
	}
}

func TestCustomAction(t *testing.T) {
	m := press(t, newTestModel(t), tea.KeyMsg{Type: tea.KeyEnter})

	m = send(m, runes("c"))
	if m.screen() != screenCustom {
		t.Fatalf("expected the custom input screen")
	}
	m = send(m, runes("wish for wings"))
	if m.textInput.Value() != "wish for wings" {
		t.Fatalf("unexpected input %q", m.textInput.Value())
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.custom || m.state.TurnCount != 1 || m.state.LastOutcome.Choice != game.RejectedChoice {
		t.Errorf("expected a rejected custom action, got %+v", m.state.LastOutcome)
	}
}

func TestErrorScreenRetry(t *testing.T) {
	store := game.NewStore(game.NewReducer(dungeon.Default(), fixedSource(0)))
	narrator := engine.NewScripted(nil)
	narrator.FailWith(os.ErrDeadlineExceeded)
	m := newModel(play.New(store, narrator, fixedSource(4), nil), Options{SaveDir: t.TempDir()})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen() != screenError || !strings.Contains(m.View(), play.ErrorPrefix) {
		t.Fatalf("expected the error screen, got %d", m.screen())
	}

	narrator.FailWith(nil)
	m = press(t, m, runes("r"))
	if m.screen() != screenOptions {
		t.Fatalf("retry should recover, got screen %d", m.screen())
	}
}

func TestEndedScreen(t *testing.T) {
	m := press(t, newTestModel(t), tea.KeyMsg{Type: tea.KeyEnter})
	m.state.Phase = models.PhaseDead
	m.state.Highlights = []models.Highlight{{Turn: 1, Floor: 1, Type: models.HighlightDeath, Narration: "The end."}}

	view := m.View()
	if !strings.Contains(view, "Final Moment") || !strings.Contains(view, "Fell on floor") {
		t.Errorf("ended view missing reel or epitaph:\n%s", view)
	}

	m = press(t, m, runes("p"))
	path := filepath.Join(m.opts.SaveDir, "chronicle-"+m.ctrl.RunID()+".pdf")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected chronicle at %s: %v", path, err)
	}
	if !strings.Contains(m.status, path) {
		t.Errorf("unexpected status %q", m.status)
	}

	m = press(t, m, runes("r"))
	if m.screen() != screenTitle {
		t.Errorf("expected the title after restarting")
	}
}

func TestResume(t *testing.T) {
	m := press(t, newTestModel(t), tea.KeyMsg{Type: tea.KeyEnter})
	dir := m.opts.SaveDir

	fresh := newModel(m.ctrl, Options{SaveDir: dir})
	fresh.ctrl.Reset()
	fresh.state = fresh.ctrl.Store().Snapshot()
	if !fresh.canLoad || fresh.titleEntries() != 4 {
		t.Fatalf("expected a resume entry")
	}
	fresh = press(t, fresh, runes("4"))
	if fresh.screen() != screenOptions || fresh.state.PlayerClass.Name != "The Fighter" {
		t.Errorf("expected the saved fighter run, got screen %d", fresh.screen())
	}
}
