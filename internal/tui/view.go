package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tatianab/dungeon-crawler/internal/chronicle"
	"github.com/tatianab/dungeon-crawler/internal/game"
	"github.com/tatianab/dungeon-crawler/internal/models"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	wildStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D75FD7"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

var tierStyles = map[models.Tier]lipgloss.Style{
	models.TierCriticalSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
	models.TierSuccess:         lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")),
	models.TierPartial:         lipgloss.NewStyle().Foreground(lipgloss.Color("#D7AF5F")),
	models.TierFailure:         lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
}

func (m model) View() string {
	var s string

	switch m.screen() {
	case screenTitle:
		s = m.viewTitle()

	case screenLoading:
		msg := m.state.LoadingMessage
		if msg == "" {
			msg = "Loading..."
		}
		s = fmt.Sprintf("\n  %s %s\n", m.spinner.View(), msg)

	case screenError:
		s = fmt.Sprintf("\n  %s\n\n%s",
			errorStyle.Render(m.state.Error),
			helpStyle.Render("  r: retry   esc: back to title   q: quit"))

	case screenEnded:
		s = m.viewEnded()

	default:
		main := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderState())
		s = lipgloss.JoinVertical(lipgloss.Left, main, "", m.renderMenu(), "", m.renderHelp())
	}

	if m.status != "" {
		s += "\n\n" + helpStyle.Render(m.status)
	}
	return "\n" + s + "\n"
}

func (m model) viewTitle() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("DESCENT INTO THE DEEP"))
	b.WriteString("\n\nChoose your class:\n\n")
	for i, c := range m.classes {
		line := fmt.Sprintf("%d. %s %s  (HP %d, STR %d, CHA %d, CRE %d, %d gold)",
			i+1, c.Emoji, c.Name, c.HP, c.Stats.Strength, c.Stats.Charisma, c.Stats.Creativity, c.Gold)
		b.WriteString(m.row(i, line))
		if c.Description != "" {
			b.WriteString("     " + helpStyle.Render(c.Description) + "\n")
		}
	}
	if m.canLoad {
		b.WriteString(m.row(len(m.classes), fmt.Sprintf("%d. Resume saved run", len(m.classes)+1)))
	}

	if len(m.runs) > 0 {
		b.WriteString("\n" + titleStyle.Render("RECENT RUNS") + "\n")
		for _, r := range m.runs {
			fate := "fell on floor " + fmt.Sprint(r.Floor)
			if r.Phase == models.PhaseVictory {
				fate = "conquered the dungeon"
			}
			fmt.Fprintf(&b, "  %s %s in %d turns, %d gold\n", r.Class, fate, r.Turns, r.Gold)
		}
	}

	b.WriteString("\n" + helpStyle.Render("up/down or 1-9 to pick, enter to start, q to quit"))
	return b.String()
}

func (m model) viewEnded() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(chronicle.Title(m.state))))
	b.WriteString("\n\n" + gameStyle.Render(chronicle.Epitaph(m.state, m.ctrl.Store().Reducer().Layout())) + "\n")
	if o := m.state.LastOutcome; o != nil {
		b.WriteString("\n" + m.wrap(o.Narration) + "\n")
	}

	reel := game.Reel(m.state.Highlights)
	if len(reel) > 0 {
		b.WriteString("\n" + titleStyle.Render("HIGHLIGHT REEL") + "\n")
		for _, h := range reel {
			fmt.Fprintf(&b, "\n%s  %s\n",
				cursorStyle.Render(h.Type.Label()),
				helpStyle.Render(fmt.Sprintf("turn %d, floor %d", h.Turn, h.Floor)))
			if h.Choice != "" {
				b.WriteString(userStyle.Render("> "+h.Choice) + "\n")
			}
			b.WriteString(m.wrap(h.Narration) + "\n")
		}
	}

	b.WriteString("\n" + helpStyle.Render("p: write chronicle PDF   r: new run   q: quit"))
	return b.String()
}

// renderStory is the scrolling narration panel.
func (m model) renderStory() string {
	s := m.state
	if s.Phase != models.PhasePlaying {
		return ""
	}
	var b strings.Builder
	location := fmt.Sprintf("Floor %d: %s, %s", s.World.Floor, s.World.Biome, s.World.Location)
	b.WriteString(gameStyle.Bold(true).Render(location) + "\n\n")

	if o := s.LastOutcome; o != nil {
		if o.Choice != "" {
			b.WriteString(userStyle.Render("> "+o.Choice) + "\n")
		}
		tier := strings.ToUpper(strings.ReplaceAll(string(o.Tier), "_", " "))
		if r := m.lastRoll; r != nil && r.Threshold > 0 {
			tier += fmt.Sprintf("  (rolled %d, %d vs %d)", r.Roll, r.EffectiveScore, r.Threshold)
		}
		b.WriteString(tierStyles[o.Tier].Render(tier) + "\n")
		b.WriteString(m.wrap(o.Narration) + "\n\n")
	}
	b.WriteString(m.wrap(s.CurrentNarration))
	return b.String()
}

func (m model) wrap(text string) string {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	return gameStyle.Width(width).Render(text)
}

func (m model) renderState() string {
	s := m.state
	class := ""
	if s.PlayerClass != nil {
		class = s.PlayerClass.Emoji + " " + s.PlayerClass.Name + "\n\n"
	}

	stats := titleStyle.Render("STATS") + "\n" +
		fmt.Sprintf("HP: %d/%d\nGold: %d\nSTR %d  CHA %d  CRE %d\n\n",
			s.HP, s.MaxHP, s.Gold, s.Stats.Strength, s.Stats.Charisma, s.Stats.Creativity)

	inventory := titleStyle.Render("INVENTORY") + "\n"
	if len(s.Inventory) == 0 {
		inventory += "(empty)\n"
	}
	for _, item := range s.Inventory {
		inventory += "- " + item + "\n"
	}

	progress := "\n" + titleStyle.Render("DEPTH") + "\n" +
		fmt.Sprintf("Floor %d of %d\nEncounter %d\nTurn %d\n",
			s.World.Floor, m.ctrl.Store().Reducer().Layout().FinalFloor(), s.World.EncounterOnFloor, s.TurnCount)

	effects := ""
	if len(s.World.ActiveEffects) > 0 {
		effects = "\n" + titleStyle.Render("EFFECTS") + "\n" + strings.Join(s.World.ActiveEffects, "\n") + "\n"
	}

	stateWidth := int(float64(m.width) * 0.27)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(class + stats + inventory + progress + effects)
}

func (m model) renderMenu() string {
	var b strings.Builder
	switch m.screen() {
	case screenOptions:
		for i, o := range m.state.CurrentOptions {
			label := fmt.Sprintf("%d. %s %s", i+1, o.Emoji, o.Label)
			if o.Wild {
				label += wildStyle.Render("  [wild]")
			}
			b.WriteString(m.row(i, label))
			if o.Hint != "" {
				b.WriteString("     " + helpStyle.Render(o.Hint) + "\n")
			}
		}
	case screenSubOptions:
		if sel := m.state.SelectedOption; sel != nil {
			b.WriteString(cursorStyle.Render(sel.Emoji+" "+sel.Label) + "\n")
		}
		for i, o := range m.state.CurrentSubOptions {
			check := "no check"
			if o.StatCheck != models.StatNone && o.StatCheck != "" {
				check = fmt.Sprintf("%s %d", o.StatCheck, o.Difficulty)
			}
			label := fmt.Sprintf("%d. %s  (%s)", i+1, o.Label, check)
			if o.Wild {
				label += wildStyle.Render("  [wild]")
			}
			b.WriteString(m.row(i, label))
			if o.Description != "" {
				b.WriteString("     " + helpStyle.Render(o.Description) + "\n")
			}
		}
	case screenCustom:
		b.WriteString("What do you do?\n\n" + m.textInput.View())
	}
	return b.String()
}

func (m model) renderHelp() string {
	switch m.screen() {
	case screenSubOptions:
		return helpStyle.Render("enter: act   esc: back   c: something else   pgup/pgdown: scroll   q: quit")
	case screenCustom:
		return helpStyle.Render("enter: attempt it   esc: cancel")
	}
	return helpStyle.Render("enter: choose   m: more options   c: custom action   pgup/pgdown: scroll   q: quit")
}

func (m model) row(i int, text string) string {
	if i == m.cursor {
		return cursorStyle.Render("> ") + text + "\n"
	}
	return "  " + text + "\n"
}
