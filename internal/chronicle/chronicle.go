// Package chronicle renders a run as a printable PDF: the fate of the hero,
// the highlight reel and the turn-by-turn history.
package chronicle

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/tatianab/dungeon-crawler/internal/dungeon"
	"github.com/tatianab/dungeon-crawler/internal/game"
	"github.com/tatianab/dungeon-crawler/internal/models"
)

const (
	lineHeight = 5.5
	bodySize   = 10
)

// Title is the document title for a run.
func Title(s models.GameState) string {
	name := "a Nameless Wanderer"
	if s.PlayerClass != nil {
		name = s.PlayerClass.Name
	}
	return "Chronicle of " + name
}

// Epitaph sums up how the run went. A victory names the last floor of l.
func Epitaph(s models.GameState, l *dungeon.Layout) string {
	switch s.Phase {
	case models.PhaseVictory:
		where := "the dungeon"
		if l != nil {
			if f, ok := l.Floor(l.FinalFloor()); ok && f.Biome != "" {
				where = f.Biome
			}
		}
		return fmt.Sprintf("Conquered %s in %d turns.", where, s.TurnCount)
	case models.PhaseDead:
		return fmt.Sprintf("Fell on floor %d after %d turns.", s.World.Floor, s.TurnCount)
	case models.PhasePlaying:
		return fmt.Sprintf("Still descending: floor %d, turn %d.", s.World.Floor, s.TurnCount)
	}
	return "The tale has not yet begun."
}

// Write renders the chronicle of s, played in l, to w.
func Write(w io.Writer, s models.GameState, l *dungeon.Layout) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(Title(s), true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(150, 90, 0)
	pdf.CellFormat(0, 12, tr(Title(s)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", 12)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, 8, tr(Epitaph(s, l)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", bodySize)
	pdf.SetTextColor(0, 0, 0)
	stats := fmt.Sprintf("HP %d/%d   STR %d   CHA %d   CRE %d   Gold %d",
		s.HP, s.MaxHP, s.Stats.Strength, s.Stats.Charisma, s.Stats.Creativity, s.Gold)
	pdf.CellFormat(0, lineHeight, stats, "", 1, "L", false, 0, "")
	if len(s.Inventory) > 0 {
		pdf.MultiCell(0, lineHeight, tr("Carried: "+strings.Join(s.Inventory, ", ")), "", "L", false)
	}

	reel := game.Reel(s.Highlights)
	if len(reel) > 0 {
		heading(pdf, "Highlight Reel")
		for _, h := range reel {
			pdf.SetFont("Helvetica", "B", bodySize)
			pdf.CellFormat(0, lineHeight, tr(fmt.Sprintf("Turn %d, floor %d: %s", h.Turn, h.Floor, h.Type.Label())), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", bodySize)
			if h.Choice != "" {
				pdf.MultiCell(0, lineHeight, tr("You chose: "+h.Choice), "", "L", false)
			}
			pdf.MultiCell(0, lineHeight, tr(h.Narration), "", "L", false)
			pdf.Ln(1.5)
		}
	}

	if len(s.History) > 0 {
		heading(pdf, "The Descent")
		for _, t := range s.History {
			pdf.SetFont("Helvetica", "B", bodySize)
			pdf.CellFormat(0, lineHeight, tr(fmt.Sprintf("Turn %d (floor %d) - %s", t.Turn, t.Floor, t.Tier)), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", bodySize)
			if t.Narration != "" {
				pdf.MultiCell(0, lineHeight, tr(t.Narration), "", "L", false)
			}
			pdf.MultiCell(0, lineHeight, tr(fmt.Sprintf("> %s", t.Choice)), "", "L", false)
			pdf.MultiCell(0, lineHeight, tr(t.Outcome), "", "L", false)
			pdf.Ln(1.5)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render chronicle: %w", err)
	}
	return pdf.Output(w)
}

func heading(pdf *gofpdf.Fpdf, text string) {
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(150, 90, 0)
	pdf.CellFormat(0, 9, text, "B", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(1)
}
