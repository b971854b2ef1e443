package game

import (
	"cmp"
	"slices"

	"github.com/tatianab/dungeon-crawler/internal/models"
)

const (
	// ReelSize is the number of moments in the end-of-run summary.
	ReelSize = 5
	// ImageReelSize is the number of moments picked for illustrated reels.
	ImageReelSize = 4
)

// SelectReel picks the n most dramatic highlights, at most one per turn, and
// returns them in turn order. Ties in weight keep their original order. The
// input slice is not modified.
func SelectReel(highlights []models.Highlight, n int) []models.Highlight {
	if n <= 0 || len(highlights) == 0 {
		return []models.Highlight{}
	}

	ranked := slices.Clone(highlights)
	slices.SortStableFunc(ranked, func(a, b models.Highlight) int {
		return cmp.Compare(b.DramaticWeight, a.DramaticWeight)
	})

	seen := make(map[int]bool, len(ranked))
	top := make([]models.Highlight, 0, n)
	for _, h := range ranked {
		if seen[h.Turn] {
			continue
		}
		seen[h.Turn] = true
		top = append(top, h)
		if len(top) == n {
			break
		}
	}

	slices.SortStableFunc(top, func(a, b models.Highlight) int {
		return cmp.Compare(a.Turn, b.Turn)
	})
	return top
}

// Reel is SelectReel with the summary size.
func Reel(highlights []models.Highlight) []models.Highlight {
	return SelectReel(highlights, ReelSize)
}

// ImageReel is SelectReel with the illustrated reel size.
func ImageReel(highlights []models.Highlight) []models.Highlight {
	return SelectReel(highlights, ImageReelSize)
}
