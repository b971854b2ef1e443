package game

import "github.com/tatianab/dungeon-crawler/internal/models"

// Dramatic weights per highlight type.
const (
	WeightCriticalSuccess = 8
	WeightWildSuccess     = 9
	WeightWildFailure     = 7
	WeightCloseCall       = 7
	WeightMajorGain       = 5
	WeightMajorLoss       = 6
	WeightDeath           = 10
	WeightVictory         = 10
)

// CloseCallHP is the highest surviving hp that still counts as a close call.
const CloseCallHP = 2

// HighlightInput is what the classifier looks at for one resolved turn. Base
// carries the turn, floor, narration and choice copied into every record.
type HighlightInput struct {
	Base        models.Highlight
	Tier        models.Tier
	WasWild     bool
	HP          int
	ItemsGained []string
	ItemsLost   []string
}

// Classify returns the highlights earned by a resolved turn, excluding death
// and victory which depend on the phase decision. The checks are
// independent, so one turn can produce several records.
func Classify(in HighlightInput) []models.Highlight {
	var out []models.Highlight

	if in.Tier == models.TierCriticalSuccess {
		out = append(out, withType(in.Base, models.HighlightCriticalSuccess))
	}
	if in.WasWild && (in.Tier == models.TierCriticalSuccess || in.Tier == models.TierSuccess) {
		out = append(out, withType(in.Base, models.HighlightWildSuccess))
	}
	if in.WasWild && in.Tier == models.TierFailure {
		out = append(out, withType(in.Base, models.HighlightWildFailure))
	}
	if in.HP > 0 && in.HP <= CloseCallHP {
		out = append(out, withType(in.Base, models.HighlightCloseCall))
	}
	if len(in.ItemsGained) > 0 {
		out = append(out, withType(in.Base, models.HighlightMajorGain))
	}
	if len(in.ItemsLost) > 0 {
		out = append(out, withType(in.Base, models.HighlightMajorLoss))
	}

	return out
}

// Weight returns the dramatic weight of a highlight type.
func Weight(t models.HighlightType) int {
	switch t {
	case models.HighlightCriticalSuccess:
		return WeightCriticalSuccess
	case models.HighlightWildSuccess:
		return WeightWildSuccess
	case models.HighlightWildFailure:
		return WeightWildFailure
	case models.HighlightCloseCall:
		return WeightCloseCall
	case models.HighlightMajorGain:
		return WeightMajorGain
	case models.HighlightMajorLoss:
		return WeightMajorLoss
	case models.HighlightDeath:
		return WeightDeath
	case models.HighlightVictory:
		return WeightVictory
	}
	return 0
}

func withType(base models.Highlight, t models.HighlightType) models.Highlight {
	base.Type = t
	base.DramaticWeight = Weight(t)
	return base
}
