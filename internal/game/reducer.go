// Package game is the turn resolution engine: a synchronous reducer over a
// closed set of actions, the highlight classifier and the highlight reel.
//
// Reducer.Apply never mutates the state it is given. Slices and maps are
// copied before they change, so earlier snapshots stay valid and history and
// highlights remain auditable.
package game

import (
	"maps"
	"math/rand"
	"slices"
	"time"

	"github.com/tatianab/dungeon-crawler/internal/dice"
	"github.com/tatianab/dungeon-crawler/internal/dungeon"
	"github.com/tatianab/dungeon-crawler/internal/models"
)

const (
	MinStat       = 1
	MaxStat       = 10
	MinReputation = -3
	MaxReputation = 3
)

// RejectedChoice is the choice label recorded for refused custom input.
const RejectedChoice = "custom action (rejected)"

// LoadingMessages is the flavour pool used when loading starts without an
// explicit message.
var LoadingMessages = []string{
	"The dungeon shifts around you...",
	"Fate weighs your choices...",
	"Shadows whisper of what's to come...",
	"The walls remember your passage...",
	"Something stirs in the darkness...",
	"The abyss gazes back...",
	"Ancient mechanisms groan to life...",
	"Your destiny is being woven...",
}

// Reducer applies actions to game states.
type Reducer struct {
	layout *dungeon.Layout
	rng    dice.Source
}

// NewReducer returns a reducer for layout. rng picks loading messages; nil
// uses a time-seeded source.
func NewReducer(layout *dungeon.Layout, rng dice.Source) *Reducer {
	if layout == nil {
		layout = dungeon.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Reducer{layout: layout, rng: rng}
}

// Layout returns the dungeon the reducer plays against.
func (r *Reducer) Layout() *dungeon.Layout {
	return r.layout
}

// InitialState is the title-screen state of a fresh game.
func (r *Reducer) InitialState() models.GameState {
	biome := ""
	if f, ok := r.layout.Floor(1); ok {
		biome = f.Biome
	}
	return models.GameState{
		Phase:      models.PhaseTitle,
		Stats:      models.Stats{Strength: 3, Charisma: 3, Creativity: 3},
		HP:         10,
		MaxHP:      10,
		Inventory:  []string{},
		Reputation: map[string]int{},
		World: models.WorldState{
			Floor:            1,
			EncounterOnFloor: 1,
			Biome:            biome,
			Entities:         []models.Entity{},
			Objects:          []string{},
			EnvironmentTags:  []string{},
			ActiveEffects:    []string{},
			Flags:            map[string]any{},
		},
		History:        []models.TurnSummary{},
		Highlights:     []models.Highlight{},
		CurrentOptions: []models.HighLevelOption{},
	}
}

// Apply returns the state that follows s after action a.
func (r *Reducer) Apply(s models.GameState, a Action) models.GameState {
	switch a := a.(type) {
	case SetCredential:
		switch a.Field {
		case CredentialNarrator:
			s.Credentials.NarratorKey = a.Value
		case CredentialImage:
			s.Credentials.ImageKey = a.Value
		}
		return s

	case SelectClass:
		if s.Phase != models.PhaseTitle {
			return s
		}
		class := a.Class
		class.Inventory = slices.Clone(class.Inventory)
		s.PlayerClass = &class
		s.Stats = class.Stats
		s.HP = class.HP
		s.MaxHP = class.HP
		s.Gold = class.Gold
		s.Inventory = nonNil(slices.Clone(class.Inventory))
		s.Phase = models.PhasePlaying
		return s

	case IngestOpeningScenario:
		p := a.Payload
		s.CurrentNarration = p.Narration
		s.CurrentOptions = nonNil(slices.Clone(p.Options))
		s.World.Location = p.Location
		s.World.Biome = p.Biome
		s.World.Entities = nonNil(slices.Clone(p.Entities))
		s.World.Objects = nonNil(slices.Clone(p.Objects))
		s.World.EnvironmentTags = nonNil(slices.Clone(p.EnvironmentTags))
		s.Loading = false
		s.Error = ""
		return s

	case SelectHighLevelOption:
		opt := a.Option
		s.SelectedOption = &opt
		s.CurrentSubOptions = nil
		return s

	case SetSubOptions:
		s.CurrentSubOptions = nonNil(slices.Clone(a.Options))
		s.Loading = false
		return s

	case AppendMoreOptions:
		s.CurrentOptions = nonNil(slices.Concat(s.CurrentOptions, a.Options))
		s.Loading = false
		return s

	case ResolveAction:
		return r.resolve(s, a)

	case RejectCustomInput:
		if s.Phase != models.PhasePlaying {
			return s
		}
		s.TurnCount++
		s.LastOutcome = &models.Outcome{
			Narration: a.Narration,
			Tier:      models.TierFailure,
			Choice:    RejectedChoice,
		}
		s.SelectedOption = nil
		s.CurrentSubOptions = nil
		s.Loading = false
		return s

	case SetLoading:
		s.Loading = a.Loading
		s.LoadingMessage = a.Message
		if a.Loading {
			s.Error = ""
			if s.LoadingMessage == "" {
				s.LoadingMessage = LoadingMessages[r.rng.Intn(len(LoadingMessages))]
			}
		}
		return s

	case SetError:
		s.Error = a.Message
		s.Loading = false
		return s

	case ClearSelection:
		s.SelectedOption = nil
		s.CurrentSubOptions = nil
		return s

	case ResetGame:
		next := r.InitialState()
		next.Credentials = s.Credentials
		return next

	case RestoreSnapshot:
		next := a.State
		next.Credentials = s.Credentials
		next.Loading = false
		next.LoadingMessage = ""
		next.Error = ""
		// Saves cannot tell an unfetched sub-option list from an empty one.
		if next.SelectedOption == nil || len(next.CurrentSubOptions) == 0 {
			next.CurrentSubOptions = nil
		}
		return next
	}

	return s
}

func (r *Reducer) resolve(s models.GameState, a ResolveAction) models.GameState {
	if s.Phase != models.PhasePlaying {
		return s
	}
	p := a.Payload
	prevFloor := s.World.Floor
	turn := s.TurnCount + 1

	s.Stats = models.Stats{
		Strength:   clamp(s.Stats.Strength+p.StatChanges.Strength, MinStat, MaxStat),
		Charisma:   clamp(s.Stats.Charisma+p.StatChanges.Charisma, MinStat, MaxStat),
		Creativity: clamp(s.Stats.Creativity+p.StatChanges.Creativity, MinStat, MaxStat),
	}

	s.MaxHP += p.MaxHPChange
	s.HP = clamp(s.HP+p.HPChange, 0, s.MaxHP)
	s.Gold = max(0, s.Gold+p.GoldChange)

	// Gain first, then drop every copy of each lost item.
	inventory := slices.Concat(s.Inventory, p.ItemsGained)
	if len(p.ItemsLost) > 0 {
		inventory = slices.DeleteFunc(inventory, func(item string) bool {
			return slices.Contains(p.ItemsLost, item)
		})
	}
	s.Inventory = nonNil(inventory)

	reputation := make(map[string]int, len(s.Reputation)+len(p.ReputationChanges))
	maps.Copy(reputation, s.Reputation)
	for k, delta := range p.ReputationChanges {
		reputation[k] = clamp(reputation[k]+delta, MinReputation, MaxReputation)
	}
	s.Reputation = reputation

	s.World = r.advanceWorld(s.World, p)

	s.History = append(slices.Clip(s.History), models.TurnSummary{
		Turn:      turn,
		Floor:     prevFloor,
		Narration: s.CurrentNarration,
		Choice:    a.Choice,
		Outcome:   p.OutcomeNarration,
		Tier:      p.SuccessTier,
	})

	base := models.Highlight{
		Turn:      turn,
		Floor:     prevFloor,
		Narration: p.OutcomeNarration,
		Choice:    a.Choice,
	}
	highlights := Classify(HighlightInput{
		Base:        base,
		Tier:        p.SuccessTier,
		WasWild:     a.WasWild,
		HP:          s.HP,
		ItemsGained: p.ItemsGained,
		ItemsLost:   p.ItemsLost,
	})

	switch {
	case s.HP <= 0:
		s.Phase = models.PhaseDead
		highlights = append(highlights, withType(base, models.HighlightDeath))
	case r.victory(s.World.Floor, s.World.EncounterOnFloor, p.WorldStateUpdates.FloorAdvance, prevFloor):
		s.Phase = models.PhaseVictory
		highlights = append(highlights, withType(base, models.HighlightVictory))
	}
	s.Highlights = slices.Concat(s.Highlights, highlights)
	if s.Highlights == nil {
		s.Highlights = []models.Highlight{}
	}

	s.TurnCount = turn
	s.CurrentNarration = p.NextNarration
	s.CurrentOptions = nonNil(slices.Clone(p.NextOptions))
	s.SelectedOption = nil
	s.CurrentSubOptions = nil
	s.LastOutcome = &models.Outcome{
		Narration: p.OutcomeNarration,
		Tier:      p.SuccessTier,
		Choice:    a.Choice,
	}
	s.Loading = false
	s.Error = ""
	return s
}

// advanceWorld applies world_state_updates. Advancing past the final floor
// leaves the floor at the final floor with its quota exhausted.
func (r *Reducer) advanceWorld(w models.WorldState, p models.ActionResolution) models.WorldState {
	u := p.WorldStateUpdates
	final := r.layout.FinalFloor()

	if u.FloorAdvance {
		w.Floor++
		w.EncounterOnFloor = 1
	} else {
		w.EncounterOnFloor++
	}
	if f, ok := r.layout.Floor(w.Floor); ok {
		w.Biome = f.Biome
	}
	if w.Floor > final {
		w.Floor = final
		w.EncounterOnFloor = r.layout.Encounters(final) + 1
	}

	if p.NextLocation != "" {
		w.Location = p.NextLocation
	}
	w.Entities = nonNil(slices.Clone(u.Entities))
	if u.Objects != nil {
		w.Objects = slices.Clone(u.Objects)
	}
	if u.EnvironmentTags != nil {
		w.EnvironmentTags = slices.Clone(u.EnvironmentTags)
	}

	flags := make(map[string]any, len(w.Flags)+len(u.Flags))
	maps.Copy(flags, w.Flags)
	maps.Copy(flags, u.Flags)
	w.Flags = flags
	return w
}

// victory reports whether the resolved world ends the run in a win: either
// the player advanced past the final floor, or they cleared its quota.
func (r *Reducer) victory(floor, encounter int, advanced bool, prevFloor int) bool {
	final := r.layout.FinalFloor()
	if advanced && prevFloor >= final {
		return true
	}
	return floor == final && encounter > r.layout.Encounters(final)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}
