package engine

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/tatianab/dungeon-crawler/internal/dungeon"
	"github.com/tatianab/dungeon-crawler/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed scripted.yaml
var scriptYAML []byte

type scene struct {
	Narration string                   `yaml:"narration"`
	Location  string                   `yaml:"location"`
	Entities  []models.Entity          `yaml:"entities"`
	Options   []models.HighLevelOption `yaml:"options"`
}

type script struct {
	Opening         models.OpeningScenario       `yaml:"opening"`
	SubOptions      [][]models.SubOption         `yaml:"sub_options"`
	Outcomes        map[models.Tier]string       `yaml:"outcomes"`
	Treasure        string                       `yaml:"treasure"`
	Scenes          []scene                      `yaml:"scenes"`
	FloorTransition string                       `yaml:"floor_transition"`
	MoreOptions     []models.HighLevelOption     `yaml:"more_options"`
	Custom          models.CustomInputValidation `yaml:"custom"`
	Rejection       string                       `yaml:"rejection"`
	Impossible      []string                     `yaml:"impossible"`
}

var loadScript = sync.OnceValue(func() *script {
	var s script
	if err := yaml.Unmarshal(scriptYAML, &s); err != nil {
		panic("engine: embedded script is invalid: " + err.Error())
	}
	return &s
})

// Scripted is an offline narrator that answers from a fixed script. Damage
// follows the floor's hp range, so runs can end in death or victory.
type Scripted struct {
	layout *dungeon.Layout
	script *script

	mu  sync.Mutex
	err error
}

func NewScripted(layout *dungeon.Layout) *Scripted {
	if layout == nil {
		layout = dungeon.Default()
	}
	return &Scripted{layout: layout, script: loadScript()}
}

// FailWith makes every subsequent call return err. nil restores normal
// replies.
func (n *Scripted) FailWith(err error) {
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
}

func (n *Scripted) failure() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

func (n *Scripted) OpeningScenario(ctx context.Context, s models.GameState) (models.OpeningScenario, error) {
	if err := n.failure(); err != nil {
		return models.OpeningScenario{}, err
	}
	o := n.script.Opening
	o.Biome = s.World.Biome
	o.Entities = slices.Clone(o.Entities)
	o.Objects = slices.Clone(o.Objects)
	o.EnvironmentTags = slices.Clone(o.EnvironmentTags)
	o.Options = slices.Clone(o.Options)
	return o, nil
}

func (n *Scripted) SubOptions(ctx context.Context, s models.GameState, opt models.HighLevelOption) (models.SubOptionList, error) {
	if err := n.failure(); err != nil {
		return models.SubOptionList{}, err
	}
	slot := slices.IndexFunc(s.CurrentOptions, func(o models.HighLevelOption) bool { return o.ID == opt.ID })
	if slot < 0 {
		slot = max(opt.ID-1, 0)
	}
	set := slices.Clone(n.script.SubOptions[slot%len(n.script.SubOptions)])
	for i := range set {
		set[i].ID = opt.ID*100 + i + 1
	}
	return models.SubOptionList{SubOptions: set}, nil
}

func (n *Scripted) ValidateCustomInput(ctx context.Context, s models.GameState, input string) (models.CustomInputValidation, error) {
	if err := n.failure(); err != nil {
		return models.CustomInputValidation{}, err
	}
	lower := strings.ToLower(input)
	for _, word := range n.script.Impossible {
		if strings.Contains(lower, word) {
			rejection := n.script.Rejection
			return models.CustomInputValidation{
				Valid:              false,
				Interpretation:     input,
				StatCheck:          models.StatNone,
				RejectionNarration: &rejection,
			}, nil
		}
	}
	v := n.script.Custom
	v.Valid = true
	v.Interpretation = fmt.Sprintf("%s: %s", v.Interpretation, input)
	return v, nil
}

func (n *Scripted) ResolveAction(ctx context.Context, s models.GameState, req models.ActionRequest) (models.ActionResolution, error) {
	if err := n.failure(); err != nil {
		return models.ActionResolution{}, err
	}

	floor, _ := n.layout.Floor(s.World.Floor)
	lo, hi := floor.Damage()
	r := models.ActionResolution{
		OutcomeNarration: n.script.Outcomes[req.Tier],
		SuccessTier:      req.Tier,
	}
	switch req.Tier {
	case models.TierCriticalSuccess:
		r.GoldChange = 5
		r.ItemsGained = []string{n.script.Treasure}
		switch req.StatCheck {
		case models.StatStrength:
			r.StatChanges.Strength = 1
		case models.StatCharisma:
			r.StatChanges.Charisma = 1
		case models.StatCreativity:
			r.StatChanges.Creativity = 1
		}
	case models.TierSuccess:
		r.GoldChange = 1
	case models.TierPartial:
		r.HPChange = -lo
	case models.TierFailure:
		r.HPChange = -hi
	}

	sc := n.script.Scenes[s.TurnCount%len(n.script.Scenes)]
	nextFloor := s.World.Floor
	narration := sc.Narration
	if s.World.EncounterOnFloor >= n.layout.Encounters(s.World.Floor) {
		r.WorldStateUpdates.FloorAdvance = true
		nextFloor++
		narration = n.script.FloorTransition + " " + narration
	}
	biome := s.World.Biome
	if f, ok := n.layout.Floor(nextFloor); ok {
		biome = f.Biome
	}

	r.WorldStateUpdates.Entities = slices.Clone(sc.Entities)
	r.NextNarration = strings.ReplaceAll(narration, "{biome}", biome)
	r.NextLocation = sc.Location
	r.NextOptions = slices.Clone(sc.Options)
	return r, nil
}

func (n *Scripted) MoreOptions(ctx context.Context, s models.GameState) (models.MoreOptions, error) {
	if err := n.failure(); err != nil {
		return models.MoreOptions{}, err
	}
	next := 1
	for _, o := range s.CurrentOptions {
		next = max(next, o.ID+1)
	}
	opts := slices.Clone(n.script.MoreOptions)
	for i := range opts {
		opts[i].ID = next + i
	}
	return models.MoreOptions{Options: opts}, nil
}
