package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/tatianab/dungeon-crawler/internal/dungeon"
	"github.com/tatianab/dungeon-crawler/internal/models"
)

func TestScriptedOpening(t *testing.T) {
	n := NewScripted(nil)
	s := testState()

	o, err := n.OpeningScenario(context.Background(), s)
	if err != nil {
		t.Fatalf("OpeningScenario: %v", err)
	}
	if o.Biome != "Crumbling Halls" || len(o.Options) != 4 {
		t.Fatalf("unexpected opening: %+v", o)
	}
	wild := 0
	for _, opt := range o.Options {
		if opt.Wild {
			wild++
		}
	}
	if wild != 1 {
		t.Errorf("expected exactly one wild option, got %d", wild)
	}

	// Replies must not share backing arrays with the script.
	o.Options[0].Label = "changed"
	again, _ := n.OpeningScenario(context.Background(), s)
	if again.Options[0].Label == "changed" {
		t.Errorf("opening options alias the script")
	}
}

func TestScriptedSubOptions(t *testing.T) {
	n := NewScripted(nil)
	s := testState()

	list, err := n.SubOptions(context.Background(), s, s.CurrentOptions[1])
	if err != nil {
		t.Fatalf("SubOptions: %v", err)
	}
	if len(list.SubOptions) != 4 {
		t.Fatalf("expected 4 sub-options, got %d", len(list.SubOptions))
	}
	for i, sub := range list.SubOptions {
		if want := 4*100 + i + 1; sub.ID != want {
			t.Errorf("sub-option %d: expected id %d, got %d", i, want, sub.ID)
		}
	}
}

func TestScriptedValidateCustomInput(t *testing.T) {
	n := NewScripted(nil)
	s := testState()

	v, err := n.ValidateCustomInput(context.Background(), s, "Summon a dragon")
	if err != nil {
		t.Fatalf("ValidateCustomInput: %v", err)
	}
	if v.Valid || v.RejectionNarration == nil || *v.RejectionNarration == "" {
		t.Errorf("expected a rejection, got %+v", v)
	}

	v, _ = n.ValidateCustomInput(context.Background(), s, "Paint a door on the wall")
	if !v.Valid || v.StatCheck != models.StatCreativity || v.Difficulty != 5 {
		t.Errorf("expected a creativity check, got %+v", v)
	}
}

func TestScriptedResolveAction(t *testing.T) {
	n := NewScripted(nil)
	s := testState()
	s.World.Floor = 3
	s.World.EncounterOnFloor = 1
	lo, hi := func() (int, int) { f, _ := dungeon.Default().Floor(3); return f.Damage() }()

	fail, _ := n.ResolveAction(context.Background(), s, models.ActionRequest{Tier: models.TierFailure})
	if fail.HPChange != -hi || fail.SuccessTier != models.TierFailure {
		t.Errorf("failure: expected hp %d, got %+v", -hi, fail)
	}
	partial, _ := n.ResolveAction(context.Background(), s, models.ActionRequest{Tier: models.TierPartial})
	if partial.HPChange != -lo {
		t.Errorf("partial: expected hp %d, got %d", -lo, partial.HPChange)
	}
	crit, _ := n.ResolveAction(context.Background(), s, models.ActionRequest{Tier: models.TierCriticalSuccess, StatCheck: models.StatCharisma})
	if crit.StatChanges.Charisma != 1 || len(crit.ItemsGained) != 1 || crit.HPChange != 0 {
		t.Errorf("critical: unexpected resolution %+v", crit)
	}
	if fail.WorldStateUpdates.FloorAdvance {
		t.Errorf("encounter 1 of 3 should not advance")
	}
	if len(fail.NextOptions) != 4 || fail.NextNarration == "" {
		t.Errorf("expected a next scene, got %+v", fail)
	}

	s.World.EncounterOnFloor = 3
	last, _ := n.ResolveAction(context.Background(), s, models.ActionRequest{Tier: models.TierSuccess})
	if !last.WorldStateUpdates.FloorAdvance {
		t.Errorf("last encounter should advance the floor")
	}
}

func TestScriptedMoreOptions(t *testing.T) {
	n := NewScripted(nil)
	more, err := n.MoreOptions(context.Background(), testState())
	if err != nil {
		t.Fatalf("MoreOptions: %v", err)
	}
	if len(more.Options) != 2 || more.Options[0].ID != 5 || more.Options[1].ID != 6 {
		t.Errorf("expected options 5 and 6, got %+v", more.Options)
	}
}

func TestScriptedFailWith(t *testing.T) {
	n := NewScripted(nil)
	boom := errors.New("API error 503")
	n.FailWith(boom)
	if _, err := n.ResolveAction(context.Background(), testState(), models.ActionRequest{}); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
	n.FailWith(nil)
	if _, err := n.MoreOptions(context.Background(), testState()); err != nil {
		t.Errorf("expected recovery, got %v", err)
	}
}
