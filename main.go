// Command dungeon-crawler plays one offline run against the scripted
// narrator and prints the descent and its highlight reel.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tatianab/dungeon-crawler/internal/chronicle"
	"github.com/tatianab/dungeon-crawler/internal/dice"
	"github.com/tatianab/dungeon-crawler/internal/dungeon"
	"github.com/tatianab/dungeon-crawler/internal/engine"
	"github.com/tatianab/dungeon-crawler/internal/game"
	"github.com/tatianab/dungeon-crawler/internal/models"
	"github.com/tatianab/dungeon-crawler/internal/play"
)

const maxTurns = 200

func main() {
	class := flag.String("class", "The Fighter", "class to play")
	seed := flag.Int64("seed", 0, "dice seed (0 for random)")
	pdf := flag.String("pdf", "", "write the chronicle to this file")
	flag.Parse()

	layout := dungeon.Default()
	rng, err := dice.NewSource(*seed)
	if err != nil {
		log.Fatalf("seed dice: %v", err)
	}
	checks, err := dice.NewSource(*seed)
	if err != nil {
		log.Fatalf("seed dice: %v", err)
	}
	store := game.NewStore(game.NewReducer(layout, rng))
	ctrl := play.New(store, engine.NewScripted(layout), checks, nil)

	ctx := context.Background()
	if err := ctrl.StartGame(ctx, *class); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	s := store.Snapshot()
	fmt.Printf("%s enters the dungeon.\n\n%s\n", s.PlayerClass.Name, s.CurrentNarration)

	for turn := 0; turn < maxTurns && !s.Phase.Ended(); turn++ {
		if len(s.CurrentOptions) == 0 {
			fmt.Println("\nThe narrator offered no options, stopping.")
			break
		}
		opt := s.CurrentOptions[turn%len(s.CurrentOptions)]
		if err := ctrl.SelectOption(ctx, opt.ID); err != nil {
			log.Fatalf("select option: %v", err)
		}
		subs := store.Snapshot().CurrentSubOptions
		if len(subs) == 0 {
			fmt.Printf("\nNo way to %s, stopping.\n", opt.Label)
			break
		}
		sub := subs[turn%len(subs)]
		roll, err := ctrl.SelectSubOption(ctx, sub.ID)
		if err != nil {
			log.Fatalf("resolve: %v", err)
		}

		s = store.Snapshot()
		fmt.Printf("\n--- Turn %d, floor %d ---\n", s.TurnCount, s.World.Floor)
		fmt.Printf("> %s / %s\n", opt.Label, sub.Label)
		if roll.Threshold > 0 {
			fmt.Printf("Rolled %d (%d vs %d): %s\n", roll.Roll, roll.EffectiveScore, roll.Threshold, roll.Tier)
		}
		fmt.Println(s.LastOutcome.Narration)
		fmt.Printf("HP %d/%d, gold %d\n", s.HP, s.MaxHP, s.Gold)
	}

	fmt.Printf("\n%s\n", chronicle.Epitaph(s, layout))
	for _, h := range game.Reel(s.Highlights) {
		fmt.Printf("  [%s] turn %d: %s\n", h.Type.Label(), h.Turn, h.Narration)
	}

	if *pdf != "" {
		if err := writePDF(*pdf, s, layout); err != nil {
			log.Fatalf("write chronicle: %v", err)
		}
		fmt.Printf("\nChronicle written to %s\n", *pdf)
	}
}

func writePDF(path string, s models.GameState, l *dungeon.Layout) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := chronicle.Write(f, s, l); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
