package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tatianab/dungeon-crawler/internal/app"
	"github.com/tatianab/dungeon-crawler/internal/config"
	"github.com/tatianab/dungeon-crawler/internal/game"
	"github.com/tatianab/dungeon-crawler/internal/models"
	"google.golang.org/api/option"
)

const maxTurns = 60

// chooser picks a 1-based entry from a numbered list.
type chooser func(ctx context.Context, s models.GameState, question string, choices []string) int

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize the Game Master
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create game: %v", err)
	}
	defer a.Close()
	ctrl, err := a.NewController()
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	// Initialize the Player
	choose := randomChooser(rand.New(rand.NewSource(cfg.DiceSeed)))
	if !cfg.Offline {
		playerClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			log.Fatalf("Failed to create player client: %v", err)
		}
		defer playerClient.Close()
		choose = llmChooser(playerClient.GenerativeModel(cfg.FastModel))
	}

	// 1. Pick a class
	classes := a.Layout.Classes
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = fmt.Sprintf("%s: %s", c.Name, c.Description)
	}
	pick := choose(ctx, ctrl.Store().Snapshot(), "Which class do you want to play?", names)
	fmt.Printf("--- Player chose %s ---\n\n", classes[pick-1].Name)
	if err := ctrl.StartGame(ctx, classes[pick-1].Name); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	// 2. Play until the run ends
	for turn := 1; turn <= maxTurns; turn++ {
		s := ctrl.Store().Snapshot()
		if s.Phase.Ended() {
			break
		}
		fmt.Printf("--- Turn %d (floor %d, HP %d/%d) ---\n%s\n", turn, s.World.Floor, s.HP, s.MaxHP, s.CurrentNarration)

		labels := make([]string, len(s.CurrentOptions))
		for i, o := range s.CurrentOptions {
			labels[i] = fmt.Sprintf("%s (%s)", o.Label, o.Hint)
		}
		opt := s.CurrentOptions[choose(ctx, s, "What do you do?", labels)-1]
		if err := ctrl.SelectOption(ctx, opt.ID); err != nil {
			fmt.Printf("Error selecting option: %v\n", err)
			break
		}

		s = ctrl.Store().Snapshot()
		labels = make([]string, len(s.CurrentSubOptions))
		for i, o := range s.CurrentSubOptions {
			labels[i] = fmt.Sprintf("%s [%s %d]: %s", o.Label, o.StatCheck, o.Difficulty, o.Description)
		}
		sub := s.CurrentSubOptions[choose(ctx, s, "How exactly?", labels)-1]
		roll, err := ctrl.SelectSubOption(ctx, sub.ID)
		if err != nil {
			fmt.Printf("Error resolving turn: %v\n", err)
			break
		}

		s = ctrl.Store().Snapshot()
		fmt.Printf("Player Action: %s / %s\n", opt.Label, sub.Label)
		fmt.Printf("Roll: %d (%d vs %d) -> %s\n", roll.Roll, roll.EffectiveScore, roll.Threshold, roll.Tier)
		fmt.Printf("GM Outcome: %s\n\n", s.LastOutcome.Narration)
	}

	s := ctrl.Store().Snapshot()
	switch s.Phase {
	case models.PhaseVictory:
		fmt.Println("Game Ended: Player Won!")
	case models.PhaseDead:
		fmt.Println("Game Ended: Player Lost!")
	default:
		fmt.Println("Game Ended: turn limit reached.")
	}
	for _, h := range game.Reel(s.Highlights) {
		fmt.Printf("  %s (turn %d): %s\n", h.Type.Label(), h.Turn, h.Narration)
	}
}

func randomChooser(rng *rand.Rand) chooser {
	return func(_ context.Context, _ models.GameState, _ string, choices []string) int {
		return rng.Intn(len(choices)) + 1
	}
}

func llmChooser(model *genai.GenerativeModel) chooser {
	return func(ctx context.Context, s models.GameState, question string, choices []string) int {
		var list strings.Builder
		for i, c := range choices {
			fmt.Fprintf(&list, "%d. %s\n", i+1, c)
		}
		prompt := fmt.Sprintf(`You are playing a dungeon crawler and want to reach the bottom alive.
HP: %d/%d
Stats: strength %d, charisma %d, creativity %d
Inventory: %v
Scene: %s

%s
%s
Return ONLY the number of your choice.`,
			s.HP, s.MaxHP, s.Stats.Strength, s.Stats.Charisma, s.Stats.Creativity,
			s.Inventory, s.CurrentNarration, question, list.String())

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return 1
		}
		text := strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
		n, err := strconv.Atoi(strings.Trim(text, ".* "))
		if err != nil || n < 1 || n > len(choices) {
			return 1
		}
		return n
	}
}
