package engine

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"

	"github.com/tatianab/dungeon-crawler/internal/dungeon"
	"github.com/tatianab/dungeon-crawler/internal/models"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// HistoryWindow is how many recent turns are replayed to the narrator.
const HistoryWindow = 6

var prompts = template.Must(template.New("").Funcs(template.FuncMap{
	"list":     listOr,
	"entities": describeEntities,
	"upper":    strings.ToUpper,
	"inc":      func(n int) int { return n + 1 },
}).ParseFS(promptFS, "prompts/*.txt"))

// promptData is everything the templates can see.
type promptData struct {
	Class         string
	HP, MaxHP     int
	Stats         models.Stats
	Gold          int
	Inventory     []string
	Reputation    string
	ActiveEffects []string

	Floor, FinalFloor int
	Encounter, Quota  int
	Location          string
	Biome             string
	BiomeFlavor       string
	Entities          []models.Entity
	Objects           []string
	EnvironmentTags   []string
	Flags             string

	History       []models.TurnSummary
	AvgDifficulty string
	HPDamage      string

	Option        models.HighLevelOption
	Input         string
	Request       models.ActionRequest
	LastEncounter bool
	BossFloor     bool
	Existing      []string
	NextID        int
}

func newPromptData(layout *dungeon.Layout, s models.GameState) promptData {
	d := promptData{
		Class:         "Unknown",
		HP:            s.HP,
		MaxHP:         s.MaxHP,
		Stats:         s.Stats,
		Gold:          s.Gold,
		Inventory:     s.Inventory,
		Reputation:    describeReputation(s.Reputation),
		ActiveEffects: s.World.ActiveEffects,

		Floor:           s.World.Floor,
		FinalFloor:      layout.FinalFloor(),
		Encounter:       s.World.EncounterOnFloor,
		Quota:           layout.Encounters(s.World.Floor),
		Location:        s.World.Location,
		Biome:           "Unknown",
		Entities:        s.World.Entities,
		Objects:         s.World.Objects,
		EnvironmentTags: s.World.EnvironmentTags,
		Flags:           "None",

		History:       lastTurns(s.History, HistoryWindow),
		AvgDifficulty: "5-7",
		HPDamage:      "2-4",
	}
	if s.PlayerClass != nil {
		d.Class = s.PlayerClass.Name
	}
	if f, ok := layout.Floor(s.World.Floor); ok {
		d.Biome = f.Biome
		d.BiomeFlavor = f.Flavor
		d.AvgDifficulty = f.AvgDifficulty
		d.HPDamage = f.HPDamageRange
	}
	if len(s.World.Flags) > 0 {
		if b, err := json.Marshal(s.World.Flags); err == nil {
			d.Flags = string(b)
		}
	}
	d.LastEncounter = d.Encounter >= d.Quota
	d.BossFloor = d.Floor == d.FinalFloor
	return d
}

func render(name string, d promptData) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, d); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func systemRules() string {
	b, err := promptFS.ReadFile("prompts/rules.txt")
	if err != nil {
		panic(err)
	}
	return strings.TrimSpace(string(b))
}

func lastTurns(h []models.TurnSummary, n int) []models.TurnSummary {
	if len(h) > n {
		return h[len(h)-n:]
	}
	return h
}

func listOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func describeEntities(es []models.Entity) string {
	if len(es) == 0 {
		return "None"
	}
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = fmt.Sprintf("%s (%s): %s", e.Name, e.Type, e.Description)
	}
	return strings.Join(parts, "; ")
}

func describeReputation(r map[string]int) string {
	if len(r) == 0 {
		return "None established"
	}
	keys := slices.Sorted(maps.Keys(r))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", k, r[k])
	}
	return strings.Join(parts, ", ")
}
