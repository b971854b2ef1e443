// Package dungeon holds the static tables a run is played against: the
// biome, difficulty curve and encounter quota of each floor, and the player
// classes on offer.
package dungeon

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/tatianab/dungeon-crawler/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed dungeon.yaml
var defaultLayout []byte

// Floor describes one dungeon level.
type Floor struct {
	Number        int    `yaml:"floor"`
	Biome         string `yaml:"biome"`
	Flavor        string `yaml:"flavor"`
	AvgDifficulty string `yaml:"avg_difficulty"`
	HPDamageRange string `yaml:"hp_damage_range"`
	Encounters    int    `yaml:"encounters"`
}

// Layout is a full dungeon: floors 1..N in order plus the selectable classes.
type Layout struct {
	Floors  []Floor              `yaml:"floors"`
	Classes []models.PlayerClass `yaml:"classes"`
}

var (
	ErrNoFloors  = errors.New("dungeon has no floors")
	ErrNoClasses = errors.New("dungeon has no classes")
)

// Parse decodes and validates a YAML layout.
func Parse(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse dungeon layout: %w", err)
	}
	if err := l.validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Load reads a layout file from disk.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

var defaultOnce = sync.OnceValue(func() *Layout {
	l, err := Parse(defaultLayout)
	if err != nil {
		panic("dungeon: embedded layout is invalid: " + err.Error())
	}
	return l
})

// Default returns the built-in ten floor dungeon.
func Default() *Layout {
	return defaultOnce()
}

func (l *Layout) validate() error {
	if len(l.Floors) == 0 {
		return ErrNoFloors
	}
	if len(l.Classes) == 0 {
		return ErrNoClasses
	}
	for i, f := range l.Floors {
		if f.Number != i+1 {
			return fmt.Errorf("floor %d listed at position %d: floors must be numbered 1..N in order", f.Number, i+1)
		}
		if f.Encounters < 1 {
			return fmt.Errorf("floor %d: encounters must be positive", f.Number)
		}
		if f.Biome == "" {
			return fmt.Errorf("floor %d: biome is required", f.Number)
		}
	}
	for _, c := range l.Classes {
		if c.Name == "" || c.HP < 1 {
			return fmt.Errorf("class %q: name and positive hp are required", c.Name)
		}
	}
	return nil
}

// FinalFloor is the boss floor; advancing past it wins the run.
func (l *Layout) FinalFloor() int {
	return len(l.Floors)
}

// Floor returns the table entry for floor n.
func (l *Layout) Floor(n int) (Floor, bool) {
	if n < 1 || n > len(l.Floors) {
		return Floor{}, false
	}
	return l.Floors[n-1], true
}

// Encounters returns the encounter quota of floor n, or 2 for floors outside
// the table.
func (l *Layout) Encounters(n int) int {
	if f, ok := l.Floor(n); ok {
		return f.Encounters
	}
	return 2
}

// Class looks up a class by name.
func (l *Layout) Class(name string) (models.PlayerClass, bool) {
	for _, c := range l.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return models.PlayerClass{}, false
}

// Damage parses HPDamageRange ("2-4") into its bounds. A single number is
// both bounds; anything unparsable is 0, 0.
func (f Floor) Damage() (lo, hi int) {
	a, b, found := strings.Cut(f.HPDamageRange, "-")
	lo, errLo := strconv.Atoi(strings.TrimSpace(a))
	if errLo != nil {
		return 0, 0
	}
	if !found {
		return lo, lo
	}
	hi, errHi := strconv.Atoi(strings.TrimSpace(b))
	if errHi != nil || hi < lo {
		return lo, lo
	}
	return lo, hi
}
