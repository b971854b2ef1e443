// Package dice implements the stat check used to resolve player actions.
//
// A check adds a d10 roll to the tested stat and compares the result with a
// threshold of difficulty+5:
//
//	critical_success  score >= threshold+4
//	success           score >= threshold
//	partial           score >= threshold-3
//	failure           otherwise
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/tatianab/dungeon-crawler/internal/models"
)

// Sides is the size of the check die.
const Sides = 10

// Source supplies randomness. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Result is the full audit trail of one check.
type Result struct {
	Tier           models.Tier `json:"tier"`
	Roll           int         `json:"roll"`
	EffectiveScore int         `json:"effective_score"`
	Threshold      int         `json:"threshold"`
}

// Check draws one roll from src and classifies it.
func Check(src Source, stat, difficulty int) Result {
	roll := src.Intn(Sides) + 1
	return Classify(stat, difficulty, roll)
}

// Classify is the deterministic part of Check.
func Classify(stat, difficulty, roll int) Result {
	score := stat + roll
	threshold := difficulty + 5

	var tier models.Tier
	switch {
	case score >= threshold+4:
		tier = models.TierCriticalSuccess
	case score >= threshold:
		tier = models.TierSuccess
	case score >= threshold-3:
		tier = models.TierPartial
	default:
		tier = models.TierFailure
	}

	return Result{
		Tier:           tier,
		Roll:           roll,
		EffectiveScore: score,
		Threshold:      threshold,
	}
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewSource returns a seeded Source. A zero seed draws one from crypto/rand.
func NewSource(seed int64) (*rand.Rand, error) {
	if seed == 0 {
		s, err := NewSeed()
		if err != nil {
			return nil, err
		}
		seed = s
	}
	return rand.New(rand.NewSource(seed)), nil
}
