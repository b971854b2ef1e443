package models

// Phase is the coarse state of a run.
type Phase string

const (
	PhaseTitle   Phase = "title"
	PhasePlaying Phase = "playing"
	PhaseDead    Phase = "dead"
	PhaseVictory Phase = "victory"
)

// Ended reports whether the run is over.
func (p Phase) Ended() bool {
	return p == PhaseDead || p == PhaseVictory
}

// Tier is the outcome classification of a resolved action.
type Tier string

const (
	TierCriticalSuccess Tier = "critical_success"
	TierSuccess         Tier = "success"
	TierPartial         Tier = "partial"
	TierFailure         Tier = "failure"
)

// Valid reports whether t is one of the four known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierCriticalSuccess, TierSuccess, TierPartial, TierFailure:
		return true
	}
	return false
}

// StatCheck names the stat tested by an action.
type StatCheck string

const (
	StatStrength   StatCheck = "strength"
	StatCharisma   StatCheck = "charisma"
	StatCreativity StatCheck = "creativity"
	StatNone       StatCheck = "none"
)

// Stats holds the three player attributes.
type Stats struct {
	Strength   int `json:"strength" yaml:"strength"`
	Charisma   int `json:"charisma" yaml:"charisma"`
	Creativity int `json:"creativity" yaml:"creativity"`
}

// Value returns the stat tested by check. The second result is false for
// StatNone and unknown checks.
func (s Stats) Value(check StatCheck) (int, bool) {
	switch check {
	case StatStrength:
		return s.Strength, true
	case StatCharisma:
		return s.Charisma, true
	case StatCreativity:
		return s.Creativity, true
	}
	return 0, false
}

// PlayerClass is the immutable template a run starts from.
type PlayerClass struct {
	Name        string   `json:"name" yaml:"name"`
	Emoji       string   `json:"emoji" yaml:"emoji"`
	Description string   `json:"description" yaml:"description"`
	Stats       Stats    `json:"stats" yaml:"stats"`
	HP          int      `json:"hp" yaml:"hp"`
	Gold        int      `json:"gold" yaml:"gold"`
	Inventory   []string `json:"inventory" yaml:"inventory"`
}

// EntityType is the disposition of an entity towards the player.
type EntityType string

const (
	EntityFriendly EntityType = "friendly"
	EntityNeutral  EntityType = "neutral"
	EntityHostile  EntityType = "hostile"
)

// Entity is a creature or person present in the current scene.
type Entity struct {
	Name        string     `json:"name" yaml:"name"`
	Type        EntityType `json:"type" yaml:"type"`
	Description string     `json:"description" yaml:"description"`
}

// WorldState is the dungeon around the player.
type WorldState struct {
	Floor            int            `json:"floor" yaml:"floor"`
	EncounterOnFloor int            `json:"encounter_on_floor" yaml:"encounter_on_floor"`
	Location         string         `json:"location" yaml:"location"`
	Biome            string         `json:"biome" yaml:"biome"`
	Entities         []Entity       `json:"entities" yaml:"entities"`
	Objects          []string       `json:"objects" yaml:"objects"`
	EnvironmentTags  []string       `json:"environment_tags" yaml:"environment_tags"`
	ActiveEffects    []string       `json:"active_effects" yaml:"active_effects"`
	Flags            map[string]any `json:"flags" yaml:"flags"`
}

// TurnSummary is the historical record of one resolved turn.
type TurnSummary struct {
	Turn      int    `json:"turn" yaml:"turn"`
	Floor     int    `json:"floor" yaml:"floor"`
	Narration string `json:"narration" yaml:"narration"`
	Choice    string `json:"choice" yaml:"choice"`
	Outcome   string `json:"outcome" yaml:"outcome"`
	Tier      Tier   `json:"tier" yaml:"tier"`
}

// HighlightType tags why a turn was dramatic.
type HighlightType string

const (
	HighlightCriticalSuccess HighlightType = "critical_success"
	HighlightDeath           HighlightType = "death"
	HighlightWildSuccess     HighlightType = "wild_success"
	HighlightWildFailure     HighlightType = "wild_failure"
	HighlightMajorLoss       HighlightType = "major_loss"
	HighlightMajorGain       HighlightType = "major_gain"
	HighlightCloseCall       HighlightType = "close_call"
	HighlightVictory         HighlightType = "victory"
)

// Label is the human readable title used in end-of-run summaries.
func (h HighlightType) Label() string {
	switch h {
	case HighlightCriticalSuccess:
		return "Critical Success"
	case HighlightDeath:
		return "Final Moment"
	case HighlightWildSuccess:
		return "Wild Gambit Pays Off"
	case HighlightWildFailure:
		return "Wild Gambit Backfires"
	case HighlightMajorLoss:
		return "A Bitter Loss"
	case HighlightMajorGain:
		return "A Lucky Find"
	case HighlightCloseCall:
		return "A Narrow Escape"
	case HighlightVictory:
		return "Victory"
	}
	return string(h)
}

// Highlight is a weighted record of a dramatically significant turn.
type Highlight struct {
	Turn           int           `json:"turn" yaml:"turn"`
	Floor          int           `json:"floor" yaml:"floor"`
	Narration      string        `json:"narration" yaml:"narration"`
	Choice         string        `json:"choice" yaml:"choice"`
	Type           HighlightType `json:"type" yaml:"type"`
	DramaticWeight int           `json:"dramatic_weight" yaml:"dramatic_weight"`
}

// HighLevelOption is a broad intent offered at a decision point.
type HighLevelOption struct {
	ID    int    `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Emoji string `json:"emoji" yaml:"emoji"`
	Hint  string `json:"hint" yaml:"hint"`
	Wild  bool   `json:"wild" yaml:"wild"`
}

// SubOption is a concrete action under a HighLevelOption.
type SubOption struct {
	ID          int       `json:"id" yaml:"id"`
	Label       string    `json:"label" yaml:"label"`
	Description string    `json:"description" yaml:"description"`
	StatCheck   StatCheck `json:"stat_check" yaml:"stat_check"`
	Difficulty  int       `json:"difficulty" yaml:"difficulty"`
	Wild        bool      `json:"wild" yaml:"wild"`
}

// Outcome is what the player sees after their last action.
type Outcome struct {
	Narration string `json:"narration" yaml:"narration"`
	Tier      Tier   `json:"tier" yaml:"tier"`
	Choice    string `json:"choice" yaml:"choice"`
}

// Credentials are the keys used for remote services. They are never
// serialized.
type Credentials struct {
	NarratorKey string `json:"-" yaml:"-"`
	ImageKey    string `json:"-" yaml:"-"`
}

// GameState is the root aggregate owned by the reducer.
type GameState struct {
	Phase       Phase        `json:"phase" yaml:"phase"`
	Credentials Credentials  `json:"-" yaml:"-"`
	PlayerClass *PlayerClass `json:"player_class" yaml:"player_class"`

	Stats      Stats          `json:"stats" yaml:"stats"`
	HP         int            `json:"hp" yaml:"hp"`
	MaxHP      int            `json:"max_hp" yaml:"max_hp"`
	Gold       int            `json:"gold" yaml:"gold"`
	Inventory  []string       `json:"inventory" yaml:"inventory"`
	Reputation map[string]int `json:"reputation" yaml:"reputation"`

	World WorldState `json:"world" yaml:"world"`

	TurnCount  int           `json:"turn_count" yaml:"turn_count"`
	History    []TurnSummary `json:"history" yaml:"-"` // saved to its own file
	Highlights []Highlight   `json:"highlights" yaml:"highlights"`

	CurrentNarration  string            `json:"current_narration" yaml:"current_narration"`
	CurrentOptions    []HighLevelOption `json:"current_options" yaml:"current_options"`
	SelectedOption    *HighLevelOption  `json:"selected_option" yaml:"selected_option"`
	CurrentSubOptions []SubOption       `json:"current_sub_options" yaml:"current_sub_options,omitempty"` // nil until fetched
	LastOutcome       *Outcome          `json:"last_outcome" yaml:"last_outcome"`

	Loading        bool   `json:"loading" yaml:"-"`
	LoadingMessage string `json:"loading_message" yaml:"-"`
	Error          string `json:"error" yaml:"-"`
}

// RunRecord is the archived summary of a finished run.
type RunRecord struct {
	ID        string      `json:"id"`
	Class     string      `json:"class"`
	Phase     Phase       `json:"phase"`
	Floor     int         `json:"floor"`
	Turns     int         `json:"turns"`
	Gold      int         `json:"gold"`
	Reel      []Highlight `json:"reel"`
	EndedAtMS int64       `json:"ended_at_ms"`
}
