package models

// The types in this file mirror the JSON documents returned by the narrator.

// OpeningScenario is the first scene of a run.
type OpeningScenario struct {
	Narration       string            `json:"narration" yaml:"narration"`
	Location        string            `json:"location" yaml:"location"`
	Biome           string            `json:"biome" yaml:"biome"`
	Entities        []Entity          `json:"entities" yaml:"entities"`
	Objects         []string          `json:"objects" yaml:"objects"`
	EnvironmentTags []string          `json:"environment_tags" yaml:"environment_tags"`
	Options         []HighLevelOption `json:"options" yaml:"options"`
}

// SubOptionList is the narrator's answer to a selected intent.
type SubOptionList struct {
	SubOptions []SubOption `json:"sub_options" yaml:"sub_options"`
}

// MoreOptions carries additional high-level options for the current scene.
type MoreOptions struct {
	Options []HighLevelOption `json:"options" yaml:"options"`
}

// CustomInputValidation is the narrator's verdict on free-text input.
type CustomInputValidation struct {
	Valid              bool      `json:"valid" yaml:"valid"`
	Interpretation     string    `json:"interpretation" yaml:"interpretation"`
	StatCheck          StatCheck `json:"stat_check" yaml:"stat_check"`
	Difficulty         int       `json:"difficulty" yaml:"difficulty"`
	RejectionNarration *string   `json:"rejection_narration" yaml:"rejection_narration"`
}

// StatChanges are additive deltas applied to Stats.
type StatChanges struct {
	Strength   int `json:"strength" yaml:"strength"`
	Charisma   int `json:"charisma" yaml:"charisma"`
	Creativity int `json:"creativity" yaml:"creativity"`
}

// WorldUpdates describes the scene after a resolution. A nil Objects or
// EnvironmentTags slice means the field was absent; a non-nil empty slice
// clears it. Entities is always replaced.
type WorldUpdates struct {
	Entities        []Entity       `json:"entities" yaml:"entities"`
	Objects         []string       `json:"objects" yaml:"objects"`
	EnvironmentTags []string       `json:"environment_tags" yaml:"environment_tags"`
	Flags           map[string]any `json:"flags" yaml:"flags"`
	FloorAdvance    bool           `json:"floor_advance" yaml:"floor_advance"`
}

// ActionResolution is the structured delta for one resolved action.
type ActionResolution struct {
	OutcomeNarration  string            `json:"outcome_narration" yaml:"outcome_narration"`
	SuccessTier       Tier              `json:"success_tier" yaml:"success_tier"`
	StatChanges       StatChanges       `json:"stat_changes" yaml:"stat_changes"`
	HPChange          int               `json:"hp_change" yaml:"hp_change"`
	MaxHPChange       int               `json:"max_hp_change" yaml:"max_hp_change"`
	ItemsGained       []string          `json:"items_gained" yaml:"items_gained"`
	ItemsLost         []string          `json:"items_lost" yaml:"items_lost"`
	GoldChange        int               `json:"gold_change" yaml:"gold_change"`
	ReputationChanges map[string]int    `json:"reputation_changes" yaml:"reputation_changes"`
	WorldStateUpdates WorldUpdates      `json:"world_state_updates" yaml:"world_state_updates"`
	NextNarration     string            `json:"next_narration" yaml:"next_narration"`
	NextLocation      string            `json:"next_location" yaml:"next_location"`
	NextOptions       []HighLevelOption `json:"next_options" yaml:"next_options"`
}

// ActionRequest is what the caller asks the narrator to resolve.
type ActionRequest struct {
	Action     string
	Tier       Tier
	StatCheck  StatCheck
	Difficulty int
}
