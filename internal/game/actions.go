package game

import "github.com/tatianab/dungeon-crawler/internal/models"

// Action is one of the transitions understood by Reducer.Apply. The set is
// closed: only types in this package implement it.
type Action interface {
	action()
}

// CredentialField selects which stored key SetCredential writes.
type CredentialField string

const (
	CredentialNarrator CredentialField = "narrator"
	CredentialImage    CredentialField = "image"
)

// SetCredential stores a remote service key.
type SetCredential struct {
	Field CredentialField
	Value string
}

// SelectClass starts a run with the given class.
type SelectClass struct {
	Class models.PlayerClass
}

// IngestOpeningScenario installs the first scene of a run.
type IngestOpeningScenario struct {
	Payload models.OpeningScenario
}

// SelectHighLevelOption records the intent the player picked.
type SelectHighLevelOption struct {
	Option models.HighLevelOption
}

// SetSubOptions records the concrete actions for the selected intent.
type SetSubOptions struct {
	Options []models.SubOption
}

// AppendMoreOptions adds high-level options to the current scene.
type AppendMoreOptions struct {
	Options []models.HighLevelOption
}

// ResolveAction applies a resolution payload for the action labelled Choice.
type ResolveAction struct {
	Payload models.ActionResolution
	Choice  string
	WasWild bool
}

// RejectCustomInput spends a turn on custom input the narrator refused.
type RejectCustomInput struct {
	Narration string
}

// SetLoading toggles the loading flag. An empty Message picks a flavour
// message when loading is turned on.
type SetLoading struct {
	Loading bool
	Message string
}

// SetError sets the error shown to the player. An empty Message clears it.
type SetError struct {
	Message string
}

// ClearSelection goes back to the high-level options.
type ClearSelection struct{}

// ResetGame returns to the title screen, keeping credentials.
type ResetGame struct{}

// RestoreSnapshot replaces the state with a saved run, keeping credentials.
type RestoreSnapshot struct {
	State models.GameState
}

func (SetCredential) action()         {}
func (SelectClass) action()           {}
func (IngestOpeningScenario) action() {}
func (SelectHighLevelOption) action() {}
func (SetSubOptions) action()         {}
func (AppendMoreOptions) action()     {}
func (ResolveAction) action()         {}
func (RejectCustomInput) action()     {}
func (SetLoading) action()            {}
func (SetError) action()              {}
func (ClearSelection) action()        {}
func (ResetGame) action()             {}
func (RestoreSnapshot) action()       {}
