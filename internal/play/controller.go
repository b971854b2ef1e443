// Package play drives a run: it sequences narrator calls, stat checks and
// reducer actions the way a player interface needs them.
package play

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tatianab/dungeon-crawler/internal/dice"
	"github.com/tatianab/dungeon-crawler/internal/game"
	"github.com/tatianab/dungeon-crawler/internal/models"
)

const (
	StartingMessage  = "The dungeon awaits..."
	ResolvingMessage = "Fate weighs your choices..."
	ErrorPrefix      = "The weave of fate tangles... "
	// DefaultRejection is narrated when the narrator refuses custom input
	// without saying why.
	DefaultRejection = "Your action fails to find purchase in reality."
)

var (
	ErrBusy          = errors.New("a narrator request is already in flight")
	ErrUnknownOption = errors.New("no such option in the current scene")
	ErrUnknownClass  = errors.New("no such class")
	ErrNotPlaying    = errors.New("no run in progress")
	ErrEmptyInput    = errors.New("custom input is empty")
)

// Narrator produces the structured payloads a run is built from.
type Narrator interface {
	OpeningScenario(ctx context.Context, s models.GameState) (models.OpeningScenario, error)
	SubOptions(ctx context.Context, s models.GameState, opt models.HighLevelOption) (models.SubOptionList, error)
	ValidateCustomInput(ctx context.Context, s models.GameState, input string) (models.CustomInputValidation, error)
	ResolveAction(ctx context.Context, s models.GameState, req models.ActionRequest) (models.ActionResolution, error)
	MoreOptions(ctx context.Context, s models.GameState) (models.MoreOptions, error)
}

// Recorder keeps finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, r models.RunRecord) error
}

// Controller runs one game against a Store. At most one narrator request is
// in flight at a time; a second one fails with ErrBusy.
type Controller struct {
	store    *game.Store
	narrator Narrator
	recorder Recorder

	diceMu sync.Mutex
	dice   dice.Source

	busy atomic.Bool

	mu     sync.Mutex
	failed func(context.Context) error
	runID  string
}

// New returns a controller. rec may be nil.
func New(store *game.Store, n Narrator, src dice.Source, rec Recorder) *Controller {
	return &Controller{store: store, narrator: n, dice: src, recorder: rec}
}

// Store exposes the state the controller drives.
func (c *Controller) Store() *game.Store {
	return c.store
}

// RunID identifies the current run once a class has been picked.
func (c *Controller) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// run executes op under the single-flight guard. A failure is surfaced as
// the state error and remembered for Retry.
func (c *Controller) run(ctx context.Context, op func(context.Context) error) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	err := op(ctx)
	c.mu.Lock()
	if err != nil {
		c.failed = op
	} else {
		c.failed = nil
	}
	c.mu.Unlock()
	if err != nil {
		log.Printf("play: narrator request failed: %v", err)
		c.store.Dispatch(game.SetError{Message: ErrorPrefix + err.Error()})
	}
	return err
}

// StartGame picks a class on the title screen and fetches the opening scene.
func (c *Controller) StartGame(ctx context.Context, className string) error {
	class, ok := c.store.Reducer().Layout().Class(className)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClass, className)
	}

	// run serializes every call of op, including retries.
	first := true
	return c.run(ctx, func(ctx context.Context) error {
		if first {
			first = false
			if s := c.store.Snapshot(); s.Phase != models.PhaseTitle {
				c.store.Dispatch(game.ResetGame{})
			}
			c.mu.Lock()
			c.runID = uuid.NewString()
			c.mu.Unlock()
		}
		// Ignored by the reducer once the run is underway, so Retry is safe.
		c.store.Dispatch(game.SelectClass{Class: class})
		s := c.store.Dispatch(game.SetLoading{Loading: true, Message: StartingMessage})
		o, err := c.narrator.OpeningScenario(ctx, s)
		if err != nil {
			return err
		}
		c.store.Dispatch(game.IngestOpeningScenario{Payload: o})
		return nil
	})
}

// SelectOption picks a high-level option by id and fetches its sub-options.
func (c *Controller) SelectOption(ctx context.Context, optionID int) error {
	s := c.store.Snapshot()
	if s.Phase != models.PhasePlaying {
		return ErrNotPlaying
	}
	var opt *models.HighLevelOption
	for i := range s.CurrentOptions {
		if s.CurrentOptions[i].ID == optionID {
			opt = &s.CurrentOptions[i]
			break
		}
	}
	if opt == nil {
		return fmt.Errorf("%w: option %d", ErrUnknownOption, optionID)
	}
	selected := *opt

	return c.run(ctx, func(ctx context.Context) error {
		c.store.Dispatch(game.SelectHighLevelOption{Option: selected})
		s := c.store.Dispatch(game.SetLoading{Loading: true})
		list, err := c.narrator.SubOptions(ctx, s, selected)
		if err != nil {
			return err
		}
		c.store.Dispatch(game.SetSubOptions{Options: list.SubOptions})
		return nil
	})
}

// SelectSubOption rolls the sub-option's stat check and resolves it.
func (c *Controller) SelectSubOption(ctx context.Context, subID int) (dice.Result, error) {
	s := c.store.Snapshot()
	if s.Phase != models.PhasePlaying {
		return dice.Result{}, ErrNotPlaying
	}
	var sub *models.SubOption
	for i := range s.CurrentSubOptions {
		if s.CurrentSubOptions[i].ID == subID {
			sub = &s.CurrentSubOptions[i]
			break
		}
	}
	if sub == nil {
		return dice.Result{}, fmt.Errorf("%w: sub-option %d", ErrUnknownOption, subID)
	}
	chosen := *sub
	wasWild := chosen.Wild || (s.SelectedOption != nil && s.SelectedOption.Wild)

	var result dice.Result
	err := c.run(ctx, func(ctx context.Context) error {
		s := c.store.Dispatch(game.SetLoading{Loading: true, Message: ResolvingMessage})
		result = c.roll(s.Stats, chosen.StatCheck, chosen.Difficulty)
		return c.resolve(ctx, s, models.ActionRequest{
			Action:     chosen.Label,
			Tier:       result.Tier,
			StatCheck:  chosen.StatCheck,
			Difficulty: chosen.Difficulty,
		}, chosen.Label, wasWild)
	})
	return result, err
}

// SubmitCustomInput validates free text and, when the narrator accepts it,
// resolves it like a sub-option. A rejection still consumes the turn.
func (c *Controller) SubmitCustomInput(ctx context.Context, input string) (dice.Result, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return dice.Result{}, ErrEmptyInput
	}
	if s := c.store.Snapshot(); s.Phase != models.PhasePlaying {
		return dice.Result{}, ErrNotPlaying
	}

	var result dice.Result
	err := c.run(ctx, func(ctx context.Context) error {
		s := c.store.Dispatch(game.SetLoading{Loading: true})
		v, err := c.narrator.ValidateCustomInput(ctx, s, input)
		if err != nil {
			return err
		}
		if !v.Valid {
			narration := DefaultRejection
			if v.RejectionNarration != nil && *v.RejectionNarration != "" {
				narration = *v.RejectionNarration
			}
			c.store.Dispatch(game.RejectCustomInput{Narration: narration})
			return nil
		}

		s = c.store.Dispatch(game.SetLoading{Loading: true, Message: ResolvingMessage})
		result = c.roll(s.Stats, v.StatCheck, v.Difficulty)
		action := v.Interpretation
		if action == "" {
			action = input
		}
		return c.resolve(ctx, s, models.ActionRequest{
			Action:     action,
			Tier:       result.Tier,
			StatCheck:  v.StatCheck,
			Difficulty: v.Difficulty,
		}, input, false)
	})
	return result, err
}

// LoadMore appends two more high-level options to the scene.
func (c *Controller) LoadMore(ctx context.Context) error {
	if s := c.store.Snapshot(); s.Phase != models.PhasePlaying {
		return ErrNotPlaying
	}
	return c.run(ctx, func(ctx context.Context) error {
		s := c.store.Dispatch(game.SetLoading{Loading: true})
		more, err := c.narrator.MoreOptions(ctx, s)
		if err != nil {
			return err
		}
		c.store.Dispatch(game.AppendMoreOptions{Options: more.Options})
		return nil
	})
}

// ClearSelection backs out of the sub-option list.
func (c *Controller) ClearSelection() models.GameState {
	return c.store.Dispatch(game.ClearSelection{})
}

// Reset returns to the title screen, keeping credentials.
func (c *Controller) Reset() models.GameState {
	c.mu.Lock()
	c.failed = nil
	c.runID = ""
	c.mu.Unlock()
	return c.store.Dispatch(game.ResetGame{})
}

// Retry clears the error and re-issues the request that failed, if any.
func (c *Controller) Retry(ctx context.Context) error {
	c.store.Dispatch(game.SetError{})
	c.mu.Lock()
	op := c.failed
	c.mu.Unlock()
	if op == nil {
		return nil
	}
	return c.run(ctx, op)
}

// SetCredential stores a player-supplied key.
func (c *Controller) SetCredential(field game.CredentialField, value string) models.GameState {
	return c.store.Dispatch(game.SetCredential{Field: field, Value: strings.TrimSpace(value)})
}

// Restore replaces the run with a saved state.
func (c *Controller) Restore(s models.GameState) models.GameState {
	c.mu.Lock()
	c.failed = nil
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	c.mu.Unlock()
	return c.store.Dispatch(game.RestoreSnapshot{State: s})
}

// roll performs the stat check. Checks against no stat always succeed.
func (c *Controller) roll(stats models.Stats, check models.StatCheck, difficulty int) dice.Result {
	stat, ok := stats.Value(check)
	if !ok {
		return dice.Result{Tier: models.TierSuccess}
	}
	c.diceMu.Lock()
	defer c.diceMu.Unlock()
	return dice.Check(c.dice, stat, difficulty)
}

func (c *Controller) resolve(ctx context.Context, s models.GameState, req models.ActionRequest, choice string, wasWild bool) error {
	payload, err := c.narrator.ResolveAction(ctx, s, req)
	if err != nil {
		return err
	}
	if !payload.SuccessTier.Valid() {
		payload.SuccessTier = req.Tier
	}

	next := c.store.Dispatch(game.ResolveAction{Payload: payload, Choice: choice, WasWild: wasWild})
	if next.Phase.Ended() {
		c.record(ctx, next)
	}
	return nil
}

func (c *Controller) record(ctx context.Context, s models.GameState) {
	if c.recorder == nil {
		return
	}
	rec := models.RunRecord{
		ID:        c.RunID(),
		Phase:     s.Phase,
		Floor:     s.World.Floor,
		Turns:     s.TurnCount,
		Gold:      s.Gold,
		Reel:      game.Reel(s.Highlights),
		EndedAtMS: time.Now().UnixMilli(),
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if s.PlayerClass != nil {
		rec.Class = s.PlayerClass.Name
	}
	// Archive failures are logged only.
	if err := c.recorder.RecordRun(ctx, rec); err != nil {
		log.Printf("play: record run %s: %v", rec.ID, err)
	}
}
