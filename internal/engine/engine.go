// Package engine talks to the narrator model. It renders the game state into
// prompts, calls Gemini and decodes the structured replies the turn reducer
// consumes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/tatianab/dungeon-crawler/internal/dungeon"
	"github.com/tatianab/dungeon-crawler/internal/models"
	"google.golang.org/api/option"
)

const (
	DefaultModel     = "gemini-2.5-flash"
	DefaultFastModel = "gemini-2.5-flash-lite"
)

// ErrNoAPIKey is returned when neither the state nor the engine carries a
// narrator key.
var ErrNoAPIKey = errors.New("no narrator API key")

// Options configures an Engine.
type Options struct {
	// APIKey is used when the game state carries no narrator key of its own.
	APIKey string
	// Model serves the opening scene and action resolution.
	Model string
	// FastModel serves sub-options, custom input validation and extra options.
	FastModel string
	Layout    *dungeon.Layout
}

// completeFunc sends one prompt and returns the raw reply text.
type completeFunc func(ctx context.Context, key, model, system, user string) (string, error)

// Engine is the Gemini-backed narrator.
type Engine struct {
	opts     Options
	system   string
	complete completeFunc

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.FastModel == "" {
		opts.FastModel = DefaultFastModel
	}
	if opts.Layout == nil {
		opts.Layout = dungeon.Default()
	}
	e := &Engine{
		opts:    opts,
		system:  systemRules(),
		clients: make(map[string]*genai.Client),
	}
	e.complete = e.gemini
	if opts.APIKey != "" {
		if _, err := e.client(ctx, opts.APIKey); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Close releases every client the engine opened.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, c := range e.clients {
		if err := c.Close(); err != nil {
			log.Printf("engine: close client: %v", err)
		}
		delete(e.clients, key)
	}
}

func (e *Engine) client(ctx context.Context, key string) (*genai.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.clients[key]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	e.clients[key] = c
	return c, nil
}

func (e *Engine) gemini(ctx context.Context, key, model, system, user string) (string, error) {
	client, err := e.client(ctx, key)
	if err != nil {
		return "", err
	}

	m := client.GenerativeModel(model)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// key prefers the player's own narrator key over the configured one.
func (e *Engine) key(s models.GameState) (string, error) {
	if k := s.Credentials.NarratorKey; k != "" {
		return k, nil
	}
	if e.opts.APIKey != "" {
		return e.opts.APIKey, nil
	}
	return "", ErrNoAPIKey
}

func generate[T any](ctx context.Context, e *Engine, s models.GameState, fast bool, tmpl string, d promptData, ask string) (T, error) {
	var zero T
	key, err := e.key(s)
	if err != nil {
		return zero, err
	}
	body, err := render(tmpl, d)
	if err != nil {
		return zero, err
	}
	model := e.opts.Model
	if fast {
		model = e.opts.FastModel
	}

	text, err := e.complete(ctx, key, model, e.system+"\n\n"+body, ask+" Respond ONLY with valid JSON.")
	if err != nil {
		return zero, fmt.Errorf("%s: %w", strings.TrimSuffix(tmpl, ".txt"), err)
	}
	out, err := Decode[T](text)
	if err != nil {
		log.Printf("engine: %s reply did not decode: %v", tmpl, err)
		return zero, fmt.Errorf("%s: %w", strings.TrimSuffix(tmpl, ".txt"), err)
	}
	return out, nil
}

// OpeningScenario asks for the first scene of a run.
func (e *Engine) OpeningScenario(ctx context.Context, s models.GameState) (models.OpeningScenario, error) {
	d := newPromptData(e.opts.Layout, s)
	return generate[models.OpeningScenario](ctx, e, s, false, "opening.txt", d,
		fmt.Sprintf("Generate the opening scenario for %s.", d.Class))
}

// SubOptions asks for concrete actions behind a high-level intent.
func (e *Engine) SubOptions(ctx context.Context, s models.GameState, opt models.HighLevelOption) (models.SubOptionList, error) {
	d := newPromptData(e.opts.Layout, s)
	d.Option = opt
	return generate[models.SubOptionList](ctx, e, s, true, "sub_options.txt", d,
		fmt.Sprintf("Generate 4 sub-options for the intent %q.", opt.Label))
}

// ValidateCustomInput asks whether free text is possible in the current scene.
func (e *Engine) ValidateCustomInput(ctx context.Context, s models.GameState, input string) (models.CustomInputValidation, error) {
	d := newPromptData(e.opts.Layout, s)
	d.Input = input
	return generate[models.CustomInputValidation](ctx, e, s, true, "custom_input.txt", d,
		fmt.Sprintf("Validate this custom action: %q.", input))
}

// ResolveAction narrates the outcome of an action whose tier is already
// decided.
func (e *Engine) ResolveAction(ctx context.Context, s models.GameState, req models.ActionRequest) (models.ActionResolution, error) {
	d := newPromptData(e.opts.Layout, s)
	d.Request = req
	return generate[models.ActionResolution](ctx, e, s, false, "resolve.txt", d,
		fmt.Sprintf("Resolve the action %q with result %s.", req.Action, req.Tier))
}

// MoreOptions asks for two more high-level options for the current scene.
func (e *Engine) MoreOptions(ctx context.Context, s models.GameState) (models.MoreOptions, error) {
	d := newPromptData(e.opts.Layout, s)
	d.NextID = 1
	for _, o := range s.CurrentOptions {
		d.Existing = append(d.Existing, o.Label)
		d.NextID = max(d.NextID, o.ID+1)
	}
	return generate[models.MoreOptions](ctx, e, s, true, "more_options.txt", d,
		"Generate 2 more high-level options.")
}
