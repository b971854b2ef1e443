// Package app wires configuration into the narrator, the run archive and
// game controllers shared by the binaries.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/tatianab/dungeon-crawler/internal/archive"
	"github.com/tatianab/dungeon-crawler/internal/config"
	"github.com/tatianab/dungeon-crawler/internal/dice"
	"github.com/tatianab/dungeon-crawler/internal/dungeon"
	"github.com/tatianab/dungeon-crawler/internal/engine"
	"github.com/tatianab/dungeon-crawler/internal/game"
	"github.com/tatianab/dungeon-crawler/internal/models"
	"github.com/tatianab/dungeon-crawler/internal/play"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Config   *config.Config
	Layout   *dungeon.Layout
	Narrator play.Narrator
	Archive  *archive.Store

	closers []func()
}

// New builds an App from cfg. The archive is optional: when it cannot be
// opened the game still runs, without a run history.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Layout: layout}

	if cfg.Offline {
		log.Printf("app: offline, using the scripted narrator")
		a.Narrator = engine.NewScripted(layout)
	} else {
		eng, err := engine.NewEngine(ctx, engine.Options{
			APIKey:    cfg.GeminiAPIKey,
			Model:     cfg.NarratorModel,
			FastModel: cfg.FastModel,
			Layout:    layout,
		})
		if err != nil {
			return nil, fmt.Errorf("create narrator: %w", err)
		}
		a.Narrator = eng
		a.closers = append(a.closers, eng.Close)
	}

	if cfg.ArchivePath != "" {
		store, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			log.Printf("app: run archive disabled: %v", err)
		} else {
			a.Archive = store
			a.closers = append(a.closers, func() {
				if err := store.Close(); err != nil {
					log.Printf("app: close archive: %v", err)
				}
			})
		}
	}
	return a, nil
}

// NewController returns a controller on a fresh store. Each controller gets
// its own dice, seeded from DICE_SEED when set.
func (a *App) NewController() (*play.Controller, error) {
	rng, err := dice.NewSource(a.Config.DiceSeed)
	if err != nil {
		return nil, err
	}
	store := game.NewStore(game.NewReducer(a.Layout, rng))

	// The reducer and the controller each draw from their own source.
	checks, err := dice.NewSource(a.Config.DiceSeed)
	if err != nil {
		return nil, err
	}
	ctrl := play.New(store, a.Narrator, checks, a.recorder())
	if k := a.Config.ImageAPIKey; k != "" {
		ctrl.SetCredential(game.CredentialImage, k)
	}
	return ctrl, nil
}

// ListRuns reads the archive, or returns nothing when it is disabled.
func (a *App) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if a.Archive == nil {
		return []models.RunRecord{}, nil
	}
	return a.Archive.ListRuns(ctx, limit)
}

func (a *App) recorder() play.Recorder {
	// Keep the interface itself nil when the archive is disabled.
	if a.Archive == nil {
		return nil
	}
	return a.Archive
}

// Close releases everything New opened, last first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
