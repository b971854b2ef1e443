package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/tatianab/dungeon-crawler/internal/app"
	"github.com/tatianab/dungeon-crawler/internal/config"
	"github.com/tatianab/dungeon-crawler/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DebugLog == "" {
		// The alternate screen owns the terminal.
		log.SetOutput(io.Discard)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Printf("Error creating game: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctrl, err := a.NewController()
	if err != nil {
		fmt.Printf("Error creating game: %v\n", err)
		os.Exit(1)
	}

	opts := tui.Options{SaveDir: cfg.SaveDir, Archive: a, DebugLog: cfg.DebugLog}
	if err := tui.Run(ctrl, opts); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
