package models

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSaveDir is used when no save directory is configured.
const DefaultSaveDir = ".saves"

const (
	stateFile   = "state.yaml"
	historyFile = "history.yaml"
)

// SaveState writes s under dir/name. Credentials, loading and error fields
// are not written.
func SaveState(dir, name string, s GameState) error {
	if dir == "" {
		dir = DefaultSaveDir
	}
	target := filepath.Join(dir, name)
	if err := os.MkdirAll(target, 0755); err != nil {
		return err
	}

	stateData, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(target, stateFile), stateData, 0644); err != nil {
		return err
	}

	historyData, err := yaml.Marshal(s.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := os.WriteFile(filepath.Join(target, historyFile), historyData, 0644); err != nil {
		return err
	}

	return nil
}

// LoadState reads a save written by SaveState.
func LoadState(dir, name string) (GameState, error) {
	if dir == "" {
		dir = DefaultSaveDir
	}
	target := filepath.Join(dir, name)

	stateData, err := os.ReadFile(filepath.Join(target, stateFile))
	if err != nil {
		return GameState{}, err
	}
	var s GameState
	if err := yaml.Unmarshal(stateData, &s); err != nil {
		return GameState{}, fmt.Errorf("parse %s: %w", stateFile, err)
	}

	// Older saves may not have a history file yet.
	historyData, err := os.ReadFile(filepath.Join(target, historyFile))
	if err != nil && !os.IsNotExist(err) {
		return GameState{}, err
	}
	if len(historyData) > 0 {
		if err := yaml.Unmarshal(historyData, &s.History); err != nil {
			return GameState{}, fmt.Errorf("parse %s: %w", historyFile, err)
		}
	}

	return s, nil
}

// ListSaves returns the names of all saves under dir.
func ListSaves(dir string) ([]string, error) {
	if dir == "" {
		dir = DefaultSaveDir
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var saves []string
	for _, entry := range entries {
		if entry.IsDir() {
			// state.yaml marks a valid save
			statePath := filepath.Join(dir, entry.Name(), stateFile)
			if _, err := os.Stat(statePath); err == nil {
				saves = append(saves, entry.Name())
			}
		}
	}
	return saves, nil
}
