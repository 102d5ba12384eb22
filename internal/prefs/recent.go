package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const stateFile = "state.json"

// State is per-user UI memory kept outside the config file.
type State struct {
	LastDir string   `json:"last_dir,omitempty"`
	Recent  []string `json:"recent,omitempty"`
}

// DefaultPath is state.json under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "policyqa", stateFile), nil
}

// Load returns the zero State when the file does not exist yet.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, err
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, err
	}
	return s, nil
}

func Save(path string, s State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Remember moves file to the front of Recent, capped at limit entries.
func (s *State) Remember(file string, limit int) {
	s.LastDir = filepath.Dir(file)
	out := []string{file}
	for _, r := range s.Recent {
		if r != file {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	s.Recent = out
}

// PickerDir returns LastDir when it still exists, else fallback.
func (s State) PickerDir(fallback string) string {
	if s.LastDir == "" {
		return fallback
	}
	if fi, err := os.Stat(s.LastDir); err == nil && fi.IsDir() {
		return s.LastDir
	}
	return fallback
}

// Recorder persists selections to one state file.
type Recorder struct {
	Path string
	Max  int
}

func (r Recorder) Record(file string) error {
	s, err := Load(r.Path)
	if err != nil {
		s = State{}
	}
	s.Remember(file, r.Max)
	return Save(r.Path, s)
}
