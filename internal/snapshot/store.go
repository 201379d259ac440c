package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// CurrentFile is the snapshot file name used by this build.
	CurrentFile = "paydo_data_v2.json"
	// LegacyFile is the name the previous build persisted under. A
	// legacy file is adopted and re-persisted under the current name
	// on first load.
	LegacyFile = "paydo_data.json"
)

// Store reads and writes state snapshots in a directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// Save writes the snapshot atomically: to a temp file first, then a
// rename over the current file.
func (s *Store) Save(state State) error {
	data, err := Encode(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := filepath.Join(s.dir, CurrentFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, CurrentFile)); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load returns the persisted state and whether a snapshot was found.
// It falls back to the legacy file name when the current one is
// missing, and adopts the legacy file by re-saving it under the
// current name. A corrupt snapshot is logged and treated as absent so
// startup never fails on bad data.
func (s *Store) Load() (State, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, CurrentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return s.loadLegacy()
	}
	if err != nil {
		return State{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	state, derr := Decode(data)
	if derr != nil {
		s.logger.Warn("discarding corrupt snapshot", "file", CurrentFile, "error", derr)
		return State{}, false, nil
	}
	return state, true, nil
}

func (s *Store) loadLegacy() (State, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, LegacyFile))
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("read legacy snapshot: %w", err)
	}
	state, derr := Decode(data)
	if derr != nil {
		s.logger.Warn("discarding corrupt snapshot", "file", LegacyFile, "error", derr)
		return State{}, false, nil
	}
	s.logger.Info("migrating legacy snapshot", "from", LegacyFile, "to", CurrentFile)
	if err := s.Save(state); err != nil {
		// Adoption failed but the data is good; use it anyway.
		s.logger.Warn("could not re-persist legacy snapshot", "error", err)
	}
	return state, true, nil
}
