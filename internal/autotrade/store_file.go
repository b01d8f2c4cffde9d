package autotrade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"ForecastSentinel/internal/model"
)

// FileStore keeps the state in a JSON file.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore { return &FileStore{Path: path} }

func (s *FileStore) Load(_ context.Context) (model.AutotradeState, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.AutotradeState{}, nil
		}
		return model.AutotradeState{}, err
	}
	var state model.AutotradeState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.AutotradeState{}, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return state, nil
}

// Save writes a temp file and renames it into place.
func (s *FileStore) Save(_ context.Context, state model.AutotradeState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}
