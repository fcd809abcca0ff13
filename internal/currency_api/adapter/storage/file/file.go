package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/langowen/azn-rates/internal/entities"
	"github.com/pkg/errors"
)

// Storage keeps the last known rate table in a single JSON file.
type Storage struct {
	path string
}

func NewStorage(path string) *Storage {
	return &Storage{path: path}
}

func (s *Storage) Load(ctx context.Context) (entities.RateTable, error) {
	const op = "storage.file.Load"

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(entities.ErrNotFound, op)
		}
		return nil, errors.Wrap(err, op)
	}

	var rates entities.RateTable
	if err := json.Unmarshal(data, &rates); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return rates, nil
}

// Save writes through a temporary file so a crash never leaves a truncated table behind.
func (s *Storage) Save(ctx context.Context, rates entities.RateTable) error {
	const op = "storage.file.Save"

	data, err := json.MarshalIndent(rates, "", "  ")
	if err != nil {
		return errors.Wrap(err, op)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, op)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, op)
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, op)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}
