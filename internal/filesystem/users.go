package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/carbonlog/carbonlog/internal/sentinel"
)

// UserDirectory keeps identity → sector pairs in one JSON object that is
// rewritten in full on every Put.
type UserDirectory struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewUserDirectory returns a directory stored at path. logger may be nil.
func NewUserDirectory(path string, logger *slog.Logger) *UserDirectory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &UserDirectory{path: path, logger: logger}
}

func (d *UserDirectory) Get(_ context.Context, id string) (string, error) {
	users, err := d.load()
	if err != nil {
		return "", err
	}
	sector, ok := users[id]
	if !ok {
		return "", fmt.Errorf("identity %q: %w", id, sentinel.ErrNotFound)
	}
	return sector, nil
}

func (d *UserDirectory) Exists(_ context.Context, id string) (bool, error) {
	users, err := d.load()
	if err != nil {
		return false, err
	}
	_, ok := users[id]
	return ok, nil
}

func (d *UserDirectory) Put(_ context.Context, id, sector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	users, err := d.load()
	if err != nil {
		return err
	}
	users[id] = sector

	data, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}
	if err := writeFileAtomic(d.path, data); err != nil {
		return fmt.Errorf("write users: %w: %w", sentinel.ErrStorageFailure, err)
	}
	return nil
}

// load reads the whole directory. A missing file is empty; an undecodable file
// is logged and treated as empty.
func (d *UserDirectory) load() (map[string]string, error) {
	users := map[string]string{}

	//nolint:gosec // G304: path comes from configuration
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return users, nil
		}
		return nil, fmt.Errorf("failed to read users: %w", err)
	}

	if err := json.Unmarshal(data, &users); err != nil {
		d.logger.Warn("users file is not valid JSON, treating as empty", "path", d.path, "error", err)
		return map[string]string{}, nil
	}
	if users == nil {
		users = map[string]string{}
	}
	return users, nil
}
