// Package settings persists the singleton bot configuration record.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/korbanlabs/korban/internal/domain"
)

const defaultStateDir = "./state"

// ErrNoSettings is returned by Get when the record has not been created yet.
var ErrNoSettings = errors.New("settings record does not exist")

// Store keeps exactly one settings record on disk. Every mutation is a
// read-modify-write executed under the store mutex, so concurrent turns
// can never interleave a read-then-write on the record.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a settings store under the provided directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = defaultStateDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create settings dir")
	}
	return &Store{path: filepath.Join(dir, "settings.json")}, nil
}

// Ensure creates the settings record with defaults if it does not exist.
// Calling it twice leaves exactly one record with unchanged field values.
func (s *Store) Ensure() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err == nil {
		return current, nil
	}
	if !errors.Is(err, ErrNoSettings) {
		return domain.Settings{}, err
	}

	defaults := domain.DefaultSettings()
	if err := s.save(defaults); err != nil {
		return domain.Settings{}, err
	}
	return defaults, nil
}

// Get returns the current settings record.
func (s *Store) Get() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Update applies an in-place field patch to the record as a single atomic
// read-modify-write and returns the patched settings.
func (s *Store) Update(patch func(*domain.Settings)) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return domain.Settings{}, err
	}
	patch(&current)
	if err := s.save(current); err != nil {
		return domain.Settings{}, err
	}
	return current, nil
}

// SaveAgentCredential binds a delegated trading key to the record,
// replacing any previous credential.
func (s *Store) SaveAgentCredential(address, privateKey string) error {
	_, err := s.Update(func(st *domain.Settings) {
		st.AgentCredential = &domain.AgentCredential{
			Address:    address,
			PrivateKey: privateKey,
		}
	})
	return err
}

// SetActiveSymbol updates the symbol the bot is focused on.
func (s *Store) SetActiveSymbol(symbol string) error {
	_, err := s.Update(func(st *domain.Settings) {
		st.ActiveSymbol = symbol
	})
	return err
}

// ToggleAutoTrading flips the auto-trade flag and returns the new value.
func (s *Store) ToggleAutoTrading() (bool, error) {
	updated, err := s.Update(func(st *domain.Settings) {
		st.IsAutoTrading = !st.IsAutoTrading
	})
	if err != nil {
		return false, err
	}
	return updated.IsAutoTrading, nil
}

// Reset restores trading parameters to defaults. The wallet binding and
// agent credential survive a reset.
func (s *Store) Reset() error {
	_, err := s.Update(func(st *domain.Settings) {
		st.IsAutoTrading = false
		st.MaxLeverage = decimal.NewFromInt(10)
		st.StopLossPercent = decimal.NewFromInt(2)
		st.TakeProfitPercent = decimal.NewFromInt(5)
		st.MinBalanceThreshold = decimal.NewFromFloat(0.1)
		st.ActiveSymbol = "HYPE"
	})
	return err
}

func (s *Store) load() (domain.Settings, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Settings{}, ErrNoSettings
		}
		return domain.Settings{}, errors.Wrap(err, "read settings")
	}
	if len(payload) == 0 {
		return domain.Settings{}, ErrNoSettings
	}

	var st domain.Settings
	if err := json.Unmarshal(payload, &st); err != nil {
		return domain.Settings{}, errors.Wrap(err, "decode settings")
	}
	return st, nil
}

// save writes the record atomically via temp file.
func (s *Store) save(st domain.Settings) error {
	payload, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return errors.Wrap(err, "write settings temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist settings")
	}
	return nil
}
