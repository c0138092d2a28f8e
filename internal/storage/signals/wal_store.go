// Package signals persists strategy signals in an append-only WAL.
package signals

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/korbanlabs/korban/internal/domain"
)

const (
	defaultSignalDir   = "./wal/signals"
	signalSegmentLimit = 1000
	signalMaxSegments  = 10
	signalKeyPrefix    = "signal_"
)

// WALStore is the system of record for what the strategy engine thought,
// independent of whether execution fired. Records are never overwritten;
// reads see a just-written record synchronously.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed signal store under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultSignalDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "signal_",
		SegmentThreshold: signalSegmentLimit,
		MaxSegments:      signalMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init signal WAL")
	}
	return &WALStore{wal: wal}, nil
}

// Record appends the signal and returns its WAL index.
func (s *WALStore) Record(signal domain.Signal) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errors.New("signal store is not initialized")
	}
	if signal.Symbol == "" {
		return 0, fmt.Errorf("signal symbol is required")
	}

	payload, err := json.Marshal(signal)
	if err != nil {
		return 0, errors.Wrap(err, "marshal signal")
	}

	key := signalKeyPrefix + signal.Symbol

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(next, key, payload); err != nil {
		return 0, errors.Wrap(err, "append signal")
	}
	return next, nil
}

// Latest returns the most recently recorded signal for the symbol.
func (s *WALStore) Latest(symbol string) (domain.Signal, bool, error) {
	if s == nil || s.wal == nil {
		return domain.Signal{}, false, errors.New("signal store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := signalKeyPrefix + symbol
	for idx := s.wal.CurrentIndex(); idx >= 1; idx-- {
		k, payload, ok := s.wal.Get(idx)
		if ok != nil || k != key {
			continue
		}
		var signal domain.Signal
		if err := json.Unmarshal(payload, &signal); err != nil {
			return domain.Signal{}, false, errors.Wrap(err, "decode signal")
		}
		return signal, true, nil
	}
	return domain.Signal{}, false, nil
}

// BySymbol returns all recorded signals for the symbol in append order.
func (s *WALStore) BySymbol(symbol string) ([]domain.Signal, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("signal store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Signal
	for idx := uint64(1); idx <= s.wal.CurrentIndex(); idx++ {
		k, payload, ok := s.wal.Get(idx)
		if ok != nil || !strings.HasPrefix(k, signalKeyPrefix) {
			continue
		}
		if k != signalKeyPrefix+symbol {
			continue
		}
		var signal domain.Signal
		if err := json.Unmarshal(payload, &signal); err != nil {
			return nil, errors.Wrap(err, "decode signal")
		}
		out = append(out, signal)
	}
	return out, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("signal store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}
