// Package trades persists trade records in an append-only WAL.
// The latest record per trade id wins on replay, so the OPEN -> CLOSED
// transition is an append, not an overwrite.
package trades

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"

	"github.com/korbanlabs/korban/internal/domain"
)

const (
	defaultTradeDir   = "./wal/trades"
	tradeSegmentLimit = 1000
	tradeMaxSegments  = 10
	tradeKeyPrefix    = "trade_"
)

// ErrTradeNotFound is returned when closing an unknown trade id.
var ErrTradeNotFound = errors.New("trade not found")

// WALStore is the append-only trade journal.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed trade store under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultTradeDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "trade_",
		SegmentThreshold: tradeSegmentLimit,
		MaxSegments:      tradeMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init trade WAL")
	}
	return &WALStore{wal: wal}, nil
}

// Save appends the trade record.
func (s *WALStore) Save(trade domain.Trade) error {
	if s == nil || s.wal == nil {
		return errors.New("trade store is not initialized")
	}
	if trade.ID == "" {
		return fmt.Errorf("trade id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(trade)
}

// CloseTrade records the external fill/close reconciliation event for an
// open trade, transitioning it to CLOSED with the realized pnl.
func (s *WALStore) CloseTrade(id string, pnl decimal.Decimal) error {
	if s == nil || s.wal == nil {
		return errors.New("trade store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.replay()
	if err != nil {
		return err
	}
	trade, ok := current[id]
	if !ok {
		return ErrTradeNotFound
	}
	if trade.Status == domain.TradeClosed {
		return nil
	}

	now := time.Now()
	trade.Status = domain.TradeClosed
	trade.PnL = &pnl
	trade.ClosedAt = &now
	return s.append(trade)
}

// ByStatus returns the latest version of every trade in the given status.
func (s *WALStore) ByStatus(status domain.TradeStatus) ([]domain.Trade, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("trade store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current, err := s.replay()
	if err != nil {
		return nil, err
	}

	var out []domain.Trade
	for _, t := range current {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

// Stats computes win/loss performance over closed trades.
func (s *WALStore) Stats() (domain.TradeStats, error) {
	closed, err := s.ByStatus(domain.TradeClosed)
	if err != nil {
		return domain.TradeStats{}, err
	}
	if len(closed) == 0 {
		return domain.TradeStats{TotalPnL: decimal.Zero}, nil
	}

	wins := 0
	total := decimal.Zero
	for _, t := range closed {
		if t.PnL == nil {
			continue
		}
		if t.PnL.GreaterThan(decimal.Zero) {
			wins++
		}
		total = total.Add(*t.PnL)
	}

	count := len(closed)
	winRate := float64(wins) / float64(count) * 100
	return domain.TradeStats{
		WinRate:  winRate,
		LossRate: 100 - winRate,
		TotalPnL: total,
		Count:    count,
	}, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("trade store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}

func (s *WALStore) append(trade domain.Trade) error {
	payload, err := json.Marshal(trade)
	if err != nil {
		return errors.Wrap(err, "marshal trade")
	}

	next := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(next, tradeKeyPrefix+trade.ID, payload); err != nil {
		return errors.Wrap(err, "append trade")
	}
	return nil
}

// replay rebuilds the latest state of every trade from the log.
func (s *WALStore) replay() (map[string]domain.Trade, error) {
	current := make(map[string]domain.Trade)
	for idx := uint64(1); idx <= s.wal.CurrentIndex(); idx++ {
		key, payload, ok := s.wal.Get(idx)
		if ok != nil || !strings.HasPrefix(key, tradeKeyPrefix) {
			continue
		}
		var trade domain.Trade
		if err := json.Unmarshal(payload, &trade); err != nil {
			return nil, errors.Wrap(err, "decode trade")
		}
		current[trade.ID] = trade
	}
	return current, nil
}
