package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/korbanlabs/korban/internal/domain"
)

const (
	// MainnetInfoURL is the Hyperliquid read API endpoint.
	MainnetInfoURL = "https://api.hyperliquid.xyz/info"

	defaultInfoTimeout = 10 * time.Second
)

// ErrDataUnavailable marks any transport or parse failure of the market
// data venue. The gateway performs no retries; retry policy belongs to
// the caller.
var ErrDataUnavailable = errors.New("market data unavailable")

// InfoClient fetches candles, order-book depth and account state from the
// Hyperliquid info endpoint. Pure data fetch, no interpretation.
type InfoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewInfoClient creates an info API client. An empty baseURL selects mainnet.
func NewInfoClient(baseURL string, timeout time.Duration) *InfoClient {
	if baseURL == "" {
		baseURL = MainnetInfoURL
	}
	if timeout <= 0 {
		timeout = defaultInfoTimeout
	}
	return &InfoClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type candleSnapshotReq struct {
	Coin      string `json:"coin"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"startTime"`
}

type wireCandle struct {
	TimeOpen  int64  `json:"t"`
	TimeClose int64  `json:"T"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
}

// Candles returns OHLCV bars for the coin covering the lookback window,
// in ascending time order.
func (c *InfoClient) Candles(ctx context.Context, coin, interval string, lookback time.Duration) ([]domain.Candle, error) {
	req := map[string]any{
		"type": "candleSnapshot",
		"req": candleSnapshotReq{
			Coin:      strings.ToUpper(coin),
			Interval:  interval,
			StartTime: time.Now().Add(-lookback).UnixMilli(),
		},
	}

	var wire []wireCandle
	if err := c.post(ctx, req, &wire); err != nil {
		return nil, err
	}
	if len(wire) == 0 {
		return nil, errors.Wrapf(ErrDataUnavailable, "no candles for %s %s", coin, interval)
	}

	out := make([]domain.Candle, 0, len(wire))
	for i, w := range wire {
		candle, err := parseCandle(w)
		if err != nil {
			return nil, errors.Wrapf(ErrDataUnavailable, "candle %d: %v", i, err)
		}
		out = append(out, candle)
	}
	return out, nil
}

func parseCandle(w wireCandle) (domain.Candle, error) {
	open, err := decimal.NewFromString(w.Open)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := decimal.NewFromString(w.High)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := decimal.NewFromString(w.Low)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse low: %w", err)
	}
	closeP, err := decimal.NewFromString(w.Close)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := decimal.NewFromString(w.Volume)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse volume: %w", err)
	}

	return domain.Candle{
		OpenTime:  time.UnixMilli(w.TimeOpen),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closeP,
		Volume:    volume,
		CloseTime: time.UnixMilli(w.TimeClose),
	}, nil
}

type wireBookLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

type wireBook struct {
	Coin   string            `json:"coin"`
	Time   int64             `json:"time"`
	Levels [][]wireBookLevel `json:"levels"`
}

// OrderBook returns an L2 depth snapshot for the coin.
func (c *InfoClient) OrderBook(ctx context.Context, coin string) (domain.OrderBook, error) {
	req := map[string]any{"type": "l2Book", "coin": strings.ToUpper(coin)}

	var wire wireBook
	if err := c.post(ctx, req, &wire); err != nil {
		return domain.OrderBook{}, err
	}
	if len(wire.Levels) != 2 {
		return domain.OrderBook{}, errors.Wrapf(ErrDataUnavailable, "l2 book for %s has %d sides", coin, len(wire.Levels))
	}

	bids, err := parseLevels(wire.Levels[0])
	if err != nil {
		return domain.OrderBook{}, errors.Wrapf(ErrDataUnavailable, "bids: %v", err)
	}
	asks, err := parseLevels(wire.Levels[1])
	if err != nil {
		return domain.OrderBook{}, errors.Wrapf(ErrDataUnavailable, "asks: %v", err)
	}

	return domain.OrderBook{
		Coin: wire.Coin,
		Time: time.UnixMilli(wire.Time),
		Bids: bids,
		Asks: asks,
	}, nil
}

func parseLevels(wire []wireBookLevel) ([]domain.BookLevel, error) {
	out := make([]domain.BookLevel, 0, len(wire))
	for i, w := range wire {
		px, err := decimal.NewFromString(w.Px)
		if err != nil {
			return nil, fmt.Errorf("parse px at %d: %w", i, err)
		}
		sz, err := decimal.NewFromString(w.Sz)
		if err != nil {
			return nil, fmt.Errorf("parse sz at %d: %w", i, err)
		}
		out = append(out, domain.BookLevel{Price: px, Size: sz, Orders: w.N})
	}
	return out, nil
}

type wireClearinghouse struct {
	MarginSummary struct {
		AccountValue string `json:"accountValue"`
	} `json:"marginSummary"`
	Withdrawable string `json:"withdrawable"`
}

// Balance returns the account value and withdrawable balance for the user
// address. Parse failures surface as errors, never as a silent zero.
func (c *InfoClient) Balance(ctx context.Context, user string) (domain.Balance, error) {
	req := map[string]any{"type": "clearinghouseState", "user": user}

	var wire wireClearinghouse
	if err := c.post(ctx, req, &wire); err != nil {
		return domain.Balance{}, err
	}

	accountValue, err := decimal.NewFromString(wire.MarginSummary.AccountValue)
	if err != nil {
		return domain.Balance{}, errors.Wrapf(ErrDataUnavailable, "parse accountValue: %v", err)
	}
	withdrawable, err := decimal.NewFromString(wire.Withdrawable)
	if err != nil {
		return domain.Balance{}, errors.Wrapf(ErrDataUnavailable, "parse withdrawable: %v", err)
	}

	return domain.Balance{AccountValue: accountValue, Withdrawable: withdrawable}, nil
}

type wireAssetMeta struct {
	Universe []struct {
		Name string `json:"name"`
	} `json:"universe"`
}

type wireAssetCtx struct {
	MarkPx    string `json:"markPx"`
	DayNtlVlm string `json:"dayNtlVlm"`
	Funding   string `json:"funding"`
}

// AssetContexts returns per-market summaries for every listed perp.
func (c *InfoClient) AssetContexts(ctx context.Context) ([]domain.AssetContext, error) {
	req := map[string]any{"type": "metaAndAssetCtxs"}

	// response is a two-element heterogeneous array: [meta, contexts]
	var raw []json.RawMessage
	if err := c.post(ctx, req, &raw); err != nil {
		return nil, err
	}
	if len(raw) != 2 {
		return nil, errors.Wrapf(ErrDataUnavailable, "metaAndAssetCtxs returned %d elements", len(raw))
	}

	var meta wireAssetMeta
	if err := json.Unmarshal(raw[0], &meta); err != nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "decode universe: %v", err)
	}
	var ctxs []wireAssetCtx
	if err := json.Unmarshal(raw[1], &ctxs); err != nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "decode contexts: %v", err)
	}
	if len(ctxs) != len(meta.Universe) {
		return nil, errors.Wrapf(ErrDataUnavailable, "universe/context length mismatch: %d vs %d", len(meta.Universe), len(ctxs))
	}

	out := make([]domain.AssetContext, 0, len(ctxs))
	for i, w := range ctxs {
		markPx, err := decimal.NewFromString(w.MarkPx)
		if err != nil {
			return nil, errors.Wrapf(ErrDataUnavailable, "parse markPx for %s: %v", meta.Universe[i].Name, err)
		}
		dayVolume, err := decimal.NewFromString(w.DayNtlVlm)
		if err != nil {
			return nil, errors.Wrapf(ErrDataUnavailable, "parse dayNtlVlm for %s: %v", meta.Universe[i].Name, err)
		}
		funding, err := decimal.NewFromString(w.Funding)
		if err != nil {
			return nil, errors.Wrapf(ErrDataUnavailable, "parse funding for %s: %v", meta.Universe[i].Name, err)
		}
		out = append(out, domain.AssetContext{
			Coin:      meta.Universe[i].Name,
			MarkPrice: markPx,
			DayVolume: dayVolume,
			Funding:   funding,
		})
	}
	return out, nil
}

func (c *InfoClient) post(ctx context.Context, reqBody any, out any) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return errors.Wrapf(ErrDataUnavailable, "marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return errors.Wrapf(ErrDataUnavailable, "create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(ErrDataUnavailable, "request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(ErrDataUnavailable, "read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrDataUnavailable, "info API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(ErrDataUnavailable, "decode response: %v", err)
	}
	return nil
}
