package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func infoServer(t *testing.T, handler func(reqType string, body map[string]any) (int, string)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		reqType, _ := body["type"].(string)

		status, payload := handler(reqType, body)
		w.WriteHeader(status)
		w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestInfoClient_Candles(t *testing.T) {
	server := infoServer(t, func(reqType string, body map[string]any) (int, string) {
		require.Equal(t, "candleSnapshot", reqType)
		req := body["req"].(map[string]any)
		require.Equal(t, "HYPE", req["coin"])
		require.Equal(t, "15m", req["interval"])

		return http.StatusOK, `[
			{"t": 1700000000000, "T": 1700000899999, "o": "25.1", "h": "25.6", "l": "24.9", "c": "25.4", "v": "1000.5"},
			{"t": 1700000900000, "T": 1700001799999, "o": "25.4", "h": "25.8", "l": "25.2", "c": "25.7", "v": "900.25"}
		]`
	})

	client := NewInfoClient(server.URL, time.Second)
	candles, err := client.Candles(context.Background(), "hype", "15m", 2*time.Hour)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	require.True(t, candles[0].Open.Equal(decimal.NewFromFloat(25.1)))
	require.True(t, candles[1].Close.Equal(decimal.NewFromFloat(25.7)))
	require.True(t, candles[0].OpenTime.Before(candles[1].OpenTime), "candles must ascend in time")
}

func TestInfoClient_CandlesParseFailureIsDataUnavailable(t *testing.T) {
	server := infoServer(t, func(string, map[string]any) (int, string) {
		return http.StatusOK, `[{"t": 1, "T": 2, "o": "not-a-number", "h": "1", "l": "1", "c": "1", "v": "1"}]`
	})

	client := NewInfoClient(server.URL, time.Second)
	_, err := client.Candles(context.Background(), "HYPE", "15m", time.Hour)
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestInfoClient_CandlesEmptyIsDataUnavailable(t *testing.T) {
	server := infoServer(t, func(string, map[string]any) (int, string) {
		return http.StatusOK, `[]`
	})

	client := NewInfoClient(server.URL, time.Second)
	_, err := client.Candles(context.Background(), "HYPE", "15m", time.Hour)
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestInfoClient_OrderBook(t *testing.T) {
	server := infoServer(t, func(reqType string, body map[string]any) (int, string) {
		require.Equal(t, "l2Book", reqType)
		require.Equal(t, "HYPE", body["coin"])

		return http.StatusOK, `{
			"coin": "HYPE",
			"time": 1700000000000,
			"levels": [
				[{"px": "25.3", "sz": "100", "n": 3}, {"px": "25.2", "sz": "150", "n": 5}],
				[{"px": "25.4", "sz": "80", "n": 2}]
			]
		}`
	})

	client := NewInfoClient(server.URL, time.Second)
	book, err := client.OrderBook(context.Background(), "HYPE")
	require.NoError(t, err)

	require.Equal(t, "HYPE", book.Coin)
	require.Len(t, book.Bids, 2)
	require.Len(t, book.Asks, 1)
	require.True(t, book.Bids[0].Price.Equal(decimal.NewFromFloat(25.3)))
	require.Equal(t, 3, book.Bids[0].Orders)
	require.True(t, book.Asks[0].Size.Equal(decimal.NewFromInt(80)))
}

func TestInfoClient_OrderBookMissingSideIsDataUnavailable(t *testing.T) {
	server := infoServer(t, func(string, map[string]any) (int, string) {
		return http.StatusOK, `{"coin": "HYPE", "time": 1, "levels": [[]]}`
	})

	client := NewInfoClient(server.URL, time.Second)
	_, err := client.OrderBook(context.Background(), "HYPE")
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestInfoClient_Balance(t *testing.T) {
	server := infoServer(t, func(reqType string, body map[string]any) (int, string) {
		require.Equal(t, "clearinghouseState", reqType)
		require.Equal(t, "0xmaster", body["user"])

		return http.StatusOK, `{
			"marginSummary": {"accountValue": "1500.75"},
			"withdrawable": "1200.50"
		}`
	})

	client := NewInfoClient(server.URL, time.Second)
	balance, err := client.Balance(context.Background(), "0xmaster")
	require.NoError(t, err)
	require.True(t, balance.AccountValue.Equal(decimal.NewFromFloat(1500.75)))
	require.True(t, balance.Withdrawable.Equal(decimal.NewFromFloat(1200.50)))
}

func TestInfoClient_BalanceParseFailureIsNeverSilentZero(t *testing.T) {
	server := infoServer(t, func(string, map[string]any) (int, string) {
		return http.StatusOK, `{"marginSummary": {"accountValue": ""}, "withdrawable": "10"}`
	})

	client := NewInfoClient(server.URL, time.Second)
	_, err := client.Balance(context.Background(), "0xmaster")
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestInfoClient_AssetContexts(t *testing.T) {
	server := infoServer(t, func(reqType string, body map[string]any) (int, string) {
		require.Equal(t, "metaAndAssetCtxs", reqType)

		return http.StatusOK, `[
			{"universe": [{"name": "HYPE"}, {"name": "BTC"}]},
			[
				{"markPx": "25.5", "dayNtlVlm": "1000000", "funding": "0.0001"},
				{"markPx": "97000", "dayNtlVlm": "5000000", "funding": "0.00005"}
			]
		]`
	})

	client := NewInfoClient(server.URL, time.Second)
	contexts, err := client.AssetContexts(context.Background())
	require.NoError(t, err)
	require.Len(t, contexts, 2)
	require.Equal(t, "HYPE", contexts[0].Coin)
	require.True(t, contexts[1].MarkPrice.Equal(decimal.NewFromInt(97000)))
}

func TestInfoClient_AssetContextsLengthMismatchIsDataUnavailable(t *testing.T) {
	server := infoServer(t, func(string, map[string]any) (int, string) {
		return http.StatusOK, `[{"universe": [{"name": "HYPE"}]}, []]`
	})

	client := NewInfoClient(server.URL, time.Second)
	_, err := client.AssetContexts(context.Background())
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestInfoClient_ServerErrorIsDataUnavailable(t *testing.T) {
	server := infoServer(t, func(string, map[string]any) (int, string) {
		return http.StatusInternalServerError, `{"error": "down"}`
	})

	client := NewInfoClient(server.URL, time.Second)

	_, err := client.Candles(context.Background(), "HYPE", "15m", time.Hour)
	require.ErrorIs(t, err, ErrDataUnavailable)

	_, err = client.Balance(context.Background(), "0xmaster")
	require.ErrorIs(t, err, ErrDataUnavailable)
}
