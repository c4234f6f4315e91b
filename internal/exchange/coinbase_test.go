package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestCoinbase(url string) *Coinbase {
	return NewCoinbase(WithBaseURL(url), WithRetries(0, time.Millisecond))
}

func TestCoinbaseProduct(t *testing.T) {
	if got := coinbaseProduct("BTC/USD"); got != "BTC-USD" {
		t.Errorf("coinbaseProduct(BTC/USD) = %q, want BTC-USD", got)
	}
	if got := coinbaseProduct("eth/eur"); got != "ETH-EUR" {
		t.Errorf("coinbaseProduct(eth/eur) = %q, want ETH-EUR", got)
	}
}

func TestCoinbaseFetchTicker(t *testing.T) {
	t.Run("combines ticker and stats", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/products/BTC-USD/ticker":
				w.Write([]byte(`{
					"trade_id": 123,
					"price": "44100.90",
					"bid": "44100.00",
					"ask": "44101.50",
					"volume": "12345.678",
					"time": "2024-01-15T12:30:45.123456Z"
				}`))
			case "/products/BTC-USD/stats":
				w.Write([]byte(`{
					"open": "43500.00",
					"high": "45200.10",
					"low": "43100.00",
					"last": "44100.90",
					"volume": "12345.678"
				}`))
			default:
				t.Errorf("unexpected path %q", r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		tick, err := newTestCoinbase(server.URL).FetchTicker(context.Background(), "BTC/USD")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tick.Symbol != "BTC/USD" {
			t.Errorf("Symbol = %q, want BTC/USD", tick.Symbol)
		}
		if tick.Timestamp != 1705321845123 {
			t.Errorf("Timestamp = %d, want 1705321845123", tick.Timestamp)
		}
		if tick.High != 45200.10 {
			t.Errorf("High = %v, want 45200.10 (from stats)", tick.High)
		}
		if tick.Low != 43100.00 {
			t.Errorf("Low = %v, want 43100.00 (from stats)", tick.Low)
		}
		if tick.Bid != 44100.00 || tick.Ask != 44101.50 {
			t.Errorf("Bid/Ask = %v/%v", tick.Bid, tick.Ask)
		}
		if tick.Last != 44100.90 {
			t.Errorf("Last = %v, want 44100.90", tick.Last)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"NotFound"}`))
		}))
		defer server.Close()

		_, err := newTestCoinbase(server.URL).FetchTicker(context.Background(), "NOPE/USD")
		if got := KindOf(err); got != KindBadSymbol {
			t.Errorf("kind = %q, want %q (err: %v)", got, KindBadSymbol, err)
		}
	})
}

func TestCoinbaseFetchOHLCV(t *testing.T) {
	t.Run("reorders newest-first rows", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/products/BTC-USD/candles" {
				t.Errorf("path = %q", r.URL.Path)
			}
			if got := r.URL.Query().Get("granularity"); got != "3600" {
				t.Errorf("granularity = %q, want 3600", got)
			}
			// Coinbase rows: [time, low, high, open, close, volume], newest first.
			w.Write([]byte(`[
				[1705322400, 43950.0, 44500.0, 44050.0, 44400.0, 123.45],
				[1705318800, 43900.0, 44100.0, 44000.0, 44050.0, 100.5]
			]`))
		}))
		defer server.Close()

		candles, err := newTestCoinbase(server.URL).FetchOHLCV(context.Background(), "BTC/USD",
			modelQuery("1h", 0, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(candles) != 2 {
			t.Fatalf("len(candles) = %d, want 2", len(candles))
		}
		if candles[0].Timestamp != 1705318800000 {
			t.Errorf("candles[0].Timestamp = %d, want oldest first", candles[0].Timestamp)
		}
		oldest := candles[0]
		if oldest.Open != 44000.0 || oldest.High != 44100.0 || oldest.Low != 43900.0 || oldest.Close != 44050.0 {
			t.Errorf("OHLC = %v/%v/%v/%v, field order mismapped", oldest.Open, oldest.High, oldest.Low, oldest.Close)
		}
	})

	t.Run("sends start and end together", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("start") != "2024-01-15T11:00:00Z" {
				t.Errorf("start = %q, want 2024-01-15T11:00:00Z", q.Get("start"))
			}
			// end = start + 2 bars of 1h
			if q.Get("end") != "2024-01-15T13:00:00Z" {
				t.Errorf("end = %q, want 2024-01-15T13:00:00Z", q.Get("end"))
			}
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		_, err := newTestCoinbase(server.URL).FetchOHLCV(context.Background(), "BTC/USD",
			modelQuery("1h", 1705316400000, 2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("truncates to limit keeping newest when no since", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[
				[1705326000, 1, 1, 1, 1, 1],
				[1705322400, 2, 2, 2, 2, 2],
				[1705318800, 3, 3, 3, 3, 3]
			]`))
		}))
		defer server.Close()

		candles, err := newTestCoinbase(server.URL).FetchOHLCV(context.Background(), "BTC/USD",
			modelQuery("1h", 0, 2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(candles) != 2 {
			t.Fatalf("len(candles) = %d, want 2", len(candles))
		}
		if candles[0].Timestamp != 1705322400000 || candles[1].Timestamp != 1705326000000 {
			t.Errorf("kept %d and %d, want the two newest ascending", candles[0].Timestamp, candles[1].Timestamp)
		}
	})

	t.Run("unsupported timeframe", func(t *testing.T) {
		c := newTestCoinbase("http://unused")
		_, err := c.FetchOHLCV(context.Background(), "BTC/USD", modelQuery("3m", 0, 0))
		if got := KindOf(err); got != KindExchange {
			t.Errorf("kind = %q, want %q", got, KindExchange)
		}
	})
}

func TestCoinbaseListMarkets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			t.Errorf("path = %q, want /products", r.URL.Path)
		}
		w.Write([]byte(`[
			{"id":"ETH-USD","base_currency":"ETH","quote_currency":"USD","status":"online"},
			{"id":"BTC-USD","base_currency":"BTC","quote_currency":"USD","status":"online"},
			{"id":"OLD-USD","base_currency":"OLD","quote_currency":"USD","status":"delisted"}
		]`))
	}))
	defer server.Close()

	markets, err := newTestCoinbase(server.URL).ListMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"BTC/USD", "ETH/USD"}
	if len(markets) != len(want) {
		t.Fatalf("markets = %v, want %v", markets, want)
	}
	for i := range want {
		if markets[i] != want[i] {
			t.Errorf("markets[%d] = %q, want %q", i, markets[i], want[i])
		}
	}
}
