package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mkurzov/marketd/internal/exchange"
	"github.com/mkurzov/marketd/internal/model"
)

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func dialStream(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, path), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestStreamRoute(t *testing.T) {
	t.Run("streams tickers at the poll interval", func(t *testing.T) {
		stub := &stubClient{name: "stubx", ticker: model.Ticker{Last: 44100.90}}
		ts := newTestServerTTL(t, stub, nil, time.Nanosecond)

		conn := dialStream(t, ts, "/ws/stubx/BTC/USDT")
		for i := 0; i < 3; i++ {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("read %d: %v", i+1, err)
			}
			var tick model.Ticker
			if err := json.Unmarshal(payload, &tick); err != nil {
				t.Fatalf("unmarshal %d: %v", i+1, err)
			}
			if tick.Symbol != "BTC/USDT" || tick.Last != 44100.90 {
				t.Errorf("payload %d = %+v", i+1, tick)
			}
		}
		if calls := stub.tickerCalls.Load(); calls < 3 {
			t.Errorf("driver calls = %d, want >= 3", calls)
		}
	})

	t.Run("refused stream sends one error then closes", func(t *testing.T) {
		stub := &stubClient{name: "stubx"}
		ts := newTestServer(t, stub, nil)

		conn := dialStream(t, ts, "/ws/bogus/BTC/USDT")

		var er model.ErrorResponse
		if err := conn.ReadJSON(&er); err != nil {
			t.Fatalf("read error payload: %v", err)
		}
		if er.Error != "unsupported_exchange" || er.StatusCode != http.StatusNotFound {
			t.Errorf("payload = %+v", er)
		}

		if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			t.Errorf("want normal close, got %v", err)
		}
	})

	t.Run("transient upstream error keeps the stream open", func(t *testing.T) {
		stub := &stubClient{
			name:   "stubx",
			ticker: model.Ticker{Last: 100},
			failOn: 2,
			tickerErr: &exchange.Error{
				Kind:     exchange.KindNetwork,
				Exchange: "stubx",
				Message:  "connection reset",
			},
		}
		ts := newTestServerTTL(t, stub, nil, time.Nanosecond)

		conn := dialStream(t, ts, "/ws/stubx/BTC/USDT")

		var first model.Ticker
		if err := conn.ReadJSON(&first); err != nil {
			t.Fatalf("read first ticker: %v", err)
		}
		if first.Last != 100 {
			t.Errorf("first payload = %+v", first)
		}

		var er model.ErrorResponse
		if err := conn.ReadJSON(&er); err != nil {
			t.Fatalf("read error payload: %v", err)
		}
		if er.Error != "upstream_network" || er.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("error payload = %+v", er)
		}

		var next model.Ticker
		if err := conn.ReadJSON(&next); err != nil {
			t.Fatalf("read ticker after transient error: %v", err)
		}
		if next.Last != 100 {
			t.Errorf("payload after transient error = %+v", next)
		}
	})

	t.Run("rejects malformed poll_interval before upgrade", func(t *testing.T) {
		stub := &stubClient{name: "stubx"}
		ts := newTestServer(t, stub, nil)

		var er model.ErrorResponse
		resp := getJSON(t, ts.URL+"/ws/stubx/BTC/USDT?poll_interval=abc", &er)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
		if er.Error != "invalid_request" {
			t.Errorf("error = %q, want %q", er.Error, "invalid_request")
		}
	})
}
