// apiprobe exercises a running marketd instance: it walks every exchange the
// service reports, fetches a price and a few candles from each concurrently,
// then streams a handful of WebSocket payloads from the first exchange.
//
// Usage: go run ./cmd/apiprobe --addr http://localhost:8000 --symbol BTC/USDT
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/mkurzov/marketd/internal/model"
)

func main() {
	addr := flag.String("addr", "http://localhost:8000", "base URL of the marketd instance")
	symbol := flag.String("symbol", "BTC/USDT", "unified symbol to probe")
	timeframe := flag.String("timeframe", "1h", "candle timeframe to request")
	count := flag.Int("count", 3, "stream payloads to read before disconnecting")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	client := &http.Client{Timeout: 30 * time.Second}

	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := getJSON(ctx, client, *addr+"/health", &health); err != nil {
		logger.Error("health check failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("[HEALTH] status=%s version=%s\n", health.Status, health.Version)

	var infos []model.ExchangeInfo
	if err := getJSON(ctx, client, *addr+"/exchanges", &infos); err != nil {
		logger.Error("failed to list exchanges", "error", err)
		os.Exit(1)
	}
	fmt.Printf("[EXCHANGES] %d registered\n", len(infos))

	// One price and one history probe per exchange, all in flight at once.
	g, gctx := errgroup.WithContext(ctx)
	for _, info := range infos {
		info := info
		g.Go(func() error {
			var tick model.Ticker
			url := fmt.Sprintf("%s/price/%s/%s", *addr, info.ID, *symbol)
			if err := getJSON(gctx, client, url, &tick); err != nil {
				return fmt.Errorf("%s: price: %w", info.ID, err)
			}
			fmt.Printf("[PRICE] exchange=%s symbol=%s last=%.2f bid=%.2f ask=%.2f\n",
				info.ID, tick.Symbol, tick.Last, tick.Bid, tick.Ask)
			return nil
		})
		if !info.HasOHLCV {
			continue
		}
		g.Go(func() error {
			var candles []model.Candle
			url := fmt.Sprintf("%s/historical/%s/%s?timeframe=%s&limit=5", *addr, info.ID, *symbol, *timeframe)
			if err := getJSON(gctx, client, url, &candles); err != nil {
				return fmt.Errorf("%s: historical: %w", info.ID, err)
			}
			var lastClose float64
			if len(candles) > 0 {
				lastClose = candles[len(candles)-1].Close
			}
			fmt.Printf("[OHLCV] exchange=%s bars=%d last_close=%.2f\n", info.ID, len(candles), lastClose)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("probe failed", "error", err)
		os.Exit(1)
	}

	if len(infos) == 0 || *count <= 0 {
		return
	}
	if err := streamProbe(ctx, *addr, infos[0].ID, *symbol, *count); err != nil {
		logger.Error("stream probe failed", "error", err)
		os.Exit(1)
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var er model.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Error != "" {
			return fmt.Errorf("http %d: %s: %s", resp.StatusCode, er.Error, er.Detail)
		}
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func streamProbe(ctx context.Context, addr, exchangeID, symbol string, count int) error {
	wsAddr := strings.Replace(addr, "http", "ws", 1) +
		fmt.Sprintf("/ws/%s/%s?poll_interval=1", exchangeID, symbol)
	fmt.Printf("[STREAM] connecting %s\n", wsAddr)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsAddr, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for i := 0; i < count; i++ {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		var tick model.Ticker
		if err := conn.ReadJSON(&tick); err != nil {
			return err
		}
		fmt.Printf("[STREAM] %d/%d symbol=%s last=%.2f at=%s\n",
			i+1, count, tick.Symbol, tick.Last, tick.Datetime)
	}
	return conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}
