package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mkurzov/marketd/internal/metrics"
	"github.com/mkurzov/marketd/internal/model"
	"github.com/mkurzov/marketd/internal/provider"
)

// Session streams tickers for one (exchange, symbol) pair to one client.
type Session struct {
	ID       uuid.UUID
	exchange string
	symbol   string
	interval time.Duration
	source   TickerSource
	sink     Sink
	logger   *slog.Logger

	state atomic.Int32
	ran   atomic.Bool
}

// NewSession creates a session polling at the requested interval, clamped by
// cfg. A nil logger falls back to slog.Default().
func NewSession(cfg Config, exchangeID, symbol string, requested time.Duration, source TickerSource, sink Sink, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:       uuid.New(),
		exchange: exchangeID,
		symbol:   symbol,
		interval: cfg.Interval(requested),
		source:   source,
		sink:     sink,
		logger:   logger,
	}
}

// Interval returns the effective poll interval.
func (s *Session) Interval() time.Duration { return s.interval }

// State returns the current lifecycle phase.
func (s *Session) State() State { return State(s.state.Load()) }

// Run drives the session until the context ends, the client goes away, or a
// terminal error occurs. It blocks and must be called at most once.
func (s *Session) Run(ctx context.Context) error {
	if !s.ran.CompareAndSwap(false, true) {
		return errors.New("session already run")
	}
	metrics.OnSessionOpen()
	defer metrics.OnSessionClose()
	defer s.state.Store(int32(StateClosed))

	s.logger.Info("session connecting",
		"session_id", s.ID,
		"exchange", s.exchange,
		"symbol", s.symbol,
		"interval", s.interval,
	)

	// Connecting: the first fetch decides whether the stream opens at all.
	tick, err := s.source.GetTicker(ctx, s.exchange, s.symbol)
	if err != nil {
		s.pushError(err)
		s.logger.Info("session refused", "session_id", s.ID, "error", err)
		return err
	}
	if err := s.push(tick); err != nil {
		return err
	}
	s.state.Store(int32(StateStreaming))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session closed", "session_id", s.ID, "reason", "context done")
			return nil
		case <-ticker.C:
			tick, err := s.source.GetTicker(ctx, s.exchange, s.symbol)
			// A fetch that failed or raced only because the session is
			// shutting down must not produce another payload.
			if ctx.Err() != nil {
				s.logger.Info("session closed", "session_id", s.ID, "reason", "context done")
				return nil
			}
			if err != nil {
				if transient(err) {
					if serr := s.pushError(err); serr != nil {
						return serr
					}
					continue
				}
				s.pushError(err)
				s.logger.Info("session closed", "session_id", s.ID, "reason", "terminal error", "error", err)
				return err
			}
			if err := s.push(tick); err != nil {
				return err
			}
		}
	}
}

func (s *Session) push(tick model.Ticker) error {
	if err := s.sink.Send(tick); err != nil {
		s.logger.Info("session closed", "session_id", s.ID, "reason", "send failed", "error", err)
		return err
	}
	metrics.StreamPayloadsTotal.WithLabelValues("ticker").Inc()
	return nil
}

func (s *Session) pushError(err error) error {
	kind := provider.KindOf(err)
	detail := err.Error()
	var pe *provider.Error
	if errors.As(err, &pe) {
		detail = pe.Detail
	}
	metrics.StreamPayloadsTotal.WithLabelValues("error").Inc()
	return s.sink.SendError(string(kind), detail, kind.HTTPStatus())
}

// transient reports whether the stream should survive err. Upstream hiccups
// are worth retrying on the next tick; everything else closes the session.
func transient(err error) bool {
	switch provider.KindOf(err) {
	case provider.KindUpstreamNetwork, provider.KindUpstreamExchange:
		return true
	}
	return false
}
