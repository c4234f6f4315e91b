package server

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mkurzov/marketd/internal/model"
	"github.com/mkurzov/marketd/internal/stream"
)

// writeWait bounds how long a single websocket write may block.
const writeWait = 5 * time.Second

func (s *Server) handleStream(c *gin.Context) {
	exchangeID := c.Param("exchange")
	symbol := wildcardSymbol(c)

	var requested time.Duration
	if raw := c.Query("poll_interval"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			s.badRequest(c, "poll_interval must be an integer number of seconds")
			return
		}
		requested = time.Duration(secs) * time.Second
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Warn("websocket upgrade failed", "client_ip", c.ClientIP(), "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Drain the connection so a client close or drop cancels the session.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sess := stream.NewSession(s.streamCfg, exchangeID, symbol, requested, s.provider, &wsSink{conn: conn}, s.logger)
	s.logger.Info("stream opened", "session_id", sess.ID, "client_ip", c.ClientIP())

	_ = sess.Run(ctx)

	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}

// wsSink writes stream payloads to a websocket connection. Only the session
// goroutine writes, so no locking is needed.
type wsSink struct {
	conn *websocket.Conn
}

func (w *wsSink) Send(tick model.Ticker) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(tick)
}

func (w *wsSink) SendError(kind, detail string, code int) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(model.ErrorResponse{
		Error:      kind,
		Detail:     detail,
		StatusCode: code,
		Timestamp:  model.Now(),
	})
}
