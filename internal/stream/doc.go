// Package stream turns the pull-based provider into a push feed.
//
// A Session polls one (exchange, symbol) pair at a fixed interval and pushes
// every ticker to a Sink. The transport is abstracted behind the Sink
// interface: the HTTP layer adapts a websocket connection to it, tests use
// an in-memory recorder.
//
// A session lives through three states. Connecting performs one synchronous
// fetch that decides whether the stream opens at all; Streaming polls until
// the context ends or a terminal error occurs; Closed is final. Upstream
// network and exchange failures are transient: the client gets an error
// payload and the stream stays open. Everything else closes the session
// after a final error payload.
package stream
