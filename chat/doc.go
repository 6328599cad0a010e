// Package chat keeps a single Twitch chat session alive and turns its lines into callbacks.
//
// A Client wraps the connection package with the parts a long-running bot needs:
//   - a fresh token from an auth.TokenSource before every connection attempt,
//   - automatic PONG replies and reconnection when the server sends RECONNECT,
//   - an idle timer that drops a silent connection (CHAT_IDLE_TIMEOUT),
//   - jittered exponential backoff between attempts.
//
// Lines that fail UTF-8 decoding are logged and skipped; every other read error ends the
// session. Handlers are registered per command kind (OnPrivateMessage, OnNotice, ...) and run
// on the read goroutine. A Hub can be attached to fan parsed messages out to subscribers such
// as the HTTP event stream.
package chat
