// Package ws serves the browser terminal over websocket and owns the trace
// lifecycle of each connection.
//
// The websocket protocol carries no automatic context propagation, so the
// Bridge opens a connection-level span when a connection is accepted, nests
// a child span under it for every connect, receive, send, and disconnect
// event, and closes everything on teardown. An abrupt client drop marks the
// session span ERROR and force-closes any event span still open; no span is
// ever left dangling.
//
// Messages:
//   - inbound text that parses as JSON is treated as control traffic
//     ({"type":"resize",...}, or a first message carrying "traceparent")
//   - all other inbound payloads are keystrokes relayed to the terminal
//   - outbound terminal output is sent as binary frames; JSON status
//     messages carry the active traceparent for browser-side correlation
package ws
