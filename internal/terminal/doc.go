// Package terminal provides the interactive shell sessions streamed to the
// browser.
//
// Two backends implement the same Session interface: a local PTY (creack/pty)
// and a remote SSH session (golang.org/x/crypto/ssh) for relaying an EC2
// host. The websocket handler only sees the interface, so tracing is added
// by wrapping a session with Instrument rather than by touching either
// backend.
package terminal
