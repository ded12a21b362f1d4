// Package session owns the persistent device connection.
//
// Ownership boundary:
// - accepting a device that dials in, or dialing a local companion driver
// - one request frame / one response frame per RoundTrip, strictly in order
// - per-session timeouts, dial backoff, optional TLS, implicit wait settings
//
// A dropped or desynchronized connection is fatal to the Session; there is no
// reconnect. Callers open a new Session instead.
package session
