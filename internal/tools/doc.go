// Package tools provides host process helpers used around device sessions.
//
// Ownership boundary:
// - run-to-completion commands (adb port reversal, driver probes)
// - long-lived companion driver processes started before a client dial
package tools
