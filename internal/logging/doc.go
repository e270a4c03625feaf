// Package logging assembles structured slog loggers and formatting helpers used
// across mediasieve components.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and provides attribute helpers plus a no-op logger for tests and
// wiring code that cannot fail. Components take an injected *slog.Logger and
// tag it with NewComponentLogger so every line names its origin.
package logging
