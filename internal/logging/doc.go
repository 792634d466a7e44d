// Package logging builds the application's slog loggers and provides small
// helpers (attribute constructors, component loggers) so callers do not
// import log/slog directly everywhere.
package logging
