// Package logging configures the process-wide slog logger. It offers a
// console handler for interactive runs, a JSON handler for log files, and
// helpers for attaching run correlation fields to loggers.
package logging
