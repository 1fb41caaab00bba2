// Package logging configures slog handlers and shared structured-logging
// helpers used across the pipeline. Console output is a compact key=value
// format; JSON output is available for log aggregation.
package logging
