// Package logger wraps zap with a process-wide sugared logger that writes
// human-readable console lines, plus context helpers (ToContext, FromContext,
// WithName, WithKV) so request- and service-scoped fields travel with ctx.
package logger
