// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level parsing and ApplyLevel for the configured log_level,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Sessions, the broadcast bus and the control server all take a context and
// log through the logger stored in it, so every line carries the alarm id.
package logger
