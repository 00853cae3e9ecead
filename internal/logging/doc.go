// Package logging provides structured logging for packstream builds.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation. Human-readable build stats are rendered separately by
// the report package; this logger carries the machine-readable trail of what
// the bridge did (items buffered, builds started, watch sessions suspended).
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("build completed", "assets", 3, "duration_ms", 150)
//
// # Context Propagation
//
// Child loggers carry persistent attributes:
//
//	targetLogger := logger.WithTarget("web")
//	sessionLogger := targetLogger.WithSession("0190c4d2-...")
//	sessionLogger.Warn("watch suspended", "resume_in", "5s")
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"watch suspended","target":"web","session_id":"0190c4d2-...","resume_in":"5s"}
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] to capture it:
//
//	var buf bytes.Buffer
//	logger := logging.NewWriterLogger(&buf, logging.LevelDebug)
package logging
