// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, secrets)
//   - Redaction of credentials embedded in URLs and their query strings
//   - Configurable log levels with verbose mode support
//   - An optional rotating JSON log file
//
// # Usage
//
//	logger, closer, err := log.NewLogger(os.Stderr, verbose, "/var/log/opendir.log")
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//
//	logger.Info("searching directory", "url", "http://user:pw@example.com/pub/")
//	// url=http://***REDACTED***@example.com/pub/
package log
