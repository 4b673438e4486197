// Package logging provides structured logging using uber/zap.
//
// Production builds write JSON, development builds write colored console
// lines. Snippet console output is mirrored to a child logger per snippet:
//
//	logger := logging.NewDefault()
//	sink := logger.Snippet("js/arrays.js")
//	sink.Info("console", zap.String("line", "hello"))
package logging
