// Package logging configures the structured operational logger used by reqcap.
//
// It wraps log/slog. Components take a *slog.Logger in their constructor or a
// setter and fall back to Nop when none is given. Captured request content is
// not operational logging; it lives in package requestlog.
//
//	logger, closeFn, err := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	    File:   "/var/log/reqcap.log",
//	})
//	defer closeFn()
//	logger.Info("capture server started", "port", 4380)
//
// When File is set, records go to both Output and the file.
package logging
