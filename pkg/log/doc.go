// Package log provides protocol capture for UPnP control points.
//
// It is separate from operational logging (slog): capture produces a
// machine-readable trace of every HTTP exchange (SUBSCRIBE, UNSUBSCRIBE,
// NOTIFY, SOAP actions), every decoded event property set, and every
// subscription state transition.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For capture: write to a binary file
//	fl, _ := log.NewFileLogger("/var/log/upnp/controller.ulog")
//	cfg.ProtocolLogger = fl
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # File Format
//
// Capture files are a stream of CBOR-encoded Events with integer keys.
// The upnp-log command views and filters them.
package log
