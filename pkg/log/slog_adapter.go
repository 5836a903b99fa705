package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.ExchangeID != "" {
		attrs = append(attrs, slog.String("exchange_id", event.ExchangeID))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}
	if event.DeviceUDN != "" {
		attrs = append(attrs, slog.String("udn", event.DeviceUDN))
	}
	if event.SID != "" {
		attrs = append(attrs, slog.String("sid", event.SID))
	}

	switch {
	case event.Exchange != nil:
		attrs = append(attrs,
			slog.String("method", event.Exchange.Method),
			slog.String("url", event.Exchange.URL),
			slog.Int("body_size", event.Exchange.BodySize),
		)
		if event.Exchange.StatusCode != nil {
			attrs = append(attrs, slog.Int("status", *event.Exchange.StatusCode))
		}
		if event.Exchange.Duration != nil {
			attrs = append(attrs, slog.Duration("rtt", *event.Exchange.Duration))
		}
	case event.Notify != nil:
		attrs = append(attrs,
			slog.Uint64("seq", uint64(event.Notify.Seq)),
			slog.Int("properties", len(event.Notify.Properties)),
			slog.Bool("routed", event.Notify.Routed),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "upnp", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
