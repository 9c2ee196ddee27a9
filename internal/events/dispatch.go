package events

import (
	"context"
	"log/slog"

	"github.com/starford/flipdesk/internal/conversion"
	"github.com/starford/flipdesk/internal/metrics"
)

// ConversionListener returns a worker listener that publishes the report's
// events. Failures are logged and counted; the conversion itself stands.
func ConversionListener(p Publisher, logger *slog.Logger) conversion.Listener {
	return func(ctx context.Context, r conversion.Report) {
		for _, e := range FromReport(r) {
			PublishLogged(ctx, p, logger, e)
		}
	}
}

// PublishLogged publishes e and logs instead of returning the error.
func PublishLogged(ctx context.Context, p Publisher, logger *slog.Logger, e Event) {
	if err := p.Publish(ctx, e); err != nil {
		metrics.EventsPublished.WithLabelValues(e.Type, "error").Inc()
		logger.Warn("publish event failed",
			slog.String("type", e.Type),
			slog.String("event_id", e.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.EventsPublished.WithLabelValues(e.Type, "ok").Inc()
}
