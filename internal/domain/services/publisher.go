package services

import (
	"context"
	"errors"
	"fmt"

	"telemetry-http-service/internal/domain/models"
	"telemetry-http-service/internal/infrastructure/metrics"
)

// ReadingPublisher mirrors an accepted reading to a secondary sink.
// Failures are reported but never affect the ingest outcome.
type ReadingPublisher interface {
	Name() string
	Publish(ctx context.Context, reading *models.Reading) error
}

// MultiPublisher fans a reading out to every configured sink.
type MultiPublisher []ReadingPublisher

func (m MultiPublisher) Name() string { return "multi" }

// Publish calls every sink, even after one fails, and joins the errors.
func (m MultiPublisher) Publish(ctx context.Context, reading *models.Reading) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, reading); err != nil {
			metrics.PublishFailures.WithLabelValues(p.Name()).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
