package services

import (
	"context"
	"errors"
	"time"

	"telemetry-http-service/internal/domain/models"
)

// ErrNotFound is returned by a ReadingStore when a lookup matches no rows.
var ErrNotFound = errors.New("record not found")

// RangeQuery selects readings of one device in ascending creation order.
// After is an exclusive lower bound, From/To are inclusive bounds.
type RangeQuery struct {
	DeviceID string
	After    *time.Time
	From     *time.Time
	To       *time.Time
	Limit    int
}

// ReadingStore is the persistence contract for the readings and devices
// tables. Implementations must honor ctx cancellation and deadlines.
type ReadingStore interface {
	InsertReading(ctx context.Context, reading *models.Reading) (uint64, error)
	UpsertDevice(ctx context.Context, deviceID string, seenAt time.Time) error
	LatestReading(ctx context.Context, deviceID string) (*models.Reading, error)
	ReadingsInRange(ctx context.Context, q RangeQuery) ([]models.Reading, error)
	ListDevices(ctx context.Context) ([]models.Device, error)
}
