package repository

import (
	"context"
	"errors"
	"time"

	"telemetry-http-service/internal/domain/models"
	"telemetry-http-service/internal/domain/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReadingRepository implements services.ReadingStore on GORM. The same code
// runs on PostgreSQL, MySQL and SQLite.
type ReadingRepository struct {
	db *gorm.DB
}

// NewReadingRepository creates the repository.
func NewReadingRepository(db *gorm.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

var _ services.ReadingStore = (*ReadingRepository)(nil)

// InsertReading appends a row and returns its generated id.
func (r *ReadingRepository) InsertReading(ctx context.Context, reading *models.Reading) (uint64, error) {
	if err := r.db.WithContext(ctx).Create(reading).Error; err != nil {
		return 0, err
	}
	return reading.ID, nil
}

// UpsertDevice inserts the device or moves its last_seen_at forward.
func (r *ReadingRepository) UpsertDevice(ctx context.Context, deviceID string, seenAt time.Time) error {
	device := models.Device{DeviceID: deviceID, LastSeenAt: seenAt}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen_at"}),
	}).Create(&device).Error
}

// LatestReading returns services.ErrNotFound when the device has no rows.
func (r *ReadingRepository) LatestReading(ctx context.Context, deviceID string) (*models.Reading, error) {
	var reading models.Reading
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Take(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

// ReadingsInRange returns rows oldest first, truncated to q.Limit.
func (r *ReadingRepository) ReadingsInRange(ctx context.Context, q services.RangeQuery) ([]models.Reading, error) {
	tx := r.db.WithContext(ctx).Where("device_id = ?", q.DeviceID)
	if q.After != nil {
		tx = tx.Where("created_at > ?", *q.After)
	}
	if q.From != nil {
		tx = tx.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("created_at <= ?", *q.To)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var readings []models.Reading
	if err := tx.Order("created_at ASC").Order("id ASC").Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}

// ListDevices returns every device, most recently seen first.
func (r *ReadingRepository) ListDevices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	if err := r.db.WithContext(ctx).Order("last_seen_at DESC").Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}
