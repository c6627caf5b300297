package models

import "time"

// Device tracks liveness per device_id. One row per device, created on the
// first accepted ingestion and updated on every later one.
type Device struct {
	DeviceID   string    `gorm:"primaryKey;type:varchar(64)" json:"device_id"`
	LastSeenAt time.Time `gorm:"not null;precision:6" json:"last_seen_at"`
}

// TableName implements the GORM tabler interface.
func (Device) TableName() string { return "devices" }

// DeviceSummary is the dashboard view of a device.
type DeviceSummary struct {
	DeviceID   string    `json:"device_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
	Online     bool      `json:"online"`
}

// Summarize marks the device online when it was seen within threshold of now.
func (d Device) Summarize(now time.Time, threshold time.Duration) DeviceSummary {
	return DeviceSummary{
		DeviceID:   d.DeviceID,
		LastSeenAt: d.LastSeenAt,
		Online:     now.Sub(d.LastSeenAt) <= threshold,
	}
}
