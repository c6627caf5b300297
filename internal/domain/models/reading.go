package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReadingStatus is the device-reported health state. Unknown values are
// stored as sent.
type ReadingStatus string

const (
	ReadingStatusOK         ReadingStatus = "OK"
	ReadingStatusWifiDown   ReadingStatus = "WIFI_DOWN"
	ReadingStatusSensorFail ReadingStatus = "SENSOR_FAIL"
	ReadingStatusInit       ReadingStatus = "INIT"
)

// Known reports whether s is one of the enumerated statuses.
func (s ReadingStatus) Known() bool {
	switch s {
	case ReadingStatusOK, ReadingStatusWifiDown, ReadingStatusSensorFail, ReadingStatusInit:
		return true
	}
	return false
}

// Reading is one immutable telemetry sample. Rows are append-only.
type Reading struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID   string         `gorm:"type:varchar(64);not null;index:idx_readings_device_created,priority:1" json:"device_id"`
	CreatedAt  time.Time      `gorm:"not null;precision:6;autoCreateTime:false;index:idx_readings_device_created,priority:2" json:"created_at"`
	DeviceTSMs *int64         `gorm:"column:device_ts_ms" json:"device_ts_ms"`
	TempC      *float64       `json:"temp_c"`
	HumPct     *float64       `json:"hum_pct"`
	TempAvg    *float64       `json:"temp_avg"`
	HumAvg     *float64       `json:"hum_avg"`
	RSSI       *int           `gorm:"column:rssi" json:"rssi"`
	UptimeS    *int64         `gorm:"column:uptime_s" json:"uptime_s"`
	FW         *string        `gorm:"column:fw;type:varchar(255)" json:"fw"`
	Status     ReadingStatus  `gorm:"type:varchar(255);not null;default:'OK'" json:"status"`
	Health     *float64       `json:"health"`
	FailPct    *float64       `json:"fail_pct"`
	RawJSON    datatypes.JSON `gorm:"column:raw_json" json:"-"` // 原始请求体，仅用于审计/重放
}

// TableName implements the GORM tabler interface.
func (Reading) TableName() string { return "readings" }

// ReadingFields is the canonical, normalized view of an ingest payload.
type ReadingFields struct {
	DeviceTSMs *int64
	TempC      *float64
	HumPct     *float64
	TempAvg    *float64
	HumAvg     *float64
	RSSI       *int
	UptimeS    *int64
	FW         *string
	Status     ReadingStatus
	Health     *float64
	FailPct    *float64
}

// NewReading builds the row for an accepted ingestion.
func NewReading(deviceID string, createdAt time.Time, f ReadingFields, raw []byte) *Reading {
	return &Reading{
		DeviceID:   deviceID,
		CreatedAt:  createdAt,
		DeviceTSMs: f.DeviceTSMs,
		TempC:      f.TempC,
		HumPct:     f.HumPct,
		TempAvg:    f.TempAvg,
		HumAvg:     f.HumAvg,
		RSSI:       f.RSSI,
		UptimeS:    f.UptimeS,
		FW:         f.FW,
		Status:     f.Status,
		Health:     f.Health,
		FailPct:    f.FailPct,
		RawJSON:    datatypes.JSON(raw),
	}
}

// Fields returns the normalized columns of the row.
func (r *Reading) Fields() ReadingFields {
	return ReadingFields{
		DeviceTSMs: r.DeviceTSMs,
		TempC:      r.TempC,
		HumPct:     r.HumPct,
		TempAvg:    r.TempAvg,
		HumAvg:     r.HumAvg,
		RSSI:       r.RSSI,
		UptimeS:    r.UptimeS,
		FW:         r.FW,
		Status:     r.Status,
		Health:     r.Health,
		FailPct:    r.FailPct,
	}
}
