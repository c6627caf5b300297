package influx

import (
	"context"

	"telemetry-http-service/internal/domain/models"
	"telemetry-http-service/internal/infrastructure/config"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement is the InfluxDB measurement readings are written to.
const Measurement = "reading"

// Writer mirrors accepted readings into an InfluxDB bucket for long-range
// charting. The relational store stays the source of truth.
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewWriter connects to the InfluxDB instance configured in cfg.
func NewWriter(cfg *config.Config) *Writer {
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	return &Writer{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
	}
}

func (w *Writer) Name() string { return "influxdb" }

// Publish writes one point tagged by device and status.
func (w *Writer) Publish(ctx context.Context, reading *models.Reading) error {
	return w.writeAPI.WritePoint(ctx, Point(reading))
}

// Close flushes and releases the client.
func (w *Writer) Close() {
	w.client.Close()
}

// Point converts a reading to a line-protocol point at its server creation
// time. Absent values are omitted rather than written as zero.
func Point(r *models.Reading) *write.Point {
	tags := map[string]string{
		"device_id": r.DeviceID,
		"status":    string(r.Status),
	}
	if r.FW != nil {
		tags["fw"] = *r.FW
	}

	fields := make(map[string]interface{})
	putFloat(fields, "temp_c", r.TempC)
	putFloat(fields, "hum_pct", r.HumPct)
	putFloat(fields, "temp_avg", r.TempAvg)
	putFloat(fields, "hum_avg", r.HumAvg)
	putFloat(fields, "health", r.Health)
	putFloat(fields, "fail_pct", r.FailPct)
	if r.RSSI != nil {
		fields["rssi"] = int64(*r.RSSI)
	}
	if r.UptimeS != nil {
		fields["uptime_s"] = *r.UptimeS
	}
	if r.DeviceTSMs != nil {
		fields["device_ts_ms"] = *r.DeviceTSMs
	}
	// InfluxDB rejects points without fields
	fields["reading_id"] = int64(r.ID)

	return influxdb2.NewPoint(Measurement, tags, fields, r.CreatedAt)
}

func putFloat(fields map[string]interface{}, name string, v *float64) {
	if v != nil {
		fields[name] = *v
	}
}
