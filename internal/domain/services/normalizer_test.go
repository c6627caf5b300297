package services

import (
	"testing"

	"telemetry-http-service/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	raw, err := ParsePayload([]byte(body))
	require.NoError(t, err)
	return raw
}

func TestNormalizeFailPct(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.5, 50},
		{0, 0},
		{75, 75},
		{1, 100},
		{0.02, 2},
		{1.5, 1.5},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, NormalizeFailPct(tc.in), 1e-9, "fail_pct %v", tc.in)
	}
}

func TestNormalizeFullPayload(t *testing.T) {
	raw := mustParse(t, `{
		"device_id": "esp32-lab-01",
		"fw": "v1.0.0",
		"ts_ms": 1718000000123,
		"uptime_s": 1234,
		"rssi": -50,
		"status": "WIFI_DOWN",
		"temp_c": 25.5,
		"hum_pct": 60,
		"temp_avg": 25.1,
		"hum_avg": 59.5,
		"fail_pct": 0.25,
		"health": 97
	}`)

	f := Normalize(raw)

	require.NotNil(t, f.DeviceTSMs)
	assert.Equal(t, int64(1718000000123), *f.DeviceTSMs)
	require.NotNil(t, f.UptimeS)
	assert.Equal(t, int64(1234), *f.UptimeS)
	require.NotNil(t, f.RSSI)
	assert.Equal(t, -50, *f.RSSI)
	assert.Equal(t, models.ReadingStatusWifiDown, f.Status)
	assert.Equal(t, "v1.0.0", *f.FW)
	assert.Equal(t, 25.5, *f.TempC)
	assert.Equal(t, 60.0, *f.HumPct)
	assert.Equal(t, 25.1, *f.TempAvg)
	assert.Equal(t, 59.5, *f.HumAvg)
	assert.InDelta(t, 25.0, *f.FailPct, 1e-9)
	assert.Equal(t, 97.0, *f.Health)
}

func TestNormalizeNestedSensorWins(t *testing.T) {
	raw := mustParse(t, `{"device_id":"d1","temp_c":30,"hum_pct":40,"sensor":{"temp_c":21.5}}`)

	f := Normalize(raw)

	assert.Equal(t, 21.5, *f.TempC, "nested value takes precedence")
	assert.Equal(t, 40.0, *f.HumPct, "top-level used when nested is absent")
	assert.Nil(t, f.TempAvg)
}

func TestNormalizeNestedNullFallsBack(t *testing.T) {
	raw := mustParse(t, `{"device_id":"d1","temp_c":30,"sensor":{"temp_c":null}}`)

	f := Normalize(raw)

	assert.Equal(t, 30.0, *f.TempC)
}

func TestNormalizeUptime(t *testing.T) {
	f := Normalize(mustParse(t, `{"device_id":"d1","uptime_ms":12999}`))
	require.NotNil(t, f.UptimeS)
	assert.Equal(t, int64(12), *f.UptimeS)

	f = Normalize(mustParse(t, `{"device_id":"d1","uptime_s":7,"uptime_ms":99000}`))
	assert.Equal(t, int64(7), *f.UptimeS, "uptime_s wins over uptime_ms")

	f = Normalize(mustParse(t, `{"device_id":"d1"}`))
	assert.Nil(t, f.UptimeS)
}

func TestNormalizeDropsOutOfRangeIntegers(t *testing.T) {
	f := Normalize(mustParse(t, `{"device_id":"d","uptime_s":1e19,"ts_ms":1e19,"rssi":1e19}`))
	assert.Nil(t, f.UptimeS)
	assert.Nil(t, f.DeviceTSMs)
	assert.Nil(t, f.RSSI)

	f = Normalize(mustParse(t, `{"device_id":"d","uptime_s":1e19,"uptime_ms":5000,"ts_ms":-1,"rssi":-300}`))
	require.NotNil(t, f.UptimeS)
	assert.Equal(t, int64(5), *f.UptimeS, "falls back to uptime_ms")
	assert.Nil(t, f.DeviceTSMs)
	assert.Nil(t, f.RSSI)

	f = Normalize(mustParse(t, `{"device_id":"d","uptime_s":9007199254740991,"rssi":-255}`))
	assert.Equal(t, int64(MaxSafeInteger), *f.UptimeS)
	assert.Equal(t, MinRSSI, *f.RSSI)
}

func TestNormalizeStatusDefault(t *testing.T) {
	for _, body := range []string{
		`{"device_id":"d1"}`,
		`{"device_id":"d1","status":null}`,
		`{"device_id":"d1","status":""}`,
	} {
		assert.Equal(t, models.ReadingStatusOK, Normalize(mustParse(t, body)).Status, body)
	}

	f := Normalize(mustParse(t, `{"device_id":"d1","status":"REBOOTING"}`))
	assert.Equal(t, models.ReadingStatus("REBOOTING"), f.Status)
	assert.False(t, f.Status.Known())
}

func TestNormalizeNeverFails(t *testing.T) {
	f := Normalize(map[string]interface{}{
		"temp_c":   "hot",
		"rssi":     true,
		"fw":       12,
		"sensor":   "broken",
		"fail_pct": []interface{}{1},
	})
	assert.Nil(t, f.TempC)
	assert.Nil(t, f.RSSI)
	assert.Nil(t, f.FW)
	assert.Nil(t, f.FailPct)
	assert.Equal(t, models.ReadingStatusOK, f.Status)

	assert.Equal(t, models.ReadingStatusOK, Normalize(nil).Status)
}
