package services

import (
	"strings"
	"testing"

	"telemetry-http-service/internal/error/code"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldErrorsOf(t *testing.T, err error) FieldErrors {
	t.Helper()
	require.Error(t, err)
	e := code.AsError(err)
	require.Equal(t, code.InvalidPayload, e.Kind)
	details, ok := e.Details.(map[string]interface{})
	require.True(t, ok, "details should be a map, got %T", e.Details)
	fe, ok := details["fieldErrors"].(FieldErrors)
	require.True(t, ok)
	return fe
}

func TestParsePayload(t *testing.T) {
	_, err := ParsePayload([]byte(`{"device_id":`))
	assert.True(t, code.Is(err, code.InvalidJSON))

	_, err = ParsePayload([]byte("   "))
	assert.True(t, code.Is(err, code.InvalidJSON))

	_, err = ParsePayload([]byte(`{"device_id":"a"} {"device_id":"b"}`))
	assert.True(t, code.Is(err, code.InvalidJSON))

	_, err = ParsePayload([]byte(`[1,2,3]`))
	assert.True(t, code.Is(err, code.InvalidPayload))

	raw, err := ParsePayload([]byte(`{"device_id":"a","ts_ms":1718000000123}`))
	require.NoError(t, err)
	assert.Equal(t, "a", raw["device_id"])
}

func TestValidatePayloadAccepts(t *testing.T) {
	raw := mustParse(t, `{
		"device_id":"esp32-lab-01","fw":"v1","ts_ms":1,"uptime_s":0,"rssi":-70,
		"status":"INIT","temp_c":-12.5,"hum_pct":null,"fail_pct":0,"health":100,
		"sensor":{"temp_c":1,"hum_avg":null}
	}`)

	p, err := ValidatePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, "esp32-lab-01", p.DeviceID)
	assert.Nil(t, p.HumPct)
	require.NotNil(t, p.Sensor)
	assert.Equal(t, 1.0, *p.Sensor.TempC)
}

func TestValidatePayloadMissingDeviceID(t *testing.T) {
	for _, body := range []string{`{}`, `{"device_id":null}`, `{"device_id":""}`, `{"device_id":"   "}`} {
		_, err := ValidatePayload(mustParse(t, body))
		fe := fieldErrorsOf(t, err)
		assert.Equal(t, []string{"is required"}, fe["device_id"], body)
	}
}

func TestValidatePayloadCollectsTypeErrors(t *testing.T) {
	raw := mustParse(t, `{"device_id":7,"temp_c":"warm","fw":1.2,"sensor":{"hum_pct":"wet"}}`)

	_, err := ValidatePayload(raw)
	fe := fieldErrorsOf(t, err)

	assert.Equal(t, []string{"must be a string"}, fe["device_id"])
	assert.Equal(t, []string{"must be a number"}, fe["temp_c"])
	assert.Equal(t, []string{"must be a string"}, fe["fw"])
	assert.Equal(t, []string{"must be a number"}, fe["sensor.hum_pct"])

	_, err = ValidatePayload(mustParse(t, `{"device_id":"d","sensor":[1]}`))
	assert.Equal(t, []string{"must be an object"}, fieldErrorsOf(t, err)["sensor"])
}

func TestValidatePayloadRanges(t *testing.T) {
	_, err := ValidatePayload(mustParse(t, `{"device_id":"d","health":101,"fail_pct":-1,"uptime_s":-5}`))
	fe := fieldErrorsOf(t, err)

	assert.Equal(t, []string{"must be <= 100"}, fe["health"])
	assert.Equal(t, []string{"must be >= 0"}, fe["fail_pct"])
	assert.Equal(t, []string{"must be >= 0"}, fe["uptime_s"])

	long := strings.Repeat("x", 65)
	_, err = ValidatePayload(mustParse(t, `{"device_id":"`+long+`"}`))
	assert.Equal(t, []string{"must be at most 64 characters"}, fieldErrorsOf(t, err)["device_id"])
}

func TestValidatePayloadIntegerBounds(t *testing.T) {
	_, err := ValidatePayload(mustParse(t, `{"device_id":"d","uptime_s":1e19,"uptime_ms":1e19,"ts_ms":1e19,"rssi":1e19}`))
	fe := fieldErrorsOf(t, err)

	assert.Equal(t, []string{"must be <= 9007199254740991"}, fe["uptime_s"])
	assert.Equal(t, []string{"must be <= 9007199254740991"}, fe["uptime_ms"])
	assert.Equal(t, []string{"must be <= 9007199254740991"}, fe["ts_ms"])
	assert.Equal(t, []string{"must be <= 255"}, fe["rssi"])

	_, err = ValidatePayload(mustParse(t, `{"device_id":"d","rssi":-256}`))
	assert.Equal(t, []string{"must be >= -255"}, fieldErrorsOf(t, err)["rssi"])

	_, err = ValidatePayload(mustParse(t, `{"device_id":"d","uptime_s":9007199254740991,"rssi":-255}`))
	assert.NoError(t, err)
}

func TestValidatePayloadLongStatusPassesThrough(t *testing.T) {
	status := strings.Repeat("S", 200)
	p, err := ValidatePayload(mustParse(t, `{"device_id":"d","status":"`+status+`"}`))
	require.NoError(t, err)
	assert.Equal(t, status, *p.Status)

	_, err = ValidatePayload(mustParse(t, `{"device_id":"d","status":"`+strings.Repeat("S", 256)+`"}`))
	assert.Equal(t, []string{"must be at most 255 characters"}, fieldErrorsOf(t, err)["status"])
}
