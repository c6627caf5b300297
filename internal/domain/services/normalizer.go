package services

import (
	"encoding/json"
	"math"
	"strings"

	"telemetry-http-service/internal/domain/models"
)

// sensorFields may be sent either top-level or nested under "sensor".
// The nested value wins when both are present.
var sensorFields = []string{"temp_c", "hum_pct", "temp_avg", "hum_avg"}

// Integer columns only take values inside these bounds. MaxSafeInteger is
// 2^53-1, the largest integer a JSON number carries exactly.
const (
	MaxSafeInteger = 1<<53 - 1
	MaxRSSI        = 255
	MinRSSI        = -255
)

// Normalize maps a decoded payload onto the canonical reading fields. It
// never fails: missing, null or mistyped values become nil or the default.
func Normalize(raw map[string]interface{}) models.ReadingFields {
	var f models.ReadingFields
	if raw == nil {
		f.Status = models.ReadingStatusOK
		return f
	}

	nested, _ := raw["sensor"].(map[string]interface{})
	sensors := make(map[string]*float64, len(sensorFields))
	for _, name := range sensorFields {
		if v, ok := toFloat(nested[name]); ok {
			sensors[name] = &v
			continue
		}
		if v, ok := toFloat(raw[name]); ok {
			sensors[name] = &v
		}
	}
	f.TempC = sensors["temp_c"]
	f.HumPct = sensors["hum_pct"]
	f.TempAvg = sensors["temp_avg"]
	f.HumAvg = sensors["hum_avg"]

	if v, ok := toFloat(raw["ts_ms"]); ok && v >= 0 && v <= MaxSafeInteger {
		ts := int64(math.Floor(v))
		f.DeviceTSMs = &ts
	}

	if v, ok := toFloat(raw["rssi"]); ok && v >= MinRSSI && v <= MaxRSSI {
		rssi := int(math.Round(v))
		f.RSSI = &rssi
	}

	f.UptimeS = normalizeUptime(raw)

	if s, ok := raw["fw"].(string); ok {
		f.FW = &s
	}

	f.Status = models.ReadingStatusOK
	if s, ok := raw["status"].(string); ok && strings.TrimSpace(s) != "" {
		f.Status = models.ReadingStatus(s)
	}

	if v, ok := toFloat(raw["health"]); ok {
		f.Health = &v
	}

	if v, ok := toFloat(raw["fail_pct"]); ok {
		pct := NormalizeFailPct(v)
		f.FailPct = &pct
	}

	return f
}

// NormalizeFailPct rescales fractions in (0, 1] to percentages. Zero and
// values above one are already percentages.
func NormalizeFailPct(v float64) float64 {
	if v > 0 && v <= 1 {
		return v * 100
	}
	return v
}

// uptime_s wins over uptime_ms; milliseconds are floored to whole seconds.
// Out-of-range values count as absent.
func normalizeUptime(raw map[string]interface{}) *int64 {
	if v, ok := toFloat(raw["uptime_s"]); ok && v >= 0 && v <= MaxSafeInteger {
		s := int64(math.Floor(v))
		return &s
	}
	if v, ok := toFloat(raw["uptime_ms"]); ok && v >= 0 && v <= MaxSafeInteger {
		s := int64(math.Floor(v / 1000))
		return &s
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
