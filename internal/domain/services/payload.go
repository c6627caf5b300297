package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"sync"

	"telemetry-http-service/internal/error/code"

	"github.com/go-playground/validator/v10"
)

// ReadingPayload is the typed view of an ingest body used for range checks.
// Type checks happen before it is filled, so every set pointer holds a value
// of the right kind.
type ReadingPayload struct {
	DeviceID string         `json:"device_id" validate:"required,notblank,max=64"`
	FW       *string        `json:"fw" validate:"omitempty,max=255"`
	TSMs     *float64       `json:"ts_ms" validate:"omitempty,gte=0,lte=9007199254740991"`
	UptimeS  *float64       `json:"uptime_s" validate:"omitempty,gte=0,lte=9007199254740991"`
	UptimeMS *float64       `json:"uptime_ms" validate:"omitempty,gte=0,lte=9007199254740991"`
	RSSI     *float64       `json:"rssi" validate:"omitempty,gte=-255,lte=255"`
	Status   *string        `json:"status" validate:"omitempty,max=255"`
	TempC    *float64       `json:"temp_c"`
	HumPct   *float64       `json:"hum_pct"`
	TempAvg  *float64       `json:"temp_avg"`
	HumAvg   *float64       `json:"hum_avg"`
	FailPct  *float64       `json:"fail_pct" validate:"omitempty,gte=0"`
	Health   *float64       `json:"health" validate:"omitempty,gte=0,lte=100"`
	Sensor   *SensorPayload `json:"sensor"`
}

// SensorPayload holds the nested sensor block some firmware sends.
type SensorPayload struct {
	TempC   *float64 `json:"temp_c"`
	HumPct  *float64 `json:"hum_pct"`
	TempAvg *float64 `json:"temp_avg"`
	HumAvg  *float64 `json:"hum_avg"`
}

type fieldKind int

const (
	kindNumber fieldKind = iota
	kindString
	kindObject
)

var payloadKinds = map[string]fieldKind{
	"device_id": kindString,
	"fw":        kindString,
	"status":    kindString,
	"ts_ms":     kindNumber,
	"uptime_s":  kindNumber,
	"uptime_ms": kindNumber,
	"rssi":      kindNumber,
	"temp_c":    kindNumber,
	"hum_pct":   kindNumber,
	"temp_avg":  kindNumber,
	"hum_avg":   kindNumber,
	"fail_pct":  kindNumber,
	"health":    kindNumber,
	"sensor":    kindObject,
}

var (
	payloadValidator     *validator.Validate
	payloadValidatorOnce sync.Once
)

func getPayloadValidator() *validator.Validate {
	payloadValidatorOnce.Do(func() {
		v := validator.New()
		// 使用json标签作为字段名，使错误信息与请求字段一致
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		payloadValidator = v
	})
	return payloadValidator
}

// FieldErrors maps a payload field to its validation messages.
type FieldErrors map[string][]string

func (fe FieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// ParsePayload decodes body into a generic object. Numbers are kept as
// json.Number so integer precision survives until normalization.
func ParsePayload(body []byte) (map[string]interface{}, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, code.New(code.InvalidJSON, "Request body is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, code.Wrap(code.InvalidJSON, err, "")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, code.New(code.InvalidJSON, "Unexpected data after JSON value")
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, code.WithDetails(code.InvalidPayload, "", map[string]interface{}{
			"formErrors":  []string{"expected a JSON object"},
			"fieldErrors": FieldErrors{},
		})
	}
	return obj, nil
}

// ValidatePayload checks field types and ranges of a decoded body, collecting
// every problem rather than stopping at the first one.
func ValidatePayload(raw map[string]interface{}) (*ReadingPayload, error) {
	errs := FieldErrors{}

	if _, present := raw["device_id"]; !present || raw["device_id"] == nil {
		errs.add("device_id", "is required")
	}

	names := make([]string, 0, len(payloadKinds))
	for name := range payloadKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		checkKind(errs, name, raw[name], payloadKinds[name])
	}
	if nested, ok := raw["sensor"].(map[string]interface{}); ok {
		for _, name := range sensorFields {
			checkKind(errs, "sensor."+name, nested[name], kindNumber)
		}
	}

	if len(errs) > 0 {
		return nil, invalidPayload(errs)
	}

	payload := buildPayload(raw)
	if err := getPayloadValidator().Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, code.Wrap(code.InternalError, err, "")
		}
		for _, fe := range verrs {
			errs.add(fieldPath(fe), validationMessage(fe))
		}
		return nil, invalidPayload(errs)
	}
	return payload, nil
}

func invalidPayload(errs FieldErrors) error {
	return code.WithDetails(code.InvalidPayload, "", map[string]interface{}{
		"fieldErrors": errs,
	})
}

// null is treated as absent for every field.
func checkKind(errs FieldErrors, name string, v interface{}, kind fieldKind) {
	if v == nil {
		return
	}
	switch kind {
	case kindNumber:
		if _, ok := toFloat(v); !ok {
			errs.add(name, "must be a number")
		}
	case kindString:
		if _, ok := v.(string); !ok {
			errs.add(name, "must be a string")
		}
	case kindObject:
		if _, ok := v.(map[string]interface{}); !ok {
			errs.add(name, "must be an object")
		}
	}
}

func buildPayload(raw map[string]interface{}) *ReadingPayload {
	p := &ReadingPayload{}
	p.DeviceID, _ = raw["device_id"].(string)
	p.FW = stringPtr(raw["fw"])
	p.Status = stringPtr(raw["status"])
	p.TSMs = floatPtr(raw["ts_ms"])
	p.UptimeS = floatPtr(raw["uptime_s"])
	p.UptimeMS = floatPtr(raw["uptime_ms"])
	p.RSSI = floatPtr(raw["rssi"])
	p.TempC = floatPtr(raw["temp_c"])
	p.HumPct = floatPtr(raw["hum_pct"])
	p.TempAvg = floatPtr(raw["temp_avg"])
	p.HumAvg = floatPtr(raw["hum_avg"])
	p.FailPct = floatPtr(raw["fail_pct"])
	p.Health = floatPtr(raw["health"])
	if nested, ok := raw["sensor"].(map[string]interface{}); ok {
		p.Sensor = &SensorPayload{
			TempC:   floatPtr(nested["temp_c"]),
			HumPct:  floatPtr(nested["hum_pct"]),
			TempAvg: floatPtr(nested["temp_avg"]),
			HumAvg:  floatPtr(nested["hum_avg"]),
		}
	}
	return p
}

func stringPtr(v interface{}) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func floatPtr(v interface{}) *float64 {
	if f, ok := toFloat(v); ok {
		return &f
	}
	return nil
}

// fieldPath turns "ReadingPayload.sensor.temp_c" into "sensor.temp_c".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be <= " + fe.Param()
	default:
		return "is invalid"
	}
}
