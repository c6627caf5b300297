package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"telemetry-http-service/internal/domain/models"
	"telemetry-http-service/internal/error/code"
	"telemetry-http-service/internal/infrastructure/metrics"
)

// MaxRangeRows caps every range query regardless of window size.
const MaxRangeRows = 5000

// MaxRangeMinutes bounds the relative window to ten years.
const MaxRangeMinutes = 10 * 365 * 24 * 60

// InterfaceReadingService defines the dashboard query interface
type InterfaceReadingService interface {
	Latest(ctx context.Context, deviceID string) (*models.Reading, error)
	Range(ctx context.Context, deviceID string, sel RangeSelector) ([]models.Reading, error)
	Devices(ctx context.Context) ([]models.DeviceSummary, error)
}

// RangeSelector is either a relative window in minutes or absolute bounds.
// Minutes wins when both are set.
type RangeSelector struct {
	Minutes int
	From    *time.Time
	To      *time.Time
}

// ReadingService 提供面向看板的只读查询
type ReadingService struct {
	store            ReadingStore
	timeout          time.Duration
	offlineThreshold time.Duration
	now              func() time.Time
}

// NewReadingService 创建查询服务
func NewReadingService(store ReadingStore, timeout, offlineThreshold time.Duration) *ReadingService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ReadingService{
		store:            store,
		timeout:          timeout,
		offlineThreshold: offlineThreshold,
		now:              time.Now,
	}
}

// ParseRangeSelector reads the minutes/from/to query parameters. A "to"
// without "from" is ignored, so it alone yields MISSING_PARAM.
func ParseRangeSelector(minutes, from, to string) (RangeSelector, error) {
	var sel RangeSelector

	if minutes = strings.TrimSpace(minutes); minutes != "" {
		n, err := strconv.Atoi(minutes)
		if err != nil || n <= 0 {
			return sel, code.New(code.InvalidParam, "minutes must be a positive integer")
		}
		if n > MaxRangeMinutes {
			return sel, code.New(code.InvalidParam, fmt.Sprintf("minutes must be at most %d", MaxRangeMinutes))
		}
		sel.Minutes = n
		return sel, nil
	}

	if from = strings.TrimSpace(from); from == "" {
		return sel, code.New(code.MissingParam, "Either minutes or from is required")
	}
	t, err := parseTimeParam(from)
	if err != nil {
		return sel, code.New(code.InvalidParam, "from must be an RFC3339 time or unix milliseconds")
	}
	sel.From = &t

	if to = strings.TrimSpace(to); to != "" {
		t, err := parseTimeParam(to)
		if err != nil {
			return sel, code.New(code.InvalidParam, "to must be an RFC3339 time or unix milliseconds")
		}
		sel.To = &t
	}
	return sel, nil
}

func parseTimeParam(v string) (time.Time, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// 1 Latest returns the most recently created reading of deviceID.
func (s *ReadingService) Latest(ctx context.Context, deviceID string) (*models.Reading, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, code.New(code.MissingParam, "device_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reading, err := s.store.LatestReading(ctx, deviceID)
	if errors.Is(err, ErrNotFound) {
		metrics.QueryTotal.WithLabelValues("latest", "not_found").Inc()
		return nil, code.New(code.NotFound, "No readings found for this device")
	}
	if err != nil {
		metrics.QueryTotal.WithLabelValues("latest", "error").Inc()
		return nil, code.Wrap(code.DBError, err, "")
	}
	metrics.QueryTotal.WithLabelValues("latest", "ok").Inc()
	return reading, nil
}

// 2 Range returns readings of deviceID inside sel, oldest first, at most
// MaxRangeRows of them.
func (s *ReadingService) Range(ctx context.Context, deviceID string, sel RangeSelector) ([]models.Reading, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, code.New(code.MissingParam, "device_id is required")
	}

	q := RangeQuery{DeviceID: deviceID, Limit: MaxRangeRows}
	switch {
	case sel.Minutes > 0:
		if sel.Minutes > MaxRangeMinutes {
			sel.Minutes = MaxRangeMinutes
		}
		cutoff := s.now().UTC().Add(-time.Duration(sel.Minutes) * time.Minute)
		q.After = &cutoff
	case sel.From != nil:
		q.From = sel.From
		q.To = sel.To
	default:
		return nil, code.New(code.MissingParam, "Either minutes or from is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.store.ReadingsInRange(ctx, q)
	if err != nil {
		metrics.QueryTotal.WithLabelValues("range", "error").Inc()
		return nil, code.Wrap(code.DBError, err, "")
	}
	metrics.QueryTotal.WithLabelValues("range", "ok").Inc()
	if rows == nil {
		rows = []models.Reading{}
	}
	return rows, nil
}

// 3 Devices lists known devices with their online flag.
func (s *ReadingService) Devices(ctx context.Context) ([]models.DeviceSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		metrics.QueryTotal.WithLabelValues("devices", "error").Inc()
		return nil, code.Wrap(code.DBError, err, "")
	}
	metrics.QueryTotal.WithLabelValues("devices", "ok").Inc()

	now := s.now()
	out := make([]models.DeviceSummary, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.Summarize(now, s.offlineThreshold))
	}
	return out, nil
}
