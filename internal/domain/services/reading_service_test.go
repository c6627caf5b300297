package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"telemetry-http-service/internal/domain/models"
	"telemetry-http-service/internal/error/code"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var queryNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func seededReadingService(t *testing.T) (*ReadingService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	ctx := context.Background()
	for _, ago := range []time.Duration{90 * time.Minute, 59 * time.Minute, 30 * time.Minute, time.Minute} {
		_, err := store.InsertReading(ctx, models.NewReading("dev-a", queryNow.Add(-ago), models.ReadingFields{Status: models.ReadingStatusOK}, nil))
		require.NoError(t, err)
	}
	_, err := store.InsertReading(ctx, models.NewReading("dev-b", queryNow, models.ReadingFields{Status: models.ReadingStatusInit}, nil))
	require.NoError(t, err)

	s := NewReadingService(store, time.Second, time.Minute)
	s.now = func() time.Time { return queryNow }
	return s, store
}

func TestLatest(t *testing.T) {
	s, _ := seededReadingService(t)

	r, err := s.Latest(context.Background(), "dev-a")
	require.NoError(t, err)
	assert.Equal(t, queryNow.Add(-time.Minute), r.CreatedAt)

	_, err = s.Latest(context.Background(), "dev-missing")
	assert.True(t, code.Is(err, code.NotFound), "got %v", err)
}

func TestLatestStoreError(t *testing.T) {
	s, store := seededReadingService(t)
	store.queryErr = errors.New("relation \"readings\" does not exist")

	_, err := s.Latest(context.Background(), "dev-a")
	e := code.AsError(err)
	assert.Equal(t, code.DBError, e.Kind)
	assert.NotContains(t, e.Message, "relation")
}

func TestRangeMinutes(t *testing.T) {
	s, store := seededReadingService(t)

	rows, err := s.Range(context.Background(), "dev-a", RangeSelector{Minutes: 60})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i].CreatedAt.After(rows[i-1].CreatedAt), "ascending order")
	}
	for _, r := range rows {
		assert.True(t, r.CreatedAt.After(queryNow.Add(-time.Hour)))
	}

	require.NotNil(t, store.lastQuery.After)
	assert.Equal(t, queryNow.Add(-time.Hour), *store.lastQuery.After)
	assert.Equal(t, MaxRangeRows, store.lastQuery.Limit)
}

func TestRangeHugeWindowStaysInThePast(t *testing.T) {
	s, store := seededReadingService(t)

	rows, err := s.Range(context.Background(), "dev-a", RangeSelector{Minutes: 200000000})
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	require.NotNil(t, store.lastQuery.After)
	assert.True(t, store.lastQuery.After.Before(queryNow))
	assert.Equal(t, queryNow.Add(-time.Duration(MaxRangeMinutes)*time.Minute), *store.lastQuery.After)
}

func TestRangeFromTo(t *testing.T) {
	s, _ := seededReadingService(t)
	from := queryNow.Add(-59 * time.Minute)
	to := queryNow.Add(-30 * time.Minute)

	rows, err := s.Range(context.Background(), "dev-a", RangeSelector{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, rows, 2, "both bounds are inclusive")

	rows, err = s.Range(context.Background(), "dev-a", RangeSelector{From: &from})
	require.NoError(t, err)
	assert.Len(t, rows, 3, "open-ended upper bound")
}

func TestRangeMissingSelectorSkipsStore(t *testing.T) {
	s, store := seededReadingService(t)

	_, err := s.Range(context.Background(), "dev-a", RangeSelector{})
	assert.True(t, code.Is(err, code.MissingParam))
	assert.Zero(t, store.rangeCalls)
}

func TestRangeEmptyIsNotNil(t *testing.T) {
	s, _ := seededReadingService(t)

	rows, err := s.Range(context.Background(), "dev-missing", RangeSelector{Minutes: 5})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestParseRangeSelector(t *testing.T) {
	sel, err := ParseRangeSelector("60", "2024-01-01T00:00:00Z", "")
	require.NoError(t, err)
	assert.Equal(t, 60, sel.Minutes)
	assert.Nil(t, sel.From, "minutes wins over from/to")

	sel, err = ParseRangeSelector("", "2024-06-01T10:00:00.5+02:00", "1717236000000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 500000000, time.UTC), *sel.From)
	assert.Equal(t, time.UnixMilli(1717236000000).UTC(), *sel.To)

	_, err = ParseRangeSelector("", "", "")
	assert.True(t, code.Is(err, code.MissingParam))

	_, err = ParseRangeSelector("", "", "2024-01-01T00:00:00Z")
	assert.True(t, code.Is(err, code.MissingParam), "to alone is not a selector")

	for _, bad := range []string{"0", "-5", "abc", "1.5"} {
		_, err = ParseRangeSelector(bad, "", "")
		assert.True(t, code.Is(err, code.InvalidParam), "minutes=%q", bad)
	}

	sel, err = ParseRangeSelector(strconv.Itoa(MaxRangeMinutes), "", "")
	require.NoError(t, err)
	assert.Equal(t, MaxRangeMinutes, sel.Minutes)

	_, err = ParseRangeSelector("200000000", "", "")
	assert.True(t, code.Is(err, code.InvalidParam), "window beyond the maximum")

	_, err = ParseRangeSelector("", "yesterday", "")
	assert.True(t, code.Is(err, code.InvalidParam))
}

func TestDevicesOnlineFlag(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	require.NoError(t, store.UpsertDevice(ctx, "dev-a", queryNow.Add(-30*time.Second)))
	require.NoError(t, store.UpsertDevice(ctx, "dev-b", queryNow.Add(-5*time.Minute)))

	s := NewReadingService(store, time.Second, time.Minute)
	s.now = func() time.Time { return queryNow }

	devices, err := s.Devices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.True(t, devices[0].Online)
	assert.False(t, devices[1].Online)
}
