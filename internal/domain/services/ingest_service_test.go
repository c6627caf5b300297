package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"telemetry-http-service/internal/error/code"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = `{"device_id":"esp32-lab-01","ts_ms":1718000000123,"uptime_ms":65432,"rssi":-61,
	"temp_c":22.5,"sensor":{"temp_c":23.25,"hum_pct":48},"fail_pct":0.5,"health":99,"fw":"v1.2.0"}`

type ingestFixture struct {
	store     *fakeStore
	clock     *manualClock
	limiter   *MemoryRateLimiter
	publisher *recordingPublisher
	service   *IngestService
}

func newIngestFixture(t *testing.T, async bool) *ingestFixture {
	t.Helper()
	f := &ingestFixture{
		store:     newFakeStore(),
		clock:     &manualClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		publisher: &recordingPublisher{},
	}
	f.limiter = NewMemoryRateLimiter(2*time.Second, f.clock.Now)
	keys := NewDeviceKeyDirectory(`{"esp32-lab-01":"secret-123"}`, "")
	f.service = NewIngestService(f.store, keys, f.limiter, IngestOptions{
		Timeout:     time.Second,
		AsyncUpsert: async,
		Publisher:   f.publisher,
		Clock:       NewCreationClock(f.clock.Now),
	})
	return f
}

func (f *ingestFixture) ingest(body, key string) (*IngestResult, error) {
	return f.service.Ingest(context.Background(), IngestRequest{Body: []byte(body), DeviceKey: key})
}

func drain(t *testing.T, s *IngestService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Drain(ctx))
}

func TestIngestStoresNormalizedReading(t *testing.T) {
	f := newIngestFixture(t, false)

	res, err := f.ingest(validBody, "secret-123")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.InsertedID)
	drain(t, f.service)

	readings, upserts := f.store.snapshot()
	require.Len(t, readings, 1)
	assert.Equal(t, 1, upserts)

	stored := readings[0]
	assert.Equal(t, "esp32-lab-01", stored.DeviceID)
	assert.Equal(t, Normalize(mustParse(t, validBody)), stored.Fields())
	assert.Equal(t, 23.25, *stored.TempC)
	assert.Equal(t, int64(65), *stored.UptimeS)
	assert.InDelta(t, 50.0, *stored.FailPct, 1e-9)
	assert.JSONEq(t, validBody, string(stored.RawJSON))
	assert.Equal(t, f.clock.Now(), stored.CreatedAt)
	assert.Equal(t, stored.CreatedAt, f.store.devices["esp32-lab-01"])

	assert.Equal(t, []uint64{1}, f.publisher.ids())
}

func TestIngestFailureKinds(t *testing.T) {
	cases := []struct {
		name string
		body string
		key  string
		kind code.Kind
	}{
		{"malformed json", `{"device_id":`, "secret-123", code.InvalidJSON},
		{"schema", `{"device_id":"esp32-lab-01","health":200}`, "secret-123", code.InvalidPayload},
		{"missing key", `{"device_id":"esp32-lab-01"}`, "", code.Unauthorized},
		{"unknown device", `{"device_id":"other"}`, "secret-123", code.Unauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newIngestFixture(t, false)
			_, err := f.ingest(tc.body, tc.key)
			assert.True(t, code.Is(err, tc.kind), "got %v", err)

			readings, upserts := f.store.snapshot()
			assert.Empty(t, readings)
			assert.Zero(t, upserts)
			assert.Empty(t, f.publisher.ids())
		})
	}
}

func TestIngestRateLimitRunsBeforeAuth(t *testing.T) {
	f := newIngestFixture(t, false)

	_, err := f.ingest(`{"device_id":"esp32-lab-01"}`, "wrong")
	require.True(t, code.Is(err, code.Unauthorized))

	// the forged request used up the slot, so the genuine one is throttled
	_, err = f.ingest(validBody, "secret-123")
	assert.True(t, code.Is(err, code.RateLimited), "got %v", err)

	f.clock.Advance(2 * time.Second)
	_, err = f.ingest(validBody, "secret-123")
	assert.NoError(t, err)
}

func TestIngestInvalidPayloadDoesNotConsumeSlot(t *testing.T) {
	f := newIngestFixture(t, false)
	limiter := &countingLimiter{allow: true}
	f.service.limiter = limiter

	_, err := f.ingest(`{"device_id":"esp32-lab-01","temp_c":"x"}`, "secret-123")
	require.True(t, code.Is(err, code.InvalidPayload))
	_, err = f.ingest(`not json`, "secret-123")
	require.True(t, code.Is(err, code.InvalidJSON))

	assert.Empty(t, limiter.calls)
}

func TestIngestInsertFailure(t *testing.T) {
	f := newIngestFixture(t, false)
	f.store.insertErr = errors.New("connection reset by peer")

	_, err := f.ingest(validBody, "secret-123")
	require.Error(t, err)
	e := code.AsError(err)
	assert.Equal(t, code.DBError, e.Kind)
	assert.Equal(t, "Failed to save reading", e.Message)
	assert.NotContains(t, e.Message, "connection reset")

	drain(t, f.service)
	_, upserts := f.store.snapshot()
	assert.Equal(t, 1, upserts, "device upsert is still attempted exactly once")
	assert.Empty(t, f.publisher.ids())
}

func TestIngestToleratesUpsertFailure(t *testing.T) {
	for _, async := range []bool{false, true} {
		f := newIngestFixture(t, async)
		f.store.upsertErr = errors.New("deadlock detected")

		res, err := f.ingest(validBody, "secret-123")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), res.InsertedID)
		drain(t, f.service)

		readings, upserts := f.store.snapshot()
		assert.Len(t, readings, 1)
		assert.Equal(t, 1, upserts)
	}
}

func TestIngestAsyncUpsertCompletesOnDrain(t *testing.T) {
	f := newIngestFixture(t, true)

	_, err := f.ingest(validBody, "secret-123")
	require.NoError(t, err)
	drain(t, f.service)

	devices, err := f.store.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "esp32-lab-01", devices[0].DeviceID)
}

func TestIngestPublisherErrorDoesNotFailRequest(t *testing.T) {
	f := newIngestFixture(t, false)
	f.publisher.err = errors.New("broker down")

	_, err := f.ingest(validBody, "secret-123")
	require.NoError(t, err)
	drain(t, f.service)
	assert.Equal(t, []uint64{1}, f.publisher.ids())
}

func TestCreationClockIsStrictlyMonotonic(t *testing.T) {
	frozen := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewCreationClock(func() time.Time { return frozen })

	prev := clock.Next()
	assert.Equal(t, frozen, prev)
	for i := 0; i < 100; i++ {
		next := clock.Next()
		assert.True(t, next.After(prev))
		prev = next
	}

	backwards := &steppingClock{now: frozen, step: -time.Second}
	clock = NewCreationClock(backwards.Now)
	a, b := clock.Next(), clock.Next()
	assert.True(t, b.After(a), "a clock stepping back still yields increasing times")
}
