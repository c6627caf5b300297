package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"telemetry-http-service/internal/domain/models"
)

type fakeStore struct {
	mu       sync.Mutex
	readings []models.Reading
	devices  map[string]time.Time
	nextID   uint64

	upsertCalls int
	insertCalls int
	rangeCalls  int
	lastQuery   RangeQuery

	insertErr error
	upsertErr error
	queryErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{devices: make(map[string]time.Time)}
}

func (f *fakeStore) InsertReading(_ context.Context, r *models.Reading) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.nextID++
	r.ID = f.nextID
	f.readings = append(f.readings, *r)
	return f.nextID, nil
}

func (f *fakeStore) UpsertDevice(_ context.Context, deviceID string, seenAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.devices[deviceID] = seenAt
	return nil
}

func (f *fakeStore) LatestReading(_ context.Context, deviceID string) (*models.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var latest *models.Reading
	for i := range f.readings {
		r := f.readings[i]
		if r.DeviceID == deviceID && (latest == nil || r.CreatedAt.After(latest.CreatedAt)) {
			latest = &r
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (f *fakeStore) ReadingsInRange(_ context.Context, q RangeQuery) ([]models.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rangeCalls++
	f.lastQuery = q
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []models.Reading
	for _, r := range f.readings {
		if r.DeviceID != q.DeviceID {
			continue
		}
		if q.After != nil && !r.CreatedAt.After(*q.After) {
			continue
		}
		if q.From != nil && r.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && r.CreatedAt.After(*q.To) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeStore) ListDevices(_ context.Context) ([]models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := make([]models.Device, 0, len(f.devices))
	for id, seen := range f.devices {
		out = append(out, models.Device{DeviceID: id, LastSeenAt: seen})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (f *fakeStore) snapshot() (readings []models.Reading, upserts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Reading(nil), f.readings...), f.upsertCalls
}

// countingLimiter records calls and answers from a fixed script.
type countingLimiter struct {
	mu    sync.Mutex
	calls []string
	allow bool
}

func (l *countingLimiter) Allow(_ context.Context, deviceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, deviceID)
	return l.allow
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []uint64
	err       error
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(_ context.Context, r *models.Reading) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, r.ID)
	return p.err
}

func (p *recordingPublisher) ids() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint64(nil), p.published...)
}

// steppingClock advances by step on every call.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *steppingClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
