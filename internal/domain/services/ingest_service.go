package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"telemetry-http-service/internal/domain/models"
	"telemetry-http-service/internal/error/code"
	"telemetry-http-service/internal/infrastructure/metrics"
	Logger "telemetry-http-service/pkg/logger"
)

// InterfaceIngestService defines the ingestion pipeline interface
type InterfaceIngestService interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
	Drain(ctx context.Context) error
}

// IngestRequest is one device submission as received from the transport.
type IngestRequest struct {
	Body      []byte
	DeviceKey string
}

// IngestResult is returned for an accepted reading.
type IngestResult struct {
	InsertedID uint64
	Reading    *models.Reading
}

// IngestOptions tunes the pipeline. Zero values pick the defaults.
type IngestOptions struct {
	Timeout     time.Duration // per store operation, default 5s
	AsyncUpsert bool          // dispatch the device upsert without waiting
	Publisher   ReadingPublisher
	Clock       *CreationClock
}

// IngestService runs parse, validate, rate-limit, authenticate, normalize
// and persist in that order. The first failing step ends the call.
type IngestService struct {
	store     ReadingStore
	keys      InterfaceDeviceKeyService
	limiter   InterfaceRateLimiter
	publisher ReadingPublisher
	clock     *CreationClock
	timeout   time.Duration
	async     bool

	wg    sync.WaitGroup
	steps []ingestStep
}

// ingestRun carries the state one call accumulates across steps.
type ingestRun struct {
	req     IngestRequest
	raw     map[string]interface{}
	payload *ReadingPayload
	fields  models.ReadingFields
	result  IngestResult
}

type ingestStep struct {
	name string
	run  func(ctx context.Context, r *ingestRun) error
}

// NewIngestService 创建数据采集服务
func NewIngestService(store ReadingStore, keys InterfaceDeviceKeyService, limiter InterfaceRateLimiter, opts IngestOptions) *IngestService {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = NewCreationClock(nil)
	}

	s := &IngestService{
		store:     store,
		keys:      keys,
		limiter:   limiter,
		publisher: opts.Publisher,
		clock:     opts.Clock,
		timeout:   opts.Timeout,
		async:     opts.AsyncUpsert,
	}
	s.steps = []ingestStep{
		{"parse", s.parse},
		{"validate", s.validate},
		{"rate_limit", s.rateLimit},
		{"authenticate", s.authenticate},
		{"normalize", s.normalize},
		{"persist", s.persist},
	}
	return s
}

// 1 Ingest runs the pipeline for one request.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	start := time.Now()
	defer func() { metrics.IngestDuration.Observe(time.Since(start).Seconds()) }()

	run := &ingestRun{req: req}
	for _, step := range s.steps {
		if err := step.run(ctx, run); err != nil {
			e := code.AsError(err)
			metrics.IngestTotal.WithLabelValues(strings.ToLower(string(e.Kind))).Inc()
			Logger.Debug("ingest rejected at %s: %v", step.name, e)
			return nil, e
		}
	}

	metrics.IngestTotal.WithLabelValues("ok").Inc()
	return &run.result, nil
}

// 2 Drain waits for background upserts and publishes to finish.
func (s *IngestService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *IngestService) parse(_ context.Context, r *ingestRun) error {
	raw, err := ParsePayload(r.req.Body)
	if err != nil {
		return err
	}
	r.raw = raw
	return nil
}

func (s *IngestService) validate(_ context.Context, r *ingestRun) error {
	payload, err := ValidatePayload(r.raw)
	if err != nil {
		return err
	}
	r.payload = payload
	return nil
}

// Rate limiting runs before authentication, keyed on the device_id the
// caller claims. A forger can therefore burn a real device's slot.
func (s *IngestService) rateLimit(ctx context.Context, r *ingestRun) error {
	if !s.limiter.Allow(ctx, r.payload.DeviceID) {
		return code.New(code.RateLimited, "")
	}
	return nil
}

func (s *IngestService) authenticate(_ context.Context, r *ingestRun) error {
	if !s.keys.Verify(r.payload.DeviceID, r.req.DeviceKey) {
		Logger.Warning("device %s failed authentication", r.payload.DeviceID)
		return code.New(code.Unauthorized, "")
	}
	return nil
}

func (s *IngestService) normalize(_ context.Context, r *ingestRun) error {
	r.fields = Normalize(r.raw)
	return nil
}

func (s *IngestService) persist(ctx context.Context, r *ingestRun) error {
	deviceID := r.payload.DeviceID
	createdAt := s.clock.Next()
	reading := models.NewReading(deviceID, createdAt, r.fields, r.req.Body)

	if s.async {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.upsertDevice(context.WithoutCancel(ctx), deviceID, createdAt)
		}()
	} else {
		s.upsertDevice(ctx, deviceID, createdAt)
	}

	insertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	id, err := s.store.InsertReading(insertCtx, reading)
	if err != nil {
		return code.Wrap(code.DBError, err, "Failed to save reading")
	}
	reading.ID = id

	r.result = IngestResult{InsertedID: id, Reading: reading}
	s.publish(ctx, reading)
	return nil
}

// A failed upsert is logged and counted; the reading insert still decides
// the outcome.
func (s *IngestService) upsertDevice(ctx context.Context, deviceID string, seenAt time.Time) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.UpsertDevice(ctx, deviceID, seenAt); err != nil {
		metrics.DeviceUpsertFailures.Inc()
		Logger.Error("device upsert failed for %s: %v", deviceID, err)
	}
}

func (s *IngestService) publish(ctx context.Context, reading *models.Reading) {
	if s.publisher == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		if err := s.publisher.Publish(pctx, reading); err != nil {
			Logger.Error("publish reading %d failed: %v", reading.ID, err)
		}
	}()
}

// CreationClock hands out server creation times that strictly increase in
// call order, at microsecond resolution to match the stored precision.
type CreationClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewCreationClock returns a clock reading now, or time.Now when nil.
func NewCreationClock(now func() time.Time) *CreationClock {
	if now == nil {
		now = time.Now
	}
	return &CreationClock{now: now}
}

// Next returns a timestamp later than every previous one.
func (c *CreationClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
