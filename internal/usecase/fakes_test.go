package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"camclip/internal/domain"
	"camclip/internal/ports"
	"camclip/internal/profile"
)

type harness struct {
	session  *Session
	capture  *fakeCapture
	encoders *fakeEncoderFactory
	assets   *fakeAssetStore
	surface  *fakeSurface
	events   *fakeEventSink
	clock    *manualClock
	logs     *observer.ObservedLogs
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	h := &harness{
		capture:  &fakeCapture{stream: &fakeStream{id: "stream-1"}},
		encoders: &fakeEncoderFactory{},
		assets:   newFakeAssetStore(),
		surface:  &fakeSurface{},
		events:   &fakeEventSink{},
		clock:    &manualClock{},
		logs:     logs,
	}
	if cfg.Profile.Name == "" {
		p, err := profile.Lookup(profile.Standard)
		if err != nil {
			t.Fatalf("lookup profile: %v", err)
		}
		cfg.Profile = p
	}
	h.session = NewSession(h.capture, h.encoders, h.assets, h.surface, h.events, h.clock, zap.New(core), cfg)
	return h
}

func (h *harness) init(t *testing.T, userAgent string) {
	t.Helper()
	if err := h.session.Init(context.Background(), userAgent); err != nil {
		t.Fatalf("init failed: %v", err)
	}
}

func (h *harness) start(t *testing.T) *fakeEncoder {
	t.Helper()
	encoder := newFakeEncoder()
	h.encoders.add(encoder)
	if err := h.session.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return encoder
}

// record runs a full start/emit/stop cycle and leaves the session Finished.
func (h *harness) record(t *testing.T, chunks ...[]byte) *fakeEncoder {
	t.Helper()
	encoder := h.start(t)
	for _, chunk := range chunks {
		encoder.emit(chunk)
	}
	if err := h.session.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	return encoder
}

type fakeCapture struct {
	mu          sync.Mutex
	stream      *fakeStream
	err         error
	calls       int
	constraints []ports.CaptureConstraints
	// gate, when set, blocks Acquire until it is closed.
	gate chan struct{}
}

func (f *fakeCapture) acquisitions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCapture) Acquire(_ context.Context, constraints ports.CaptureConstraints) (ports.CaptureStream, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.constraints = append(f.constraints, constraints)
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

type fakeStream struct {
	mu         sync.Mutex
	id         string
	closeCalls int
}

func (f *fakeStream) ID() string { return f.id }

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

type fakeEncoderFactory struct {
	mu       sync.Mutex
	encoders []*fakeEncoder
	err      error
	calls    int
	opts     []ports.EncoderOptions
}

func (f *fakeEncoderFactory) add(encoder *fakeEncoder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.encoders = append(f.encoders, encoder)
}

func (f *fakeEncoderFactory) NewEncoder(_ ports.CaptureStream, opts ports.EncoderOptions) (ports.Encoder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.encoders) {
		return nil, errors.New("no encoder configured")
	}
	encoder := f.encoders[f.calls]
	f.calls++
	return encoder, nil
}

func (f *fakeEncoderFactory) lastOptions() ports.EncoderOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.opts) == 0 {
		return ports.EncoderOptions{}
	}
	return f.opts[len(f.opts)-1]
}

type fakeEncoder struct {
	mu        sync.Mutex
	data      chan []byte
	startErr  error
	stopErr   error
	err       error
	started   bool
	stopCalls int
	closed    bool
	// hang keeps Data open after Stop until finish is called.
	hang bool
	// startGate, when set, blocks Start until it is closed.
	startGate chan struct{}
}

func newFakeEncoder() *fakeEncoder {
	return &fakeEncoder{data: make(chan []byte, 256)}
}

func (f *fakeEncoder) Start() error {
	if f.startGate != nil {
		<-f.startGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeEncoder) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	if !f.closed && !f.hang {
		close(f.data)
		f.closed = true
	}
	return f.stopErr
}

func (f *fakeEncoder) Data() <-chan []byte { return f.data }

func (f *fakeEncoder) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeEncoder) emit(chunk []byte) {
	f.data <- chunk
}

// finish closes Data for an encoder created with hang set.
func (f *fakeEncoder) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		close(f.data)
		f.closed = true
	}
}

func (f *fakeEncoder) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakeAssetStore struct {
	mu        sync.Mutex
	next      int
	published map[domain.AssetRef]domain.Asset
	revoked   []domain.AssetRef
	err       error
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{published: map[domain.AssetRef]domain.Asset{}}
}

func (f *fakeAssetStore) Publish(asset domain.Asset) (domain.AssetRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.next++
	ref := domain.AssetRef(fmt.Sprintf("blob:test-%d", f.next))
	f.published[ref] = asset
	return ref, nil
}

func (f *fakeAssetStore) Revoke(ref domain.AssetRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.published, ref)
	f.revoked = append(f.revoked, ref)
}

func (f *fakeAssetStore) live() map[domain.AssetRef]domain.Asset {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[domain.AssetRef]domain.Asset, len(f.published))
	for ref, asset := range f.published {
		out[ref] = asset
	}
	return out
}

func (f *fakeAssetStore) revokedRefs() []domain.AssetRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AssetRef, len(f.revoked))
	copy(out, f.revoked)
	return out
}

type fakeSurface struct {
	mu      sync.Mutex
	views   []domain.SurfaceView
	plays   []domain.SurfaceView
	playErr error
}

func (f *fakeSurface) Show(view domain.SurfaceView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, view)
}

func (f *fakeSurface) Play(view domain.SurfaceView) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, view)
	return f.playErr
}

// last returns the most recent view shown on surface.
func (f *fakeSurface) last(surface string) (domain.SurfaceView, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.views) - 1; i >= 0; i-- {
		if f.views[i].Surface == surface {
			return f.views[i], true
		}
	}
	return domain.SurfaceView{}, false
}

func (f *fakeSurface) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plays)
}

// manualClock fires ticks only when the test calls tick.
type manualClock struct {
	mu     sync.Mutex
	fn     func()
	starts int
	stops  int
}

func (c *manualClock) Every(_ time.Duration, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	c.fn = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.stops++
			c.fn = nil
		})
	}
}

func (c *manualClock) tick() {
	c.mu.Lock()
	fn := c.fn
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *manualClock) active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fn != nil
}

type fakeEventSink struct {
	mu sync.Mutex

	states  []stateEvent
	ticks   []domain.Countdown
	submits []domain.SubmitResult
	errors  []errEvent
	notices []string
}

type stateEvent struct {
	state  domain.RecordingState
	reason domain.StateReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) SessionStateChanged(state domain.RecordingState, reason domain.StateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) CountdownTick(countdown domain.Countdown) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = append(f.ticks, countdown)
}

func (f *fakeEventSink) RecordingSubmitted(result domain.SubmitResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, result)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) Notify(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, message)
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotTicks() []domain.Countdown {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Countdown, len(f.ticks))
	copy(out, f.ticks)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) snapshotNotices() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.notices))
	copy(out, f.notices)
	return out
}

func (f *fakeEventSink) lastState() stateEvent {
	states := f.snapshotStates()
	if len(states) == 0 {
		return stateEvent{}
	}
	return states[len(states)-1]
}
