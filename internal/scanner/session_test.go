package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamezone/m/domain"
)

type fakeCamera struct {
	mu       sync.Mutex
	startErr error
	alive    bool
	starts   int
	stops    int
}

func (c *fakeCamera) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	if c.startErr != nil {
		return c.startErr
	}
	c.alive = true
	return nil
}

func (c *fakeCamera) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

func (c *fakeCamera) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	c.alive = false
}

type fakeDecoder struct {
	mu       sync.Mutex
	starts   int
	stops    int
	onDetect func(code string)
}

func (d *fakeDecoder) Start(onDetect func(code string)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.starts++
	d.onDetect = onDetect
	return nil
}

func (d *fakeDecoder) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
}

func (d *fakeDecoder) detect(code string) {
	d.mu.Lock()
	fn := d.onDetect
	d.mu.Unlock()
	if fn != nil {
		fn(code)
	}
}

// fakeTimers collects scheduled transitions so tests fire them explicitly.
type fakeTimers struct {
	pending []func()
}

func (f *fakeTimers) schedule(d time.Duration, fn func()) {
	f.pending = append(f.pending, fn)
}

func (f *fakeTimers) fire() {
	pending := f.pending
	f.pending = nil
	for _, fn := range pending {
		fn()
	}
}

type harness struct {
	session  *Session
	camera   *fakeCamera
	decoder  *fakeDecoder
	timers   *fakeTimers
	clock    time.Time
	operator bool
	carted   []domain.ProductRecord
	shown    []domain.ProductRecord
	missed   []string
	statuses []string
}

func newHarness(t *testing.T, catalog map[string]domain.ProductRecord) *harness {
	t.Helper()
	h := &harness{
		camera:  &fakeCamera{},
		decoder: &fakeDecoder{},
		timers:  &fakeTimers{},
		clock:   time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local),
	}
	cfg := Config{
		MinCodeLength:        6,
		Cooldown:             300 * time.Millisecond,
		CameraSettleDelay:    time.Second,
		ResolvedStopDelay:    time.Second,
		NotFoundRetryDelay:   300 * time.Millisecond,
		CameraErrorStopDelay: 3 * time.Second,
		RestartDelay:         500 * time.Millisecond,
	}
	deps := Deps{
		Camera:  h.camera,
		Decoder: h.decoder,
		Resolver: func(code string) (domain.ProductRecord, bool) {
			rec, ok := catalog[code]
			return rec, ok
		},
		Operator:  func() bool { return h.operator },
		AddToCart: func(rec domain.ProductRecord) { h.carted = append(h.carted, rec) },
		Display:   func(rec domain.ProductRecord) { h.shown = append(h.shown, rec) },
		NotFound:  func(code string) { h.missed = append(h.missed, code) },
		Status:    func(msg string) { h.statuses = append(h.statuses, msg) },
	}
	h.session = NewSession(cfg, deps)
	h.session.now = func() time.Time { return h.clock }
	h.session.schedule = h.timers.schedule
	return h
}

func (h *harness) startScanning(t *testing.T) {
	t.Helper()
	require.NoError(t, h.session.Start(context.Background()))
	require.Equal(t, CameraStarting, h.session.State())
	h.timers.fire() // settle delay -> decoder start
	require.Equal(t, Scanning, h.session.State())
}

func TestSessionResolvedOperatorPath(t *testing.T) {
	h := newHarness(t, map[string]domain.ProductRecord{
		"711719998653": {Name: "Spider-Man", Barcode: "711719998653"},
	})
	h.operator = true
	h.startScanning(t)

	h.decoder.detect("711719998653")

	assert.Equal(t, Resolved, h.session.State())
	require.Len(t, h.carted, 1)
	assert.Equal(t, "Spider-Man", h.carted[0].Name)
	assert.Empty(t, h.shown)

	// The resolved-stop timer ends the session.
	h.timers.fire()
	assert.Equal(t, Idle, h.session.State())
}

func TestSessionResolvedClientPathDisplays(t *testing.T) {
	h := newHarness(t, map[string]domain.ProductRecord{
		"711719998653": {Name: "Spider-Man", Barcode: "711719998653"},
	})
	h.startScanning(t)

	h.decoder.detect("711719998653")

	require.Len(t, h.shown, 1)
	assert.Empty(t, h.carted)
}

func TestSessionShortCodeIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.startScanning(t)

	h.decoder.detect("12345")

	assert.Equal(t, Scanning, h.session.State())
	assert.Empty(t, h.missed)
}

func TestSessionCooldownAndDuplicateSuppression(t *testing.T) {
	h := newHarness(t, nil)
	h.startScanning(t)

	h.decoder.detect("600000000001")
	require.Equal(t, []string{"600000000001"}, h.missed)
	assert.Equal(t, NotFound, h.session.State())

	// Retry timer resumes scanning; lastScan survives the restart.
	h.timers.fire()
	require.Equal(t, Scanning, h.session.State())

	// A different code inside the cooldown window is ignored.
	h.clock = h.clock.Add(100 * time.Millisecond)
	h.decoder.detect("600000000002")
	assert.Equal(t, Scanning, h.session.State())
	assert.Len(t, h.missed, 1)

	// Past the cooldown it is accepted.
	h.clock = h.clock.Add(300 * time.Millisecond)
	h.decoder.detect("600000000002")
	assert.Equal(t, []string{"600000000001", "600000000002"}, h.missed)
}

func TestSessionBusyDropsConcurrentCandidate(t *testing.T) {
	h := newHarness(t, nil)
	h.startScanning(t)

	h.decoder.detect("600000000001")
	// The retry timer has not fired; the session is suspended.
	h.clock = h.clock.Add(time.Second)
	h.decoder.detect("600000000099")

	assert.Len(t, h.missed, 1)
}

func TestSessionNotFoundRestartsDecoderOnly(t *testing.T) {
	h := newHarness(t, nil)
	h.startScanning(t)
	startsBefore := h.camera.starts

	h.decoder.detect("600000000001")
	h.timers.fire()

	assert.Equal(t, Scanning, h.session.State())
	assert.Equal(t, startsBefore, h.camera.starts)
	assert.Equal(t, 2, h.decoder.starts)
}

func TestSessionNotFoundFullRestartWhenCameraDead(t *testing.T) {
	h := newHarness(t, nil)
	h.startScanning(t)

	h.decoder.detect("600000000001")
	h.camera.mu.Lock()
	h.camera.alive = false
	h.camera.mu.Unlock()

	h.timers.fire() // retry timer -> camera dead -> schedules full restart
	assert.Equal(t, CameraStarting, h.session.State())

	h.timers.fire() // restart delay -> camera start, schedules decoder
	h.timers.fire() // settle delay -> decoder start
	assert.Equal(t, Scanning, h.session.State())
	assert.Equal(t, 2, h.camera.starts)
}

func TestSessionCameraErrorMessageAndAutoStop(t *testing.T) {
	h := newHarness(t, nil)
	h.camera.startErr = ErrCameraDenied

	err := h.session.Start(context.Background())
	require.ErrorIs(t, err, ErrCameraDenied)
	assert.Contains(t, h.statuses, CameraMessage(ErrCameraDenied))

	// The error-stop timer returns the session to idle.
	h.timers.fire()
	assert.Equal(t, Idle, h.session.State())
}

func TestSessionStartWhileRunning(t *testing.T) {
	h := newHarness(t, nil)
	h.startScanning(t)

	assert.ErrorIs(t, h.session.Start(context.Background()), ErrAlreadyRunning)
}

func TestSessionStopInvalidatesPendingTransitions(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.session.Start(context.Background()))
	// Settle timer is pending; stop before it fires.
	h.session.Stop()
	h.timers.fire()

	assert.Equal(t, Idle, h.session.State())
	assert.Equal(t, 0, h.decoder.starts)
}

func TestSessionStopIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.startScanning(t)

	h.session.Stop()
	h.session.Stop()
	assert.Equal(t, Idle, h.session.State())

	// A fresh session can start after a stop.
	require.NoError(t, h.session.Start(context.Background()))
	h.timers.fire()
	assert.Equal(t, Scanning, h.session.State())
}

func TestFeedDropsWhenStopped(t *testing.T) {
	var feed Feed
	assert.False(t, feed.Push("600000000001"))

	var got string
	require.NoError(t, feed.Start(func(code string) { got = code }))
	assert.True(t, feed.Push("600000000001"))
	assert.Equal(t, "600000000001", got)

	feed.Stop()
	assert.False(t, feed.Push("600000000002"))
}

func TestRemoteCameraLifecycle(t *testing.T) {
	var cam RemoteCamera
	assert.False(t, cam.Alive())
	require.NoError(t, cam.Start(context.Background()))
	assert.True(t, cam.Alive())
	cam.Stop()
	assert.False(t, cam.Alive())
}
