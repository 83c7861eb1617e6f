// Package scanner drives the barcode capture session: camera and decoder
// lifecycle, cooldown and duplicate suppression, and dispatch of resolved
// codes. The camera and decoder are injected capabilities, so the session is
// testable without real hardware.
package scanner

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"gamezone/m/domain"
	"gamezone/m/internal/metrics"
)

// State is the session's lifecycle phase.
type State int

// Session states.
const (
	Idle State = iota
	CameraStarting
	Scanning
	CandidateFound
	Resolved
	NotFound
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CameraStarting:
		return "camera-starting"
	case Scanning:
		return "scanning"
	case CandidateFound:
		return "candidate-found"
	case Resolved:
		return "resolved"
	case NotFound:
		return "not-found"
	}
	return "unknown"
}

// ErrAlreadyRunning reports a Start while a session is active.
var ErrAlreadyRunning = errors.New("scanner: session already running")

// Camera is the injected video capture capability.
type Camera interface {
	// Start acquires the stream. It blocks until the stream is live or fails.
	Start(ctx context.Context) error
	// Alive reports whether the acquired stream is still delivering frames.
	Alive() bool
	// Stop releases the stream. Stopping a stopped camera is a no-op.
	Stop()
}

// Decoder is the injected barcode decoding capability. Detections arrive
// unsolicited on the callback until Stop.
type Decoder interface {
	Start(onDetect func(code string)) error
	Stop()
}

// Config bounds the candidate checks and the fixed delays between phases.
type Config struct {
	MinCodeLength        int
	Cooldown             time.Duration
	CameraSettleDelay    time.Duration
	ResolvedStopDelay    time.Duration
	NotFoundRetryDelay   time.Duration
	CameraErrorStopDelay time.Duration
	RestartDelay         time.Duration
}

// Deps are the session's collaborators. Resolver and Operator are required;
// the remaining hooks may be nil.
type Deps struct {
	Camera  Camera
	Decoder Decoder

	// Resolver matches an accepted code against the catalog.
	Resolver func(code string) (domain.ProductRecord, bool)
	// Operator reports whether operator mode is active at dispatch time.
	Operator func() bool
	// AddToCart receives the match in operator mode.
	AddToCart func(rec domain.ProductRecord)
	// Display receives the match in client-facing mode.
	Display func(rec domain.ProductRecord)
	// NotFound receives accepted codes with no catalog match.
	NotFound func(code string)
	// Status receives user-facing status messages.
	Status func(message string)
}

// Session is the scan state machine. All transitions happen under one mutex;
// delayed transitions are generation-guarded so a Stop invalidates anything
// still pending.
type Session struct {
	cfg  Config
	deps Deps

	mu       sync.Mutex
	state    State
	gen      int
	busy     bool
	lastCode string
	lastScan time.Time
	ctx      context.Context

	now      func() time.Time
	schedule func(d time.Duration, fn func())
}

// NewSession builds a session around the injected capabilities.
func NewSession(cfg Config, deps Deps) *Session {
	s := &Session{cfg: cfg, deps: deps, now: time.Now}
	s.schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	return s
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start acquires the camera and, after a short settle delay, starts the
// decoder. Camera failures are classified into a user-facing message and the
// session auto-stops after a fixed delay.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.state = CameraStarting
	s.busy = false
	s.lastCode = ""
	s.lastScan = time.Time{}
	s.ctx = ctx
	gen := s.gen
	s.mu.Unlock()

	return s.startCamera(ctx, gen)
}

func (s *Session) startCamera(ctx context.Context, gen int) error {
	err := s.deps.Camera.Start(ctx)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		if err == nil {
			s.deps.Camera.Stop()
		}
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		s.status(CameraMessage(err))
		log.Printf("scanner: camera start failed: %v", err)
		s.schedule(s.cfg.CameraErrorStopDelay, func() { s.stopIfGen(gen) })
		return err
	}
	s.mu.Unlock()

	s.status("camera started, initializing decoder")
	// The decoder is unreliable against a stream that is not rendering yet,
	// so its start is sequenced after a settle delay.
	s.schedule(s.cfg.CameraSettleDelay, func() { s.startDecoder(gen) })
	return nil
}

func (s *Session) startDecoder(gen int) {
	s.mu.Lock()
	if s.gen != gen || (s.state != CameraStarting && s.state != NotFound) {
		s.mu.Unlock()
		return
	}
	s.state = Scanning
	s.busy = false
	s.mu.Unlock()

	if err := s.deps.Decoder.Start(func(code string) { s.handleDetection(code) }); err != nil {
		// Decoder init failure takes the lightweight restart path.
		log.Printf("scanner: decoder start failed: %v", err)
		s.status("decoder failed, restarting")
		s.scheduleRestart(gen)
		return
	}
	s.status("scanning")
}

// handleDetection applies the acceptance checks to an unsolicited candidate.
// Rejected candidates are ignored silently and scanning continues; the busy
// flag is flipped before any suspension so at most one candidate is ever in
// flight.
func (s *Session) handleDetection(code string) {
	now := s.now()

	s.mu.Lock()
	if s.state != Scanning || s.busy {
		s.mu.Unlock()
		metrics.ScansIgnored.Inc()
		return
	}
	if len(code) < s.cfg.MinCodeLength ||
		(!s.lastScan.IsZero() && now.Sub(s.lastScan) < s.cfg.Cooldown) ||
		code == s.lastCode {
		s.mu.Unlock()
		metrics.ScansIgnored.Inc()
		return
	}
	s.busy = true
	s.lastScan = now
	s.lastCode = code
	s.state = CandidateFound
	gen := s.gen
	s.mu.Unlock()

	metrics.ScansAccepted.Inc()
	// Decoder pauses during resolution; the camera stays live.
	s.deps.Decoder.Stop()
	s.status("code found: " + code)
	s.resolve(code, gen)
}

func (s *Session) resolve(code string, gen int) {
	rec, ok := s.deps.Resolver(code)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	if ok {
		s.state = Resolved
	} else {
		s.state = NotFound
	}
	s.mu.Unlock()

	if ok {
		metrics.ResolveHits.Inc()
		if s.deps.Operator != nil && s.deps.Operator() {
			if s.deps.AddToCart != nil {
				s.deps.AddToCart(rec)
			}
		} else if s.deps.Display != nil {
			s.deps.Display(rec)
		}
		s.status("match: " + rec.Name)
		// A successful scan ends the session; the UI moves on to the result.
		s.schedule(s.cfg.ResolvedStopDelay, func() { s.stopIfGen(gen) })
		return
	}

	metrics.ResolveMisses.Inc()
	if s.deps.NotFound != nil {
		s.deps.NotFound(code)
	}
	s.status("no match for " + code)
	s.scheduleRestart(gen)
}

// scheduleRestart resumes scanning after the retry delay: decoder-only when
// the camera stream is still alive, full camera restart otherwise.
func (s *Session) scheduleRestart(gen int) {
	s.schedule(s.cfg.NotFoundRetryDelay, func() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.busy = false
		s.lastCode = ""
		ctx := s.ctx
		s.mu.Unlock()

		if s.deps.Camera.Alive() {
			s.startDecoder(gen)
			return
		}

		log.Printf("scanner: camera track dead, full restart")
		s.deps.Decoder.Stop()
		s.deps.Camera.Stop()
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.state = CameraStarting
		s.mu.Unlock()
		s.schedule(s.cfg.RestartDelay, func() {
			if ctx == nil {
				ctx = context.Background()
			}
			_ = s.startCamera(ctx, gen)
		})
	})
}

// Stop releases the decoder and camera unconditionally. It is safe to call
// from any state and repeatedly; pending delayed transitions become stale.
func (s *Session) Stop() {
	s.mu.Lock()
	s.gen++
	alreadyIdle := s.state == Idle
	s.state = Idle
	s.busy = false
	s.lastCode = ""
	s.lastScan = time.Time{}
	s.mu.Unlock()

	s.deps.Decoder.Stop()
	s.deps.Camera.Stop()
	if !alreadyIdle {
		s.status("scanner stopped")
	}
}

func (s *Session) stopIfGen(gen int) {
	s.mu.Lock()
	stale := s.gen != gen
	s.mu.Unlock()
	if !stale {
		s.Stop()
	}
}

func (s *Session) status(message string) {
	if s.deps.Status != nil {
		s.deps.Status(message)
	}
}
