package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/types"
	"go.uber.org/zap"
)

var (
	ErrBridgeClosed = errors.New("audio bridge closed")
	ErrUnknownSound = errors.New("unknown sound")
	ErrUnknownVoice = errors.New("unknown voice")
)

// DefaultBreakerSettings trips after five consecutive engine failures
func DefaultBreakerSettings() resilience.Settings {
	return resilience.Settings{
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	}
}

// Status is a snapshot for diagnostics
type Status struct {
	API        types.AudioAPI `json:"api"`
	InitFailed bool           `json:"init_failed"`
	Degraded   bool           `json:"degraded"`
	Breaker    string         `json:"breaker"`
	Sounds     int            `json:"sounds"`
	Voices     int            `json:"voices"`
}

// Bridge tracks engine handles and guards engine calls
type Bridge struct {
	engine  Engine
	api     types.AudioAPI
	breaker *resilience.Breaker
	gate    runtime.Gate
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu         sync.Mutex
	initFailed bool
	closed     bool
	sounds     map[Sound]map[Voice]struct{}
	voices     map[Voice]Sound
}

// Option configures a Bridge
type Option func(*Bridge)

// WithAPI selects the platform audio backend passed to Engine.Init
func WithAPI(api types.AudioAPI) Option {
	return func(b *Bridge) { b.api = api }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *monitoring.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithGate rejects calls once the runtime session crashed
func WithGate(g runtime.Gate) Option {
	return func(b *Bridge) { b.gate = g }
}

// WithBreakerSettings overrides DefaultBreakerSettings
func WithBreakerSettings(s resilience.Settings) Option {
	return func(b *Bridge) { b.breaker = b.newBreaker(s) }
}

// Open initializes engine. An init failure is logged and leaves the bridge
// in silent no-op mode; Open never fails.
func Open(ctx context.Context, engine Engine, opts ...Option) *Bridge {
	b := &Bridge{
		engine: engine,
		api:    types.AudioAAudio,
		logger: logging.NewNop(),
		sounds: make(map[Sound]map[Voice]struct{}),
		voices: make(map[Voice]Sound),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named(logging.Audio)
	if b.breaker == nil {
		b.breaker = b.newBreaker(DefaultBreakerSettings())
	}

	err := ctx.Err()
	if err == nil && engine == nil {
		err = errors.New("no engine")
	}
	if err == nil {
		err = engine.Init(b.api)
	}
	b.metrics.RecordAudioCall("init", err)
	if err != nil {
		b.initFailed = true
		b.metrics.SetAudioDegraded(true)
		b.logger.Error("Audio disabled",
			zap.String("api", string(b.api)),
			zap.Error(errs.New(errs.EngineInitFailed, "init", string(b.api), fmt.Errorf("%w: %w", errs.ErrEngineInitFailed, err))))
		return b
	}

	b.metrics.SetAudioDegraded(false)
	b.logger.Info("Audio engine ready", zap.String("api", string(b.api)))
	return b
}

func (b *Bridge) newBreaker(s resilience.Settings) *resilience.Breaker {
	user := s.OnStateChange
	s.OnStateChange = func(name string, from, to resilience.State) {
		b.metrics.SetAudioDegraded(to != resilience.StateClosed)
		if b.logger != nil {
			b.logger.Warn("Audio breaker state changed", zap.String("from", from.String()), zap.String("to", to.String()))
		}
		if user != nil {
			user(name, from, to)
		}
	}
	return resilience.New("audio", s)
}

// Silent reports whether calls are currently no-op'd
func (b *Bridge) Silent() bool {
	b.mu.Lock()
	initFailed := b.initFailed
	b.mu.Unlock()
	return initFailed || b.breaker.State() == resilience.StateOpen
}

// admit returns (skip, err): skip means the call should be a silent no-op
func (b *Bridge) admit() (bool, error) {
	if err := runtime.Admit(b.gate); err != nil {
		return true, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return true, ErrBridgeClosed
	}
	return b.initFailed, nil
}

// call runs fn through the breaker. A rejected call reports degraded=true.
func call[T any](b *Bridge, op string, fn func() (T, error)) (v T, degraded bool, err error) {
	v, err = resilience.Do(b.breaker, fn)
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return v, true, nil
	}
	b.metrics.RecordAudioCall(op, err)
	if err != nil {
		b.logger.Debug("Audio engine call failed", zap.String("op", op), zap.Error(err))
		return v, false, fmt.Errorf("audio %s: %w", op, err)
	}
	return v, false, nil
}

// Load loads a sound by name. Silent mode returns the zero Sound.
func (b *Bridge) Load(name string) (Sound, error) {
	if skip, err := b.admit(); skip {
		return 0, err
	}
	s, degraded, err := call(b, "load", func() (Sound, error) { return b.engine.Load(name) })
	if degraded || err != nil {
		return 0, err
	}

	b.mu.Lock()
	if _, ok := b.sounds[s]; !ok {
		b.sounds[s] = make(map[Voice]struct{})
	}
	b.mu.Unlock()
	return s, nil
}

// Play starts a voice for s
func (b *Bridge) Play(s Sound) (Voice, error) {
	if skip, err := b.admit(); skip {
		return 0, err
	}
	if s == 0 {
		return 0, nil
	}
	b.mu.Lock()
	_, known := b.sounds[s]
	b.mu.Unlock()
	if !known {
		return 0, fmt.Errorf("%w: %d", ErrUnknownSound, s)
	}

	v, degraded, err := call(b, "play", func() (Voice, error) { return b.engine.Play(s) })
	if degraded || err != nil {
		return 0, err
	}

	b.mu.Lock()
	if voices, ok := b.sounds[s]; ok {
		voices[v] = struct{}{}
		b.voices[v] = s
	}
	b.mu.Unlock()
	return v, nil
}

// Stop stops a voice and forgets it
func (b *Bridge) Stop(v Voice) error {
	if skip, err := b.admit(); skip {
		return err
	}
	if v == 0 {
		return nil
	}
	b.mu.Lock()
	s, ok := b.voices[v]
	if ok {
		delete(b.voices, v)
		delete(b.sounds[s], v)
	}
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVoice, v)
	}

	_, _, err := call(b, "stop", func() (struct{}, error) { return struct{}{}, b.engine.Stop(v) })
	return err
}

// SetVolume sets a voice's volume, clamped to [0, 1]
func (b *Bridge) SetVolume(v Voice, volume float32) error {
	if skip, err := b.admit(); skip {
		return err
	}
	if v == 0 {
		return nil
	}
	b.mu.Lock()
	_, ok := b.voices[v]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVoice, v)
	}

	volume = clampVolume(volume)
	_, _, err := call(b, "volume", func() (struct{}, error) { return struct{}{}, b.engine.SetVolume(v, volume) })
	return err
}

func clampVolume(v float32) float32 {
	if math.IsNaN(float64(v)) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Dispose stops every voice of s and releases it
func (b *Bridge) Dispose(s Sound) error {
	if skip, err := b.admit(); skip {
		return err
	}
	if s == 0 {
		return nil
	}
	return b.dispose(s)
}

func (b *Bridge) dispose(s Sound) error {
	b.mu.Lock()
	voices, ok := b.sounds[s]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownSound, s)
	}
	delete(b.sounds, s)
	for v := range voices {
		delete(b.voices, v)
	}
	b.mu.Unlock()

	var errList []error
	for v := range voices {
		if _, _, err := call(b, "stop", func() (struct{}, error) { return struct{}{}, b.engine.Stop(v) }); err != nil {
			errList = append(errList, err)
		}
	}
	if _, _, err := call(b, "release", func() (struct{}, error) { return struct{}{}, b.engine.Release(s) }); err != nil {
		errList = append(errList, err)
	}
	return errors.Join(errList...)
}

// Close releases every tracked sound and shuts the engine down
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	initFailed := b.initFailed
	sounds := make([]Sound, 0, len(b.sounds))
	for s := range b.sounds {
		sounds = append(sounds, s)
	}
	b.mu.Unlock()

	if initFailed {
		return nil
	}

	var errList []error
	for _, s := range sounds {
		if err := b.dispose(s); err != nil {
			errList = append(errList, err)
		}
	}
	err := b.engine.Close()
	b.metrics.RecordAudioCall("close", err)
	if err != nil {
		errList = append(errList, err)
	}
	return errors.Join(errList...)
}

// Status returns a diagnostic snapshot
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	state := b.breaker.State()
	return Status{
		API:        b.api,
		InitFailed: b.initFailed,
		Degraded:   b.initFailed || state != resilience.StateClosed,
		Breaker:    state.String(),
		Sounds:     len(b.sounds),
		Voices:     len(b.voices),
	}
}
