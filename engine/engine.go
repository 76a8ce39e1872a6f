// Package engine is the live drum machine: it owns the voice bank and the
// routing graph, renders audio in the audio callback and exposes the control
// surface used by the sequencer, MIDI input and the command line tools.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/dsp"
	"github.com/cl607/cl607/graph"
	"github.com/cl607/cl607/render"
	"github.com/cl607/cl607/voice"
)

type (
	// Engine is controlled from any goroutine, while Process is called by the
	// audio goroutine. Control calls never touch the graph directly: triggers
	// and one-off changes travel through a message channel that Process
	// drains before every quantum, and effect settings are handed over as a
	// single latest-wins value.
	Engine struct {
		cfg        Config
		logger     *slog.Logger
		sampleRate int

		setupMu  sync.Mutex
		setupErr error
		ready    atomic.Bool
		bank     *voice.Bank
		graph    *graph.Graph // owned by the audio goroutine once ready

		messages chan any
		pending  atomic.Pointer[cl607.Effects]
		frame    atomic.Int64
		dropped  atomic.Int64

		mu       sync.Mutex // guards settings, master, rng and the graph pointer
		settings cl607.Effects
		master   float64
		rng      *rand.Rand

		rec recorder
	}

	// Config holds the settings of an Engine. Zero values select the
	// defaults.
	Config struct {
		SampleRate int           // 44100 when zero
		Kit        cl607.Kit     // cl607.DefaultKit() when zero
		Effects    cl607.Effects // cl607.DefaultEffects() when zero
		Logger     *slog.Logger
		Rand       *rand.Rand
		// Input is where StartRecording captures from. Recording fails with
		// cl607.ErrPermissionDenied when it is nil.
		Input Input
	}

	// Clock is the audio timebase: the time of the next frame to be
	// rendered.
	Clock interface {
		Now() float64
	}

	// Handles is what Setup hands back to the caller.
	Handles struct {
		Taps  *graph.Taps
		Clock Clock
	}

	// Send selects one of the two send buses.
	Send int

	triggerMsg struct {
		instrument cl607.Instrument
		buf        []float32
		when       float64
		volume     float64
		rate       float64
	}
	airhornMsg struct {
		buf  []float32
		when float64
	}
	masterMsg       float64
	reverbMsg       struct{ conv *dsp.Convolver }
	sampleFilterMsg struct{ highPass, lowPass float64 }
)

const (
	SendReverb Send = iota
	SendDelay
)

const DefaultSampleRate = 44100

var errNotReady = errors.New("engine is not set up")

// New creates an engine. Nothing is synthesized until Setup is called; until
// then Process outputs silence and the setters only record their values.
func New(cfg Config) *Engine {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Kit == (cl607.Kit{}) {
		cfg.Kit = cl607.DefaultKit()
	}
	if cfg.Effects == (cl607.Effects{}) {
		cfg.Effects = cl607.DefaultEffects()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Engine{
		cfg:        cfg,
		logger:     cfg.Logger,
		sampleRate: cfg.SampleRate,
		messages:   make(chan any, 1024),
		settings:   cfg.Effects.Clamp(),
		master:     graph.LiveMasterGain,
		rng:        cfg.Rand,
	}
}

// Setup synthesizes the voices with the given kick parameters and builds the
// live graph. It is idempotent: once it has succeeded, later calls return the
// same handles. A failure is fatal to the engine, every later call returns
// the same error wrapping cl607.ErrInitialization.
func (e *Engine) Setup(kick cl607.KickParams) (Handles, error) {
	e.setupMu.Lock()
	defer e.setupMu.Unlock()
	if e.ready.Load() {
		return e.handles(), nil
	}
	if e.setupErr != nil {
		return Handles{}, e.setupErr
	}
	if err := e.setup(kick); err != nil {
		e.setupErr = fmt.Errorf("%w: %v", cl607.ErrInitialization, err)
		e.logger.Error("engine setup failed", "err", err)
		return Handles{}, e.setupErr
	}
	e.ready.Store(true)
	e.logger.Info("engine ready", "sampleRate", e.sampleRate)
	return e.handles(), nil
}

func (e *Engine) setup(kick cl607.KickParams) error {
	if e.sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", e.sampleRate)
	}
	kit := e.cfg.Kit
	kit.Kick = kick
	e.mu.Lock()
	defer e.mu.Unlock()
	bank, err := voice.NewBank(e.sampleRate, kit, rand.New(rand.NewSource(e.rng.Int63())), e.logger)
	if err != nil {
		return fmt.Errorf("voice.NewBank: %w", err)
	}
	opts := graph.LiveOptions()
	opts.MasterGain = e.master
	opts.Noise = bank.Noise()
	opts.Rand = rand.New(rand.NewSource(e.rng.Int63()))
	g, err := graph.New(e.sampleRate, e.settings, opts)
	if err != nil {
		return fmt.Errorf("graph.New: %w", err)
	}
	sample := bank.Kit().Instruments[cl607.Sample]
	g.SetSampleFilters(sample.HighPass, sample.LowPass)
	e.bank, e.graph = bank, g
	return nil
}

func (e *Engine) handles() Handles { return Handles{Taps: e.graph.Taps(), Clock: e} }

func (e *Engine) Ready() bool { return e.ready.Load() }

func (e *Engine) SampleRate() int { return e.sampleRate }

// Now returns the audio clock: the time in seconds of the next frame Process
// will render.
func (e *Engine) Now() float64 { return float64(e.frame.Load()) / float64(e.sampleRate) }

// Taps returns the analysis taps, or nil before Setup.
func (e *Engine) Taps() *graph.Taps {
	if !e.ready.Load() {
		return nil
	}
	return e.graph.Taps()
}

// Process renders the next frames of the live output. It has the signature
// of a cl607.AudioSource and must only be called from one goroutine.
func (e *Engine) Process(buf cl607.AudioBuffer) error {
	if !e.ready.Load() {
		buf.Fill([2]float32{})
		return nil
	}
	for len(buf) > 0 {
		n := min(len(buf), dsp.Quantum)
		e.processMessages()
		e.graph.Process(buf[:n])
		e.frame.Store(e.graph.Frame())
		buf = buf[n:]
	}
	return nil
}

func (e *Engine) processMessages() {
	if fx := e.pending.Swap(nil); fx != nil {
		e.graph.SetEffects(*fx)
	}
loop:
	for {
		select {
		case msg := <-e.messages:
			switch m := msg.(type) {
			case triggerMsg:
				e.graph.Trigger(m.instrument, m.buf, m.when, m.volume, m.rate)
			case airhornMsg:
				e.graph.TriggerAirhorn(m.buf, m.when)
			case masterMsg:
				e.graph.SetMasterGain(float64(m))
			case reverbMsg:
				e.graph.SetReverb(m.conv)
			case sampleFilterMsg:
				e.graph.SetSampleFilters(m.highPass, m.lowPass)
			default:
				// ignore unknown messages
			}
		default:
			break loop
		}
	}
}

// send never blocks; when the audio goroutine has fallen this far behind,
// the message is dropped.
func (e *Engine) send(msg any) {
	if !cl607.TrySend(e.messages, msg) {
		if e.dropped.Add(1) == 1 {
			e.logger.Warn("engine message queue full, dropping messages")
		}
	}
}

// Play triggers instrument i at the absolute time when with the given volume.
// Only the sample voice uses params: its pitch is the playback rate and its
// filter cutoffs retune the standing sample filters. The signature matches
// sequencer.TriggerFunc.
func (e *Engine) Play(i cl607.Instrument, when, volume float64, params cl607.InstrumentParams) {
	if !e.ready.Load() || !i.Valid() {
		return
	}
	buf := e.bank.Buffer(i)
	if len(buf) == 0 {
		return
	}
	rate := 1.0
	if i == cl607.Sample {
		p := params.Clamp(i)
		rate = p.Pitch
		e.send(sampleFilterMsg{p.HighPass, p.LowPass})
	}
	e.send(triggerMsg{instrument: i, buf: buf, when: when, volume: volume, rate: rate})
}

func (e *Engine) PlayKick(volume, when float64, params cl607.InstrumentParams) {
	e.Play(cl607.Kick, when, volume, params)
}

func (e *Engine) PlaySnare(volume, when float64, params cl607.InstrumentParams) {
	e.Play(cl607.Snare, when, volume, params)
}

func (e *Engine) PlayHiHat(volume, when float64, params cl607.InstrumentParams) {
	e.Play(cl607.HiHat, when, volume, params)
}

func (e *Engine) PlaySnap(volume, when float64, params cl607.InstrumentParams) {
	e.Play(cl607.Snap, when, volume, params)
}

func (e *Engine) PlayClave(volume, when float64, params cl607.InstrumentParams) {
	e.Play(cl607.Clave, when, volume, params)
}

func (e *Engine) PlayCowbell(volume, when float64, params cl607.InstrumentParams) {
	e.Play(cl607.Cowbell, when, volume, params)
}

func (e *Engine) PlaySample(volume, when float64, params cl607.InstrumentParams) {
	e.Play(cl607.Sample, when, volume, params)
}

// PlayAirhorn sounds the airhorn right away.
func (e *Engine) PlayAirhorn() {
	if !e.ready.Load() {
		return
	}
	e.send(airhornMsg{buf: e.bank.Airhorn(), when: e.Now()})
}

// Kit returns the current voice parameters.
func (e *Engine) Kit() cl607.Kit {
	e.setupMu.Lock()
	defer e.setupMu.Unlock()
	if !e.ready.Load() {
		return e.cfg.Kit.Clamp()
	}
	return e.bank.Kit()
}

// UpdateInstrumentParameter changes one synthesis parameter of a non-kick
// instrument. The voice is re-rendered, except for the filter cutoffs of the
// sample voice, which retune its standing filters. A failed re-render keeps
// the previous buffer.
func (e *Engine) UpdateInstrumentParameter(i cl607.Instrument, kind cl607.ParamKind, v float64) error {
	if !e.ready.Load() {
		return errNotReady
	}
	live, err := e.bank.SetParam(i, kind, v)
	if err != nil {
		return err
	}
	if live && i == cl607.Sample {
		p := e.bank.Kit().Instruments[cl607.Sample]
		e.send(sampleFilterMsg{p.HighPass, p.LowPass})
	}
	return nil
}

// RerenderKick replaces the kick parameters and re-renders the kick voice.
func (e *Engine) RerenderKick(p cl607.KickParams) error {
	if !e.ready.Load() {
		return errNotReady
	}
	return e.bank.SetKick(p)
}

// LoadKit applies every parameter of the kit, re-rendering what changed.
func (e *Engine) LoadKit(kit cl607.Kit) error {
	if !e.ready.Load() {
		return errNotReady
	}
	kit = kit.Clamp()
	old := e.bank.Kit()
	var errs []error
	if kit.Kick != old.Kick {
		errs = append(errs, e.bank.SetKick(kit.Kick))
	}
	for _, i := range cl607.Instruments() {
		if i != cl607.Kick && kit.Instruments[i] != old.Instruments[i] {
			errs = append(errs, e.bank.SetParams(i, kit.Instruments[i]))
		}
	}
	p := kit.Instruments[cl607.Sample]
	e.send(sampleFilterMsg{p.HighPass, p.LowPass})
	return errors.Join(errs...)
}

// LoadSample installs a .wav file as the sample voice, resampled to the
// engine rate and downmixed to mono.
func (e *Engine) LoadSample(r io.ReadSeeker) error {
	if !e.ready.Load() {
		return errNotReady
	}
	mono, sr, err := cl607.DecodeWav(r)
	if err != nil {
		return fmt.Errorf("LoadSample: %w", err)
	}
	return e.bank.SetSample(dsp.Resample(mono, sr, e.sampleRate))
}

// ApplySession sets the effects, master volume and kit of a session.
func (e *Engine) ApplySession(s *cl607.Session) error {
	c := s.Clamp()
	e.SetEffects(c.Effects)
	e.SetMasterVolume(c.MasterVolume)
	e.setupMu.Lock()
	if !e.ready.Load() {
		e.cfg.Kit = c.Kit
		e.setupMu.Unlock()
		return nil
	}
	e.setupMu.Unlock()
	return e.LoadKit(c.Kit)
}

// RenderBeatToBuffer bounces the session to a 16-bit stereo WAV with the
// current voices. It returns nil if the engine is not set up or the render
// fails; the failure is logged. Concurrent renders are not serialized.
func (e *Engine) RenderBeatToBuffer(s cl607.Session) []byte {
	if !e.ready.Load() {
		e.logger.Error("render requested before setup")
		return nil
	}
	data, err := render.Render(e.bank, s, e.sampleRate, e.logger)
	if err != nil {
		return nil
	}
	return data
}
