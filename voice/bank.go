// Package voice synthesizes the instrument voices of the drum machine into
// static sample buffers and keeps them up to date as parameters change.
package voice

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/dsp"
)

type (
	// Bank holds the current rendered buffer of every instrument. Buffers are
	// immutable once published: readers on the audio goroutine load them
	// atomically while the control side swaps in re-rendered ones.
	Bank struct {
		sampleRate int
		noise      []float32
		airhorn    []float32
		buffers    [cl607.NumInstruments]atomic.Pointer[[]float32]
		logger     *slog.Logger

		mu  sync.Mutex // guards kit
		kit cl607.Kit
	}
)

// ErrEmptySample is returned when installing a sample buffer with no frames.
var ErrEmptySample = errors.New("sample buffer is empty")

// NewBank generates the shared noise and renders every voice of the kit.
// Unlike later re-renders, a failure here is returned as an error.
func NewBank(sampleRate int, kit cl607.Kit, rng *rand.Rand, logger *slog.Logger) (*Bank, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	b := &Bank{
		sampleRate: sampleRate,
		noise:      dsp.Noise(rng, NoiseSeconds*sampleRate),
		logger:     logger,
		kit:        kit.Clamp(),
	}
	airhorn, err := safeRender(func() ([]float32, error) { return RenderAirhorn(sampleRate) })
	if err != nil {
		return nil, fmt.Errorf("airhorn: %w", err)
	}
	b.airhorn = airhorn
	kick, err := safeRender(func() ([]float32, error) { return RenderKick(b.kit.Kick, b.noise, sampleRate) })
	if err != nil {
		return nil, fmt.Errorf("kick: %w", err)
	}
	b.buffers[cl607.Kick].Store(&kick)
	for _, i := range cl607.Instruments() {
		if i == cl607.Kick || i == cl607.Sample {
			continue
		}
		buf, err := safeRender(func() ([]float32, error) { return Render(i, b.kit.Instruments[i], b.noise, sampleRate) })
		if err != nil {
			return nil, fmt.Errorf("%v: %w", i, err)
		}
		b.buffers[i].Store(&buf)
	}
	return b, nil
}

func (b *Bank) SampleRate() int { return b.sampleRate }

// Buffer returns the current buffer of the instrument, or nil if it has none
// (the sample voice before anything was recorded).
func (b *Bank) Buffer(i cl607.Instrument) []float32 {
	if !i.Valid() {
		return nil
	}
	if p := b.buffers[i].Load(); p != nil {
		return *p
	}
	return nil
}

func (b *Bank) Airhorn() []float32 { return b.airhorn }

// Noise returns the shared noise buffer.
func (b *Bank) Noise() []float32 { return b.noise }

// Kit returns a copy of the parameters the buffers were rendered with.
func (b *Bank) Kit() cl607.Kit {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kit
}

// SetKick re-renders the kick. On failure the previous buffer is kept and
// the error is logged and returned.
func (b *Bank) SetKick(p cl607.KickParams) error {
	p = p.Clamp()
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, err := safeRender(func() ([]float32, error) { return RenderKick(p, b.noise, b.sampleRate) })
	if err != nil {
		b.logger.Error("kick re-render failed, keeping previous buffer", "err", err)
		return err
	}
	b.kit.Kick = p
	b.buffers[cl607.Kick].Store(&buf)
	return nil
}

// SetParam updates one parameter of a non-kick instrument. Filter-only
// parameters are stored without re-rendering; live reports that the caller
// must retune the standing filters of the instrument instead. Parameters of
// the sample voice never cause a re-render.
func (b *Bank) SetParam(i cl607.Instrument, kind cl607.ParamKind, v float64) (live bool, err error) {
	if !i.Valid() || i == cl607.Kick {
		return false, fmt.Errorf("SetParam: %v has no instrument parameters", i)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	params := b.kit.Instruments[i]
	params.Set(kind, v)
	params = params.Clamp(i)
	if kind.FilterOnly() || i == cl607.Sample {
		b.kit.Instruments[i] = params
		return kind.FilterOnly(), nil
	}
	if err := b.rerender(i, params); err != nil {
		return false, err
	}
	return false, nil
}

// SetParams replaces all parameters of a non-kick instrument and re-renders
// it if it has a recipe.
func (b *Bank) SetParams(i cl607.Instrument, p cl607.InstrumentParams) error {
	if !i.Valid() || i == cl607.Kick {
		return fmt.Errorf("SetParams: %v has no instrument parameters", i)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p = p.Clamp(i)
	if i == cl607.Sample {
		b.kit.Instruments[i] = p
		return nil
	}
	return b.rerender(i, p)
}

func (b *Bank) rerender(i cl607.Instrument, p cl607.InstrumentParams) error {
	buf, err := safeRender(func() ([]float32, error) { return Render(i, p, b.noise, b.sampleRate) })
	if err != nil {
		b.logger.Error("voice re-render failed, keeping previous buffer", "instrument", i, "err", err)
		return err
	}
	b.kit.Instruments[i] = p
	b.buffers[i].Store(&buf)
	return nil
}

// SetSample installs a recorded or imported buffer as the sample voice. The
// bank keeps the slice; the caller must not modify it afterwards.
func (b *Bank) SetSample(buf []float32) error {
	if len(buf) == 0 {
		return ErrEmptySample
	}
	b.buffers[cl607.Sample].Store(&buf)
	return nil
}

// safeRender converts a panic during synthesis into an error.
func safeRender(f func() ([]float32, error)) (buf []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("synthesis panicked: %v", r)
		}
	}()
	return f()
}
