// Package render bounces a session to a WAV file: it lays out every trigger
// of pattern A, and of pattern B when it has notes, and runs the same routing
// graph as the live engine over the whole timeline at once.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/dsp"
	"github.com/cl607/cl607/graph"
	"github.com/cl607/cl607/sequencer"
)

type (
	// Voices provides the rendered instrument buffers, usually a voice.Bank.
	Voices interface {
		Buffer(i cl607.Instrument) []float32
		Noise() []float32
	}

	// Trigger is one scheduled note of the render timeline.
	Trigger struct {
		Instrument cl607.Instrument
		Time       float64
		Volume     float64
	}
)

// Measures returns the patterns that are rendered back to back: A, followed
// by B if and only if B has an active cell.
func Measures(s *cl607.Session) []cl607.PatternKey {
	if s.Patterns.B.HasNotes() {
		return []cl607.PatternKey{cl607.PatternA, cl607.PatternB}
	}
	return []cl607.PatternKey{cl607.PatternA}
}

// Duration is the total length of the render in seconds.
func Duration(s *cl607.Session) float64 {
	return float64(len(Measures(s))) * sequencer.MeasureDuration(s.Tempo)
}

// Frames is the number of frames of the render.
func Frames(s *cl607.Session, sampleRate int) int {
	return int(math.Ceil(Duration(s) * float64(sampleRate)))
}

// Triggers lists every note of the render in time order. Step times use the
// same swing as the live scheduler; the randomizer is not applied.
func Triggers(s *cl607.Session) []Trigger {
	var ret []Trigger
	t := 0.0
	for _, key := range Measures(s) {
		grid := s.Patterns.Get(key)
		for step := range cl607.NumSteps {
			for _, i := range cl607.Instruments() {
				if s.Visible[i] && grid.Active(i, step) && s.Volumes[i] > 0 {
					ret = append(ret, Trigger{Instrument: i, Time: t, Volume: s.Volumes[i]})
				}
			}
			t += sequencer.StepDuration(step, s.Tempo, s.Swing)
		}
	}
	return ret
}

// RenderBuffer renders the session into a stereo buffer. Effect settings are
// applied statically; the bitcrusher stage is not part of the render graph.
// Any failure, including a panic inside the graph, is returned wrapped in
// cl607.ErrRender.
func RenderBuffer(voices Voices, session cl607.Session, sampleRate int) (buf cl607.AudioBuffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("%w: %v", cl607.ErrRender, r)
		}
	}()
	s := session.Clamp()
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", cl607.ErrRender, sampleRate)
	}
	opts := graph.OfflineOptions(s.MasterVolume)
	opts.Noise = voices.Noise()
	opts.Rand = rand.New(rand.NewSource(rand.Int63()))
	g, err := graph.New(sampleRate, s.Effects, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cl607.ErrRender, err)
	}
	sample := s.Kit.Instruments[cl607.Sample]
	g.SetSampleFilters(sample.HighPass, sample.LowPass)
	for _, tr := range Triggers(&s) {
		rate := 1.0
		if tr.Instrument == cl607.Sample {
			rate = sample.Pitch
		}
		g.Trigger(tr.Instrument, voices.Buffer(tr.Instrument), tr.Time, tr.Volume, rate)
	}
	return g.Render(Frames(&s, sampleRate)), nil
}

// Render renders the session and encodes it as a 16-bit stereo WAV file.
func Render(voices Voices, session cl607.Session, sampleRate int, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	buf, err := RenderBuffer(voices, session, sampleRate)
	if err != nil {
		logger.Error("offline render failed", "err", err)
		return nil, err
	}
	data, err := buf.Wav(sampleRate)
	if err != nil {
		logger.Error("wav encoding failed", "err", err)
		return nil, fmt.Errorf("%w: %v", cl607.ErrRender, err)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		l := Loudness(buf, sampleRate)
		logger.Debug("rendered beat", "frames", len(buf), "sampleRate", sampleRate, "lufs", l.Integrated, "truePeak", max(l.TruePeak[0], l.TruePeak[1]))
	}
	return data, nil
}

// Loudness measures the integrated loudness and true peak of a render.
func Loudness(buf cl607.AudioBuffer, sampleRate int) dsp.Loudness {
	m := dsp.NewMeter(sampleRate)
	m.WriteFrames(buf)
	return m.Loudness()
}
