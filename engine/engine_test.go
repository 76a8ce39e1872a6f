package engine_test

import (
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/engine"
	"github.com/cl607/cl607/graph"
)

const sampleRate = 44100

func newEngine(t *testing.T, input engine.Input) *engine.Engine {
	t.Helper()
	e := engine.New(engine.Config{SampleRate: sampleRate, Rand: rand.New(rand.NewSource(1)), Input: input})
	if _, err := e.Setup(cl607.DefaultKickParams()); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	return e
}

func TestSetupIsIdempotent(t *testing.T) {
	e := engine.New(engine.Config{SampleRate: sampleRate})
	h1, err := e.Setup(cl607.DefaultKickParams())
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	h2, err := e.Setup(cl607.DefaultKickParams())
	if err != nil {
		t.Fatalf("second Setup failed: %v", err)
	}
	if h1.Taps == nil || h1.Taps != h2.Taps || h1.Clock != h2.Clock {
		t.Errorf("Setup should hand back the same taps and clock")
	}
	if got := len(h1.Taps.All()); got != 20 {
		t.Errorf("got %d taps, want 20", got)
	}
}

func TestSetupFailure(t *testing.T) {
	e := engine.New(engine.Config{SampleRate: -1})
	if _, err := e.Setup(cl607.DefaultKickParams()); !errors.Is(err, cl607.ErrInitialization) {
		t.Fatalf("expected ErrInitialization, got %v", err)
	}
	if _, err := e.Setup(cl607.DefaultKickParams()); !errors.Is(err, cl607.ErrInitialization) {
		t.Errorf("a failed engine must stay failed, got %v", err)
	}
	if e.Ready() || e.Taps() != nil {
		t.Errorf("a failed engine must not be ready")
	}
	if e.RenderBeatToBuffer(cl607.DefaultSession()) != nil {
		t.Errorf("render on a failed engine should return nil")
	}
}

func TestProcessBeforeSetupIsSilent(t *testing.T) {
	e := engine.New(engine.Config{SampleRate: sampleRate})
	buf := make(cl607.AudioBuffer, 256)
	buf.Fill([2]float32{1, 1})
	if err := e.Process(buf); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if graph.Peak(buf) != 0 {
		t.Errorf("expected silence before Setup")
	}
	e.PlayKick(1, 0, cl607.InstrumentParams{})
}

func TestClockFollowsProcess(t *testing.T) {
	e := newEngine(t, nil)
	buf := make(cl607.AudioBuffer, 1000)
	for range 3 {
		e.Process(buf)
	}
	if got, want := e.Now(), 3000.0/sampleRate; got != want {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestTriggerAtTimestamp(t *testing.T) {
	e := newEngine(t, nil)
	e.PlayClave(1, 0.1, cl607.InstrumentParams{})
	before := make(cl607.AudioBuffer, 4096) // 4096 < 0.1*44100
	e.Process(before)
	if p := graph.Peak(before); p != 0 {
		t.Errorf("output before the trigger time has peak %v", p)
	}
	after := make(cl607.AudioBuffer, 4096)
	e.Process(after)
	if graph.Peak(after) == 0 {
		t.Errorf("expected the clave after its trigger time")
	}
}

func TestSettersClamp(t *testing.T) {
	e := newEngine(t, nil)
	e.SetDelayFeedback(2)
	e.SetDelayTime(-1)
	e.SetLowPass(5)
	e.SetHighPass(1e6)
	e.SetIsolatorGain(cl607.BandMid, 3)
	e.SetXY(100000, 7)
	e.SetSidechain(-3)
	fx := e.Effects()
	if fx.DelayFeedback != cl607.MaxDelayFeedback || fx.DelayTime != 0 {
		t.Errorf("delay = %v/%v, want clamped to %v/0", fx.DelayFeedback, fx.DelayTime, cl607.MaxDelayFeedback)
	}
	if fx.LowPass != cl607.MinFilterFreq || fx.HighPass != cl607.MaxFilterFreq {
		t.Errorf("filters = %v/%v, want clamped", fx.LowPass, fx.HighPass)
	}
	if fx.Isolator.Mid != cl607.MaxIsolatorGain || fx.Isolator.Low != 1 {
		t.Errorf("isolator = %+v", fx.Isolator)
	}
	if fx.XY.Frequency != cl607.MaxFilterFreq || fx.XY.Drive != 1 || fx.Sidechain != 0 {
		t.Errorf("xy = %+v, sidechain = %v", fx.XY, fx.Sidechain)
	}
	e.SetMasterVolume(-1)
	if got := e.MasterVolume(); got != 0 {
		t.Errorf("master volume = %v, want 0", got)
	}
	e.Process(make(cl607.AudioBuffer, 512))
}

func TestToggleXY(t *testing.T) {
	e := newEngine(t, nil)
	if !e.ToggleXY() || !e.Effects().XY.On {
		t.Errorf("first toggle should switch the XY filter on")
	}
	if e.ToggleXY() {
		t.Errorf("second toggle should switch it off")
	}
}

func TestSetSource(t *testing.T) {
	e := newEngine(t, nil)
	e.SetSource(engine.SendReverb, cl607.SourceOf(cl607.Snare))
	e.SetSource(engine.SendDelay, cl607.Source(99))
	fx := e.Effects()
	if fx.ReverbSource != cl607.SourceOf(cl607.Snare) {
		t.Errorf("reverb source = %v, want snare", fx.ReverbSource)
	}
	if fx.DelaySource != cl607.SourceAll {
		t.Errorf("an invalid source should fall back to all, got %v", fx.DelaySource)
	}
}

func TestUpdateInstrumentParameter(t *testing.T) {
	e := newEngine(t, nil)
	if err := e.UpdateInstrumentParameter(cl607.Snare, cl607.ParamDecay, 2); err != nil {
		t.Fatalf("UpdateInstrumentParameter failed: %v", err)
	}
	if got := e.Kit().Instruments[cl607.Snare].Decay; got != 2 {
		t.Errorf("snare decay = %v, want 2", got)
	}
	if err := e.UpdateInstrumentParameter(cl607.Kick, cl607.ParamDecay, 2); err == nil {
		t.Errorf("the kick is changed with RerenderKick, expected an error")
	}
	kick := cl607.DefaultKickParams()
	kick.StartFreq = 300
	if err := e.RerenderKick(kick); err != nil {
		t.Fatalf("RerenderKick failed: %v", err)
	}
	if got := e.Kit().Kick.StartFreq; got != 300 {
		t.Errorf("kick start frequency = %v, want 300", got)
	}
}

func TestRenderBeatToBuffer(t *testing.T) {
	e := newEngine(t, nil)
	s := cl607.DefaultSession()
	s.Tempo = 240
	s.Patterns.A.Set(cl607.Kick, 0, true)
	data := e.RenderBeatToBuffer(s)
	if len(data) < 44 || string(data[:4]) != "RIFF" {
		t.Fatalf("expected a WAV file, got %d bytes", len(data))
	}
}

type fakeInput struct {
	blocks [][]float32
	err    error
	eof    chan struct{}
}

type fakeStream struct {
	blocks [][]float32
	eof    chan struct{}
	once   sync.Once
}

func (f *fakeInput) Open(int) (engine.InputStream, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fakeStream{blocks: f.blocks, eof: f.eof}, nil
}

func (s *fakeStream) Read(b []float32) (int, error) {
	if len(s.blocks) == 0 {
		s.once.Do(func() { close(s.eof) })
		return 0, io.EOF
	}
	n := copy(b, s.blocks[0])
	s.blocks = s.blocks[1:]
	return n, nil
}

func (s *fakeStream) Close() error { return nil }

func TestRecording(t *testing.T) {
	in := &fakeInput{blocks: [][]float32{{0.1, 0.2}, {0.3}, {0.4, 0.5, 0.6}}, eof: make(chan struct{})}
	e := newEngine(t, in)
	if err := e.StartRecording(); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if got := e.RecordState(); got != engine.RecordRecording {
		t.Errorf("state = %v, want recording", got)
	}
	if err := e.StartRecording(); err == nil {
		t.Errorf("starting twice should fail")
	}
	select {
	case <-in.eof:
	case <-time.After(time.Second):
		t.Fatalf("the input was not read to the end")
	}
	frames, err := e.StopRecording()
	if err != nil || frames != 6 {
		t.Errorf("StopRecording = %d, %v, want 6 frames", frames, err)
	}
	if got := e.RecordState(); got != engine.RecordIdle {
		t.Errorf("state after stop = %v, want idle", got)
	}
	if frames, err := e.StopRecording(); frames != 0 || err != nil {
		t.Errorf("stopping while idle should do nothing, got %d, %v", frames, err)
	}
}

func TestRecordingPermissionDenied(t *testing.T) {
	e := newEngine(t, &fakeInput{err: os.ErrPermission})
	err := e.StartRecording()
	if !errors.Is(err, cl607.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if got := e.RecordState(); got != engine.RecordIdle {
		t.Errorf("state = %v, want idle", got)
	}
	if err := engine.New(engine.Config{}).StartRecording(); err == nil {
		t.Errorf("recording before Setup should fail")
	}
	e = newEngine(t, nil)
	if err := e.StartRecording(); !errors.Is(err, cl607.ErrPermissionDenied) {
		t.Errorf("recording without an input: expected ErrPermissionDenied, got %v", err)
	}
}

func writeWav(t *testing.T, buf cl607.AudioBuffer, sr int) string {
	t.Helper()
	data, err := buf.Wav(sr)
	if err != nil {
		t.Fatalf("Wav failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "take.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestFileInput(t *testing.T) {
	buf := make(cl607.AudioBuffer, 300)
	buf.Fill([2]float32{0.5, 0.5})
	path := writeWav(t, buf, sampleRate)
	stream, err := engine.FileInput{Path: path}.Open(sampleRate)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer stream.Close()
	total := 0
	block := make([]float32, 128)
	for {
		n, err := stream.Read(block)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if d := block[0] - 0.5; n > 0 && (d > 1e-3 || d < -1e-3) {
			t.Fatalf("read %v, want about 0.5", block[0])
		}
	}
	if total != 300 {
		t.Errorf("read %d frames, want 300", total)
	}
	if _, err := (engine.FileInput{Path: filepath.Join(t.TempDir(), "missing.wav")}).Open(sampleRate); err == nil {
		t.Errorf("opening a missing file should fail")
	}
}

func TestLoadSample(t *testing.T) {
	e := newEngine(t, nil)
	buf := make(cl607.AudioBuffer, 100)
	buf.Fill([2]float32{0.25, 0.25})
	f, err := os.Open(writeWav(t, buf, sampleRate/2))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := e.LoadSample(f); err != nil {
		t.Fatalf("LoadSample failed: %v", err)
	}
	e.PlaySample(1, 0, e.Kit().Instruments[cl607.Sample])
	out := make(cl607.AudioBuffer, 1024)
	e.Process(out)
	if graph.Peak(out) == 0 {
		t.Errorf("the loaded sample did not play")
	}
}
