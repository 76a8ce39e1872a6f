package graph_test

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/graph"
)

const sampleRate = 44100

func newGraph(t *testing.T, e cl607.Effects, opts graph.Options) *graph.Graph {
	t.Helper()
	opts.Rand = rand.New(rand.NewSource(7))
	g, err := graph.New(sampleRate, e, opts)
	if err != nil {
		t.Fatalf("graph.New failed: %v", err)
	}
	return g
}

func constant(n int, v float32) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func TestDuckEnvelope(t *testing.T) {
	e := cl607.DefaultEffects()
	e.Sidechain = 0.6
	g := newGraph(t, e, graph.OfflineOptions(1))
	g.Trigger(cl607.Kick, constant(100, 0.5), 1, 1, 1)
	if got := g.DuckLevel(1 + graph.DuckAttack); math.Abs(got-0.4) > 1e-9 {
		t.Errorf("duck at trigger+attack = %v, want 0.4", got)
	}
	if got := g.DuckLevel(1 + graph.DuckAttack + graph.DuckRelease); math.Abs(got-1) > 1e-9 {
		t.Errorf("duck after release = %v, want 1", got)
	}
	if got := g.DuckLevel(0.5); got != 1 {
		t.Errorf("duck before the kick = %v, want 1", got)
	}
}

func TestDuckOverlappingKicks(t *testing.T) {
	e := cl607.DefaultEffects()
	e.Sidechain = 0.6
	g := newGraph(t, e, graph.OfflineOptions(1))
	g.Trigger(cl607.Kick, constant(100, 0.5), 1, 1, 1)
	g.Trigger(cl607.Kick, constant(100, 0.5), 1.004, 1, 1)
	if got := g.DuckLevel(1.004); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("second kick should hold the ramp in progress at 0.7, got %v", got)
	}
	if got := g.DuckLevel(1.004 + graph.DuckAttack); math.Abs(got-0.4) > 1e-9 {
		t.Errorf("duck after the second attack = %v, want 0.4", got)
	}
}

func TestDuckDisabled(t *testing.T) {
	e := cl607.DefaultEffects()
	e.Sidechain = 0.6
	e.Enabled.Sidechain = false
	g := newGraph(t, e, graph.OfflineOptions(1))
	g.Trigger(cl607.Kick, constant(100, 0.5), 1, 1, 1)
	if got := g.DuckLevel(1 + graph.DuckAttack); got != 1 {
		t.Errorf("disabled sidechain should not duck, got %v", got)
	}
}

func render(g *graph.Graph, triggers func(g *graph.Graph)) cl607.AudioBuffer {
	triggers(g)
	return g.Render(8192)
}

func beat(g *graph.Graph) {
	g.Trigger(cl607.Kick, constant(3000, 0.8), 0, 1, 1)
	g.Trigger(cl607.Snare, constant(2000, -0.4), 0.02, 0.7, 1)
	g.Trigger(cl607.Sample, constant(2000, 0.3), 0.05, 1, 1.5)
}

func TestBypassMatchesNeutralValues(t *testing.T) {
	bypassed := cl607.DefaultEffects()
	bypassed.TapeMix, bypassed.TapeAmount = 0.7, 0.5
	bypassed.ReverbMix = 0.5
	bypassed.DelayMix = 0.4
	bypassed.Crush = 0.8
	bypassed.EnvMix = 0.6
	bypassed.LowPass = 800
	bypassed.HighPass = 400
	bypassed.Sidechain = 0.9
	bypassed.Enabled = cl607.EffectsEnabled{}

	neutral := cl607.DefaultEffects()
	neutral.TapeAmount = 0.2

	for _, opts := range []graph.Options{graph.LiveOptions(), graph.OfflineOptions(0.5)} {
		a := render(newGraph(t, bypassed, opts), beat)
		b := render(newGraph(t, neutral, opts), beat)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("bypassed output differs from neutral output (bitcrusher %v)", opts.Bitcrusher)
		}
		if graph.Peak(a) == 0 {
			t.Errorf("expected audible output")
		}
	}
}

func TestSendSourceRouting(t *testing.T) {
	e := cl607.DefaultEffects()
	e.ReverbMix = 1
	e.ReverbSource = cl607.SourceOf(cl607.Snare)
	g := newGraph(t, e, graph.OfflineOptions(1))
	if want := (graph.Routes{Reverb: cl607.SourceOf(cl607.Snare), Delay: cl607.SourceAll}); g.Routes() != want {
		t.Fatalf("routes = %+v, want %+v", g.Routes(), want)
	}
	kickOnly := func(g *graph.Graph) { g.Trigger(cl607.Kick, constant(3000, 0.8), 0, 1, 1) }
	dry := cl607.DefaultEffects()
	if !reflect.DeepEqual(render(g, kickOnly), render(newGraph(t, dry, graph.OfflineOptions(1)), kickOnly)) {
		t.Errorf("a reverb sending the snare only must not hear the kick")
	}

	e.ReverbSource = cl607.SourceAll
	e.DelaySource = cl607.SourceOf(cl607.Sample)
	g.SetEffects(e)
	if want := (graph.Routes{Reverb: cl607.SourceAll, Delay: cl607.SourceOf(cl607.Sample)}); g.Routes() != want {
		t.Errorf("routes after change = %+v, want %+v", g.Routes(), want)
	}
}

func TestSilentGraph(t *testing.T) {
	g := newGraph(t, cl607.DefaultEffects(), graph.LiveOptions())
	if p := graph.Peak(g.Render(4096)); p != 0 {
		t.Errorf("graph without triggers produced peak %v", p)
	}
}

func TestTriggerTiming(t *testing.T) {
	g := newGraph(t, cl607.DefaultEffects(), graph.OfflineOptions(1))
	g.Trigger(cl607.Kick, constant(1000, 0.5), 0.5, 1, 1)
	out := g.Render(sampleRate)
	if graph.Peak(out[:22050]) != 0 {
		t.Errorf("output before the trigger time should be silent")
	}
	if graph.Peak(out[22050:]) == 0 {
		t.Errorf("expected output after the trigger time")
	}
	if g.Playing() != 0 {
		t.Errorf("finished voices should be dropped, %d left", g.Playing())
	}
}

func TestLiveTaps(t *testing.T) {
	g := newGraph(t, cl607.DefaultEffects(), graph.LiveOptions())
	taps := g.Taps()
	if n := len(taps.All()); n != int(cl607.NumInstruments)+13 {
		t.Errorf("got %d taps", n)
	}
	g.Trigger(cl607.HiHat, constant(512, 0.25), 0, 1, 1)
	g.Render(1024)
	tap := taps.Find("hihat")
	if tap == nil {
		t.Fatalf("no hihat tap")
	}
	if l := tap.Levels(); l.Peak[0] == 0 {
		t.Errorf("hihat tap saw no signal")
	}
	offline := newGraph(t, cl607.DefaultEffects(), graph.OfflineOptions(1))
	if n := len(offline.Taps().All()); n != 0 {
		t.Errorf("offline graph has %d taps, want none", n)
	}
}

func TestSilentInserts(t *testing.T) {
	e := cl607.DefaultEffects()
	e.TapeMix, e.TapeAmount = 1, 1
	e.EnvMix, e.EnvAmount = 1, 1
	e.XY = cl607.XYPad{On: true, Frequency: 1200, Drive: 1}
	e.Isolator = cl607.Isolator{Low: 1.5, Mid: 0.5, High: 1.5}
	for _, opts := range []graph.Options{graph.LiveOptions(), graph.OfflineOptions(1)} {
		g := newGraph(t, e, opts)
		if p := graph.Peak(g.Render(4096)); p != 0 {
			t.Errorf("inserts without input produced peak %v (bitcrusher %v)", p, opts.Bitcrusher)
		}
	}
}

func TestLofiNoiseBehindWet(t *testing.T) {
	for _, mix := range []float64{0.25, 0.5, 1} {
		e := cl607.DefaultEffects()
		e.LofiMix = mix
		opts := graph.LiveOptions()
		opts.Noise = constant(1024, 1)
		g := newGraph(t, e, opts)
		g.Render(2048)
		want := mix * mix * 0.004
		if got := g.Taps().Lofi.Levels().Peak[0]; math.Abs(float64(got)-want) > 1e-6 {
			t.Errorf("lofi noise floor at mix %v = %v, want %v", mix, got, want)
		}
	}
}
