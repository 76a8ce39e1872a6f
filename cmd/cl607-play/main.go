package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/cmd"
	"github.com/cl607/cl607/engine"
	"github.com/cl607/cl607/oto"
	"github.com/cl607/cl607/sequencer"
	"github.com/cl607/cl607/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	versionFlag := flag.Bool("v", false, "Print version.")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error.")
	bars := flag.Int("bars", 0, "Stop after this many bars. By default, play until interrupted.")
	chain := flag.String("chain", "", "Chain mode: off, ab, aab, aaab or aabb. Defaults to ab when pattern B has notes.")
	kit := flag.String("kit", "", "Use the named kit preset instead of the kit of the session.")
	sample := flag.String("sample", "", "Load a .wav file into the sample voice.")
	record := flag.String("record", "", "Record a .wav file into the sample voice while playing, as if from a microphone.")
	randomize := flag.Float64("randomize", 0, "Randomize intensity, 0..10. Zero disables the randomizer.")
	midiIn := flag.String("midi", "", "Play the voices from the first MIDI input whose name starts with this prefix.")
	midiFirst := flag.Bool("midi-first", false, "Play the voices from the first MIDI input found.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.Banner("cl607-play"))
		os.Exit(0)
	}
	if flag.NArg() > 1 || *help {
		flag.Usage()
		os.Exit(0)
	}
	logger, err := cmd.SetupLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := play(logger, options{
		file:      flag.Arg(0),
		bars:      *bars,
		chain:     *chain,
		kit:       *kit,
		sample:    *sample,
		record:    *record,
		randomize: *randomize,
		midi:      *midiIn,
		midiFirst: *midiFirst,
	}); err != nil {
		logger.Error("playback failed", "err", err)
		os.Exit(1)
	}
}

type options struct {
	file      string
	bars      int
	chain     string
	kit       string
	sample    string
	record    string
	randomize float64
	midi      string
	midiFirst bool
}

func play(logger *slog.Logger, opts options) error {
	session := cl607.DefaultSession()
	if opts.file != "" {
		f, err := os.Open(opts.file)
		if err != nil {
			return fmt.Errorf("could not read file %v: %w", opts.file, err)
		}
		session, err = cl607.ReadSession(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("could not parse %v: %w", opts.file, err)
		}
	}
	if opts.kit != "" {
		k, err := cl607.LoadPreset(opts.kit)
		if err != nil {
			return err
		}
		session.Kit = k
	}
	session = session.Clamp()
	mode := sequencer.ChainOff
	if session.Patterns.B.HasNotes() {
		mode = sequencer.ChainAB
	}
	if opts.chain != "" {
		var err error
		if mode, err = sequencer.ParseChainMode(opts.chain); err != nil {
			return err
		}
	}

	cfg := engine.Config{
		Kit:     session.Kit,
		Effects: session.Effects,
		Logger:  logger,
	}
	if opts.record != "" {
		cfg.Input = engine.FileInput{Path: opts.record, Realtime: true}
	}
	e := engine.New(cfg)
	if _, err := e.Setup(session.Kit.Kick); err != nil {
		return err
	}
	if err := e.ApplySession(&session); err != nil {
		return err
	}
	if opts.sample != "" {
		f, err := os.Open(opts.sample)
		if err != nil {
			return err
		}
		err = e.LoadSample(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("could not load sample %v: %w", opts.sample, err)
		}
	}

	audioContext, err := oto.NewContext(e.SampleRate())
	if err != nil {
		return fmt.Errorf("could not acquire oto AudioContext: %w", err)
	}
	defer audioContext.Close()
	output := audioContext.Play(e.Process)
	defer output.Close()

	pads := cmd.NewPads(e, logger)
	defer pads.Close()
	if err := pads.TryToOpenBy(opts.midi, opts.midiFirst); err != nil {
		logger.Warn("no MIDI pads", "err", err, "inputs", pads.InputNames())
	}

	if opts.record != "" {
		if err := e.StartRecording(); err != nil {
			logger.Warn("recording not started", "err", err)
		}
	}

	scheduler := sequencer.NewScheduler(e, e.Play, sequencer.SchedulerConfig{Logger: logger})
	snap := sequencer.SnapshotOf(&session)
	snap.Randomize = opts.randomize > 0
	snap.Intensity = opts.randomize
	scheduler.Start(snap, cl607.PatternA, mode)
	logger.Info("playing", "tempo", session.Tempo, "swing", session.Swing, "chain", mode)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	var limit <-chan time.Time
	if opts.bars > 0 {
		d := time.Duration(float64(opts.bars) * sequencer.MeasureDuration(session.Tempo) * float64(time.Second))
		limit = time.After(d)
	}
	last := cl607.PatternA
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-limit:
			break loop
		case pos := <-scheduler.Positions():
			if pos.Pattern != last {
				logger.Debug("pattern switched", "pattern", pos.Pattern)
				last = pos.Pattern
			}
		}
	}
	scheduler.Stop()

	if opts.record != "" {
		frames, err := e.StopRecording()
		if err != nil {
			logger.Warn("recording failed", "err", err)
		} else {
			logger.Info("recorded sample", "frames", frames)
		}
	}
	// let the last notes ring out
	time.Sleep(500 * time.Millisecond)
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "CL-607 drum machine: plays a session file through the default audio output.\nUsage: %s [flags] [session.yml|session.json]\n", os.Args[0])
	flag.PrintDefaults()
}
