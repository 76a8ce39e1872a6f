package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/cmd"
	"github.com/cl607/cl607/engine"
	"github.com/cl607/cl607/oto"
	"github.com/cl607/cl607/render"
	"github.com/cl607/cl607/version"
	"github.com/cl607/cl607/voice"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the working directory.")
	nameTemplate := flag.String("name", cmd.DefaultNameTemplate, "Template of the output file name. Fields: .Name .Tempo .Swing .Kit .Chains; sprig functions are available.")
	kitName := flag.String("kit", "", "Render with the named kit preset instead of the kit of each session.")
	sampleRate := flag.Int("rate", engine.DefaultSampleRate, "Sample rate of the rendered files.")
	list := flag.Bool("list", false, "List the kit presets and exit.")
	play := flag.Bool("p", false, "Also play each render after writing it.")
	loudness := flag.Bool("loudness", false, "Print the integrated loudness and true peak of each render.")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn or error.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.Banner("cl607-render"))
		os.Exit(0)
	}
	if *list {
		if err := cmd.ListPresets(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "could not list presets: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	logger, err := cmd.SetupLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	var kit *cl607.Kit
	if *kitName != "" {
		k, err := cl607.LoadPreset(*kitName)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		kit = &k
	}
	var audioContext cl607.AudioContext
	if *play {
		audioContext, err = oto.NewContext(*sampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire oto AudioContext: %v\n", err)
			os.Exit(1)
		}
		defer audioContext.Close()
	}
	rng := rand.New(rand.NewSource(rand.Int63()))
	process := func(filename string) error {
		output := func(name string, contents []byte) error {
			dir := *directory
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
				}
			}
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			f := filepath.Join(dir, name)
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			logger.Info("wrote render", "file", f, "bytes", len(contents))
			return nil
		}
		file, err := os.Open(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %v", filename, err)
		}
		session, err := cl607.ReadSession(file)
		file.Close()
		if err != nil {
			return err
		}
		label := "session"
		if kit != nil {
			session.Kit = *kit
			label = *kitName
		}
		bank, err := voice.NewBank(*sampleRate, session.Kit, rng, logger)
		if err != nil {
			return fmt.Errorf("could not render the voices: %v", err)
		}
		name, err := cmd.OutputName(*nameTemplate, filename, &session, label)
		if err != nil {
			return err
		}
		buf, err := render.RenderBuffer(bank, session, *sampleRate)
		if err != nil {
			return err
		}
		data, err := buf.Wav(*sampleRate)
		if err != nil {
			return fmt.Errorf("could not generate .wav file: %v", err)
		}
		if err := output(name, data); err != nil {
			return err
		}
		if *loudness {
			l := render.Loudness(buf, *sampleRate)
			fmt.Printf("%v: %.1f LUFS integrated, %.1f LUFS max short-term, %.1f dBTP\n", name, l.Integrated, l.MaxShortTerm, max(l.TruePeak[0], l.TruePeak[1]))
		}
		if *play {
			waiter := audioContext.Play(buf.Source())
			waiter.Wait()
			return waiter.Close()
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			var files []string
			for _, pattern := range []string{"*.yml", "*.yaml", "*.json"} {
				matches, err := filepath.Glob(filepath.Join(param, pattern))
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not glob the path %v for %v files: %v\n", param, pattern, err)
					retval = 1
					continue
				}
				files = append(files, matches...)
			}
			for _, file := range files {
				if err := process(file); err != nil {
					fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
					retval = 1
				}
			}
		} else {
			if err := process(param); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "CL-607 command line utility for rendering .yml/.json session files to .wav.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
