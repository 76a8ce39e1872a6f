//go:build plugin

package main

import (
	"bytes"
	"log/slog"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/engine"
	"pipelined.dev/audio/vst2"
)

const (
	PLUGIN_ID   = 'C' | '6'<<8 | '0'<<16 | '7'<<24
	PLUGIN_NAME = "CL-607"
)

// VSTIProcessContext collects the MIDI events of one processing block.
type VSTIProcessContext struct {
	events []vst2.MIDIEvent
}

// trigger plays the pads of the collected events at their offsets into the
// block, which starts at time start.
func (c *VSTIProcessContext) trigger(e *engine.Engine, start float64) {
	if len(c.events) == 0 {
		return
	}
	kit := e.Kit()
	for _, ev := range c.events {
		hit, ok := cl607.PadForMessage(ev.Data[:3])
		if !ok {
			continue
		}
		when := start + float64(ev.DeltaFrames)/float64(e.SampleRate())
		e.Play(hit.Instrument, when, hit.Volume, kit.Instruments[hit.Instrument])
	}
	c.events = c.events[:0] // reset buffer, but keep the allocated memory
}

func init() {
	var (
		version = int32(100)
	)
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		logger := slog.Default()
		session := cl607.DefaultSession()
		e := engine.New(engine.Config{Kit: session.Kit, Effects: session.Effects, Logger: logger})
		if _, err := e.Setup(session.Kit.Kick); err != nil {
			logger.Error("engine setup failed", "err", err)
		}
		e.SetMasterVolume(session.MasterVolume)
		var context VSTIProcessContext
		buf := make(cl607.AudioBuffer, 1024)
		return vst2.Plugin{
				UniqueID:       PLUGIN_ID,
				Version:        version,
				InputChannels:  0,
				OutputChannels: 2,
				Name:           PLUGIN_NAME,
				Vendor:         "cl607",
				Category:       vst2.PluginCategorySynth,
				Flags:          vst2.PluginIsSynth,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					left := out.Channel(0)
					right := out.Channel(1)
					if len(buf) < out.Frames {
						buf = append(buf, make(cl607.AudioBuffer, out.Frames-len(buf))...)
					}
					buf = buf[:out.Frames]
					context.trigger(e, e.Now())
					if err := e.Process(buf); err != nil {
						buf.Fill([2]float32{})
					}
					for i := 0; i < out.Frames; i++ {
						left[i], right[i] = buf[i][0], buf[i][1]
					}
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					for i := 0; i < ev.NumEvents(); i++ {
						a := ev.Event(i)
						switch v := a.(type) {
						case *vst2.MIDIEvent:
							context.events = append(context.events, *v)
						}
					}
				},
				GetChunkFunc: func(isPreset bool) []byte {
					s := session
					s.Kit = e.Kit()
					s.Effects = e.Effects()
					s.MasterVolume = e.MasterVolume()
					var b bytes.Buffer
					if err := cl607.WriteSession(&b, &s); err != nil {
						logger.Error("saving plugin state failed", "err", err)
						return nil
					}
					return b.Bytes()
				},
				SetChunkFunc: func(data []byte, isPreset bool) {
					s, err := cl607.ReadSession(bytes.NewReader(data))
					if err != nil {
						logger.Error("loading plugin state failed", "err", err)
						return
					}
					if err := e.ApplySession(&s); err != nil {
						logger.Error("applying plugin state failed", "err", err)
						return
					}
					session = s
				},
			}
	}
}

func main() {}
