package engine

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/dsp"
)

type (
	// RecordState is the state of the sample recorder.
	RecordState int

	// Input is a source of audio to record, such as a microphone.
	Input interface {
		Open(sampleRate int) (InputStream, error)
	}

	// InputStream delivers mono audio at the sample rate it was opened with.
	// Read blocks until some frames are available and returns io.EOF at the
	// end of the input. Close unblocks a pending Read.
	InputStream interface {
		Read(block []float32) (int, error)
		Close() error
	}

	recorder struct {
		op sync.Mutex // serializes StartRecording and StopRecording

		mu     sync.Mutex // guards the fields below
		state  RecordState
		blocks [][]float32
		stream InputStream
		stop   chan struct{}
		done   chan struct{}
	}
)

const (
	RecordIdle RecordState = iota
	RecordCountingDown
	RecordRecording
	RecordFinalizing
)

var (
	errNoInput          = errors.New("no recording input")
	errAlreadyRecording = errors.New("already recording")
)

func (s RecordState) String() string {
	switch s {
	case RecordIdle:
		return "idle"
	case RecordCountingDown:
		return "counting down"
	case RecordRecording:
		return "recording"
	case RecordFinalizing:
		return "finalizing"
	}
	return "unknown"
}

func (e *Engine) RecordState() RecordState {
	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()
	return e.rec.state
}

// StartRecording opens the input and starts capturing blocks for the sample
// voice. If the input cannot be opened, the error wraps
// cl607.ErrPermissionDenied, the recorder returns to idle and the sample voice
// is left unchanged.
func (e *Engine) StartRecording() error {
	if !e.ready.Load() {
		return errNotReady
	}
	e.rec.op.Lock()
	defer e.rec.op.Unlock()
	e.rec.mu.Lock()
	if e.rec.state != RecordIdle {
		e.rec.mu.Unlock()
		e.logger.Warn("StartRecording ignored", "state", e.rec.state)
		return errAlreadyRecording
	}
	e.rec.state = RecordCountingDown
	e.rec.blocks = nil
	e.rec.mu.Unlock()

	var stream InputStream
	err := errNoInput
	if e.cfg.Input != nil {
		stream, err = e.cfg.Input.Open(e.sampleRate)
	}

	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()
	if err != nil {
		e.rec.state = RecordIdle
		e.logger.Warn("recording input unavailable", "err", err)
		return fmt.Errorf("%w: %v", cl607.ErrPermissionDenied, err)
	}
	e.rec.stream = stream
	e.rec.stop = make(chan struct{})
	e.rec.done = make(chan struct{})
	e.rec.state = RecordRecording
	go e.pump(stream, e.rec.stop, e.rec.done)
	e.logger.Info("recording started")
	return nil
}

// pump reads the input block by block until it ends or the recording stops.
func (e *Engine) pump(stream InputStream, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	block := make([]float32, dsp.Quantum)
	for {
		n, err := stream.Read(block)
		// a block read before Close belongs to the recording
		e.CaptureBlock(block[:n])
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.logger.Warn("recording input failed", "err", err)
			}
			return
		}
		select {
		case <-stop:
			return
		default:
		}
	}
}

// CaptureBlock appends a copy of one block of input to the recording. Inputs
// that push audio from a callback may call it directly. Blocks arriving while
// the recording is finalized still count; blocks arriving in any other state
// are dropped.
func (e *Engine) CaptureBlock(block []float32) {
	e.rec.mu.Lock()
	defer e.rec.mu.Unlock()
	if len(block) == 0 || e.rec.state != RecordRecording && e.rec.state != RecordFinalizing {
		return
	}
	e.rec.blocks = append(e.rec.blocks, append([]float32(nil), block...))
}

// StopRecording closes the input and concatenates the captured blocks, in
// order, into the new sample voice. It blocks until the input has delivered
// its last block and returns the number of frames installed. An empty
// recording leaves the sample voice unchanged.
func (e *Engine) StopRecording() (frames int, err error) {
	e.rec.op.Lock()
	defer e.rec.op.Unlock()
	e.rec.mu.Lock()
	if e.rec.state != RecordRecording {
		e.rec.mu.Unlock()
		return 0, nil
	}
	e.rec.state = RecordFinalizing
	stream, stop, done := e.rec.stream, e.rec.stop, e.rec.done
	e.rec.stream, e.rec.stop, e.rec.done = nil, nil, nil
	e.rec.mu.Unlock()

	close(stop)
	if cerr := stream.Close(); cerr != nil {
		e.logger.Warn("closing recording input failed", "err", cerr)
	}
	<-done

	e.rec.mu.Lock()
	blocks := e.rec.blocks
	e.rec.blocks = nil
	e.rec.mu.Unlock()

	buf := concat(blocks)
	if len(buf) > 0 {
		err = e.bank.SetSample(buf)
	}

	e.rec.mu.Lock()
	e.rec.state = RecordIdle
	e.rec.mu.Unlock()
	e.logger.Info("recording stopped", "frames", len(buf), "blocks", len(blocks))
	if err != nil {
		return 0, err
	}
	return len(buf), nil
}

func concat(blocks [][]float32) []float32 {
	n := 0
	for _, b := range blocks {
		n += len(b)
	}
	ret := make([]float32, 0, n)
	for _, b := range blocks {
		ret = append(ret, b...)
	}
	return ret
}
