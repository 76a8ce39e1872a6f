package engine

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/dsp"
)

type (
	// FileInput is an Input that plays a .wav file into the recorder, as if it
	// came from a microphone. With Realtime set, reads are paced like live
	// audio; otherwise the whole file is available at once.
	FileInput struct {
		Path     string
		Realtime bool
	}

	fileStream struct {
		data   []float32
		ticker *time.Ticker

		closed    chan struct{}
		closeOnce sync.Once
	}
)

func (f FileInput) Open(sampleRate int) (InputStream, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	mono, sr, err := cl607.DecodeWav(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	s := &fileStream{
		data:   dsp.Resample(mono, sr, sampleRate),
		closed: make(chan struct{}),
	}
	if f.Realtime {
		s.ticker = time.NewTicker(time.Duration(float64(time.Second) * dsp.Quantum / float64(sampleRate)))
	}
	return s, nil
}

func (s *fileStream) Read(block []float32) (int, error) {
	if s.ticker != nil {
		select {
		case <-s.closed:
			return 0, io.EOF
		case <-s.ticker.C:
		}
	} else {
		select {
		case <-s.closed:
			return 0, io.EOF
		default:
		}
	}
	if len(s.data) == 0 {
		return 0, io.EOF
	}
	n := copy(block, s.data)
	s.data = s.data[n:]
	return n, nil
}

func (s *fileStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.ticker != nil {
			s.ticker.Stop()
		}
	})
	return nil
}
