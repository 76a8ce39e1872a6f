package cl607

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Wav encodes the buffer as a 16-bit PCM stereo .wav file. Samples are
// clamped to [-1, 1] before quantization.
func (b AudioBuffer) Wav(sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("Wav failed: invalid sample rate %d", sampleRate)
	}
	out := &writeSeekBuffer{}
	enc := wav.NewEncoder(out, sampleRate, 16, 2, 1) // 1 = PCM
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           make([]int, 2*len(b)),
		SourceBitDepth: 16,
	}
	for i, frame := range b {
		intBuf.Data[2*i] = int(quantize16(frame[0]))
		intBuf.Data[2*i+1] = int(quantize16(frame[1]))
	}
	if err := enc.Write(intBuf); err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	return out.buf, nil
}

// Raw returns the interleaved samples without any header, either as float32
// or as 16-bit signed PCM.
func (b AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	var err error
	if pcm16 {
		int16data := make([]int16, 2*len(b))
		for i, frame := range b {
			int16data[2*i] = quantize16(frame[0])
			int16data[2*i+1] = quantize16(frame[1])
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, b)
	}
	if err != nil {
		return nil, fmt.Errorf("Raw failed: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeWav reads a PCM .wav file and returns it downmixed to mono, together
// with its sample rate.
func DecodeWav(r io.ReadSeeker) (mono []float32, sampleRate int, err error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("not a valid PCM .wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("could not decode .wav: %w", err)
	}
	channels := buf.Format.NumChannels
	bitDepth := int(dec.BitDepth)
	if channels <= 0 || bitDepth <= 0 {
		return nil, 0, fmt.Errorf("unsupported .wav format: %d channels, %d bits", channels, bitDepth)
	}
	scale := 1 / math.Pow(2, float64(bitDepth-1))
	frames := len(buf.Data) / channels
	mono = make([]float32, frames)
	for i := range mono {
		var sum int
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		mono[i] = float32(float64(sum) / float64(channels) * scale)
	}
	return mono, buf.Format.SampleRate, nil
}

func quantize16(v float32) int16 {
	v = max(-1, min(1, v))
	if v < 0 {
		return int16(v * 32768)
	}
	return int16(v * 32767)
}

// writeSeekBuffer is an in-memory io.WriteSeeker; the wav encoder seeks back
// to patch the chunk sizes when it is closed.
type writeSeekBuffer struct {
	buf []byte
	pos int
}

func (w *writeSeekBuffer) Write(p []byte) (int, error) {
	if end := w.pos + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("writeSeekBuffer.Seek: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("writeSeekBuffer.Seek: negative position")
	}
	w.pos = int(abs)
	return abs, nil
}
