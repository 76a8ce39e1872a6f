package oto

import (
	"encoding/binary"
	"math"

	"github.com/cl607/cl607"
)

const bytesPerFrame = 8 // two float32 channels

// FramesToFloat32LE writes the interleaved frames into dst as 32-bit float
// little-endian samples and returns the number of bytes written. Frames that
// do not fit are ignored.
func FramesToFloat32LE(dst []byte, frames cl607.AudioBuffer) int {
	n := min(len(frames), len(dst)/bytesPerFrame)
	for i, f := range frames[:n] {
		binary.LittleEndian.PutUint32(dst[i*8:], math.Float32bits(f[0]))
		binary.LittleEndian.PutUint32(dst[i*8+4:], math.Float32bits(f[1]))
	}
	return n * bytesPerFrame
}
