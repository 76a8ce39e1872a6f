package oto_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/oto"
)

func TestFramesToFloat32LE(t *testing.T) {
	frames := cl607.AudioBuffer{{0.5, -0.25}, {1, 0}}
	dst := make([]byte, 20) // room for two frames and a half
	if n := oto.FramesToFloat32LE(dst, frames); n != 16 {
		t.Fatalf("wrote %d bytes, want 16", n)
	}
	want := []float32{0.5, -0.25, 1, 0}
	for i, w := range want {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(dst[4*i:])); got != w {
			t.Errorf("sample %d = %v, want %v", i, got, w)
		}
	}
	if n := oto.FramesToFloat32LE(make([]byte, 8), frames); n != 8 {
		t.Errorf("a short destination should take one frame, wrote %d bytes", n)
	}
}
