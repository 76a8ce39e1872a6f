package cl607_test

import (
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/cl607/cl607"
)

func TestBufferSource(t *testing.T) {
	b := cl607.AudioBuffer{{1, 1}, {2, 2}, {3, 3}}
	src := b.Source()
	block := make(cl607.AudioBuffer, 2)
	if err := src(block); err != nil {
		t.Fatalf("first block failed: %v", err)
	}
	if !reflect.DeepEqual(block, cl607.AudioBuffer{{1, 1}, {2, 2}}) {
		t.Errorf("first block = %v", block)
	}
	if err := src(block); err != nil {
		t.Fatalf("second block failed: %v", err)
	}
	if !reflect.DeepEqual(block, cl607.AudioBuffer{{3, 3}, {0, 0}}) {
		t.Errorf("second block = %v, want the last frame padded with silence", block)
	}
	if err := src(block); !errors.Is(err, io.EOF) {
		t.Errorf("source past the end returned %v, want io.EOF", err)
	}
}

func TestMono(t *testing.T) {
	got := cl607.AudioBuffer{{1, 0}, {0.5, 0.5}}.Mono()
	if want := []float32{0.5, 0.5}; !reflect.DeepEqual(got, want) {
		t.Errorf("Mono() = %v, want %v", got, want)
	}
}
