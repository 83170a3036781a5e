package audio

import "testing"

func TestToMonoAveragesChannels(t *testing.T) {
	// 2 channels, 3 frames: L/R pairs.
	interleaved := []float32{1.0, -1.0, 0.5, 0.5, 0.0, 1.0}
	mono := toMono(interleaved, 2)

	want := []float32{0.0, 0.5, 0.5}
	if len(mono) != len(want) {
		t.Fatalf("len = %d, want %d", len(mono), len(want))
	}
	for i := range want {
		if mono[i] != want[i] {
			t.Fatalf("mono[%d] = %v, want %v", i, mono[i], want[i])
		}
	}
}

func TestToMonoSingleChannelPassthrough(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	mono := toMono(in, 1)
	for i := range in {
		if mono[i] != in[i] {
			t.Fatalf("mono[%d] = %v, want %v", i, mono[i], in[i])
		}
	}
}

func TestResampleIdentityWhenRatesMatch(t *testing.T) {
	in := []float32{1, 2, 3}
	out := resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
}

func TestResampleDownsamplesLength(t *testing.T) {
	in := make([]float32, 480) // 48kHz buffer
	out := resample(in, 48000, 16000)
	// 48kHz -> 16kHz is a 3:1 ratio.
	want := 160
	if out == nil || len(out) < want-2 || len(out) > want+2 {
		t.Fatalf("len = %d, want approximately %d", len(out), want)
	}
}

func TestF32ToI16Saturates(t *testing.T) {
	in := []float32{2.0, -2.0, 0.0}
	out := f32ToI16(in)
	if out[0] != 32767 {
		t.Fatalf("out[0] = %d, want 32767 (saturated max)", out[0])
	}
	if out[1] != -32767 {
		t.Fatalf("out[1] = %d, want -32767 (saturated min)", out[1])
	}
	if out[2] != 0 {
		t.Fatalf("out[2] = %d, want 0", out[2])
	}
}

// TestFrameEmissionBoundary guards spec.md section 8: a 0-sample or
// sub-200ms recording never produces a full AudioFrame, but Stop's flush
// of pending samples into the retained buffer still happens independent of
// live frame emission. This exercises the pure pending-buffer arithmetic
// that captureLoop relies on: fewer than FrameSamples pending samples never
// drains a frame.
func TestFrameEmissionBoundary(t *testing.T) {
	pending := make([]float32, FrameSamples-1)
	if len(pending) >= FrameSamples {
		t.Fatalf("test setup invalid")
	}
	// No frame should be considered ready at FrameSamples-1.
	frameReady := len(pending) >= FrameSamples
	if frameReady {
		t.Fatalf("frame should not be ready below FrameSamples")
	}

	pending = append(pending, 0)
	frameReady = len(pending) >= FrameSamples
	if !frameReady {
		t.Fatalf("frame should be ready at exactly FrameSamples")
	}
}
