package wav

import "testing"

func TestEncodeHeaderFields(t *testing.T) {
	samples := []int16{1, -1, 1000, -1000}
	data := Encode(samples, 16000)

	if len(data) != 44+len(samples)*2 {
		t.Fatalf("unexpected length %d", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE markers")
	}
}

func TestExtractPCMRoundTrip(t *testing.T) {
	samples := []int16{5, -5, 42, -42, 100}
	encoded := Encode(samples, 16000)

	pcm := ExtractPCM(encoded)
	if len(pcm) != len(samples)*2 {
		t.Fatalf("extracted %d bytes, want %d", len(pcm), len(samples)*2)
	}
}
