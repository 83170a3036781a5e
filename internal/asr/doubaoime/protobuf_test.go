package doubaoime

import "testing"

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<63 - 1, 1 << 63}
	for _, x := range cases {
		buf := putVarint(nil, x)
		got, n, err := readVarint(buf, 0)
		if err != nil {
			t.Fatalf("readVarint(%d): %v", x, err)
		}
		if n != len(buf) {
			t.Fatalf("readVarint(%d) consumed %d bytes, want %d", x, n, len(buf))
		}
		if got != x {
			t.Fatalf("round trip %d -> %d", x, got)
		}
	}
}

func TestDecodeFieldsSkipsUnknown(t *testing.T) {
	var buf []byte
	buf = putString(buf, 99, "ignored")
	buf = putString(buf, fieldToken, "abc")

	fields, err := decodeFields(buf)
	if err != nil {
		t.Fatalf("decodeFields: %v", err)
	}
	if got := firstString(fields, fieldToken); got != "abc" {
		t.Fatalf("token = %q, want abc", got)
	}
}

func TestDecodeFieldsUnexpectedWireType(t *testing.T) {
	// tag with field 1, wire type 5 (not varint/length-delimited).
	buf := []byte{(1 << 3) | 5}
	if _, err := decodeFields(buf); err == nil {
		t.Fatalf("expected error for unexpected wire type")
	}
}

func TestAsrRequestEncodeDecodeRoundTrip(t *testing.T) {
	reqs := []asrRequest{
		{
			token:       "tok",
			serviceName: "ASR",
			methodName:  "StartTask",
			payload:     `{"timestamp_ms":1,"extra":{}}`,
			requestID:   "req-1",
			frameState:  FrameFirst,
		},
		{
			token:       "tok",
			serviceName: "ASR",
			methodName:  "TaskRequest",
			payload:     `{"timestamp_ms":2,"extra":{}}`,
			audioData:   []byte{0x01, 0x02, 0x03, 0xff},
			requestID:   "req-2",
			frameState:  FrameMiddle,
		},
		{
			token:       "",
			serviceName: "ASR",
			methodName:  "FinishSession",
			payload:     "",
			requestID:   "req-3",
			frameState:  FrameLast,
		},
	}

	for _, want := range reqs {
		got, err := decodeRequest(want.encode())
		if err != nil {
			t.Fatalf("decodeRequest: %v", err)
		}
		if got.token != want.token || got.serviceName != want.serviceName ||
			got.methodName != want.methodName || got.payload != want.payload ||
			got.requestID != want.requestID || got.frameState != want.frameState {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
		if string(got.audioData) != string(want.audioData) {
			t.Fatalf("audioData mismatch: got %v, want %v", got.audioData, want.audioData)
		}
	}
}
