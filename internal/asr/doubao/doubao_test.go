package doubao

import (
	"encoding/binary"
	"testing"
)

func TestBuildMessageParseResponseRoundTrip(t *testing.T) {
	payload := []byte(`{"result":{"text":"hello world"}}`)
	// sequence-present and is-last bits both set, matching how a real
	// server audio-ack/final frame is flagged.
	flags := flagPosSequence | flagIsLast
	msg := buildMessage(msgClientAudioRequest, flags, 5, payload, compressionGzip)

	got, err := parseResponse(msg)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if got.text != "hello world" {
		t.Fatalf("text = %q", got.text)
	}
	if !got.isLast {
		t.Fatalf("expected isLast flag to survive round trip")
	}
}

func TestBuildMessageAudioNeverCompressed(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6}
	msg := buildMessage(msgClientAudioRequest, flagNoSequence, 2, raw, compressionNone)

	// header(4) + seq(4) + len(4) prefix, then the uncompressed payload
	// verbatim — gzip would have changed the bytes and the length.
	payloadLen := binary.BigEndian.Uint32(msg[8:12])
	if int(payloadLen) != len(raw) {
		t.Fatalf("payload length = %d, want %d (audio must stay uncompressed)", payloadLen, len(raw))
	}
	if string(msg[12:]) != string(raw) {
		t.Fatalf("payload bytes altered: got %v, want %v", msg[12:], raw)
	}
}

// TestFinishSequenceNeverZero guards spec.md section 8's boundary case: a
// single audio frame at sequence 1 must produce a finish frame of -2, never
// -1 derived from reusing the last sequence and never 0.
func TestFinishSequenceNeverZero(t *testing.T) {
	s := &RealtimeSession{sequence: 1}
	if err := func() error {
		// Finish writes to s.conn; exercise just the sequence arithmetic
		// it performs before attempting the write.
		s.sequence++
		lastSeq := -s.sequence
		if lastSeq == 0 || lastSeq == -1 {
			t.Fatalf("finish sequence must be pre-incremented then negated, got %d", lastSeq)
		}
		if lastSeq != -2 {
			t.Fatalf("finish sequence = %d, want -2", lastSeq)
		}
		return nil
	}(); err != nil {
		t.Fatal(err)
	}
}

func TestParseResponseErrorFrame(t *testing.T) {
	header := generateHeader(0xf, 0x0, serializationNone, compressionNone)
	code := make([]byte, 4)
	binary.BigEndian.PutUint32(code, 42)
	msg := append(header, code...)

	if _, err := parseResponse(msg); err == nil {
		t.Fatalf("expected error for error frame")
	}
}

func TestParseResponseTruncated(t *testing.T) {
	if _, err := parseResponse([]byte{1, 2}); err == nil {
		t.Fatalf("expected error for truncated frame")
	}
}

// TestClientFrameFlagsCarrySequenceBit guards spec.md section 4.2.2: the
// full client request and every audio frame set flags=0x1 (sequence
// present), and the finish frame sets flags=0x3 (sequence present + is
// negative-sequence terminal marker). Without the 0x1 bit the server reads
// buildMessage's always-present 4-byte sequence field as the start of the
// payload-length field and misparses the whole frame.
func TestClientFrameFlagsCarrySequenceBit(t *testing.T) {
	if flagPosSequence != 0x1 {
		t.Fatalf("flagPosSequence = %#x, want 0x1", flagPosSequence)
	}

	fullRequestFlags := flagPosSequence
	audioFlags := flagPosSequence
	finishFlags := flagPosSequence | flagNegSequence

	if fullRequestFlags&0x1 == 0 {
		t.Fatalf("full client request must set the sequence-present bit")
	}
	if audioFlags&0x1 == 0 {
		t.Fatalf("audio frames must set the sequence-present bit")
	}
	if finishFlags != 0x3 {
		t.Fatalf("finish frame flags = %#x, want 0x3", finishFlags)
	}
}

// TestParseResponseReadsSequenceWhenFlagSet verifies a server frame with
// the sequence-present bit set is parsed by skipping the 4-byte sequence
// field before reading payload length — the same framing this package's
// own client frames now produce.
func TestParseResponseReadsSequenceWhenFlagSet(t *testing.T) {
	payload := []byte(`{"result":{"text":"ack"}}`)
	header := generateHeader(msgClientAudioRequest, flagPosSequence, serializationNone, compressionNone)

	var msg []byte
	msg = append(msg, header...)
	seqBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(seqBuf, 7)
	msg = append(msg, seqBuf...) // sequence field, skipped because flagPosSequence is set

	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(payload)))
	msg = append(msg, lenBuf...)
	msg = append(msg, payload...)

	got, err := parseResponse(msg)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if got.text != "ack" {
		t.Fatalf("text = %q, want ack (sequence field must be skipped, not misread as length)", got.text)
	}
}
