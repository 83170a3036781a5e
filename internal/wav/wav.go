// Package wav encodes raw PCM16 mono samples into a minimal RIFF/WAVE
// container, the format every HTTP ASR fallback endpoint expects.
package wav

import (
	"encoding/binary"
)

// Encode wraps mono 16-bit PCM samples in a canonical 44-byte WAV header.
func Encode(samples []int16, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	byteRate := sampleRate * 1 * 16 / 8
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	blockAlign := 1 * 16 / 8
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[44+i*2:46+i*2], uint16(s))
	}

	return buf
}

// ExtractPCM scans a RIFF/WAVE byte stream for the "data" chunk and returns
// its raw bytes, tolerating extra chunks (LIST/INFO/etc.) between the
// header and the audio payload.
func ExtractPCM(content []byte) []byte {
	if len(content) < 12 {
		return nil
	}

	offset := 12
	for offset+8 <= len(content) {
		chunkID := string(content[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(content[offset+4 : offset+8]))
		offset += 8

		if chunkID == "data" {
			available := len(content) - offset
			if chunkSize > available {
				chunkSize = available
			}
			return content[offset : offset+chunkSize]
		}

		offset += chunkSize
	}
	return nil
}
