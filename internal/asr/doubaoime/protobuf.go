package doubaoime

import "fmt"

// wire types used by the hand-rolled protobuf codec below. Only varint and
// length-delimited fields appear in the AsrRequest/AsrResponse wire model;
// a fixed32/fixed64 decoder is unnecessary and therefore not implemented.
const (
	wireVarint         = 0
	wireLengthDelim    = 2
	maxVarintBytes     = 10
)

// putVarint appends x to buf using the standard 7-bits-per-byte,
// high-bit-continuation protobuf varint encoding.
func putVarint(buf []byte, x uint64) []byte {
	for x >= 0x80 {
		buf = append(buf, byte(x)|0x80)
		x >>= 7
	}
	return append(buf, byte(x))
}

// putTag appends a protobuf field tag: (field_number << 3) | wire_type.
func putTag(buf []byte, field int, wireType int) []byte {
	return putVarint(buf, uint64(field)<<3|uint64(wireType))
}

// putString appends a length-delimited string field.
func putString(buf []byte, field int, s string) []byte {
	buf = putTag(buf, field, wireLengthDelim)
	buf = putVarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// putBytes appends a length-delimited bytes field.
func putBytes(buf []byte, field int, b []byte) []byte {
	buf = putTag(buf, field, wireLengthDelim)
	buf = putVarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// putInt appends a varint-encoded integer field.
func putInt(buf []byte, field int, v int64) []byte {
	buf = putTag(buf, field, wireVarint)
	return putVarint(buf, uint64(v))
}

// readVarint decodes a varint starting at offset, returning the value and
// the offset of the byte following it. It caps at 10 bytes (64 bits) per
// the protobuf wire format's own limit.
func readVarint(data []byte, offset int) (uint64, int, error) {
	var result uint64
	var shift uint
	start := offset
	for offset < len(data) {
		if offset-start >= maxVarintBytes {
			return 0, offset, fmt.Errorf("doubaoime: varint too long")
		}
		b := data[offset]
		result |= uint64(b&0x7f) << shift
		offset++
		if b&0x80 == 0 {
			return result, offset, nil
		}
		shift += 7
	}
	return 0, offset, fmt.Errorf("doubaoime: truncated varint")
}

// field is one decoded protobuf field: its field number, wire type, and
// (for varint fields) numeric value or (for length-delimited fields) raw
// bytes.
type field struct {
	number   int
	wireType int
	varint   uint64
	bytes    []byte
}

// decodeFields walks a protobuf message byte-by-byte, tolerating and
// skipping unknown fields of known wire type; an unexpected wire type
// aborts decoding with an error rather than silently misreading the rest
// of the message.
func decodeFields(data []byte) ([]field, error) {
	var fields []field
	offset := 0
	for offset < len(data) {
		tag, next, err := readVarint(data, offset)
		if err != nil {
			return nil, err
		}
		offset = next

		fieldNum := int(tag >> 3)
		wireType := int(tag & 0x7)

		switch wireType {
		case wireVarint:
			v, next, err := readVarint(data, offset)
			if err != nil {
				return nil, err
			}
			offset = next
			fields = append(fields, field{number: fieldNum, wireType: wireType, varint: v})
		case wireLengthDelim:
			length, next, err := readVarint(data, offset)
			if err != nil {
				return nil, err
			}
			offset = next
			if offset+int(length) > len(data) {
				return nil, fmt.Errorf("doubaoime: truncated length-delimited field %d", fieldNum)
			}
			b := data[offset : offset+int(length)]
			offset += int(length)
			fields = append(fields, field{number: fieldNum, wireType: wireType, bytes: b})
		default:
			return nil, fmt.Errorf("doubaoime: unexpected wire type %d on field %d", wireType, fieldNum)
		}
	}
	return fields, nil
}

func firstString(fields []field, number int) string {
	for _, f := range fields {
		if f.number == number && f.wireType == wireLengthDelim {
			return string(f.bytes)
		}
	}
	return ""
}

func firstBytes(fields []field, number int) []byte {
	for _, f := range fields {
		if f.number == number && f.wireType == wireLengthDelim {
			return f.bytes
		}
	}
	return nil
}

func firstVarint(fields []field, number int) uint64 {
	for _, f := range fields {
		if f.number == number && f.wireType == wireVarint {
			return f.varint
		}
	}
	return 0
}
