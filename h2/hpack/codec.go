package hpack

import "io"

// writeInt appends i to dst using the N-bit-prefix variable-length
// integer coding of §4.2: if i fits in the N-bit prefix it is written as
// a single byte; otherwise the prefix holds 2^N-1 and i-(2^N-1) follows
// as base-128 bytes with the continuation bit (0x80) set on every byte
// but the last. N=0 means the prefix reserves no bits at all (used for
// the HEADERS-series substitution index and for string lengths): the
// value is written purely as continuation bytes with no leading byte.
//
// Verified against the draft's own example: N=5, I=1337 -> 1F 9A 0A;
// N=0, I=1337 -> B9 0A.
func writeInt(dst []byte, n uint, i uint64) []byte {
	max := uint64(1)<<n - 1

	if n > 0 {
		if i < max {
			return append(dst, byte(i))
		}
		dst = append(dst, byte(max))
		i -= max
	}

	for i >= 128 {
		dst = append(dst, byte(i%128)+128)
		i /= 128
	}
	return append(dst, byte(i))
}

// readInt is the inverse of writeInt: it consumes the N-bit prefix (if
// any) from the front of b and however many continuation bytes follow,
// returning the remaining bytes, the decoded value, and an error if b
// runs out before a terminating byte.
func readInt(n uint, b []byte) (rest []byte, value uint64, err error) {
	max := uint64(1)<<n - 1

	if n > 0 {
		if len(b) == 0 {
			return b, 0, io.ErrUnexpectedEOF
		}
		value = uint64(b[0]) & max
		b = b[1:]
		if value < max {
			return b, value, nil
		}
	}

	var m uint64 = 1
	for {
		if len(b) == 0 {
			return b, 0, io.ErrUnexpectedEOF
		}
		cb := b[0]
		b = b[1:]
		value += uint64(cb&0x7f) * m
		if cb&0x80 == 0 {
			break
		}
		m *= 128
	}
	return b, value, nil
}

// writeString appends s to dst as a §4.2 string: a 0-prefix integer
// length followed by the raw UTF-8 bytes. Verified against the draft's
// example: "abcdefghij" -> 0A 61 62 63 64 65 66 67 68 69 6A.
func writeString(dst []byte, s string) []byte {
	dst = writeInt(dst, 0, uint64(len(s)))
	return append(dst, s...)
}

// readString is the inverse of writeString.
func readString(b []byte) (rest []byte, s string, err error) {
	rest, n, err := readInt(0, b)
	if err != nil {
		return b, "", err
	}
	if uint64(len(rest)) < n {
		return b, "", io.ErrUnexpectedEOF
	}
	return rest[n:], string(rest[:n]), nil
}
