// Package wire holds the big-endian byte helpers shared by the framer and
// the header compressor.
package wire

// Uint16 reads a 2-byte big-endian integer.
func Uint16(b []byte) uint16 {
	_ = b[1]
	return uint16(b[0])<<8 | uint16(b[1])
}

// PutUint16 writes a 2-byte big-endian integer.
func PutUint16(b []byte, v uint16) {
	_ = b[1]
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

// Uint32 reads a 4-byte big-endian integer.
func Uint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// PutUint32 writes a 4-byte big-endian integer.
func PutUint32(b []byte, v uint32) {
	_ = b[3]
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// U31 reads a 4-byte big-endian integer and clears the reserved top bit.
func U31(b []byte) uint32 {
	return Uint32(b) &^ (1 << 31)
}

// PutU31 writes v as a 4-byte big-endian integer with the top bit cleared.
func PutU31(b []byte, v uint32) {
	PutUint32(b, v&^(1<<31))
}
