// Package checksum implements the two integrity checks used by the PNG
// container: CRC-32 over chunk type+payload and Adler-32 over the
// uncompressed zlib payload.
package checksum

// ISO 3309 polynomial, reflected.
const crcPolynomial = 0xedb88320

var crcTable = makeCrcTable()

func makeCrcTable() [256]uint32 {
	var t [256]uint32
	for n := 0; n < 256; n++ {
		c := uint32(n)
		for k := 0; k < 8; k++ {
			if c&1 != 0 {
				c = crcPolynomial ^ (c >> 1)
			} else {
				c >>= 1
			}
		}
		t[n] = c
	}
	return t
}

// UpdateCrc32 continues a running (already finalized) CRC-32 with data.
// UpdateCrc32(0, p) == Crc32(p).
func UpdateCrc32(crc uint32, data []byte) uint32 {
	c := ^crc
	for _, b := range data {
		c = crcTable[byte(c)^b] ^ (c >> 8)
	}
	return ^c
}

// Crc32 returns the CRC-32 of data.
func Crc32(data []byte) uint32 {
	return UpdateCrc32(0, data)
}

// Crc32Concat returns the CRC-32 of first followed by second without
// building a combined buffer.
func Crc32Concat(first, second []byte) uint32 {
	return UpdateCrc32(UpdateCrc32(0, first), second)
}
