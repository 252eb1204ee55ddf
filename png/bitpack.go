package png

import "bytes"

// bitWriter packs fields MSB-first into a bytes.Buffer.
type bitWriter struct {
	buf  *bytes.Buffer
	acc  byte
	nbit uint8 // bits already used in acc (0..7)
}

func newBitWriter(buf *bytes.Buffer) *bitWriter {
	return &bitWriter{buf: buf}
}

// writeBits writes the low n bits of v, most significant first. n <= 8.
func (bw *bitWriter) writeBits(v byte, n uint8) {
	for i := int(n) - 1; i >= 0; i-- {
		if v&(1<<uint(i)) != 0 {
			bw.acc |= 1 << (7 - bw.nbit)
		}
		bw.nbit++
		if bw.nbit == 8 {
			bw.buf.WriteByte(bw.acc)
			bw.acc = 0
			bw.nbit = 0
		}
	}
}

// writeByte writes a whole byte, respecting the current bit alignment.
func (bw *bitWriter) writeByte(b byte) {
	if bw.nbit == 0 {
		bw.buf.WriteByte(b)
		return
	}
	bw.writeBits(b, 8)
}

// flush pads the partial byte with zero bits and writes it.
func (bw *bitWriter) flush() {
	if bw.nbit == 0 {
		return
	}
	bw.buf.WriteByte(bw.acc)
	bw.acc = 0
	bw.nbit = 0
}
