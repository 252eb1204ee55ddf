package checksum

const adlerMod = 65521

// nmax is the largest n such that 255n(n+1)/2 + (n+1)(adlerMod-1) fits in 32 bits,
// so the accumulators only need reducing once per block.
const nmax = 5552

// Adler32 returns the Adler-32 checksum of data.
func Adler32(data []byte) uint32 {
	return Adler32N(data, len(data))
}

// Adler32N returns the Adler-32 checksum of the first length bytes of data.
// A length beyond len(data) is clamped.
func Adler32N(data []byte, length int) uint32 {
	if length < 0 {
		length = 0
	}
	if length > len(data) {
		length = len(data)
	}
	data = data[:length]

	s1, s2 := uint32(1), uint32(0)
	for len(data) > 0 {
		block := data
		if len(block) > nmax {
			block = block[:nmax]
		}
		data = data[len(block):]
		for _, b := range block {
			s1 += uint32(b)
			s2 += s1
		}
		s1 %= adlerMod
		s2 %= adlerMod
	}
	return s2<<16 | s1
}
