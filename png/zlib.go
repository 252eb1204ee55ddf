package png

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog"
	"github.com/svanichkin/gustave/internal/checksum"
)

// zlib framing around raw deflate: CMF, FLG, deflate data, Adler-32.
const (
	zlibDeflate    = 8
	zlibWindowBits = 15
	zlibCMF        = (zlibWindowBits-8)<<4 | zlibDeflate
	zlibFDICT      = 0x20
)

// zlibFlags builds the FLG byte for a compression level with FCHECK set so
// that CMF*256+FLG is a multiple of 31.
func zlibFlags(level int) byte {
	var flevel byte
	switch {
	case level == flate.HuffmanOnly || level == flate.BestSpeed || level == flate.NoCompression:
		flevel = 0
	case level == flate.DefaultCompression || level == 6:
		flevel = 2
	case level < 6:
		flevel = 1
	default:
		flevel = 3
	}
	flg := flevel << 6
	flg += byte(31 - (uint16(zlibCMF)<<8|uint16(flg))%31)
	return flg
}

// compress frames data as a zlib stream: header, deflate at level, and a
// big-endian Adler-32 of exactly the bytes handed to the compressor.
func compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(zlibCMF)
	buf.WriteByte(zlibFlags(level))

	fw, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, &Error{Code: CodeCompression, Message: "creating deflate writer", Err: err}
	}
	if _, err := fw.Write(data); err != nil {
		return nil, &Error{Code: CodeCompression, Message: "deflating image data", Err: err}
	}
	if err := fw.Close(); err != nil {
		return nil, &Error{Code: CodeCompression, Message: "deflating image data", Err: err}
	}

	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], checksum.Adler32(data))
	buf.Write(trailer[:])
	return buf.Bytes(), nil
}

// decompress inflates a zlib stream, reading at most limit bytes of output.
// Adler-32 mismatches fail when strict, otherwise they are logged.
func decompress(stream []byte, limit int64, strict bool, logger *zerolog.Logger) ([]byte, error) {
	if len(stream) < 2 {
		return nil, &Error{Code: CodeCompression, Message: "image data too short for zlib header"}
	}
	cmf, flg := stream[0], stream[1]
	if cmf&0x0f != zlibDeflate || cmf>>4 > 7 {
		return nil, &Error{Code: CodeCompression, Message: "zlib stream is not deflate"}
	}
	if (uint16(cmf)<<8|uint16(flg))%31 != 0 {
		return nil, &Error{Code: CodeCompression, Message: "bad zlib header check bits"}
	}
	if flg&zlibFDICT != 0 {
		return nil, &Error{Code: CodeCompression, Message: "zlib preset dictionary not supported"}
	}

	r := bytes.NewReader(stream[2:])
	fr := flate.NewReader(r)
	defer fr.Close()
	raw, err := io.ReadAll(io.LimitReader(fr, limit))
	if err != nil {
		return nil, &Error{Code: CodeCompression, Message: "inflating image data", Err: err}
	}

	// Output that hit the limit may not have reached the end of the deflate
	// stream, so the trailer can only be checked on complete streams.
	if int64(len(raw)) >= limit {
		return raw, nil
	}
	var trailer [4]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		if strict {
			return nil, &Error{Code: CodeChecksum, Message: "missing Adler-32 trailer", Err: err}
		}
		logger.Warn().Msg("zlib stream has no Adler-32 trailer")
		return raw, nil
	}
	want := binary.BigEndian.Uint32(trailer[:])
	if got := checksum.Adler32(raw); got != want {
		if strict {
			return nil, &Error{Code: CodeChecksum, Message: "Adler-32 mismatch"}
		}
		logger.Warn().Uint32("expected", want).Uint32("actual", got).Msg("zlib Adler-32 mismatch")
	}
	return raw, nil
}
