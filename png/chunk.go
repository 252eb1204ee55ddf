package png

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/svanichkin/gustave/internal/checksum"
)

const signature = "\x89PNG\r\n\x1a\n"

// Chunk types this package understands.
const (
	chunkIHDR = "IHDR"
	chunkPLTE = "PLTE"
	chunkIDAT = "IDAT"
	chunkIEND = "IEND"
	chunkITXt = "iTXt"
)

// ChunkHeader describes one chunk record. Position is the byte offset of the
// length field within the stream.
type ChunkHeader struct {
	Position int64
	Length   int
	Type     string
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

// IsCritical reports whether a decoder must understand the chunk.
func (c ChunkHeader) IsCritical() bool { return isUpper(c.Type[0]) }

// IsPublic reports whether the chunk type is part of the public registry.
func (c ChunkHeader) IsPublic() bool { return isUpper(c.Type[1]) }

// IsSafeToCopy reports whether the fourth letter of the type, the safe-to-copy
// property bit, is uppercase.
func (c ChunkHeader) IsSafeToCopy() bool { return isUpper(c.Type[3]) }

func (c ChunkHeader) String() string {
	return fmt.Sprintf("%s at %d (length: %d)", c.Type, c.Position, c.Length)
}

// chunkReader pulls chunk records off a stream, tracking the byte offset.
type chunkReader struct {
	r   io.Reader
	pos int64
	tmp [8]byte
}

func (cr *chunkReader) readFull(p []byte) error {
	n, err := io.ReadFull(cr.r, p)
	cr.pos += int64(n)
	return err
}

func (cr *chunkReader) checkSignature() error {
	if err := cr.readFull(cr.tmp[:len(signature)]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrSignature
		}
		return wrapFormatError(err, "reading signature")
	}
	if string(cr.tmp[:len(signature)]) != signature {
		return ErrSignature
	}
	return nil
}

// next reads a chunk's header, payload and CRC. It returns io.EOF only when
// the stream ends cleanly before a new chunk starts.
func (cr *chunkReader) next() (ChunkHeader, []byte, uint32, error) {
	start := cr.pos
	n, err := io.ReadFull(cr.r, cr.tmp[:8])
	cr.pos += int64(n)
	if err != nil {
		if err == io.EOF {
			return ChunkHeader{}, nil, 0, io.EOF
		}
		return ChunkHeader{}, nil, 0, truncated(err, "chunk header at %d", start)
	}
	length := int32(binary.BigEndian.Uint32(cr.tmp[:4]))
	typ := string(cr.tmp[4:8])
	if length < 0 {
		return ChunkHeader{}, nil, 0, formatError("negative length %d for chunk %q at %d", length, typ, start)
	}
	for i := 0; i < 4; i++ {
		c := typ[i]
		if !isUpper(c) && !(c >= 'a' && c <= 'z') {
			return ChunkHeader{}, nil, 0, formatError("invalid chunk type %q at %d", typ, start)
		}
	}
	header := ChunkHeader{Position: start, Length: int(length), Type: typ}

	// The declared length is untrusted until the bytes arrive.
	data, err := io.ReadAll(io.LimitReader(cr.r, int64(length)))
	cr.pos += int64(len(data))
	if err != nil {
		return header, nil, 0, truncated(err, "payload of %s", header)
	}
	if len(data) < int(length) {
		return header, nil, 0, truncated(io.ErrUnexpectedEOF, "payload of %s", header)
	}
	if err := cr.readFull(cr.tmp[:4]); err != nil {
		return header, nil, 0, truncated(err, "CRC of %s", header)
	}
	return header, data, binary.BigEndian.Uint32(cr.tmp[:4]), nil
}

func truncated(err error, format string, args ...interface{}) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return wrapFormatError(err, "truncated "+format, args...)
}

func chunkCrc(typ string, data []byte) uint32 {
	return checksum.Crc32Concat([]byte(typ), data)
}

// chunkWriter emits chunk records. The first write error sticks and later
// writes are skipped.
type chunkWriter struct {
	w   io.Writer
	err error
}

func (cw *chunkWriter) write(p []byte) {
	if cw.err != nil {
		return
	}
	_, cw.err = cw.w.Write(p)
}

func (cw *chunkWriter) writeSignature() {
	cw.write([]byte(signature))
}

// writeChunk writes length, type, payload and the CRC over type+payload.
func (cw *chunkWriter) writeChunk(typ string, data []byte) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(len(data)))
	cw.write(b[:])
	cw.write([]byte(typ))
	cw.write(data)
	binary.BigEndian.PutUint32(b[:], chunkCrc(typ, data))
	cw.write(b[:])
}
