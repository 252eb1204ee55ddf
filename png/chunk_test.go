package png

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkHeaderProperties(t *testing.T) {
	for _, tc := range []struct {
		typ                          string
		critical, public, safeToCopy bool
	}{
		{"IHDR", true, true, true},
		{"tEXt", false, true, false},
		{"iTXt", false, true, false},
		{"prVT", false, false, true},
		{"PLTE", true, true, true},
	} {
		c := ChunkHeader{Type: tc.typ}
		assert.Equal(t, tc.critical, c.IsCritical(), tc.typ)
		assert.Equal(t, tc.public, c.IsPublic(), tc.typ)
		assert.Equal(t, tc.safeToCopy, c.IsSafeToCopy(), tc.typ)
	}
	assert.Equal(t, "IDAT at 33 (length: 12)", ChunkHeader{Position: 33, Length: 12, Type: "IDAT"}.String())
}

func TestWriteChunk(t *testing.T) {
	var buf bytes.Buffer
	cw := chunkWriter{w: &buf}
	cw.writeChunk("tEXt", []byte("hello"))
	require.NoError(t, cw.err)

	b := buf.Bytes()
	require.Len(t, b, 4+4+5+4)
	assert.Equal(t, uint32(5), binary.BigEndian.Uint32(b[:4]))
	assert.Equal(t, "tEXt", string(b[4:8]))
	assert.Equal(t, "hello", string(b[8:13]))
	assert.Equal(t, crc32.ChecksumIEEE(b[4:13]), binary.BigEndian.Uint32(b[13:]))

	cr := chunkReader{r: bytes.NewReader(b)}
	header, data, crc, err := cr.next()
	require.NoError(t, err)
	assert.Equal(t, ChunkHeader{Position: 0, Length: 5, Type: "tEXt"}, header)
	assert.Equal(t, []byte("hello"), data)
	assert.Equal(t, chunkCrc("tEXt", data), crc)

	_, _, _, err = cr.next()
	assert.Equal(t, io.EOF, err)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, io.ErrClosedPipe }

func TestChunkWriterStickyError(t *testing.T) {
	cw := chunkWriter{w: failingWriter{}}
	cw.writeSignature()
	cw.writeChunk(chunkIEND, nil)
	assert.Equal(t, io.ErrClosedPipe, cw.err)
}

func TestChunkReaderErrors(t *testing.T) {
	t.Run("negative length", func(t *testing.T) {
		cr := chunkReader{r: bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xf0, 'I', 'D', 'A', 'T'})}
		_, _, _, err := cr.next()
		assert.True(t, IsFormatError(err))
	})
	t.Run("truncated payload", func(t *testing.T) {
		cr := chunkReader{r: bytes.NewReader([]byte{0, 0, 0, 10, 'I', 'D', 'A', 'T', 1, 2, 3})}
		_, _, _, err := cr.next()
		assert.True(t, IsFormatError(err))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
	t.Run("truncated header", func(t *testing.T) {
		cr := chunkReader{r: bytes.NewReader([]byte{0, 0, 0})}
		_, _, _, err := cr.next()
		assert.True(t, IsFormatError(err))
	})
	t.Run("missing crc", func(t *testing.T) {
		cr := chunkReader{r: bytes.NewReader([]byte{0, 0, 0, 0, 'I', 'E', 'N', 'D', 0xae})}
		_, _, _, err := cr.next()
		assert.True(t, IsFormatError(err))
	})
	t.Run("bad type bytes", func(t *testing.T) {
		cr := chunkReader{r: bytes.NewReader([]byte{0, 0, 0, 0, 'I', 'E', '1', 'D', 0, 0, 0, 0})}
		_, _, _, err := cr.next()
		assert.True(t, IsFormatError(err))
	})
	t.Run("signature", func(t *testing.T) {
		cr := chunkReader{r: bytes.NewReader([]byte("GIF89a..."))}
		assert.ErrorIs(t, cr.checkSignature(), ErrSignature)
		cr = chunkReader{r: bytes.NewReader([]byte{0x89, 'P'})}
		assert.ErrorIs(t, cr.checkSignature(), ErrSignature)
	})
	t.Run("signature read failure", func(t *testing.T) {
		cr := chunkReader{r: failingReader{}}
		err := cr.checkSignature()
		assert.True(t, IsFormatError(err))
		assert.ErrorIs(t, err, io.ErrClosedPipe)
		assert.NotErrorIs(t, err, ErrSignature)
	})
}
