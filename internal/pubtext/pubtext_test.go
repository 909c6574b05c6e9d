package pubtext_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/olescan/olescan/internal/pubtext"
	"github.com/stretchr/testify/require"
)

// buildContents assembles a minimal Quill contents stream: the fixed
// preamble, one chunk reference list and the chunk payloads.
func buildContents(text []byte) []byte {
	buf := make([]byte, 512)

	// reference list at 0x18: two chunks, no further list
	binary.LittleEndian.PutUint16(buf[0x18+2:], 2)
	binary.LittleEndian.PutUint32(buf[0x18+8:], 0xFFFFFFFF)

	ref := func(i int, tag string, id uint16, off, length uint32) {
		p := buf[0x18+12+i*24:]
		copy(p, tag)
		binary.LittleEndian.PutUint16(p[4:], id)
		binary.LittleEndian.PutUint32(p[12:], off)
		binary.LittleEndian.PutUint32(p[16:], length)
	}

	strs := []byte{0x01, 0x02, 0x03, 0x04}
	ref(0, "STRS", 1, 0x100, uint32(len(strs)))
	copy(buf[0x100:], strs)

	ref(1, "TEXT", 2, 0x140, uint32(len(text)))
	if need := 0x140 + len(text); need > len(buf) {
		buf = append(buf, make([]byte, need-len(buf))...)
	}
	copy(buf[0x140:], text)

	return buf
}

// split cuts a buffer into sector-sized slices the way the chain
// resolver delivers them.
func split(data []byte, sectorSize int) [][]byte {
	var secs [][]byte
	for off := 0; off < len(data); off += sectorSize {
		end := off + sectorSize
		if end > len(data) {
			end = len(data)
		}
		secs = append(secs, data[off:end])
	}
	return secs
}

func utf16Bytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	b := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	return b
}

func TestExtractText(t *testing.T) {
	text := utf16Bytes("Hello, Publisher! \U0001F5A8") // includes a surrogate pair
	contents := buildContents(text)

	for _, sectorSize := range []int{64, 512} {
		var got bytes.Buffer
		err := pubtext.ExtractText(split(contents, sectorSize), sectorSize, nil, func(p []byte) error {
			got.Write(p)
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, text, got.Bytes(), "sector size %d", sectorSize)
	}
}

func TestExtractTextEmitError(t *testing.T) {
	contents := buildContents(utf16Bytes("some text that spans several mini-sectors of the stream"))

	calls := 0
	err := pubtext.ExtractText(split(contents, 64), 64, nil, func(p []byte) error {
		calls++
		return bytes.ErrTooLarge
	})
	require.ErrorIs(t, err, bytes.ErrTooLarge)
	require.Equal(t, 1, calls)
}

func TestExtractTextNoTextChunk(t *testing.T) {
	contents := buildContents(utf16Bytes("x"))
	// overwrite the TEXT tag
	copy(contents[0x18+12+24:], "ZZZZ")

	err := pubtext.ExtractText(split(contents, 64), 64, nil, func([]byte) error { return nil })
	require.ErrorIs(t, err, pubtext.ErrNoText)
}

func TestExtractTextTruncatedStream(t *testing.T) {
	err := pubtext.ExtractText(split(make([]byte, 0x10), 64), 64, nil, func([]byte) error { return nil })
	require.ErrorIs(t, err, pubtext.ErrBadContents)
}

func TestExtractTextChunkPastEnd(t *testing.T) {
	contents := buildContents(utf16Bytes("x"))
	// stretch the TEXT chunk length past the stream end
	binary.LittleEndian.PutUint32(contents[0x18+12+24+16:], 1<<20)

	err := pubtext.ExtractText(split(contents, 64), 64, nil, func([]byte) error { return nil })
	require.ErrorIs(t, err, pubtext.ErrBadContents)
}

func TestExtractTextUnprintableTag(t *testing.T) {
	contents := buildContents(utf16Bytes("x"))
	contents[0x18+12] = 0x00

	err := pubtext.ExtractText(split(contents, 64), 64, nil, func([]byte) error { return nil })
	require.ErrorIs(t, err, pubtext.ErrBadContents)
}

func TestSections(t *testing.T) {
	contents := buildContents(utf16Bytes("hi"))

	secs, err := pubtext.Sections(pubtext.NewChainReader(split(contents, 64)))
	require.NoError(t, err)
	require.Len(t, secs, 2)
	require.Equal(t, "STRS", secs[0].Tag)
	require.Equal(t, "TEXT", secs[1].Tag)
	require.Equal(t, uint32(0x140), secs[1].Offset)
	require.Equal(t, uint32(4), secs[1].Length)
}

func TestChainReaderReadAt(t *testing.T) {
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i)
	}
	r := pubtext.NewChainReader(split(data, 64))
	require.Equal(t, int64(300), r.Size())

	// a read spanning three slices
	got := make([]byte, 130)
	n, err := r.ReadAt(got, 60)
	require.NoError(t, err)
	require.Equal(t, 130, n)
	require.Equal(t, data[60:190], got)

	// short read at the tail
	n, err = r.ReadAt(got, 250)
	require.Error(t, err)
	require.Equal(t, 50, n)
	require.Equal(t, data[250:], got[:n])

	_, err = r.ReadAt(got, 300)
	require.Error(t, err)
}
