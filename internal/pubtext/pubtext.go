// Copyright (c) 2025 The olescan authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package pubtext pulls the TEXT section out of a Microsoft Publisher
// Quill CONTENTS stream. It operates over the sector slices of an
// already-extracted stream and knows nothing about the container. The
// chunk-reference layout is not publicly documented; every read is
// bounds-checked and failures surface as ErrBadContents.
package pubtext

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/olescan/olescan/internal/logger"
)

var (
	// ErrBadContents means the stream does not look like a Quill
	// contents section.
	ErrBadContents = errors.New("pubtext: malformed contents stream")

	// ErrNoText means the chunk reference lists carry no TEXT chunk.
	ErrNoText = errors.New("pubtext: no TEXT chunk in contents stream")
)

// The first chunk reference list lives at a fixed offset; each list is a
// 12-byte header (chunk count at +2, next-list offset at +8, 0xFFFFFFFF
// terminating) followed by 24-byte references: tag, id, data offset at
// +12, data length at +16.
const (
	firstListOffset = 0x18
	listHeaderSize  = 12
	chunkRefSize    = 24

	maxLists         = 64
	maxChunksPerList = 1024
)

// Section is one chunk reference from the contents stream.
type Section struct {
	Tag    string
	ID     uint16
	Offset uint32
	Length uint32
}

// Sections parses the chunk reference lists of a contents stream.
func Sections(r *ChainReader) ([]Section, error) {
	var sections []Section

	off := int64(firstListOffset)
	for lists := 0; ; lists++ {
		if lists >= maxLists {
			return nil, fmt.Errorf("%w: more than %d chunk reference lists", ErrBadContents, maxLists)
		}

		var hdr [listHeaderSize]byte
		if _, err := r.ReadAt(hdr[:], off); err != nil {
			return nil, fmt.Errorf("%w: chunk reference list at offset %d: %v", ErrBadContents, off, err)
		}
		count := int(binary.LittleEndian.Uint16(hdr[2:4]))
		next := binary.LittleEndian.Uint32(hdr[8:12])
		if count > maxChunksPerList {
			return nil, fmt.Errorf("%w: chunk reference list at offset %d declares %d chunks", ErrBadContents, off, count)
		}

		for i := 0; i < count; i++ {
			var ref [chunkRefSize]byte
			refOff := off + listHeaderSize + int64(i)*chunkRefSize
			if _, err := r.ReadAt(ref[:], refOff); err != nil {
				return nil, fmt.Errorf("%w: chunk reference at offset %d: %v", ErrBadContents, refOff, err)
			}

			s := Section{
				Tag:    string(ref[0:4]),
				ID:     binary.LittleEndian.Uint16(ref[4:6]),
				Offset: binary.LittleEndian.Uint32(ref[12:16]),
				Length: binary.LittleEndian.Uint32(ref[16:20]),
			}
			if !printableTag(s.Tag) {
				return nil, fmt.Errorf("%w: chunk %d has unprintable tag % X", ErrBadContents, i, ref[0:4])
			}
			if uint64(s.Offset)+uint64(s.Length) > uint64(r.Size()) {
				return nil, fmt.Errorf("%w: chunk %q extends past the %d-byte stream", ErrBadContents, s.Tag, r.Size())
			}
			sections = append(sections, s)
		}

		if next == 0xFFFFFFFF {
			return sections, nil
		}
		off = int64(next)
	}
}

// ExtractText locates the TEXT chunks of a contents stream and feeds
// their bytes, in order and in sector-sized pieces, to emit. The text is
// raw UTF-16LE; conversion for display is the caller's concern.
func ExtractText(sectors [][]byte, sectorSize int, log *logger.Logger, emit func(p []byte) error) error {
	if log == nil {
		log = logger.Discard()
	}
	r := NewChainReader(sectors)

	sections, err := Sections(r)
	if err != nil {
		return err
	}

	found := false
	buf := make([]byte, sectorSize)
	for _, s := range sections {
		log.Debugf("chunk %q id %d offset %d length %d", s.Tag, s.ID, s.Offset, s.Length)
		if s.Tag != "TEXT" {
			continue
		}
		found = true

		rem := int64(s.Length)
		off := int64(s.Offset)
		for rem > 0 {
			n := int64(len(buf))
			if rem < n {
				n = rem
			}
			if _, err := r.ReadAt(buf[:n], off); err != nil {
				return fmt.Errorf("%w: reading TEXT chunk at offset %d: %v", ErrBadContents, off, err)
			}
			if err := emit(buf[:n]); err != nil {
				return err
			}
			off += n
			rem -= n
		}
	}

	if !found {
		return ErrNoText
	}
	return nil
}

func printableTag(tag string) bool {
	for i := 0; i < len(tag); i++ {
		if tag[i] < 0x20 || tag[i] > 0x7E {
			return false
		}
	}
	return true
}

// ChainReader provides random access over the ordered sector slices of an
// extracted stream without copying them into one buffer.
type ChainReader struct {
	secs [][]byte
	offs []int64 // logical start offset of each slice
	size int64
}

// NewChainReader builds a reader over chain-ordered slices.
func NewChainReader(secs [][]byte) *ChainReader {
	r := &ChainReader{
		secs: secs,
		offs: make([]int64, len(secs)),
	}
	for i, s := range secs {
		r.offs[i] = r.size
		r.size += int64(len(s))
	}
	return r
}

// Size returns the total stream length.
func (r *ChainReader) Size() int64 { return r.size }

// ReadAt implements io.ReaderAt across the sector boundaries.
func (r *ChainReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("pubtext: negative offset %d", off)
	}
	if off >= r.size {
		return 0, io.EOF
	}

	// First slice covering off.
	i := sort.Search(len(r.offs), func(i int) bool { return r.offs[i] > off }) - 1

	n := 0
	for n < len(p) && i < len(r.secs) {
		sec := r.secs[i]
		within := int(off + int64(n) - r.offs[i])
		c := copy(p[n:], sec[within:])
		n += c
		i++
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
