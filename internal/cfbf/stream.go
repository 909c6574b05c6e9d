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
package cfbf

import "fmt"

// SectorSink consumes a stream's bytes sector by sector, in chain order.
// The final slice may be shorter than a sector: the stream is truncated
// to its declared size. A non-nil error aborts the dump.
type SectorSink interface {
	WriteSector(data []byte, sectorIndex uint32, fileOffset int64) error
}

// SectorSinkFunc adapts a function to the SectorSink interface.
type SectorSinkFunc func(data []byte, sectorIndex uint32, fileOffset int64) error

func (fn SectorSinkFunc) WriteSector(data []byte, sectorIndex uint32, fileOffset int64) error {
	return fn(data, sectorIndex, fileOffset)
}

// Dump streams an entry's bytes through sink. Only stream objects can be
// dumped; the root entry (whose stream is the mini-stream) is refused.
// Whether the chain runs through the FAT or the MiniFAT follows from the
// entry's size relative to the mini-stream cutoff.
func (f *File) Dump(e *DirEntry, sink SectorSink) error {
	if e.ObjectType == ObjRoot {
		return ErrRootDump
	}
	if e.ObjectType != ObjStream {
		return fmt.Errorf("%w: object type is %s", ErrNotStream, ObjectTypeString(e.ObjectType))
	}

	chain, err := f.resolveChain(e.StartSector, e.StreamSize, f.StoredInMini(e))
	if err != nil {
		return err
	}

	var off int64
	for i, sec := range chain {
		if err := sink.WriteSector(sec, uint32(i), off); err != nil {
			return fmt.Errorf("sink failed at sector index %d: %w", i, err)
		}
		off += int64(len(sec))
	}
	return nil
}

// EntrySectors returns a stream's chain as ordered byte slices plus the
// sector size the chain is cut into, selecting the FAT or the MiniFAT the
// same way Dump does. Collaborating parsers that need random access over
// an extracted stream consume this.
func (f *File) EntrySectors(e *DirEntry) ([][]byte, int, error) {
	if e.ObjectType != ObjStream {
		return nil, 0, fmt.Errorf("%w: object type is %s", ErrNotStream, ObjectTypeString(e.ObjectType))
	}
	if f.StoredInMini(e) {
		chain, err := f.resolveChain(e.StartSector, e.StreamSize, true)
		return chain, f.hdr.MiniSectorSize(), err
	}
	chain, err := f.resolveChain(e.StartSector, e.StreamSize, false)
	return chain, f.hdr.SectorSize(), err
}
