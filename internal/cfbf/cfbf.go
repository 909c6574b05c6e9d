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

// Package cfbf reads Microsoft Compound File Binary Format containers
// (also known as Structured Storage or OLE2). The container is mapped
// read-only; the FAT and main-FAT stream chains are views into that
// mapping, while the MiniFAT and the mini-stream are copied into buffers
// of their own at Open. All of them stay valid until Close.
package cfbf

import (
	"fmt"

	"github.com/olescan/olescan/internal/logger"
	"github.com/olescan/olescan/internal/mmap"
)

// File is an open container. All state is built once by Open and is
// read-only afterwards.
type File struct {
	m    *mmap.File
	data []byte
	size int64

	hdr        *Header
	fat        *allocTable
	miniFat    *allocTable
	miniStream []byte
	entries    []*DirEntry
	numSectors uint32

	log *logger.Logger
}

// Open maps the file at path and materialises the FAT, MiniFAT, directory
// and mini-stream. A nil log discards diagnostics.
func Open(path string, log *logger.Logger) (*File, error) {
	if log == nil {
		log = logger.Discard()
	}

	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	f := &File{
		m:    m,
		data: m.Data,
		size: m.Size,
		log:  log,
	}

	if err := f.load(); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (f *File) load() error {
	if f.size < HeaderSize {
		return fmt.Errorf("%w: file is %d bytes, smaller than the %d-byte header",
			ErrTruncated, f.size, HeaderSize)
	}

	hdr, err := parseHeader(f.data[:HeaderSize])
	if err != nil {
		return err
	}
	f.hdr = hdr

	ss := int64(hdr.SectorSize())
	if f.size > ss {
		f.numSectors = uint32((f.size - ss) / ss)
	}

	if f.fat, err = f.newFAT(); err != nil {
		return fmt.Errorf("failed to load FAT: %w", err)
	}
	if f.miniFat, err = f.newMiniFAT(); err != nil {
		return fmt.Errorf("failed to load mini-FAT: %w", err)
	}
	if err = f.readDirectory(); err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	root := f.entries[0]
	if root.Name != "Root Entry" {
		return fmt.Errorf("%w: first directory entry is named %q, not \"Root Entry\"", ErrFormat, root.Name)
	}

	// The mini-stream is an ordinary FAT stream owned by the root entry.
	if root.StreamSize > 0 {
		chain, err := f.resolveChain(root.StartSector, root.StreamSize, false)
		if err != nil {
			return fmt.Errorf("failed to load mini-stream: %w", err)
		}
		buf := make([]byte, 0, root.StreamSize)
		for _, sec := range chain {
			buf = append(buf, sec...)
		}
		f.miniStream = buf
	}
	return nil
}

// Close releases the mapping and every structure derived from it.
func (f *File) Close() error {
	f.data = nil
	f.hdr = nil
	f.fat = nil
	f.miniFat = nil
	f.miniStream = nil
	f.entries = nil

	if f.m == nil {
		return nil
	}
	m := f.m
	f.m = nil
	return m.Close()
}

// Header returns the parsed container header.
func (f *File) Header() *Header { return f.hdr }

// Size returns the mapped file size in bytes.
func (f *File) Size() int64 { return f.size }

// NumSectors returns the number of sector slots after the header.
func (f *File) NumSectors() uint32 { return f.numSectors }

func (f *File) sectorSize() uint64     { return uint64(f.hdr.SectorSize()) }
func (f *File) miniSectorSize() uint64 { return uint64(f.hdr.MiniSectorSize()) }

// sectorData returns the full sector s. Sector s begins at file byte
// (s+1)*sector_size; the header occupies slot -1.
func (f *File) sectorData(s SECT) ([]byte, error) {
	if !s.IsRegular() {
		return nil, fmt.Errorf("%w: 0x%08X is not a sector number", ErrStructure, uint32(s))
	}
	ss := f.sectorSize()
	off := (uint64(s) + 1) * ss
	if off+ss > uint64(f.size) {
		return nil, fmt.Errorf("%w: sector %d is past the end of the file (file size %d, sector size %d)",
			ErrTruncated, s, f.size, ss)
	}
	return f.data[off : off+ss], nil
}

// miniSectorData returns mini-sector s of the materialised mini-stream.
// The final mini-sector may be shorter than the mini-sector size when the
// mini-stream length is not a multiple of it.
func (f *File) miniSectorData(s SECT) ([]byte, error) {
	if !s.IsRegular() {
		return nil, fmt.Errorf("%w: 0x%08X is not a mini-sector number", ErrStructure, uint32(s))
	}
	ms := f.miniSectorSize()
	off := uint64(s) * ms
	if off >= uint64(len(f.miniStream)) {
		return nil, fmt.Errorf("%w: mini-sector %d is outside the %d-byte mini-stream",
			ErrTruncated, s, len(f.miniStream))
	}
	end := off + ms
	if end > uint64(len(f.miniStream)) {
		end = uint64(len(f.miniStream))
	}
	return f.miniStream[off:end], nil
}
