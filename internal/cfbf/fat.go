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

import (
	"encoding/binary"
	"fmt"
)

// allocTable is the logical array fat[S] = next-sector-of-chain-containing-S,
// backed by an ordered list of page slices borrowed from the mapping (main
// FAT) or from the materialised MiniFAT buffer. The granule is the byte
// size of the sectors the table allocates: main sectors for the FAT,
// mini-sectors for the MiniFAT.
type allocTable struct {
	pages   [][]byte
	perPage uint32 // SECT entries per page
	granule uint64
}

// next returns the table entry for sector s, which is the successor of s
// in its chain or a sentinel.
func (t *allocTable) next(s SECT) (SECT, error) {
	page := uint32(s) / t.perPage
	if page >= uint32(len(t.pages)) {
		return 0, fmt.Errorf("%w: sector %d is not covered by the allocation table (%d pages)",
			ErrStructure, s, len(t.pages))
	}
	off := (uint32(s) % t.perPage) * 4
	return SECT(binary.LittleEndian.Uint32(t.pages[page][off:])), nil
}

// entryCount returns the number of SECT entries the table holds.
func (t *allocTable) entryCount() uint64 {
	return uint64(len(t.pages)) * uint64(t.perPage)
}

// newFAT materialises the main FAT: the first min(109, csectFat) page
// numbers come from the header array, the remainder from walking the
// DIFAT chain for exactly csectDif sectors. Each DIFAT sector carries
// N-1 FAT page numbers plus the next DIFAT sector number in its last
// slot, where N is the number of SECT entries per sector.
func (f *File) newFAT() (*allocTable, error) {
	perPage := uint32(f.sectorSize() / 4)
	want := f.hdr.CSectFat

	t := &allocTable{
		pages:   make([][]byte, 0, want),
		perPage: perPage,
		granule: f.sectorSize(),
	}

	for i := 0; i < numHeaderFATSects && uint32(len(t.pages)) < want; i++ {
		page, err := f.sectorData(f.hdr.SectFat[i])
		if err != nil {
			return nil, fmt.Errorf("FAT page %d: %w", i, err)
		}
		t.pages = append(t.pages, page)
	}

	dif := f.hdr.SectDifStart
	for i := uint32(0); i < f.hdr.CSectDif; i++ {
		if dif == EndOfChain {
			return nil, fmt.Errorf("%w: DIFAT chain ended after %d of %d sectors",
				ErrStructure, i, f.hdr.CSectDif)
		}
		page, err := f.sectorData(dif)
		if err != nil {
			return nil, fmt.Errorf("DIFAT sector %d: %w", i, err)
		}
		for j := uint32(0); j+1 < perPage; j++ {
			s := SECT(binary.LittleEndian.Uint32(page[j*4:]))
			if s == FreeSect {
				// padding
				continue
			}
			if uint32(len(t.pages)) >= want {
				return nil, fmt.Errorf("%w: DIFAT lists more than the %d FAT pages the header declares",
					ErrStructure, want)
			}
			fp, err := f.sectorData(s)
			if err != nil {
				return nil, fmt.Errorf("FAT page %d: %w", len(t.pages), err)
			}
			t.pages = append(t.pages, fp)
		}
		dif = SECT(binary.LittleEndian.Uint32(page[(perPage-1)*4:]))
	}

	if dif != EndOfChain && f.hdr.CSectDif > 0 {
		return nil, fmt.Errorf("%w: DIFAT chain does not terminate after %d sectors",
			ErrStructure, f.hdr.CSectDif)
	}
	if uint32(len(t.pages)) != want {
		return nil, fmt.Errorf("%w: collected %d FAT pages, header declares %d",
			ErrStructure, len(t.pages), want)
	}
	return t, nil
}

// newMiniFAT materialises the MiniFAT, which is stored as an ordinary
// stream in the main FAT: csectMiniFat sectors starting at
// sectMiniFatStart, copied into one contiguous buffer and indexed as
// SECT-sized entries addressing mini-sectors.
func (f *File) newMiniFAT() (*allocTable, error) {
	perPage := uint32(f.sectorSize() / 4)
	t := &allocTable{
		perPage: perPage,
		granule: f.miniSectorSize(),
	}
	count := f.hdr.CSectMiniFat
	if count == 0 {
		return t, nil
	}

	size := uint64(count) * f.sectorSize()
	chain, err := f.resolveChain(f.hdr.SectMiniFatStart, size, false)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, size)
	for _, sec := range chain {
		buf = append(buf, sec...)
	}

	ss := int(f.sectorSize())
	t.pages = make([][]byte, 0, count)
	for off := 0; off < len(buf); off += ss {
		t.pages = append(t.pages, buf[off:off+ss])
	}
	return t, nil
}
