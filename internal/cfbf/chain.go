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

// chainIterCap bounds chain traversals: a chain that visits more sectors
// than the file (or mini-stream) can hold must be cyclic.
func (f *File) chainIterCap(mini bool) uint64 {
	if mini {
		return uint64(len(f.miniStream))/f.miniSectorSize() + 1
	}
	return uint64(f.numSectors) + 1
}

// chainSectors follows the FAT (or MiniFAT) from start and returns the
// sector numbers holding a stream of size bytes. The list ends when the
// chain terminates or when the accumulated capacity reaches size,
// whichever comes first; a chain that terminates early is an error, as
// is one that revisits a sector.
func (f *File) chainSectors(start SECT, size uint64, mini bool) ([]SECT, error) {
	if size == 0 {
		return nil, nil
	}

	tab := f.fat
	if mini {
		tab = f.miniFat
	}
	want := (size + tab.granule - 1) / tab.granule

	sects := make([]SECT, 0, want)
	seen := make(map[SECT]struct{}, want)
	for s := start; s != EndOfChain; {
		if !s.IsRegular() {
			return nil, fmt.Errorf("%w: chain starting at sector %d contains sentinel 0x%08X",
				ErrStructure, start, uint32(s))
		}
		if _, ok := seen[s]; ok {
			return nil, fmt.Errorf("%w: chain starting at sector %d revisits sector %d",
				ErrChainCycle, start, s)
		}
		seen[s] = struct{}{}
		sects = append(sects, s)
		if uint64(len(sects)) >= want {
			break
		}
		next, err := tab.next(s)
		if err != nil {
			return nil, err
		}
		s = next
	}

	if uint64(len(sects)) < want {
		return nil, fmt.Errorf("%w: %d sectors deliver %d bytes, stream wants %d",
			ErrChainShort, len(sects), uint64(len(sects))*tab.granule, size)
	}
	return sects, nil
}

// resolveChain returns the ordered byte slices forming a stream of size
// bytes, with the final slice truncated to size. The slices borrow from
// the mapping (main FAT) or from the mini-stream buffer.
func (f *File) resolveChain(start SECT, size uint64, mini bool) ([][]byte, error) {
	sects, err := f.chainSectors(start, size, mini)
	if err != nil {
		return nil, err
	}

	chain := make([][]byte, 0, len(sects))
	rem := size
	for _, s := range sects {
		var sec []byte
		if mini {
			sec, err = f.miniSectorData(s)
		} else {
			sec, err = f.sectorData(s)
		}
		if err != nil {
			return nil, err
		}
		if uint64(len(sec)) > rem {
			sec = sec[:rem]
		}
		chain = append(chain, sec)
		rem -= uint64(len(sec))
	}
	if rem > 0 {
		return nil, fmt.Errorf("%w: %d bytes missing", ErrChainShort, rem)
	}
	return chain, nil
}

// wholeChain follows the main FAT from start to end-of-chain with no size
// bound, as the directory chain requires.
func (f *File) wholeChain(start SECT) ([]SECT, error) {
	var sects []SECT
	seen := make(map[SECT]struct{})
	for s := start; s != EndOfChain; {
		if !s.IsRegular() {
			return nil, fmt.Errorf("%w: chain starting at sector %d contains sentinel 0x%08X",
				ErrStructure, start, uint32(s))
		}
		if _, ok := seen[s]; ok {
			return nil, fmt.Errorf("%w: chain starting at sector %d revisits sector %d",
				ErrChainCycle, start, s)
		}
		seen[s] = struct{}{}
		sects = append(sects, s)
		next, err := f.fat.next(s)
		if err != nil {
			return nil, err
		}
		s = next
	}
	return sects, nil
}

// Run is a contiguous extent of a stream within the container file.
type Run struct {
	Offset    uint64 // logical offset within the stream
	ImgOffset uint64 // physical offset within the container file
	Length    uint64
}

// PhysicalRuns resolves an entry's stream to its physical byte extents,
// coalescing adjacent sectors. Mini-stream sectors are translated through
// the root entry's chain to real file offsets. Storage entries and empty
// streams yield no runs.
func (f *File) PhysicalRuns(e *DirEntry) ([]Run, error) {
	if e.ObjectType != ObjStream && e.ObjectType != ObjRoot {
		return nil, nil
	}
	if e.StreamSize == 0 {
		return nil, nil
	}

	mini := f.StoredInMini(e)
	granule := f.sectorSize()
	if mini {
		granule = f.miniSectorSize()
	}

	sects, err := f.chainSectors(e.StartSector, e.StreamSize, mini)
	if err != nil {
		return nil, err
	}

	var rootSects []SECT
	if mini {
		root := f.entries[0]
		rootSects, err = f.chainSectors(root.StartSector, root.StreamSize, false)
		if err != nil {
			return nil, fmt.Errorf("resolving mini-stream chain: %w", err)
		}
	}

	ss := f.sectorSize()
	var runs []Run
	var logical uint64
	for _, s := range sects {
		length := granule
		if rem := e.StreamSize - logical; rem < length {
			length = rem
		}

		var img uint64
		if mini {
			// A mini-sector never straddles a main sector: the mini-sector
			// size divides the sector size.
			moff := uint64(s) * granule
			idx := moff / ss
			if idx >= uint64(len(rootSects)) {
				return nil, fmt.Errorf("%w: mini-sector %d is outside the mini-stream chain", ErrStructure, s)
			}
			img = (uint64(rootSects[idx])+1)*ss + moff%ss
		} else {
			img = (uint64(s) + 1) * ss
		}

		if n := len(runs); n > 0 && runs[n-1].ImgOffset+runs[n-1].Length == img {
			runs[n-1].Length += length
		} else {
			runs = append(runs, Run{Offset: logical, ImgOffset: img, Length: length})
		}
		logical += length
	}
	return runs, nil
}
