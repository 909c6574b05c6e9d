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
	"io"
	"os"

	"github.com/olescan/olescan/pkg/pbar"
)

// Sector-usage kinds recorded by the walker.
const (
	kindUnvisited uint8 = iota
	kindData
	kindFATSect
	kindDIFSect
)

func kindString(k uint8) string {
	switch k {
	case kindData:
		return "data"
	case kindFATSect:
		return "fatsect"
	case kindDIFSect:
		return "difsect"
	default:
		return "unvisited"
	}
}

type sectorUse struct {
	entry *DirEntry
	index uint32 // sector index within the owning stream
	kind  uint8
}

type sectorCheck struct {
	f         *File
	m         []sectorUse
	out       io.Writer
	verbosity int
	problems  int
	bar       *pbar.Bar
}

func (c *sectorCheck) problem(format string, args ...any) {
	c.problems++
	c.f.log.Errorf(format, args...)
}

func (c *sectorCheck) narrate(minVerbosity int, format string, args ...any) {
	if c.verbosity >= minVerbosity {
		fmt.Fprintf(c.out, format, args...)
	}
}

// visit marks a sector in the usage map and complains if anything else
// got there first.
func (c *sectorCheck) visit(sect SECT, index uint32, ent *DirEntry, kind uint8) bool {
	if uint64(sect) >= uint64(len(c.m)) {
		c.problem("sector %d is off the end of the map (%d sectors)", sect, len(c.m))
		return false
	}

	s := &c.m[sect]
	if s.entry != nil {
		c.problem("sector %d: already in use by another entry (start sector %d)", sect, s.entry.StartSector)
		return false
	}
	if s.kind != kindUnvisited {
		c.problem("sector %d: already visited as %s", sect, kindString(s.kind))
		return false
	}

	if ent != nil {
		s.entry = ent
		s.index = index
	}
	s.kind = kind

	if c.bar != nil {
		c.bar.Add(1)
	}
	return true
}

// walkEntry follows one stream's chain, marking main-FAT sectors in the
// usage map and reconciling the sector count against the declared stream
// size. Mini chains are traversed for the accounting but leave the map
// alone: mini-sectors share main sectors already owned by the root entry.
func (c *sectorCheck) walkEntry(ent *DirEntry, mini bool) bool {
	f := c.f
	tab := f.fat
	suffix := ""
	if mini {
		tab = f.miniFat
		suffix = " (mini-FAT)"
	}

	c.narrate(1, "  first sector %d%s\n", ent.StartSector, suffix)

	var (
		bytesRead uint64
		index     uint32
		iters     uint64
		last      = EndOfChain
	)
	iterCap := f.chainIterCap(mini)

	for sect := ent.StartSector; sect != EndOfChain; {
		if !sect.IsRegular() {
			c.problem("entry %q: chain contains sentinel 0x%08X", ent.Name, uint32(sect))
			return false
		}
		if iters++; iters > iterCap {
			c.problem("entry %q: sector chain does not terminate", ent.Name)
			return false
		}

		if mini {
			if uint64(sect)*tab.granule >= uint64(len(f.miniStream)) {
				c.problem("entry %q: mini-sector %d is outside the mini-stream", ent.Name, sect)
				return false
			}
		} else if !c.visit(sect, index, ent, kindData) {
			return false
		}

		if bytesRead >= ent.StreamSize {
			c.problem("entry %q: read %d bytes already but there are more sectors (sector %d)",
				ent.Name, bytesRead, sect)
			return false
		}

		last = sect
		index++
		if rem := ent.StreamSize - bytesRead; rem < tab.granule {
			bytesRead += rem
		} else {
			bytesRead += tab.granule
		}

		next, err := tab.next(sect)
		if err != nil {
			c.problem("entry %q: %v", ent.Name, err)
			return false
		}
		sect = next
	}

	c.narrate(1, "  last sector %d%s\n", last, suffix)

	if bytesRead != ent.StreamSize {
		c.problem("entry %q: read %d bytes, expected %d", ent.Name, bytesRead, ent.StreamSize)
		return false
	}
	return true
}

// CheckSectors walks every allocation structure in the container and
// reconciles them against one sector-usage map: the directory chain, the
// MiniFAT chain, every entry's stream chain, the FAT pages listed in the
// header, and the DIFAT chain with the FAT pages it lists. Anomalies are
// reported through the file's logger and counted; the walk keeps going
// wherever it can so that one pass surfaces all problems. Narration is
// written to out gated by verbosity. Returns ErrCheckFailed when any
// anomaly fired.
func (f *File) CheckSectors(out io.Writer, verbosity int) error {
	if out == nil {
		out = io.Discard
	}

	c := &sectorCheck{
		f:         f,
		m:         make([]sectorUse, f.numSectors),
		out:       out,
		verbosity: verbosity,
	}
	if verbosity > 1 {
		c.bar = pbar.New(os.Stderr, "sectors", int64(f.numSectors))
		defer c.bar.Finish()
	}

	if covered := f.fat.entryCount() * f.sectorSize(); uint64(f.size) > covered+HeaderSize {
		f.log.Warnf("sector count in FAT, %d, is less than what we'd expect from file size %d",
			f.fat.entryCount(), f.size)
	}

	// The directory chain is walked as if it were a stream, under a
	// synthetic entry.
	dirSects, err := f.wholeChain(f.hdr.SectDirStart)
	if err != nil {
		c.problem("failed to read directory chain: %v", err)
		return fmt.Errorf("%w: %d problem(s)", ErrCheckFailed, c.problems)
	}
	dirEntry := &DirEntry{
		Name:        "(directory)",
		StartSector: f.hdr.SectDirStart,
		StreamSize:  uint64(len(dirSects)) * f.sectorSize(),
	}
	c.narrate(0, "Walking directory chain, %d sectors...\n", len(dirSects))
	if !c.walkEntry(dirEntry, false) {
		return fmt.Errorf("%w: %d problem(s)", ErrCheckFailed, c.problems)
	}
	c.narrate(0, "Done.\n")

	// The MiniFAT itself is an ordinary FAT stream; without this its
	// sectors would show up as orphans below.
	if f.hdr.CSectMiniFat > 0 {
		miniFatEntry := &DirEntry{
			Name:        "(mini-FAT)",
			StartSector: f.hdr.SectMiniFatStart,
			StreamSize:  uint64(f.hdr.CSectMiniFat) * f.sectorSize(),
		}
		c.narrate(0, "Walking mini-FAT chain, %d sectors...\n", f.hdr.CSectMiniFat)
		c.walkEntry(miniFatEntry, false)
		c.narrate(0, "Done.\n")
	}

	for id, e := range f.entries {
		switch e.ObjectType {
		case ObjUnused:
		case ObjStorage:
			c.narrate(1, "Skipping storage object %q\n", e.Name)
		case ObjStream, ObjRoot:
			c.narrate(1, "Walking entry %q, size %d\n", e.Name, e.StreamSize)
			c.walkEntry(e, f.StoredInMini(e))
		default:
			c.problem("dir entry %d: invalid object type 0x%02X, skipping", id, e.ObjectType)
		}
	}

	// FAT pages named by the header. Each must be marked FATSECT in the
	// FAT itself.
	numStart := uint32(numHeaderFATSects)
	if f.hdr.CSectFat < numStart {
		numStart = f.hdr.CSectFat
	}
	c.narrate(0, "Walking FAT chain, expecting %d sectors...\n", f.hdr.CSectFat)
	for i := uint32(0); i < numStart; i++ {
		sect := f.hdr.SectFat[i]
		c.visit(sect, 0, nil, kindFATSect)
		if fe, err := f.fat.next(sect); err != nil {
			c.problem("FAT page %d: %v", i, err)
		} else if fe != FATSect {
			c.problem("FAT entry for sector %d is 0x%08X, expected FATSECT", sect, uint32(fe))
		}
	}

	// FAT pages beyond the first 109 are listed by the DIFAT chain.
	perSector := uint32(f.sectorSize() / 4)
	difSect := f.hdr.SectDifStart
	fatSeen := numStart
	difSeen := uint32(0)

	if difSect == EndOfChain {
		c.narrate(0, "  Not walking DIFAT chain because it is empty.\n")
	} else {
		c.narrate(0, "  Moving on to DIFAT chain, %d sectors of more FAT sector numbers\n", f.hdr.CSectDif)
	}

	for difSect != EndOfChain {
		if difSeen > f.hdr.CSectDif+8 {
			c.problem("DIFAT chain does not terminate after %d sectors", difSeen)
			break
		}
		c.narrate(1, "  Reading DIFAT sector %d...\n", difSect)
		c.visit(difSect, 0, nil, kindDIFSect)

		page, err := f.sectorData(difSect)
		if err != nil {
			c.problem("DIFAT sector %d: %v", difSect, err)
			break
		}
		for i := uint32(0); i+1 < perSector; i++ {
			fatSect := SECT(binary.LittleEndian.Uint32(page[i*4:]))
			if fatSect == FreeSect && fatSeen >= f.hdr.CSectFat {
				// padding out the DIFAT sector
				continue
			}
			c.visit(fatSect, 0, nil, kindFATSect)
			if fe, err := f.fat.next(fatSect); err != nil {
				c.problem("FAT page %d: %v", fatSeen, err)
			} else if fe != FATSect {
				c.problem("FAT entry for sector %d is 0x%08X, expected FATSECT", fatSect, uint32(fe))
			}
			fatSeen++
		}
		c.narrate(1, "  Finished reading DIFAT sector %d, %d FAT sector numbers seen so far.\n", difSect, fatSeen)

		difSect = SECT(binary.LittleEndian.Uint32(page[(perSector-1)*4:]))
		difSeen++
	}

	if difSeen != f.hdr.CSectDif {
		c.problem("expected %d sectors in DIFAT chain, but found %d", f.hdr.CSectDif, difSeen)
	}
	if fatSeen != f.hdr.CSectFat {
		c.problem("expected %d sectors in FAT chain, but found %d", f.hdr.CSectFat, fatSeen)
	}
	c.narrate(0, "Done - visited %d FAT sectors.\n", fatSeen)

	// Anything left unvisited should be marked free in the FAT.
	unvisited := 0
	orphans := 0
	for sect := SECT(0); uint64(sect) < uint64(len(c.m)); sect++ {
		if c.m[sect].kind != kindUnvisited {
			continue
		}
		if unvisited == 0 {
			c.narrate(0, "Unvisited sectors: ")
		} else {
			c.narrate(0, ", ")
		}
		c.narrate(0, "%d", sect)
		unvisited++

		fe, err := f.fat.next(sect)
		if err != nil {
			c.narrate(0, " (?)")
			orphans++
			continue
		}
		if fe != FreeSect {
			c.narrate(0, " (%d)", uint32(fe))
			orphans++
		}
	}
	if unvisited > 0 {
		c.narrate(0, "\n")
	} else {
		c.narrate(1, "No unvisited sectors.\n")
	}
	if orphans > 0 {
		c.problem("%d unvisited sector(s) not marked as unused in the FAT", orphans)
	}
	c.narrate(1, "%d unvisited, of which %d not marked as unused.\n", unvisited, orphans)
	c.narrate(1, "Done.\n")

	if c.problems > 0 {
		return fmt.Errorf("%w: %d problem(s)", ErrCheckFailed, c.problems)
	}
	return nil
}
