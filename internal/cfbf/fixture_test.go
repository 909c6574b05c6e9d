package cfbf_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/olescan/olescan/internal/cfbf"
	"github.com/olescan/olescan/internal/logger"
	"github.com/stretchr/testify/require"
)

// Sentinel values, untyped for easy use in fixture tables.
const (
	fatSECT    = 0xFFFFFFFD
	difSECT    = 0xFFFFFFFC
	endOfChain = 0xFFFFFFFE
	freeSECT   = 0xFFFFFFFF
	noStream   = 0xFFFFFFFF
)

// imageBuilder assembles a synthetic container image sector by sector.
// FAT pages are registered in order; entries not set explicitly stay
// FREESECT.
type imageBuilder struct {
	sectorSize int
	shift      uint16
	sectors    [][]byte

	fatPages []uint32 // sector numbers of FAT pages, in order

	csectFat         uint32 // derived from fatPages unless forced
	forceCSectFat    bool
	csectDir         uint32
	sectDirStart     uint32
	cutoff           uint32
	sectMiniFatStart uint32
	csectMiniFat     uint32
	sectDifStart     uint32
	csectDif         uint32
}

func newImage(sectorShift uint16) *imageBuilder {
	return &imageBuilder{
		sectorSize:       1 << sectorShift,
		shift:            sectorShift,
		cutoff:           4096,
		sectMiniFatStart: endOfChain,
		sectDifStart:     endOfChain,
	}
}

// sec returns sector i, allocating zero-filled sectors up to it.
func (b *imageBuilder) sec(i uint32) []byte {
	for uint32(len(b.sectors)) <= i {
		b.sectors = append(b.sectors, make([]byte, b.sectorSize))
	}
	return b.sectors[i]
}

func (b *imageBuilder) putU32(sect, idx uint32, v uint32) {
	binary.LittleEndian.PutUint32(b.sec(sect)[idx*4:], v)
}

// fillFree sets every SECT entry of a sector to FREESECT.
func (b *imageBuilder) fillFree(sect uint32) {
	s := b.sec(sect)
	for i := range s {
		s[i] = 0xFF
	}
}

// fatPage registers sector s as the next FAT page.
func (b *imageBuilder) fatPage(s uint32) {
	b.fillFree(s)
	b.fatPages = append(b.fatPages, s)
}

// fat sets the FAT entry for sector s.
func (b *imageBuilder) fat(s uint32, v uint32) {
	perPage := uint32(b.sectorSize / 4)
	page := s / perPage
	b.putU32(b.fatPages[page], s%perPage, v)
}

// fatChain links a run of consecutive sectors into one chain ending in
// ENDOFCHAIN.
func (b *imageBuilder) fatChain(first, count uint32) {
	for i := uint32(0); i < count-1; i++ {
		b.fat(first+i, first+i+1)
	}
	b.fat(first+count-1, endOfChain)
}

type dirSpec struct {
	name  string
	typ   uint8
	left  uint32
	right uint32
	child uint32
	start uint32
	size  uint64
}

// dirEntry writes a 128-byte directory entry into the given sector slot.
func (b *imageBuilder) dirEntry(sect, slot uint32, d dirSpec) {
	e := b.sec(sect)[slot*128 : (slot+1)*128]

	name16 := utf16.Encode([]rune(d.name))
	for i, u := range name16 {
		binary.LittleEndian.PutUint16(e[i*2:], u)
	}
	binary.LittleEndian.PutUint16(e[64:], uint16(len(name16)+1)*2)
	e[66] = d.typ
	e[67] = 0x01 // black
	binary.LittleEndian.PutUint32(e[68:], d.left)
	binary.LittleEndian.PutUint32(e[72:], d.right)
	binary.LittleEndian.PutUint32(e[76:], d.child)
	binary.LittleEndian.PutUint32(e[116:], d.start)
	binary.LittleEndian.PutUint64(e[120:], d.size)
}

// build serialises the header and all sectors.
func (b *imageBuilder) build() []byte {
	headerSlot := b.sectorSize
	if headerSlot < 512 {
		headerSlot = 512
	}
	h := make([]byte, headerSlot)
	copy(h, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	binary.LittleEndian.PutUint16(h[24:], 0x003E) // minor version
	binary.LittleEndian.PutUint16(h[26:], 0x0003) // dll version
	h[0x1C] = 0xFE
	h[0x1D] = 0xFF
	binary.LittleEndian.PutUint16(h[30:], b.shift)
	binary.LittleEndian.PutUint16(h[32:], 6)
	binary.LittleEndian.PutUint32(h[40:], b.csectDir)

	csectFat := uint32(len(b.fatPages))
	if b.forceCSectFat {
		csectFat = b.csectFat
	}
	binary.LittleEndian.PutUint32(h[44:], csectFat)
	binary.LittleEndian.PutUint32(h[48:], b.sectDirStart)
	binary.LittleEndian.PutUint32(h[56:], b.cutoff)
	binary.LittleEndian.PutUint32(h[60:], b.sectMiniFatStart)
	binary.LittleEndian.PutUint32(h[64:], b.csectMiniFat)
	binary.LittleEndian.PutUint32(h[68:], b.sectDifStart)
	binary.LittleEndian.PutUint32(h[72:], b.csectDif)

	for i := 0; i < 109; i++ {
		v := uint32(freeSECT)
		if i < len(b.fatPages) {
			v = b.fatPages[i]
		}
		binary.LittleEndian.PutUint32(h[76+i*4:], v)
	}

	out := make([]byte, 0, len(h)+len(b.sectors)*b.sectorSize)
	out = append(out, h...)
	for _, s := range b.sectors {
		out = append(out, s...)
	}
	return out
}

// write dumps the image to a temp file and returns its path.
func (b *imageBuilder) write(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.cfbf")
	require.NoError(t, os.WriteFile(path, b.build(), 0o644))
	return path
}

// open builds, writes and opens the image.
func (b *imageBuilder) open(t *testing.T, log *logger.Logger) *cfbf.File {
	t.Helper()
	f, err := cfbf.Open(b.write(t), log)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func pattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i % 251)
	}
	return p
}

// minimalImage is the smallest well-formed container: one FAT page, one
// directory sector holding the root and a 100-byte stream "A" stored in
// the mini-stream, one mini-stream sector and one MiniFAT sector.
//
// Layout: sector 0 FAT page, 1 directory, 2 mini-stream, 3 MiniFAT.
func minimalImage() *imageBuilder {
	b := newImage(9)
	b.fatPage(0)
	b.fat(0, fatSECT)
	b.fat(1, endOfChain) // directory
	b.fat(2, endOfChain) // mini-stream
	b.fat(3, endOfChain) // MiniFAT

	b.sectDirStart = 1
	b.dirEntry(1, 0, dirSpec{
		name: "Root Entry", typ: 5,
		left: noStream, right: noStream, child: 1,
		start: 2, size: 128,
	})
	b.dirEntry(1, 1, dirSpec{
		name: "A", typ: 2,
		left: noStream, right: noStream, child: noStream,
		start: 0, size: 100,
	})
	// unused slots 2 and 3 stay zero

	copy(b.sec(2), pattern(100)) // stream "A" at mini-sectors 0 and 1

	b.sectMiniFatStart = 3
	b.csectMiniFat = 1
	b.fillFree(3)
	b.putU32(3, 0, 1)
	b.putU32(3, 1, endOfChain)

	return b
}
