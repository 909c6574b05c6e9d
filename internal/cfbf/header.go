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
	"bytes"
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size of the fixed container header, which occupies
// sector slot -1.
const HeaderSize = 512

// numHeaderFATSects is the length of the FAT page array embedded in the
// header; FAT pages beyond it are listed by the DIFAT chain.
const numHeaderFATSects = 109

var headerSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Header is the parsed container header. All multi-byte fields are
// little-endian on disk.
type Header struct {
	MinorVersion     uint16
	DllVersion       uint16
	SectorShift      uint16 // sector size is 1 << SectorShift
	MiniSectorShift  uint16 // mini-sector size is 1 << MiniSectorShift
	CSectDir         uint32 // directory sector count, meaningful when SectorShift >= 12
	CSectFat         uint32 // number of FAT pages
	SectDirStart     SECT   // first sector of the directory chain
	MiniSectorCutoff uint32 // streams strictly smaller than this live in the mini-stream
	SectMiniFatStart SECT   // first sector of the MiniFAT stream
	CSectMiniFat     uint32 // number of MiniFAT sectors
	SectDifStart     SECT   // first sector of the DIFAT chain
	CSectDif         uint32 // number of DIFAT sectors
	SectFat          [numHeaderFATSects]SECT
}

func parseHeader(b []byte) (*Header, error) {
	if !bytes.Equal(b[:8], headerSignature) {
		return nil, fmt.Errorf("%w: signature bytes not as expected", ErrFormat)
	}
	if b[0x1C] != 0xFE || b[0x1D] != 0xFF {
		return nil, fmt.Errorf("%w: byte-order mark is %02X %02X, expected FE FF", ErrFormat, b[0x1C], b[0x1D])
	}

	h := &Header{
		MinorVersion:     binary.LittleEndian.Uint16(b[24:26]),
		DllVersion:       binary.LittleEndian.Uint16(b[26:28]),
		SectorShift:      binary.LittleEndian.Uint16(b[30:32]),
		MiniSectorShift:  binary.LittleEndian.Uint16(b[32:34]),
		CSectDir:         binary.LittleEndian.Uint32(b[40:44]),
		CSectFat:         binary.LittleEndian.Uint32(b[44:48]),
		SectDirStart:     SECT(binary.LittleEndian.Uint32(b[48:52])),
		MiniSectorCutoff: binary.LittleEndian.Uint32(b[56:60]),
		SectMiniFatStart: SECT(binary.LittleEndian.Uint32(b[60:64])),
		CSectMiniFat:     binary.LittleEndian.Uint32(b[64:68]),
		SectDifStart:     SECT(binary.LittleEndian.Uint32(b[68:72])),
		CSectDif:         binary.LittleEndian.Uint32(b[72:76]),
	}
	for i := 0; i < numHeaderFATSects; i++ {
		h.SectFat[i] = SECT(binary.LittleEndian.Uint32(b[76+i*4:]))
	}

	if h.SectorShift < 7 || h.SectorShift > 20 {
		return nil, fmt.Errorf("%w: sector shift %d out of range", ErrFormat, h.SectorShift)
	}
	if h.MiniSectorShift >= h.SectorShift {
		return nil, fmt.Errorf("%w: mini-sector shift %d not smaller than sector shift %d",
			ErrFormat, h.MiniSectorShift, h.SectorShift)
	}
	return h, nil
}

// SectorSize returns the main sector size in bytes.
func (h *Header) SectorSize() int { return 1 << h.SectorShift }

// MiniSectorSize returns the mini-sector size in bytes.
func (h *Header) MiniSectorSize() int { return 1 << h.MiniSectorShift }
