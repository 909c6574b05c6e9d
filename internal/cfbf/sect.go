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

// SECT is a 32-bit index into the file's sector array. Values above
// MaxRegSect are sentinels rather than sector numbers.
type SECT uint32

const (
	MaxRegSect SECT = 0xFFFFFFFA // largest addressable sector number
	DIFSect    SECT = 0xFFFFFFFC // the sector is itself a DIFAT page
	FATSect    SECT = 0xFFFFFFFD // the sector is itself a FAT page
	EndOfChain SECT = 0xFFFFFFFE // terminates a sector chain
	FreeSect   SECT = 0xFFFFFFFF // unallocated sector
)

// NoStream marks an absent child or sibling link in a directory entry.
const NoStream uint32 = 0xFFFFFFFF

// IsRegular reports whether s addresses a sector, as opposed to being one
// of the sentinel values.
func (s SECT) IsRegular() bool { return s <= MaxRegSect }

// Directory entry object types.
const (
	ObjUnused  uint8 = 0x0
	ObjStorage uint8 = 0x1
	ObjStream  uint8 = 0x2
	ObjRoot    uint8 = 0x5
)

// ObjectTypeString renders an object type the way the directory listing
// shows it; unknown values come out as hex.
func ObjectTypeString(t uint8) string {
	switch t {
	case ObjUnused:
		return "unused"
	case ObjStorage:
		return "storage"
	case ObjStream:
		return "stream"
	case ObjRoot:
		return "root"
	default:
		return fmt.Sprintf("%02X", t)
	}
}
