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
	"strings"
	"unicode/utf16"
)

// dirEntrySize is the fixed on-disk size of a directory entry.
const dirEntrySize = 128

// DirEntry is one 128-byte directory record: a storage, a stream, the
// root, or an unused slot.
type DirEntry struct {
	Name        string
	NameLength  uint16 // bytes, including the UTF-16 NUL terminator
	ObjectType  uint8
	Color       uint8
	LeftSibID   uint32
	RightSibID  uint32
	ChildID     uint32
	CLSID       [16]byte
	StartSector SECT
	StreamSize  uint64

	// name16 holds the raw UTF-16 code units without the terminator; path
	// matching compares these directly.
	name16 []uint16
}

func (f *File) parseDirEntry(b []byte, id uint32) *DirEntry {
	e := &DirEntry{
		NameLength:  binary.LittleEndian.Uint16(b[64:66]),
		ObjectType:  b[66],
		Color:       b[67],
		LeftSibID:   binary.LittleEndian.Uint32(b[68:72]),
		RightSibID:  binary.LittleEndian.Uint32(b[72:76]),
		ChildID:     binary.LittleEndian.Uint32(b[76:80]),
		StartSector: SECT(binary.LittleEndian.Uint32(b[116:120])),
		StreamSize:  binary.LittleEndian.Uint64(b[120:128]),
	}
	copy(e.CLSID[:], b[80:96])

	nameLen := e.NameLength
	if nameLen > 64 {
		f.log.Warnf("dir entry %d: name length is %d bytes, which is > 64", id, nameLen)
		nameLen = 64
	}
	if nameLen >= 2 {
		n := int(nameLen)/2 - 1
		e.name16 = make([]uint16, n)
		for i := 0; i < n; i++ {
			e.name16[i] = binary.LittleEndian.Uint16(b[i*2:])
		}
		e.Name = string(utf16.Decode(e.name16))
	}
	return e
}

// readDirectory resolves the directory chain through the main FAT and
// parses every entry slot, used or not; the sector walker and explicit
// sibling links both need the unused ones in place.
func (f *File) readDirectory() error {
	sects, err := f.wholeChain(f.hdr.SectDirStart)
	if err != nil {
		return err
	}
	if len(sects) == 0 {
		return fmt.Errorf("%w: directory chain is empty", ErrStructure)
	}

	perSector := int(f.sectorSize()) / dirEntrySize
	f.entries = make([]*DirEntry, 0, len(sects)*perSector)
	for _, s := range sects {
		sec, err := f.sectorData(s)
		if err != nil {
			return err
		}
		for i := 0; i < perSector; i++ {
			id := uint32(len(f.entries))
			f.entries = append(f.entries, f.parseDirEntry(sec[i*dirEntrySize:(i+1)*dirEntrySize], id))
		}
	}
	return nil
}

// Root returns entry 0.
func (f *File) Root() *DirEntry { return f.entries[0] }

// Entry returns the directory entry with the given id, or nil when the id
// is outside the directory.
func (f *File) Entry(id uint32) *DirEntry {
	if uint64(id) >= uint64(len(f.entries)) {
		return nil
	}
	return f.entries[id]
}

// NumEntries returns the number of directory entry slots, including
// unused ones.
func (f *File) NumEntries() int { return len(f.entries) }

// StoredInMini reports whether an entry's stream lives in the mini-stream:
// a stream object with 0 < size < the mini-stream cutoff.
func (f *File) StoredInMini(e *DirEntry) bool {
	return e.ObjectType == ObjStream && e.StreamSize > 0 && e.StreamSize < uint64(f.hdr.MiniSectorCutoff)
}

// WalkAction is a directory visitor's verdict on how to proceed.
type WalkAction int

const (
	WalkContinue WalkAction = iota // keep walking
	WalkStop                       // stop the whole walk, success
	WalkAbort                      // stop the whole walk, failure
)

// DirVisitor receives directory entries in walk order: a node, then its
// child subtree, then its left and right sibling subtrees. Children carry
// the node as parent; siblings inherit the node's parent.
type DirVisitor interface {
	OnEntry(e *DirEntry, parent *DirEntry, id uint32, depth int) WalkAction
}

// DirVisitorFunc adapts a function to the DirVisitor interface.
type DirVisitorFunc func(e *DirEntry, parent *DirEntry, id uint32, depth int) WalkAction

func (fn DirVisitorFunc) OnEntry(e *DirEntry, parent *DirEntry, id uint32, depth int) WalkAction {
	return fn(e, parent, id, depth)
}

type dirFrame struct {
	id     uint32
	parent *DirEntry
	depth  int
}

// WalkDir traverses the directory tree from entry 0 using an explicit
// work stack; sibling trees in pathological files can be as deep as the
// entry count, which would blow the call stack. Unused and invalid
// entries reached through explicit links are skipped with a warning, as
// are entries reached twice through a link cycle.
func (f *File) WalkDir(v DirVisitor) error {
	visited := make([]bool, len(f.entries))
	stack := []dirFrame{{id: 0}}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if fr.id >= uint32(len(f.entries)) {
			return fmt.Errorf("%w: directory entry id %d not in chain", ErrStructure, fr.id)
		}
		if visited[fr.id] {
			f.log.Warnf("dir entry %d reached twice, sibling or child links form a cycle", fr.id)
			continue
		}
		visited[fr.id] = true

		e := f.entries[fr.id]
		switch e.ObjectType {
		case ObjStorage, ObjStream, ObjRoot:
		case ObjUnused:
			f.log.Warnf("dir entry %d is unused but reachable, skipping", fr.id)
			continue
		default:
			f.log.Warnf("dir entry %d has invalid object type 0x%02X, skipping", fr.id, e.ObjectType)
			continue
		}

		switch v.OnEntry(e, fr.parent, fr.id, fr.depth) {
		case WalkStop:
			return nil
		case WalkAbort:
			return ErrDirWalk
		}

		// Pushed in reverse so the child subtree is visited first, then the
		// left sibling subtree, then the right.
		if e.RightSibID != NoStream {
			stack = append(stack, dirFrame{id: e.RightSibID, parent: fr.parent, depth: fr.depth})
		}
		if e.LeftSibID != NoStream {
			stack = append(stack, dirFrame{id: e.LeftSibID, parent: fr.parent, depth: fr.depth})
		}
		if e.ChildID != NoStream {
			stack = append(stack, dirFrame{id: e.ChildID, parent: e, depth: fr.depth + 1})
		}
	}
	return nil
}

type pathFrame struct {
	id   uint32
	rest []uint16
}

// FindPath resolves a slash-delimited UTF-8 path, conventionally starting
// with "Root Entry", to a directory entry. Leading slashes are ignored.
// Matching compares raw UTF-16 code units: equal length, equal sequence.
// On a match the search descends into the child; on a mismatch it tries
// the left sibling subtree, then the right.
func (f *File) FindPath(path string) (*DirEntry, uint32, bool) {
	if len(f.entries) == 0 {
		return nil, 0, false
	}
	want := utf16.Encode([]rune(strings.TrimLeft(path, "/")))

	type state struct {
		id uint32
		n  int
	}
	seen := make(map[state]bool)
	stack := []pathFrame{{id: 0, rest: want}}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if fr.id == NoStream || fr.id >= uint32(len(f.entries)) {
			continue
		}
		st := state{fr.id, len(fr.rest)}
		if seen[st] {
			continue
		}
		seen[st] = true

		e := f.entries[fr.id]
		switch e.ObjectType {
		case ObjStorage, ObjStream, ObjRoot:
		case ObjUnused:
			f.log.Warnf("dir entry %d is unused but reachable, skipping", fr.id)
			continue
		default:
			f.log.Warnf("dir entry %d has invalid object type 0x%02X, skipping", fr.id, e.ObjectType)
			continue
		}

		comp := fr.rest
		last := true
		for i, u := range fr.rest {
			if u == '/' {
				comp = fr.rest[:i]
				last = false
				break
			}
		}

		if utf16Equal(e.name16, comp) {
			if last {
				return e, fr.id, true
			}
			stack = append(stack, pathFrame{id: e.ChildID, rest: fr.rest[len(comp)+1:]})
		} else {
			// Right is pushed first so the left subtree is searched first.
			stack = append(stack, pathFrame{id: e.RightSibID, rest: fr.rest})
			stack = append(stack, pathFrame{id: e.LeftSibID, rest: fr.rest})
		}
	}
	return nil, 0, false
}

func utf16Equal(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
