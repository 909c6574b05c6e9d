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
package mmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File is a whole file mapped read-only into memory.
type File struct {
	Data []byte // The memory-mapped byte slice
	Size int64  // Total size of the underlying file

	f *os.File
}

// Open maps the entire file at path read-only. The mapping stays valid
// until Close; writers of the underlying file are not our problem.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to get file info for %q: %w", path, err)
	}
	size := fi.Size()

	if size == 0 {
		f.Close()
		return nil, fmt.Errorf("file %q is empty, cannot mmap", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap %q (%d bytes): %w", path, size, err)
	}

	return &File{
		Data: data,
		Size: size,
		f:    f,
	}, nil
}

// Close unmaps the memory region and closes the underlying file.
func (m *File) Close() error {
	var err error
	if m.Data != nil {
		if e := unix.Munmap(m.Data); e != nil {
			err = fmt.Errorf("failed to munmap: %w", e)
		}
		m.Data = nil
	}

	if m.f != nil {
		if e := m.f.Close(); e != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", e)
		}
		m.f = nil
	}
	return err
}
