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
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/olescan/olescan/internal/cfbf"
)

// runDump writes the stream at dumpPath, byte for byte, to out.
func runDump(f *cfbf.File, fileName, dumpPath string, out io.Writer) error {
	entry, _, ok := f.FindPath(dumpPath)
	if !ok {
		return fmt.Errorf("object %q not found in %s", dumpPath, fileName)
	}
	if entry.ObjectType == cfbf.ObjRoot {
		return errors.New("you're not allowed to dump the root entry")
	}
	if entry.ObjectType != cfbf.ObjStream {
		return fmt.Errorf("%s is not a stream object", dumpPath)
	}

	bw := bufio.NewWriter(out)
	err := f.Dump(entry, cfbf.SectorSinkFunc(func(data []byte, sectorIndex uint32, fileOffset int64) error {
		_, werr := bw.Write(data)
		return werr
	}))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dumpPath, err)
	}
	return bw.Flush()
}
