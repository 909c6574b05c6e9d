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
	"fmt"
	"io"

	"github.com/olescan/olescan/internal/cfbf"
	"github.com/olescan/olescan/pkg/util/format"
)

// printInfo is the default action: dump the interesting header fields.
func printInfo(f *cfbf.File, out io.Writer) error {
	hdr := f.Header()

	fmt.Fprintf(out, "DllVersion, MinorVersion:     %d, %d\n", hdr.DllVersion, hdr.MinorVersion)
	fmt.Fprintf(out, "Byte-order mark:              FE FF\n")
	fmt.Fprintf(out, "Main FAT sector size:         2^%d (%d)\n", hdr.SectorShift, hdr.SectorSize())
	fmt.Fprintf(out, "Mini-stream sector size:      2^%d (%d)\n", hdr.MiniSectorShift, hdr.MiniSectorSize())
	fmt.Fprintf(out, "FAT chain sector count:       %d\n", hdr.CSectFat)
	if hdr.SectorShift >= 12 {
		fmt.Fprintf(out, "Directory chain sector count: %d\n", hdr.CSectDir)
	}
	fmt.Fprintf(out, "Directory chain first sector: %d\n", hdr.SectDirStart)
	fmt.Fprintf(out, "Max file size in mini-stream: %d\n", hdr.MiniSectorCutoff)
	fmt.Fprintf(out, "MiniFAT first sector, count:  %d, %d\n", hdr.SectMiniFatStart, hdr.CSectMiniFat)
	fmt.Fprintf(out, "DIFAT first sector, count:    %d, %d\n", hdr.SectDifStart, hdr.CSectDif)
	fmt.Fprintf(out, "File size:                    %d (%s)\n", f.Size(), format.FormatBytes(f.Size()))
	fmt.Fprintln(out)
	return nil
}
