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
)

// runList prints the directory tree: one row per entry, indented by
// depth, with an "m" marking streams that live in the mini-stream.
func runList(f *cfbf.File, out io.Writer) error {
	fmt.Fprintf(out, "%-8s %10s  %10s    NAME\n", "TYPE", "START SEC", "SIZE")

	return f.WalkDir(cfbf.DirVisitorFunc(func(e, parent *cfbf.DirEntry, id uint32, depth int) cfbf.WalkAction {
		mark := " "
		if f.StoredInMini(e) {
			mark = "m"
		}
		fmt.Fprintf(out, "%-8s %10d%s %10d    %*s%s\n",
			cfbf.ObjectTypeString(e.ObjectType), e.StartSector, mark, e.StreamSize, depth*4, "", e.Name)
		return cfbf.WalkContinue
	}))
}
