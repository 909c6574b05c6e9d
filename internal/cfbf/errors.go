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

import "errors"

var (
	// ErrFormat covers bad signatures, a bad byte-order mark and other
	// violations of the fixed header layout.
	ErrFormat = errors.New("cfbf: not a valid compound file")

	// ErrTruncated is returned when a sector or structure extends past the
	// end of the mapped file.
	ErrTruncated = errors.New("cfbf: data extends past end of file")

	// ErrStructure covers inconsistent allocation structures: count
	// mismatches, invalid sector references, sentinels inside chains.
	ErrStructure = errors.New("cfbf: inconsistent allocation structures")

	// ErrChainCycle is returned when a sector chain revisits a sector it
	// has already passed through, and so would never terminate.
	ErrChainCycle = errors.New("cfbf: sector chain does not terminate")

	// ErrChainShort is returned when a chain reaches end-of-chain before
	// delivering the declared stream size.
	ErrChainShort = errors.New("cfbf: sector chain ends before stream size")

	// ErrNotStream is returned by Dump for storage and other non-stream
	// entries.
	ErrNotStream = errors.New("cfbf: entry is not a stream object")

	// ErrRootDump is returned by Dump for the root entry.
	ErrRootDump = errors.New("cfbf: refusing to dump the root entry")

	// ErrDirWalk is returned when a directory visitor aborts the walk.
	ErrDirWalk = errors.New("cfbf: directory walk failed")

	// ErrCheckFailed is returned by CheckSectors when any anomaly fired.
	ErrCheckFailed = errors.New("cfbf: container structure check failed")
)
