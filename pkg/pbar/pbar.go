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
package pbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const MinRefreshRate = time.Millisecond * 250

// Bar renders a single-line progress indicator over a fixed number of units
// (sectors, entries). Output is rewritten in place with \r; callers are
// expected to hand it a terminal-ish writer such as stderr.
type Bar struct {
	Total int64
	Done  int64

	out        io.Writer
	label      string
	lastUpdate time.Time
}

// New creates a progress bar writing to w.
func New(w io.Writer, label string, total int64) *Bar {
	return &Bar{
		Total: total,
		out:   w,
		label: label,
	}
}

// Add advances the bar by n units and re-renders it, rate-limited.
func (b *Bar) Add(n int64) {
	b.Done += n
	b.Render(false)
}

// Render prints the current progress line. Unless force is set, renders are
// dropped when the last one is fresher than MinRefreshRate.
func (b *Bar) Render(force bool) {
	if b.Total <= 0 {
		return
	}
	if !force && time.Since(b.lastUpdate) < MinRefreshRate {
		return
	}
	b.lastUpdate = time.Now()

	percentage := float64(b.Done) / float64(b.Total) * 100

	barLength := 20
	filledLen := int(float64(barLength) * percentage / 100)
	if filledLen > barLength {
		filledLen = barLength
	}
	var bar string
	if filledLen == barLength {
		bar = strings.Repeat("=", barLength)
	} else {
		bar = strings.Repeat("=", filledLen) + ">" + strings.Repeat(" ", barLength-filledLen-1)
	}

	fmt.Fprintf(b.out, "\r%s: [%s] %3.0f%% (%d/%d)    ", b.label, bar, percentage, b.Done, b.Total)
}

// Finish forces a final render and terminates the line.
func (b *Bar) Finish() {
	b.Render(true)
	fmt.Fprintln(b.out)
}
