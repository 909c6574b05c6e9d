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
	"fmt"
	"io"

	"github.com/olescan/olescan/internal/cfbf"
	"github.com/olescan/olescan/internal/logger"
	"github.com/olescan/olescan/internal/pubtext"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// runText extracts the Publisher TEXT section from the contents object.
// The text is UTF-16LE on disk; unless keepUTF16 is set it is converted
// to UTF-8 through a streaming transformer, so surrogate pairs split
// across chunk boundaries survive.
func runText(f *cfbf.File, contentsPath string, keepUTF16 bool, out io.Writer, log *logger.Logger) error {
	entry, _, ok := f.FindPath(contentsPath)
	if !ok {
		return fmt.Errorf("can't extract text: no entry named %q in directory", contentsPath)
	}

	sectors, sectorSize, err := f.EntrySectors(entry)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", contentsPath, err)
	}

	bw := bufio.NewWriter(out)
	var target io.Writer = bw
	var tw *transform.Writer
	if !keepUTF16 {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
		tw = transform.NewWriter(bw, dec)
		target = tw
	}

	err = pubtext.ExtractText(sectors, sectorSize, log, func(p []byte) error {
		_, werr := target.Write(p)
		return werr
	})
	if err != nil {
		return err
	}

	if tw != nil {
		if err := tw.Close(); err != nil {
			return fmt.Errorf("text conversion failed: %w", err)
		}
	}
	return bw.Flush()
}
