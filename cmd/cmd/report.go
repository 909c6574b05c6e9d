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
	"os"

	"github.com/olescan/olescan/internal/cfbf"
	"github.com/olescan/olescan/internal/env"
	"github.com/olescan/olescan/internal/logger"
	"github.com/olescan/olescan/pkg/report"
)

// runReport writes an XML report of every directory object with its
// resolved physical byte runs. Mini-stream extents are translated to real
// file offsets through the root entry's chain.
func runReport(f *cfbf.File, fileName, xmlPath string, log *logger.Logger) error {
	outFile, err := os.Create(xmlPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	bw := bufio.NewWriter(outFile)
	w := report.NewWriter(bw)

	err = w.WriteHeader(report.Header{
		Version: report.Version,
		Creator: report.Creator{
			Package:              env.AppName,
			Version:              env.Version,
			ExecutionEnvironment: report.GetExecEnv(),
		},
		Source: report.Source{
			Filename:   fileName,
			SectorSize: f.Header().SectorSize(),
			FileSize:   f.Size(),
		},
	})
	if err != nil {
		return err
	}

	paths := map[*cfbf.DirEntry]string{}
	var writeErr error
	err = f.WalkDir(cfbf.DirVisitorFunc(func(e, parent *cfbf.DirEntry, id uint32, depth int) cfbf.WalkAction {
		path := e.Name
		if parent != nil {
			path = paths[parent] + "/" + e.Name
		}
		paths[e] = path

		runs, err := f.PhysicalRuns(e)
		if err != nil {
			log.Errorf("entry %q: %v", path, err)
			return cfbf.WalkContinue
		}

		obj := report.Object{
			Path: path,
			Type: cfbf.ObjectTypeString(e.ObjectType),
			Size: e.StreamSize,
			Mini: f.StoredInMini(e),
		}
		for _, r := range runs {
			obj.ByteRuns.Runs = append(obj.ByteRuns.Runs, report.ByteRun{
				Offset:    r.Offset,
				ImgOffset: r.ImgOffset,
				Length:    r.Length,
			})
		}
		if writeErr = w.WriteObject(obj); writeErr != nil {
			return cfbf.WalkAbort
		}
		return cfbf.WalkContinue
	}))
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		return err
	}

	if err := w.Close(); err != nil {
		return err
	}
	return bw.Flush()
}
