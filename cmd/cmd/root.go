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
	"io"
	"os"

	"github.com/olescan/olescan/internal/cfbf"
	"github.com/olescan/olescan/internal/env"
	"github.com/olescan/olescan/internal/logger"
	"github.com/spf13/cobra"
)

const defaultContentsPath = "Root Entry/Quill/QuillSub/CONTENTS"

func Execute() error {
	return NewRootCommand().Execute()
}

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          env.AppName + " [flags] FILE",
		Short:        env.AppName + " - Compound File Binary Format analyser",
		Version:      env.Version,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}

	f := cmd.Flags()
	f.BoolP("list", "l", false, "list the directory tree")
	f.StringP("read", "r", "", "dump the object with this path to the output file")
	f.BoolP("text", "t", false, "extract the TEXT section from the contents object")
	f.BoolP("walk", "w", false, "walk the FAT structures and highlight any problems")
	f.StringP("xml-report", "x", "", "write an XML report of the directory objects to this file")
	f.StringP("contents", "c", defaultContentsPath, "path of the contents object used by -t")
	f.StringP("output", "o", "", "output file name (default is stderr for -w, stdout otherwise)")
	f.BoolP("keep-utf16", "u", false, "do not convert extracted text to UTF-8")
	f.CountP("verbose", "v", "be more verbose")
	f.CountP("quiet", "q", "be less verbose")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	list, _ := flags.GetBool("list")
	dumpPath, _ := flags.GetString("read")
	text, _ := flags.GetBool("text")
	walk, _ := flags.GetBool("walk")
	xmlPath, _ := flags.GetString("xml-report")
	contentsPath, _ := flags.GetString("contents")
	outputPath, _ := flags.GetString("output")
	keepUTF16, _ := flags.GetBool("keep-utf16")
	verbose, _ := flags.GetCount("verbose")
	quiet, _ := flags.GetCount("quiet")

	actions := 0
	for _, set := range []bool{list, dumpPath != "", text, walk, xmlPath != ""} {
		if set {
			actions++
		}
	}
	if actions > 1 {
		return errors.New("only one of -l, -r, -t, -w and -x may be given")
	}

	verbosity := verbose - quiet
	log := logger.New(cmd.ErrOrStderr(), logger.LevelForVerbosity(verbosity))

	fileName := args[0]
	f, err := cfbf.Open(fileName, log)
	if err != nil {
		return err
	}
	defer f.Close()

	if xmlPath != "" {
		return runReport(f, fileName, xmlPath, log)
	}

	out, closeOut, err := openOutput(outputPath, walk)
	if err != nil {
		return err
	}

	switch {
	case list:
		err = runList(f, out)
	case dumpPath != "":
		err = runDump(f, fileName, dumpPath, out)
	case text:
		err = runText(f, contentsPath, keepUTF16, out, log)
	case walk:
		err = f.CheckSectors(out, verbosity)
	default:
		err = printInfo(f, out)
	}

	if cerr := closeOut(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// openOutput resolves -o: empty or "-" selects stdout, except for the
// sector walk whose narration defaults to stderr.
func openOutput(path string, forWalk bool) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		if forWalk {
			return os.Stderr, func() error { return nil }, nil
		}
		return os.Stdout, func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	bw := bufio.NewWriter(f)
	closeFn := func() error {
		if err := bw.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return bw, closeFn, nil
}
