package cfbf_test

import (
	"testing"

	"github.com/olescan/olescan/internal/cfbf"
	"github.com/stretchr/testify/require"
)

func TestPhysicalRunsMainFAT(t *testing.T) {
	b, _ := largeImage()
	f := b.open(t, nil)

	entry, _, ok := f.FindPath("Root Entry/B")
	require.True(t, ok)

	runs, err := f.PhysicalRuns(entry)
	require.NoError(t, err)

	// 1954 consecutive sectors starting at sector 17 coalesce into one run.
	require.Equal(t, []cfbf.Run{
		{Offset: 0, ImgOffset: 18 * 512, Length: 1000000},
	}, runs)
}

func TestPhysicalRunsMiniStream(t *testing.T) {
	f := minimalImage().open(t, nil)

	entry, _, ok := f.FindPath("Root Entry/A")
	require.True(t, ok)

	runs, err := f.PhysicalRuns(entry)
	require.NoError(t, err)

	// Mini-sectors 0 and 1 sit at the start of the mini-stream, which is
	// sector 2 of the file; both translate to one contiguous extent.
	require.Equal(t, []cfbf.Run{
		{Offset: 0, ImgOffset: 3 * 512, Length: 100},
	}, runs)
}

func TestPhysicalRunsRootIsMiniStream(t *testing.T) {
	f := minimalImage().open(t, nil)

	runs, err := f.PhysicalRuns(f.Root())
	require.NoError(t, err)
	require.Equal(t, []cfbf.Run{
		{Offset: 0, ImgOffset: 3 * 512, Length: 128},
	}, runs)
}

func TestPhysicalRunsStorageAndEmpty(t *testing.T) {
	f := treeImage().open(t, nil)

	storage, _, ok := f.FindPath("Root Entry/B")
	require.True(t, ok)
	runs, err := f.PhysicalRuns(storage)
	require.NoError(t, err)
	require.Nil(t, runs)

	empty, _, ok := f.FindPath("Root Entry/B/D")
	require.True(t, ok)
	runs, err = f.PhysicalRuns(empty)
	require.NoError(t, err)
	require.Nil(t, runs)
}

func TestPhysicalRunsSplitChain(t *testing.T) {
	// A stream whose chain is deliberately out of order produces one run
	// per discontiguous extent.
	b := minimalImage()
	b.cutoff = 64 // keep the 1000-byte stream in the main FAT
	b.fat(4, 6)
	b.fat(6, endOfChain)
	b.sec(6)
	b.dirEntry(1, 2, dirSpec{
		name: "Split", typ: 2,
		left: noStream, right: noStream, child: noStream,
		start: 4, size: 1000,
	})
	b.dirEntry(1, 1, dirSpec{
		name: "A", typ: 2,
		left: noStream, right: 2, child: noStream,
		start: 0, size: 100,
	})
	f := b.open(t, nil)

	entry, _, ok := f.FindPath("Root Entry/Split")
	require.True(t, ok)

	runs, err := f.PhysicalRuns(entry)
	require.NoError(t, err)
	require.Equal(t, []cfbf.Run{
		{Offset: 0, ImgOffset: 5 * 512, Length: 512},
		{Offset: 512, ImgOffset: 7 * 512, Length: 488},
	}, runs)
}
