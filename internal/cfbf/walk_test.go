package cfbf_test

import (
	"bytes"
	"testing"

	"github.com/olescan/olescan/internal/cfbf"
	"github.com/olescan/olescan/internal/logger"
	"github.com/stretchr/testify/require"
)

func checkWith(t *testing.T, b *imageBuilder) (error, string) {
	t.Helper()
	var diag bytes.Buffer
	f := b.open(t, logger.New(&diag, logger.ErrorLevel))
	err := f.CheckSectors(nil, -2)
	return err, diag.String()
}

func TestCheckSectorsCleanMinimal(t *testing.T) {
	err, diag := checkWith(t, minimalImage())
	require.NoError(t, err)
	require.Empty(t, diag)
}

func TestCheckSectorsNarration(t *testing.T) {
	f := minimalImage().open(t, nil)

	var out bytes.Buffer
	require.NoError(t, f.CheckSectors(&out, 0))
	require.Contains(t, out.String(), "Walking directory chain, 1 sectors...")
	require.Contains(t, out.String(), "Walking FAT chain, expecting 1 sectors...")
	require.Contains(t, out.String(), "Not walking DIFAT chain")
}

// Two stream chains referencing the same sector: the walker reports the
// shared sector and the check fails.
func TestCheckSectorsSharedSector(t *testing.T) {
	b := newImage(9)
	b.fatPage(0)
	b.fat(0, fatSECT)
	b.fat(1, endOfChain) // directory
	b.fatChain(2, 8)     // stream C: sectors 2..9
	b.fatChain(10, 7)    // stream D: sectors 10..16, then the shared 9
	b.fat(16, 9)
	b.sec(16)

	b.sectDirStart = 1
	b.dirEntry(1, 0, dirSpec{
		name: "Root Entry", typ: 5,
		left: noStream, right: noStream, child: 1,
		start: endOfChain, size: 0,
	})
	b.dirEntry(1, 1, dirSpec{
		name: "C", typ: 2,
		left: noStream, right: 2, child: noStream,
		start: 2, size: 4096,
	})
	b.dirEntry(1, 2, dirSpec{
		name: "D", typ: 2,
		left: noStream, right: noStream, child: noStream,
		start: 10, size: 4096,
	})

	err, diag := checkWith(t, b)
	require.ErrorIs(t, err, cfbf.ErrCheckFailed)
	require.Contains(t, diag, "already in use")
}

func TestCheckSectorsOrphanSector(t *testing.T) {
	b := minimalImage()
	b.fat(4, endOfChain) // allocated but referenced by nothing
	b.sec(4)

	err, diag := checkWith(t, b)
	require.ErrorIs(t, err, cfbf.ErrCheckFailed)
	require.Contains(t, diag, "not marked as unused")
}

func TestCheckSectorsFreeUnvisitedIsFine(t *testing.T) {
	b := minimalImage()
	b.sec(4) // exists, FAT says FREESECT

	err, diag := checkWith(t, b)
	require.NoError(t, err)
	require.Empty(t, diag)
}

func TestCheckSectorsLengthMismatch(t *testing.T) {
	b := minimalImage()
	b.fat(4, endOfChain)
	b.dirEntry(1, 2, dirSpec{
		name: "Long", typ: 2,
		left: noStream, right: noStream, child: noStream,
		start: 4, size: 5000, // one 512-byte sector cannot carry 5000 bytes
	})
	b.dirEntry(1, 1, dirSpec{
		name: "A", typ: 2,
		left: noStream, right: 2, child: noStream,
		start: 0, size: 100,
	})
	b.sec(4)

	err, diag := checkWith(t, b)
	require.ErrorIs(t, err, cfbf.ErrCheckFailed)
	require.Contains(t, diag, "read 512 bytes, expected 5000")
}

// A stream whose chain carries more sectors than its size needs.
func TestCheckSectorsMoreSectorsThanSize(t *testing.T) {
	b := minimalImage()
	b.fatChain(4, 9) // nine sectors for a stream that fills eight
	b.sec(12)
	b.dirEntry(1, 2, dirSpec{
		name: "Over", typ: 2,
		left: noStream, right: noStream, child: noStream,
		start: 4, size: 4096,
	})
	b.dirEntry(1, 1, dirSpec{
		name: "A", typ: 2,
		left: noStream, right: 2, child: noStream,
		start: 0, size: 100,
	})

	err, diag := checkWith(t, b)
	require.ErrorIs(t, err, cfbf.ErrCheckFailed)
	require.Contains(t, diag, "more sectors")
}

func TestCheckSectorsFATPageNotMarked(t *testing.T) {
	b := minimalImage()
	b.fat(0, endOfChain) // FAT page 0 must be marked FATSECT

	err, diag := checkWith(t, b)
	require.ErrorIs(t, err, cfbf.ErrCheckFailed)
	require.Contains(t, diag, "expected FATSECT")
}

func TestCheckSectorsSelfLoopChain(t *testing.T) {
	b := minimalImage()
	b.fat(4, 4)
	b.sec(4)
	b.dirEntry(1, 2, dirSpec{
		name: "Loop", typ: 2,
		left: noStream, right: noStream, child: noStream,
		start: 4, size: 90000,
	})
	b.dirEntry(1, 1, dirSpec{
		name: "A", typ: 2,
		left: noStream, right: 2, child: noStream,
		start: 0, size: 100,
	})

	err, _ := checkWith(t, b)
	require.ErrorIs(t, err, cfbf.ErrCheckFailed)
}

func TestCheckSectorsInvalidObjectType(t *testing.T) {
	b := minimalImage()
	b.dirEntry(1, 2, dirSpec{
		name: "Odd", typ: 7,
		left: noStream, right: noStream, child: noStream,
	})

	err, diag := checkWith(t, b)
	require.ErrorIs(t, err, cfbf.ErrCheckFailed)
	require.Contains(t, diag, "invalid object type")
}

func TestCheckSectorsDIFATListedPageNotMarked(t *testing.T) {
	// difatImage is clean; a FAT page listed by the DIFAT sector whose own
	// FAT entry is not FATSECT makes the reconciliation fail.
	b := difatImage()
	f := b.open(t, nil)
	require.NoError(t, f.CheckSectors(nil, -2))

	// Page 150 is one of the pages listed by the DIFAT sector, not by the
	// header array.
	b2 := difatImage()
	b2.fat(150, endOfChain) // page 150 no longer marked FATSECT

	err, diag := checkWith(t, b2)
	require.ErrorIs(t, err, cfbf.ErrCheckFailed)
	require.Contains(t, diag, "expected FATSECT")
}
