package rsfs

import (
	"fmt"
	"testing"
	"unicode/utf8"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestVolume_notFormatted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	v := NewVolume(NewMockBlockDevice(ctrl), WithLogger(testLogger()))

	_, err := v.Free()
	require.ErrorIs(t, err, ErrNotFormatted)
	_, err = v.List()
	require.ErrorIs(t, err, ErrNotFormatted)
	require.ErrorIs(t, v.Create("a"), ErrNotFormatted)
	require.ErrorIs(t, v.Remove("a"), ErrNotFormatted)
	require.ErrorIs(t, v.Rename("a", "b"), ErrNotFormatted)
	_, err = v.Stat("a")
	require.ErrorIs(t, err, ErrNotFormatted)
	_, err = v.Open("a", ModeRead)
	require.ErrorIs(t, err, ErrNotFormatted)
	require.ErrorIs(t, v.Check(), ErrNotFormatted)
}

func TestVolume_mountFormatsNewDevice(t *testing.T) {
	v, memFs := testingVolume(t)

	free, err := v.Free()
	require.NoError(t, err)
	require.Equal(t, int64(TableEntries-int(FirstDataCluster))*ClusterSize, free)
	require.NotEqual(t, uuid.Nil, v.ID())

	entries, err := v.List()
	require.NoError(t, err)
	require.Empty(t, entries)

	// The image now contains the formatted volume.
	again := remount(t, memFs)
	require.Equal(t, v.ID(), again.ID())
}

func TestVolume_remountKeepsFiles(t *testing.T) {
	v, memFs := testingVolume(t, WithLabel("MY VOLUME"))
	require.NoError(t, v.Create("a"))
	writeFile(t, v, "b", pattern(5000))

	again := remount(t, memFs)
	require.Equal(t, "MY VOLUME", again.Label())
	entries, err := again.List()
	require.NoError(t, err)
	require.Equal(t, []DirEntry{{Name: "a", Size: 0}, {Name: "b", Size: 5000}}, entries)
	require.Equal(t, pattern(5000), readFile(t, again, "b"))
	require.NoError(t, again.Check())
}

func TestVolume_formatDropsEverything(t *testing.T) {
	v, _ := testingVolume(t)
	require.NoError(t, v.Create("a"))
	id, err := v.Open("a", ModeRead)
	require.NoError(t, err)
	oldID := v.ID()

	require.NoError(t, v.Format())

	entries, err := v.List()
	require.NoError(t, err)
	require.Empty(t, entries)
	require.ErrorIs(t, v.Close(id), ErrNotOpen)
	require.NotEqual(t, oldID, v.ID())
}

func TestVolume_freeAccounting(t *testing.T) {
	v, _ := testingVolume(t)

	before, err := v.Free()
	require.NoError(t, err)
	require.NoError(t, v.Create("a"))
	after, err := v.Free()
	require.NoError(t, err)
	require.Equal(t, int64(ClusterSize), before-after)

	require.NoError(t, v.Remove("a"))
	removed, err := v.Free()
	require.NoError(t, err)
	require.Equal(t, before, removed)
}

func TestVolume_nameUniqueness(t *testing.T) {
	v, _ := testingVolume(t)

	require.NoError(t, v.Create("a"))
	require.ErrorIs(t, v.Create("a"), ErrAlreadyExists)

	entries, err := v.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestVolume_removeMissing(t *testing.T) {
	v, _ := testingVolume(t)
	require.ErrorIs(t, v.Remove("nope"), ErrNotFound)
}

func TestVolume_removeSurvivesRemount(t *testing.T) {
	v, memFs := testingVolume(t)

	before, err := v.Free()
	require.NoError(t, err)
	writeFile(t, v, "gone", pattern(3*ClusterSize+1))
	require.NoError(t, v.Create("kept"))
	require.NoError(t, v.Remove("gone"))

	again := remount(t, memFs)
	free, err := again.Free()
	require.NoError(t, err)
	require.Equal(t, before-ClusterSize, free)

	entries, err := again.List()
	require.NoError(t, err)
	require.Equal(t, []DirEntry{{Name: "kept", Size: 0}}, entries)
	require.Equal(t, dirSlot{}, again.directory[0])
	_, err = again.Stat("gone")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, again.Check())
}

func TestVolume_mountDropsSessions(t *testing.T) {
	v, memFs := testingVolume(t)

	id, err := v.Open("file", ModeWrite)
	require.NoError(t, err)
	_, err = v.Write(id, pattern(5000))
	require.NoError(t, err)

	// Another volume formats the same image behind our back.
	other := remount(t, memFs)
	require.NoError(t, other.Format())

	require.NoError(t, v.Mount())
	require.ErrorIs(t, v.Close(id), ErrNotOpen)

	entries, err := v.List()
	require.NoError(t, err)
	require.Empty(t, entries)
	require.NoError(t, v.Check())
	require.NoError(t, remount(t, memFs).Check())
}

func TestTrimLabel(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string
	}{
		{name: "short", label: "DATA", want: "DATA"},
		{name: "exact", label: "ABCDEFGHIJK", want: "ABCDEFGHIJK"},
		{name: "long ascii", label: "ABCDEFGHIJKLMNOP", want: "ABCDEFGHIJK"},
		{name: "rune across the limit", label: "ÄÄÄÄÄÄ", want: "ÄÄÄÄÄ"},
		{name: "rune at the limit", label: "ABCDEFGHIÄX", want: "ABCDEFGHIÄ"},
		{name: "three byte runes", label: "€€€€", want: "€€€"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trimLabel(tt.label)
			require.Equal(t, tt.want, got)
			require.True(t, utf8.ValidString(got))
		})
	}
}

func TestVolume_labelKeepsRunesIntact(t *testing.T) {
	_, memFs := testingVolume(t, WithLabel("ÄÄÄÄÄÄ"))
	label := remount(t, memFs).Label()
	require.Equal(t, "ÄÄÄÄÄ", label)
	require.True(t, utf8.ValidString(label))
}

func TestVolume_listingCompleteness(t *testing.T) {
	v, _ := testingVolume(t)
	writeFile(t, v, "x", pattern(10))
	writeFile(t, v, "y", pattern(5000))
	writeFile(t, v, "z", nil)

	// Removing and recreating x moves it into a later slot.
	require.NoError(t, v.Remove("x"))
	require.NoError(t, v.Create("w"))
	writeFile(t, v, "x", pattern(20))

	entries, err := v.List()
	require.NoError(t, err)
	require.Equal(t, []DirEntry{
		{Name: "w", Size: 0},
		{Name: "y", Size: 5000},
		{Name: "z", Size: 0},
		{Name: "x", Size: 20},
	}, entries)
}

func TestVolume_ListTo(t *testing.T) {
	v, _ := testingVolume(t)
	writeFile(t, v, "hello.txt", pattern(42))
	require.NoError(t, v.Create("empty"))

	want := fmt.Sprintf("%-25s %d\n%-25s %d\n", "hello.txt", 42, "empty", 0)

	tests := []struct {
		name    string
		size    int
		wantN   int
		wantErr error
	}{
		{name: "large buffer", size: 1024, wantN: len(want)},
		{name: "exact buffer", size: len(want), wantN: len(want)},
		{name: "too small", size: len(want) - 1, wantErr: ErrBufferTooSmall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.size)
			n, err := v.ListTo(buf)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantN, n)
			require.Equal(t, want, string(buf[:n]))
		})
	}
}

func TestFormatListing(t *testing.T) {
	require.Equal(t, "", FormatListing(nil))
	require.Equal(t,
		"a                         1\nbbbbbbbbbbbbbbbbbbbbbbbb  4096\n",
		FormatListing([]DirEntry{{Name: "a", Size: 1}, {Name: "bbbbbbbbbbbbbbbbbbbbbbbb", Size: 4096}}),
	)
}

func TestVolume_StatAndRename(t *testing.T) {
	v, memFs := testingVolume(t)
	writeFile(t, v, "old", pattern(100))

	require.NoError(t, v.Rename("old", "new"))
	_, err := v.Stat("old")
	require.ErrorIs(t, err, ErrNotFound)

	entry, err := remount(t, memFs).Stat("new")
	require.NoError(t, err)
	require.Equal(t, DirEntry{Name: "new", Size: 100}, entry)
}

func TestVolume_Check(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(v *Volume)
		wantErr bool
	}{
		{
			name:    "healthy",
			corrupt: func(v *Volume) {},
		},
		{
			name: "shared cluster",
			corrupt: func(v *Volume) {
				v.directory[1].firstCluster = v.directory[0].firstCluster
			},
			wantErr: true,
		},
		{
			name: "chain longer than size",
			corrupt: func(v *Volume) {
				v.directory[0].size = 0
			},
			wantErr: true,
		},
		{
			name: "unterminated chain",
			corrupt: func(v *Volume) {
				head := v.directory[1].firstCluster
				v.table[head] = entryFree
			},
			wantErr: true,
		},
		{
			name: "orphaned end of chain",
			corrupt: func(v *Volume) {
				v.table[FirstDataCluster+100] = entryEndOfChain
			},
			wantErr: true,
		},
		{
			name: "orphaned link",
			corrupt: func(v *Volume) {
				v.table[FirstDataCluster+100] = FirstDataCluster + 101
				v.table[FirstDataCluster+101] = entryEndOfChain
			},
			wantErr: true,
		},
		{
			name: "directory marker lost",
			corrupt: func(v *Volume) {
				v.table[DirectorySector] = entryFree
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := testingVolume(t)
			writeFile(t, v, "big", pattern(3*ClusterSize+1))
			writeFile(t, v, "small", pattern(1))

			tt.corrupt(v)
			if tt.wantErr {
				require.ErrorIs(t, v.Check(), ErrCorrupt)
			} else {
				require.NoError(t, v.Check())
			}
		})
	}
}

func TestVolume_chainTermination(t *testing.T) {
	v, _ := testingVolume(t)
	sizes := []int{0, 1, ClusterSize - 1, ClusterSize, ClusterSize + 1, 5*ClusterSize + 17}
	for i, size := range sizes {
		writeFile(t, v, fmt.Sprintf("f%d", i), pattern(size))
	}

	for _, slot := range v.directory {
		if !slot.used {
			continue
		}
		clusters, err := v.table.chain(slot.firstCluster)
		require.NoError(t, err)
		maxSteps := (int(slot.size)+ClusterSize-1)/ClusterSize + 1
		require.LessOrEqual(t, len(clusters), maxSteps, slot.name)
	}
	require.NoError(t, v.Check())
}
