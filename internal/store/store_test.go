package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

func TestCSVRecorderWritesCommonFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.csv")
	rec, err := Open(path, 4, 0)
	require.NoError(t, err)

	require.NoError(t, rec.PushBatch([][]float64{{1, 2}, {3, 4}, {-5, 6}, {7, 8.5}}))
	require.NoError(t, rec.PushBatch([][]float64{{9, 9}, {10}, {11, 11, 11}, {12, 12}}))
	require.NoError(t, rec.Close())
	require.Equal(t, 4, rec.Dropped())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "1,3,-5,7\n2,4,6,8.5\n9,10,11,12\n", string(data))
}

func TestRecorderRejectsWrongBatchCount(t *testing.T) {
	rec, err := Open(filepath.Join(t.TempDir(), "samples.csv"), 2, 0)
	require.NoError(t, err)
	defer rec.Close()
	require.Error(t, rec.PushBatch([][]float64{{1}}))
}

func TestOpenRejectsBadArguments(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "a.csv"), 0, 0)
	require.Error(t, err)
	_, err = Open(filepath.Join(dir, "a.wav"), 2, 0)
	require.Error(t, err)
}

func TestWAVRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	rec, err := Open(path, 2, 8000)
	require.NoError(t, err)

	require.NoError(t, rec.PushBatch([][]float64{{100, -200, 40000}, {1.4, 2.6, -40000}}))
	require.NoError(t, rec.PushBatch([][]float64{{5}, {}}))
	require.NoError(t, rec.Close())
	require.Equal(t, 1, rec.Dropped())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	require.Equal(t, 2, buf.Format.NumChannels)
	require.Equal(t, 8000, buf.Format.SampleRate)
	require.Equal(t, []int{100, 1, -200, 3, 32767, -32768}, buf.Data)
}
