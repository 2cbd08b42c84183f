package acquire

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/olivier-w/micscope/internal/channels"
	"github.com/olivier-w/micscope/internal/rate"
	"github.com/stretchr/testify/require"
)

// scriptedSource returns queued batches, then io.EOF.
type scriptedSource struct {
	channels int
	batches  [][][]float64
	err      error
	closed   bool
}

func (s *scriptedSource) Channels() int { return s.channels }

func (s *scriptedSource) Poll() ([][]float64, error) {
	if len(s.batches) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0)} }

func TestLineSourceParsesFrames(t *testing.T) {
	input := "1,2\n 3 , 4 \nbad,line\n5\n\n6,7\n"
	src, err := NewLineSource(strings.NewReader(input), 2, logs.NewTestingLog(t))
	require.NoError(t, err)
	<-src.Done()

	batch, err := src.Poll()
	require.NoError(t, err)
	require.Equal(t, [][]float64{{1, 3, 6}, {2, 4, 7}}, batch)
	require.Equal(t, 2, src.Skipped())

	batch, err = src.Poll()
	require.ErrorIs(t, err, io.EOF)
	require.Nil(t, batch)
}

func TestLineSourcePollBeforeData(t *testing.T) {
	pr, pw := io.Pipe()
	src, err := NewLineSource(pr, 3, logs.NewTestingLog(t))
	require.NoError(t, err)

	batch, err := src.Poll()
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for _, b := range batch {
		require.Empty(t, b)
	}

	_, err = pw.Write([]byte("10,20,30\n"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	<-src.Done()

	batch, err = src.Poll()
	require.NoError(t, err)
	require.Equal(t, [][]float64{{10}, {20}, {30}}, batch)
	require.NoError(t, src.Close())
}

func TestLineSourceRejectsZeroChannels(t *testing.T) {
	_, err := NewLineSource(strings.NewReader(""), 0, logs.NewTestingLog(t))
	require.Error(t, err)
}

func TestSynthProducesElapsedSamples(t *testing.T) {
	clock := newFakeClock()
	s, err := NewSynth(SynthOptions{Channels: 2, SampleRate: 1000, Frequency: 50, Amplitude: 10})
	require.NoError(t, err)
	s.now = clock.now
	s.last = clock.now()

	clock.advance(125 * time.Millisecond)
	batch, err := s.Poll()
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Len(t, batch[0], 125)
	require.Len(t, batch[1], 125)

	// Channel 1 is half a period out of phase with channel 0.
	require.InDelta(t, 0, batch[0][0], 1e-9)
	require.InDelta(t, 10*math.Sin(2*math.Pi*50*5/1000.0), batch[0][5], 1e-9)
	require.InDelta(t, -batch[0][5], batch[1][5], 1e-9)
}

func TestSynthCarriesFractionalSamples(t *testing.T) {
	clock := newFakeClock()
	s, err := NewSynth(SynthOptions{Channels: 1, SampleRate: 4})
	require.NoError(t, err)
	s.now = clock.now
	s.last = clock.now()

	// 375ms at 4 samples/s is 1.5 samples.
	clock.advance(375 * time.Millisecond)
	batch, err := s.Poll()
	require.NoError(t, err)
	require.Len(t, batch[0], 1)

	clock.advance(375 * time.Millisecond)
	batch, err = s.Poll()
	require.NoError(t, err)
	require.Len(t, batch[0], 2)
}

func TestSynthCapsBurstAfterStall(t *testing.T) {
	clock := newFakeClock()
	s, err := NewSynth(SynthOptions{Channels: 1, SampleRate: 200})
	require.NoError(t, err)
	s.now = clock.now
	s.last = clock.now()

	clock.advance(10 * time.Second)
	batch, err := s.Poll()
	require.NoError(t, err)
	require.Len(t, batch[0], 200)
}

func TestSynthRejectsBadOptions(t *testing.T) {
	_, err := NewSynth(SynthOptions{Channels: 0, SampleRate: 10})
	require.Error(t, err)
	_, err = NewSynth(SynthOptions{Channels: 1, SampleRate: 0})
	require.Error(t, err)
}

func TestCompressAveragesAndCarries(t *testing.T) {
	src := &scriptedSource{channels: 2, batches: [][][]float64{
		{{1, 3, 5}, {2, 2}},
		{{7, 10, 20}, {4, 4, 6}},
	}}
	c := Compress(src, 2)
	require.Equal(t, 2, c.Channels())

	batch, err := c.Poll()
	require.NoError(t, err)
	require.Equal(t, [][]float64{{2}, {2}}, batch)

	batch, err = c.Poll()
	require.NoError(t, err)
	require.Equal(t, [][]float64{{6, 15}, {4}}, batch)

	_, err = c.Poll()
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, c.Close())
	require.True(t, src.closed)
}

func TestCompressFactorOneIsIdentity(t *testing.T) {
	src := &scriptedSource{channels: 1}
	require.Same(t, Source(src), Compress(src, 1))
}

func TestLoopTickPushesAndObservesRate(t *testing.T) {
	set, err := channels.New(2, 3)
	require.NoError(t, err)
	tracker := rate.New(10, 10*time.Millisecond, 1)
	l := &Loop{
		Source: &scriptedSource{channels: 2, batches: [][][]float64{
			{{1, 2}, {3, 4}},
			{{5, 6, 7, 8}, {9}},
		}},
		Sink:     set,
		Interval: 10 * time.Millisecond,
		Rate:     tracker,
		Log:      logs.NewTestingLog(t),
	}

	done, err := l.tick()
	require.NoError(t, err)
	require.False(t, done)
	done, err = l.tick()
	require.NoError(t, err)
	require.False(t, done)

	require.Equal(t, [][]float64{{6, 7, 8}, {3, 4, 9}}, set.Snapshot())
	// (2 + 4) samples over two 10ms ticks
	require.InDelta(t, 300.0, tracker.SamplesPerSecond(), 1e-9)

	done, err = l.tick()
	require.NoError(t, err)
	require.True(t, done)
}

func TestLoopRateCountsLongestChannel(t *testing.T) {
	set, err := channels.New(3, 8)
	require.NoError(t, err)
	tracker := rate.New(10, 10*time.Millisecond, 1)
	l := &Loop{
		Source: &scriptedSource{channels: 3, batches: [][][]float64{
			{{}, {1, 2, 3}, {4}},
			{{5}, {6}, {7, 8, 9, 10, 11}},
		}},
		Sink:     set,
		Interval: 10 * time.Millisecond,
		Rate:     tracker,
		Log:      logs.NewTestingLog(t),
	}

	for range 2 {
		done, err := l.tick()
		require.NoError(t, err)
		require.False(t, done)
	}
	// (3 + 5) samples over two 10ms ticks
	require.InDelta(t, 400.0, tracker.SamplesPerSecond(), 1e-9)
}

func TestLoopStopsOnSinkError(t *testing.T) {
	set, err := channels.New(2, 3)
	require.NoError(t, err)
	l := &Loop{
		Source:   &scriptedSource{channels: 3, batches: [][][]float64{{{1}, {2}, {3}}}},
		Sink:     set,
		Interval: time.Millisecond,
		Log:      logs.NewTestingLog(t),
	}
	err = l.Run(context.Background())
	require.ErrorIs(t, err, channels.ErrChannelCountMismatch)
}

func TestLoopReturnsSourceError(t *testing.T) {
	boom := errors.New("device unplugged")
	set, err := channels.New(1, 3)
	require.NoError(t, err)
	l := &Loop{
		Source:   &scriptedSource{channels: 1, err: boom},
		Sink:     set,
		Interval: time.Millisecond,
		Log:      logs.NewTestingLog(t),
	}
	require.ErrorIs(t, l.Run(context.Background()), boom)
}

func TestLoopStopsOnCancel(t *testing.T) {
	set, err := channels.New(1, 8)
	require.NoError(t, err)
	synth, err := NewSynth(SynthOptions{Channels: 1, SampleRate: 1000})
	require.NoError(t, err)
	l := &Loop{Source: synth, Sink: set, Interval: time.Millisecond, Log: logs.NewTestingLog(t)}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
	require.Len(t, set.Snapshot()[0], 8)
}

func TestTeeStopsAtFirstError(t *testing.T) {
	a, err := channels.New(1, 2)
	require.NoError(t, err)
	b, err := channels.New(2, 2)
	require.NoError(t, err)

	require.NoError(t, Tee(a).PushBatch([][]float64{{1}}))
	err = Tee(a, b).PushBatch([][]float64{{2}})
	require.ErrorIs(t, err, channels.ErrChannelCountMismatch)
	require.Equal(t, []int{2}, a.Lens())
}

func writeTestWAV(t *testing.T, path string, sampleRate int, frames [][]int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, sampleRate, 16, len(frames[0]), 1)
	var data []int
	for _, fr := range frames {
		data = append(data, fr...)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: len(frames[0]), SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func TestFileSourceReplaysWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "four mics.wav")
	frames := make([][]int, 10)
	for i := range frames {
		frames[i] = []int{i, -i, 100 * i, 7}
	}
	writeTestWAV(t, path, 128, frames)

	src, err := NewFileSource(path)
	require.NoError(t, err)
	defer src.Close()
	require.Equal(t, 4, src.Channels())
	require.Equal(t, 128, src.SampleRate())
	require.Equal(t, "four mics", src.Title())

	clock := newFakeClock()
	src.now = clock.now
	src.last = clock.now()

	// 1/32 s at 128 Hz is four frames.
	clock.advance(31250 * time.Microsecond)
	batch, err := src.Poll()
	require.NoError(t, err)
	require.Equal(t, [][]float64{{0, 1, 2, 3}, {0, -1, -2, -3}, {0, 100, 200, 300}, {7, 7, 7, 7}}, batch)

	clock.advance(time.Second)
	batch, err = src.Poll()
	require.NoError(t, err)
	require.Equal(t, []float64{4, 5, 6, 7, 8, 9}, batch[0])

	clock.advance(time.Second)
	_, err = src.Poll()
	require.ErrorIs(t, err, io.EOF)
}

func TestFileSourceRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.txt")
	require.NoError(t, os.WriteFile(path, []byte("1,2\n"), 0o644))
	_, err := NewFileSource(path)
	require.ErrorContains(t, err, "unsupported format")
	require.False(t, IsSupportedExt(".txt"))
	require.True(t, IsSupportedExt(".FLAC"))
}
