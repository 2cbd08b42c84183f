// Package store records acquired frames to disk, as CSV lines or as a
// 16-bit PCM WAV file.
package store

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder consumes the same per-channel batches as a ChannelSet.
// Only frames present on every channel are written; the rest is counted
// as dropped.
type Recorder interface {
	PushBatch(batches [][]float64) error
	Dropped() int
	Close() error
}

// Open creates a recorder for path, choosing the format by extension:
// .wav writes PCM, anything else writes one CSV line per frame.
func Open(path string, channels, sampleRate int) (Recorder, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("store: channel count must be positive, got %d", channels)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		if sampleRate <= 0 {
			f.Close()
			return nil, fmt.Errorf("store: sample rate must be positive, got %d", sampleRate)
		}
		return newWAVRecorder(f, channels, sampleRate), nil
	}
	return &csvRecorder{file: f, w: bufio.NewWriter(f), channels: channels}, nil
}

// commonFrames returns the number of frames every channel can supply and
// how many samples are left over.
func commonFrames(batches [][]float64) (frames, dropped int) {
	frames = math.MaxInt
	for _, b := range batches {
		frames = min(frames, len(b))
	}
	if len(batches) == 0 {
		frames = 0
	}
	for _, b := range batches {
		dropped += len(b) - frames
	}
	return frames, dropped
}

func checkCount(batches [][]float64, channels int) error {
	if len(batches) != channels {
		return fmt.Errorf("store: got %d batches, want %d", len(batches), channels)
	}
	return nil
}

type csvRecorder struct {
	mu       sync.Mutex
	file     *os.File
	w        *bufio.Writer
	channels int
	dropped  int
	line     []byte
}

func (r *csvRecorder) PushBatch(batches [][]float64) error {
	if err := checkCount(batches, r.channels); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	frames, dropped := commonFrames(batches)
	r.dropped += dropped
	for i := 0; i < frames; i++ {
		r.line = r.line[:0]
		for ch := range batches {
			if ch > 0 {
				r.line = append(r.line, ',')
			}
			r.line = strconv.AppendFloat(r.line, batches[ch][i], 'f', -1, 64)
		}
		r.line = append(r.line, '\n')
		if _, err := r.w.Write(r.line); err != nil {
			return fmt.Errorf("writing CSV frame: %w", err)
		}
	}
	return nil
}

func (r *csvRecorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *csvRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Flush(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

type wavRecorder struct {
	mu       sync.Mutex
	file     *os.File
	enc      *wav.Encoder
	buf      *audio.IntBuffer
	channels int
	dropped  int
}

func newWAVRecorder(f *os.File, channels, sampleRate int) *wavRecorder {
	return &wavRecorder{
		file: f,
		enc:  wav.NewEncoder(f, sampleRate, 16, channels, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
		channels: channels,
	}
}

func (r *wavRecorder) PushBatch(batches [][]float64) error {
	if err := checkCount(batches, r.channels); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	frames, dropped := commonFrames(batches)
	r.dropped += dropped
	if frames == 0 {
		return nil
	}
	data := r.buf.Data[:0]
	for i := 0; i < frames; i++ {
		for ch := range batches {
			data = append(data, int(toS16(batches[ch][i])))
		}
	}
	r.buf.Data = data
	if err := r.enc.Write(r.buf); err != nil {
		return fmt.Errorf("writing WAV frames: %w", err)
	}
	return nil
}

func toS16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

func (r *wavRecorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *wavRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("finalizing WAV: %w", err)
	}
	return r.file.Close()
}
