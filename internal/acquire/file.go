package acquire

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
)

// FileSource replays a recorded audio file in real time, one batch per
// file channel. Samples keep their signed 16-bit scale.
type FileSource struct {
	file    *os.File
	dec     sampleDecoder
	title   string
	now     func() time.Time
	last    time.Time
	carry   float64
	scratch []int16
	eof     bool
}

// NewFileSource opens an MP3, WAV, FLAC or OGG file.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec, err := newDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if dec.SampleRate() <= 0 || dec.ChannelCount() <= 0 {
		f.Close()
		return nil, fmt.Errorf("unsupported stream: %d Hz, %d channels", dec.SampleRate(), dec.ChannelCount())
	}

	s := &FileSource{
		file:  f,
		dec:   dec,
		title: readTitle(path),
		now:   time.Now,
	}
	s.last = s.now()
	return s, nil
}

// Title returns the track title from ID3 tags, or the file name.
func (s *FileSource) Title() string { return s.title }

func (s *FileSource) Channels() int { return s.dec.ChannelCount() }

// SampleRate returns the file's native rate per channel.
func (s *FileSource) SampleRate() int { return s.dec.SampleRate() }

// Poll decodes the frames that have come due since the previous call.
func (s *FileSource) Poll() ([][]float64, error) {
	if s.eof {
		return nil, io.EOF
	}

	channels := s.dec.ChannelCount()
	frames := s.due()
	out := emptyBatch(channels)
	if frames == 0 {
		return out, nil
	}

	if cap(s.scratch) < frames*channels {
		s.scratch = make([]int16, frames*channels)
	}
	buf := s.scratch[:frames*channels]

	got := 0
	for got < len(buf) {
		n, err := s.dec.ReadSamples(buf[got:])
		got += n
		if errors.Is(err, io.EOF) {
			s.eof = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", s.title, err)
		}
		if n == 0 {
			break
		}
	}
	if got == 0 && s.eof {
		return nil, io.EOF
	}

	deinterleave(buf[:got], out)
	return out, nil
}

func (s *FileSource) due() int {
	rate := s.dec.SampleRate()
	now := s.now()
	owed := now.Sub(s.last).Seconds()*float64(rate) + s.carry
	s.last = now
	if owed < 0 {
		owed = 0
	}
	n := int(owed)
	s.carry = owed - float64(n)
	if n > rate {
		n = rate
		s.carry = 0
	}
	return n
}

func deinterleave(samples []int16, out [][]float64) {
	channels := len(out)
	frames := len(samples) / channels
	for ch := range out {
		out[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := range out {
			out[ch][i] = float64(samples[i*channels+ch])
		}
	}
}

func (s *FileSource) Close() error {
	return s.file.Close()
}

// readTitle reads the ID3v2 title, falling back to the file name.
func readTitle(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
		if err == nil {
			defer tag.Close()
			if title := strings.TrimSpace(tag.Title()); title != "" {
				return title
			}
		}
	}

	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
