package acquire

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/cyclopcam/logs"
)

// LineSource reads frames from a text stream, one frame per line as
// comma-separated numbers, one per channel. A background goroutine
// parses the stream; Poll hands over what has accumulated.
type LineSource struct {
	channels int
	log      logs.Log
	closer   io.Closer

	mu      sync.Mutex
	pending [][]float64
	err     error // set once the reader stops; io.EOF on a clean end
	skipped int

	done chan struct{}
}

// NewLineSource starts reading r. If r is an io.Closer, Close closes it.
func NewLineSource(r io.Reader, channels int, log logs.Log) (*LineSource, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("line source: channel count must be positive, got %d", channels)
	}
	s := &LineSource{
		channels: channels,
		log:      log,
		pending:  emptyBatch(channels),
		done:     make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	go s.read(r)
	return s, nil
}

func (s *LineSource) read(r io.Reader) {
	defer close(s.done)

	scanner := bufio.NewScanner(r)
	frame := make([]float64, s.channels)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := parseFrame(line, frame); err != nil {
			s.log.Warnf("line %d: %v, skipping", lineNo, err)
			s.mu.Lock()
			s.skipped++
			s.mu.Unlock()
			continue
		}
		s.mu.Lock()
		for ch, v := range frame {
			s.pending[ch] = append(s.pending[ch], v)
		}
		s.mu.Unlock()
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func parseFrame(line string, frame []float64) error {
	fields := strings.Split(line, ",")
	if len(fields) != len(frame) {
		return fmt.Errorf("got %d values, want %d", len(fields), len(frame))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return fmt.Errorf("value %d: %w", i+1, err)
		}
		frame[i] = v
	}
	return nil
}

// Channels returns the number of values expected per line.
func (s *LineSource) Channels() int { return s.channels }

// Poll returns the frames parsed since the last call. After the stream
// ends and everything has been handed over it returns the reader's
// error, io.EOF for a clean end.
func (s *LineSource) Poll() ([][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending[0]) > 0 {
		out := s.pending
		s.pending = emptyBatch(s.channels)
		return out, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return emptyBatch(s.channels), nil
}

// Skipped returns the number of malformed lines ignored so far.
func (s *LineSource) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// Done is closed once the reader goroutine has stopped.
func (s *LineSource) Done() <-chan struct{} { return s.done }

// Close closes the underlying reader when it is closable.
func (s *LineSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
