package acquire

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// sampleDecoder is implemented by all format-specific decoders. Samples
// are interleaved signed 16-bit values.
type sampleDecoder interface {
	// ReadSamples fills dst with whole frames and returns the number of
	// samples written. It returns io.EOF once nothing is left. dst must
	// hold at least one frame.
	ReadSamples(dst []int16) (int, error)
	SampleRate() int
	ChannelCount() int
}

// newDecoder detects format by file extension and returns the appropriate decoder.
func newDecoder(f *os.File) (sampleDecoder, error) {
	ext := strings.ToLower(filepath.Ext(f.Name()))
	switch ext {
	case ".mp3":
		return newMP3Decoder(f)
	case ".wav":
		return newWAVDecoder(f)
	case ".flac":
		return newFLACDecoder(f)
	case ".ogg":
		return newOGGDecoder(f)
	default:
		return nil, fmt.Errorf("unsupported format: %s", ext)
	}
}

// IsSupportedExt reports whether a file with this extension can be used
// as a sample source.
func IsSupportedExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".mp3", ".wav", ".flac", ".ogg":
		return true
	}
	return false
}

// readS16LE reads whole frames of little-endian s16 PCM from r.
func readS16LE(r io.Reader, scratch []byte, dst []int16, channels int) (int, error) {
	want := len(dst) - len(dst)%channels
	if want == 0 {
		return 0, nil
	}
	buf := scratch[:want*2]
	n, err := io.ReadFull(r, buf)
	samples := n / 2
	samples -= samples % channels
	for i := 0; i < samples; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if samples > 0 && err == io.EOF {
		err = nil
	}
	return samples, err
}

// --- MP3 decoder ---

type mp3Decoder struct {
	dec     *mp3.Decoder
	scratch []byte
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) ReadSamples(dst []int16) (int, error) {
	if cap(d.scratch) < len(dst)*2 {
		d.scratch = make([]byte, len(dst)*2)
	}
	return readS16LE(d.dec, d.scratch, dst, 2)
}

func (d *mp3Decoder) SampleRate() int   { return d.dec.SampleRate() }
func (d *mp3Decoder) ChannelCount() int { return 2 }

// --- WAV decoder ---

type wavDecoder struct {
	file        *os.File
	sampleRate  int
	channels    int
	srcBitDepth int
	remaining   int64 // source PCM bytes left
	scratch     []byte
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	// FwdToPCM positions the reader at the start of PCM data
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported WAV bit depth: %d", bitDepth)
	}
	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("invalid WAV channel count: %d", channels)
	}

	return &wavDecoder{
		file:        f,
		sampleRate:  int(dec.SampleRate),
		channels:    channels,
		srcBitDepth: bitDepth,
		remaining:   dec.PCMLen(),
	}, nil
}

func (d *wavDecoder) ReadSamples(dst []int16) (int, error) {
	if d.remaining <= 0 {
		return 0, io.EOF
	}
	srcBytesPerSample := d.srcBitDepth / 8
	want := len(dst) - len(dst)%d.channels
	if left := d.remaining / int64(srcBytesPerSample); int64(want) > left {
		want = int(left) - int(left)%d.channels
	}
	if cap(d.scratch) < want*srcBytesPerSample {
		d.scratch = make([]byte, want*srcBytesPerSample)
	}
	srcBytes := d.scratch[:want*srcBytesPerSample]
	n, err := io.ReadFull(d.file, srcBytes)
	d.remaining -= int64(n)

	// Truncate to whole frames
	samplesRead := n / srcBytesPerSample
	samplesRead -= samplesRead % d.channels
	if samplesRead == 0 {
		d.remaining = 0
		return 0, io.EOF
	}

	for i := 0; i < samplesRead; i++ {
		var sample int
		off := i * srcBytesPerSample
		switch d.srcBitDepth {
		case 8:
			// 8-bit WAV is unsigned
			sample = (int(srcBytes[off]) - 128) << 8
		case 16:
			sample = int(int16(binary.LittleEndian.Uint16(srcBytes[off:])))
		case 24:
			s := int32(srcBytes[off]) | int32(srcBytes[off+1])<<8 | int32(srcBytes[off+2])<<16
			if s&0x800000 != 0 {
				s |= ^0xFFFFFF // sign extend
			}
			sample = int(s >> 8)
		case 32:
			sample = int(int32(binary.LittleEndian.Uint32(srcBytes[off:])) >> 16)
		}
		dst[i] = clampS16(sample)
	}

	if err == io.ErrUnexpectedEOF || err == io.EOF {
		d.remaining = 0
	}
	return samplesRead, nil
}

func (d *wavDecoder) SampleRate() int   { return d.sampleRate }
func (d *wavDecoder) ChannelCount() int { return d.channels }

// --- FLAC decoder ---

type flacDecoder struct {
	stream     *flac.Stream
	buf        []int16 // decoded samples not yet handed out
	sampleRate int
	channels   int
	bps        int
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}

	info := stream.Info
	return &flacDecoder{
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bps:        int(info.BitsPerSample),
	}, nil
}

func (d *flacDecoder) ReadSamples(dst []int16) (int, error) {
	// Drain buffered data first
	if len(d.buf) == 0 {
		frame, err := d.stream.ParseNext()
		if err != nil {
			return 0, err
		}

		nSamples := int(frame.Subframes[0].NSamples)
		d.buf = make([]int16, nSamples*d.channels)
		for i := 0; i < nSamples; i++ {
			for ch := 0; ch < d.channels; ch++ {
				sample := int(frame.Subframes[ch].Samples[i])
				switch {
				case d.bps > 16:
					sample >>= (d.bps - 16)
				case d.bps < 16:
					sample <<= (16 - d.bps)
				}
				d.buf[i*d.channels+ch] = clampS16(sample)
			}
		}
	}

	want := len(dst) - len(dst)%d.channels
	n := copy(dst[:want], d.buf)
	d.buf = d.buf[n:]
	return n, nil
}

func (d *flacDecoder) SampleRate() int   { return d.sampleRate }
func (d *flacDecoder) ChannelCount() int { return d.channels }

// --- OGG Vorbis decoder ---

type oggDecoder struct {
	reader     *oggvorbis.Reader
	sampleRate int
	channels   int
	scratch    []float32
}

func newOGGDecoder(f *os.File) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}

	return &oggDecoder{
		reader:     reader,
		sampleRate: reader.SampleRate(),
		channels:   reader.Channels(),
	}, nil
}

func (d *oggDecoder) ReadSamples(dst []int16) (int, error) {
	want := len(dst) - len(dst)%d.channels
	if cap(d.scratch) < want {
		d.scratch = make([]float32, want)
	}
	samples := d.scratch[:want]
	n, err := d.reader.Read(samples)
	n -= n % d.channels
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		s := samples[i]
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		dst[i] = int16(s * 32767)
	}
	if err == io.EOF {
		err = nil
	}
	return n, err
}

func (d *oggDecoder) SampleRate() int   { return d.sampleRate }
func (d *oggDecoder) ChannelCount() int { return d.channels }

func clampS16(sample int) int16 {
	if sample > 32767 {
		return 32767
	} else if sample < -32768 {
		return -32768
	}
	return int16(sample)
}
