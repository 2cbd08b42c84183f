package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cyclopcam/logs"
	"github.com/olivier-w/micscope/internal/acquire"
	"github.com/olivier-w/micscope/internal/applog"
	"github.com/olivier-w/micscope/internal/channels"
	"github.com/olivier-w/micscope/internal/config"
	"github.com/olivier-w/micscope/internal/rate"
	"github.com/olivier-w/micscope/internal/store"
	"github.com/olivier-w/micscope/internal/ui"
	"github.com/olivier-w/micscope/internal/visualizer"
)

// Samples are 16-bit ADC or PCM values.
const fullScale = 32768

type usageError struct {
	usage string
}

func (e *usageError) Error() string { return e.usage }

func main() {
	cfg, err := parseArgs(os.Args)
	if err != nil {
		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Print(ue.usage)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (config.Config, error) {
	def := config.Default()
	parser := argparse.NewParser("micscope", "Live multi-channel sample monitor")
	nch := parser.Int("c", "channels", &argparse.Options{Help: "Number of channels", Default: def.Channels})
	interval := parser.Int("i", "interval", &argparse.Options{Help: "Sample interval in milliseconds", Default: int(def.SampleInterval / time.Millisecond)})
	window := parser.Int("w", "window", &argparse.Options{Help: "Time window in seconds", Default: int(def.TimeWindow / time.Second)})
	render := parser.Int("r", "render", &argparse.Options{Help: "Redraw interval in milliseconds", Default: int(def.RenderInterval / time.Millisecond)})
	source := parser.String("s", "source", &argparse.Options{Help: "synth, stdin, or an audio file (mp3, wav, flac, ogg)", Default: def.Source})
	compress := parser.Int("x", "compress", &argparse.Options{Help: "Average this many raw samples into one", Default: def.Compress})
	sampleRate := parser.Int("", "rate", &argparse.Options{Help: "Synthetic source rate in samples per second", Default: def.SampleRate})
	outFile := parser.String("o", "outfile", &argparse.Options{Help: "Record samples to this file (.wav or CSV)"})
	fill := parser.Float("", "fill", &argparse.Options{Help: "Value shown for window positions not yet filled", Default: def.Fill})
	headless := parser.Flag("", "headless", &argparse.Options{Help: "Log channel summaries instead of drawing", Default: false})
	logFile := parser.String("", "log", &argparse.Options{Help: "Write log output to this file"})
	if err := parser.Parse(args); err != nil {
		return config.Config{}, &usageError{usage: parser.Usage(err)}
	}

	cfg := def
	cfg.Channels = *nch
	cfg.SampleInterval = time.Duration(*interval) * time.Millisecond
	cfg.TimeWindow = time.Duration(*window) * time.Second
	cfg.RenderInterval = time.Duration(*render) * time.Millisecond
	cfg.Source = *source
	cfg.Compress = *compress
	cfg.SampleRate = *sampleRate
	cfg.OutFile = *outFile
	cfg.Fill = *fill
	cfg.Headless = *headless
	cfg.LogFile = *logFile
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// sourceInfo describes an opened source for display and recording.
type sourceInfo struct {
	title      string
	sampleRate int // raw samples per second per channel, 0 if unknown
}

func openSource(cfg config.Config, log logs.Log) (acquire.Source, sourceInfo, error) {
	switch {
	case cfg.IsSynthetic():
		src, err := acquire.NewSynth(acquire.SynthOptions{
			Channels:   cfg.Channels,
			SampleRate: cfg.SampleRate,
			Frequency:  0.5,
			Amplitude:  8000,
			Noise:      400,
			Seed:       time.Now().UnixNano(),
		})
		if err != nil {
			return nil, sourceInfo{}, err
		}
		return src, sourceInfo{title: "synthetic", sampleRate: cfg.SampleRate}, nil

	case cfg.IsStdin():
		src, err := acquire.NewLineSource(os.Stdin, cfg.Channels, logs.NewPrefixLogger(log, "stdin:"))
		if err != nil {
			return nil, sourceInfo{}, err
		}
		return src, sourceInfo{title: "stdin"}, nil

	default:
		if !acquire.IsSupportedExt(filepath.Ext(cfg.Source)) {
			return nil, sourceInfo{}, fmt.Errorf("unsupported source %q: want synth, stdin, or an .mp3, .wav, .flac or .ogg file", cfg.Source)
		}
		src, err := acquire.NewFileSource(cfg.Source)
		if err != nil {
			return nil, sourceInfo{}, fmt.Errorf("opening %s: %w", cfg.Source, err)
		}
		if src.Channels() != cfg.Channels {
			log.Infof("%s has %d channels, overriding --channels %d", cfg.Source, src.Channels(), cfg.Channels)
		}
		return src, sourceInfo{title: src.Title(), sampleRate: src.SampleRate()}, nil
	}
}

// windowSpan is the time covered by a full window. Without a known source
// rate each acquisition tick is assumed to deliver one sample.
func windowSpan(cfg config.Config, info sourceInfo) time.Duration {
	if info.sampleRate <= 0 {
		return cfg.WindowDuration()
	}
	perSecond := float64(info.sampleRate) / float64(cfg.Compress)
	return time.Duration(float64(cfg.Capacity()) / perSecond * float64(time.Second))
}

// recordRate is the sample rate written into WAV recordings.
func recordRate(cfg config.Config, info sourceInfo) int {
	if info.sampleRate > 0 {
		return max(info.sampleRate/cfg.Compress, 1)
	}
	return max(int(time.Second/cfg.SampleInterval), 1)
}

func openLog(cfg config.Config) (logs.Log, error) {
	if cfg.Headless && cfg.LogFile == "" {
		return logs.NewLog()
	}
	return applog.Open(cfg.LogFile)
}

func run(cfg config.Config) error {
	log, err := openLog(cfg)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer log.Close()

	raw, info, err := openSource(cfg, log)
	if err != nil {
		return err
	}
	src := acquire.Compress(raw, cfg.Compress)
	defer src.Close()

	set, err := channels.New(src.Channels(), cfg.Capacity(), channels.WithFill(cfg.Fill))
	if err != nil {
		return err
	}
	tracker := rate.New(cfg.RateHistory, cfg.SampleInterval, cfg.Compress)

	var sink acquire.Sink = set
	if cfg.OutFile != "" {
		rec, err := store.Open(cfg.OutFile, src.Channels(), recordRate(cfg, info))
		if err != nil {
			return fmt.Errorf("opening recording: %w", err)
		}
		defer func() {
			if err := rec.Close(); err != nil {
				log.Errorf("Closing %s: %v", cfg.OutFile, err)
			}
			if n := rec.Dropped(); n > 0 {
				log.Warnf("%d samples not recorded because channels were uneven", n)
			}
		}()
		sink = acquire.Tee(set, rec)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Monitoring %s: %d channels, %d samples per window", info.title, set.Channels(), set.Capacity())
	loop := &acquire.Loop{
		Source:   src,
		Sink:     sink,
		Interval: cfg.SampleInterval,
		Rate:     tracker,
		Log:      logs.NewPrefixLogger(log, "acquire:"),
	}
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
		close(done)
	}()

	if cfg.Headless {
		return runHeadless(set, tracker, cfg.RenderInterval, done, log)
	}

	monitor := ui.NewMonitor(set, ui.Options{
		Title:          info.title,
		RenderInterval: cfg.RenderInterval,
		Window:         windowSpan(cfg, info),
		Rate:           tracker,
		Done:           done,
		Modes:          visualizer.Modes(fullScale),
	})
	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.IsStdin() {
		// samples arrive on stdin, so keys must come from the terminal
		opts = append(opts, tea.WithInputTTY())
	}
	program := tea.NewProgram(monitor, opts...)
	final, runErr := program.Run()
	stop()
	acqErr := <-done

	if m, ok := final.(ui.Monitor); ok && acqErr == nil {
		acqErr = m.AcquisitionErr()
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return acqErr
}
