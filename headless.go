package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/olivier-w/micscope/internal/channels"
	"github.com/olivier-w/micscope/internal/rate"
	"github.com/olivier-w/micscope/internal/util"
)

type channelSummary struct {
	n              int
	min, max, last float64
}

// summarize describes the newest n samples of a padded window.
func summarize(window []float64, n int) channelSummary {
	n = min(n, len(window))
	if n <= 0 {
		return channelSummary{}
	}
	live := window[len(window)-n:]
	s := channelSummary{n: n, min: live[0], max: live[0], last: live[n-1]}
	for _, v := range live[1:] {
		s.min = min(s.min, v)
		s.max = max(s.max, v)
	}
	return s
}

func (s channelSummary) String() string {
	if s.n == 0 {
		return "empty"
	}
	return fmt.Sprintf("n=%d min=%g max=%g last=%g", s.n, s.min, s.max, s.last)
}

func formatReport(set *channels.ChannelSet, tracker *rate.Tracker) string {
	windows := set.Snapshot()
	lens := set.Lens()
	parts := make([]string, 0, len(windows)+1)
	for ch, w := range windows {
		parts = append(parts, fmt.Sprintf("ch%d %v", ch+1, summarize(w, lens[ch])))
	}
	parts = append(parts, util.FormatRate(tracker.SamplesPerSecond()))
	return strings.Join(parts, " | ")
}

// runHeadless logs a summary every interval until acquisition stops.
func runHeadless(set *channels.ChannelSet, tracker *rate.Tracker, interval time.Duration, done <-chan error, log logs.Log) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			log.Infof("Final: %s", formatReport(set, tracker))
			return err
		case <-ticker.C:
			log.Infof("%s", formatReport(set, tracker))
		}
	}
}
