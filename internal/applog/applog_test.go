package applog

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

// cyclops format: UTC datetime with microseconds, then the level name.
var linePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{6} (Info|Warning) `)

func TestNewFormatsLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)
	log.Infof("pushed %d samples", 12)
	log.Warnf("skipped line %q", "x")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Regexp(t, linePattern, lines[0])
	require.True(t, strings.HasSuffix(lines[0], " Info pushed 12 samples"), lines[0])
	require.True(t, strings.HasSuffix(lines[1], ` Warning skipped line "x"`), lines[1])
}

func TestPrefixedLinesHaveSingleSpace(t *testing.T) {
	var buf bytes.Buffer
	log := logs.NewPrefixLogger(New(&buf), "stdin:")
	log.Warnf("line %d", 3)
	require.True(t, strings.HasSuffix(buf.String(), " Warning stdin: line 3\n"), buf.String())
	require.NotContains(t, buf.String(), "stdin:  ")
}

func TestOpenAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "micscope.log")
	log, err := Open(path)
	require.NoError(t, err)
	log.Infof("first")
	log.Close()

	log, err = Open(path)
	require.NoError(t, err)
	log.Infof("second")
	log.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Info first")
	require.Contains(t, string(data), "Info second")
}

func TestCloseReleasesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "micscope.log")
	log, err := Open(path)
	require.NoError(t, err)
	log.Close()

	fl, ok := log.(*fileLog)
	require.True(t, ok)
	_, err = fl.file.Write([]byte("x"))
	require.ErrorIs(t, err, os.ErrClosed)
}

func TestOpenEmptyPathDiscards(t *testing.T) {
	log, err := Open("")
	require.NoError(t, err)
	log.Infof("nothing")
	log.Close()
}
