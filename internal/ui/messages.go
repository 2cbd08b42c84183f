package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type tickMsg time.Time

// acquisitionEndedMsg reports that the sample source stopped. err is nil
// when the source was exhausted or cancelled.
type acquisitionEndedMsg struct {
	err error
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitDone(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		err := <-done
		return acquisitionEndedMsg{err: err}
	}
}
