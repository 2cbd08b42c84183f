package ui

import tea "github.com/charmbracelet/bubbletea"

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

func helpText(modes int) string {
	s := "space pause"
	if modes > 1 {
		s += "  v view"
	}
	s += "  c clear  q quit"
	return s
}
