package main

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"miclock/audio"
	"miclock/clipboard"
	"miclock/tray"
)

// TUI message types
type stateMsg tray.State
type noticeMsg string

type tuiModel struct {
	state  tray.State
	cursor int
	notice string
	width  int
	ready  bool

	actions *app
	demo    *demoControls // nil unless running with -fake
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Padding(0, 1)
	onStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	offStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	missingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("222"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

func NewTUIProgram(a *app, demo *demoControls) *tea.Program {
	m := tuiModel{actions: a, demo: demo}
	return tea.NewProgram(m, tea.WithAltScreen())
}

// tuiSend is safe before the program exists and from any goroutine.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (m tuiModel) Init() tea.Cmd {
	return func() tea.Msg {
		m.actions.RequestRefresh()
		return nil
	}
}

// run executes a blocking action off the UI goroutine. The refresh that
// every action ends with delivers the new state.
func (m tuiModel) run(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return noticeMsg("error: " + err.Error())
		}
		return nil
	}
}

func (m tuiModel) selected() (tray.Device, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Devices) {
		return tray.Device{}, false
	}
	return m.state.Devices[m.cursor], true
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case stateMsg:
		m.state = tray.State(msg)
		if !m.ready {
			// start on the locked device
			for i, d := range m.state.Devices {
				if d.UID == m.state.LockedUID {
					m.cursor = i
				}
			}
			m.ready = true
		}
		if m.cursor >= len(m.state.Devices) {
			m.cursor = max(len(m.state.Devices)-1, 0)
		}

	case noticeMsg:
		m.notice = string(msg)

	case tea.KeyMsg:
		m.notice = ""
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.state.Devices)-1 {
				m.cursor++
			}
		case " ":
			return m, m.run(m.actions.toggleLock)
		case "enter":
			if d, ok := m.selected(); ok {
				return m, m.run(func() error { return m.actions.lockDevice(d.UID) })
			}
		case "u":
			return m, m.run(m.actions.unlock)
		case "r":
			m.actions.RequestRefresh()
		case "y":
			d, ok := m.selected()
			if !ok {
				break
			}
			if !clipboard.Available() {
				m.notice = "no clipboard utility found"
				break
			}
			if err := clipboard.Copy(d.UID); err != nil {
				m.notice = "copy failed: " + err.Error()
			} else {
				m.notice = "copied " + d.UID
			}
		case "d":
			if m.demo != nil {
				return m, m.run(m.demo.switchDefault)
			}
		case "x":
			if m.demo != nil {
				return m, m.run(m.demo.toggleLockedPresent)
			}
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	if !m.ready {
		return "loading…"
	}
	s := m.state
	var b strings.Builder

	title := tray.Title(s)
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	lockText := offStyle.Render("off")
	if s.Enabled {
		lockText = onStyle.Render("on")
	}
	fmt.Fprintf(&b, "Input lock     %s\n", lockText)

	locked := strings.TrimPrefix(tray.LockedLabel(s), "Locked Input: ")
	if s.LockedMissing {
		locked = missingStyle.Render(locked)
	}
	fmt.Fprintf(&b, "Locked input   %s\n", locked)
	fmt.Fprintf(&b, "Current input  %s\n", s.CurrentName)

	var list strings.Builder
	if len(s.Devices) == 0 {
		list.WriteString(dimStyle.Render("No input devices"))
	}
	for i, d := range s.Devices {
		mark := "  "
		if d.UID == s.LockedUID {
			mark = "● "
		}
		line := mark + d.Name
		if audio.IsBluetoothDevice(audio.DeviceInfo{UID: d.UID, Name: d.Name}) {
			line += dimStyle.Render(" [bluetooth]")
		}
		if i == m.cursor {
			line = cursorStyle.Render("▶ " + line)
		} else {
			line = "  " + line
		}
		list.WriteString(line)
		if i < len(s.Devices)-1 {
			list.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(list.String()))
	b.WriteString("\n")

	if d, ok := m.selected(); ok {
		b.WriteString(dimStyle.Render(d.UID))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	help := "space lock on/off · enter lock device · u unlock · y copy UID · r refresh · q quit"
	if m.demo != nil {
		help += "\nd other app switches input · x unplug/replug locked device"
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(help))
	return b.String()
}
