// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/bakelite/pkg/capture"
	"github.com/Thermoquad/bakelite/pkg/schema"
	"github.com/Thermoquad/bakelite/pkg/wire"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI messages
type frameMsg struct {
	line string
}
type connClosedMsg struct{}
type tickMsg time.Time

// TUI model
type sniffModel struct {
	connInfo string
	proto    *wire.Protocol
	lines    chan string
	viewport viewport.Model
	log      []string
	maxLines int
	width    int
	height   int
	ready    bool
	closed   bool
}

var (
	tuiTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	tuiStatusStyle = lipgloss.NewStyle().Faint(true)
	tuiErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func runSniffTUI(s *schema.Schema, proto *wire.Protocol, connInfo string, recorder *capture.Writer) error {
	lines := make(chan string, 64)
	go func() {
		for {
			line, ok := pollOnce(s, proto, recorder)
			if !ok {
				close(lines)
				return
			}
			if line != "" {
				lines <- line
			}
		}
	}()

	model := sniffModel{
		connInfo: connInfo,
		proto:    proto,
		lines:    lines,
		maxLines: 500,
	}
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func (m sniffModel) Init() tea.Cmd {
	return tea.Batch(m.waitForFrame(), tick())
}

func (m sniffModel) waitForFrame() tea.Cmd {
	return func() tea.Msg {
		line, ok := <-m.lines
		if !ok {
			return connClosedMsg{}
		}
		return frameMsg{line: line}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m sniffModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight
		}
		m.viewport.SetContent(strings.Join(m.log, ""))

	case frameMsg:
		m.log = append(m.log, msg.line)
		if len(m.log) > m.maxLines {
			m.log = m.log[len(m.log)-m.maxLines:]
		}
		if m.ready {
			m.viewport.SetContent(strings.Join(m.log, ""))
			m.viewport.GotoBottom()
		}
		return m, m.waitForFrame()

	case connClosedMsg:
		m.closed = true
		return m, nil

	case tickMsg:
		return m, tick()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m sniffModel) View() string {
	if !m.ready {
		return "Starting..."
	}

	title := tuiTitleStyle.Render("Bakelite Sniffer")
	status := tuiStatusStyle.Render(fmt.Sprintf("%s | %s | q to quit", m.connInfo, m.proto.Stats()))
	if m.closed {
		status = tuiErrorStyle.Render("Connection closed | q to quit")
	}

	return fmt.Sprintf("%s\n%s\n\n%s", title, status, m.viewport.View())
}
