package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/shardkit/cli/reader"
)

// statsChrome is the number of lines taken by the stat boxes and help.
const statsChrome = 12

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	offset   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		n := 0
		if data, ok := m.data.(*reader.ShardStats); ok {
			n = len(data.Items)
		}
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Down):
			m.offset = scroll(m.offset, 1, n)
		case key.Matches(msg, keys.Up):
			m.offset = scroll(m.offset, -1, n)
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewStatsShards:
		content = m.renderStatsShards()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("↑/↓ scroll • q quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsShards() string {
	data, ok := m.data.(*reader.ShardStats)
	if !ok {
		return "Invalid data type for stats_shards"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Shard Verification"))
	b.WriteString("\n\n")

	boxes := []string{
		m.renderStatBox("Shards", int64(data.Shards), highlightColor),
		m.renderStatBox("Samples", data.Samples, successColor),
		m.renderStatBox("Entries", data.Entries, primaryColor),
		m.renderStatBox("Failed", int64(data.Failed), errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")

	end := min(m.offset+visibleRows(m.height, statsChrome), len(data.Items))
	for _, row := range data.Items[m.offset:end] {
		status := "ok"
		if !row.OK {
			status = row.Error
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			StatusStyle(row.OK).Render("●"),
			ValueStyle.Render(row.Path),
			LabelStyle.Render(fmt.Sprintf("%d samples", row.Samples))+" "+StatusStyle(row.OK).Render(status))
	}
	if end < len(data.Items) {
		b.WriteString(HelpStyle.Render(fmt.Sprintf("… %d more", len(data.Items)-end)))
	}

	return b.String()
}

func (m StatsModel) renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
