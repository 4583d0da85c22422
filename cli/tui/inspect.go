package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/shardkit/cli/reader"
)

// inspectChrome is the number of lines taken by the details box and help.
const inspectChrome = 18

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	offset   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Down):
			m.offset = scroll(m.offset, 1, m.items())
		case key.Matches(msg, keys.Up):
			m.offset = scroll(m.offset, -1, m.items())
		}
	}

	return m, nil
}

func (m InspectModel) items() int {
	if data, ok := m.data.(*reader.InspectShardResponse); ok {
		return len(data.Items)
	}
	return 0
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewInspectShard:
		content = m.renderInspectShard()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("↑/↓ scroll • q quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectShard() string {
	data, ok := m.data.(*reader.InspectShardResponse)
	if !ok {
		return "Invalid data type for inspect_shard"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Shard Details"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Path", data.Path},
		{"Compression", data.Compression},
		{"File Bytes", fmt.Sprintf("%d", data.FileBytes)},
		{"Samples", fmt.Sprintf("%d", data.Samples)},
		{"Entries", fmt.Sprintf("%d", data.Entries)},
		{"Payload", fmt.Sprintf("%d bytes", data.Bytes)},
		{"Fields", strings.Join(data.Fields, ", ")},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1]))
	}

	if len(data.Items) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Samples"))
		b.WriteString("\n")

		end := min(m.offset+visibleRows(m.height, inspectChrome), len(data.Items))
		for _, s := range data.Items[m.offset:end] {
			fmt.Fprintf(&b, "  %s %s %s\n",
				ValueStyle.Render(s.Key),
				LabelStyle.Render(fmt.Sprintf("%d bytes", s.Bytes)),
				lipgloss.NewStyle().Foreground(highlightColor).Render(strings.Join(s.Fields, " ")))
		}
		if end < len(data.Items) {
			fmt.Fprintf(&b, "  %s\n", HelpStyle.Render(fmt.Sprintf("… %d more", len(data.Items)-end)))
		}
	}

	return BoxStyle.Render(b.String())
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
