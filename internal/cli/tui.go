package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/polargraph/pkg/config"
)

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// PresetListModel - Interactive preset selection
// =============================================================================

// PresetListModel is the bubbletea model for interactive preset selection.
type PresetListModel struct {
	Presets  []config.Preset
	Cursor   int
	Selected *config.Preset
}

func newPresetListModel(presets []config.Preset) PresetListModel {
	return PresetListModel{Presets: presets}
}

func (m PresetListModel) Init() tea.Cmd {
	return nil
}

func (m PresetListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Presets)-1 {
			m.Cursor++
		}
	case "enter":
		if len(m.Presets) == 0 {
			return m, tea.Quit
		}
		p := m.Presets[m.Cursor]
		m.Selected = &p
		return m, tea.Quit
	}
	return m, nil
}

func (m PresetListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Preset"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	rows := make([][]string, len(m.Presets))
	for i, p := range m.Presets {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows[i] = append([]string{cursor}, presetColumns(p)...)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(append([]string{""}, presetHeaders...)...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return listHeaderStyle
			case row == m.Cursor:
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			case col == len(presetHeaders):
				return listDimStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Presets))))
	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

var presetHeaders = []string{"Preset", "Spacing", "Amplitude", "Mode", "Description"}

// presetColumns renders the settings a preset overrides; "·" marks a value
// inherited from the defaults.
func presetColumns(p config.Preset) []string {
	s := p.Settings
	mode := "·"
	if s.Organic != nil && *s.Organic {
		mode = "organic"
	}
	if s.Segmented != nil && !*s.Segmented {
		mode = strings.TrimPrefix(mode+" continuous", "· ")
	}
	return []string{p.Name, formatSetting(s.LineSpacing), formatSetting(s.AmplitudeScale), mode, p.Description}
}

func formatSetting(v *float64) string {
	if v == nil {
		return "·"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
