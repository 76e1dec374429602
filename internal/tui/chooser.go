package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"pysel/internal/distribution"
)

// ErrCancelled is returned when the user leaves the chooser without picking.
var ErrCancelled = errors.New("selection cancelled")

type chooserKeys struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Cancel key.Binding
}

var defaultChooserKeys = chooserKeys{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "activate")),
	Cancel: key.NewBinding(key.WithKeys("esc", "q", "ctrl+c"), key.WithHelp("esc", "cancel")),
}

// ChooserModel is a bubbletea model listing ranked distributions and
// letting the user pick one.
type ChooserModel struct {
	title     string
	items     []distribution.Distribution
	cursor    int
	chosen    bool
	cancelled bool
	keys      chooserKeys
}

// NewChooserModel creates a chooser over ranked with the first entry
// highlighted.
func NewChooserModel(title string, ranked []distribution.Distribution) ChooserModel {
	return ChooserModel{
		title: title,
		items: ranked,
		keys:  defaultChooserKeys,
	}
}

// Init satisfies the tea.Model interface.
func (m ChooserModel) Init() tea.Cmd {
	return nil
}

// Update satisfies the tea.Model interface.
func (m ChooserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Choose):
		if len(m.items) > 0 {
			m.chosen = true
			return m, tea.Quit
		}
	case key.Matches(keyMsg, m.keys.Cancel):
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

// View satisfies the tea.Model interface.
func (m ChooserModel) View() string {
	if m.chosen || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(m.title))
	b.WriteString("\n\n")
	for i, d := range m.items {
		line := fmt.Sprintf("%-14s %-10s %-8s %2d-bit  %s", d.Vendor, d.Tag, NonEmptyOrDash(d.ReportedVersion), int(d.Width), d.Scope)
		if name := d.TagName(); name != d.Tag {
			line += "  " + name
		}
		if i == m.cursor {
			b.WriteString(CursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteByte('\n')
	}
	help := []string{}
	for _, k := range []key.Binding{m.keys.Up, m.keys.Down, m.keys.Choose, m.keys.Cancel} {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteByte('\n')
	b.WriteString(HelpStyle.Render(strings.Join(help, " • ")))
	b.WriteByte('\n')
	return b.String()
}

// Selected returns the chosen distribution, if any.
func (m ChooserModel) Selected() (distribution.Distribution, bool) {
	if !m.chosen || m.cursor >= len(m.items) {
		return distribution.Distribution{}, false
	}
	return m.items[m.cursor], true
}

// Choose runs the chooser on in/out and returns the picked distribution.
func Choose(ctx context.Context, in io.Reader, out io.Writer, title string, ranked []distribution.Distribution) (distribution.Distribution, error) {
	p := tea.NewProgram(NewChooserModel(title, ranked),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil {
		return distribution.Distribution{}, err
	}
	m, ok := final.(ChooserModel)
	if !ok {
		return distribution.Distribution{}, ErrCancelled
	}
	d, ok := m.Selected()
	if !ok {
		return distribution.Distribution{}, ErrCancelled
	}
	return d, nil
}
