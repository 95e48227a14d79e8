package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/simdeck/simdeck/deck"
	"github.com/simdeck/simdeck/log"
)

// View evaluates decks and opens an interactive browser over the snapshot.
// Typing filters field names fuzzily; the selected field is printed on exit.
type View struct {
	Sort   bool `help:"Reorder fields by dependency before evaluating" negatable:"" default:"true"`
	Strict bool `help:"Fail when field ordering cannot be fully resolved"`

	Sources []string `arg:"" help:"Deck file(s) or '-' for stdin" name:"sources" optional:""`
}

// Run executes the view command.
func (v *View) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	rec, err := loadSources(ctx, v.Sources)
	if err != nil {
		return err
	}

	snap, err := deck.Evaluate(rec,
		deck.WithSort(v.Sort),
		deck.WithStrict(v.Strict),
	)
	if err != nil {
		return deck.WrapError(err).
			With(slog.String("command", "view"))
	}

	log.DebugContext(ctx, "view start",
		slog.String("source", rec.Source()),
		slog.Int("fields", snap.Len()),
	)

	m := newViewModel(snap)

	p := tea.NewProgram(m, tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return err
	}

	// Print the selection after the program releases the terminal.
	if vm, ok := final.(viewModel); ok && vm.chosen != "" {
		value, err := snap.Get(vm.chosen)
		if err == nil {
			fmt.Fprintf(outputFrom(ctx), "%s=%s\n",
				vm.chosen, deck.FormatValue(value))
		}
	}

	return nil
}

const (
	filterPrompt      = "/ "
	defaultViewWidth  = 80
	defaultViewHeight = 24
	chromeLines       = 3 // filter line, blank line, status line
)

// Styles.
var (
	filterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorLine = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

// fieldRow is one rendered snapshot field.
type fieldRow struct {
	name  string
	text  string
	isErr bool
}

// viewModel is the Bubble Tea model for the snapshot browser.
type viewModel struct {
	filter   textinput.Model
	rows     []fieldRow
	visible  []int // indices into rows matching the filter
	selected int   // index into visible
	offset   int   // first visible row on screen
	width    int
	height   int
	chosen   string // name printed on exit
	quitting bool
}

func newViewModel(snap *deck.Record) viewModel {
	ti := textinput.New()
	ti.Prompt = filterStyle.Render(filterPrompt)
	ti.Placeholder = "filter fields"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = defaultViewWidth

	rows := make([]fieldRow, 0, snap.Len())
	visible := make([]int, 0, snap.Len())

	for name, value := range snap.Items() {
		rows = append(rows, fieldRow{
			name:  name,
			text:  deck.FormatValue(value),
			isErr: deck.IsMarker(value),
		})
		visible = append(visible, len(rows)-1)
	}

	return viewModel{
		filter:  ti,
		rows:    rows,
		visible: visible,
		width:   defaultViewWidth,
		height:  defaultViewHeight,
	}
}

func (m viewModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filter.Width = msg.Width - len(filterPrompt) - 2
		m.clampScroll()

		return m, nil
	}

	var cmd tea.Cmd

	m.filter, cmd = m.filter.Update(msg)

	return m, cmd
}

func (m viewModel) handleKey(msg tea.KeyMsg) (viewModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true

		return m, tea.Quit

	case tea.KeyEnter:
		if len(m.visible) > 0 {
			m.chosen = m.rows[m.visible[m.selected]].name
		}

		m.quitting = true

		return m, tea.Quit

	case tea.KeyUp:
		if m.selected > 0 {
			m.selected--
		}

		m.clampScroll()

		return m, nil

	case tea.KeyDown:
		if m.selected < len(m.visible)-1 {
			m.selected++
		}

		m.clampScroll()

		return m, nil

	case tea.KeyPgUp:
		m.selected = max(0, m.selected-m.pageSize())
		m.clampScroll()

		return m, nil

	case tea.KeyPgDown:
		m.selected = min(len(m.visible)-1, m.selected+m.pageSize())
		if m.selected < 0 {
			m.selected = 0
		}

		m.clampScroll()

		return m, nil
	}

	// Any other key edits the filter.
	var cmd tea.Cmd

	m.filter, cmd = m.filter.Update(msg)
	m.refilter()

	return m, cmd
}

// refilter recomputes the visible rows from the filter text and resets the
// selection to the best match.
func (m *viewModel) refilter() {
	query := strings.TrimSpace(m.filter.Value())

	m.visible = m.visible[:0]

	if query == "" {
		for i := range m.rows {
			m.visible = append(m.visible, i)
		}
	} else {
		names := make([]string, len(m.rows))
		for i, row := range m.rows {
			names[i] = row.name
		}

		for _, match := range fuzzy.Find(query, names) {
			m.visible = append(m.visible, match.Index)
		}
	}

	m.selected = 0
	m.offset = 0
}

func (m *viewModel) pageSize() int {
	return max(1, m.height-chromeLines)
}

// clampScroll keeps the selection within the visible window.
func (m *viewModel) clampScroll() {
	page := m.pageSize()

	if m.selected < m.offset {
		m.offset = m.selected
	}

	if m.selected >= m.offset+page {
		m.offset = m.selected - page + 1
	}

	if m.offset < 0 {
		m.offset = 0
	}
}

func (m viewModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	page := m.pageSize()
	end := min(m.offset+page, len(m.visible))

	for i := m.offset; i < end; i++ {
		row := m.rows[m.visible[i]]
		line := m.renderRow(row)

		if i == m.selected {
			line = cursorLine.Render(row.name + " = " + row.text)
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(m.visible) == 0 {
		b.WriteString(hintStyle.Render("no matching fields"))
		b.WriteString("\n")
	}

	status := fmt.Sprintf("%d/%d fields", len(m.visible), len(m.rows))
	b.WriteString(hintStyle.Render(status +
		"  ↑/↓ select · enter print · esc quit"))
	b.WriteString("\n")

	return b.String()
}

func (m viewModel) renderRow(row fieldRow) string {
	text := row.text
	if m.width > 8 && len(row.name)+len(text)+3 > m.width {
		keep := max(0, m.width-len(row.name)-4)
		if keep < len(text) {
			text = text[:keep] + "…"
		}
	}

	style := valueStyle
	if row.isErr {
		style = errorStyle
	}

	return nameStyle.Render(row.name) + " = " + style.Render(text)
}
