package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Faultbox/tdr2024/internal/integrity"
)

const (
	defaultWidth  = 100
	defaultHeight = 24
	listWidth     = 44
)

// Model is the bubbletea model for the tile browser.
type Model struct {
	title      string
	entries    []Entry
	visible    []int // indices into entries after search and filters
	cursor     int   // index into visible
	offset     int   // first visible row of the list
	search     string
	searching  bool
	errorsOnly bool
	detail     viewport.Model
	width      int
	height     int
}

// New creates a browser over entries.
func New(title string, entries []Entry) Model {
	m := Model{
		title:   title,
		entries: entries,
		detail:  viewport.New(defaultWidth-listWidth-4, defaultHeight-4),
		width:   defaultWidth,
		height:  defaultHeight,
	}
	m.refilter()
	return m
}

// Run starts the browser on the terminal's alternate screen and blocks until
// the user quits.
func Run(title string, entries []Entry) error {
	p := tea.NewProgram(New(title, entries), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Selected returns the entry under the cursor.
func (m Model) Selected() (Entry, bool) {
	if len(m.visible) == 0 {
		return Entry{}, false
	}
	return m.entries[m.visible[m.cursor]], true
}

// Filtered returns the number of entries passing the search and filters.
func (m Model) Filtered() int {
	return len(m.visible)
}

// Search returns the current search text.
func (m Model) Search() string {
	return m.search
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.detail.Width = max(1, m.width-listWidth-4)
		m.detail.Height = max(1, m.listHeight())
		m.scroll()
		m.syncDetail()
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "pgup":
		m.move(-m.listHeight())
	case "pgdown":
		m.move(m.listHeight())
	case "home", "g":
		m.move(-len(m.visible))
	case "end", "G":
		m.move(len(m.visible))
	case "/":
		m.searching = true
	case "e":
		m.errorsOnly = !m.errorsOnly
		m.refilter()
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		m.searching = false
	case tea.KeyEsc:
		m.searching = false
		m.search = ""
		m.refilter()
	case tea.KeyBackspace:
		if r := []rune(m.search); len(r) > 0 {
			m.search = string(r[:len(r)-1])
			m.refilter()
		}
	case tea.KeySpace:
		m.search += " "
		m.refilter()
	case tea.KeyRunes:
		m.search += string(msg.Runes)
		m.refilter()
	}
	return m, nil
}

// move shifts the cursor by delta rows, clamped to the list.
func (m *Model) move(delta int) {
	if len(m.visible) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.visible)-1, m.cursor+delta))
	m.scroll()
	m.syncDetail()
}

// refilter rebuilds the visible rows, keeping the selected entry when it
// still matches.
func (m *Model) refilter() {
	selected := -1
	if len(m.visible) > 0 {
		selected = m.visible[m.cursor]
	}

	visible := make([]int, 0, len(m.entries))
	m.cursor = 0
	for i, e := range m.entries {
		if m.errorsOnly && !e.HasErrors() {
			continue
		}
		if !matchesSearch(e, m.search) {
			continue
		}
		if i == selected {
			m.cursor = len(visible)
		}
		visible = append(visible, i)
	}
	m.visible = visible
	m.scroll()
	m.syncDetail()
}

func (m *Model) scroll() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	m.offset = max(0, min(m.offset, len(m.visible)-h))
}

func (m Model) listHeight() int {
	// title, status bar, search line and the panel borders
	return max(1, m.height-6)
}

func (m *Model) syncDetail() {
	e, ok := m.Selected()
	if !ok {
		m.detail.SetContent(mutedStyle.Render("No tiles match"))
		return
	}
	m.detail.SetContent(renderDetail(e))
	m.detail.GotoTop()
}

func renderDetail(e Entry) string {
	var b strings.Builder
	row := func(label string, value any) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(fmt.Sprint(value)) + "\n")
	}

	row("Tileset:", e.Tileset)
	if e.TileID != integrity.NoTile {
		row("Tile:", e.TileID)
	}
	if e.Kind != "" {
		row("Kind:", e.Kind)
	}
	if e.ImagePath != "" {
		row("Image:", e.ImagePath)
		row("Size:", fmt.Sprintf("%dx%d", e.Width, e.Height))
	}

	b.WriteString("\n")
	if len(e.Diagnostics) == 0 {
		b.WriteString(mutedStyle.Render("No problems"))
		return b.String()
	}
	for _, d := range e.Diagnostics {
		style := warningStyle
		if d.Severity == integrity.SeverityError {
			style = errorStyle
		}
		fmt.Fprintf(&b, "%s %s [%s]\n", style.Render(d.Severity.String()), d.Message, d.Rule)
	}
	return b.String()
}

// View implements tea.Model.
func (m Model) View() string {
	h := m.listHeight()

	var rows []string
	end := min(len(m.visible), m.offset+h)
	for i := m.offset; i < end; i++ {
		rows = append(rows, m.renderRow(i))
	}
	if len(rows) == 0 {
		rows = append(rows, mutedStyle.Render("(empty)"))
	}

	list := borderStyle.Width(listWidth).Height(h).Render(strings.Join(rows, "\n"))
	detail := borderStyle.Width(max(1, m.width-listWidth-4)).Height(h).Render(m.detail.View())

	search := mutedStyle.Render("/ search  e errors only  q quit")
	if m.searching || m.search != "" {
		search = "/" + m.search
		if m.searching {
			search += "_"
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.title),
		lipgloss.JoinHorizontal(lipgloss.Top, list, detail),
		search,
		m.statusBar(),
	)
}

func (m Model) renderRow(i int) string {
	e := m.entries[m.visible[i]]
	mark := " "
	switch {
	case e.HasErrors():
		mark = errorStyle.Render("✗")
	case len(e.Diagnostics) > 0:
		mark = warningStyle.Render("!")
	}

	name := []rune(e.Path())
	if w := listWidth - 8; len(name) > w {
		name = append([]rune("…"), name[len(name)-w+1:]...)
	}
	id := "   -"
	if e.TileID != integrity.NoTile {
		id = fmt.Sprintf("%4d", e.TileID)
	}
	line := id + " " + string(name)
	if i == m.cursor {
		line = selectedStyle.Render(line)
	}
	return mark + " " + line
}

func (m Model) statusBar() string {
	selected := "-"
	if e, ok := m.Selected(); ok {
		selected = e.Path()
	}
	filter := ""
	if m.errorsOnly {
		filter = " | errors only"
	}
	return statusBarStyle.Render(fmt.Sprintf("%d tiles total | %d filtered%s | Selected: %s",
		len(m.entries), len(m.visible), filter, selected))
}
