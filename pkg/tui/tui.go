package tui

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unowned-ai/alive/pkg/moments"
)

type model struct {
	store *moments.Store

	groups []moments.DayGroup
	feed   []moments.Moment
	stats  moments.UserStats

	planet      bool // true while browsing the public feed instead of the own timeline
	columnFocus int  // 0 = days, 1 = moments
	width       int
	height      int
	err         error
	warning     string

	dbFilename string
	quitting   bool

	dayCursor    int
	momentCursor int

	capturing     bool
	captureStep   int // 0 = content, 1 = tags
	captureError  string
	capturePublic bool
	contentInput  textinput.Model
	tagsInput     textinput.Model
	inspiration   string

	deleting         bool
	deleteConfirmIdx int // 0 = "Yes" selected, 1 = "No"

	marqueeOffset int
	marqueeTimer  int
}

func initModel(db *sql.DB, store *moments.Store) model {
	_, file := getDbPragmaList(db)

	content := textinput.New()
	content.CharLimit = 1000

	tags := textinput.New()
	tags.Placeholder = strings.Join(moments.PresetTags, ",")
	tags.CharLimit = 256

	return model{
		store:        store,
		dbFilename:   filepath.Base(file),
		contentInput: content,
		tagsInput:    tags,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		loadTimeline(m.store),
		tea.Tick(marqueeTickDuration, func(t time.Time) tea.Msg {
			return t
		}),
	)
}

// visibleMoments is what the middle column lists.
func (m model) visibleMoments() []moments.Moment {
	if m.planet {
		return m.feed
	}
	if m.dayCursor < len(m.groups) {
		return m.groups[m.dayCursor].Moments
	}
	return nil
}

func (m model) selectedMoment() (moments.Moment, bool) {
	ms := m.visibleMoments()
	if m.columnFocus != 1 || m.momentCursor >= len(ms) {
		return moments.Moment{}, false
	}
	return ms[m.momentCursor], true
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case error:
		m.err = msg
		return m, nil

	case timelineMsg:
		m.groups = msg.groups
		m.stats = msg.stats
		m.warning = msg.warning
		if m.dayCursor >= len(m.groups) {
			m.dayCursor = max(len(m.groups)-1, 0)
		}
		if n := len(m.visibleMoments()); m.momentCursor >= n {
			m.momentCursor = max(n-1, 0)
		}
		if len(m.visibleMoments()) == 0 {
			m.columnFocus = 0
		}
		return m, nil

	case feedMsg:
		m.feed = msg
		if m.momentCursor >= len(m.feed) {
			m.momentCursor = max(len(m.feed)-1, 0)
		}
		return m, nil

	case tea.KeyMsg:
		if m.capturing {
			return m.updateCapture(msg)
		}
		if m.deleting {
			return m.updateDelete(msg)
		}
		return m.updateRoot(msg)

	case time.Time:
		m.marqueeTimer++
		if m.marqueeTimer >= 10 {
			m.marqueeTimer = 0
			m.marqueeOffset++
		}
		return m, tea.Tick(marqueeTickDuration, func(t time.Time) tea.Msg {
			return t
		})
	}

	return m, nil
}

func (m model) updateCapture(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if m.captureStep == 0 {
			if err := moments.Validate(m.contentInput.Value(), nil); err != nil {
				m.captureError = err.Error()
				return m, nil
			}
			m.captureError = ""
			m.captureStep = 1
			m.contentInput.Blur()
			cmd := m.tagsInput.Focus()
			return m, cmd
		}

		content := m.contentInput.Value()
		tags := splitTags(m.tagsInput.Value())
		isPublic := m.capturePublic
		m.resetCapture()
		m.planet = false
		m.dayCursor, m.momentCursor = 0, 0
		return m, saveMoment(m.store, content, tags, isPublic)

	case tea.KeyEsc:
		m.resetCapture()
		return m, nil

	case tea.KeyTab:
		m.capturePublic = !m.capturePublic
		return m, nil
	}

	var cmd tea.Cmd
	if m.captureStep == 0 {
		m.contentInput, cmd = m.contentInput.Update(msg)
	} else {
		m.tagsInput, cmd = m.tagsInput.Update(msg)
	}
	return m, cmd
}

func (m *model) resetCapture() {
	m.capturing = false
	m.captureStep = 0
	m.captureError = ""
	m.capturePublic = false
	m.contentInput.Reset()
	m.tagsInput.Reset()
	m.contentInput.Blur()
	m.tagsInput.Blur()
}

func (m model) updateDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.deleteConfirmIdx = 0
	case "down", "j":
		m.deleteConfirmIdx = 1
	case "enter":
		m.deleting = false
		if m.deleteConfirmIdx != 0 {
			return m, nil
		}
		sel, ok := m.selectedMoment()
		if !ok || !sel.IsMine {
			return m, nil
		}
		return m, deleteMoment(m.store, sel.ID)
	case "esc":
		m.deleting = false
	}
	return m, nil
}

func (m model) updateRoot(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		// Exit alt screen before quitting so the goodbye message displays
		return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)

	case "up", "k":
		if m.columnFocus == 0 && !m.planet && m.dayCursor > 0 {
			m.dayCursor--
			m.momentCursor = 0
		} else if m.columnFocus == 1 && m.momentCursor > 0 {
			m.momentCursor--
		}

	case "down", "j":
		if m.columnFocus == 0 && !m.planet && m.dayCursor < len(m.groups)-1 {
			m.dayCursor++
			m.momentCursor = 0
		} else if m.columnFocus == 1 && m.momentCursor < len(m.visibleMoments())-1 {
			m.momentCursor++
		}

	case "right", "l":
		if m.columnFocus == 0 && len(m.visibleMoments()) > 0 {
			m.columnFocus = 1
			m.momentCursor = 0
		}

	case "left", "h":
		m.columnFocus = 0

	case "tab":
		m.planet = !m.planet
		m.momentCursor = 0
		if m.planet {
			m.columnFocus = 1
			return m, loadFeed(m.store)
		}
		m.columnFocus = 0
		return m, loadTimeline(m.store)

	case "n":
		m.capturing = true
		m.captureStep = 0
		m.inspiration = moments.RandomInspiration()
		m.contentInput.Placeholder = m.inspiration
		cmd := m.contentInput.Focus()
		return m, cmd

	case "p":
		if sel, ok := m.selectedMoment(); ok && sel.IsMine && !m.planet {
			return m, setPublic(m.store, sel.ID, !sel.IsPublic)
		}

	case "d":
		if sel, ok := m.selectedMoment(); ok && sel.IsMine && !m.planet {
			m.deleteConfirmIdx = 1
			m.deleting = true
		}

	case "s":
		if sel, ok := m.selectedMoment(); ok && m.planet {
			return m, sendSunshine(m.store, sel.ID)
		}
	}
	return m, nil
}

func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (m model) View() string {
	if m.quitting {
		return "See you tomorrow. Keep the streak alive.\n"
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	titleText := "Alive - one small moment a day"
	if m.planet {
		titleText = "Alive - planet"
	}
	titleBar := titleStyle.Width(m.width).Render(titleText)

	halfWidth := m.width / 2
	leftWidth := halfWidth / 2
	middleWidth := halfWidth - leftWidth
	rightWidth := m.width - (leftWidth + middleWidth)

	m.contentInput.Width = rightWidth - bordersAndPaddingWidth
	m.tagsInput.Width = rightWidth - bordersAndPaddingWidth

	quarterHeight := (m.height - bordersAndPaddingWidth) / 4
	panelHeightPadding := 3

	daysPanel := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, true, false).
		BorderForeground(lipgloss.Color(colorGray)).
		Padding(0, 2).
		Width(leftWidth).Height(quarterHeight * 3).
		Render(m.viewDays(leftWidth))
	statsPanel := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(lipgloss.Color(colorGray)).
		Padding(1, 2).
		Width(leftWidth).Height(quarterHeight).
		Render(m.viewStats())
	leftPanel := lipgloss.JoinVertical(lipgloss.Left, daysPanel, statsPanel)

	middlePanel := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(lipgloss.Color(colorGray)).
		Padding(0, 2).
		Width(middleWidth).Height(m.height - panelHeightPadding).
		Render(m.viewMoments(middleWidth))

	rightPanel := lipgloss.NewStyle().Padding(0, 2).
		Width(rightWidth).Height(m.height - panelHeightPadding).
		Render(m.viewDetail(rightWidth))

	columns := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, middlePanel, rightPanel)

	footerText := "\n↑/↓ navigate • tab planet/timeline • n new • p public • d delete • s sunshine • q quit"
	footerBar := footerStyle.Width(m.width).Render(footerText)
	if m.warning != "" {
		footerBar = warningStyle.Width(m.width).Render("\n"+m.warning) + footerBar
	}

	return titleBar + "\n\n" + columns + footerBar
}

func (m model) viewDays(width int) string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Width(width - bordersAndPaddingWidth).Render("  Days"))
	b.WriteString("\n\n")

	if m.planet {
		b.WriteString("Browsing the planet.\n")
		return b.String()
	}
	if len(m.groups) == 0 {
		b.WriteString("No moments yet. Press 'n' to record one.\n")
		return b.String()
	}
	for i, g := range m.groups {
		line := fmt.Sprintf("%s (%d)", g.Day, len(g.Moments))
		style := inactiveStyle
		if i == m.dayCursor {
			style = selectedStyle
		}
		b.WriteString(generateLinePointer(i == m.dayCursor && m.columnFocus == 0, 2) + style.Render(line) + "\n")
	}
	return b.String()
}

func (m model) viewStats() string {
	stage := moments.GrowthStageFor(m.stats.StreakDays)
	dbStatus := 0
	if m.dbFilename != "" && m.dbFilename != "." {
		dbStatus = 1
	}
	return fmt.Sprintf("Streak: %s days %s\nMoments: %d\nSunshine: %s\nDatabase file: %v\n",
		strconv.Itoa(m.stats.StreakDays),
		renderStage(stage),
		m.stats.TotalMoments,
		sunshineStyle.Render(strconv.Itoa(m.stats.TotalSunshine)),
		TextStatusColorize(m.dbFilename, dbStatus))
}

func (m model) viewMoments(width int) string {
	var b strings.Builder
	title := "  Moments"
	if m.planet {
		title = "  Public feed"
	}
	b.WriteString(subtitleStyle.Width(width - bordersAndPaddingWidth).Render(title))
	b.WriteString("\n\n")

	ms := m.visibleMoments()
	if len(ms) == 0 {
		b.WriteString("  Nothing here yet.\n")
		return b.String()
	}

	for i, mo := range ms {
		selected := i == m.momentCursor && m.columnFocus == 1
		pointer := generateLinePointer(selected, 2)
		availableWidth := width - len(pointer) - bordersAndPaddingWidth - 1

		line := firstLine(mo.Content)
		if line == "" && len(mo.Images) > 0 {
			line = fmt.Sprintf("[%d image(s)]", len(mo.Images))
		}
		if m.planet && !mo.IsMine {
			line = mo.AuthorAlias + ": " + line
		}

		style := inactiveStyle
		if selected {
			style = selectedStyle
			line = m.marqueeText(line, availableWidth)
		} else {
			line = truncate(line, availableWidth)
		}
		b.WriteString(pointer + style.Render(lipgloss.NewStyle().MaxWidth(availableWidth).Render(line)) + "\n")
	}
	return b.String()
}

func (m model) viewDetail(width int) string {
	var b strings.Builder

	subtitle := "Moment"
	switch {
	case m.capturing:
		subtitle = "New moment"
	case m.deleting:
		subtitle = "Delete moment"
	}
	b.WriteString(subtitleStyle.Width(width - bordersAndPaddingWidth).Render(subtitle))
	b.WriteString("\n\n")

	if m.capturing {
		b.WriteString(m.contentInput.View() + "\n")
		b.WriteString(labelStyle.Render("Tags: ") + m.tagsInput.View() + "\n")
		visibility := "private"
		if m.capturePublic {
			visibility = "public"
		}
		b.WriteString(labelStyle.Render("Visibility: ") + visibility + "\n\n")
		b.WriteString("(enter to continue, tab to toggle public, esc to cancel)")
		if m.captureError != "" {
			b.WriteString("\n\n" + errorStyle.Render(m.captureError) + "\n")
		}
		return b.String()
	}

	sel, ok := m.selectedMoment()
	if !ok {
		b.WriteString("Select a moment to view details.")
		return b.String()
	}

	if m.deleting {
		b.WriteString(errorStyle.Render(truncate(firstLine(sel.Content), width-bordersAndPaddingWidth)) + "\n\n")
		yesOpt, noOpt := "Yes", "No"
		if m.deleteConfirmIdx == 0 {
			yesOpt = dangerSelectedStyle.Render(" >" + yesOpt)
			noOpt = inactiveStyle.Render("  " + noOpt)
		} else {
			yesOpt = inactiveStyle.Render("  " + yesOpt)
			noOpt = selectedStyle.Render(" >" + noOpt)
		}
		b.WriteString(fmt.Sprintf("%s\n%s\n\n", yesOpt, noOpt))
		b.WriteString("(enter to confirm, esc to cancel, up/down to switch)")
		return b.String()
	}

	created := time.UnixMilli(sel.CreatedAt).In(m.store.Location())
	b.WriteString(labelStyle.Render("When: ") + created.Format("2006-01-02 15:04") + "\n")
	if !sel.IsMine {
		b.WriteString(labelStyle.Render("By: ") + sel.AuthorAlias + "\n")
	}
	tagsLine := "-"
	if len(sel.Tags) > 0 {
		tagsLine = strings.Join(sel.Tags, " ")
	}
	b.WriteString(labelStyle.Render("Tags: ") + tagStyle.Render(tagsLine) + "\n")
	visibility := "private"
	if sel.IsPublic {
		visibility = "public"
	}
	b.WriteString(labelStyle.Render("Visibility: ") + visibility + "\n")
	b.WriteString(labelStyle.Render("Sunshine: ") + sunshineStyle.Render(strconv.Itoa(sel.SunshineCount)) + "\n")
	if len(sel.Images) > 0 {
		b.WriteString(labelStyle.Render("Images: ") + strconv.Itoa(len(sel.Images)) + "\n")
	}
	b.WriteString("\n" + inactiveStyle.Render(sel.Content))
	return b.String()
}

// ShowTUI starts the Bubble Tea UI over store. db is only used to show the
// database file name and may be nil.
func ShowTUI(db *sql.DB, store *moments.Store) error {
	p := tea.NewProgram(initModel(db, store), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
