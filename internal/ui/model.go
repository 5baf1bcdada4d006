package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ragchat/internal/chat"
	"ragchat/internal/clipboard"
	"ragchat/internal/config"
	"ragchat/internal/export"
	"ragchat/internal/highlight"
	"ragchat/internal/store"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Submitter is the slice of the orchestrator the model drives.
type Submitter interface {
	Submit(ctx context.Context, transcript []chat.Message, mode chat.Mode, index, utterance string) ([]chat.Message, error)
}

type Model struct {
	cfg     config.AppConfig
	orch    Submitter
	store   *store.Store
	saver   *export.Saver
	session store.Session

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	width  int
	height int

	transcript []chat.Message
	mode       chat.Mode
	busy       bool

	searchMode  bool
	searchQuery string
	matchLines  []int
	matchIndex  int
	matchCount  int

	savedPaths map[int64][]string
	rendered   string

	status string
	err    error
}

type transcriptMsg struct {
	transcript []chat.Message
}

type busyMsg struct {
	busy bool
}

type submitDoneMsg struct {
	err error
}

type savedMsg struct {
	id    int64
	paths []string
	err   error
}

type persistedMsg struct {
	err error
}

type exportDoneMsg struct {
	path string
	err  error
}

type copyDoneMsg struct {
	err error
}

type newSessionMsg struct {
	session store.Session
	err     error
}

func NewModel(cfg config.AppConfig, orch Submitter, st *store.Store, saver *export.Saver, session store.Session, transcript []chat.Message) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about the indexed pages..."
	ti.Prompt = "> "
	ti.CharLimit = 2048
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Points

	h := help.New()
	h.ShowAll = false

	m := Model{
		cfg:        cfg,
		orch:       orch,
		store:      st,
		saver:      saver,
		session:    session,
		viewport:   vp,
		input:      ti,
		spinner:    sp,
		help:       h,
		keys:       defaultKeys(),
		transcript: transcript,
		mode:       chat.ParseMode(cfg.Mode),
		savedPaths: make(map[int64][]string),
		matchIndex: -1,
	}
	m.renderTranscript()
	m.viewport.GotoBottom()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) submitCmd(utterance string) tea.Cmd {
	orch := m.orch
	transcript := m.transcript
	mode := m.mode
	index := m.session.IndexName
	return func() tea.Msg {
		_, err := orch.Submit(context.Background(), transcript, mode, index, utterance)
		return submitDoneMsg{err: err}
	}
}

func (m Model) persistCmd(transcript []chat.Message) tea.Cmd {
	if m.store == nil {
		return nil
	}
	st := m.store
	id := m.session.ID
	return func() tea.Msg {
		return persistedMsg{err: st.SaveTranscript(id, transcript)}
	}
}

func (m Model) saveAttachmentsCmd(msg chat.Message) tea.Cmd {
	saver := m.saver
	return func() tea.Msg {
		switch msg.Attachment() {
		case chat.AttachmentImages:
			paths, err := saver.SaveImages(fmt.Sprintf("chart-%d", msg.ID), msg.Images)
			return savedMsg{id: msg.ID, paths: paths, err: err}
		case chat.AttachmentFile:
			path, err := saver.SaveSpreadsheet(msg.File)
			if err != nil {
				return savedMsg{id: msg.ID, err: err}
			}
			return savedMsg{id: msg.ID, paths: []string{path}}
		}
		return nil
	}
}

func (m Model) exportCmd() tea.Cmd {
	saver := m.saver
	id := m.session.ID
	transcript := m.transcript
	return func() tea.Msg {
		path, err := saver.ExportTranscript(id, transcript, time.Now().UTC())
		return exportDoneMsg{path: path, err: err}
	}
}

func (m Model) copyCmd() tea.Cmd {
	text := lastAssistantText(m.transcript)
	if text == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return copyDoneMsg{err: clipboard.Copy(ctx, text)}
	}
}

func (m Model) newSessionCmd() tea.Cmd {
	if m.store == nil {
		return nil
	}
	st := m.store
	index := m.session.IndexName
	return func() tea.Msg {
		sess, err := st.CreateSession(index)
		return newSessionMsg{session: sess, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.renderTranscript()
		m.viewport.GotoBottom()

	case transcriptMsg:
		m.transcript = msg.transcript
		m.renderTranscript()
		m.viewport.GotoBottom()
		cmds = append(cmds, m.persistCmd(msg.transcript))
		if last, ok := lastEntry(msg.transcript); ok && last.Role == chat.RoleAssistant {
			if _, saved := m.savedPaths[last.ID]; !saved && last.Attachment() != chat.AttachmentNone {
				cmds = append(cmds, m.saveAttachmentsCmd(last))
			}
		}

	case busyMsg:
		m.busy = msg.busy
		if m.busy {
			m.status = ""
			cmds = append(cmds, m.spinner.Tick)
		}

	case submitDoneMsg:
		if errors.Is(msg.err, chat.ErrBusy) {
			m.status = "Still waiting on the previous request"
		} else if msg.err != nil {
			m.err = msg.err
		}

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Could not save attachment: " + msg.err.Error()
			break
		}
		m.savedPaths[msg.id] = msg.paths
		m.status = "Saved: " + strings.Join(msg.paths, ", ")
		m.renderTranscript()
		m.viewport.GotoBottom()

	case persistedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Session save failed"
		}

	case exportDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Exported: " + msg.path
		}

	case copyDoneMsg:
		if msg.err != nil {
			if errors.Is(msg.err, clipboard.ErrToolNotFound) {
				m.status = "Could not copy: clipboard tool not found"
			} else {
				m.status = "Could not copy: " + msg.err.Error()
			}
		} else {
			m.status = "Copied last answer to clipboard"
		}

	case newSessionMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Could not start a new session"
			break
		}
		m.session = msg.session
		m.transcript = nil
		m.savedPaths = make(map[int64][]string)
		m.clearSearch()
		m.renderTranscript()
		m.status = "Started new session"

	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	if m.busy {
		var spin tea.Cmd
		m.spinner, spin = m.spinner.Update(msg)
		cmds = append(cmds, spin)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.searchMode {
		switch msg.String() {
		case "esc":
			m.searchMode = false
			m.clearSearch()
			m.leaveSearchInput()
			m.applySearch(false)
			return m, nil
		case "enter":
			m.searchMode = false
			m.searchQuery = strings.TrimSpace(m.input.Value())
			m.leaveSearchInput()
			m.applySearch(true)
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		if m.busy {
			m.status = "Still waiting on the previous request"
			return m, nil
		}
		utterance := m.input.Value()
		if strings.TrimSpace(utterance) == "" {
			return m, nil
		}
		m.input.Reset()
		return m, m.submitCmd(utterance)

	case key.Matches(msg, m.keys.CycleMode):
		m.mode = nextMode(m.mode)
		m.status = "Mode: " + modeLabel(m.mode)
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.input.Reset()
		m.input.SetValue(m.searchQuery)
		m.input.CursorEnd()
		m.input.Prompt = "/ "
		m.input.Placeholder = "Search transcript..."
		return m, nil

	case key.Matches(msg, m.keys.ClearSearch):
		if m.searchQuery != "" {
			m.clearSearch()
			m.applySearch(false)
		}
		return m, nil

	case key.Matches(msg, m.keys.NextMatch):
		m.jumpToMatch(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevMatch):
		m.jumpToMatch(-1)
		return m, nil

	case key.Matches(msg, m.keys.Export):
		if len(m.transcript) > 0 {
			cmds = append(cmds, m.exportCmd())
		}
		return m, tea.Batch(cmds...)

	case key.Matches(msg, m.keys.Copy):
		if cmd := m.copyCmd(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case key.Matches(msg, m.keys.NewSession):
		if m.busy {
			m.status = "Still waiting on the previous request"
			return m, nil
		}
		return m, m.newSessionCmd()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) leaveSearchInput() {
	m.input.Reset()
	m.input.Prompt = "> "
	m.input.Placeholder = "Ask about the indexed pages..."
}

func (m *Model) clearSearch() {
	m.searchQuery = ""
	m.matchLines = nil
	m.matchCount = 0
	m.matchIndex = -1
}

// applySearch re-highlights the rendered transcript for the current
// query and optionally jumps to the first match.
func (m *Model) applySearch(jump bool) {
	m.setViewportContent()
	if jump && len(m.matchLines) > 0 {
		m.matchIndex = 0
		m.viewport.SetYOffset(m.clampOffset(m.matchLines[0]))
	}
}

func (m *Model) jumpToMatch(delta int) {
	if len(m.matchLines) == 0 {
		if m.searchQuery != "" {
			m.status = "No matches"
		}
		return
	}
	if m.matchIndex < 0 {
		m.matchIndex = 0
	} else {
		m.matchIndex = (m.matchIndex + delta + len(m.matchLines)) % len(m.matchLines)
	}
	m.viewport.SetYOffset(m.clampOffset(m.matchLines[m.matchIndex]))
	m.status = fmt.Sprintf("Match %d/%d", m.matchIndex+1, m.matchCount)
}

func (m *Model) clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	max := m.viewport.TotalLineCount() - m.viewport.Height
	if max < 0 {
		max = 0
	}
	if offset > max {
		return max
	}
	return offset
}

func (m *Model) renderTranscript() {
	md := buildDisplayMarkdown(m.transcript, m.savedPaths)
	if strings.TrimSpace(md) == "" {
		md = "_No messages yet. Type below to start._"
	}

	wrap := m.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}

	rendered := md
	if r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(config.DefaultGlamourStyle),
		glamour.WithWordWrap(wrap),
	); err == nil {
		if out, renderErr := r.Render(md); renderErr == nil {
			rendered = out
		}
	}
	m.rendered = rendered
	m.setViewportContent()
}

func (m *Model) setViewportContent() {
	content := m.rendered
	if m.searchQuery != "" {
		res := highlight.Apply(m.rendered, m.searchQuery, func(s string) string {
			return searchMatchStyle.Render(s)
		})
		content = res.Text
		m.matchLines = res.Lines
		m.matchCount = res.Count
		if m.matchIndex >= len(m.matchLines) {
			m.matchIndex = -1
		}
	} else {
		m.matchLines = nil
		m.matchCount = 0
		m.matchIndex = -1
	}
	m.viewport.SetContent(content)
}

func buildDisplayMarkdown(transcript []chat.Message, savedPaths map[int64][]string) string {
	var b strings.Builder
	for _, msg := range transcript {
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString("## You\n\n")
		default:
			b.WriteString("## Assistant\n\n")
		}
		if text := strings.TrimSpace(msg.Text); text != "" {
			b.WriteString(text + "\n\n")
		}

		paths := savedPaths[msg.ID]
		switch msg.Attachment() {
		case chat.AttachmentImages:
			if len(paths) > 0 {
				for _, p := range paths {
					b.WriteString("_[chart saved: " + p + "]_\n\n")
				}
			} else {
				b.WriteString(fmt.Sprintf("_[%d chart image(s) received]_\n\n", len(msg.Images)))
			}
		case chat.AttachmentFile:
			if len(paths) > 0 {
				b.WriteString("_[spreadsheet saved: " + paths[0] + "]_\n\n")
			} else {
				b.WriteString("_[spreadsheet received: " + msg.File.Name + "]_\n\n")
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func lastEntry(transcript []chat.Message) (chat.Message, bool) {
	if len(transcript) == 0 {
		return chat.Message{}, false
	}
	return transcript[len(transcript)-1], true
}

func lastAssistantText(transcript []chat.Message) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == chat.RoleAssistant {
			return strings.TrimSpace(transcript[i].Text)
		}
	}
	return ""
}

func nextMode(mode chat.Mode) chat.Mode {
	switch mode {
	case chat.ModeChat:
		return chat.ModeVisuals
	case chat.ModeVisuals:
		return chat.ModeExcel
	default:
		return chat.ModeChat
	}
}

func modeLabel(mode chat.Mode) string {
	switch mode {
	case chat.ModeVisuals:
		return "visuals"
	case chat.ModeExcel:
		return "excel"
	default:
		return "chat"
	}
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.input.Width = m.width - 4
	m.viewport.Width = m.width - 2
	bodyHeight := m.height - 5
	if bodyHeight < 5 {
		bodyHeight = 5
	}
	m.viewport.Height = bodyHeight
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	body := panelStyle.Width(m.width - 2).Render(m.viewport.View())
	inputLine := m.input.View()
	helpView := m.help.View(m.keys)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusLine(),
		body,
		inputLine,
		helpView,
	)
}

func (m Model) statusLine() string {
	status := fmt.Sprintf("session=%s  mode=%s", shorten(m.session.ID, 24), modeLabel(m.mode))
	if m.session.IndexName != "" {
		status += "  index=" + shorten(m.session.IndexName, 24)
	} else {
		status += "  index=(none: run -analyze first)"
	}
	if m.busy {
		status += "  " + m.spinner.View() + " waiting"
	}
	if m.searchQuery != "" {
		if m.matchCount > 0 {
			cur := m.matchIndex + 1
			if cur < 1 {
				cur = 1
			}
			status += fmt.Sprintf("  [search %q %d/%d]", m.searchQuery, cur, m.matchCount)
		} else {
			status += fmt.Sprintf("  [search %q: no matches]", m.searchQuery)
		}
	}
	if strings.TrimSpace(m.status) != "" {
		status += "  " + shorten(strings.TrimSpace(m.status), 80)
	}
	if m.err != nil {
		status += "  err=" + shorten(m.err.Error(), 60)
	}
	return statusStyle.Render(status)
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	searchMatchStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("220"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

type keyMap struct {
	Submit      key.Binding
	CycleMode   key.Binding
	Search      key.Binding
	ClearSearch key.Binding
	NextMatch   key.Binding
	PrevMatch   key.Binding
	Export      key.Binding
	Copy        key.Binding
	NewSession  key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Quit        key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		CycleMode: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "cycle mode"),
		),
		Search: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("ctrl+f", "search"),
		),
		ClearSearch: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear search"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("ctrl+j"),
			key.WithHelp("ctrl+j", "next match"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("ctrl+k", "prev match"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "export markdown"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy last answer"),
		),
		NewSession: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new session"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.CycleMode, k.Search, k.Export, k.Copy, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.CycleMode, k.NewSession},
		{k.Search, k.ClearSearch, k.NextMatch, k.PrevMatch},
		{k.Export, k.Copy, k.PageUp, k.PageDown, k.Quit},
	}
}
