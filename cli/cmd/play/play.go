package play

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/blockcss/block"
	"github.com/ardnew/blockcss/log"
)

// Config configures the playground.
type Config struct {
	Registry *block.Registry
	Block    string
	BlockID  string
	// CacheDir holds the history file. Empty keeps history in memory.
	CacheDir string
	Logger   log.Logger
}

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

// inputMode represents the current input mode.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	ctrlPromptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	inputStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	hintStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	matchStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	selectedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("4"))
	selectedMatchStyle = selectedStyle.Bold(true)
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	paramStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
)

// model is the Bubble Tea model of the playground.
type model struct {
	ctx        context.Context //nolint:containedctx
	session    *session
	input      textinput.Model
	logger     log.Logger
	history    *history
	historyIdx int
	matches    fuzzy.Matches
	wordStart  int
	wordEnd    int
	suggIdx    int
	tabActive  bool
	preTab     string
	preTabPos  int
	width      int
	quitting   bool
	mode       inputMode
	saved      [2]string
}

// Run starts the playground and blocks until the user quits.
func Run(ctx context.Context, cfg Config) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	s, err := newSession(cfg)
	if err != nil {
		return err
	}

	var path string
	if cfg.CacheDir != "" {
		path = filepath.Join(cfg.CacheDir, baseHistory)
	}

	h := newHistory(path)
	if err := h.load(); err != nil {
		cfg.Logger.WarnContext(ctx, "could not load history",
			slog.String("path", path),
			slog.Any("error", err))
	}

	cfg.Logger.TraceContext(ctx, "play start",
		slog.String("block", cfg.Block),
		slog.Int("history", h.len()))

	_, err = tea.NewProgram(newModel(ctx, s, h, cfg.Logger), tea.WithContext(ctx)).Run()

	return err
}

const defaultWidth = 80

func newModel(ctx context.Context, s *session, h *history, logger log.Logger) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	return model{
		ctx:        ctx,
		session:    s,
		input:      ti,
		logger:     logger,
		history:    h,
		historyIdx: h.len(),
		suggIdx:    -1,
		width:      defaultWidth,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	input := m.input.Value()

	switch {
	case m.historyIdx < m.history.len():
		b.WriteString(hintStyle.Render(fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.len())))

	case strings.TrimSpace(input) == "":
		hint := fmt.Sprintf("[%s #%s] Type template text or press Esc for commands",
			m.session.block, m.session.id)
		if m.mode == modeCtrl {
			hint = "Type a command: help, fields, set, css, quit (Esc returns)"
		}

		b.WriteString(hintStyle.Render(hint))

	case len(m.matches) > 0:
		b.WriteString(renderCandidateBar(m.matches, m.suggIdx, m.tabActive, m.width))

	case m.mode == modeEval:
		b.WriteString(m.session.signatureHint(input, m.input.Position()))
	}

	b.WriteString("\n")

	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.historyIdx = m.history.len()
		m.refreshMatches(false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		if m.tabActive && len(m.matches) > 0 {
			m.tabActive = false
			m.refreshMatches(true)

			return m, nil
		}

		return m.submit()

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		return m.browse(-1), nil

	case tea.KeyDown:
		return m.browse(1), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTab)
			m.input.SetCursor(m.preTabPos)
			m.refreshMatches(false)

			return m, nil
		}

		return m.switchMode(1 - m.mode), nil
	}

	typing := msg.Type == tea.KeyRunes
	if typing && m.tabActive && msg.String() == " " {
		m.tabActive = false
	}

	if !typing {
		m.tabActive = false
	}

	var cmd tea.Cmd

	m.historyIdx = m.history.len()
	m.input, cmd = m.input.Update(msg)
	m.refreshMatches(typing)

	return m, cmd
}

// cycle moves the tab selection by step and completes the current word.
func (m model) cycle(step int) model {
	n := len(m.matches)
	if n == 0 {
		return m
	}

	if n == 1 {
		m.replaceWord(m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m
	}

	if !m.tabActive {
		m.tabActive = true
		m.preTab = m.input.Value()
		m.preTabPos = m.input.Position()
		m.suggIdx = -1
		if step < 0 {
			m.suggIdx = 0
		}
	}

	m.suggIdx = (m.suggIdx + step + n) % n
	m.replaceWord(m.matches[m.suggIdx].Str)

	return m
}

// replaceWord replaces the current word with s and moves the cursor after
// it.
func (m *model) replaceWord(s string) {
	input := m.input.Value()

	m.input.SetValue(input[:m.wordStart] + s + input[m.wordEnd:])
	m.input.SetCursor(m.wordStart + len(s))
	m.wordEnd = m.wordStart + len(s)
}

// refreshMatches recomputes the matches for the word at the cursor. With
// autoConfirm, a word already equal to its sole match is accepted.
func (m *model) refreshMatches(autoConfirm bool) {
	m.matches, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	if m.input.Value()[m.wordStart:m.wordEnd] == m.matches[0].Str {
		m.matches = nil
	}
}

// browse steps through the history, switching mode to match each entry.
func (m model) browse(step int) model {
	i := m.historyIdx + step

	if i >= m.history.len() {
		m.historyIdx = m.history.len()
		m.input.SetValue("")
		m.refreshMatches(false)

		return m
	}

	e, err := m.history.entry(i)
	if err != nil {
		return m
	}

	m.historyIdx = i

	if e.Mode != m.mode {
		m = m.switchMode(e.Mode)
	}

	m.input.SetValue(e.Line)
	m.input.SetCursor(len(e.Line))
	m.refreshMatches(false)

	return m
}

// switchMode switches to mode, keeping each mode's pending input.
func (m model) switchMode(mode inputMode) model {
	m.saved[m.mode] = m.input.Value()
	m.mode = mode

	if mode == modeEval {
		m.input.Prompt = promptStyle.Render(evalPrompt)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
	}

	m.input.SetValue(m.saved[mode])
	m.input.CursorEnd()
	m.refreshMatches(false)

	return m
}

func (m model) submit() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	if err := m.history.add(input, m.mode); err != nil {
		m.logger.DebugContext(m.ctx, "history write failed", slog.Any("error", err))
	}

	m.historyIdx = m.history.len()
	m.saved = [2]string{}
	m.input.SetValue("")
	m.matches = nil

	if m.mode == modeCtrl {
		return m.command(input)
	}

	echo := tea.Println(promptStyle.Render(evalPrompt) + inputStyle.Render(input))

	out, warnings, err := m.session.eval(m.ctx, input)
	if err != nil {
		return m, tea.Sequence(echo, tea.Println(errorStyle.Render(err.Error())))
	}

	cmds := []tea.Cmd{echo, tea.Println(resultStyle.Render(out))}

	for _, w := range warnings {
		cmds = append(cmds, tea.Println(warnStyle.Render("warning: "+w.String())))
	}

	return m, tea.Sequence(cmds...)
}

func (m model) command(input string) (model, tea.Cmd) {
	echo := tea.Println(ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input))

	res, err := m.session.exec(m.ctx, input)

	switch {
	case err != nil:
		return m, tea.Sequence(echo, tea.Println(errorStyle.Render(err.Error())))

	case res.quit:
		m.quitting = true

		return m, tea.Sequence(echo, tea.Quit)

	case res.clear:
		return m, tea.ClearScreen

	case res.text == "":
		return m, echo
	}

	return m, tea.Sequence(echo, tea.Println(res.text))
}
