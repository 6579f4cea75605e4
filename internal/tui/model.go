package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chat-pdf/internal/fetcher"
	"chat-pdf/internal/helper"
	"chat-pdf/internal/models"
	"chat-pdf/internal/rag"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Ingest(ctx context.Context, urls []string) (*rag.IngestReport, error)
	Query(ctx context.Context, question string) (*models.PromptResponse, error)
}

type focus int

const (
	focusURLs focus = iota
	focusQuestion
)

type ingestDoneMsg struct {
	report *rag.IngestReport
	err    error
}

type answerMsg struct {
	response *models.PromptResponse
	err      error
}

type bannerKind int

const (
	bannerNone bannerKind = iota
	bannerSuccess
	bannerError
)

// Model is the Bubble Tea model for the chat shell.
type Model struct {
	ctx      context.Context
	service  RAGPort
	urls     textarea.Model
	question textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	focus    focus
	busy     string
	banner   string
	kind     bannerKind
	warnings []string
	ready    bool
}

// New creates the model. ctx bounds every ingestion and query it starts.
func New(ctx context.Context, service RAGPort) Model {
	ta := textarea.New()
	ta.Placeholder = "Enter PDF URLs (one per line)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(4)
	ta.Focus()

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question from the PDF Files, then press Enter"
	ti.CharLimit = 0

	return Model{
		ctx:      ctx,
		service:  service,
		urls:     ta,
		question: ti,
		viewport: viewport.New(0, 0),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m Model) Init() tea.Cmd { return textarea.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		w := max(20, msg.Width-boxStyle.GetHorizontalFrameSize())
		m.urls.SetWidth(w)
		m.question.Width = w - len(m.question.Prompt)
		m.viewport.Width = w
		m.viewport.Height = max(3, msg.Height-m.urls.Height()-12)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyTab, tea.KeyShiftTab:
			return m.toggleFocus()
		case tea.KeyCtrlP:
			return m.startIngest()
		case tea.KeyEnter:
			if m.focus == focusQuestion {
				return m.startQuery()
			}
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case ingestDoneMsg:
		m.busy = ""
		m.warnings = nil
		if msg.report != nil {
			for _, w := range msg.report.Warnings {
				m.warnings = append(m.warnings, rag.WarningMessage(w))
			}
		}
		if msg.err != nil {
			m.setBanner(bannerError, rag.ErrorMessage(msg.err))
		} else {
			m.setBanner(bannerSuccess, fmt.Sprintf("%s (%d chunks)", rag.ReadyMessage, msg.report.Chunks))
		}
		return m, nil

	case answerMsg:
		m.busy = ""
		if msg.err != nil {
			m.setBanner(bannerError, rag.ErrorMessage(msg.err))
			return m, nil
		}
		m.setBanner(bannerNone, "")
		m.viewport.SetContent(renderAnswer(msg.response, m.viewport.Width))
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if m.focus == focusURLs {
		m.urls, cmd = m.urls.Update(msg)
	} else {
		m.question, cmd = m.question.Update(msg)
	}
	return m, cmd
}

func (m *Model) setBanner(kind bannerKind, text string) {
	m.kind, m.banner = kind, text
}

func (m Model) toggleFocus() (tea.Model, tea.Cmd) {
	if m.focus == focusURLs {
		m.focus = focusQuestion
		m.urls.Blur()
		return m, m.question.Focus()
	}
	m.focus = focusURLs
	m.question.Blur()
	return m, m.urls.Focus()
}

func (m Model) startIngest() (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	urls := fetcher.ParseURLList(m.urls.Value())
	m.busy = rag.ProcessingMessage
	m.setBanner(bannerNone, "")
	ctx, service := m.ctx, m.service
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		report, err := service.Ingest(ctx, urls)
		return ingestDoneMsg{report: report, err: err}
	})
}

func (m Model) startQuery() (tea.Model, tea.Cmd) {
	question := strings.TrimSpace(m.question.Value())
	if question == "" || m.busy != "" {
		return m, nil
	}
	m.busy = "Thinking..."
	ctx, service := m.ctx, m.service
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		resp, err := service.Query(ctx, question)
		return answerMsg{response: resp, err: err}
	})
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Chat with PDF 💬") + "\n")
	b.WriteString(boxStyle.Render(m.urls.View()) + "\n")
	b.WriteString(hintStyle.Render("ctrl+p process · tab switch · enter ask · pgup/pgdn scroll · ctrl+c quit") + "\n")
	for _, w := range m.warnings {
		b.WriteString(warningStyle.Render(w) + "\n")
	}
	switch {
	case m.busy != "":
		b.WriteString(m.spinner.View() + " " + m.busy + "\n")
	case m.kind == bannerSuccess:
		b.WriteString(successStyle.Render(m.banner) + "\n")
	case m.kind == bannerError:
		b.WriteString(errorStyle.Render(m.banner) + "\n")
	}
	b.WriteString(boxStyle.Render(m.question.View()) + "\n")
	b.WriteString(boxStyle.Render(m.viewport.View()))
	return b.String()
}

func renderAnswer(resp *models.PromptResponse, width int) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Width(width).Render(resp.Content))
	if len(resp.Sources) > 0 {
		b.WriteString("\n\n" + hintStyle.Render(fmt.Sprintf("Sources (%d)", len(resp.Sources))))
		for _, s := range resp.Sources {
			line := fmt.Sprintf("#%d %.3f %s", s.ChunkID, s.Similarity, strings.Join(strings.Fields(s.Content), " "))
			b.WriteString("\n" + hintStyle.Render(helper.Truncate(line, max(20, width))))
		}
	}
	return b.String()
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)
