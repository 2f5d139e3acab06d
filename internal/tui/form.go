package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/atendimento-dp/feedbackform/internal/feedback"
	"github.com/atendimento-dp/feedbackform/internal/form"
	"github.com/atendimento-dp/feedbackform/internal/logging"
)

// Texts shown by the form screen
const (
	IdleLabel     = "Enviar Feedback"
	BusyLabel     = "Enviando..."
	ThanksMessage = "Obrigado pelo seu feedback!"
	DatePattern   = "AAAA-MM-DD"
)

// submitDoneMsg carries the result of a background submission
type submitDoneMsg struct {
	result form.Result
}

// formKeyMap defines key bindings for the form screen
type formKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Submit, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Prev}, {k.Submit, k.Quit}}
}

func newFormKeyMap() formKeyMap {
	return formKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "send"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// fieldInput is the editor of one record field. Textarea fields use area,
// every other kind uses input.
type fieldInput struct {
	spec  feedback.FieldSpec
	input textinput.Model
	area  textarea.Model
}

func (f fieldInput) isArea() bool {
	return f.spec.Kind == feedback.InputTextArea
}

func (f fieldInput) value() string {
	if f.isArea() {
		return f.area.Value()
	}
	return f.input.Value()
}

func (f *fieldInput) setValue(v string) {
	if f.isArea() {
		f.area.SetValue(v)
		return
	}
	f.input.SetValue(v)
}

func (f *fieldInput) focus() tea.Cmd {
	if f.isArea() {
		return f.area.Focus()
	}
	return f.input.Focus()
}

func (f *fieldInput) blur() {
	if f.isArea() {
		f.area.Blur()
		return
	}
	f.input.Blur()
}

func (f *fieldInput) setWidth(width int) {
	if f.isArea() {
		f.area.SetWidth(width)
		return
	}
	f.input.Width = width
}

func (f fieldInput) view() string {
	if f.isArea() {
		return f.area.View()
	}
	return f.input.View()
}

// FormModel is the terminal rendition of one feedback form. It drives its
// own form.Manager; the record lives there and the inputs mirror it.
type FormModel struct {
	ctx     context.Context
	manager *form.Manager
	sender  form.Sender

	fields []fieldInput
	focus  int // index into fields, len(fields) is the submit button
	snap   form.Snapshot
	task   *form.Task

	// quitting is set when the user quits during a submission; the program
	// exits once the submission finishes.
	quitting bool

	Width   int
	Height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    formKeyMap
}

// NewFormModel creates a form submitting through sender
func NewFormModel(ctx context.Context, sender form.Sender) FormModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	fields := make([]fieldInput, 0, len(feedback.Fields))
	for _, spec := range feedback.Fields {
		f := fieldInput{spec: spec}
		switch spec.Kind {
		case feedback.InputTextArea:
			f.area = textarea.New()
			f.area.ShowLineNumbers = false
			f.area.SetHeight(4)
			f.area.Placeholder = spec.Label
		case feedback.InputDate:
			f.input = textinput.New()
			f.input.Placeholder = DatePattern
			f.input.CharLimit = len(DatePattern)
		default:
			f.input = textinput.New()
			f.input.Placeholder = spec.Label
			f.input.CharLimit = 255
		}
		f.setWidth(DefaultWidth - 12)
		fields = append(fields, f)
	}

	m := FormModel{
		ctx:     ctx,
		manager: form.NewManager(),
		sender:  sender,
		fields:  fields,
		Spinner: s,
		Help:    help.New(),
		Keys:    newFormKeyMap(),
	}
	m.fields[0].focus()
	m.snap = m.manager.Snapshot()
	return m
}

// Init initializes the form
func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model
func (m FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		width := msg.Width - 12
		if width > MaxContentWidth-12 {
			width = MaxContentWidth - 12
		}
		for i := range m.fields {
			m.fields[i].setWidth(width)
		}
		return m, nil

	case submitDoneMsg:
		m.task = nil
		m.snap = m.manager.Snapshot()
		if m.snap.Submitted {
			m.syncInputs()
		}
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if !m.snap.Busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	return m.updateFocused(msg)
}

func (m FormModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		if m.snap.Busy {
			// A started submission cannot be aborted
			m.quitting = true
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Submit):
		return m.submit()

	case key.Matches(msg, m.Keys.Next):
		return m, m.moveFocus(1)

	case key.Matches(msg, m.Keys.Prev):
		return m, m.moveFocus(-1)

	case msg.Type == tea.KeyEnter:
		if m.onButton() {
			return m.submit()
		}
		if !m.fields[m.focus].isArea() {
			return m, m.moveFocus(1)
		}
	}

	// Only the submit control is locked while busy; fields stay editable
	return m.updateFocused(msg)
}

// updateFocused forwards msg to the focused input and copies its value
// into the record.
func (m FormModel) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.onButton() {
		return m, nil
	}

	f := &m.fields[m.focus]
	before := f.value()

	var cmd tea.Cmd
	if f.isArea() {
		f.area, cmd = f.area.Update(msg)
	} else {
		f.input, cmd = f.input.Update(msg)
	}

	if after := f.value(); after != before {
		if err := m.manager.UpdateField(f.spec.Name, after); err != nil {
			logging.Warn("Failed to update form field", zap.String("field", f.spec.Name), zap.Error(err))
		}
		m.snap = m.manager.Snapshot()
	}
	return m, cmd
}

func (m FormModel) submit() (tea.Model, tea.Cmd) {
	task, err := m.manager.Start(m.ctx, m.sender)
	if err != nil {
		if errors.Is(err, form.ErrBusy) {
			return m, nil
		}
		logging.Error("Failed to start submission", zap.Error(err))
		return m, nil
	}

	m.task = task
	m.snap = m.manager.Snapshot()
	return m, tea.Batch(m.Spinner.Tick, waitForTask(task))
}

func waitForTask(task *form.Task) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{result: task.Wait()}
	}
}

func (m *FormModel) moveFocus(delta int) tea.Cmd {
	if !m.onButton() {
		m.fields[m.focus].blur()
	}

	n := len(m.fields) + 1
	m.focus = ((m.focus+delta)%n + n) % n

	if m.onButton() {
		return nil
	}
	return m.fields[m.focus].focus()
}

func (m FormModel) onButton() bool {
	return m.focus == len(m.fields)
}

// syncInputs copies the manager's record back into the inputs
func (m *FormModel) syncInputs() {
	for i := range m.fields {
		v, _ := m.snap.Record.Get(m.fields[i].spec.Name)
		m.fields[i].setValue(v)
	}
}

// Snapshot returns the form state the screen was last rendered from
func (m FormModel) Snapshot() form.Snapshot {
	return m.snap
}

// Focused returns the name of the focused field, or "" on the button
func (m FormModel) Focused() string {
	if m.onButton() {
		return ""
	}
	return m.fields[m.focus].spec.Name
}

// View renders the form screen
func (m FormModel) View() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Atendimento - DP"))
	b.WriteString("\n\n")

	for i, f := range m.fields {
		label := LabelStyle
		if i == m.focus {
			label = FocusedLabelStyle
		}
		b.WriteString("  " + label.Render(f.spec.Label) + "\n")
		for _, line := range strings.Split(f.view(), "\n") {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("  " + m.renderButton() + "\n\n")

	if m.snap.Error != "" {
		b.WriteString(RenderError(m.snap.Error))
		b.WriteString("\n")
	}
	if m.snap.Submitted {
		b.WriteString("  " + RenderSuccess(ThanksMessage))
		b.WriteString("\n")
	}
	if m.quitting {
		b.WriteString("  " + WarningStyle.Render("Aguardando o envio terminar..."))
		b.WriteString("\n")
	}

	return RenderApplicationContainer(b.String(), m.Help.View(m.Keys), m.Width, m.Height)
}

func (m FormModel) renderButton() string {
	if m.snap.Busy {
		return BusyButtonStyle.Render(m.Spinner.View() + " " + BusyLabel)
	}
	if m.onButton() {
		return FocusedButtonStyle.Render(IdleLabel)
	}
	return ButtonStyle.Render(IdleLabel)
}

// RunForm runs the form full-screen until the user quits
func RunForm(ctx context.Context, sender form.Sender) error {
	p := tea.NewProgram(NewFormModel(ctx, sender), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
