package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/atendimento-dp/feedbackform/internal/discovery"
)

// ScanFunc finds form servers on the network
type ScanFunc func(ctx context.Context) ([]*discovery.FormServer, error)

type scanStartMsg struct{}
type scanCompleteMsg struct {
	servers []*discovery.FormServer
	err     error
}

// pickerKeyMap defines key bindings for the server picker
type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Enter}, {k.Rescan, k.Quit}}
}

// serverItem wraps a FormServer for use with bubbles/list
type serverItem struct {
	server *discovery.FormServer
}

func (s serverItem) FilterValue() string {
	return s.server.Instance + " " + s.server.IP + " " + s.server.Hostname
}

func (s serverItem) Title() string {
	return s.server.Instance
}

func (s serverItem) Description() string {
	desc := s.server.URL()
	if v := s.server.Version(); v != "" {
		desc += " • v" + v
	}
	return desc
}

// PickerModel scans for form servers and lets the user choose one
type PickerModel struct {
	scan ScanFunc

	Scanning  bool
	Servers   list.Model
	Selected  *discovery.FormServer
	Err       error
	ScanStart time.Time

	Width   int
	Height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    pickerKeyMap
}

// NewPickerModel creates a picker using scan to browse the network
func NewPickerModel(scan ScanFunc) PickerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	delegate := list.NewDefaultDelegate()
	delegate.Styles.NormalTitle = ListItemStyle.Padding(0, 0, 0, 2)
	delegate.Styles.SelectedTitle = SelectedListItemStyle.
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(HighlightColor).
		Padding(0, 0, 0, 1)
	servers := list.New([]list.Item{}, delegate, DefaultWidth-4, DefaultHeight-10)
	servers.Title = "Formulários encontrados"
	servers.SetShowStatusBar(false)
	servers.SetShowHelp(false)
	servers.Styles.Title = TitleStyle

	return PickerModel{
		scan:    scan,
		Servers: servers,
		Spinner: s,
		Help:    help.New(),
		Keys: pickerKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
			Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
			Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
			Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
		},
	}
}

// Init starts scanning immediately
func (m PickerModel) Init() tea.Cmd {
	return m.startScan()
}

func (m PickerModel) startScan() tea.Cmd {
	scan := m.scan
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		func() tea.Msg {
			servers, err := scan(context.Background())
			return scanCompleteMsg{servers: servers, err: err}
		},
		m.Spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Servers.SetSize(msg.Width-4, msg.Height-10)
		return m, nil

	case scanStartMsg:
		m.Scanning = true
		m.ScanStart = time.Now()
		return m, nil

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.servers))
		for i, server := range msg.servers {
			items[i] = serverItem{server: server}
		}
		return m, m.Servers.SetItems(items)

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		// Keys go to the filter input while the user is typing a filter
		if m.Servers.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Enter):
			if item, ok := m.Servers.SelectedItem().(serverItem); ok && !m.Scanning {
				m.Selected = item.server
				return m, tea.Quit
			}
			return m, nil
		case key.Matches(msg, m.Keys.Rescan):
			if m.Scanning {
				return m, nil
			}
			m.Err = nil
			return m, tea.Batch(m.Servers.SetItems(nil), m.startScan())
		}
	}

	if m.Scanning {
		return m, nil
	}
	var cmd tea.Cmd
	m.Servers, cmd = m.Servers.Update(msg)
	return m, cmd
}

// View renders the picker screen
func (m PickerModel) View() string {
	var b strings.Builder
	b.WriteString("\n")

	switch {
	case m.Scanning:
		elapsed := time.Since(m.ScanStart).Round(time.Second)
		b.WriteString(fmt.Sprintf("  %s Procurando formulários na rede... (%s)\n", m.Spinner.View(), elapsed))

	case m.Err != nil:
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
		b.WriteString("\n")

	case len(m.Servers.Items()) == 0:
		b.WriteString("  " + WarningStyle.Render("⚠ Nenhum formulário encontrado"))
		b.WriteString("\n\n")
		b.WriteString(SubtitleStyle.Render("  Start one with: atendimento-dp serve --advertise"))
		b.WriteString("\n")

	default:
		b.WriteString(m.Servers.View())
	}

	return RenderApplicationContainer(b.String(), m.Help.View(m.Keys), m.Width, m.Height)
}

// PickServer runs the picker and returns the chosen server, or nil when the
// user quit without choosing.
func PickServer(scan ScanFunc) (*discovery.FormServer, error) {
	final, err := tea.NewProgram(NewPickerModel(scan), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	return final.(PickerModel).Selected, nil
}
