package tui

import (
	"bytes"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	taskListWidthRatio = 0.3
	logPaneBorderWidth = 4
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// StatusPending indicates the task is waiting to start.
	StatusPending TaskStatus = "Pending"
	// StatusRunning indicates the task is currently executing.
	StatusRunning TaskStatus = "Running"
	// StatusDone indicates the task completed successfully.
	StatusDone TaskStatus = "Done"
	// StatusError indicates the task failed.
	StatusError TaskStatus = "Error"
)

// TaskNode represents a single task in the UI list.
type TaskNode struct {
	Name      string
	Status    TaskStatus
	Logs      bytes.Buffer
	StartTime time.Time
	Duration  time.Duration
	Err       error
}

// Model represents the main TUI state.
type Model struct {
	Tasks          []*TaskNode
	TaskMap        map[string]*TaskNode
	SpanMap        map[string]*TaskNode
	Targets        []string
	Viewport       viewport.Model
	Spinner        spinner.Model
	ActiveTaskName string
	SelectedIdx    int
	ListOffset     int
	ListHeight     int
	FollowMode     bool
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.Spinner.Tick
}

// Update handles incoming messages and updates the model state.
//
//nolint:cyclop // one case per message type
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case msgInitTasks:
		m.Targets = msg.Targets
		m.Tasks = make([]*TaskNode, len(msg.Tasks))
		m.TaskMap = make(map[string]*TaskNode, len(msg.Tasks))
		m.SpanMap = make(map[string]*TaskNode)
		for i, name := range msg.Tasks {
			m.Tasks[i] = &TaskNode{Name: name, Status: StatusPending}
			m.TaskMap[name] = m.Tasks[i]
		}
		m.SelectedIdx = 0
		m.ListOffset = 0

	case msgTaskStart:
		node, ok := m.TaskMap[msg.Name]
		if !ok {
			return m, nil
		}
		node.Status = StatusRunning
		node.StartTime = msg.StartTime
		m.SpanMap[msg.SpanID] = node

		// Focus follows activity only in follow mode.
		if m.FollowMode {
			m.selectTask(msg.Name)
		}

	case msgTaskLog:
		if node, ok := m.SpanMap[msg.SpanID]; ok {
			node.Logs.Write(msg.Data)
			if node.Name == m.ActiveTaskName {
				m.refreshLogs(node)
			}
		}

	case msgTaskComplete:
		node, ok := m.SpanMap[msg.SpanID]
		if !ok {
			return m, nil
		}
		node.Duration = msg.EndTime.Sub(node.StartTime)
		node.Err = msg.Err
		if msg.Err != nil {
			node.Status = StatusError
			// Failures take focus so the error output is on screen.
			if m.FollowMode {
				m.selectTask(node.Name)
				m.FollowMode = false
			}
		} else {
			node.Status = StatusDone
		}
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "k", "up":
		if m.SelectedIdx > 0 {
			m.FollowMode = false
			m.selectIndex(m.SelectedIdx - 1)
		}
	case "j", "down":
		if m.SelectedIdx < len(m.Tasks)-1 {
			m.FollowMode = false
			m.selectIndex(m.SelectedIdx + 1)
		}
	case "esc":
		m.FollowMode = true
		for _, t := range m.Tasks {
			if t.Status == StatusRunning {
				m.selectTask(t.Name)
				break
			}
		}
	case "home":
		m.Viewport.GotoTop()
	case "end":
		m.Viewport.GotoBottom()
	default:
		var cmd tea.Cmd
		m.Viewport, cmd = m.Viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	listWidth := int(float64(width) * taskListWidthRatio)

	headerHeight := lipgloss.Height(titleStyle.Render("LOGS"))
	m.Viewport.Width = max(width-listWidth-logPaneBorderWidth, 1)
	m.Viewport.Height = max(height-headerHeight, 1)

	listHeaderHeight := lipgloss.Height(titleStyle.Render("TASKS") + "\n\n")
	m.ListHeight = max(height-listHeaderHeight, 1)
	m.ensureVisible()

	if node, ok := m.TaskMap[m.ActiveTaskName]; ok {
		m.refreshLogs(node)
	}
}

func (m *Model) selectTask(name string) {
	for i, t := range m.Tasks {
		if t.Name == name {
			m.selectIndex(i)
			return
		}
	}
}

func (m *Model) selectIndex(i int) {
	m.SelectedIdx = i
	m.ensureVisible()
	node := m.Tasks[i]
	m.ActiveTaskName = node.Name
	m.refreshLogs(node)
	m.Viewport.GotoBottom()
}

func (m *Model) ensureVisible() {
	if m.ListHeight <= 0 {
		return
	}
	if m.SelectedIdx < m.ListOffset {
		m.ListOffset = m.SelectedIdx
	} else if m.SelectedIdx >= m.ListOffset+m.ListHeight {
		m.ListOffset = m.SelectedIdx - m.ListHeight + 1
	}
}

func (m *Model) refreshLogs(node *TaskNode) {
	atBottom := m.Viewport.AtBottom()
	m.Viewport.SetContent(WrapLog(node.Logs.String(), m.Viewport.Width))
	if atBottom {
		m.Viewport.GotoBottom()
	}
}

// WrapLog normalizes line endings and wraps s to width columns, keeping ANSI sequences intact.
func WrapLog(s string, width int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if width <= 0 {
		return s
	}
	return ansi.Wrap(s, width, "")
}
