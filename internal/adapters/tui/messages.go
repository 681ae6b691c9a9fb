package tui

import "time"

// msgInitTasks carries the build plan.
type msgInitTasks struct {
	Tasks        []string
	Dependencies map[string][]string
	Targets      []string
}

// msgTaskStart is sent when a task span starts.
type msgTaskStart struct {
	SpanID    string
	ParentID  string
	Name      string
	StartTime time.Time
}

// msgTaskLog carries a chunk of task output.
type msgTaskLog struct {
	SpanID string
	Data   []byte
}

// msgTaskComplete is sent when a task span ends.
type msgTaskComplete struct {
	SpanID  string
	EndTime time.Time
	Err     error
}
