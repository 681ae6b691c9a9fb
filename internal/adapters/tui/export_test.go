package tui

import "time"

// Message constructors for driving the model in tests.

func InitTasks(tasks []string, targets []string) any {
	return msgInitTasks{Tasks: tasks, Targets: targets}
}

func TaskStart(spanID, name string, start time.Time) any {
	return msgTaskStart{SpanID: spanID, Name: name, StartTime: start}
}

func TaskLog(spanID, data string) any {
	return msgTaskLog{SpanID: spanID, Data: []byte(data)}
}

func TaskComplete(spanID string, end time.Time, err error) any {
	return msgTaskComplete{SpanID: spanID, EndTime: end, Err: err}
}
