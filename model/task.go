package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTask is returned when a task name does not match any Task.
var ErrUnknownTask = errors.New("unknown task")

// Task is the device's current operating mode. It drives both the energy
// priority and the QoS strictness used when scoring networks.
type Task string

const (
	TaskIdleMonitoring Task = "IDLE_MONITORING"
	TaskDataBurstAlert Task = "DATA_BURST_ALERT"
	TaskVideoStreaming Task = "VIDEO_STREAMING"
)

// Tasks returns the closed set of tasks in declaration order.
func Tasks() []Task {
	return []Task{TaskIdleMonitoring, TaskDataBurstAlert, TaskVideoStreaming}
}

// Valid reports whether t is one of the known tasks.
func (t Task) Valid() bool {
	switch t {
	case TaskIdleMonitoring, TaskDataBurstAlert, TaskVideoStreaming:
		return true
	}
	return false
}

func (t Task) String() string { return string(t) }

// ParseTask accepts the canonical upper-case name; surrounding whitespace
// and letter case are ignored.
func ParseTask(s string) (Task, error) {
	t := Task(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTask, s)
	}
	return t, nil
}

// MarshalText implements encoding.TextMarshaler.
func (t Task) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Task) UnmarshalText(b []byte) error {
	parsed, err := ParseTask(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
