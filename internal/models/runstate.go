package models

import "strings"

// RunState is toggled externally through the control surface.
type RunState string

const (
	RunStateRunning          RunState = "running"
	RunStatePaused           RunState = "paused"
	RunStateStopped          RunState = "stopped"
	RunStateEmergencyStopped RunState = "emergency_stopped"
)

// ParseRunState maps unknown or empty values to STOPPED.
func ParseRunState(raw string) RunState {
	switch RunState(strings.ToLower(strings.TrimSpace(raw))) {
	case RunStateRunning:
		return RunStateRunning
	case RunStatePaused:
		return RunStatePaused
	case RunStateEmergencyStopped:
		return RunStateEmergencyStopped
	default:
		return RunStateStopped
	}
}
