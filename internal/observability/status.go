package observability

import (
	"sync"
	"time"
)

type Mode string

const (
	ModeIdle      Mode = "IDLE"
	ModePlanning  Mode = "PLANNING"
	ModeExecuting Mode = "EXECUTING"
	ModePaused    Mode = "AWAITING"
)

type SystemStatus struct {
	mu               sync.RWMutex
	CurrentMode      Mode
	ActiveGoal       string
	ActivePlans      int
	PendingApprovals int
	LastHeartbeat    time.Time
}

var globalStatus = &SystemStatus{
	CurrentMode:   ModeIdle,
	LastHeartbeat: time.Now(),
}

// SetStatus updates the global system status.
func SetStatus(mode Mode, goal string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.CurrentMode = mode
	globalStatus.ActiveGoal = goal
}

// SetCounts updates the plan and approval gauges shown on the dashboard.
func SetCounts(activePlans, pendingApprovals int) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.ActivePlans = activePlans
	globalStatus.PendingApprovals = pendingApprovals
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() (Mode, string, int, int, time.Time) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.CurrentMode, globalStatus.ActiveGoal,
		globalStatus.ActivePlans, globalStatus.PendingApprovals, globalStatus.LastHeartbeat
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.LastHeartbeat = time.Now()
}
